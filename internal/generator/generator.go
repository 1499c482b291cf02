// Package generator produces honeywords: decoy passwords that keep the
// character-class shape of the real password so that an attacker holding the
// cracked hash list cannot tell the genuine entry apart by structure alone.
package generator

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/dmitrijs2005/honeykeeper/internal/common"
	"github.com/dmitrijs2005/honeykeeper/internal/randx"
)

// HoneywordSource is what the credential services consume. Honeywords must
// return k distinct strings containing real exactly once.
type HoneywordSource interface {
	Honeywords(real string, k int) ([]string, error)
}

const attemptsPerWord = 200

var (
	lowerPool  = []rune("abcdefghijklmnopqrstuvwxyz")
	upperPool  = []rune("ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	digitPool  = []rune("0123456789")
	punctPool  = []rune("!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~")
	alphabet   = concat(lowerPool, upperPool, digitPool, punctPool)
	chainSizes = []int{1, 1, 1, 2, 2, 3}
)

// leet-speak toggles, keyed by lower-case rune.
var leet = map[rune]rune{
	'a': '4', '4': 'a',
	'e': '3', '3': 'e',
	'i': '1', '1': 'i',
	'o': '0', '0': 'o',
	's': '5', '5': 's',
	't': '7', '7': 't',
	'l': '1',
	'b': '8', '8': 'b',
}

// Generator builds candidates by chaining one to three random mutations of
// the real password. It is deterministic for a deterministic source.
type Generator struct {
	src randx.Source
}

// New returns a Generator drawing every choice from src.
func New(src randx.Source) *Generator {
	return &Generator{src: src}
}

// Honeywords returns k distinct strings; the first one is real.
// Callers that must hide the position of real shuffle it themselves.
func (g *Generator) Honeywords(real string, k int) ([]string, error) {
	if k < 2 {
		return nil, fmt.Errorf("%w: k must be >= 2, got %d", common.ErrInvalidArgument, k)
	}
	if !utf8.ValidString(real) {
		return nil, fmt.Errorf("%w: password is not valid UTF-8", common.ErrInvalidArgument)
	}

	out := make([]string, 1, k)
	out[0] = real
	seen := map[string]struct{}{real: {}}

	maxAttempts := k * attemptsPerWord
	for attempts := 0; len(out) < k; attempts++ {
		if attempts >= maxAttempts {
			return nil, fmt.Errorf("%w: got %d of %d distinct candidates after %d attempts",
				common.ErrGeneratorExhaustion, len(out), k, maxAttempts)
		}

		w := []rune(real)
		for n := randx.Choice(g.src, chainSizes); n > 0; n-- {
			w = g.mutate(w)
		}

		s := string(w)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}

type strategy func(s []rune) []rune

func (g *Generator) mutate(s []rune) []rune {
	if len(s) == 0 {
		return []rune{randx.Choice(g.src, alphabet)}
	}

	strategies := []strategy{
		g.substitute,
		g.swapAdjacent,
		g.flipCase,
		g.toggleLeet,
		g.rewriteSuffix,
	}
	if len(s) >= 5 {
		strategies = append(strategies, g.deleteRune)
	}
	strategies = append(strategies, g.insertRune)

	return randx.Choice(g.src, strategies)(s)
}

// substitute replaces one rune with another of the same class.
func (g *Generator) substitute(s []rune) []rune {
	out := clone(s)
	i := g.src.IntN(len(out))
	orig := out[i]

	pool := classOf(orig)
	if len(pool) <= 1 {
		pool = alphabet
	}
	c := orig
	for try := 0; try < 20 && c == orig; try++ {
		c = randx.Choice(g.src, pool)
	}
	out[i] = c
	return out
}

// swapAdjacent mimics a transposition typo.
func (g *Generator) swapAdjacent(s []rune) []rune {
	if len(s) < 2 {
		return s
	}
	out := clone(s)
	i := g.src.IntN(len(out) - 1)
	out[i], out[i+1] = out[i+1], out[i]
	return out
}

// insertRune inserts a rune drawn from the class of its right-hand neighbour
// (the last rune when inserting at the end).
func (g *Generator) insertRune(s []rune) []rune {
	i := g.src.IntN(len(s) + 1)
	ref := s[min(i, len(s)-1)]
	c := randx.Choice(g.src, classOf(ref))

	out := make([]rune, 0, len(s)+1)
	out = append(out, s[:i]...)
	out = append(out, c)
	return append(out, s[i:]...)
}

func (g *Generator) deleteRune(s []rune) []rune {
	if len(s) <= 1 {
		return s
	}
	i := g.src.IntN(len(s))
	out := make([]rune, 0, len(s)-1)
	out = append(out, s[:i]...)
	return append(out, s[i+1:]...)
}

func (g *Generator) toggleLeet(s []rune) []rune {
	var eligible []int
	for i, c := range s {
		if _, ok := leet[unicode.ToLower(c)]; ok {
			eligible = append(eligible, i)
		}
	}
	if len(eligible) == 0 {
		return g.substitute(s)
	}

	out := clone(s)
	i := randx.Choice(g.src, eligible)
	repl := leet[unicode.ToLower(out[i])]
	if unicode.IsUpper(out[i]) && unicode.IsLetter(repl) {
		repl = unicode.ToUpper(repl)
	}
	out[i] = repl
	return out
}

// rewriteSuffix redraws the trailing run of non-letters ("pass123!" ->
// "pass907?"), or appends a digit when the password ends in a letter.
func (g *Generator) rewriteSuffix(s []rune) []rune {
	i := len(s)
	for i > 0 && !unicode.IsLetter(s[i-1]) {
		i--
	}
	if i == len(s) {
		return append(clone(s), randx.Choice(g.src, digitPool))
	}

	out := clone(s)
	for j := i; j < len(out); j++ {
		out[j] = randx.Choice(g.src, classOf(out[j]))
	}
	return out
}

func (g *Generator) flipCase(s []rune) []rune {
	var letters []int
	for i, c := range s {
		if unicode.IsLetter(c) {
			letters = append(letters, i)
		}
	}
	if len(letters) == 0 {
		return g.substitute(s)
	}

	out := clone(s)
	i := randx.Choice(g.src, letters)
	if unicode.IsUpper(out[i]) {
		out[i] = unicode.ToLower(out[i])
	} else {
		out[i] = unicode.ToUpper(out[i])
	}
	return out
}

func classOf(c rune) []rune {
	switch {
	case c >= 'a' && c <= 'z':
		return lowerPool
	case c >= 'A' && c <= 'Z':
		return upperPool
	case c >= '0' && c <= '9':
		return digitPool
	case c <= unicode.MaxASCII && (unicode.IsPunct(c) || unicode.IsSymbol(c)):
		return punctPool
	default:
		return alphabet
	}
}

func clone(s []rune) []rune {
	return append([]rune(nil), s...)
}

func concat(pools ...[]rune) []rune {
	var out []rune
	for _, p := range pools {
		out = append(out, p...)
	}
	return out
}
