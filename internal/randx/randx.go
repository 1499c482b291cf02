// Package randx defines the injectable random source used by the honeyword
// generator and the Amnesia marking logic.
//
// Production code must use Crypto. NewSeeded exists so that tests can replay
// exactly the same sequence of draws.
package randx

import (
	"crypto/rand"
	"encoding/binary"
	"math/big"
	mrand "math/rand/v2"
	"sync"
)

// Source is a uniform random source. Implementations must be safe for
// concurrent use.
type Source interface {
	// Float64 returns a uniform value in [0, 1).
	Float64() float64
	// IntN returns a uniform value in [0, n). It panics if n <= 0.
	IntN(n int) int
}

// Bernoulli returns true with probability p.
func Bernoulli(src Source, p float64) bool {
	return src.Float64() < p
}

// Choice returns a uniformly chosen element of items.
func Choice[T any](src Source, items []T) T {
	return items[src.IntN(len(items))]
}

type cryptoSource struct{}

// Crypto returns a Source backed by crypto/rand.
func Crypto() Source { return cryptoSource{} }

func (cryptoSource) Float64() float64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	// 53 random bits, the precision of a float64 mantissa.
	return float64(binary.BigEndian.Uint64(b[:])>>11) / (1 << 53)
}

func (cryptoSource) IntN(n int) int {
	if n <= 0 {
		panic("randx: IntN called with n <= 0")
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic(err)
	}
	return int(v.Int64())
}

// Seeded is a deterministic Source. Not for production use.
type Seeded struct {
	mu sync.Mutex
	r  *mrand.Rand
}

// NewSeeded returns a ChaCha8-backed Source seeded from seed.
func NewSeeded(seed uint64) *Seeded {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:], seed)
	return &Seeded{r: mrand.New(mrand.NewChaCha8(key))}
}

func (s *Seeded) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

func (s *Seeded) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.IntN(n)
}
