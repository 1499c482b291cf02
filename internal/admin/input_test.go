package admin

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withTerminal(t *testing.T, answers ...string) {
	t.Helper()
	origRead, origTerm := readPassword, stdinIsTerminal
	t.Cleanup(func() { readPassword, stdinIsTerminal = origRead, origTerm })

	stdinIsTerminal = func() bool { return true }
	readPassword = func(int) ([]byte, error) {
		if len(answers) == 0 {
			return nil, errors.New("no input")
		}
		a := answers[0]
		answers = answers[1:]
		return []byte(a), nil
	}
}

func TestGetPassword_Terminal(t *testing.T) {
	withTerminal(t, "s3cret")
	var out bytes.Buffer

	pw, err := getPassword(bufio.NewReader(strings.NewReader("")), &out, "Enter password: ")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", pw)
	assert.Equal(t, "Enter password: \n", out.String())
}

func TestGetPassword_Piped(t *testing.T) {
	orig := stdinIsTerminal
	t.Cleanup(func() { stdinIsTerminal = orig })
	stdinIsTerminal = func() bool { return false }

	in := bufio.NewReader(strings.NewReader("first\r\nlast"))
	var out bytes.Buffer

	pw, err := getPassword(in, &out, "> ")
	require.NoError(t, err)
	assert.Equal(t, "first", pw)

	pw, err = getPassword(in, &out, "> ")
	require.NoError(t, err)
	assert.Equal(t, "last", pw, "partial line at EOF")

	_, err = getPassword(in, &out, "> ")
	assert.Error(t, err)
}

func TestGetNewPassword(t *testing.T) {
	withTerminal(t, "abc", "abc")
	pw, err := getNewPassword(bufio.NewReader(strings.NewReader("")), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "abc", pw)

	withTerminal(t, "abc", "abd")
	_, err = getNewPassword(bufio.NewReader(strings.NewReader("")), &bytes.Buffer{})
	assert.ErrorContains(t, err, "do not match")

	withTerminal(t, "")
	_, err = getNewPassword(bufio.NewReader(strings.NewReader("")), &bytes.Buffer{})
	assert.ErrorContains(t, err, "empty")
}
