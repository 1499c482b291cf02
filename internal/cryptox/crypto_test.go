package cryptox

import (
	"strings"
	"testing"

	"github.com/dmitrijs2005/honeykeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// cheap parameters; tests hash a lot
var testParams = Argon2Params{Time: 1, Memory: 64, Threads: 1, KeyLen: 32, SaltLen: 16}

func TestArgon2Hasher_HashAndVerify(t *testing.T) {
	h := NewArgon2Hasher(testParams)

	enc, err := h.Hash("Secret123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(enc, "$argon2id$v=19$m=64,t=1,p=1$"))

	ok, err := h.Verify(enc, "Secret123")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify(enc, "secret123")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArgon2Hasher_SaltsDiffer(t *testing.T) {
	h := NewArgon2Hasher(testParams)
	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestBcryptHasher_HashAndVerify(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	enc, err := h.Hash("Passw0rd!")
	require.NoError(t, err)

	ok, err := h.Verify(enc, "Passw0rd!")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify(enc, "Passw0rd?")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_CrossAlgorithm(t *testing.T) {
	argonEnc, err := NewArgon2Hasher(testParams).Hash("pw")
	require.NoError(t, err)
	bcryptEnc, err := NewBcryptHasher(bcrypt.MinCost).Hash("pw")
	require.NoError(t, err)

	// a bcrypt-configured hasher still checks argon2 entries and vice versa
	ok, err := NewBcryptHasher(bcrypt.MinCost).Verify(argonEnc, "pw")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = NewArgon2Hasher(testParams).Verify(bcryptEnc, "pw")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerify_UnusableAndMalformed(t *testing.T) {
	ok, err := Verify(UnusablePassword, "")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = Verify("", "anything")
	require.NoError(t, err)
	assert.False(t, ok)

	for _, enc := range []string{
		"plain",
		"$argon2id$v=19$m=64,t=1,p=1$onlysalt",
		"$argon2id$v=18$m=64,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=64,t=1,p=1$!!!$a2V5",
		"$argon2id$v=19$m=64,t=1,p=1$c2FsdA$",
		"$2b$04$short",
		"$argon2id$v=19$m=64,t=1,p=0$c2FsdA$a2V5",
		"$argon2id$v=19$m=64,t=0,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=0,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=4294967295,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=64,t=100000,p=1$c2FsdA$a2V5",
	} {
		_, err := Verify(enc, "pw")
		assert.ErrorIs(t, err, ErrMalformedHash, enc)
	}
}

func TestNewHasher(t *testing.T) {
	h, err := NewHasher("", 10)
	require.NoError(t, err)
	assert.IsType(t, &Argon2Hasher{}, h)

	h, err = NewHasher("bcrypt", 10)
	require.NoError(t, err)
	assert.IsType(t, &BcryptHasher{}, h)

	_, err = NewHasher("md5", 10)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
}
