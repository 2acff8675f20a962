package security_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagargautam500/storefront/pkg/config"
	"github.com/sagargautam500/storefront/pkg/security"
)

var fastArgon = config.PasswordConfig{
	ArgonMemoryKB:    8192,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := security.HashPassword("very-secure-password1", fastArgon)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$"), hash)

	ok, err := security.VerifyPassword("very-secure-password1", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = security.VerifyPassword("bogus-password1", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	again, err := security.HashPassword("very-secure-password1", fastArgon)
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "salt must differ per hash")
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	_, err := security.HashPassword("", fastArgon)
	assert.Error(t, err)
}

func TestVerifyPasswordBadHash(t *testing.T) {
	for _, encoded := range []string{
		"not-a-hash",
		"$bcrypt$v=19$m=8,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=16$m=8,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=8,t=1,p=1$!!$a2V5",
	} {
		_, err := security.VerifyPassword("irrelevant", encoded)
		assert.ErrorIs(t, err, security.ErrInvalidHash, encoded)
	}
}

func TestValidatePassword(t *testing.T) {
	cases := map[string]bool{
		"short1":           false,
		"onlyletters":      false,
		"12345678":         false,
		"letters4ndDigits": true,
		"pässwört1":        true,
	}
	for password, ok := range cases {
		err := security.ValidatePassword(password)
		if ok {
			assert.NoError(t, err, password)
		} else {
			assert.Error(t, err, password)
		}
	}
}

func TestNeedsRehash(t *testing.T) {
	strong := fastArgon
	strong.ArgonMemoryKB = 16384
	strong.ArgonTime = 2

	hash, err := security.HashPassword("rehash-me-123", fastArgon)
	require.NoError(t, err)
	assert.False(t, security.NeedsRehash(hash, fastArgon))
	assert.True(t, security.NeedsRehash(hash, strong))
	assert.True(t, security.NeedsRehash("garbage", fastArgon))
}

func TestParamsFromConfigClamps(t *testing.T) {
	p := security.ParamsFromConfig(config.PasswordConfig{ArgonParallelism: 1000, ArgonKeyLen: 4})
	assert.Equal(t, uint32(8), p.Memory)
	assert.Equal(t, uint32(1), p.Time)
	assert.Equal(t, uint8(255), p.Parallelism)
	assert.Equal(t, uint32(8), p.SaltLen)
	assert.Equal(t, uint32(16), p.KeyLen)
}
