package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.Contains(t, hash, "$argon2id$")
	assert.NotContains(t, hash, "s3cret!")

	ok, err := VerifyPassword("s3cret!", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPassword_Salted(t *testing.T) {
	a, err := HashPassword("same-password")
	require.NoError(t, err)
	b, err := HashPassword("same-password")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerifyPassword_BadFormat(t *testing.T) {
	_, err := VerifyPassword("x", "plaintext")
	assert.ErrorIs(t, err, ErrInvalidHash)

	_, err = VerifyPassword("x", "$bcrypt$v=19$m=1,t=1,p=1$aa$bb")
	assert.ErrorIs(t, err, ErrInvalidHash)
}

func TestVerifyPassword_RejectsOutOfRangeParams(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	parts := strings.Split(hash, "$")

	for _, params := range []string{
		"m=65536,t=3,p=0",
		"m=0,t=3,p=2",
		"m=65536,t=0,p=2",
		"m=4294967295,t=3,p=2",
		"m=65536,t=1000000,p=2",
	} {
		parts[3] = params
		ok, err := VerifyPassword("s3cret!", strings.Join(parts, "$"))
		assert.ErrorIs(t, err, ErrInvalidHash, params)
		assert.False(t, ok, params)
	}
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("newPassword", "abcdef"))
	assert.NoError(t, ValidatePassword("newPassword", "päss-wörd"))

	for _, bad := range []string{"", "abc", "abcde", "abc def", " abcdef", "abcdef\t"} {
		err := ValidatePassword("newPassword", bad)
		var ve *ValidationError
		if assert.ErrorAs(t, err, &ve, bad) {
			assert.Equal(t, "newPassword", ve.Field)
		}
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "alice", NormalizeUsername("  Alice "))
	assert.Equal(t, "alice@example.com", NormalizeEmail(" Alice@Example.COM"))
}

func TestValidateUsername(t *testing.T) {
	assert.NoError(t, ValidateUsername("komal_shop"))
	assert.NoError(t, ValidateUsername("  j.doe  "))

	cases := map[string]string{
		"ab":                              "Username must be at least 3 characters",
		"abcdefghijklmnopqrstuvwxyz12345": "Username must be at most 30 characters",
		"bad name":                        "Username can only contain letters, numbers, dots and underscores",
		"_leading":                        "Username must start with a letter or number",
	}
	for in, msg := range cases {
		err := ValidateUsername(in)
		if assert.Error(t, err, in) {
			assert.Equal(t, msg, err.Error())
		}
	}
}
