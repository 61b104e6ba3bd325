package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoleSet_Has(t *testing.T) {
	assert.True(t, DefaultRoles().Has(RoleUser))
	assert.False(t, DefaultRoles().Has(RoleAdmin))
	assert.True(t, RoleSet{RoleUser, RoleAdmin}.Has(RoleAdmin))
	assert.False(t, RoleSet{Role(42)}.Has(Role(42)))
	assert.False(t, RoleSet(nil).Has(RoleUser))
}

func TestRoleSet_Normalize(t *testing.T) {
	got := RoleSet{Role(7), RoleAdmin, RoleUser, RoleAdmin}.Normalize()
	assert.Equal(t, RoleSet{RoleAdmin, RoleUser}, got)
}

func TestUser_Sanitized(t *testing.T) {
	exp := time.Now()
	u := &User{
		Username:             "alice",
		Password:             "hash",
		RefreshTokenHash:     "rt",
		VerificationToken:    "vt",
		PasswordResetToken:   "pt",
		PasswordResetExpires: &exp,
		Role:                 RoleSet{RoleUser},
	}

	s := u.Sanitized()
	assert.Equal(t, "alice", s.Username)
	assert.Empty(t, s.Password)
	assert.Empty(t, s.RefreshTokenHash)
	assert.Empty(t, s.VerificationToken)
	assert.Empty(t, s.PasswordResetToken)
	assert.Nil(t, s.PasswordResetExpires)
	assert.Equal(t, "hash", u.Password)

	var nilUser *User
	assert.Nil(t, nilUser.Sanitized())
}
