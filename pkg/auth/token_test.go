package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenGenerator_GenerateToken(t *testing.T) {
	tg := NewTokenGenerator()

	token, hash, err := tg.GenerateToken()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(token, TokenPrefix))
	assert.Len(t, hash, 64)
	assert.Equal(t, hash, tg.HashToken(token))
	assert.NoError(t, tg.ValidateTokenFormat(token))

	other, _, err := tg.GenerateToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestTokenGenerator_ValidateTokenFormat(t *testing.T) {
	tg := NewTokenGenerator()

	for _, bad := range []string{"", "tok_abc", "sk_", "sk_!!!", "sk_YWJj"} {
		assert.Error(t, tg.ValidateTokenFormat(bad), bad)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)

	ok, err := CheckPassword(hash, "correct horse")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckPassword(hash, "wrong horse")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = HashPassword("short")
	assert.Error(t, err)

	_, err = CheckPassword("not-a-bcrypt-hash", "x")
	assert.Error(t, err)
}

func TestPrincipal(t *testing.T) {
	p := NewPrincipal(&User{ID: 3, IsActive: true}, 9, []string{"user.view", "menu.edit"}, false)

	assert.True(t, p.HasPermission("user.view"))
	assert.False(t, p.HasPermission("user.delete"))
	assert.False(t, p.HasBypassRole())
	assert.True(t, p.IsActive())
	assert.Equal(t, int64(3), p.UserID())
	assert.Equal(t, []string{"menu.edit", "user.view"}, p.PermissionNames())

	bypass := NewPrincipal(&User{ID: 1}, 1, nil, true)
	assert.True(t, bypass.HasBypassRole())
	assert.False(t, bypass.HasPermission("user.view"), "bypass is not membership")
	assert.False(t, bypass.IsActive())

	var none *Principal
	assert.False(t, none.HasPermission("x"))
	assert.False(t, none.HasBypassRole())
	assert.Zero(t, none.UserID())
}
