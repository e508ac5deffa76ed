package auth

import (
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthenticator(t *testing.T) (*Authenticator, string) {
	hash, err := HashPassword("correct-horse-battery-staple")
	require.NoError(t, err)
	secret, err := GenerateTOTPSecret("admin@hunter.local")
	require.NoError(t, err)
	a, err := New(hash, secret, "test-signing-key")
	require.NoError(t, err)
	return a, secret
}

func TestLoginSucceedsWithValidCredentials(t *testing.T) {
	a, secret := newTestAuthenticator(t)
	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	token, err := a.Login("correct-horse-battery-staple", code, time.Now())
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := a.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Subject)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	a, secret := newTestAuthenticator(t)
	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	_, err = a.Login("wrong-password", code, time.Now())
	require.Error(t, err)
}

func TestLoginRejectsWrongTOTPCode(t *testing.T) {
	a, _ := newTestAuthenticator(t)
	_, err := a.Login("correct-horse-battery-staple", "000000", time.Now())
	require.Error(t, err)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	a, _ := newTestAuthenticator(t)
	_, err := a.Verify("not-a-real-token")
	require.Error(t, err)
}
