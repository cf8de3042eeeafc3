package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	tk := NewTokens("test-secret", 5)
	raw, err := tk.Issue("user-42")
	require.NoError(t, err)

	sub, err := tk.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, "user-42", sub)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	raw, err := NewTokens("secret-a", 5).Issue("user-42")
	require.NoError(t, err)

	_, err = NewTokens("secret-b", 5).Verify(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpired(t *testing.T) {
	tk := NewTokens("test-secret", 5)
	tk.expiry = -1 // already expired at issue time
	raw, err := tk.Issue("user-42")
	require.NoError(t, err)

	_, err = tk.Verify(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	_, err := NewTokens("test-secret", 5).Verify("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	require.NotEqual(t, "hunter2", hash)
	require.True(t, VerifyPassword("hunter2", hash))
	require.False(t, VerifyPassword("hunter3", hash))
}
