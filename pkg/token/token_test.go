package token

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withSecret(t *testing.T) {
	t.Helper()
	require.NoError(t, SetSecretKey([]byte(strings.Repeat("k", MinSecretLength))))
}

func withClock(t *testing.T, now time.Time) {
	t.Helper()
	prev := nowFunc
	nowFunc = func() time.Time { return now }
	t.Cleanup(func() { nowFunc = prev })
}

func TestIssueAndValidate(t *testing.T) {
	withSecret(t)

	tok, err := IssueSessionToken("user-42", time.Hour)
	require.NoError(t, err)

	payload, err := ValidateSessionToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-42", payload.UserID)
}

func TestValidateRejectsTampering(t *testing.T) {
	withSecret(t)
	tok, err := IssueSessionToken("user-42", time.Hour)
	require.NoError(t, err)

	encodedPayload, sig, _ := strings.Cut(tok, ".")
	forged, err := IssueSessionToken("someone-else", time.Hour)
	require.NoError(t, err)
	forgedPayload, _, _ := strings.Cut(forged, ".")

	cases := []string{
		"",
		"no-dot",
		encodedPayload + ".",
		forgedPayload + "." + sig,
		encodedPayload + "." + sig + "x",
		"!!!." + sig,
	}
	for _, c := range cases {
		_, err := ValidateSessionToken(c)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q", c)
	}
}

func TestValidateRejectsOtherKey(t *testing.T) {
	withSecret(t)
	tok, err := IssueSessionToken("user-42", time.Hour)
	require.NoError(t, err)

	require.NoError(t, GenerateSecretKey())
	_, err = ValidateSessionToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsExpired(t *testing.T) {
	withSecret(t)
	issuedAt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	withClock(t, issuedAt)

	tok, err := IssueSessionToken("user-42", time.Minute)
	require.NoError(t, err)

	nowFunc = func() time.Time { return issuedAt.Add(2 * time.Minute) }
	_, err = ValidateSessionToken(tok)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestSetSecretKeyRejectsWeakKey(t *testing.T) {
	assert.ErrorIs(t, SetSecretKey([]byte("short")), ErrWeakSecret)
}

func TestIssueRequiresUser(t *testing.T) {
	withSecret(t)
	_, err := IssueSessionToken("", time.Hour)
	assert.Error(t, err)
}
