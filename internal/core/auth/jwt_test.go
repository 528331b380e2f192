package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTer_RoundTrip(t *testing.T) {
	j := &JWTer{Secret: []byte("k"), Issuer: "console-gate"}

	tok, err := j.Issue("tab-1")
	require.NoError(t, err)

	c, err := j.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "tab-1", c.TabID)
	assert.Nil(t, c.ExpiresAt)
}

func TestJWTer_Rejects(t *testing.T) {
	j := &JWTer{Secret: []byte("k"), Issuer: "console-gate"}
	tok, err := j.Issue("tab-1")
	require.NoError(t, err)

	other := &JWTer{Secret: []byte("other"), Issuer: "console-gate"}
	_, err = other.Parse(tok)
	require.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer := &JWTer{Secret: []byte("k"), Issuer: "someone-else"}
	_, err = wrongIssuer.Parse(tok)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = j.Parse("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = j.Issue("")
	require.Error(t, err)
}

func TestJWTer_Expiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	j := &JWTer{Secret: []byte("k"), Issuer: "i", TTL: time.Hour, Now: func() time.Time { return now }}
	tok, err := j.Issue("tab-1")
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = j.Parse(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}
