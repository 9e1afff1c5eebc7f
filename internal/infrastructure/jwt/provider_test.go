package jwtinfra

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return NewProviderFromKeys(key, &key.PublicKey, time.Hour, "https://id.test")
}

// verifyBackchannel parses a deletion token the way a relying party would.
func verifyBackchannel(t *testing.T, p *Provider, tokenStr, audience string) (*BackchannelClaims, error) {
	t.Helper()
	token, err := jwt.ParseWithClaims(tokenStr, &BackchannelClaims{}, p.keyFunc,
		jwt.WithAudience(audience), jwt.WithIssuer(p.issuer))
	if err != nil {
		return nil, err
	}
	claims, _ := token.Claims.(*BackchannelClaims)
	require.NotNil(t, claims)
	return claims, nil
}

func TestSignVerify_RoundTrip(t *testing.T) {
	p := newTestProvider(t)
	tok, err := p.Sign("acc-1", "admin", "sess-1")
	require.NoError(t, err)

	claims, err := p.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.AccountID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "sess-1", claims.SessionID)
}

func TestVerify_RejectsForeignKey(t *testing.T) {
	tok, err := newTestProvider(t).Sign("acc-1", "user", "sess-1")
	require.NoError(t, err)
	_, err = newTestProvider(t).Verify(tok)
	assert.Error(t, err)
}

func TestSignBackchannel_Claims(t *testing.T) {
	p := newTestProvider(t)
	tok, err := p.SignBackchannel("acc-1", "client-a", 180*time.Second)
	require.NoError(t, err)

	claims, err := verifyBackchannel(t, p, tok, "client-a")
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.Subject)
	assert.NotEmpty(t, claims.ID)
	assert.Contains(t, claims.Events, DeleteEvent)
	assert.WithinDuration(t, claims.IssuedAt.Add(180*time.Second), claims.ExpiresAt.Time, time.Second)

	_, err = verifyBackchannel(t, p, tok, "client-b")
	assert.Error(t, err)
}

func TestSignBackchannel_UniqueIDs(t *testing.T) {
	p := newTestProvider(t)
	a, err := p.SignBackchannel("acc-1", "client-a", time.Minute)
	require.NoError(t, err)
	b, err := p.SignBackchannel("acc-1", "client-a", time.Minute)
	require.NoError(t, err)
	ca, _ := verifyBackchannel(t, p, a, "client-a")
	cb, _ := verifyBackchannel(t, p, b, "client-a")
	assert.NotEqual(t, ca.ID, cb.ID)
}
