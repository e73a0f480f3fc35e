package jwt

import (
	"encoding/json"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()
	ks, err := NewKeySetFromSeed("0123456789abcdef0123456789abcdef", "k1")
	require.NoError(t, err)
	return NewIssuer("http://cg.test", ks, time.Minute)
}

func TestKeySetFromSeed_Deterministic(t *testing.T) {
	a, err := NewKeySetFromSeed("same-secret", "k")
	require.NoError(t, err)
	b, err := NewKeySetFromSeed("same-secret", "k")
	require.NoError(t, err)
	c, err := NewKeySetFromSeed("other-secret", "k")
	require.NoError(t, err)

	assert.Equal(t, a.Pub, b.Pub)
	assert.NotEqual(t, a.Pub, c.Pub)

	_, err = NewKeySetFromSeed("", "k")
	assert.Error(t, err)
}

func TestIssueConsoleAccess_RoundTrip(t *testing.T) {
	iss := newTestIssuer(t)
	tok, exp, err := iss.IssueConsoleAccess(ConsoleGrant{
		Subject:  "u1",
		Target:   "tenant",
		Scope:    "tenant/5",
		TenantID: "5",
		Perms:    []string{"rbac.roles.read"},
	})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), exp, 2*time.Second)

	c, err := iss.Parse(tok)
	require.NoError(t, err)
	assert.True(t, c.IsConsoleAccess())
	assert.Equal(t, "u1", c.Subject)
	assert.Equal(t, "tenant/5", c.Scope)
	assert.Equal(t, "5", c.TenantID)
	assert.Equal(t, jwtv5.ClaimStrings{"console:tenant"}, c.Audience)
	assert.Equal(t, []string{"rbac.roles.read"}, c.Perms)
}

func TestParse_Rejects(t *testing.T) {
	iss := newTestIssuer(t)

	sess, err := iss.IssueSession("u1", time.Minute)
	require.NoError(t, err)

	// otro issuer, otra clave
	other, err := NewKeySetFromSeed("another-secret-another-secret-xx", "k1")
	require.NoError(t, err)
	_, err = NewIssuer("http://cg.test", other, time.Minute).Parse(sess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// iss distinto
	_, err = NewIssuer("http://elsewhere", iss.Keys, time.Minute).Parse(sess)
	assert.ErrorIs(t, err, ErrInvalidIssuer)

	// expirado (fuera del leeway)
	iss.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, err := iss.IssueSession("u1", time.Minute)
	require.NoError(t, err)
	iss.now = time.Now
	_, err = iss.Parse(old)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = iss.Parse("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWKSJSON(t *testing.T) {
	iss := newTestIssuer(t)
	var doc struct {
		Keys []map[string]string `json:"keys"`
	}
	require.NoError(t, json.Unmarshal(iss.JWKSJSON(), &doc))
	require.Len(t, doc.Keys, 1)
	assert.Equal(t, "OKP", doc.Keys[0]["kty"])
	assert.Equal(t, "k1", doc.Keys[0]["kid"])
}
