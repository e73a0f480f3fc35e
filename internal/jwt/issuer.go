package jwt

import (
	"errors"
	"time"

	"github.com/google/uuid"
	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Issuer firma tokens con la clave del KeySet.
type Issuer struct {
	Iss       string
	Keys      *KeySet
	AccessTTL time.Duration

	now func() time.Time
}

func NewIssuer(iss string, ks *KeySet, accessTTL time.Duration) *Issuer {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	return &Issuer{Iss: iss, Keys: ks, AccessTTL: accessTTL, now: time.Now}
}

// ConsoleGrant describe el access de consola a emitir.
type ConsoleGrant struct {
	Subject  string
	Target   string // admin | tenant
	Scope    string // forma canónica: platform | tenant/{id} | tenant/{id}/app/{id}
	TenantID string
	Perms    []string
}

// IssueConsoleAccess emite el access token que entrega el exchange.
func (i *Issuer) IssueConsoleAccess(g ConsoleGrant) (string, time.Time, error) {
	if g.Subject == "" || g.Target == "" {
		return "", time.Time{}, errors.New("jwt: subject and target required")
	}
	now := i.now().UTC()
	exp := now.Add(i.AccessTTL)
	perms := g.Perms
	if perms == nil {
		perms = []string{}
	}
	c := &Claims{
		Type:     TypeConsoleAccess,
		Scope:    g.Scope,
		TenantID: g.TenantID,
		Perms:    perms,
		RegisteredClaims: jwtv5.RegisteredClaims{
			Issuer:    i.Iss,
			Subject:   g.Subject,
			Audience:  jwtv5.ClaimStrings{AudiencePrefix + g.Target},
			IssuedAt:  jwtv5.NewNumericDate(now),
			NotBefore: jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := i.sign(c)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// IssueSession emite un token de sesión del usuario final. En producción lo
// emite el IdP aguas arriba con la misma clave; acá lo usan consolectl y los tests.
func (i *Issuer) IssueSession(sub string, ttl time.Duration) (string, error) {
	if sub == "" {
		return "", errors.New("jwt: subject required")
	}
	now := i.now().UTC()
	return i.sign(&Claims{
		Type: TypeSession,
		RegisteredClaims: jwtv5.RegisteredClaims{
			Issuer:    i.Iss,
			Subject:   sub,
			IssuedAt:  jwtv5.NewNumericDate(now),
			NotBefore: jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(ttl)),
		},
	})
}

func (i *Issuer) sign(c *Claims) (string, error) {
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodEdDSA, c)
	tk.Header["kid"] = i.Keys.KID
	tk.Header["typ"] = "JWT"
	return tk.SignedString(i.Keys.Priv)
}

// Keyfunc elige la pública por kid; sólo hay una clave activa.
func (i *Issuer) Keyfunc() jwtv5.Keyfunc {
	return func(t *jwtv5.Token) (any, error) {
		if kid, _ := t.Header["kid"].(string); kid != "" && kid != i.Keys.KID {
			return nil, ErrUnknownKID
		}
		return i.Keys.Pub, nil
	}
}

func (i *Issuer) JWKSJSON() []byte { return i.Keys.JWKSJSON() }

var (
	ErrInvalidIssuer = errors.New("invalid_issuer")
	ErrUnknownKID    = errors.New("unknown_kid")
	ErrInvalidToken  = errors.New("invalid_jwt")
)
