package jwt

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// leeway tolerado en exp/nbf.
const leeway = 30 * time.Second

// Parse valida firma EdDSA, iss y exp/nbf. Devuelve los claims tipados.
func (i *Issuer) Parse(token string) (*Claims, error) {
	var c Claims
	tok, err := jwtv5.ParseWithClaims(token, &c, i.Keyfunc(),
		jwtv5.WithValidMethods([]string{"EdDSA"}),
		jwtv5.WithIssuer(i.Iss),
		jwtv5.WithLeeway(leeway),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenInvalidIssuer) {
			return nil, ErrInvalidIssuer
		}
		return nil, ErrInvalidToken
	}
	if !tok.Valid || c.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &c, nil
}
