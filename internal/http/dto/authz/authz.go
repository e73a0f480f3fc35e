// Package authz contiene los DTOs del handoff entre consolas.
package authz

import "github.com/dropDatabas3/consolegate/internal/domain/repository"

// MintRequest body de POST /authz/mint. La regla tenant_id <-> target la
// aplica el Issuer.
type MintRequest struct {
	TargetContext string `json:"target_context" validate:"required,oneof=admin tenant"`
	TenantID      string `json:"tenant_id,omitempty" validate:"omitempty,max=128"`
}

type MintResponse struct {
	Code          string `json:"code"`
	TargetContext string `json:"target_context"`
	ExpiresIn     int    `json:"expires_in"`
}

// ExchangeRequest body de POST /authz/exchange. Sin validate: un code vacío
// se reporta como INVALID_CODE igual que cualquier otro.
type ExchangeRequest struct {
	Code string `json:"code"`
}

type ExchangeResponse struct {
	AccessToken string           `json:"access_token"`
	TokenType   string           `json:"token_type"`
	ExpiresIn   int              `json:"expires_in"`
	Scope       repository.Scope `json:"scope"`
}

type TargetsResponse struct {
	Admin   bool     `json:"admin"`
	Tenants []string `json:"tenants"`
}
