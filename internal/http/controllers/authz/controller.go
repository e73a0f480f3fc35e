// Package authz expone /authz/mint, /authz/exchange y /authz/targets.
package authz

import (
	"context"
	"net/http"
	"strings"
	"time"

	dto "github.com/dropDatabas3/consolegate/internal/http/dto/authz"
	httperrors "github.com/dropDatabas3/consolegate/internal/http/errors"
	"github.com/dropDatabas3/consolegate/internal/http/helpers"
	mw "github.com/dropDatabas3/consolegate/internal/http/middlewares"
	svc "github.com/dropDatabas3/consolegate/internal/http/services/authz"
	"github.com/dropDatabas3/consolegate/internal/observability/logger"
)

type Minter interface {
	Mint(ctx context.Context, req svc.MintRequest) (*svc.MintResult, error)
	Targets(ctx context.Context, principalID string) (*svc.Targets, error)
}

type Exchanger interface {
	Exchange(ctx context.Context, code string) (*svc.ExchangeResult, error)
}

// CookieConfig controla la cookie access_token_<target> del exchange.
type CookieConfig struct {
	Enabled  bool
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// ParseSameSite traduce lax|strict|none; default lax.
func ParseSameSite(v string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

type Controller struct {
	minter    Minter
	exchanger Exchanger
	cookies   CookieConfig
	now       func() time.Time
}

func NewController(m Minter, e Exchanger, cookies CookieConfig) *Controller {
	return &Controller{minter: m, exchanger: e, cookies: cookies, now: time.Now}
}

// Mint maneja POST /authz/mint (autenticado con la sesión actual).
func (c *Controller) Mint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("AuthzController.Mint"))

	var req dto.MintRequest
	if err := helpers.DecodeAndValidate(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	res, err := c.minter.Mint(ctx, svc.MintRequest{
		PrincipalID: mw.GetPrincipalID(ctx),
		Target:      req.TargetContext,
		TenantID:    req.TenantID,
	})
	if err != nil {
		log.Debug("mint rejected", logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.MintResponse{
		Code:          res.Code,
		TargetContext: string(res.Target),
		ExpiresIn:     secondsUntil(c.now(), res.ExpiresAt),
	})
}

// Exchange maneja POST /authz/exchange. Público: el código es la credencial.
func (c *Controller) Exchange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.ExchangeRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	res, err := c.exchanger.Exchange(ctx, req.Code)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}

	expiresIn := secondsUntil(c.now(), res.ExpiresAt)
	if c.cookies.Enabled {
		http.SetCookie(w, &http.Cookie{
			Name:     "access_token_" + string(res.Target),
			Value:    res.AccessToken,
			Path:     "/",
			Domain:   c.cookies.Domain,
			MaxAge:   expiresIn,
			HttpOnly: true,
			Secure:   c.cookies.Secure,
			SameSite: c.cookies.SameSite,
		})
	}

	helpers.WriteJSON(w, http.StatusOK, dto.ExchangeResponse{
		AccessToken: res.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   expiresIn,
		Scope:       res.Scope,
	})
}

// Targets maneja GET /authz/targets.
func (c *Controller) Targets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	t, err := c.minter.Targets(ctx, mw.GetPrincipalID(ctx))
	if err != nil {
		logger.From(ctx).Error("targets failed", logger.Layer("controller"), logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.TargetsResponse{Admin: t.Admin, Tenants: t.Tenants})
}

func secondsUntil(now, t time.Time) int {
	s := int(t.Sub(now).Round(time.Second).Seconds())
	if s < 0 {
		return 0
	}
	return s
}
