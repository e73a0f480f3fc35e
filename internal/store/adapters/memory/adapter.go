// Package memory implementa el adapter in-process del store.
//
// Mismas semánticas que postgres: cada operación compuesta corre bajo un
// único lock, así ningún lector observa un estado intermedio. Se siembra
// con el catálogo rbac y el rol platform_admin al conectar.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dropDatabas3/consolegate/internal/domain/repository"
	"github.com/dropDatabas3/consolegate/internal/store"
)

func init() {
	store.RegisterAdapter(&memoryAdapter{})
}

type memoryAdapter struct{}

func (a *memoryAdapter) Name() string { return "memory" }

func (a *memoryAdapter) Connect(_ context.Context, _ store.AdapterConfig) (store.AdapterConnection, error) {
	return New(), nil
}

// Conn es una conexión en memoria. El estado vive mientras viva Conn.
type Conn struct {
	st *state

	codes   *codeRepo
	rbac    *rbacRepo
	members *membershipRepo
}

// New crea una conexión sembrada.
func New() *Conn {
	st := newState(time.Now)
	st.seed()
	return &Conn{
		st:      st,
		codes:   &codeRepo{st: st},
		rbac:    &rbacRepo{st: st},
		members: &membershipRepo{st: st},
	}
}

func (c *Conn) Name() string               { return "memory" }
func (c *Conn) Ping(context.Context) error { return nil }
func (c *Conn) Close() error               { return nil }

func (c *Conn) Codes() repository.CodeRepository             { return c.codes }
func (c *Conn) RBAC() repository.RBACRepository              { return c.rbac }
func (c *Conn) Memberships() repository.MembershipRepository { return c.members }

// state agrupa todas las tablas bajo un mismo mutex.
type state struct {
	mu  sync.Mutex
	now func() time.Time

	codes map[string]*codeRow

	roles       map[string]*repository.Role
	perms       map[string]*repository.Permission
	rolePerms   map[string]map[string]struct{} // role_id -> permission_id
	assignments map[string]map[string]time.Time // role_id -> principal_id -> assigned_at

	members map[string]map[string]time.Time // tenant_id -> principal_id -> created_at
}

func newState(now func() time.Time) *state {
	return &state{
		now:         now,
		codes:       map[string]*codeRow{},
		roles:       map[string]*repository.Role{},
		perms:       map[string]*repository.Permission{},
		rolePerms:   map[string]map[string]struct{}{},
		assignments: map[string]map[string]time.Time{},
		members:     map[string]map[string]time.Time{},
	}
}

func (s *state) seed() {
	platform := repository.PlatformScope()
	role := s.insertRole(platform, repository.RoleInput{
		Code:        repository.PlatformAdminRole,
		Name:        "Platform administrator",
		Description: "Full access to every console",
	}, true)
	links := map[string]struct{}{}
	for _, in := range repository.SeedPermissions {
		p := s.insertPermission(platform, in)
		links[p.ID] = struct{}{}
	}
	s.rolePerms[role.ID] = links
}
