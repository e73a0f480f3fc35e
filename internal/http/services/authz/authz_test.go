package authz

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/consolegate/internal/cache"
	"github.com/dropDatabas3/consolegate/internal/domain/repository"
	"github.com/dropDatabas3/consolegate/internal/http/services/rbac"
	"github.com/dropDatabas3/consolegate/internal/jwt"
	"github.com/dropDatabas3/consolegate/internal/store/adapters/memory"
)

type fixture struct {
	conn      *memory.Conn
	engine    *rbac.Engine
	issuer    *Issuer
	exchanger *Exchanger
	signer    *jwt.Issuer
	clock     *fakeClock
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := memory.New()
	engine := rbac.NewEngine(conn.RBAC(), cache.NewMemory("test"), time.Minute)
	ks, err := jwt.NewKeySetFromSeed("0123456789abcdef0123456789abcdef", "test")
	require.NoError(t, err)
	signer := jwt.NewIssuer("http://issuer.test", ks, 10*time.Minute)
	clock := &fakeClock{t: time.Now()}

	return &fixture{
		conn:   conn,
		engine: engine,
		signer: signer,
		clock:  clock,
		issuer: NewIssuer(IssuerDeps{
			Codes: conn.Codes(), Roles: engine, Members: conn.Memberships(),
			TTL: 30 * time.Second, Now: clock.Now,
		}),
		exchanger: NewExchanger(ExchangerDeps{
			Codes: conn.Codes(), Roles: engine, Members: conn.Memberships(),
			Minter: signer, Now: clock.Now,
		}),
	}
}

func (f *fixture) member(t *testing.T, tenantID, principal string) {
	t.Helper()
	_, err := f.conn.Memberships().Add(context.Background(), tenantID, principal)
	require.NoError(t, err)
}

func TestMint_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.issuer.Mint(ctx, MintRequest{PrincipalID: "u1", Target: "tenant"})
	assert.ErrorIs(t, err, repository.ErrInvalidInput)

	_, err = f.issuer.Mint(ctx, MintRequest{PrincipalID: "u1", Target: "admin", TenantID: "5"})
	assert.ErrorIs(t, err, repository.ErrInvalidInput)

	_, err = f.issuer.Mint(ctx, MintRequest{PrincipalID: "u1", Target: "billing"})
	assert.ErrorIs(t, err, repository.ErrInvalidInput)

	_, err = f.issuer.Mint(ctx, MintRequest{Target: "admin"})
	assert.ErrorIs(t, err, repository.ErrInvalidInput)

	// un tenant_id malformado es de validación, no de permisos
	_, err = f.issuer.Mint(ctx, MintRequest{PrincipalID: "u1", Target: "tenant", TenantID: "a/b"})
	assert.ErrorIs(t, err, repository.ErrInvalidInput)
	assert.NotErrorIs(t, err, repository.ErrPermissionDenied)
}

func TestMint_PermissionDenied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.issuer.Mint(ctx, MintRequest{PrincipalID: "u1", Target: "tenant", TenantID: "5"})
	assert.ErrorIs(t, err, repository.ErrPermissionDenied)

	// un tenant ajeno no habilita el 5
	f.member(t, "6", "u1")
	_, err = f.issuer.Mint(ctx, MintRequest{PrincipalID: "u1", Target: "tenant", TenantID: "5"})
	assert.ErrorIs(t, err, repository.ErrPermissionDenied)

	// rol de tenant no habilita admin
	_, err = f.issuer.Mint(ctx, MintRequest{PrincipalID: "u1", Target: "admin"})
	assert.ErrorIs(t, err, repository.ErrPermissionDenied)
}

func TestMint_RoleWithinTenantEntitles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	app := repository.AppScope("5", "a1")
	role, err := f.engine.CreateRole(ctx, app, repository.RoleInput{Code: "app-viewer", Name: "App viewer"})
	require.NoError(t, err)
	_, err = f.engine.AssignRoles(ctx, "u1", app, []string{role.ID})
	require.NoError(t, err)

	res, err := f.issuer.Mint(ctx, MintRequest{PrincipalID: "u1", Target: "tenant", TenantID: "5"})
	require.NoError(t, err)
	assert.Equal(t, repository.TargetTenant, res.Target)
	assert.GreaterOrEqual(t, len(res.Code), 22)
}

func TestEndToEnd_TenantMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.member(t, "5", "u1")

	res, err := f.issuer.Mint(ctx, MintRequest{PrincipalID: "u1", Target: "tenant", TenantID: "5"})
	require.NoError(t, err)

	out, err := f.exchanger.Exchange(ctx, res.Code)
	require.NoError(t, err)
	assert.Equal(t, repository.TenantScope("5"), out.Scope)
	assert.Equal(t, "u1", out.PrincipalID)

	claims, err := f.signer.Parse(out.AccessToken)
	require.NoError(t, err)
	assert.True(t, claims.IsConsoleAccess())
	assert.Equal(t, "tenant/5", claims.Scope)
	assert.Equal(t, "5", claims.TenantID)
	assert.Equal(t, "u1", claims.Subject)

	_, err = f.exchanger.Exchange(ctx, res.Code)
	assert.ErrorIs(t, err, repository.ErrInvalidCode)
}

func TestEndToEnd_AdminCarriesPermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.engine.EnsureRole(ctx, "root", repository.PlatformScope(), repository.PlatformAdminRole))

	res, err := f.issuer.Mint(ctx, MintRequest{PrincipalID: "root", Target: "admin"})
	require.NoError(t, err)
	out, err := f.exchanger.Exchange(ctx, res.Code)
	require.NoError(t, err)
	assert.Equal(t, repository.PlatformScope(), out.Scope)
	assert.Contains(t, out.Permissions, repository.PermRolesWrite)
}

func TestExchange_ConcurrentSingleWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.member(t, "5", "u1")
	res, err := f.issuer.Mint(ctx, MintRequest{PrincipalID: "u1", Target: "tenant", TenantID: "5"})
	require.NoError(t, err)

	const n = 50
	var wins, invalid atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.exchanger.Exchange(ctx, res.Code)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, repository.ErrInvalidCode):
				invalid.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(n-1), invalid.Load())
}

func TestExchange_AfterExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.member(t, "5", "u1")
	res, err := f.issuer.Mint(ctx, MintRequest{PrincipalID: "u1", Target: "tenant", TenantID: "5"})
	require.NoError(t, err)

	f.clock.Advance(30*time.Second + time.Millisecond)
	_, err = f.exchanger.Exchange(ctx, res.Code)
	assert.ErrorIs(t, err, repository.ErrInvalidCode)
}

func TestExchange_UnknownAndEmptyCode(t *testing.T) {
	f := newFixture(t)
	_, err := f.exchanger.Exchange(context.Background(), "")
	assert.ErrorIs(t, err, repository.ErrInvalidCode)
	_, err = f.exchanger.Exchange(context.Background(), "not-a-code")
	assert.ErrorIs(t, err, repository.ErrInvalidCode)
}

func TestExchange_RevokedEntitlement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.member(t, "5", "u1")
	res, err := f.issuer.Mint(ctx, MintRequest{PrincipalID: "u1", Target: "tenant", TenantID: "5"})
	require.NoError(t, err)

	require.NoError(t, f.conn.Memberships().Remove(ctx, "5", "u1"))
	_, err = f.exchanger.Exchange(ctx, res.Code)
	assert.ErrorIs(t, err, repository.ErrInvalidCode)

	// el código quedó consumido aunque vuelva la membresía
	f.member(t, "5", "u1")
	_, err = f.exchanger.Exchange(ctx, res.Code)
	assert.ErrorIs(t, err, repository.ErrInvalidCode)
}

type conflictingCodes struct {
	repository.CodeRepository
	conflicts int
	puts      int
}

func (c *conflictingCodes) Put(ctx context.Context, h string, b repository.CodeBundle, ttl time.Duration) error {
	c.puts++
	if c.puts <= c.conflicts {
		return repository.ErrConflict
	}
	return c.CodeRepository.Put(ctx, h, b, ttl)
}

func TestMint_RegeneratesOnceOnConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.member(t, "5", "u1")

	codes := &conflictingCodes{CodeRepository: f.conn.Codes(), conflicts: 1}
	iss := NewIssuer(IssuerDeps{Codes: codes, Roles: f.engine, Members: f.conn.Memberships()})
	_, err := iss.Mint(ctx, MintRequest{PrincipalID: "u1", Target: "tenant", TenantID: "5"})
	require.NoError(t, err)
	assert.Equal(t, 2, codes.puts)

	codes = &conflictingCodes{CodeRepository: f.conn.Codes(), conflicts: 2}
	iss = NewIssuer(IssuerDeps{Codes: codes, Roles: f.engine, Members: f.conn.Memberships()})
	_, err = iss.Mint(ctx, MintRequest{PrincipalID: "u1", Target: "tenant", TenantID: "5"})
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestTargets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.member(t, "7", "u1")
	role, err := f.engine.CreateRole(ctx, repository.TenantScope("5"), repository.RoleInput{Code: "r", Name: "r"})
	require.NoError(t, err)
	_, err = f.engine.AssignRoles(ctx, "u1", repository.TenantScope("5"), []string{role.ID})
	require.NoError(t, err)

	got, err := f.issuer.Targets(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, got.Admin)
	assert.Equal(t, []string{"5", "7"}, got.Tenants)
}

func TestSweeper_SweepOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.member(t, "5", "u1")
	_, err := f.issuer.Mint(ctx, MintRequest{PrincipalID: "u1", Target: "tenant", TenantID: "5"})
	require.NoError(t, err)

	sw := &Sweeper{Codes: f.conn.Codes(), Now: f.clock.Now}
	n, err := sw.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.clock.Advance(time.Minute)
	n, err = sw.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- (&Sweeper{Codes: f.conn.Codes(), Interval: 5 * time.Millisecond}).Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
