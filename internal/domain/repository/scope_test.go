package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScope_RoundTrip(t *testing.T) {
	for _, sc := range []Scope{PlatformScope(), TenantScope("5"), AppScope("5", "billing")} {
		got, err := ParseScope(sc.String())
		require.NoError(t, err, sc.String())
		assert.Equal(t, sc, got)
	}
}

func TestParseScope_Rejects(t *testing.T) {
	for _, raw := range []string{"", "tenant", "tenant/", "tenant/5/app", "app/5", "platform/1", "tenant/5/apps/1"} {
		_, err := ParseScope(raw)
		assert.True(t, errors.Is(err, ErrInvalidInput), "raw=%q err=%v", raw, err)
	}
}

func TestScopeCovers(t *testing.T) {
	p, t5, t6 := PlatformScope(), TenantScope("5"), TenantScope("6")
	a59, a51, a69 := AppScope("5", "9"), AppScope("5", "1"), AppScope("6", "9")

	cases := []struct {
		role, req Scope
		want      bool
	}{
		{p, p, true}, {p, t5, true}, {p, a59, true},
		{t5, t5, true}, {t5, a59, true}, {t5, p, false}, {t5, t6, false}, {t5, a69, false},
		{a59, a59, true}, {a59, a51, false}, {a59, t5, false}, {a59, p, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.role.Covers(c.req), "%s covers %s", c.role, c.req)
	}
}

func TestCodeBundleValidate(t *testing.T) {
	now := time.Now()
	base := CodeBundle{PrincipalID: "u1", Target: TargetTenant, TenantID: "5", IssuedAt: now, ExpiresAt: now.Add(time.Second)}
	require.NoError(t, base.Validate())
	assert.Equal(t, TenantScope("5"), base.Scope())

	noTenant := base
	noTenant.TenantID = ""
	assert.ErrorIs(t, noTenant.Validate(), ErrInvalidInput)

	adminWithTenant := base
	adminWithTenant.Target = TargetAdmin
	assert.ErrorIs(t, adminWithTenant.Validate(), ErrInvalidInput)

	adminWithTenant.TenantID = ""
	require.NoError(t, adminWithTenant.Validate())
	assert.Equal(t, PlatformScope(), adminWithTenant.Scope())

	_, err := StampExpiry(base, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestScopeWithin(t *testing.T) {
	p, t5 := PlatformScope(), TenantScope("5")

	assert.True(t, p.Within(p))
	assert.False(t, t5.Within(p), "tenant roles do not make a platform admin")
	assert.True(t, t5.Within(t5))
	assert.True(t, AppScope("5", "9").Within(t5))
	assert.False(t, AppScope("6", "9").Within(t5))
	assert.False(t, p.Within(t5))
}
