package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/consolegate/internal/domain/repository"
)

func newStore(t *testing.T) (*CodeStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewCodeStore(rdb, "test"), mr
}

func TestCodeStore_ConsumeOnce(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()
	now := time.Now()
	b := repository.CodeBundle{PrincipalID: "u1", Target: repository.TargetTenant, TenantID: "5", IssuedAt: now}

	require.NoError(t, s.Put(ctx, "h1", b, 30*time.Second))
	assert.True(t, mr.Exists("test:code:h1"))
	assert.ErrorIs(t, s.Put(ctx, "h1", b, 30*time.Second), repository.ErrConflict)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := s.TryConsume(ctx, "h1", now)
			if err == nil {
				wins.Add(1)
				assert.Equal(t, "u1", got.PrincipalID)
				assert.Equal(t, repository.TargetTenant, got.Target)
				assert.Equal(t, "5", got.TenantID)
				return
			}
			assert.ErrorIs(t, err, repository.ErrNotFound)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestCodeStore_Expiry(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()
	now := time.Now()
	b := repository.CodeBundle{PrincipalID: "u1", Target: repository.TargetAdmin, IssuedAt: now}

	require.NoError(t, s.Put(ctx, "h", b, 5*time.Second))

	// el script re-chequea expires_at aunque la clave siga viva
	_, err := s.TryConsume(ctx, "h", now.Add(5*time.Second))
	assert.ErrorIs(t, err, repository.ErrNotFound)

	mr.FastForward(10 * time.Second)
	assert.False(t, mr.Exists("test:code:h"))

	_, err = s.TryConsume(ctx, "unknown", now)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCodeStore_UnavailableIsTransient(t *testing.T) {
	s, mr := newStore(t)
	mr.Close()
	err := s.Put(context.Background(), "h", repository.CodeBundle{
		PrincipalID: "u1", Target: repository.TargetAdmin, IssuedAt: time.Now(),
	}, time.Second)
	assert.ErrorIs(t, err, repository.ErrTransient)
}
