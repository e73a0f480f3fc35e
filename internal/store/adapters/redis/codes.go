// Package redis implementa CodeRepository sobre Redis para despliegues
// donde los códigos viven fuera de la base relacional.
//
// Cada código es un hash con PEXPIREAT en expires_at; el consumo es un
// script Lua que compara y marca en un solo paso del servidor.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/consolegate/internal/domain/repository"
)

var putScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1],
  'principal_id', ARGV[1], 'target', ARGV[2], 'tenant_id', ARGV[3],
  'issued_at', ARGV[4], 'expires_at', ARGV[5])
redis.call('PEXPIREAT', KEYS[1], ARGV[5])
return 1
`)

var consumeScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return false
end
if redis.call('HEXISTS', KEYS[1], 'consumed_at') == 1 then
  return false
end
local exp = tonumber(redis.call('HGET', KEYS[1], 'expires_at'))
if exp <= tonumber(ARGV[1]) then
  return false
end
redis.call('HSET', KEYS[1], 'consumed_at', ARGV[1])
return redis.call('HMGET', KEYS[1], 'principal_id', 'target', 'tenant_id', 'issued_at', 'expires_at')
`)

// CodeStore implementa repository.CodeRepository.
type CodeStore struct {
	rdb    *goredis.Client
	prefix string
}

func NewCodeStore(rdb *goredis.Client, prefix string) *CodeStore {
	if prefix == "" {
		prefix = "cg"
	}
	return &CodeStore{rdb: rdb, prefix: prefix + ":code:"}
}

var _ repository.CodeRepository = (*CodeStore)(nil)

func (s *CodeStore) Put(ctx context.Context, codeHash string, b repository.CodeBundle, ttl time.Duration) error {
	b, err := repository.StampExpiry(b, ttl)
	if err != nil {
		return err
	}
	created, err := putScript.Run(ctx, s.rdb, []string{s.prefix + codeHash},
		b.PrincipalID, string(b.Target), b.TenantID,
		b.IssuedAt.UnixMilli(), b.ExpiresAt.UnixMilli(),
	).Int()
	if err != nil {
		return mapErr(err)
	}
	if created == 0 {
		return repository.ErrConflict
	}
	return nil
}

func (s *CodeStore) TryConsume(ctx context.Context, codeHash string, now time.Time) (*repository.CodeBundle, error) {
	vals, err := consumeScript.Run(ctx, s.rdb, []string{s.prefix + codeHash}, now.UnixMilli()).StringSlice()
	if err != nil {
		return nil, mapErr(err)
	}
	if len(vals) != 5 {
		return nil, fmt.Errorf("redis: unexpected consume reply (%d fields)", len(vals))
	}
	issued, err1 := strconv.ParseInt(vals[3], 10, 64)
	expires, err2 := strconv.ParseInt(vals[4], 10, 64)
	if err := errors.Join(err1, err2); err != nil {
		return nil, fmt.Errorf("redis: corrupt code record: %w", err)
	}
	return &repository.CodeBundle{
		PrincipalID: vals[0],
		Target:      repository.TargetContext(vals[1]),
		TenantID:    vals[2],
		IssuedAt:    time.UnixMilli(issued).UTC(),
		ExpiresAt:   time.UnixMilli(expires).UTC(),
	}, nil
}

// SweepExpired no tiene trabajo: Redis expira las claves por PEXPIREAT.
func (s *CodeStore) SweepExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func mapErr(err error) error {
	if errors.Is(err, goredis.Nil) {
		return repository.ErrNotFound
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var rerr goredis.Error
	if errors.As(err, &rerr) {
		return err
	}
	return fmt.Errorf("%w: %v", repository.ErrTransient, err)
}
