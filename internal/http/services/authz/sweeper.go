package authz

import (
	"context"
	"time"

	"github.com/dropDatabas3/consolegate/internal/domain/repository"
	"github.com/dropDatabas3/consolegate/internal/metrics"
	"github.com/dropDatabas3/consolegate/internal/observability/logger"
)

// Sweeper borra periódicamente códigos vencidos. Es higiene: TryConsume
// rechaza vencidos por su cuenta.
type Sweeper struct {
	Codes    repository.CodeRepository
	Interval time.Duration
	Now      func() time.Time
}

// SweepOnce corre una pasada y retorna cuántos códigos borró.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	n, err := s.Codes.SweepExpired(ctx, now().UTC())
	if err != nil {
		return 0, err
	}
	metrics.CodesSwept(n)
	return n, nil
}

// Run bloquea hasta que ctx se cancele. Los errores se loguean y no cortan el loop.
func (s *Sweeper) Run(ctx context.Context) error {
	interval := s.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	log := logger.From(ctx).With(logger.Component("authz.sweeper"))
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			n, err := s.SweepOnce(ctx)
			if err != nil {
				log.Warn("sweep failed", logger.Err(err))
				continue
			}
			if n > 0 {
				log.Debug("expired codes swept", logger.Count(int(n)))
			}
		}
	}
}
