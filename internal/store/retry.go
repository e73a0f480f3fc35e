package store

import (
	"context"
	"errors"
	"time"

	"github.com/dropDatabas3/consolegate/internal/domain/repository"
)

// RetryPause es la espera entre el intento original y el único reintento.
var RetryPause = 50 * time.Millisecond

// RetryTransient ejecuta fn y, si falla con ErrTransient, reintenta una vez.
// Un segundo ErrTransient se reporta como ErrUnavailable; cualquier otro
// error se devuelve tal cual.
func RetryTransient(ctx context.Context, fn func(ctx context.Context) error) error {
	err := fn(ctx)
	if !repository.IsTransient(err) {
		return err
	}

	t := time.NewTimer(RetryPause)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return errors.Join(repository.ErrUnavailable, ctx.Err())
	case <-t.C:
	}

	if err = fn(ctx); repository.IsTransient(err) {
		return errors.Join(repository.ErrUnavailable, err)
	}
	return err
}
