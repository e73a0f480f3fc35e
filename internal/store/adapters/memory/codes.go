package memory

import (
	"context"
	"time"

	"github.com/dropDatabas3/consolegate/internal/domain/repository"
)

type codeRow struct {
	bundle     repository.CodeBundle
	consumedAt *time.Time
}

type codeRepo struct{ st *state }

func (r *codeRepo) Put(_ context.Context, codeHash string, b repository.CodeBundle, ttl time.Duration) error {
	b, err := repository.StampExpiry(b, ttl)
	if err != nil {
		return err
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	if _, exists := r.st.codes[codeHash]; exists {
		return repository.ErrConflict
	}
	r.st.codes[codeHash] = &codeRow{bundle: b}
	return nil
}

func (r *codeRepo) TryConsume(_ context.Context, codeHash string, now time.Time) (*repository.CodeBundle, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	row, ok := r.st.codes[codeHash]
	if !ok || row.consumedAt != nil || !row.bundle.ExpiresAt.After(now) {
		return nil, repository.ErrNotFound
	}
	consumed := now
	row.consumedAt = &consumed
	b := row.bundle
	return &b, nil
}

func (r *codeRepo) SweepExpired(_ context.Context, now time.Time) (int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	var n int64
	for h, row := range r.st.codes {
		if !row.bundle.ExpiresAt.After(now) {
			delete(r.st.codes, h)
			n++
		}
	}
	return n, nil
}
