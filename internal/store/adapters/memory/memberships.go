package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/dropDatabas3/consolegate/internal/domain/repository"
)

type membershipRepo struct{ st *state }

func (r *membershipRepo) Add(_ context.Context, tenantID, principalID string) (*repository.Membership, error) {
	if strings.TrimSpace(tenantID) == "" || strings.TrimSpace(principalID) == "" {
		return nil, repository.ErrInvalidInput
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	set, ok := r.st.members[tenantID]
	if !ok {
		set = map[string]time.Time{}
		r.st.members[tenantID] = set
	}
	created, ok := set[principalID]
	if !ok {
		created = r.st.now().UTC()
		set[principalID] = created
	}
	return &repository.Membership{TenantID: tenantID, PrincipalID: principalID, CreatedAt: created}, nil
}

func (r *membershipRepo) Remove(_ context.Context, tenantID, principalID string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	set := r.st.members[tenantID]
	if _, ok := set[principalID]; !ok {
		return repository.ErrNotFound
	}
	delete(set, principalID)
	return nil
}

func (r *membershipRepo) IsMember(_ context.Context, tenantID, principalID string) (bool, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	_, ok := r.st.members[tenantID][principalID]
	return ok, nil
}

func (r *membershipRepo) ListMembers(_ context.Context, tenantID string) ([]repository.Membership, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	out := make([]repository.Membership, 0, len(r.st.members[tenantID]))
	for pid, created := range r.st.members[tenantID] {
		out = append(out, repository.Membership{TenantID: tenantID, PrincipalID: pid, CreatedAt: created})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PrincipalID < out[j].PrincipalID })
	return out, nil
}

func (r *membershipRepo) ListTenants(_ context.Context, principalID string) ([]string, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	out := []string{}
	for tid, set := range r.st.members {
		if _, ok := set[principalID]; ok {
			out = append(out, tid)
		}
	}
	sort.Strings(out)
	return out, nil
}
