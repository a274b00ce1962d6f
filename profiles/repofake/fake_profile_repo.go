package repofake

import (
	"context"
	"sort"
	"sync"

	"github.com/amani-finance/amani-go/profiles"
)

var _ profiles.Repo = (*FakeProfileRepo)(nil)

// FakeProfileRepo is an in-memory profiles relation for tests, with per-call
// error injection.
type FakeProfileRepo struct {
	mu   sync.RWMutex
	rows map[string]*profiles.Row

	GetErr    error
	ListErr   error
	UpdateErr error
	DeleteErr error

	// Patches records every update applied, newest last.
	Patches []profiles.Patch
}

func NewFakeProfileRepo() *FakeProfileRepo {
	return &FakeProfileRepo{rows: make(map[string]*profiles.Row)}
}

// Seed stores a row keyed by its ID.
func (r *FakeProfileRepo) Seed(row profiles.Row) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := row
	r.rows[row.ID] = &copied
}

func (r *FakeProfileRepo) GetByID(ctx context.Context, id string) (*profiles.Row, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.GetErr != nil {
		return nil, r.GetErr
	}
	row, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	copied := *row
	return &copied, nil
}

func (r *FakeProfileRepo) List(ctx context.Context) ([]profiles.Row, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.ListErr != nil {
		return nil, r.ListErr
	}
	rows := make([]profiles.Row, 0, len(r.rows))
	for _, row := range r.rows {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})
	return rows, nil
}

func (r *FakeProfileRepo) Update(ctx context.Context, id string, patch profiles.Patch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.UpdateErr != nil {
		return r.UpdateErr
	}
	r.Patches = append(r.Patches, patch)

	row, ok := r.rows[id]
	if !ok {
		return nil
	}
	if patch.FirstName != nil {
		row.FirstName = patch.FirstName
	}
	if patch.LastName != nil {
		row.LastName = patch.LastName
	}
	if patch.Organization != nil {
		row.Organization = patch.Organization
	}
	if patch.AvatarURL != nil {
		row.AvatarURL = patch.AvatarURL
	}
	if patch.Roles != nil {
		row.Roles = patch.Roles
	}
	return nil
}

func (r *FakeProfileRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.DeleteErr != nil {
		return r.DeleteErr
	}
	delete(r.rows, id)
	return nil
}
