package profiles

import (
	"context"

	"github.com/pkg/errors"

	"github.com/amani-finance/amani-go/backend"
)

const (
	table = "profiles"

	// Only the fields the reconciliation cycle needs.
	reconcileColumns = "first_name, last_name, organization, avatar_url, roles"
	// The directory view adds identity and timestamps.
	directoryColumns = "id, email, first_name, last_name, organization, roles, created_at, updated_at"

	directoryLimit = 100
)

// RestRepo reads and writes the profiles relation through the row store.
type RestRepo struct {
	client *backend.Client
}

var _ Repo = (*RestRepo)(nil)

func NewRestRepo(client *backend.Client) *RestRepo {
	return &RestRepo{client: client}
}

func (r *RestRepo) GetByID(ctx context.Context, id string) (*Row, error) {
	var row Row
	found, err := r.client.From(table).
		Select(reconcileColumns).
		Eq("id", id).
		MaybeSingle(ctx, &row)
	if err != nil {
		return nil, errors.Wrap(err, "[RestRepo.GetByID]")
	}
	if !found {
		return nil, nil
	}
	row.ID = id
	return &row, nil
}

func (r *RestRepo) List(ctx context.Context) ([]Row, error) {
	var rows []Row
	err := r.client.From(table).
		Select(directoryColumns).
		Order("created_at", false).
		Limit(directoryLimit).
		Get(ctx, &rows)
	if err != nil {
		return nil, errors.Wrap(err, "[RestRepo.List]")
	}
	return rows, nil
}

func (r *RestRepo) Update(ctx context.Context, id string, patch Patch) error {
	if err := r.client.From(table).Eq("id", id).Update(ctx, patch); err != nil {
		return errors.Wrap(err, "[RestRepo.Update]")
	}
	return nil
}

func (r *RestRepo) Delete(ctx context.Context, id string) error {
	if err := r.client.From(table).Eq("id", id).Delete(ctx); err != nil {
		return errors.Wrap(err, "[RestRepo.Delete]")
	}
	return nil
}
