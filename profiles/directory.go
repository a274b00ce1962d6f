package profiles

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Stats summarizes the user directory.
type Stats struct {
	Total        int `json:"total"`
	Admins       int `json:"admins"`
	Editors      int `json:"editors"`
	Users        int `json:"users"`
	NewThisMonth int `json:"new_this_month"`
}

// ComputeStats derives directory statistics from a listing. A "user" is a
// row holding the user role and neither admin nor editor.
func ComputeStats(rows []Row, now time.Time) Stats {
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	stats := Stats{Total: len(rows)}
	for _, row := range rows {
		if row.HasRole("admin") {
			stats.Admins++
		}
		if row.HasRole("editor") {
			stats.Editors++
		}
		if row.HasRole("user") && !row.HasRole("admin") && !row.HasRole("editor") {
			stats.Users++
		}
		if !row.CreatedAt.Before(startOfMonth) {
			stats.NewThisMonth++
		}
	}
	return stats
}

// Directory is the admin-facing user management service: listing with
// statistics, profile updates, role assignment, and removal. Updates stamp
// updated_at so the directory ordering stays truthful.
type Directory struct {
	repo    Repo
	log     zerolog.Logger
	nowTime func() time.Time
}

// DirectoryOption modifies a Directory during construction.
type DirectoryOption func(*Directory)

// WithLogger sets the directory logger.
func WithLogger(log zerolog.Logger) DirectoryOption {
	return func(d *Directory) {
		d.log = log
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) DirectoryOption {
	return func(d *Directory) {
		d.nowTime = nowFunc
	}
}

func NewDirectory(repo Repo, options ...DirectoryOption) (*Directory, error) {
	if repo == nil {
		return nil, errors.New("[NewDirectory] repo is required")
	}
	d := &Directory{
		repo:    repo,
		log:     zerolog.Nop(),
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(d)
	}
	return d, nil
}

// List returns the most recent profiles with their statistics.
func (d *Directory) List(ctx context.Context) ([]Row, Stats, error) {
	rows, err := d.repo.List(ctx)
	if err != nil {
		return nil, Stats{}, errors.Wrap(err, "[Directory.List]")
	}
	return rows, ComputeStats(rows, d.nowTime()), nil
}

// Update applies a partial profile update.
func (d *Directory) Update(ctx context.Context, id string, patch Patch) error {
	patch.UpdatedAt = d.nowTime().UTC().Format(time.RFC3339)
	if err := d.repo.Update(ctx, id, patch); err != nil {
		d.log.Err(err).Str("profile_id", id).Msg("profile update failed")
		return errors.Wrap(err, "[Directory.Update]")
	}
	return nil
}

// UpdateRoles replaces a profile's role list.
func (d *Directory) UpdateRoles(ctx context.Context, id string, roles []string) error {
	return d.Update(ctx, id, Patch{Roles: roles})
}

// Delete removes a profile row. The identity-service account is untouched;
// deleting it requires service-role credentials this client does not hold.
func (d *Directory) Delete(ctx context.Context, id string) error {
	if err := d.repo.Delete(ctx, id); err != nil {
		d.log.Err(err).Str("profile_id", id).Msg("profile delete failed")
		return errors.Wrap(err, "[Directory.Delete]")
	}
	return nil
}
