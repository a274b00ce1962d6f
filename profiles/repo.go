package profiles

import "context"

// Repo is the profile relation access surface. GetByID returns (nil, nil)
// when no row exists for the subject.
type Repo interface {
	GetByID(ctx context.Context, id string) (*Row, error)
	List(ctx context.Context) ([]Row, error)
	Update(ctx context.Context, id string, patch Patch) error
	Delete(ctx context.Context, id string) error
}
