package contents

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/amani-finance/amani-go/backend"
)

// Kind distinguishes the published content types the site serves.
type Kind string

const (
	KindArticle Kind = "article"
	KindPodcast Kind = "podcast"
)

// StatusPublished marks rows visible to the public site.
const StatusPublished = "published"

// Row is one entry of the contents relation.
type Row struct {
	Slug      string    `json:"slug"`
	UpdatedAt time.Time `json:"updated_at"`
	Type      Kind      `json:"type,omitempty"`
	Status    string    `json:"status,omitempty"`
}

// Repo lists published content rows of one kind, newest first.
type Repo interface {
	ListPublished(ctx context.Context, kind Kind) ([]Row, error)
}

// RestRepo reads the contents relation through the row store.
type RestRepo struct {
	client *backend.Client
}

var _ Repo = (*RestRepo)(nil)

func NewRestRepo(client *backend.Client) *RestRepo {
	return &RestRepo{client: client}
}

func (r *RestRepo) ListPublished(ctx context.Context, kind Kind) ([]Row, error) {
	var rows []Row
	err := r.client.From("contents").
		Select("slug, updated_at, type").
		Eq("status", StatusPublished).
		Eq("type", string(kind)).
		Order("updated_at", false).
		Get(ctx, &rows)
	if err != nil {
		return nil, errors.Wrapf(err, "[RestRepo.ListPublished] kind %s", kind)
	}
	return rows, nil
}
