package repofake

import (
	"context"
	"sync"

	"github.com/amani-finance/amani-go/contents"
)

var _ contents.Repo = (*FakeContentRepo)(nil)

// FakeContentRepo serves seeded content rows, with per-kind error injection.
type FakeContentRepo struct {
	mu   sync.RWMutex
	rows map[contents.Kind][]contents.Row
	errs map[contents.Kind]error
}

func NewFakeContentRepo() *FakeContentRepo {
	return &FakeContentRepo{
		rows: make(map[contents.Kind][]contents.Row),
		errs: make(map[contents.Kind]error),
	}
}

// Seed appends published rows for a kind.
func (r *FakeContentRepo) Seed(kind contents.Kind, rows ...contents.Row) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[kind] = append(r.rows[kind], rows...)
}

// FailKind makes ListPublished return err for the given kind.
func (r *FakeContentRepo) FailKind(kind contents.Kind, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs[kind] = err
}

func (r *FakeContentRepo) ListPublished(ctx context.Context, kind contents.Kind) ([]contents.Row, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.errs[kind]; err != nil {
		return nil, err
	}
	return append([]contents.Row(nil), r.rows[kind]...), nil
}
