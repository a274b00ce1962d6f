package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"

	apperrors "github.com/amani-finance/amani-go/internal/errors"
)

// Query builds a single row-store request against one relation. Builder
// methods return the query for chaining; one of the finishers (Get,
// MaybeSingle, Update, Delete) executes it.
type Query struct {
	c       *Client
	table   string
	selects string
	filters url.Values
	order   string
	limit   int
}

// From starts a query against the named relation.
func (c *Client) From(table string) *Query {
	return &Query{c: c, table: table, filters: url.Values{}}
}

// Select restricts the returned columns (comma separated).
func (q *Query) Select(columns string) *Query {
	q.selects = columns
	return q
}

// Eq filters rows where column equals value.
func (q *Query) Eq(column string, value any) *Query {
	q.filters.Add(column, fmt.Sprintf("eq.%v", value))
	return q
}

// Order sorts the result by column.
func (q *Query) Order(column string, ascending bool) *Query {
	direction := "desc"
	if ascending {
		direction = "asc"
	}
	q.order = column + "." + direction
	return q
}

// Limit caps the number of returned rows.
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// Get executes the query and decodes the resulting rows into dest, which
// must be a pointer to a slice.
func (q *Query) Get(ctx context.Context, dest any) error {
	data, err := q.do(ctx, http.MethodGet, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return errors.Wrap(err, "[Query.Get] decode rows")
	}
	return nil
}

// MaybeSingle fetches at most one row into dest. found is false, with a nil
// error, when the query matches nothing: an absent row is not a failure.
func (q *Query) MaybeSingle(ctx context.Context, dest any) (found bool, err error) {
	data, err := q.do(ctx, http.MethodGet, nil)
	if err != nil {
		return false, err
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return false, errors.Wrap(err, "[Query.MaybeSingle] decode rows")
	}

	switch len(rows) {
	case 0:
		return false, nil
	case 1:
		if err := json.Unmarshal(rows[0], dest); err != nil {
			return false, errors.Wrap(err, "[Query.MaybeSingle] decode row")
		}
		return true, nil
	default:
		return false, apperrors.ErrMultipleRows
	}
}

// Update patches the rows matched by the query's filters.
func (q *Query) Update(ctx context.Context, patch any) error {
	if _, err := q.do(ctx, http.MethodPatch, patch); err != nil {
		return errors.Wrap(err, "[Query.Update]")
	}
	return nil
}

// Delete removes the rows matched by the query's filters.
func (q *Query) Delete(ctx context.Context) error {
	if _, err := q.do(ctx, http.MethodDelete, nil); err != nil {
		return errors.Wrap(err, "[Query.Delete]")
	}
	return nil
}

func (q *Query) url() string {
	v := url.Values{}
	if q.selects != "" {
		v.Set("select", q.selects)
	}
	for column, filters := range q.filters {
		for _, f := range filters {
			v.Add(column, f)
		}
	}
	if q.order != "" {
		v.Set("order", q.order)
	}
	if q.limit > 0 {
		v.Set("limit", strconv.Itoa(q.limit))
	}
	return q.c.baseURL + "/rest/v1/" + q.table + "?" + v.Encode()
}

func (q *Query) do(ctx context.Context, method string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "encode body")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, q.url(), reader)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := q.c.accessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := q.c.hc.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, q.table)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		var remote struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(data, &remote)
		if remote.Message != "" {
			return nil, errors.Wrapf(apperrors.ErrRemote, "%s %s: %s (status %d)", method, q.table, remote.Message, resp.StatusCode)
		}
		return nil, errors.Wrapf(apperrors.ErrRemote, "%s %s: status %d", method, q.table, resp.StatusCode)
	}
	return data, nil
}
