package backend_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/amani-finance/amani-go/backend"
	apperrors "github.com/amani-finance/amani-go/internal/errors"
)

type restCapture struct {
	mu     sync.Mutex
	method string
	path   string
	query  url.Values
	header http.Header
	body   []byte
}

// newRestServer serves the canned response and records the request for
// assertions.
func newRestServer(t *testing.T, status int, response string) (*restCapture, *backend.Client) {
	t.Helper()
	capture := &restCapture{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		capture.mu.Lock()
		capture.method = r.Method
		capture.path = r.URL.Path
		capture.query = r.URL.Query()
		capture.header = r.Header.Clone()
		capture.body = body
		capture.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)

	client, err := backend.New(srv.URL, testAnonKey)
	require.NoError(t, err)
	return capture, client
}

func TestQueryGet(t *testing.T) {
	capture, client := newRestServer(t, http.StatusOK,
		`[{"slug":"inflation-uemoa"},{"slug":"brvm-record"}]`)

	var rows []struct {
		Slug string `json:"slug"`
	}
	err := client.From("contents").
		Select("slug, updated_at").
		Eq("status", "published").
		Eq("type", "article").
		Order("updated_at", false).
		Limit(50).
		Get(context.Background(), &rows)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "inflation-uemoa", rows[0].Slug)

	require.Equal(t, http.MethodGet, capture.method)
	require.Equal(t, "/rest/v1/contents", capture.path)
	require.Equal(t, "slug, updated_at", capture.query.Get("select"))
	require.Equal(t, "eq.published", capture.query.Get("status"))
	require.Equal(t, "eq.article", capture.query.Get("type"))
	require.Equal(t, "updated_at.desc", capture.query.Get("order"))
	require.Equal(t, "50", capture.query.Get("limit"))

	require.Equal(t, testAnonKey, capture.header.Get("apikey"))
	require.Equal(t, "amani-go/1.0.0", capture.header.Get("X-Client-Info"))
	require.NotEmpty(t, capture.header.Get("X-Request-Id"))
	require.Empty(t, capture.header.Get("Authorization"), "no session, no bearer token")
}

func TestQueryMaybeSingle(t *testing.T) {
	type row struct {
		FirstName string `json:"first_name"`
	}

	t.Run("no rows", func(t *testing.T) {
		_, client := newRestServer(t, http.StatusOK, `[]`)
		var dest row
		found, err := client.From("profiles").Eq("id", "user-1").MaybeSingle(context.Background(), &dest)
		require.NoError(t, err)
		require.False(t, found)
	})

	t.Run("one row", func(t *testing.T) {
		_, client := newRestServer(t, http.StatusOK, `[{"first_name":"Amara"}]`)
		var dest row
		found, err := client.From("profiles").Eq("id", "user-1").MaybeSingle(context.Background(), &dest)
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, "Amara", dest.FirstName)
	})

	t.Run("multiple rows", func(t *testing.T) {
		_, client := newRestServer(t, http.StatusOK, `[{"first_name":"Amara"},{"first_name":"Awa"}]`)
		var dest row
		_, err := client.From("profiles").Eq("id", "user-1").MaybeSingle(context.Background(), &dest)
		require.ErrorIs(t, err, apperrors.ErrMultipleRows)
	})
}

func TestQueryUpdate(t *testing.T) {
	capture, client := newRestServer(t, http.StatusNoContent, ``)

	patch := map[string]any{"first_name": "Amara", "roles": []string{"editor"}}
	err := client.From("profiles").Eq("id", "user-1").Update(context.Background(), patch)
	require.NoError(t, err)

	require.Equal(t, http.MethodPatch, capture.method)
	require.Equal(t, "eq.user-1", capture.query.Get("id"))
	require.Equal(t, "application/json", capture.header.Get("Content-Type"))

	var sent map[string]any
	require.NoError(t, json.Unmarshal(capture.body, &sent))
	require.Equal(t, "Amara", sent["first_name"])
}

func TestQueryDelete(t *testing.T) {
	capture, client := newRestServer(t, http.StatusNoContent, ``)

	err := client.From("profiles").Eq("id", "user-1").Delete(context.Background())
	require.NoError(t, err)
	require.Equal(t, http.MethodDelete, capture.method)
	require.Equal(t, "eq.user-1", capture.query.Get("id"))
}

func TestQueryRemoteError(t *testing.T) {
	_, client := newRestServer(t, http.StatusForbidden, `{"message":"permission denied for table profiles"}`)

	var rows []json.RawMessage
	err := client.From("profiles").Get(context.Background(), &rows)
	require.ErrorIs(t, err, apperrors.ErrRemote)
	require.Contains(t, err.Error(), "permission denied")
}
