package backend

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const (
	clientInfo     = "amani-go/1.0.0"
	defaultTimeout = 30 * time.Second
)

// Client talks to the hosted backend: the identity service under /auth/v1 and
// the row store under /rest/v1. Construct exactly one per process root and
// hand it to consumers; there is no hidden package-level instance.
type Client struct {
	baseURL string
	anonKey string
	hc      *http.Client
	store   SessionStore
	log     zerolog.Logger
	nowTime func() time.Time
	oauth   *oauth2.Config

	mu           sync.Mutex
	session      *Session
	listeners    map[int]AuthListener
	nextListener int
}

// Option modifies a Client during construction.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client. Its transport is wrapped so
// every request still carries the service headers.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.hc = hc
	}
}

// WithLogger sets the client logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithSessionStore sets where sessions are persisted between runs.
func WithSessionStore(store SessionStore) Option {
	return func(c *Client) {
		c.store = store
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(c *Client) {
		c.nowTime = nowFunc
	}
}

// New creates a Client for the service at baseURL. The anonymous key is sent
// as the apikey header on every request.
func New(baseURL, anonKey string, options ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("[backend.New] baseURL is required")
	}
	if anonKey == "" {
		return nil, errors.New("[backend.New] anonKey is required")
	}

	c := &Client{
		baseURL:   baseURL,
		anonKey:   anonKey,
		hc:        &http.Client{Timeout: defaultTimeout},
		store:     NewMemorySessionStore(),
		log:       zerolog.Nop(),
		nowTime:   time.Now,
		listeners: make(map[int]AuthListener),
	}

	for _, opt := range options {
		opt(c)
	}

	base := c.hc.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	c.hc = &http.Client{
		Timeout:   c.hc.Timeout,
		Transport: &serviceTransport{anonKey: anonKey, base: base},
	}

	c.oauth = &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  baseURL + "/auth/v1/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	return c, nil
}

// oauthContext routes oauth2's internal HTTP traffic through the service
// transport so token requests carry the apikey header too.
func (c *Client) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.hc)
}

func (c *Client) setSession(sess *Session) {
	c.mu.Lock()
	c.session = sess
	c.mu.Unlock()
}

func (c *Client) currentSession() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Client) accessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.AccessToken
}

// serviceTransport stamps the headers the hosted service expects onto every
// outgoing request.
type serviceTransport struct {
	anonKey string
	base    http.RoundTripper
}

func (t *serviceTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("apikey", t.anonKey)
	clone.Header.Set("X-Client-Info", clientInfo)
	clone.Header.Set("X-Request-Id", uuid.NewString())
	return t.base.RoundTrip(clone)
}
