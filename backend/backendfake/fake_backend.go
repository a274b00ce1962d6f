package backendfake

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/amani-finance/amani-go/backend"
	apperrors "github.com/amani-finance/amani-go/internal/errors"
)

// Backend is an in-memory stand-in for the hosted identity service. It
// checks real bcrypt hashes, emits the same auth events as the HTTP client,
// and supports error and hang injection for failure-path tests.
type Backend struct {
	mu           sync.Mutex
	accounts     map[string]*account // keyed by email
	session      *backend.Session
	listeners    map[int]backend.AuthListener
	nextListener int

	// Injected failures. Zero values mean normal behaviour.
	SignInErr     error
	SignOutErr    error
	GetSessionErr error

	getSessionBlock chan struct{}
}

type account struct {
	id           string
	email        string
	passwordHash string
	role         string
	metadata     backend.UserMetadata
}

func New() *Backend {
	return &Backend{
		accounts:  make(map[string]*account),
		listeners: make(map[int]backend.AuthListener),
	}
}

// RegisterUser adds an account with a bcrypt-hashed password and returns its
// subject id.
func (b *Backend) RegisterUser(email, password, role string, metadata backend.UserMetadata) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	acc := &account{
		id:           uuid.NewString(),
		email:        email,
		passwordHash: string(hash),
		role:         role,
		metadata:     metadata,
	}
	b.accounts[email] = acc
	return acc.id
}

// SeedSession makes the given account the currently signed-in user, as if a
// previous run had persisted its session.
func (b *Backend) SeedSession(email string) *backend.Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.accounts[email]
	if !ok {
		return nil
	}
	b.session = b.sessionForLocked(acc)
	return b.session
}

// BlockGetSession makes GetSession hang until the returned release function
// is called or the caller's context is done.
func (b *Backend) BlockGetSession() (release func()) {
	ch := make(chan struct{})
	b.mu.Lock()
	b.getSessionBlock = ch
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { close(ch) })
	}
}

func (b *Backend) GetSession(ctx context.Context) (*backend.Session, error) {
	b.mu.Lock()
	block := b.getSessionBlock
	b.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.GetSessionErr != nil {
		return nil, b.GetSessionErr
	}
	return b.session, nil
}

func (b *Backend) SignInWithPassword(ctx context.Context, email, password string) (*backend.Session, error) {
	b.mu.Lock()
	if b.SignInErr != nil {
		err := b.SignInErr
		b.mu.Unlock()
		return nil, err
	}

	acc, ok := b.accounts[email]
	if !ok || bcrypt.CompareHashAndPassword([]byte(acc.passwordHash), []byte(password)) != nil {
		b.mu.Unlock()
		return nil, apperrors.ErrInvalidCredentials
	}

	sess := b.sessionForLocked(acc)
	b.session = sess
	b.mu.Unlock()

	b.Emit(backend.SignedIn, sess)
	return sess, nil
}

func (b *Backend) SignOut(ctx context.Context) error {
	b.mu.Lock()
	err := b.SignOutErr
	b.session = nil
	b.mu.Unlock()

	b.Emit(backend.SignedOut, nil)
	return err
}

func (b *Backend) GetUser(ctx context.Context) (*backend.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == nil {
		return nil, apperrors.ErrNoSession
	}
	return b.session.User, nil
}

func (b *Backend) OnAuthStateChange(fn backend.AuthListener) backend.Subscription {
	b.mu.Lock()
	id := b.nextListener
	b.nextListener++
	b.listeners[id] = fn
	b.mu.Unlock()

	return &fakeSubscription{cancel: func() {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	}}
}

// Emit delivers an event to every listener, in registration order not
// guaranteed, matching the client's synchronous dispatch.
func (b *Backend) Emit(event backend.AuthEvent, sess *backend.Session) {
	b.mu.Lock()
	fns := make([]backend.AuthListener, 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(event, sess)
	}
}

func (b *Backend) sessionForLocked(acc *account) *backend.Session {
	return &backend.Session{
		AccessToken:  "fake-token-" + uuid.NewString(),
		RefreshToken: "fake-refresh-" + uuid.NewString(),
		TokenType:    "bearer",
		ExpiresAt:    time.Now().Add(time.Hour),
		User: &backend.User{
			ID:           acc.id,
			Email:        acc.email,
			Role:         acc.role,
			UserMetadata: acc.metadata,
		},
	}
}

type fakeSubscription struct {
	cancel func()
}

func (s *fakeSubscription) Unsubscribe() {
	s.cancel()
}
