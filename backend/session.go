package backend

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Sessions are refreshed this long before their actual expiry so in-flight
// requests don't race the deadline.
const expiryMargin = 30 * time.Second

// Session is the provider-issued proof of authentication plus the identity
// it was issued for.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
	User         *User     `json:"user,omitempty"`
}

// Expired reports whether the session needs a refresh at the given time.
func (s *Session) Expired(now time.Time) bool {
	if s == nil {
		return true
	}
	if s.ExpiresAt.IsZero() {
		return false
	}
	return now.After(s.ExpiresAt.Add(-expiryMargin))
}

// SessionStore persists sessions between runs. Load returns (nil, nil) when
// no session is stored.
type SessionStore interface {
	Load() (*Session, error)
	Save(session *Session) error
	Clear() error
}

// MemorySessionStore keeps the session for the lifetime of the process.
type MemorySessionStore struct {
	mu      sync.Mutex
	session *Session
}

var _ SessionStore = (*MemorySessionStore)(nil)

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{}
}

func (s *MemorySessionStore) Load() (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session, nil
}

func (s *MemorySessionStore) Save(session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = session
	return nil
}

func (s *MemorySessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	return nil
}

// FileSessionStore persists the session as JSON at a fixed path, the
// equivalent of the browser client's storage key.
type FileSessionStore struct {
	path string
}

var _ SessionStore = (*FileSessionStore)(nil)

func NewFileSessionStore(path string) *FileSessionStore {
	return &FileSessionStore{path: path}
}

func (s *FileSessionStore) Load() (*Session, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[FileSessionStore.Load] read session file")
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, errors.Wrap(err, "[FileSessionStore.Load] decode session file")
	}
	return &session, nil
}

func (s *FileSessionStore) Save(session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return errors.Wrap(err, "[FileSessionStore.Save] encode session")
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return errors.Wrap(err, "[FileSessionStore.Save] write session file")
	}
	return nil
}

func (s *FileSessionStore) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[FileSessionStore.Clear] remove session file")
	}
	return nil
}
