package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/amani-finance/amani-go/backend"
	"github.com/amani-finance/amani-go/profiles"
)

// AuthClient is the identity-service surface the reconciler consumes.
type AuthClient interface {
	GetSession(ctx context.Context) (*backend.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*backend.Session, error)
	SignOut(ctx context.Context) error
	OnAuthStateChange(fn backend.AuthListener) backend.Subscription
}

// ProfileSource fetches the denormalized profile row for a subject.
// A (nil, nil) return means the row does not exist, which is not an error.
type ProfileSource interface {
	GetByID(ctx context.Context, id string) (*profiles.Row, error)
}

var (
	_ AuthClient    = (*backend.Client)(nil)
	_ ProfileSource = (*profiles.RestRepo)(nil)
)

// State of the reconciler.
type State int

const (
	StateInitializing State = iota
	StateAuthenticated
	StateUnauthenticated
)

// DefaultLoadingCeiling bounds how long consumers can observe the loading
// flag after mount, regardless of outstanding network activity.
const DefaultLoadingCeiling = 7 * time.Second

const eventBuffer = 16

type authEvent struct {
	event   backend.AuthEvent
	session *backend.Session
}

// Reconciler owns the single authoritative user view and its loading flag,
// keeping both consistent with the identity service's event stream. Auth
// events are processed one at a time, in delivery order, on a dedicated
// goroutine; consumers may read snapshots from any goroutine.
type Reconciler struct {
	auth           AuthClient
	profileSource  ProfileSource
	log            zerolog.Logger
	loadingCeiling time.Duration

	seq atomic.Uint64 // latest reconciliation attempt issued

	mu      sync.RWMutex
	state   State
	user    *User
	loading bool
	timer   *time.Timer
	sub     backend.Subscription

	events    chan authEvent
	done      chan struct{}
	closeOnce sync.Once
}

// Option modifies a Reconciler during construction.
type Option func(*Reconciler)

// WithLogger sets the reconciler logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Reconciler) {
		r.log = log
	}
}

// WithLoadingCeiling overrides the bounded loading duration (primarily for
// testing).
func WithLoadingCeiling(d time.Duration) Option {
	return func(r *Reconciler) {
		r.loadingCeiling = d
	}
}

// New creates a Reconciler over the given identity client and profile
// source. Call Start to mount it.
func New(auth AuthClient, profileSource ProfileSource, options ...Option) (*Reconciler, error) {
	if auth == nil {
		return nil, errors.New("[session.New] auth client is required")
	}
	if profileSource == nil {
		return nil, errors.New("[session.New] profile source is required")
	}

	r := &Reconciler{
		auth:           auth,
		profileSource:  profileSource,
		log:            zerolog.Nop(),
		loadingCeiling: DefaultLoadingCeiling,
		state:          StateInitializing,
		loading:        true,
		events:         make(chan authEvent, eventBuffer),
		done:           make(chan struct{}),
	}

	for _, opt := range options {
		opt(r)
	}

	return r, nil
}

// Start mounts the reconciler: arms the loading ceiling, subscribes to auth
// state changes, and kicks off the initial session check. It returns
// immediately; consumers observe progress through IsLoading and CurrentUser.
func (r *Reconciler) Start(ctx context.Context) {
	sub := r.auth.OnAuthStateChange(func(event backend.AuthEvent, sess *backend.Session) {
		select {
		case r.events <- authEvent{event: event, session: sess}:
		case <-r.done:
		}
	})

	r.mu.Lock()
	r.sub = sub
	r.timer = time.AfterFunc(r.loadingCeiling, r.loadingCeilingReached)
	r.mu.Unlock()

	go r.loop(ctx)
	go r.checkSession(ctx)
}

// Close unmounts the reconciler, releasing the event subscription and any
// pending ceiling timer.
func (r *Reconciler) Close() {
	r.closeOnce.Do(func() {
		close(r.done)
		r.mu.Lock()
		if r.sub != nil {
			r.sub.Unsubscribe()
			r.sub = nil
		}
		if r.timer != nil {
			r.timer.Stop()
			r.timer = nil
		}
		r.mu.Unlock()
	})
}

// Login signs in with password credentials. On success the minimal view is
// published immediately and the profile merge continues in the background;
// the caller never waits on the row store. Failures of any kind, including
// unexpected internal faults, surface as false rather than an error.
func (r *Reconciler) Login(ctx context.Context, email, password string) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().Interface("panic", rec).Msg("unexpected fault during login")
			ok = false
		}
	}()

	sess, err := r.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		r.log.Err(err).Str("email", email).Msg("login failed")
		return false
	}
	if sess == nil || sess.User == nil {
		r.log.Error().Str("email", email).Msg("sign-in returned no user")
		return false
	}

	r.mu.Lock()
	r.user = minimalView(sess.User)
	r.state = StateAuthenticated
	r.resolveLoadingLocked()
	r.mu.Unlock()

	seq := r.nextSeq()
	providerUser := sess.User
	go r.reconcile(context.WithoutCancel(ctx), seq, providerUser, true)
	return true
}

// Logout signs out remotely and clears the local view regardless of the
// remote outcome: the UI always ends up logged out and not loading.
func (r *Reconciler) Logout(ctx context.Context) {
	if err := r.auth.SignOut(ctx); err != nil {
		r.log.Err(err).Msg("remote sign-out failed; clearing local session anyway")
	}
	r.clear()
}

// HasPermission reports whether the signed-in user holds the permission.
// Admins hold every permission. Pure, synchronous, no side effects.
func (r *Reconciler) HasPermission(permission string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.user == nil {
		return false
	}
	if r.user.Role == RoleAdmin {
		return true
	}
	return containsString(r.user.Permissions, permission)
}

// CurrentUser returns a snapshot of the reconciled view and whether one
// exists.
func (r *Reconciler) CurrentUser() (User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.user == nil {
		return User{}, false
	}
	return r.user.snapshot(), true
}

// IsAuthenticated reports whether a user view is published.
func (r *Reconciler) IsAuthenticated() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.user != nil
}

// IsLoading reports whether the initial reconciliation is still pending.
func (r *Reconciler) IsLoading() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loading
}

// State returns the reconciler's current state.
func (r *Reconciler) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

func (r *Reconciler) loop(ctx context.Context) {
	for {
		select {
		case <-r.done:
			return
		case <-ctx.Done():
			return
		case ev := <-r.events:
			r.handleEvent(ctx, ev)
		}
	}
}

func (r *Reconciler) handleEvent(ctx context.Context, ev authEvent) {
	r.log.Debug().Str("event", string(ev.event)).Msg("auth state change")

	switch ev.event {
	case backend.SignedIn, backend.InitialSession, backend.TokenRefreshed, backend.UserUpdated:
		if ev.session == nil || ev.session.User == nil {
			return
		}
		r.reconcile(ctx, r.nextSeq(), ev.session.User, false)
	case backend.SignedOut:
		r.clear()
	}
}

// checkSession performs the mount-time session retrieval.
func (r *Reconciler) checkSession(ctx context.Context) {
	seq := r.nextSeq()

	sess, err := r.auth.GetSession(ctx)
	if err != nil {
		r.log.Err(err).Msg("session retrieval failed")
		r.resolveUnauthenticated()
		return
	}
	if sess == nil || sess.User == nil {
		r.resolveUnauthenticated()
		return
	}

	r.reconcile(ctx, seq, sess.User, false)
}

// reconcile runs one reconciliation cycle: a best-effort profile fetch
// followed by a merge into the published view. The result applies only when
// seq is still the latest attempt issued; stale completions are discarded.
func (r *Reconciler) reconcile(ctx context.Context, seq uint64, providerUser *backend.User, loginMerge bool) {
	row, err := r.profileSource.GetByID(ctx, providerUser.ID)
	if err != nil {
		r.log.Warn().Err(err).Str("user_id", providerUser.ID).
			Msg("profile fetch failed, continuing with provider metadata")
		row = nil
	}
	if loginMerge && row == nil {
		// Nothing to merge: the minimal view from login stays authoritative.
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if seq != r.seq.Load() {
		r.log.Debug().Uint64("seq", seq).Msg("discarding stale reconciliation result")
		return
	}
	if loginMerge && (r.user == nil || r.user.ID != providerUser.ID) {
		return
	}

	// Previously known fields carry over only for the same subject; an
	// account switch starts from a clean view.
	prev := r.user
	if prev != nil && prev.ID != providerUser.ID {
		prev = nil
	}

	r.user = buildView(providerUser, row, prev, loginMerge)
	r.state = StateAuthenticated
	r.resolveLoadingLocked()
}

func (r *Reconciler) clear() {
	r.nextSeq() // invalidate in-flight merges
	r.mu.Lock()
	r.user = nil
	r.state = StateUnauthenticated
	r.resolveLoadingLocked()
	r.mu.Unlock()
}

func (r *Reconciler) resolveUnauthenticated() {
	r.mu.Lock()
	if r.state == StateInitializing {
		r.state = StateUnauthenticated
	}
	r.resolveLoadingLocked()
	r.mu.Unlock()
}

func (r *Reconciler) resolveLoadingLocked() {
	r.loading = false
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// loadingCeilingReached forces the loading flag off when nothing resolved it
// within the ceiling, so the UI is never stuck behind a hanging identity
// call.
func (r *Reconciler) loadingCeilingReached() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.loading {
		return
	}
	r.log.Warn().Dur("ceiling", r.loadingCeiling).Msg("loading ceiling reached before auth resolved")
	r.loading = false
	r.timer = nil
}

func (r *Reconciler) nextSeq() uint64 {
	return r.seq.Add(1)
}
