package backend

// AuthEvent identifies a change in the identity service's session state.
// Events are delivered to listeners in issuance order.
type AuthEvent string

const (
	SignedIn       AuthEvent = "SIGNED_IN"
	InitialSession AuthEvent = "INITIAL_SESSION"
	TokenRefreshed AuthEvent = "TOKEN_REFRESHED"
	UserUpdated    AuthEvent = "USER_UPDATED"
	SignedOut      AuthEvent = "SIGNED_OUT"
)

// AuthListener receives auth state changes. The session is nil for SIGNED_OUT.
type AuthListener func(event AuthEvent, session *Session)

// Subscription is a handle on a registered listener.
type Subscription interface {
	Unsubscribe()
}

type subscription struct {
	cancel func()
}

func (s *subscription) Unsubscribe() {
	s.cancel()
}

// OnAuthStateChange registers fn for auth state changes. Listeners are
// invoked synchronously from the call that produced the event, preserving
// issuance order.
func (c *Client) OnAuthStateChange(fn AuthListener) Subscription {
	c.mu.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn
	c.mu.Unlock()

	return &subscription{cancel: func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}}
}

func (c *Client) emit(event AuthEvent, sess *Session) {
	c.mu.Lock()
	fns := make([]AuthListener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(event, sess)
	}
}
