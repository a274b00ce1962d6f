package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	apperrors "github.com/amani-finance/amani-go/internal/errors"
)

// GetSession returns the current session, restoring it from the session
// store and refreshing it when expired. A nil session with a nil error means
// nobody is signed in.
func (c *Client) GetSession(ctx context.Context) (*Session, error) {
	sess := c.currentSession()

	restored := false
	if sess == nil {
		loaded, err := c.store.Load()
		if err != nil {
			return nil, errors.Wrap(err, "[GetSession] load stored session")
		}
		if loaded == nil {
			return nil, nil
		}
		sess = loaded
		restored = true
	}

	if sess.Expired(c.nowTime()) {
		refreshed, err := c.refreshSession(ctx, sess)
		if err != nil {
			return nil, errors.Wrap(err, "[GetSession] refresh expired session")
		}
		return refreshed, nil
	}

	if restored {
		c.setSession(sess)
		c.emit(InitialSession, sess)
	}
	return sess, nil
}

// SignInWithPassword exchanges credentials for a session via the password
// grant. The session is persisted and SIGNED_IN is emitted on success.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	tok, err := c.oauth.PasswordCredentialsToken(c.oauthContext(ctx), email, password)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil &&
			(retrieveErr.Response.StatusCode == http.StatusBadRequest || retrieveErr.Response.StatusCode == http.StatusUnauthorized) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, "[SignInWithPassword] password grant")
	}

	sess, err := c.sessionFromToken(tok)
	if err != nil {
		return nil, errors.Wrap(err, "[SignInWithPassword] decode session")
	}

	c.setSession(sess)
	if err := c.store.Save(sess); err != nil {
		c.log.Err(err).Msg("failed to persist session")
	}
	c.emit(SignedIn, sess)
	return sess, nil
}

// SignOut revokes the session remotely and always clears the local one,
// emitting SIGNED_OUT even when the remote call fails. The remote failure is
// returned so callers can report it.
func (c *Client) SignOut(ctx context.Context) error {
	sess := c.currentSession()

	var remoteErr error
	if sess != nil {
		resp, err := c.doAuthRequest(ctx, http.MethodPost, "/auth/v1/logout", sess.AccessToken, nil)
		if err != nil {
			remoteErr = err
		} else {
			resp.Body.Close()
			if resp.StatusCode >= http.StatusMultipleChoices {
				remoteErr = errors.Wrapf(apperrors.ErrRemote, "sign-out returned status %d", resp.StatusCode)
			}
		}
	}

	c.setSession(nil)
	if err := c.store.Clear(); err != nil {
		c.log.Err(err).Msg("failed to clear stored session")
	}
	c.emit(SignedOut, nil)

	if remoteErr != nil {
		return errors.Wrap(remoteErr, "[SignOut] remote sign-out")
	}
	return nil
}

// GetUser fetches the authoritative user record for the current session and
// folds it into the session, emitting USER_UPDATED.
func (c *Client) GetUser(ctx context.Context) (*User, error) {
	sess := c.currentSession()
	if sess == nil {
		return nil, apperrors.ErrNoSession
	}

	resp, err := c.doAuthRequest(ctx, http.MethodGet, "/auth/v1/user", sess.AccessToken, nil)
	if err != nil {
		return nil, errors.Wrap(err, "[GetUser] request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "[GetUser] read response")
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, errors.Wrapf(apperrors.ErrRemote, "user endpoint returned status %d", resp.StatusCode)
	}

	var user User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, errors.Wrap(err, "[GetUser] decode user")
	}

	c.mu.Lock()
	if c.session != nil {
		c.session.User = &user
		sess = c.session
	}
	c.mu.Unlock()
	c.emit(UserUpdated, sess)
	return &user, nil
}

func (c *Client) refreshSession(ctx context.Context, sess *Session) (*Session, error) {
	if sess.RefreshToken == "" {
		c.setSession(nil)
		return nil, apperrors.ErrSessionExpired
	}

	src := c.oauth.TokenSource(c.oauthContext(ctx), &oauth2.Token{RefreshToken: sess.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, errors.Wrap(err, "[refreshSession] refresh grant")
	}

	fresh, err := c.sessionFromToken(tok)
	if err != nil {
		return nil, errors.Wrap(err, "[refreshSession] decode session")
	}
	if fresh.User == nil {
		fresh.User = sess.User
	}

	c.setSession(fresh)
	if err := c.store.Save(fresh); err != nil {
		c.log.Err(err).Msg("failed to persist refreshed session")
	}
	c.emit(TokenRefreshed, fresh)
	return fresh, nil
}

// sessionFromToken builds a Session from an issued token, pulling the user
// out of the access token's claims.
func (c *Client) sessionFromToken(tok *oauth2.Token) (*Session, error) {
	user, claimExpiry, err := userFromToken(tok.AccessToken)
	if err != nil {
		return nil, err
	}

	expiresAt := tok.Expiry
	if expiresAt.IsZero() {
		expiresAt = claimExpiry
	}

	return &Session{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		ExpiresAt:    expiresAt,
		User:         user,
	}, nil
}

func (c *Client) doAuthRequest(ctx context.Context, method, path, accessToken string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	return c.hc.Do(req)
}
