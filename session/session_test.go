package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/amani-finance/amani-go/backend"
	"github.com/amani-finance/amani-go/backend/backendfake"
	"github.com/amani-finance/amani-go/internal/utils"
	"github.com/amani-finance/amani-go/profiles"
	profilefake "github.com/amani-finance/amani-go/profiles/repofake"
	"github.com/amani-finance/amani-go/session"
)

const (
	waitFor = 2 * time.Second
	tick    = 10 * time.Millisecond
)

type fixture struct {
	backend  *backendfake.Backend
	profiles *profilefake.FakeProfileRepo
	rec      *session.Reconciler
}

func setup(t *testing.T, options ...session.Option) *fixture {
	t.Helper()

	b := backendfake.New()
	p := profilefake.NewFakeProfileRepo()

	rec, err := session.New(b, p, options...)
	require.NoError(t, err)
	t.Cleanup(rec.Close)

	return &fixture{backend: b, profiles: p, rec: rec}
}

func (f *fixture) waitResolved(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool { return !f.rec.IsLoading() }, waitFor, tick)
}

func TestMountWithSessionAndProfile(t *testing.T) {
	f := setup(t)

	id := f.backend.RegisterUser("amara@example.com", "Password1", "", nil)
	f.profiles.Seed(profiles.Row{
		ID:        id,
		FirstName: utils.Ptr("Amara"),
		Roles:     []string{"editor"},
	})
	f.backend.SeedSession("amara@example.com")

	f.rec.Start(context.Background())
	f.waitResolved(t)

	require.Eventually(t, func() bool { return f.rec.IsAuthenticated() }, waitFor, tick)
	user, ok := f.rec.CurrentUser()
	require.True(t, ok)
	require.Equal(t, "Amara", user.FirstName)
	require.Equal(t, "user", user.Role)
	require.Equal(t, []string{"editor"}, user.Roles)
	require.NotNil(t, user.Permissions)
	require.Equal(t, session.StateAuthenticated, f.rec.State())
}

func TestMountWithNoSession(t *testing.T) {
	f := setup(t)

	f.rec.Start(context.Background())
	f.waitResolved(t)

	require.False(t, f.rec.IsAuthenticated())
	require.Equal(t, session.StateUnauthenticated, f.rec.State())
	_, ok := f.rec.CurrentUser()
	require.False(t, ok)
}

func TestMountSessionRetrievalError(t *testing.T) {
	f := setup(t)
	f.backend.GetSessionErr = errors.New("identity service unreachable")

	f.rec.Start(context.Background())
	f.waitResolved(t)

	require.False(t, f.rec.IsAuthenticated())
	require.Equal(t, session.StateUnauthenticated, f.rec.State())
}

func TestMountProfileFetchErrorFallsBackToMetadata(t *testing.T) {
	f := setup(t)

	f.backend.RegisterUser("fatou@example.com", "Password1", "", backend.UserMetadata{
		"full_name": "Fatou Diop",
	})
	f.backend.SeedSession("fatou@example.com")
	f.profiles.GetErr = errors.New("row store down")

	f.rec.Start(context.Background())
	f.waitResolved(t)

	require.Eventually(t, func() bool { return f.rec.IsAuthenticated() }, waitFor, tick)
	user, ok := f.rec.CurrentUser()
	require.True(t, ok)
	require.Equal(t, "Fatou", user.FirstName)
	require.Equal(t, "Diop", user.LastName)
	require.Equal(t, "user", user.Role)
	require.NotNil(t, user.Permissions)
}

func TestLoadingCeilingForcesResolution(t *testing.T) {
	f := setup(t, session.WithLoadingCeiling(50*time.Millisecond))
	release := f.backend.BlockGetSession()
	defer release()

	f.rec.Start(context.Background())

	require.True(t, f.rec.IsLoading())
	require.Eventually(t, func() bool { return !f.rec.IsLoading() }, waitFor, tick)
	_, ok := f.rec.CurrentUser()
	require.False(t, ok)
}

func TestLoginPublishesMinimalViewImmediately(t *testing.T) {
	f := setup(t)
	f.rec.Start(context.Background())
	f.waitResolved(t)

	f.backend.RegisterUser("moussa@example.com", "Password1", "", backend.UserMetadata{
		"first_name":  "Moussa",
		"role":        "user",
		"permissions": []any{"view_dashboard"},
	})
	// The profile fetch never succeeds; the minimal view must hold.
	f.profiles.GetErr = errors.New("row store down")

	ok := f.rec.Login(context.Background(), "moussa@example.com", "Password1")
	require.True(t, ok)
	require.False(t, f.rec.IsLoading())

	user, found := f.rec.CurrentUser()
	require.True(t, found)
	require.Equal(t, "Moussa", user.FirstName)
	require.Equal(t, []string{session.PermViewDashboard}, user.Permissions)

	// A failing background merge never downgrades the view to absent.
	require.Never(t, func() bool { return !f.rec.IsAuthenticated() }, 200*time.Millisecond, tick)
	user, found = f.rec.CurrentUser()
	require.True(t, found)
	require.Equal(t, "Moussa", user.FirstName)
}

func TestLoginBackgroundMergeAppliesProfile(t *testing.T) {
	f := setup(t)
	f.rec.Start(context.Background())
	f.waitResolved(t)

	id := f.backend.RegisterUser("awa@example.com", "Password1", "", backend.UserMetadata{
		"role":        "user",
		"permissions": []any{"view_dashboard", "create_articles"},
	})
	f.profiles.Seed(profiles.Row{
		ID:           id,
		FirstName:    utils.Ptr("Awa"),
		Organization: utils.Ptr("Amani"),
		Roles:        []string{"editor"},
	})

	require.True(t, f.rec.Login(context.Background(), "awa@example.com", "Password1"))

	require.Eventually(t, func() bool {
		user, ok := f.rec.CurrentUser()
		return ok && len(user.Roles) == 1 && user.Roles[0] == "editor"
	}, waitFor, tick)

	user, ok := f.rec.CurrentUser()
	require.True(t, ok)
	require.Equal(t, "Awa", user.FirstName)
	require.Equal(t, "Amani", user.Organization)
	require.Equal(t, "user", user.Role)
	require.Equal(t, []string{"view_dashboard", "create_articles"}, user.Permissions)
}

func TestLoginBadCredentials(t *testing.T) {
	f := setup(t)
	f.rec.Start(context.Background())
	f.waitResolved(t)

	f.backend.RegisterUser("amara@example.com", "Password1", "", nil)

	require.False(t, f.rec.Login(context.Background(), "amara@example.com", "wrong"))
	require.False(t, f.rec.IsAuthenticated())
	require.False(t, f.rec.IsLoading())
}

func TestLoginIdentityServiceError(t *testing.T) {
	f := setup(t)
	f.rec.Start(context.Background())
	f.waitResolved(t)

	f.backend.SignInErr = errors.New("identity service unreachable")
	require.False(t, f.rec.Login(context.Background(), "amara@example.com", "Password1"))
	require.False(t, f.rec.IsAuthenticated())
}

func TestAdminReceivesFullPermissionSet(t *testing.T) {
	f := setup(t)

	id := f.backend.RegisterUser("admin@example.com", "Password1", "admin", nil)
	f.profiles.Seed(profiles.Row{ID: id, Roles: []string{"editor"}})
	f.backend.SeedSession("admin@example.com")

	f.rec.Start(context.Background())
	f.waitResolved(t)

	require.Eventually(t, func() bool { return f.rec.IsAuthenticated() }, waitFor, tick)
	user, ok := f.rec.CurrentUser()
	require.True(t, ok)
	require.Equal(t, session.RoleAdmin, user.Role)
	require.Contains(t, user.Roles, session.RoleAdmin)
	require.Contains(t, user.Roles, "editor")
	require.Len(t, user.Permissions, 14)
	require.ElementsMatch(t, session.AdminPermissions(), user.Permissions)
	require.True(t, f.rec.HasPermission("anything_at_all"))
}

func TestLogoutClearsEvenWhenRemoteSignOutFails(t *testing.T) {
	f := setup(t)

	f.backend.RegisterUser("amara@example.com", "Password1", "", nil)
	f.backend.SeedSession("amara@example.com")
	f.rec.Start(context.Background())
	f.waitResolved(t)
	require.Eventually(t, func() bool { return f.rec.IsAuthenticated() }, waitFor, tick)

	f.backend.SignOutErr = errors.New("network error")
	f.rec.Logout(context.Background())

	require.False(t, f.rec.IsAuthenticated())
	require.False(t, f.rec.IsLoading())
	require.Equal(t, session.StateUnauthenticated, f.rec.State())
}

func TestSignedOutEventClearsView(t *testing.T) {
	f := setup(t)

	f.backend.RegisterUser("amara@example.com", "Password1", "", nil)
	f.backend.SeedSession("amara@example.com")
	f.rec.Start(context.Background())
	f.waitResolved(t)
	require.Eventually(t, func() bool { return f.rec.IsAuthenticated() }, waitFor, tick)

	f.backend.Emit(backend.SignedOut, nil)

	require.Eventually(t, func() bool { return !f.rec.IsAuthenticated() }, waitFor, tick)
	require.Equal(t, session.StateUnauthenticated, f.rec.State())
}

func TestTokenRefreshPreservesKnownProfileFields(t *testing.T) {
	f := setup(t)

	id := f.backend.RegisterUser("amara@example.com", "Password1", "", nil)
	f.profiles.Seed(profiles.Row{
		ID:           id,
		FirstName:    utils.Ptr("Amara"),
		Organization: utils.Ptr("Amani"),
		Roles:        []string{"editor"},
	})
	sess := f.backend.SeedSession("amara@example.com")

	f.rec.Start(context.Background())
	f.waitResolved(t)
	require.Eventually(t, func() bool { return f.rec.IsAuthenticated() }, waitFor, tick)

	// The refresh-triggered reconciliation fails its profile fetch; known
	// fields must survive the merge.
	f.profiles.GetErr = errors.New("row store down")
	f.backend.Emit(backend.TokenRefreshed, sess)

	require.Never(t, func() bool {
		user, ok := f.rec.CurrentUser()
		return !ok || user.Organization != "Amani" || user.FirstName != "Amara"
	}, 300*time.Millisecond, tick)
}

func TestSignedInEventForDifferentUserStartsClean(t *testing.T) {
	f := setup(t)

	aliceID := f.backend.RegisterUser("alice@example.com", "Password1", "", backend.UserMetadata{
		"first_name": "Alice",
	})
	f.profiles.Seed(profiles.Row{
		ID:           aliceID,
		FirstName:    utils.Ptr("Alice"),
		Organization: utils.Ptr("AmaniHQ"),
		Roles:        []string{"admin"},
	})
	f.backend.SeedSession("alice@example.com")

	f.rec.Start(context.Background())
	f.waitResolved(t)
	require.Eventually(t, func() bool {
		user, ok := f.rec.CurrentUser()
		return ok && user.ID == aliceID && user.IsAdmin()
	}, waitFor, tick)

	// Bob signs in on the same client. He has no profile row; nothing of
	// Alice's view may carry over.
	bobID := f.backend.RegisterUser("bob@example.com", "Password1", "", backend.UserMetadata{
		"first_name": "Bob",
	})
	bobSess := f.backend.SeedSession("bob@example.com")
	f.backend.Emit(backend.SignedIn, bobSess)

	require.Eventually(t, func() bool {
		user, ok := f.rec.CurrentUser()
		return ok && user.ID == bobID
	}, waitFor, tick)

	user, ok := f.rec.CurrentUser()
	require.True(t, ok)
	require.Equal(t, "Bob", user.FirstName)
	require.Equal(t, "user", user.Role)
	require.Equal(t, []string{"user"}, user.Roles)
	require.Empty(t, user.Organization)
	require.Empty(t, user.Permissions)
	require.False(t, f.rec.HasPermission("manage_users"))
}

func TestHasPermission(t *testing.T) {
	f := setup(t)

	// No view published yet.
	require.False(t, f.rec.HasPermission(session.PermViewDashboard))

	id := f.backend.RegisterUser("amara@example.com", "Password1", "", backend.UserMetadata{
		"permissions": []any{"view_dashboard"},
	})
	f.profiles.Seed(profiles.Row{ID: id, Roles: []string{"editor"}})
	f.backend.SeedSession("amara@example.com")

	f.rec.Start(context.Background())
	f.waitResolved(t)
	require.Eventually(t, func() bool { return f.rec.IsAuthenticated() }, waitFor, tick)

	require.True(t, f.rec.HasPermission("view_dashboard"))
	require.False(t, f.rec.HasPermission("manage_users"))
}
