package session

import (
	"strings"

	"github.com/amani-finance/amani-go/backend"
	"github.com/amani-finance/amani-go/internal/utils"
	"github.com/amani-finance/amani-go/profiles"
)

// defaultFirstName is the site's display fallback when neither the profile
// row nor the provider metadata declares a name.
const defaultFirstName = "Utilisateur"

// User is the single reconciled, consumer-facing view of who is signed in
// and what they may do. The reconciler owns the authoritative copy;
// consumers receive snapshots.
type User struct {
	ID           string
	Email        string
	FirstName    string
	LastName     string
	Organization string
	AvatarURL    string
	Metadata     backend.UserMetadata
	Role         string   // "admin" exactly when Roles contains "admin"
	Roles        []string // never empty once published
	Permissions  []string // never nil once published; empty is valid
}

// FullName joins the display name parts.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsAdmin reports whether the resolved role is administrative.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) snapshot() User {
	copied := *u
	copied.Roles = copyStrings(u.Roles)
	copied.Permissions = copyStrings(u.Permissions)
	return copied
}

// buildView runs one reconciliation merge: provider identity + optional
// profile row + previously published view. Profile-backed fields fall back
// to the previous view before provider metadata, so a failed or partial
// fetch never regresses known data. loginMerge selects the reduced default
// permission set used only by the post-login background merge.
func buildView(providerUser *backend.User, row *profiles.Row, prev *User, loginMerge bool) *User {
	var prevView User
	if prev != nil {
		prevView = *prev
	}
	var rowView profiles.Row
	if row != nil {
		rowView = *row
	}

	view := &User{
		ID:       providerUser.ID,
		Email:    utils.FirstNonEmpty(providerUser.Email, prevView.Email),
		Metadata: providerUser.UserMetadata,
	}

	view.FirstName = utils.FirstNonEmpty(
		utils.Value(rowView.FirstName),
		prevView.FirstName,
		providerUser.GivenName(),
		defaultFirstName,
	)
	view.LastName = utils.FirstNonEmpty(
		utils.Value(rowView.LastName),
		prevView.LastName,
		providerUser.FamilyName(),
	)
	view.Organization = utils.FirstNonEmpty(
		utils.Value(rowView.Organization),
		prevView.Organization,
	)
	view.AvatarURL = utils.FirstNonEmpty(
		utils.Value(rowView.AvatarURL),
		prevView.AvatarURL,
		providerUser.AvatarURL(),
	)

	declared := providerUser.DeclaredRole()

	roles := copyStrings(rowView.Roles)
	if len(roles) == 0 {
		roles = copyStrings(prevView.Roles)
	}
	if len(roles) == 0 {
		roles = []string{declared}
	}

	isAdmin := containsString(roles, RoleAdmin) || declared == RoleAdmin
	if isAdmin && !containsString(roles, RoleAdmin) {
		// The provider admin flag wins; widen the list so Role and Roles
		// always agree.
		roles = append([]string{RoleAdmin}, roles...)
	}

	if isAdmin {
		view.Role = RoleAdmin
	} else {
		view.Role = declared
	}
	view.Roles = roles
	view.Permissions = derivePermissions(providerUser, isAdmin, loginMerge)
	return view
}

func derivePermissions(providerUser *backend.User, isAdmin, loginMerge bool) []string {
	if isAdmin {
		return copyStrings(adminPermissions)
	}
	if perms, ok := providerUser.UserMetadata.StringList("permissions"); ok {
		return perms
	}
	if loginMerge {
		return copyStrings(authorPermissions)
	}
	return []string{}
}

// minimalView is published immediately after a successful password sign-in,
// before any profile fetch: provider-declared name parts, the declared role,
// and the dashboard permission only.
func minimalView(providerUser *backend.User) *User {
	declared := providerUser.DeclaredRole()
	return &User{
		ID:          providerUser.ID,
		Email:       providerUser.Email,
		FirstName:   utils.FirstNonEmpty(providerUser.GivenName(), defaultFirstName),
		LastName:    providerUser.FamilyName(),
		AvatarURL:   providerUser.AvatarURL(),
		Metadata:    providerUser.UserMetadata,
		Role:        declared,
		Roles:       []string{declared},
		Permissions: []string{PermViewDashboard},
	}
}
