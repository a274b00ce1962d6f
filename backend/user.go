package backend

import (
	"strings"
	"time"

	"github.com/amani-finance/amani-go/internal/utils"
)

// UserMetadata carries loosely typed attributes the identity provider embeds
// in the session (name fragments, avatar, role, permission list).
type UserMetadata map[string]any

// String returns the string under key, or "" when absent or not a string.
func (m UserMetadata) String(key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

// StringList returns the list under key with its string members kept.
// ok reports whether the key is present and holds a list: an empty list is
// valid and distinct from a missing one.
func (m UserMetadata) StringList(key string) (values []string, ok bool) {
	if m == nil {
		return nil, false
	}
	raw, ok := m[key].([]any)
	if !ok {
		return nil, false
	}
	return utils.ToStringSlice(raw), true
}

// User is the identity-provider view of a subject.
type User struct {
	ID           string       `json:"id"`                        // Subject identifier (uuid)
	Email        string       `json:"email"`                     // User's email address
	Role         string       `json:"role,omitempty"`            // Provider-declared role claim
	UserMetadata UserMetadata `json:"user_metadata,omitempty"`   // Provider-supplied metadata
	CreatedAt    time.Time    `json:"created_at,omitempty"`      // When the subject registered
	LastSignInAt time.Time    `json:"last_sign_in_at,omitempty"` // Last successful sign-in
}

// DeclaredRole resolves the provider-declared role: the metadata role wins,
// then the top-level role claim, then "user".
func (u *User) DeclaredRole() string {
	if u == nil {
		return "user"
	}
	return utils.FirstNonEmpty(u.UserMetadata.String("role"), u.Role, "user")
}

// GivenName returns the provider-declared first name, splitting full_name
// when no dedicated field is set.
func (u *User) GivenName() string {
	if u == nil {
		return ""
	}
	if v := u.UserMetadata.String("first_name"); v != "" {
		return v
	}
	parts := strings.Fields(u.UserMetadata.String("full_name"))
	if len(parts) > 0 {
		return parts[0]
	}
	return ""
}

// FamilyName returns the provider-declared last name, splitting full_name
// when no dedicated field is set.
func (u *User) FamilyName() string {
	if u == nil {
		return ""
	}
	if v := u.UserMetadata.String("last_name"); v != "" {
		return v
	}
	parts := strings.Fields(u.UserMetadata.String("full_name"))
	if len(parts) > 1 {
		return strings.Join(parts[1:], " ")
	}
	return ""
}

// AvatarURL returns the provider-declared avatar URL, if any.
func (u *User) AvatarURL() string {
	if u == nil {
		return ""
	}
	return u.UserMetadata.String("avatar_url")
}
