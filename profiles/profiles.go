package profiles

import (
	"time"
)

// Row is the denormalized, app-owned profile record keyed by subject id.
// Attribute fields are independently optional: the row store may return any
// subset of them, and a missing row is not an error.
type Row struct {
	ID           string    `json:"id,omitempty"`
	Email        string    `json:"email,omitempty"`
	FirstName    *string   `json:"first_name,omitempty"`
	LastName     *string   `json:"last_name,omitempty"`
	Organization *string   `json:"organization,omitempty"`
	AvatarURL    *string   `json:"avatar_url,omitempty"`
	Roles        []string  `json:"roles,omitempty"`
	Phone        *string   `json:"phone,omitempty"`
	Location     *string   `json:"location,omitempty"`
	LinkedIn     *string   `json:"linkedin,omitempty"`
	Twitter      *string   `json:"twitter,omitempty"`
	Bio          *string   `json:"bio,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// HasRole reports whether the row's role list contains role.
func (r Row) HasRole(role string) bool {
	for _, candidate := range r.Roles {
		if candidate == role {
			return true
		}
	}
	return false
}

// Patch carries a partial profile update. Nil fields are left untouched.
type Patch struct {
	FirstName    *string  `json:"first_name,omitempty"`
	LastName     *string  `json:"last_name,omitempty"`
	Organization *string  `json:"organization,omitempty"`
	AvatarURL    *string  `json:"avatar_url,omitempty"`
	Phone        *string  `json:"phone,omitempty"`
	Location     *string  `json:"location,omitempty"`
	LinkedIn     *string  `json:"linkedin,omitempty"`
	Twitter      *string  `json:"twitter,omitempty"`
	Bio          *string  `json:"bio,omitempty"`
	Roles        []string `json:"roles,omitempty"`
	UpdatedAt    string   `json:"updated_at,omitempty"`
}
