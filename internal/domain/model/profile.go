package model

import (
	"strings"
	"time"

	"flash-code/internal/domain"
)

// Profile is the application-side record for an identity-provider account.
// The provider owns credentials; we own the admin/active flags.
type Profile struct {
	ID          string
	Email       string
	DisplayName string
	IsAdmin     bool
	IsActive    bool
	CreatedAt   time.Time
}

// NewProfile creates an active, non-admin profile for a freshly registered
// account. The id comes from the identity provider and is mandatory.
func NewProfile(id, email string) (*Profile, error) {
	if id == "" || email == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Profile{
		ID:          id,
		Email:       email,
		DisplayName: DisplayNameFromEmail(email),
		IsAdmin:     false,
		IsActive:    true,
		CreatedAt:   time.Now(),
	}, nil
}

// CanSignIn reports whether the account may open a session. Admins bypass
// the active flag so a deactivated admin cannot lock everyone out.
func (p *Profile) CanSignIn() bool {
	return p.IsActive || p.IsAdmin
}

// DisplayNameFromEmail derives the default display name from the local part
// of an email address.
func DisplayNameFromEmail(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}
