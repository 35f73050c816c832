package adapter

import "context"

// Account is the identity provider's view of a user. Only the fields the
// application consumes are surfaced.
type Account struct {
	ID    string
	Email string
}

// IdentityProvider is the port for the external auth service (GoTrue-style
// email/password identity). The application never stores credentials; it
// exchanges them for an account reference and keeps its own profile row.
type IdentityProvider interface {
	// Authenticate verifies email/password and returns the account.
	// Wrong credentials map to domain.ErrAuthFailed.
	Authenticate(ctx context.Context, email, password string) (*Account, error)
	// CreateAccount registers a new identity. An existing email maps to
	// domain.ErrAlreadyRegistered.
	CreateAccount(ctx context.Context, email, password, displayName string) (*Account, error)
	// EndSession invalidates the provider-side session for the account, used
	// when a disabled account is rejected right after authenticating.
	EndSession(ctx context.Context, accountID string) error
}
