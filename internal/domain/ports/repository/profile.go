package repository

import (
	"context"

	"flash-code/internal/domain/model"
)

// ProfileRepository is the port for user profiles (admin/active flags).
// Credentials live with the identity provider; this table is ours.
type ProfileRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Profile) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Profile, error)
	// SetActive flips the is_active flag. A missing profile returns
	// domain.ErrNotFound.
	SetActive(ctx context.Context, tx Tx, id string, active bool) error
	// ListAll returns all profiles, newest first.
	ListAll(ctx context.Context, tx Tx) ([]*model.Profile, error)
	CountUsers(ctx context.Context, tx Tx) (int, error)
	CountActiveUsers(ctx context.Context, tx Tx) (int, error)
}
