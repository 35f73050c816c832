package repository

import (
	"context"
	"time"

	"flash-code/internal/domain/model"
)

// CodeStats summarizes the code table for the admin dashboard.
type CodeStats struct {
	Total  int
	Used   int
	Unused int
}

// ActivationCodeRepository is the port for managing activation codes.
type ActivationCodeRepository interface {
	// Insert stores a single new, unused code. A uniqueness violation on the
	// code column is reported as domain.ErrDuplicateCode.
	Insert(ctx context.Context, tx Tx, code *model.ActivationCode) error
	// InsertBatch stores several new codes as one atomic operation: either
	// all rows land or none do.
	InsertBatch(ctx context.Context, tx Tx, codes []*model.ActivationCode) error
	// Redeem atomically marks an unused code as used by userID at usedAt.
	// It must be a single conditional write (is_used = FALSE re-checked at
	// update time); when no unused row matches it returns
	// domain.ErrInvalidOrUsedCode.
	Redeem(ctx context.Context, tx Tx, code string, userID string, usedAt time.Time) (*model.ActivationCode, error)
	// FindByCode returns a code row by its normalized code string.
	FindByCode(ctx context.Context, tx Tx, code string) (*model.ActivationCode, error)
	// ClaimUnused locates an unused code and, when running inside a
	// transaction, row-locks it so the caller can finish redemption after an
	// external call without racing a concurrent redeemer. A used or missing
	// code returns domain.ErrInvalidOrUsedCode.
	ClaimUnused(ctx context.Context, tx Tx, code string) (*model.ActivationCode, error)
	// Delete removes a code by id regardless of its used state. Deleting a
	// missing id is not an error.
	Delete(ctx context.Context, tx Tx, id string) error
	// DeleteMany removes all codes whose ids match; unknown ids are ignored.
	DeleteMany(ctx context.Context, tx Tx, ids []string) (int64, error)
	// DeleteAllUsed removes every redeemed code and reports how many went.
	DeleteAllUsed(ctx context.Context, tx Tx) (int64, error)
	// ListAll returns all codes, newest first.
	ListAll(ctx context.Context, tx Tx) ([]*model.ActivationCode, error)
	// CountStats aggregates total/used/unused counts.
	CountStats(ctx context.Context, tx Tx) (*CodeStats, error)
}
