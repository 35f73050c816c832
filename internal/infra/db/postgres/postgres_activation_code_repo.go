package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"flash-code/internal/domain"
	"flash-code/internal/domain/model"
	"flash-code/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.ActivationCodeRepository = (*activationCodeRepo)(nil)

// uniqueViolation is the Postgres error code for a unique constraint breach.
const uniqueViolation = "23505"

type activationCodeRepo struct {
	pool *pgxpool.Pool
}

func NewActivationCodeRepo(pool *pgxpool.Pool) repository.ActivationCodeRepository {
	return &activationCodeRepo{pool: pool}
}

const codeColumns = `id, code, is_used, used_by, used_at, created_by, created_at`

func (r *activationCodeRepo) Insert(ctx context.Context, tx repository.Tx, code *model.ActivationCode) error {
	const q = `
INSERT INTO activation_codes (id, code, is_used, used_by, used_at, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7);
`
	_, err := execSQL(ctx, r.pool, tx, q,
		code.ID, code.Code, code.IsUsed, code.UsedBy, code.UsedAt, code.CreatedBy, code.CreatedAt,
	)
	return mapInsertErr(err)
}

// InsertBatch inserts all codes inside one transaction so a uniqueness
// violation on any row leaves none of them behind.
func (r *activationCodeRepo) InsertBatch(ctx context.Context, tx repository.Tx, codes []*model.ActivationCode) error {
	if len(codes) == 0 {
		return nil
	}
	if tx != nil {
		return r.insertAll(ctx, tx, codes)
	}

	btx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.ErrStoreFailure
	}
	defer func() { _ = btx.Rollback(ctx) }()

	if err := r.insertAll(ctx, btx, codes); err != nil {
		return err
	}
	if err := btx.Commit(ctx); err != nil {
		return domain.ErrStoreFailure
	}
	return nil
}

func (r *activationCodeRepo) insertAll(ctx context.Context, tx repository.Tx, codes []*model.ActivationCode) error {
	for _, c := range codes {
		if err := r.Insert(ctx, tx, c); err != nil {
			return err
		}
	}
	return nil
}

// Redeem is the critical section of the whole registry: a single conditional
// UPDATE re-checks is_used = FALSE at write time, so two concurrent attempts
// on the same code can never both succeed.
func (r *activationCodeRepo) Redeem(ctx context.Context, tx repository.Tx, code string, userID string, usedAt time.Time) (*model.ActivationCode, error) {
	const q = `
UPDATE activation_codes
   SET is_used = TRUE, used_by = $2, used_at = $3
 WHERE code = $1 AND is_used = FALSE
RETURNING ` + codeColumns + `;
`
	row, err := pickRow(ctx, r.pool, tx, q, code, userID, usedAt)
	if err != nil {
		return nil, err
	}

	ac, err := scanCode(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Never-existed and already-used are deliberately indistinguishable.
			return nil, domain.ErrInvalidOrUsedCode
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return ac, nil
}

// ClaimUnused row-locks an unused code when called inside a transaction,
// so the signup flow can hold the claim across the identity-provider call
// and finish (or abandon) the redemption atomically.
func (r *activationCodeRepo) ClaimUnused(ctx context.Context, tx repository.Tx, code string) (*model.ActivationCode, error) {
	q := `SELECT ` + codeColumns + ` FROM activation_codes WHERE code = $1 AND is_used = FALSE`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"

	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return nil, err
	}
	ac, err := scanCode(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInvalidOrUsedCode
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return ac, nil
}

func (r *activationCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.ActivationCode, error) {
	const q = `SELECT ` + codeColumns + ` FROM activation_codes WHERE code = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return nil, err
	}

	ac, err := scanCode(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return ac, nil
}

// Delete removes a code by id. The source system allows deleting used codes
// too, dropping their redemption audit record; that behavior is preserved.
func (r *activationCodeRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	const q = `DELETE FROM activation_codes WHERE id = $1;`
	if _, err := execSQL(ctx, r.pool, tx, q, id); err != nil {
		return domain.ErrStoreFailure
	}
	return nil
}

func (r *activationCodeRepo) DeleteMany(ctx context.Context, tx repository.Tx, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	const q = `DELETE FROM activation_codes WHERE id = ANY($1);`
	tag, err := execSQL(ctx, r.pool, tx, q, ids)
	if err != nil {
		return 0, domain.ErrStoreFailure
	}
	return tag.RowsAffected(), nil
}

func (r *activationCodeRepo) DeleteAllUsed(ctx context.Context, tx repository.Tx) (int64, error) {
	const q = `DELETE FROM activation_codes WHERE is_used = TRUE;`
	tag, err := execSQL(ctx, r.pool, tx, q)
	if err != nil {
		return 0, domain.ErrStoreFailure
	}
	return tag.RowsAffected(), nil
}

func (r *activationCodeRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.ActivationCode, error) {
	const q = `SELECT ` + codeColumns + ` FROM activation_codes ORDER BY created_at DESC;`
	rows, err := pickRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, domain.ErrStoreFailure
	}
	defer rows.Close()

	var out []*model.ActivationCode
	for rows.Next() {
		ac, err := scanCode(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, ac)
	}
	if rows.Err() != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *activationCodeRepo) CountStats(ctx context.Context, tx repository.Tx) (*repository.CodeStats, error) {
	const q = `
SELECT COUNT(*),
       COUNT(*) FILTER (WHERE is_used),
       COUNT(*) FILTER (WHERE NOT is_used)
  FROM activation_codes;
`
	row, err := pickRow(ctx, r.pool, tx, q)
	if err != nil {
		return nil, domain.ErrStoreFailure
	}
	var st repository.CodeStats
	if err := row.Scan(&st.Total, &st.Used, &st.Unused); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return &st, nil
}

func scanCode(row pgx.Row) (*model.ActivationCode, error) {
	var ac model.ActivationCode
	err := row.Scan(&ac.ID, &ac.Code, &ac.IsUsed, &ac.UsedBy, &ac.UsedAt, &ac.CreatedBy, &ac.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &ac, nil
}

// mapInsertErr distinguishes the unique-constraint breach on the code column
// from any other store failure so callers can render a specific message.
func mapInsertErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrDuplicateCode
	}
	if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
		return err
	}
	return domain.ErrStoreFailure
}
