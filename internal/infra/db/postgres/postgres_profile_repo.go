package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"flash-code/internal/domain"
	"flash-code/internal/domain/model"
	"flash-code/internal/domain/ports/repository"
)

var _ repository.ProfileRepository = (*profileRepo)(nil)

type profileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) repository.ProfileRepository {
	return &profileRepo{pool: pool}
}

const profileColumns = `id, email, display_name, is_admin, is_active, created_at`

func (r *profileRepo) Save(ctx context.Context, tx repository.Tx, p *model.Profile) error {
	const q = `
INSERT INTO profiles (id, email, display_name, is_admin, is_active, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
  email = EXCLUDED.email,
  display_name = EXCLUDED.display_name,
  is_admin = EXCLUDED.is_admin,
  is_active = EXCLUDED.is_active;
`
	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.Email, p.DisplayName, p.IsAdmin, p.IsActive, p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrStoreFailure
	}
	return nil
}

func (r *profileRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Profile, error) {
	const q = `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}

	var p model.Profile
	err = row.Scan(&p.ID, &p.Email, &p.DisplayName, &p.IsAdmin, &p.IsActive, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &p, nil
}

func (r *profileRepo) SetActive(ctx context.Context, tx repository.Tx, id string, active bool) error {
	const q = `UPDATE profiles SET is_active = $2 WHERE id = $1;`
	tag, err := execSQL(ctx, r.pool, tx, q, id, active)
	if err != nil {
		return domain.ErrStoreFailure
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *profileRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Profile, error) {
	const q = `SELECT ` + profileColumns + ` FROM profiles ORDER BY created_at DESC;`
	rows, err := pickRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, domain.ErrStoreFailure
	}
	defer rows.Close()

	var out []*model.Profile
	for rows.Next() {
		var p model.Profile
		if err := rows.Scan(&p.ID, &p.Email, &p.DisplayName, &p.IsAdmin, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, &p)
	}
	if rows.Err() != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *profileRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	return r.countWhere(ctx, tx, `SELECT COUNT(*) FROM profiles;`)
}

func (r *profileRepo) CountActiveUsers(ctx context.Context, tx repository.Tx) (int, error) {
	return r.countWhere(ctx, tx, `SELECT COUNT(*) FROM profiles WHERE is_active;`)
}

func (r *profileRepo) countWhere(ctx context.Context, tx repository.Tx, q string) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, q)
	if err != nil {
		return 0, domain.ErrStoreFailure
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}
