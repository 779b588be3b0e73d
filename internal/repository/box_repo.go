package repository

import (
	"context"
	"errors"
	"math"

	"blindbox/internal/domain"
	"blindbox/internal/errs"

	"github.com/jackc/pgx/v5"
)

type BoxRepository struct {
	db Querier
}

func NewBoxRepository(db Querier) *BoxRepository {
	return &BoxRepository{db: db}
}

func (r *BoxRepository) Exists(ctx context.Context, pool domain.Pool, id domain.BoxID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM boxes WHERE pool = $1 AND box_id = $2)`,
		string(pool), int64(id),
	).Scan(&exists)
	if err != nil {
		return false, errs.Wrap(err, "box exists")
	}
	return exists, nil
}

func (r *BoxRepository) Insert(ctx context.Context, pool domain.Pool, id domain.BoxID) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO boxes (pool, box_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		string(pool), int64(id),
	)
	if err != nil {
		return false, errs.Wrap(err, "insert box")
	}
	return tag.RowsAffected() == 1, nil
}

func (r *BoxRepository) Remove(ctx context.Context, pool domain.Pool, id domain.BoxID) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM boxes WHERE pool = $1 AND box_id = $2`,
		string(pool), int64(id),
	)
	if err != nil {
		return false, errs.Wrap(err, "remove box")
	}
	return tag.RowsAffected() == 1, nil
}

func (r *BoxRepository) Count(ctx context.Context, pool domain.Pool) (uint32, error) {
	var n int64
	err := r.db.QueryRow(ctx,
		`SELECT remaining FROM pools WHERE kind = $1 FOR UPDATE`,
		string(pool),
	).Scan(&n)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, errs.Wrapf(errs.ErrInvalidPool, "pool %s", pool)
		}
		return 0, errs.Wrap(err, "pool count")
	}
	return uint32(n), nil
}

func (r *BoxRepository) SetCount(ctx context.Context, pool domain.Pool, n uint32) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE pools SET remaining = $2 WHERE kind = $1`,
		string(pool), int64(n),
	)
	if err != nil {
		return errs.Wrap(err, "set pool count")
	}
	if tag.RowsAffected() == 0 {
		return errs.Wrapf(errs.ErrInvalidPool, "pool %s", pool)
	}
	return nil
}

func (r *BoxRepository) AddCount(ctx context.Context, pool domain.Pool, n uint32) (uint32, error) {
	var remaining int64
	err := r.db.QueryRow(ctx,
		`UPDATE pools SET remaining = remaining + $2
		 WHERE kind = $1 AND remaining + $2 <= $3
		 RETURNING remaining`,
		string(pool), int64(n), int64(math.MaxUint32),
	).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, errs.Wrapf(errs.ErrArithmeticOverflow, "pool %s count + %d", pool, n)
		}
		return 0, errs.Wrap(err, "add pool count")
	}
	return uint32(remaining), nil
}

func (r *BoxRepository) DecrementCount(ctx context.Context, pool domain.Pool) (uint32, error) {
	var remaining int64
	err := r.db.QueryRow(ctx,
		`UPDATE pools SET remaining = remaining - 1
		 WHERE kind = $1 AND remaining > 0
		 RETURNING remaining`,
		string(pool),
	).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, errs.Wrapf(errs.ErrCounterUnderflow, "pool %s count", pool)
		}
		return 0, errs.Wrap(err, "decrement pool count")
	}
	return uint32(remaining), nil
}

func (r *BoxRepository) List(ctx context.Context, pool domain.Pool, limit int) ([]domain.BoxID, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx,
		`SELECT box_id FROM boxes WHERE pool = $1 ORDER BY box_id LIMIT $2`,
		string(pool), limit,
	)
	if err != nil {
		return nil, errs.Wrap(err, "list boxes")
	}
	defer rows.Close()

	var ids []domain.BoxID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, domain.BoxID(id))
	}
	return ids, rows.Err()
}
