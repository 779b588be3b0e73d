package repository

import (
	"context"
	"errors"

	"blindbox/internal/domain"
	"blindbox/internal/errs"

	"github.com/jackc/pgx/v5"
)

type InventoryRepository struct {
	db Querier
}

func NewInventoryRepository(db Querier) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// TryDeduct is a single guarded UPDATE, so concurrent callers can never take
// the counter below zero.
func (r *InventoryRepository) TryDeduct(ctx context.Context, counter domain.Counter, amount uint64) (bool, error) {
	var remaining int64
	err := r.db.QueryRow(ctx,
		`UPDATE inventory SET remaining = remaining - $2, updated_at = NOW()
		 WHERE counter = $1 AND remaining >= $2
		 RETURNING remaining`,
		string(counter), int64(amount),
	).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, errs.Wrap(err, "deduct inventory")
	}
	return true, nil
}

func (r *InventoryRepository) Set(ctx context.Context, counter domain.Counter, value uint64) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO inventory (counter, remaining) VALUES ($1, $2)
		 ON CONFLICT (counter) DO UPDATE SET remaining = EXCLUDED.remaining, updated_at = NOW()`,
		string(counter), int64(value),
	)
	return errs.Wrap(err, "set inventory")
}

func (r *InventoryRepository) Get(ctx context.Context, counter domain.Counter) (uint64, error) {
	var remaining int64
	err := r.db.QueryRow(ctx,
		`SELECT remaining FROM inventory WHERE counter = $1`,
		string(counter),
	).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, errs.Wrap(err, "get inventory")
	}
	return uint64(remaining), nil
}

func (r *InventoryRepository) All(ctx context.Context) (map[domain.Counter]uint64, error) {
	rows, err := r.db.Query(ctx, `SELECT counter, remaining FROM inventory`)
	if err != nil {
		return nil, errs.Wrap(err, "list inventory")
	}
	defer rows.Close()

	out := make(map[domain.Counter]uint64, len(domain.Counters))
	for _, c := range domain.Counters {
		out[c] = 0
	}
	for rows.Next() {
		var (
			name      string
			remaining int64
		)
		if err := rows.Scan(&name, &remaining); err != nil {
			return nil, err
		}
		out[domain.Counter(name)] = uint64(remaining)
	}
	return out, rows.Err()
}
