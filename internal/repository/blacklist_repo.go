package repository

import (
	"context"

	"blindbox/internal/errs"
)

type BlacklistRepository struct {
	db Querier
}

func NewBlacklistRepository(db Querier) *BlacklistRepository {
	return &BlacklistRepository{db: db}
}

func (r *BlacklistRepository) Contains(ctx context.Context, account int64) (bool, error) {
	var listed bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM blacklist WHERE account_id = $1)`,
		account,
	).Scan(&listed)
	if err != nil {
		return false, errs.Wrap(err, "blacklist contains")
	}
	return listed, nil
}

func (r *BlacklistRepository) Add(ctx context.Context, account int64) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO blacklist (account_id) VALUES ($1) ON CONFLICT DO NOTHING`,
		account,
	)
	if err != nil {
		return false, errs.Wrap(err, "blacklist add")
	}
	return tag.RowsAffected() == 1, nil
}

func (r *BlacklistRepository) Remove(ctx context.Context, account int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM blacklist WHERE account_id = $1`, account)
	if err != nil {
		return false, errs.Wrap(err, "blacklist remove")
	}
	return tag.RowsAffected() == 1, nil
}

func (r *BlacklistRepository) List(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT account_id FROM blacklist ORDER BY account_id`)
	if err != nil {
		return nil, errs.Wrap(err, "blacklist list")
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
