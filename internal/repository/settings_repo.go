package repository

import (
	"context"
	"errors"

	"blindbox/internal/errs"

	"github.com/jackc/pgx/v5"
)

// SettingsRepository stores singleton values in the settings row (id = 1).
type SettingsRepository struct {
	db Querier
}

func NewSettingsRepository(db Querier) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) Issuer(ctx context.Context) (int64, bool, error) {
	var issuer *int64
	err := r.db.QueryRow(ctx, `SELECT issuer_id FROM settings WHERE id = 1`).Scan(&issuer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, errs.Wrap(err, "get issuer")
	}
	if issuer == nil {
		return 0, false, nil
	}
	return *issuer, true, nil
}

func (r *SettingsRepository) SetIssuer(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO settings (id, issuer_id) VALUES (1, $1)
		 ON CONFLICT (id) DO UPDATE SET issuer_id = EXCLUDED.issuer_id`,
		id,
	)
	return errs.Wrap(err, "set issuer")
}

func (r *SettingsRepository) NextNonce(ctx context.Context) (uint64, error) {
	var next int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO settings (id, nonce) VALUES (1, 1)
		 ON CONFLICT (id) DO UPDATE SET nonce = settings.nonce + 1
		 RETURNING nonce`,
	).Scan(&next)
	if err != nil {
		return 0, errs.Wrap(err, "advance nonce")
	}
	return uint64(next - 1), nil
}
