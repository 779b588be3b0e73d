package repository

import (
	"context"

	"blindbox/internal/domain"
	"blindbox/internal/errs"

	"github.com/jackc/pgx/v5"
)

type RedemptionRepository struct {
	db Querier
}

func NewRedemptionRepository(db Querier) *RedemptionRepository {
	return &RedemptionRepository{db: db}
}

func (r *RedemptionRepository) Create(ctx context.Context, rec *domain.RedemptionRecord) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO redemptions (pool, box_id, account_id, reward_kind, reward_variant, quantity, payout)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		string(rec.Pool),
		int64(rec.BoxID),
		rec.AccountID,
		string(rec.Reward.Kind),
		int16(rec.Reward.Variant),
		int64(rec.Quantity),
		int64(rec.Payout),
	).Scan(&rec.ID, &rec.CreatedAt)
	return errs.Wrap(err, "create redemption")
}

func (r *RedemptionRepository) ByAccount(ctx context.Context, account int64, limit int) ([]*domain.RedemptionRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, pool, box_id, account_id, reward_kind, reward_variant, quantity, payout, created_at
		 FROM redemptions
		 WHERE account_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		account, limit,
	)
	if err != nil {
		return nil, errs.Wrap(err, "redemptions by account")
	}
	defer rows.Close()
	return scanRedemptions(rows)
}

func (r *RedemptionRepository) ByBox(ctx context.Context, pool domain.Pool, id domain.BoxID) ([]*domain.RedemptionRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, pool, box_id, account_id, reward_kind, reward_variant, quantity, payout, created_at
		 FROM redemptions
		 WHERE pool = $1 AND box_id = $2
		 ORDER BY created_at DESC, id DESC`,
		string(pool), int64(id),
	)
	if err != nil {
		return nil, errs.Wrap(err, "redemptions by box")
	}
	defer rows.Close()
	return scanRedemptions(rows)
}

func scanRedemptions(rows pgx.Rows) ([]*domain.RedemptionRecord, error) {
	var out []*domain.RedemptionRecord
	for rows.Next() {
		var (
			rec      domain.RedemptionRecord
			pool     string
			boxID    int64
			kind     string
			variant  int16
			quantity int64
			payout   int64
		)
		if err := rows.Scan(&rec.ID, &pool, &boxID, &rec.AccountID, &kind, &variant, &quantity, &payout, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Pool = domain.Pool(pool)
		rec.BoxID = domain.BoxID(boxID)
		rec.Reward = domain.RewardCategory{Kind: domain.RewardKind(kind), Variant: domain.Variant(variant)}
		rec.Quantity = uint64(quantity)
		rec.Payout = uint64(payout)
		out = append(out, &rec)
	}
	return out, rows.Err()
}
