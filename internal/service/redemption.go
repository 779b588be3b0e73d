package service

import (
	"context"

	"blindbox/internal/config"
	"blindbox/internal/domain"
	"blindbox/internal/errs"
	"blindbox/internal/events"
	"blindbox/internal/game"
	"blindbox/internal/logger"
	"blindbox/internal/metrics"
	"blindbox/internal/random"
	"blindbox/internal/repository"
)

// RedemptionService opens boxes. Each call is one unit of work: either the box
// is consumed, the fee taken and the outcome recorded, or nothing changes.
type RedemptionService struct {
	store    repository.Store
	selector *game.Selector
	drawer   *random.Drawer
	pub      events.Publisher
	audit    *AuditService

	fee               uint64
	treasury          int64
	chargeBlacklisted bool
}

func NewRedemptionService(
	store repository.Store,
	selector *game.Selector,
	drawer *random.Drawer,
	pub events.Publisher,
	audit *AuditService,
	cfg *config.Config,
) *RedemptionService {
	if pub == nil {
		pub = events.Nop{}
	}
	return &RedemptionService{
		store:             store,
		selector:          selector,
		drawer:            drawer,
		pub:               pub,
		audit:             audit,
		fee:               cfg.Redemption.Fee,
		treasury:          cfg.Ledger.TreasuryID,
		chargeBlacklisted: cfg.Redemption.ChargeBlacklisted,
	}
}

// Redeem opens box id for requester. The standard pool is searched before
// the special pool.
func (s *RedemptionService) Redeem(ctx context.Context, requester int64, id domain.BoxID) (*domain.RedemptionResult, error) {
	var (
		result  *domain.RedemptionResult
		pending []domain.Event
		denied  bool
		pool    domain.Pool
		left    uint32
	)

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		// fn may run again after a retryable conflict
		result, pending, denied = nil, nil, false

		var err error
		if pool, err = locate(ctx, tx.Boxes(), id); err != nil {
			return err
		}

		blacklisted, err := tx.Blacklist().Contains(ctx, requester)
		if err != nil {
			return err
		}
		if blacklisted && !s.chargeBlacklisted {
			return errs.Wrapf(errs.ErrBlacklisted, "account %d", requester)
		}

		if err := s.chargeFee(ctx, tx, requester, pool, id); err != nil {
			return err
		}
		if blacklisted {
			// the fee stays with the treasury
			denied = true
			return tx.Audit().Create(ctx, &domain.AuditLog{
				ActorID:  requester,
				Action:   domain.AuditActionRedeemDenied,
				Category: domain.AuditCategoryRedemption,
				Details:  map[string]any{"pool": string(pool), "box_id": uint32(id), "fee": s.fee},
			})
		}

		removed, err := tx.Boxes().Remove(ctx, pool, id)
		if err != nil {
			return err
		}
		if !removed {
			return errs.Wrapf(errs.ErrBoxNotFound, "box %d already redeemed", id)
		}
		if left, err = tx.Boxes().DecrementCount(ctx, pool); err != nil {
			return err
		}

		nonce, err := tx.Settings().NextNonce(ctx)
		if err != nil {
			return err
		}
		out, err := s.selector.Open(ctx, tx.Inventory(), s.drawer.Scoped(pool.Index(), nonce), uint32(id))
		if err != nil {
			return err
		}

		result = &domain.RedemptionResult{Pool: pool, BoxID: id, Outcome: domain.OutcomeNoWin, Fee: s.fee}
		if !out.Won {
			pending = append(pending, domain.GoodLuckNextTimeEvent(pool, id, requester))
		} else {
			rec := &domain.RedemptionRecord{
				Pool:      pool,
				BoxID:     id,
				AccountID: requester,
				Reward:    out.Reward,
				Quantity:  out.Quantity,
				Payout:    out.Payout,
			}
			if err := tx.Redemptions().Create(ctx, rec); err != nil {
				return err
			}
			if err := s.payOut(ctx, tx, rec); err != nil {
				return err
			}
			result.Outcome = domain.OutcomeWon
			result.Record = rec
			pending = append(pending, domain.BoxOpenedEvent(rec))
		}

		for i := range pending {
			if err := tx.Events().Append(ctx, &pending[i]); err != nil {
				return err
			}
		}

		return s.auditOutcome(ctx, tx, requester, result, out)
	})
	if err != nil {
		s.onError(ctx, requester, id, err)
		return nil, err
	}

	if denied {
		metrics.RedemptionErrors.WithLabelValues("blacklisted").Inc()
		logger.Warn("blacklisted redeemer charged", "account", requester, "pool", pool, "box_id", id, "fee", s.fee)
		return nil, errs.Wrapf(errs.ErrBlacklisted, "account %d", requester)
	}

	metrics.ObservePool(pool, left)
	metrics.Redemptions.WithLabelValues(string(result.Pool), result.Outcome).Inc()
	if result.Won() {
		metrics.RewardsAwarded.WithLabelValues(result.Record.Reward.String()).Inc()
		logger.Info("box opened",
			"account", requester, "pool", result.Pool, "box_id", id,
			"reward", result.Record.Reward.String(), "quantity", result.Record.Quantity)
	} else {
		logger.Debug("box opened without reward", "account", requester, "pool", result.Pool, "box_id", id)
	}

	s.pub.Publish(ctx, pending...)
	return result, nil
}

func locate(ctx context.Context, boxes repository.Boxes, id domain.BoxID) (domain.Pool, error) {
	for _, p := range domain.Pools {
		ok, err := boxes.Exists(ctx, p, id)
		if err != nil {
			return "", err
		}
		if ok {
			return p, nil
		}
	}
	return "", errs.Wrapf(errs.ErrBoxNotFound, "box %d", id)
}

func (s *RedemptionService) chargeFee(ctx context.Context, tx repository.Tx, requester int64, pool domain.Pool, id domain.BoxID) error {
	if s.fee == 0 {
		return nil
	}
	err := tx.Accounts().Transfer(ctx, requester, s.treasury, s.fee, domain.KeepAlive, domain.TxRedemptionFee,
		map[string]any{"pool": string(pool), "box_id": uint32(id)})
	if err == nil {
		return nil
	}
	return paymentError(err, "redemption fee")
}

// payOut sends a utility win from the issuer to the winner.
func (s *RedemptionService) payOut(ctx context.Context, tx repository.Tx, rec *domain.RedemptionRecord) error {
	if rec.Payout == 0 {
		return nil
	}
	issuer, ok, err := tx.Settings().Issuer(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return errs.Wrap(errs.ErrPaymentFailed, "no issuer to pay reward from")
	}
	err = tx.Accounts().Transfer(ctx, issuer, rec.AccountID, rec.Payout, domain.KeepAlive, domain.TxRewardPayout,
		map[string]any{"redemption_id": rec.ID, "reward": rec.Reward.String()})
	return paymentError(err, "reward payout")
}

// paymentError marks refused transfers as payment failures. Storage and
// context errors pass through unmarked.
func paymentError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errs.IsLedger(err) && !errs.IsInvariant(err) {
		return errs.Wrap(errs.Mark(err, errs.ErrPaymentFailed), msg)
	}
	return errs.Wrap(err, msg)
}

func (s *RedemptionService) auditOutcome(ctx context.Context, tx repository.Tx, requester int64, res *domain.RedemptionResult, out game.Outcome) error {
	details := map[string]any{
		"pool":   string(res.Pool),
		"box_id": uint32(res.BoxID),
		"fee":    res.Fee,
		"tier":   out.Tier.String(),
	}
	action := domain.AuditActionRedeemNoWin
	if res.Record != nil {
		action = domain.AuditActionRedeemWin
		details["reward"] = res.Record.Reward.String()
		details["quantity"] = res.Record.Quantity
	}
	return tx.Audit().Create(ctx, &domain.AuditLog{
		ActorID:  requester,
		Action:   action,
		Category: domain.AuditCategoryRedemption,
		Details:  details,
	})
}

func (s *RedemptionService) onError(ctx context.Context, requester int64, id domain.BoxID, err error) {
	reason := "internal"
	switch {
	case errs.Is(err, errs.ErrBoxNotFound):
		reason = "box_not_found"
	case errs.Is(err, errs.ErrBlacklisted):
		reason = "blacklisted"
	case errs.Is(err, errs.ErrPaymentFailed):
		reason = "payment_failed"
	case errs.IsInvariant(err):
		reason = "invariant"
	}
	metrics.RedemptionErrors.WithLabelValues(reason).Inc()

	if errs.IsInvariant(err) {
		logger.Error("redemption invariant violated", "account", requester, "box_id", id, "error", err)
		return
	}
	if reason == "blacklisted" && s.audit != nil {
		s.audit.Log(ctx, requester, domain.AuditActionRedeemDenied, domain.AuditCategoryRedemption,
			map[string]any{"box_id": uint32(id)})
	}
	logger.Debug("redemption rejected", "account", requester, "box_id", id, "reason", reason, "error", err)
}

// Rewards lists the redemption records won by account, newest first.
func (s *RedemptionService) Rewards(ctx context.Context, account int64, limit int) ([]*domain.RedemptionRecord, error) {
	var out []*domain.RedemptionRecord
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		out, err = tx.Redemptions().ByAccount(ctx, account, limit)
		return err
	})
	return out, err
}

// BoxRewards returns the records for a box id across both pools.
func (s *RedemptionService) BoxRewards(ctx context.Context, id domain.BoxID) ([]*domain.RedemptionRecord, error) {
	var out []*domain.RedemptionRecord
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		out = nil
		for _, p := range domain.Pools {
			recs, err := tx.Redemptions().ByBox(ctx, p, id)
			if err != nil {
				return err
			}
			out = append(out, recs...)
		}
		return nil
	})
	return out, err
}
