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
	"blindbox/internal/repository"
)

// PurposeIDs separates id draws from reward draws.
const PurposeIDs = "ids"

// Allocator mints box ids into a pool on behalf of the issuer.
type Allocator struct {
	store       repository.Store
	drawer      game.Drawer
	pub         events.Publisher
	maxStandard uint32
	maxSpecial  uint32
}

func NewAllocator(store repository.Store, drawer game.Drawer, pub events.Publisher, cfg config.BoxesConfig) *Allocator {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Allocator{
		store:       store,
		drawer:      drawer,
		pub:         pub,
		maxStandard: cfg.MaxGenerationAttempts,
		maxSpecial:  cfg.MaxSpecialAttempts,
	}
}

// Generate draws up to requested new ids into pool. A colliding draw is
// skipped but still spends an attempt; when the attempt cap is reached the
// result is returned with Complete=false.
func (a *Allocator) Generate(ctx context.Context, caller int64, pool domain.Pool, requested uint32) (*domain.GenerationResult, error) {
	if !pool.Valid() {
		return nil, errs.Wrapf(errs.ErrInvalidPool, "pool %q", pool)
	}
	if requested == 0 {
		return nil, errs.Wrap(errs.ErrInvalidAmount, "requested count must be positive")
	}

	attemptCap := a.maxStandard
	if pool == domain.PoolSpecial {
		attemptCap = a.maxSpecial
	}

	var (
		res       *domain.GenerationResult
		evt       domain.Event
		remaining uint32
	)
	err := a.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		issuer, ok, err := tx.Settings().Issuer(ctx)
		if err != nil {
			return err
		}
		if !ok || issuer != caller {
			return errs.Wrapf(errs.ErrPermissionDenied, "account %d is not the issuer", caller)
		}

		count, err := tx.Boxes().Count(ctx, pool)
		if err != nil {
			return err
		}
		if pool == domain.PoolStandard && count != 0 {
			return errs.Wrapf(errs.ErrPoolNotEmpty, "%d standard boxes remain", count)
		}

		nonce, err := tx.Settings().NextNonce(ctx)
		if err != nil {
			return err
		}

		res = &domain.GenerationResult{Pool: pool, Requested: requested}
		for uint32(len(res.IDs)) < requested && res.Attempts < attemptCap {
			id := domain.BoxID(a.drawer.Draw(PurposeIDs, pool.Index(), nonce, uint64(res.Attempts)))
			res.Attempts++

			inserted, err := tx.Boxes().Insert(ctx, pool, id)
			if err != nil {
				return err
			}
			if inserted {
				res.IDs = append(res.IDs, id)
			}
		}
		res.Complete = uint32(len(res.IDs)) == requested
		generated := uint32(len(res.IDs))

		if pool == domain.PoolStandard {
			remaining = generated
			if err := tx.Boxes().SetCount(ctx, pool, generated); err != nil {
				return err
			}
		} else {
			if remaining, err = tx.Boxes().AddCount(ctx, pool, generated); err != nil {
				return err
			}
		}

		evt = domain.IDsGeneratedEvent(pool, res.IDs)
		if err := tx.Events().Append(ctx, &evt); err != nil {
			return err
		}
		return tx.Audit().Create(ctx, &domain.AuditLog{
			ActorID:  caller,
			Action:   domain.AuditActionGenerate,
			Category: domain.AuditCategoryIssuance,
			Details: map[string]any{
				"pool":      string(pool),
				"requested": requested,
				"generated": generated,
				"attempts":  res.Attempts,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.BoxesGenerated.WithLabelValues(string(pool)).Add(float64(len(res.IDs)))
	metrics.ObservePool(pool, remaining)
	if !res.Complete {
		logger.Warn("id generation stopped at attempt cap",
			"pool", pool, "requested", requested, "generated", len(res.IDs), "attempts", res.Attempts)
	}
	logger.Info("ids generated", "pool", pool, "count", len(res.IDs), "issuer", caller)

	a.pub.Publish(ctx, evt)
	return res, nil
}
