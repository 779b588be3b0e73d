package service

import (
	"context"

	"blindbox/internal/domain"
	"blindbox/internal/game"
	"blindbox/internal/metrics"
	"blindbox/internal/repository"
)

// StatusService answers read-only questions about pools, odds and the event log.
type StatusService struct {
	store    repository.Store
	selector *game.Selector
}

func NewStatusService(store repository.Store, selector *game.Selector) *StatusService {
	return &StatusService{store: store, selector: selector}
}

func (s *StatusService) Pools(ctx context.Context) ([]domain.PoolStatus, error) {
	out := make([]domain.PoolStatus, 0, len(domain.Pools))
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		out = out[:0]
		for _, p := range domain.Pools {
			n, err := tx.Boxes().Count(ctx, p)
			if err != nil {
				return err
			}
			out = append(out, domain.PoolStatus{Pool: p, Remaining: n})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, st := range out {
		metrics.ObservePool(st.Pool, st.Remaining)
	}
	return out, nil
}

func (s *StatusService) Events(ctx context.Context, limit int) ([]domain.Event, error) {
	var out []domain.Event
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		out, err = tx.Events().Recent(ctx, limit)
		return err
	})
	return out, err
}

// Odds returns the nominal tier probabilities and the table behind them.
func (s *StatusService) Odds() ([]game.TierInfo, game.Table) {
	return s.selector.Odds(), s.selector.Table()
}
