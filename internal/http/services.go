package http

import (
	"blindbox/internal/config"
	"blindbox/internal/events"
	"blindbox/internal/game"
	"blindbox/internal/http/handlers"
	"blindbox/internal/random"
	"blindbox/internal/repository"
	"blindbox/internal/service"
)

// BuildServices wires the services over one store, randomness source and publisher.
func BuildServices(cfg *config.Config, store repository.Store, src random.Source, pub events.Publisher) handlers.Services {
	drawer := random.NewDrawer(src)
	selector := game.NewSelector(cfg.Table)
	audit := service.NewAuditService(store)

	return handlers.Services{
		Accounts:   service.NewAccountService(store, cfg.Ledger.InitialBalance),
		Allocator:  service.NewAllocator(store, drawer, pub, cfg.Boxes),
		Redemption: service.NewRedemptionService(store, selector, drawer, pub, audit, cfg),
		Admin:      service.NewAdminService(store, pub, cfg.IsAdmin, cfg.Maxima),
		Status:     service.NewStatusService(store, selector),
		Audit:      audit,
	}
}
