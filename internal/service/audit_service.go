package service

import (
	"context"

	"blindbox/internal/domain"
	"blindbox/internal/logger"
	"blindbox/internal/repository"
)

// AuditService handles audit logging outside of a domain unit of work
type AuditService struct {
	store repository.Store
}

// NewAuditService creates a new audit service
func NewAuditService(store repository.Store) *AuditService {
	return &AuditService{store: store}
}

// Log creates a new audit log entry. Failures are logged, never returned.
func (s *AuditService) Log(ctx context.Context, actorID int64, action, category string, details map[string]any) {
	s.write(ctx, &domain.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Category: category,
		Details:  details,
	})
}

// LogWithRequest creates an audit log with request info (IP, User-Agent)
func (s *AuditService) LogWithRequest(ctx context.Context, actorID int64, action, category, ip, userAgent string, details map[string]any) {
	s.write(ctx, &domain.AuditLog{
		ActorID:   actorID,
		Action:    action,
		Category:  category,
		Details:   details,
		IP:        ip,
		UserAgent: userAgent,
	})
}

// LogLogin logs a user login
func (s *AuditService) LogLogin(ctx context.Context, accountID int64, ip, userAgent string) {
	s.LogWithRequest(ctx, accountID, domain.AuditActionLogin, domain.AuditCategoryAuth, ip, userAgent, nil)
}

func (s *AuditService) write(ctx context.Context, log *domain.AuditLog) {
	err := s.store.WithinTx(context.WithoutCancel(ctx), func(ctx context.Context, tx repository.Tx) error {
		return tx.Audit().Create(ctx, log)
	})
	if err != nil {
		logger.Error("failed to create audit log", "error", err, "action", log.Action, "actor_id", log.ActorID)
	}
}

// Recent returns recent audit logs, optionally restricted to one category
func (s *AuditService) Recent(ctx context.Context, category string, limit int) ([]*domain.AuditLog, error) {
	var out []*domain.AuditLog
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		if category == "" {
			out, err = tx.Audit().Recent(ctx, limit)
		} else {
			out, err = tx.Audit().ByCategory(ctx, category, limit)
		}
		return err
	})
	return out, err
}
