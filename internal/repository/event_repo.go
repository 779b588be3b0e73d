package repository

import (
	"context"
	"encoding/json"

	"blindbox/internal/domain"
	"blindbox/internal/errs"
)

// EventRepository is the append-only event log.
type EventRepository struct {
	db Querier
}

func NewEventRepository(db Querier) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Append(ctx context.Context, evt *domain.Event) error {
	attrs, err := json.Marshal(evt.Attributes)
	if err != nil {
		return errs.Wrap(err, "encode event attributes")
	}
	err = r.db.QueryRow(ctx,
		`INSERT INTO events (type, attributes) VALUES ($1, $2) RETURNING id, created_at`,
		evt.Type, attrs,
	).Scan(&evt.ID, &evt.CreatedAt)
	return errs.Wrap(err, "append event")
}

func (r *EventRepository) Recent(ctx context.Context, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, type, attributes, created_at FROM events ORDER BY id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, errs.Wrap(err, "recent events")
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var (
			evt   domain.Event
			attrs []byte
		)
		if err := rows.Scan(&evt.ID, &evt.Type, &attrs, &evt.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(attrs, &evt.Attributes); err != nil {
			evt.Attributes = map[string]string{}
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}
