package storage

import (
	"context"

	"github.com/velvetpaws/groomhub/internal/model"
	"github.com/velvetpaws/groomhub/libs/db"
)

type ServiceRepository struct {
	pool *db.Pool
}

func NewServiceRepository(pool *db.Pool) *ServiceRepository {
	return &ServiceRepository{pool: pool}
}

func (r *ServiceRepository) Get(ctx context.Context, id string) (model.GroomService, error) {
	var s model.GroomService
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, name, duration_minutes, price_cents, COALESCE(description, ''), active
		FROM services
		WHERE id = $1
	`, id).Scan(&s.ID, &s.Name, &s.DurationMins, &s.PriceCents, &s.Description, &s.Active)
	return s, err
}

func (r *ServiceRepository) List(ctx context.Context) ([]model.GroomService, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, name, duration_minutes, price_cents, COALESCE(description, ''), active
		FROM services
		WHERE active
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.GroomService
	for rows.Next() {
		var s model.GroomService
		if err := rows.Scan(&s.ID, &s.Name, &s.DurationMins, &s.PriceCents, &s.Description, &s.Active); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *ServiceRepository) Create(ctx context.Context, s model.GroomService) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO services (name, duration_minutes, price_cents, description, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id::text
	`, s.Name, s.DurationMins, s.PriceCents, s.Description, s.Active).Scan(&id)
	return id, err
}
