package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/servicehub/backoffice/internal/db/models"
)

const serviceColumns = `id, provider_id, title, description, category, price_cents, currency, is_active, created_at, updated_at`

// ServiceRepository handles catalog database operations
type ServiceRepository struct {
	db *sqlx.DB
}

// NewServiceRepository creates a new ServiceRepository
func NewServiceRepository(db *sqlx.DB) *ServiceRepository {
	return &ServiceRepository{db: db}
}

// ServiceFilters narrows catalog listings
type ServiceFilters struct {
	ProviderID *string
	Category   *string
	ActiveOnly bool
}

// CreateService inserts a catalog entry, assigning its ID and timestamps
func (r *ServiceRepository) CreateService(ctx context.Context, svc *models.Service) error {
	now := time.Now().UTC()
	svc.ID = uuid.New().String()
	svc.CreatedAt = now
	svc.UpdatedAt = now

	query := `
		INSERT INTO services (` + serviceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		svc.ID,
		svc.ProviderID,
		svc.Title,
		svc.Description,
		svc.Category,
		svc.PriceCents,
		svc.Currency,
		svc.IsActive,
		svc.CreatedAt,
		svc.UpdatedAt,
	)
	return err
}

// GetServiceByID retrieves a catalog entry by ID
func (r *ServiceRepository) GetServiceByID(ctx context.Context, id string) (*models.Service, error) {
	svc := &models.Service{}
	err := r.db.GetContext(ctx, svc, `SELECT `+serviceColumns+` FROM services WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err)
	}
	return svc, nil
}

// ListServices returns a filtered page of catalog entries and the total count
func (r *ServiceRepository) ListServices(ctx context.Context, filters ServiceFilters, limit, offset int) ([]*models.Service, int, error) {
	where := ` WHERE 1=1`
	args := make([]interface{}, 0)
	paramIndex := 1

	if filters.ProviderID != nil {
		where += fmt.Sprintf(` AND provider_id = $%d`, paramIndex)
		args = append(args, *filters.ProviderID)
		paramIndex++
	}
	if filters.Category != nil {
		where += fmt.Sprintf(` AND category = $%d`, paramIndex)
		args = append(args, *filters.Category)
		paramIndex++
	}
	if filters.ActiveOnly {
		where += ` AND is_active = true`
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM services`+where, args...); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + serviceColumns + ` FROM services` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, paramIndex, paramIndex+1)
	args = append(args, limit, offset)

	services := make([]*models.Service, 0)
	if err := r.db.SelectContext(ctx, &services, query, args...); err != nil {
		return nil, 0, err
	}
	return services, total, nil
}

// UpdateService persists every mutable field and bumps updated_at
func (r *ServiceRepository) UpdateService(ctx context.Context, svc *models.Service) error {
	svc.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE services
		SET title = $2, description = $3, category = $4, price_cents = $5,
		    currency = $6, is_active = $7, updated_at = $8
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query,
		svc.ID,
		svc.Title,
		svc.Description,
		svc.Category,
		svc.PriceCents,
		svc.Currency,
		svc.IsActive,
		svc.UpdatedAt,
	)
	return err
}

// DeleteService removes a catalog entry
func (r *ServiceRepository) DeleteService(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM services WHERE id = $1`, id)
	return err
}
