package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/servicehub/backoffice/internal/audit"
	"github.com/servicehub/backoffice/internal/db/models"
	"github.com/servicehub/backoffice/internal/db/repositories"
)

const defaultCurrency = "EUR"

// ServiceStore persists catalog entries
type ServiceStore interface {
	CreateService(ctx context.Context, svc *models.Service) error
	GetServiceByID(ctx context.Context, id string) (*models.Service, error)
	ListServices(ctx context.Context, filters repositories.ServiceFilters, limit, offset int) ([]*models.Service, int, error)
	UpdateService(ctx context.Context, svc *models.Service) error
	DeleteService(ctx context.Context, id string) error
}

// CreateServiceRequest is the payload for adding a catalog entry
type CreateServiceRequest struct {
	ProviderID  string `json:"provider_id" binding:"required,uuid"`
	Title       string `json:"title" binding:"required,max=255"`
	Description string `json:"description"`
	Category    string `json:"category" binding:"required,max=100"`
	PriceCents  int64  `json:"price_cents" binding:"gte=0"`
	Currency    string `json:"currency" binding:"omitempty,len=3"`
	IsActive    *bool  `json:"is_active"`
}

// UpdateServiceRequest is a partial update; nil fields are left unchanged
type UpdateServiceRequest struct {
	Title       *string `json:"title" binding:"omitempty,max=255"`
	Description *string `json:"description"`
	Category    *string `json:"category" binding:"omitempty,max=100"`
	PriceCents  *int64  `json:"price_cents" binding:"omitempty,gte=0"`
	Currency    *string `json:"currency" binding:"omitempty,len=3"`
	IsActive    *bool   `json:"is_active"`
}

// CatalogService manages catalog entries
type CatalogService struct {
	store   ServiceStore
	auditor Auditor
}

// NewCatalogService creates a CatalogService
func NewCatalogService(store ServiceStore, auditor Auditor) *CatalogService {
	return &CatalogService{store: store, auditor: auditor}
}

// Create adds a catalog entry. Entries are active unless told otherwise.
func (s *CatalogService) Create(ctx context.Context, actorID *string, req CreateServiceRequest) (*models.Service, error) {
	if !validID(req.ProviderID) {
		return nil, invalid("provider_id must be a UUID")
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, invalid("title is required")
	}
	if req.PriceCents < 0 {
		return nil, invalid("price_cents cannot be negative")
	}

	svc := &models.Service{
		ProviderID:  req.ProviderID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Category:    strings.TrimSpace(req.Category),
		PriceCents:  req.PriceCents,
		Currency:    strings.ToUpper(req.Currency),
		IsActive:    true,
	}
	if svc.Currency == "" {
		svc.Currency = defaultCurrency
	}
	if req.IsActive != nil {
		svc.IsActive = *req.IsActive
	}

	if err := s.store.CreateService(ctx, svc); err != nil {
		return nil, storeError("create service", err)
	}

	s.auditor.Record(ctx, audit.Mutation{
		Table:    tableServices,
		Action:   audit.ActionInsert,
		RecordID: svc.ID,
		NewState: audit.SnapshotOf(svc),
		ActorID:  actorID,
	})
	return svc, nil
}

// Get returns one catalog entry
func (s *CatalogService) Get(ctx context.Context, id string) (*models.Service, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	svc, err := s.store.GetServiceByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get service %s: %w", id, err)
	}
	if svc == nil {
		return nil, ErrNotFound
	}
	return svc, nil
}

// List returns a filtered page of catalog entries and the total count
func (s *CatalogService) List(ctx context.Context, filters repositories.ServiceFilters, limit, offset int) ([]*models.Service, int, error) {
	if filters.ProviderID != nil && !validID(*filters.ProviderID) {
		return nil, 0, invalid("provider_id must be a UUID")
	}
	limit, offset = NormalizePage(limit, offset)
	services, total, err := s.store.ListServices(ctx, filters, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list services: %w", err)
	}
	return services, total, nil
}

// Update applies a partial update and records the changed fields
func (s *CatalogService) Update(ctx context.Context, actorID *string, id string, req UpdateServiceRequest) (*models.Service, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := audit.SnapshotOf(existing)

	updated := *existing
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, invalid("title cannot be empty")
		}
		updated.Title = title
	}
	if req.Description != nil {
		updated.Description = *req.Description
	}
	if req.Category != nil {
		updated.Category = strings.TrimSpace(*req.Category)
	}
	if req.PriceCents != nil {
		if *req.PriceCents < 0 {
			return nil, invalid("price_cents cannot be negative")
		}
		updated.PriceCents = *req.PriceCents
	}
	if req.Currency != nil {
		updated.Currency = strings.ToUpper(*req.Currency)
	}
	if req.IsActive != nil {
		updated.IsActive = *req.IsActive
	}

	if err := s.store.UpdateService(ctx, &updated); err != nil {
		return nil, storeError("update service", err)
	}

	s.auditor.Record(ctx, audit.Mutation{
		Table:    tableServices,
		Action:   audit.ActionUpdate,
		RecordID: updated.ID,
		OldState: before,
		NewState: audit.SnapshotOf(&updated),
		ActorID:  actorID,
	})
	return &updated, nil
}

// Delete removes a catalog entry and records its last state
func (s *CatalogService) Delete(ctx context.Context, actorID *string, id string) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteService(ctx, id); err != nil {
		return fmt.Errorf("delete service %s: %w", id, err)
	}

	s.auditor.Record(ctx, audit.Mutation{
		Table:    tableServices,
		Action:   audit.ActionDelete,
		RecordID: id,
		OldState: audit.SnapshotOf(existing),
		ActorID:  actorID,
	})
	return nil
}
