// Package models - service.go defines catalog entries offered by providers.
package models

import "time"

// Service is a catalog entry offered by a provider
type Service struct {
	ID          string    `db:"id" json:"id"`
	ProviderID  string    `db:"provider_id" json:"provider_id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Category    string    `db:"category" json:"category"`
	PriceCents  int64     `db:"price_cents" json:"price_cents"`
	Currency    string    `db:"currency" json:"currency"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
