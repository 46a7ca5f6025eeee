package repository

import (
	"context"

	"casalivre/internal/domain/entity"
)

// ListingRepository is read-only inside this service; listing CRUD belongs to
// the wider marketplace application.
type ListingRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Listing, error)
}
