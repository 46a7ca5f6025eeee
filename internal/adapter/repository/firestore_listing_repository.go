package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"casalivre/internal/domain/entity"
	"casalivre/internal/domain/repository"
	"casalivre/pkg/errors"
)

type firestoreListingRepository struct {
	client *firestore.Client
}

func NewFirestoreListingRepository(client *firestore.Client) repository.ListingRepository {
	return &firestoreListingRepository{client: client}
}

func (r *firestoreListingRepository) GetByID(ctx context.Context, id string) (*entity.Listing, error) {
	doc, err := r.client.Collection("listings").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Listing", err)
		}
		return nil, errors.TransientFetch("failed to get listing", err)
	}

	var listing entity.Listing
	if err := doc.DataTo(&listing); err != nil {
		return nil, errors.Internal("failed to parse listing data", err)
	}
	if listing.Status == "deleted" {
		return nil, errors.NotFound("Listing", nil)
	}

	return &listing, nil
}
