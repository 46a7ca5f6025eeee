package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"casalivre/internal/domain/entity"
	"casalivre/internal/domain/repository"
	"casalivre/pkg/errors"
)

type firestoreUserRepository struct {
	client *firestore.Client
}

func NewFirestoreUserRepository(client *firestore.Client) repository.UserRepository {
	return &firestoreUserRepository{client: client}
}

func (r *firestoreUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	doc, err := r.client.Collection("users").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("User", err)
		}
		return nil, errors.TransientFetch("failed to get user", err)
	}

	var user entity.User
	if err := doc.DataTo(&user); err != nil {
		return nil, errors.Internal("failed to parse user data", err)
	}

	return &user, nil
}

// Upsert mirrors the identity-provider profile into the users collection so
// counterparty names and avatars resolve without an auth round-trip.
func (r *firestoreUserRepository) Upsert(ctx context.Context, user *entity.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	if _, err := r.client.Collection("users").Doc(user.ID).Set(ctx, user); err != nil {
		return errors.TransientFetch("failed to upsert user", err)
	}

	return nil
}
