package firebase

import (
	"context"

	"firebase.google.com/go/v4/auth"

	"casalivre/internal/domain/entity"
)

// AuthClient wraps the Firebase Auth SDK. The hosted auth service owns
// signup and credentials; this service only verifies tokens and reads the
// profile behind them.
type AuthClient struct {
	client *auth.Client
}

func NewAuthClient(client *auth.Client) *AuthClient {
	return &AuthClient{client: client}
}

func (a *AuthClient) VerifyToken(ctx context.Context, idToken string) (string, error) {
	token, err := a.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", err
	}
	return token.UID, nil
}

// GetUser maps the identity-provider record into a marketplace profile.
func (a *AuthClient) GetUser(ctx context.Context, uid string) (*entity.User, error) {
	record, err := a.client.GetUser(ctx, uid)
	if err != nil {
		return nil, err
	}

	username := record.DisplayName
	if username == "" {
		username = record.Email
	}

	return &entity.User{
		ID:        record.UID,
		Email:     record.Email,
		Username:  username,
		AvatarURL: record.PhotoURL,
		Role:      roleFromClaims(record.CustomClaims),
	}, nil
}

func roleFromClaims(claims map[string]interface{}) string {
	if role, ok := claims["role"].(string); ok && role != "" {
		return role
	}
	return "user"
}
