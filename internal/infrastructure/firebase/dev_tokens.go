package firebase

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// DevTokenService issues and verifies HS256 tokens for local development,
// where no Firebase project is configured. Non-production only.
type DevTokenService struct {
	secret []byte
	expiry time.Duration
}

func NewDevTokenService(secret string, expirySeconds int64) *DevTokenService {
	return &DevTokenService{
		secret: []byte(secret),
		expiry: time.Duration(expirySeconds) * time.Second,
	}
}

func (s *DevTokenService) Issue(uid string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   uid,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *DevTokenService) VerifyToken(_ context.Context, tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("invalid dev token")
	}

	return claims.Subject, nil
}
