package usecase

import (
	"context"

	"go.uber.org/zap"

	"casalivre/internal/domain/entity"
	"casalivre/internal/domain/repository"
	"casalivre/pkg/errors"
	"casalivre/pkg/logger"
)

// TokenVerifier validates a bearer token and returns the subject uid.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (string, error)
}

// ProfileSource resolves a uid to its identity-provider profile. Optional;
// when absent the local user mirror is the only profile source.
type ProfileSource interface {
	GetUser(ctx context.Context, uid string) (*entity.User, error)
}

// Session is one signed-in user's server-side state: their profile and their
// live unread counter. Chat sessions attach separately per conversation.
type Session struct {
	User    *entity.User
	Counter *UnreadCounter
}

// SessionUseCase drives sign-in and sign-out: verify the token, resolve the
// profile, start the unread counter; on the way out, tear both down.
type SessionUseCase struct {
	verifier      TokenVerifier
	profiles      ProfileSource
	userRepo      repository.UserRepository
	notifications *NotificationUseCase
	chat          *ChatUseCase
	log           *logger.Logger
}

func NewSessionUseCase(
	verifier TokenVerifier,
	profiles ProfileSource,
	userRepo repository.UserRepository,
	notifications *NotificationUseCase,
	chat *ChatUseCase,
	log *logger.Logger,
) *SessionUseCase {
	return &SessionUseCase{
		verifier:      verifier,
		profiles:      profiles,
		userRepo:      userRepo,
		notifications: notifications,
		chat:          chat,
		log:           log.WithComponent("session_usecase"),
	}
}

// Init establishes the session for a bearer token. The profile is mirrored
// into the local user store so counterparty lookups work without the identity
// provider.
func (uc *SessionUseCase) Init(ctx context.Context, token string) (*Session, error) {
	uid, err := uc.verifier.VerifyToken(ctx, token)
	if err != nil {
		return nil, errors.Unauthorized("invalid or expired token", err)
	}

	user, err := uc.resolveUser(ctx, uid)
	if err != nil {
		return nil, err
	}

	counter, err := uc.notifications.StartCounter(ctx, uid)
	if err != nil {
		return nil, err
	}

	uc.log.Info("session initialized", zap.String("user_id", uid))
	return &Session{User: user, Counter: counter}, nil
}

// Teardown releases everything the session holds: the open chat session, if
// any, and the unread counter.
func (uc *SessionUseCase) Teardown(s *Session) {
	if s == nil || s.User == nil {
		return
	}
	uc.chat.CloseSession(s.User.ID)
	uc.notifications.StopCounter(s.User.ID)
	uc.log.Info("session torn down", zap.String("user_id", s.User.ID))
}

func (uc *SessionUseCase) resolveUser(ctx context.Context, uid string) (*entity.User, error) {
	if uc.profiles != nil {
		if user, err := uc.profiles.GetUser(ctx, uid); err == nil {
			if err := uc.userRepo.Upsert(ctx, user); err != nil {
				uc.log.Warn("user mirror upsert failed",
					zap.String("user_id", uid), zap.Error(err))
			}
			return user, nil
		}
	}

	user, err := uc.userRepo.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, "NOT_FOUND") {
			// First sign-in before any profile sync: a bare mirror row.
			user = &entity.User{ID: uid}
			if err := uc.userRepo.Upsert(ctx, user); err != nil {
				return nil, err
			}
			return user, nil
		}
		return nil, err
	}
	return user, nil
}
