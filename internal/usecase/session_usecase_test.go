package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casalivre/internal/domain/entity"
	"casalivre/pkg/errors"
	"casalivre/pkg/logger"
)

type fakeVerifier struct {
	uids map[string]string
}

func (v *fakeVerifier) VerifyToken(_ context.Context, token string) (string, error) {
	uid, ok := v.uids[token]
	if !ok {
		return "", errors.Unauthorized("unknown token", nil)
	}
	return uid, nil
}

type fakeProfiles struct {
	byUID map[string]*entity.User
}

func (p *fakeProfiles) GetUser(_ context.Context, uid string) (*entity.User, error) {
	user, ok := p.byUID[uid]
	if !ok {
		return nil, errors.NotFound("user", nil)
	}
	return user, nil
}

func newSessionUseCase(env *testEnv, verifier TokenVerifier, profiles ProfileSource) *SessionUseCase {
	return NewSessionUseCase(verifier, profiles, env.users, env.notifications, env.chat, logger.NewNop())
}

func TestSessionInitResolvesProfileAndStartsCounter(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.notifs.seed("u1", "/messages?listing=l1&peer=u2")

	uc := newSessionUseCase(env,
		&fakeVerifier{uids: map[string]string{"tok-1": "u1"}},
		&fakeProfiles{byUID: map[string]*entity.User{
			"u1": {ID: "u1", Username: "alice"},
		}})

	s, err := uc.Init(ctx, "tok-1")
	require.NoError(t, err)

	assert.Equal(t, "alice", s.User.Username)
	assert.Equal(t, 1, s.Counter.Count())

	// The profile got mirrored for counterparty lookups.
	mirrored, err := env.users.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice", mirrored.Username)

	uc.Teardown(s)
	assert.Nil(t, env.notifications.Counter("u1"))
}

func TestSessionInitRejectsBadToken(t *testing.T) {
	env := newTestEnv()

	uc := newSessionUseCase(env, &fakeVerifier{uids: map[string]string{}}, nil)

	_, err := uc.Init(context.Background(), "bogus")
	require.Error(t, err)
	assert.True(t, errors.Is(err, "UNAUTHORIZED"))
}

func TestSessionInitFallsBackToUserMirror(t *testing.T) {
	env := newTestEnv()
	env.users.add("u1", "alice")

	uc := newSessionUseCase(env, &fakeVerifier{uids: map[string]string{"tok-1": "u1"}}, nil)

	s, err := uc.Init(context.Background(), "tok-1")
	require.NoError(t, err)
	defer uc.Teardown(s)

	assert.Equal(t, "alice", s.User.Username)
}

func TestTeardownClosesOpenChatSession(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	uc := newSessionUseCase(env, &fakeVerifier{uids: map[string]string{"tok-1": "u1"}}, nil)

	s, err := uc.Init(ctx, "tok-1")
	require.NoError(t, err)

	chat, err := env.chat.OpenSession(ctx, "u1", "l1", "u2")
	require.NoError(t, err)

	uc.Teardown(s)
	assert.Equal(t, StateIdle, chat.State())
	assert.Nil(t, env.chat.Session("u1"))
}
