package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casalivre/pkg/errors"
)

func TestOpenSessionLoadsHistoryAscending(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.chat.Send(ctx, "u1", SendInput{ListingID: "l1", ReceiverID: "u2", Content: "hello"})
	require.NoError(t, err)
	_, err = env.chat.Send(ctx, "u2", SendInput{ListingID: "l1", ReceiverID: "u1", Content: "hi there"})
	require.NoError(t, err)

	s, err := env.chat.OpenSession(ctx, "u1", "l1", "u2")
	require.NoError(t, err)
	defer s.Close()

	require.Equal(t, StateReady, s.State())
	log := s.Log()
	require.Len(t, log, 2)
	assert.Equal(t, "hello", log[0].Content)
	assert.Equal(t, "hi there", log[1].Content)
	assert.False(t, log[0].CreatedAt.After(log[1].CreatedAt))
}

func TestOpenSessionRejectsBadCounterparty(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.chat.OpenSession(ctx, "u1", "l1", "u1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, "BAD_REQUEST"))

	_, err = env.chat.OpenSession(ctx, "u1", "l1", "")
	require.Error(t, err)
}

func TestSendReconcilesOptimisticEcho(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	s, err := env.chat.OpenSession(ctx, "u1", "l1", "u2")
	require.NoError(t, err)
	defer s.Close()

	sent, err := s.Send(ctx, "hello", nil)
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(sent.ID, "local-"))

	log := s.Log()
	require.Len(t, log, 1)
	assert.Equal(t, sent.ID, log[0].ID)
	assert.False(t, log[0].Local)
}

func TestSendRejectsEmptyMessage(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	s, err := env.chat.OpenSession(ctx, "u1", "l1", "u2")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Send(ctx, "   \n\t ", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, "EMPTY_MESSAGE"))
	assert.Empty(t, s.Log())
}

func TestSendAttachmentOnlyIsAllowed(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	s, err := env.chat.OpenSession(ctx, "u1", "l1", "u2")
	require.NoError(t, err)
	defer s.Close()

	sent, err := s.Send(ctx, "", &Attachment{Filename: "photo.jpg", ContentType: "image/jpeg"})
	require.NoError(t, err)
	assert.NotEmpty(t, sent.AttachmentURL)
	assert.Empty(t, sent.Content)
}

func TestSendAbortsOnUploadFailure(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	s, err := env.chat.OpenSession(ctx, "u1", "l1", "u2")
	require.NoError(t, err)
	defer s.Close()

	env.uploads.failNext = true
	_, err = s.Send(ctx, "see photo", &Attachment{Filename: "photo.jpg", ContentType: "image/jpeg"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, "UPLOAD_FAILED"))

	// Nothing was inserted and nothing appears in the log.
	assert.Empty(t, s.Log())
	assert.Empty(t, env.messages.rows)
}

func TestSendRetainsOptimisticOnInsertFailure(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	s, err := env.chat.OpenSession(ctx, "u1", "l1", "u2")
	require.NoError(t, err)
	defer s.Close()

	env.messages.failNext = true
	_, err = s.Send(ctx, "Hello", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, "TRANSIENT_FETCH"))

	log := s.Log()
	require.Len(t, log, 1)
	assert.Equal(t, "Hello", log[0].Content)
	assert.True(t, log[0].Local)
}

func TestRetryReconcilesRetainedOptimistic(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	s, err := env.chat.OpenSession(ctx, "u1", "l1", "u2")
	require.NoError(t, err)
	defer s.Close()

	env.messages.failNext = true
	_, err = s.Send(ctx, "Hello", nil)
	require.Error(t, err)

	sent, err := s.Send(ctx, "Hello", nil)
	require.NoError(t, err)

	// The retained echo was confirmed, not duplicated.
	log := s.Log()
	require.Len(t, log, 1)
	assert.Equal(t, sent.ID, log[0].ID)
	assert.False(t, log[0].Local)
}

func TestIncomingMessageSignalsScroll(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	s, err := env.chat.OpenSession(ctx, "u1", "l1", "u2")
	require.NoError(t, err)
	defer s.Close()

	_, err = env.chat.Send(ctx, "u2", SendInput{ListingID: "l1", ReceiverID: "u1", Content: "knock knock"})
	require.NoError(t, err)

	select {
	case ev := <-s.Events():
		assert.True(t, ev.ScrolledToEnd)
		require.Len(t, ev.Log, 1)
		assert.Equal(t, "knock knock", ev.Log[0].Content)
	default:
		t.Fatal("expected a session event")
	}
}

func TestDuplicateFeedEventDeliveredOnce(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	s, err := env.chat.OpenSession(ctx, "u1", "l1", "u2")
	require.NoError(t, err)
	defer s.Close()

	sent, err := env.chat.Send(ctx, "u2", SendInput{ListingID: "l1", ReceiverID: "u1", Content: "once"})
	require.NoError(t, err)

	// The transport may redeliver; the subscription dedupes by row id.
	require.NoError(t, env.feed.PublishMessage(sent))
	require.NoError(t, env.feed.PublishMessage(sent))

	assert.Len(t, s.Log(), 1)
}

func TestEventsForOtherPairAreFiltered(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	s, err := env.chat.OpenSession(ctx, "u1", "l1", "u2")
	require.NoError(t, err)
	defer s.Close()

	// Same listing, different participant pair.
	_, err = env.chat.Send(ctx, "u3", SendInput{ListingID: "l1", ReceiverID: "u4", Content: "private"})
	require.NoError(t, err)

	assert.Empty(t, s.Log())
}

func TestOpenSessionReplacesPrevious(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	first, err := env.chat.OpenSession(ctx, "u1", "l1", "u2")
	require.NoError(t, err)

	second, err := env.chat.OpenSession(ctx, "u1", "l2", "u3")
	require.NoError(t, err)
	defer second.Close()

	assert.Equal(t, StateIdle, first.State())
	assert.Same(t, second, env.chat.Session("u1"))

	// Old scope no longer delivers anywhere.
	_, err = env.chat.Send(ctx, "u2", SendInput{ListingID: "l1", ReceiverID: "u1", Content: "late"})
	require.NoError(t, err)
	assert.Empty(t, second.Log())
}

func TestCloseIsIdempotent(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	s, err := env.chat.OpenSession(ctx, "u1", "l1", "u2")
	require.NoError(t, err)

	s.Close()
	s.Close()

	assert.Equal(t, StateIdle, s.State())
	assert.Nil(t, env.chat.Session("u1"))
}

func TestSendOnClosedSessionFails(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	s, err := env.chat.OpenSession(ctx, "u1", "l1", "u2")
	require.NoError(t, err)
	s.Close()

	_, err = s.Send(ctx, "too late", nil)
	require.Error(t, err)
}

func TestNotificationSkippedWhenReceiverHasConversationOpen(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	receiver, err := env.chat.OpenSession(ctx, "u2", "l1", "u1")
	require.NoError(t, err)
	defer receiver.Close()

	_, err = env.chat.Send(ctx, "u1", SendInput{ListingID: "l1", ReceiverID: "u2", Content: "hi"})
	require.NoError(t, err)

	// The message reached the open session; no unread row was written.
	assert.Len(t, receiver.Log(), 1)
	count, err := env.notifs.CountUnread(ctx, "u2")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNotificationCreatedWhenReceiverElsewhere(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	// u2 is looking at a different conversation.
	other, err := env.chat.OpenSession(ctx, "u2", "l9", "u5")
	require.NoError(t, err)
	defer other.Close()

	env.users.add("u1", "alice")
	_, err = env.chat.Send(ctx, "u1", SendInput{ListingID: "l1", ReceiverID: "u2", Content: "hi"})
	require.NoError(t, err)

	unread, err := env.notifs.ListUnread(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "New message from alice", unread[0].Content)
	assert.Contains(t, unread[0].Link, "peer=u1")
	assert.Contains(t, unread[0].Link, "listing=l1")
}
