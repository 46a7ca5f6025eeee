package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casalivre/internal/domain/entity"
)

func TestGroupSummariesOrdering(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Minute)
	t2 := t0.Add(2 * time.Minute)

	// Listings keep first-occurrence order; conversations inside a listing
	// get re-sorted newest first.
	summaries := []entity.ConversationSummary{
		{ListingID: "l1", CounterpartyID: "u2", LastMessageAt: t1},
		{ListingID: "l1", CounterpartyID: "u3", LastMessageAt: t2},
		{ListingID: "l2", CounterpartyID: "u2", LastMessageAt: t0},
	}

	threads := GroupSummaries(summaries)
	require.Len(t, threads, 2)

	assert.Equal(t, "l1", threads[0].ListingID)
	require.Len(t, threads[0].Conversations, 2)
	assert.Equal(t, "u3", threads[0].Conversations[0].CounterpartyID)
	assert.Equal(t, "u2", threads[0].Conversations[1].CounterpartyID)

	assert.Equal(t, "l2", threads[1].ListingID)
	require.Len(t, threads[1].Conversations, 1)
	assert.Equal(t, "u2", threads[1].Conversations[0].CounterpartyID)
}

func TestGroupSummariesSortsWithinListing(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	summaries := []entity.ConversationSummary{
		{ListingID: "l1", CounterpartyID: "old", LastMessageAt: t0},
		{ListingID: "l1", CounterpartyID: "new", LastMessageAt: t0.Add(time.Hour)},
	}

	threads := GroupSummaries(summaries)
	require.Len(t, threads, 1)
	assert.Equal(t, "new", threads[0].Conversations[0].CounterpartyID)
	assert.Equal(t, "old", threads[0].Conversations[1].CounterpartyID)
}

func TestGroupSummariesKeepsInputOrderOnEqualTimes(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	summaries := []entity.ConversationSummary{
		{ListingID: "l1", CounterpartyID: "first", LastMessageAt: at},
		{ListingID: "l1", CounterpartyID: "second", LastMessageAt: at},
	}

	threads := GroupSummaries(summaries)
	require.Len(t, threads, 1)
	assert.Equal(t, "first", threads[0].Conversations[0].CounterpartyID)
	assert.Equal(t, "second", threads[0].Conversations[1].CounterpartyID)
}

func TestGroupSummariesEmpty(t *testing.T) {
	threads := GroupSummaries(nil)
	require.NotNil(t, threads)
	assert.Empty(t, threads)
}

func TestListGroupedResolvesListingsAndCounterparties(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.listings.add("l1", "Sunny apartment")
	env.users.add("u1", "alice")
	env.users.add("u2", "bob")

	_, err := env.chat.Send(ctx, "u2", SendInput{ListingID: "l1", ReceiverID: "u1", Content: "Still available?"})
	require.NoError(t, err)

	threads, err := env.conversations.ListGrouped(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, "Sunny apartment", threads[0].ListingTitle)
	require.Len(t, threads[0].Conversations, 1)

	conv := threads[0].Conversations[0]
	assert.Equal(t, "u2", conv.CounterpartyID)
	assert.Equal(t, "bob", conv.CounterpartyName)
	assert.Equal(t, "Still available?", conv.LastMessage)
}

func TestListGroupedDropsUnresolvableListings(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.listings.add("l1", "Sunny apartment")
	env.users.add("u1", "alice")
	env.users.add("u2", "bob")

	_, err := env.chat.Send(ctx, "u2", SendInput{ListingID: "l1", ReceiverID: "u1", Content: "hi"})
	require.NoError(t, err)
	// l2 was removed after the conversation started.
	_, err = env.chat.Send(ctx, "u2", SendInput{ListingID: "l2", ReceiverID: "u1", Content: "gone"})
	require.NoError(t, err)

	threads, err := env.conversations.ListGrouped(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, "l1", threads[0].ListingID)
}

func TestListGroupedKeepsLatestMessagePerConversation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.listings.add("l1", "Sunny apartment")
	env.users.add("u1", "alice")
	env.users.add("u2", "bob")

	_, err := env.chat.Send(ctx, "u1", SendInput{ListingID: "l1", ReceiverID: "u2", Content: "first"})
	require.NoError(t, err)
	_, err = env.chat.Send(ctx, "u2", SendInput{ListingID: "l1", ReceiverID: "u1", Content: "second"})
	require.NoError(t, err)

	threads, err := env.conversations.ListGrouped(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, threads, 1)
	require.Len(t, threads[0].Conversations, 1)
	assert.Equal(t, "second", threads[0].Conversations[0].LastMessage)
}
