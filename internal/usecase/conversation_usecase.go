package usecase

import (
	"context"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"casalivre/internal/domain/entity"
	"casalivre/internal/domain/repository"
	"casalivre/pkg/errors"
	"casalivre/pkg/logger"
)

// ConversationUseCase builds the inbox view: every conversation the user
// participates in, grouped per listing, freshest first.
type ConversationUseCase struct {
	messageRepo repository.MessageRepository
	listingRepo repository.ListingRepository
	userRepo    repository.UserRepository
	log         *logger.Logger
}

func NewConversationUseCase(
	messageRepo repository.MessageRepository,
	listingRepo repository.ListingRepository,
	userRepo repository.UserRepository,
	log *logger.Logger,
) *ConversationUseCase {
	return &ConversationUseCase{
		messageRepo: messageRepo,
		listingRepo: listingRepo,
		userRepo:    userRepo,
		log:         log.WithComponent("conversation_usecase"),
	}
}

// ListGrouped returns the user's conversations as listing threads. Listings
// appear in the order of their most recent message; within a listing,
// conversations are ordered by last message, newest first. Conversations whose
// listing no longer resolves are dropped.
func (uc *ConversationUseCase) ListGrouped(ctx context.Context, userID string) ([]*entity.ListingThread, error) {
	msgs, err := uc.messageRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := summarize(userID, msgs)

	listings := map[string]*entity.Listing{}
	for _, s := range summaries {
		if _, ok := listings[s.ListingID]; ok {
			continue
		}
		listing, err := uc.listingRepo.GetByID(ctx, s.ListingID)
		if err != nil {
			if errors.Is(err, "NOT_FOUND") {
				listings[s.ListingID] = nil
				continue
			}
			return nil, err
		}
		listings[s.ListingID] = listing
	}

	summaries = lo.Filter(summaries, func(s entity.ConversationSummary, _ int) bool {
		return listings[s.ListingID] != nil
	})

	for i := range summaries {
		listing := listings[summaries[i].ListingID]
		summaries[i].ListingTitle = listing.Title
		summaries[i].ListingImage = listing.CoverPhoto()

		user, err := uc.userRepo.GetByID(ctx, summaries[i].CounterpartyID)
		if err != nil {
			if !errors.Is(err, "NOT_FOUND") {
				uc.log.Warn("counterparty lookup failed",
					zap.String("user_id", summaries[i].CounterpartyID),
					zap.Error(err))
			}
			continue
		}
		summaries[i].CounterpartyName = user.Username
		summaries[i].CounterpartyAvatar = user.AvatarURL
	}

	return GroupSummaries(summaries), nil
}

// summarize collapses a newest-first message list into one summary per
// (listing, counterparty) pair, keeping the most recent message of each.
func summarize(userID string, msgs []*entity.Message) []entity.ConversationSummary {
	seen := map[string]bool{}
	var out []entity.ConversationSummary
	for _, m := range msgs {
		key := m.Key()
		if seen[key.PairKey()+"/"+key.ListingID] {
			continue
		}
		seen[key.PairKey()+"/"+key.ListingID] = true
		out = append(out, entity.ConversationSummary{
			ListingID:      m.ListingID,
			CounterpartyID: key.Counterparty(userID),
			LastMessage:    m.Content,
			LastMessageAt:  m.CreatedAt,
		})
	}
	return out
}

// GroupSummaries groups conversation summaries by listing. Listings keep the
// order in which they first appear in the input; conversations within a
// listing are sorted by last message descending, preserving input order on
// ties. The listing title and image of the thread come from its first summary.
func GroupSummaries(summaries []entity.ConversationSummary) []*entity.ListingThread {
	byListing := map[string]*entity.ListingThread{}
	var threads []*entity.ListingThread

	for _, s := range summaries {
		thread, ok := byListing[s.ListingID]
		if !ok {
			thread = &entity.ListingThread{
				ListingID:    s.ListingID,
				ListingTitle: s.ListingTitle,
				ListingImage: s.ListingImage,
			}
			byListing[s.ListingID] = thread
			threads = append(threads, thread)
		}
		thread.Conversations = append(thread.Conversations, s)
	}

	for _, thread := range threads {
		convs := thread.Conversations
		// Insertion sort keeps equal timestamps in input order.
		for i := 1; i < len(convs); i++ {
			for j := i; j > 0 && convs[j].LastMessageAt.After(convs[j-1].LastMessageAt); j-- {
				convs[j], convs[j-1] = convs[j-1], convs[j]
			}
		}
	}

	if threads == nil {
		return []*entity.ListingThread{}
	}
	return threads
}
