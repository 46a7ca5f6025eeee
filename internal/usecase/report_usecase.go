package usecase

import (
	"context"
	"strings"

	"casalivre/internal/domain/entity"
	"casalivre/internal/domain/repository"
	"casalivre/pkg/errors"
	"casalivre/pkg/logger"
)

// ReportUseCase handles abuse reports against listings.
type ReportUseCase struct {
	reportRepo  repository.ReportRepository
	listingRepo repository.ListingRepository
	log         *logger.Logger
}

func NewReportUseCase(
	reportRepo repository.ReportRepository,
	listingRepo repository.ListingRepository,
	log *logger.Logger,
) *ReportUseCase {
	return &ReportUseCase{
		reportRepo:  reportRepo,
		listingRepo: listingRepo,
		log:         log.WithComponent("report_usecase"),
	}
}

// File records a report from userID against a listing.
func (uc *ReportUseCase) File(ctx context.Context, userID, listingID, reason, description string) (*entity.Report, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, errors.BadRequest("report reason is required", nil)
	}
	if _, err := uc.listingRepo.GetByID(ctx, listingID); err != nil {
		return nil, err
	}

	report := &entity.Report{
		UserID:      userID,
		ListingID:   listingID,
		Reason:      strings.TrimSpace(reason),
		Description: strings.TrimSpace(description),
	}
	if err := uc.reportRepo.Create(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// ListPending returns unresolved reports for moderation, paginated.
func (uc *ReportUseCase) ListPending(ctx context.Context, limit, offset int) ([]*entity.Report, int64, error) {
	return uc.reportRepo.ListPending(ctx, limit, offset)
}

// Resolve closes a report.
func (uc *ReportUseCase) Resolve(ctx context.Context, id string) error {
	return uc.reportRepo.Resolve(ctx, id)
}
