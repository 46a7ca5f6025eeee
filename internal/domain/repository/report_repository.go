package repository

import (
	"context"

	"casalivre/internal/domain/entity"
)

type ReportRepository interface {
	Create(ctx context.Context, report *entity.Report) error
	ListPending(ctx context.Context, limit, offset int) ([]*entity.Report, int64, error)
	Resolve(ctx context.Context, id string) error
}
