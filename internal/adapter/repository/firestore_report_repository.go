package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"casalivre/internal/domain/entity"
	"casalivre/internal/domain/repository"
	"casalivre/pkg/errors"
)

type firestoreReportRepository struct {
	client *firestore.Client
}

func NewFirestoreReportRepository(client *firestore.Client) repository.ReportRepository {
	return &firestoreReportRepository{client: client}
}

func (r *firestoreReportRepository) Create(ctx context.Context, report *entity.Report) error {
	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	report.Status = "pending"
	report.CreatedAt = time.Now()

	if _, err := r.client.Collection("reports").Doc(report.ID).Set(ctx, report); err != nil {
		return errors.TransientFetch("failed to create report", err)
	}

	return nil
}

func (r *firestoreReportRepository) ListPending(ctx context.Context, limit, offset int) ([]*entity.Report, int64, error) {
	query := r.client.Collection("reports").
		Where("status", "==", "pending").
		OrderBy("createdAt", firestore.Desc)

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, errors.TransientFetch("failed to fetch reports", err)
	}

	total := int64(len(docs))

	start := offset
	if start > len(docs) {
		start = len(docs)
	}
	end := len(docs)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	var reports []*entity.Report
	for _, doc := range docs[start:end] {
		var report entity.Report
		if err := doc.DataTo(&report); err != nil {
			continue
		}
		reports = append(reports, &report)
	}

	return reports, total, nil
}

func (r *firestoreReportRepository) Resolve(ctx context.Context, id string) error {
	updates := []firestore.Update{
		{Path: "status", Value: "resolved"},
		{Path: "resolvedAt", Value: time.Now()},
	}

	if _, err := r.client.Collection("reports").Doc(id).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Report", err)
		}
		return errors.TransientFetch("failed to resolve report", err)
	}

	return nil
}
