package handler

import (
	"github.com/labstack/echo/v4"

	"casalivre/internal/usecase"
	"casalivre/pkg/response"
	"casalivre/pkg/utils"
)

type ReportHandler struct {
	reportUseCase *usecase.ReportUseCase
}

func NewReportHandler(reportUseCase *usecase.ReportUseCase) *ReportHandler {
	return &ReportHandler{
		reportUseCase: reportUseCase,
	}
}

type fileReportRequest struct {
	ListingID   string `json:"listing_id" validate:"required"`
	Reason      string `json:"reason" validate:"required"`
	Description string `json:"description"`
}

// FileReport records an abuse report against a listing.
func (h *ReportHandler) FileReport(c echo.Context) error {
	var req fileReportRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	report, err := h.reportUseCase.File(c.Request().Context(), userID, req.ListingID, req.Reason, req.Description)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, report)
}

// ListPending returns unresolved reports for moderation.
func (h *ReportHandler) ListPending(c echo.Context) error {
	params := utils.GetPaginationParams(c)

	reports, total, err := h.reportUseCase.ListPending(c.Request().Context(), params.PageSize, params.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, reports, total, params.Page, params.PageSize)
}

// ResolveReport closes a report.
func (h *ReportHandler) ResolveReport(c echo.Context) error {
	if err := h.reportUseCase.Resolve(c.Request().Context(), c.Param("id")); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{
		"status": "resolved",
	})
}
