package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/badge-issuance-api/internal/dto"
	"github.com/noah-isme/badge-issuance-api/internal/models"
	"github.com/noah-isme/badge-issuance-api/internal/repository"
	appErrors "github.com/noah-isme/badge-issuance-api/pkg/errors"
	"github.com/noah-isme/badge-issuance-api/pkg/export"
)

type printBadgeStore interface {
	GetByID(ctx context.Context, id string) (*models.Badge, error)
	MarkPrintedBatch(ctx context.Context, items []repository.PrintBatchItem, printedBy *string, notes string) error
	ResetPrint(ctx context.Context, badgeID string, transition *repository.TransitionParams) error
	ListPrintLogs(ctx context.Context, badgeID string) ([]models.PrintLog, error)
}

type printRequestReader interface {
	GetByStaffID(ctx context.Context, staffID string) (*models.BadgeRequest, error)
}

type printArtifactReader interface {
	Read(filename string) ([]byte, error)
}

type sheetWriter interface {
	Save(filename string, data []byte) (string, error)
}

// PrintService lays out badge batches on A4 sheets and records the
// print side effects. The PDF is produced first; only when it exists do
// counters, print logs and request transitions commit, all in one
// transaction, so a failed generation leaves no trace.
type PrintService struct {
	badges   printBadgeStore
	requests printRequestReader
	exporter *export.SheetExporter
	reader   printArtifactReader
	sheets   sheetWriter
	metrics  *MetricsService
	logger   *zap.Logger
	now      func() time.Time
}

// NewPrintService constructs a PrintService.
func NewPrintService(badges printBadgeStore, requests printRequestReader, exporter *export.SheetExporter, reader printArtifactReader, sheets sheetWriter, metrics *MetricsService, logger *zap.Logger) *PrintService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PrintService{
		badges:   badges,
		requests: requests,
		exporter: exporter,
		reader:   reader,
		sheets:   sheets,
		metrics:  metrics,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// PrintBatch renders up to 8 badges onto one sheet, stores a copy of
// the PDF and marks every badge printed.
func (s *PrintService) PrintBatch(ctx context.Context, req dto.PrintBatchRequest, actor *models.JWTClaims, ip string) (*dto.PrintBatchResult, error) {
	if err := requireReviewer(actor); err != nil {
		return nil, err
	}
	if len(req.BadgeIDs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "print batch is empty")
	}
	if len(req.BadgeIDs) > export.MaxBadgesPerSheet {
		return nil, appErrors.ErrBatchTooLarge
	}

	artifacts := make([][]byte, 0, len(req.BadgeIDs))
	items := make([]repository.PrintBatchItem, 0, len(req.BadgeIDs))
	for _, badgeID := range req.BadgeIDs {
		badge, err := s.badges.GetByID(ctx, badgeID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("badge %s not found", badgeID))
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch badge")
		}

		data, err := s.reader.Read(badge.ArtifactPath)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status,
				fmt.Sprintf("failed to read artifact for badge %s", badge.Number))
		}
		artifacts = append(artifacts, data)

		item := repository.PrintBatchItem{BadgeID: badge.ID}
		// First print also advances the owning request; reprints only
		// touch the badge's own counters.
		request, err := s.requests.GetByStaffID(ctx, badge.StaffID)
		if err == nil && request.Status == models.StatusBadgeCreated {
			item.RequestID = request.ID
			item.Log = models.ApprovalLog{
				RequestID:      request.ID,
				Action:         models.ActionPrinted,
				PreviousStatus: models.StatusBadgeCreated,
				NewStatus:      models.StatusPrinted,
				Comment:        req.Notes,
				PerformedBy:    userIDPtr(actor),
				IPAddress:      ip,
			}
		} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch owning request")
		}
		items = append(items, item)
	}

	sheet, err := s.exporter.Render(artifacts)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render print sheet")
	}

	sheetPath := fmt.Sprintf("sheets/batch-%s.pdf", s.now().Format("20060102-150405"))
	if _, err := s.sheets.Save(sheetPath, sheet); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store print sheet")
	}

	if err := s.badges.MarkPrintedBatch(ctx, items, userIDPtr(actor), req.Notes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrStaleState
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record print batch")
	}

	s.metrics.ObserveSheetRendered()
	s.logger.Info("print sheet generated",
		zap.Int("badges", len(items)), zap.String("sheet", sheetPath))

	return &dto.PrintBatchResult{
		SheetPath:  sheetPath,
		BadgeCount: len(items),
		Sheet:      sheet,
	}, nil
}

// ResetPrint zeroes a badge's print counters, rolling a printed request
// back to badge_created so the badge can be reissued to the printer.
func (s *PrintService) ResetPrint(ctx context.Context, badgeID string, actor *models.JWTClaims, ip string) error {
	if err := requireReviewer(actor); err != nil {
		return err
	}
	badge, err := s.badges.GetByID(ctx, badgeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "badge not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch badge")
	}

	var transition *repository.TransitionParams
	request, err := s.requests.GetByStaffID(ctx, badge.StaffID)
	if err == nil && request.Status == models.StatusPrinted {
		transition = &repository.TransitionParams{
			RequestID:    request.ID,
			FromStatuses: []models.RequestStatus{models.StatusPrinted},
			ToStatus:     models.StatusBadgeCreated,
			Log: models.ApprovalLog{
				RequestID:      request.ID,
				Action:         models.ActionResetPrint,
				PreviousStatus: models.StatusPrinted,
				NewStatus:      models.StatusBadgeCreated,
				PerformedBy:    userIDPtr(actor),
				IPAddress:      ip,
			},
		}
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch owning request")
	}

	if err := s.badges.ResetPrint(ctx, badgeID, transition); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrStaleState
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset print counters")
	}
	return nil
}

// History returns a badge's print log, newest first.
func (s *PrintService) History(ctx context.Context, badgeID string) ([]models.PrintLog, error) {
	if _, err := s.badges.GetByID(ctx, badgeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "badge not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch badge")
	}
	logs, err := s.badges.ListPrintLogs(ctx, badgeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list print history")
	}
	return logs, nil
}
