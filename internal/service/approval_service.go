package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/badge-issuance-api/internal/dto"
	"github.com/noah-isme/badge-issuance-api/internal/models"
	"github.com/noah-isme/badge-issuance-api/internal/repository"
	appErrors "github.com/noah-isme/badge-issuance-api/pkg/errors"
)

// sendBackTag marks send-back-after-approval entries in the trail so
// they stay distinguishable from ordinary rejections.
const sendBackTag = "[send-back] "

type approvalRequestStore interface {
	GetByID(ctx context.Context, id string) (*models.BadgeRequest, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.BadgeRequest, error)
	Transition(ctx context.Context, params repository.TransitionParams) error
}

type approvalStaffReader interface {
	GetByID(ctx context.Context, id string) (*models.StaffProfile, error)
	HasPhoto(ctx context.Context, staffID string) (bool, error)
}

type approvalCategoryReader interface {
	GetByID(ctx context.Context, id string) (*models.BadgeCategory, error)
}

type approvalBadgeReader interface {
	GetByStaffID(ctx context.Context, staffID string) (*models.Badge, error)
}

type approvalLogReader interface {
	ListByRequest(ctx context.Context, requestID string) ([]models.ApprovalLog, error)
	List(ctx context.Context, filter repository.ApprovalLogFilter) ([]models.ApprovalLog, error)
}

// ApprovalService drives the badge request workflow. Every transition
// is guarded against the expected current status and appends exactly
// one audit entry in the same transaction; a concurrent status change
// surfaces as a stale-state conflict.
type ApprovalService struct {
	requests   approvalRequestStore
	staff      approvalStaffReader
	categories approvalCategoryReader
	badges     approvalBadgeReader
	logs       approvalLogReader
	metrics    *MetricsService
	logger     *zap.Logger
}

// NewApprovalService constructs an ApprovalService.
func NewApprovalService(requests approvalRequestStore, staff approvalStaffReader, categories approvalCategoryReader, badges approvalBadgeReader, logs approvalLogReader, metrics *MetricsService, logger *zap.Logger) *ApprovalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApprovalService{
		requests:   requests,
		staff:      staff,
		categories: categories,
		badges:     badges,
		logs:       logs,
		metrics:    metrics,
		logger:     logger,
	}
}

// Get fetches a request by identifier.
func (s *ApprovalService) Get(ctx context.Context, id string) (*models.BadgeRequest, error) {
	request, err := s.requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "badge request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch badge request")
	}
	return request, nil
}

// List returns requests matching the filter.
func (s *ApprovalService) List(ctx context.Context, filter models.RequestFilter) ([]models.BadgeRequest, error) {
	requests, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list badge requests")
	}
	return requests, nil
}

// History returns a request's approval trail in order.
func (s *ApprovalService) History(ctx context.Context, requestID string) ([]models.ApprovalLog, error) {
	if _, err := s.Get(ctx, requestID); err != nil {
		return nil, err
	}
	logs, err := s.logs.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list approval history")
	}
	return logs, nil
}

// RecentActivity returns recent trail entries across all requests.
func (s *ApprovalService) RecentActivity(ctx context.Context, filter repository.ApprovalLogFilter) ([]models.ApprovalLog, error) {
	logs, err := s.logs.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list approval activity")
	}
	return logs, nil
}

// Submit moves a request into the review queue. Allowed from
// ready_to_submit and rejected; the subject must have a zone assignment
// and, when the category calls for one, an uploaded photo.
func (s *ApprovalService) Submit(ctx context.Context, requestID, comment string, actor *models.JWTClaims, ip string) (*models.BadgeRequest, error) {
	request, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !request.CanSubmit() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "request is not ready to submit")
	}
	if err := s.checkSubmittable(ctx, request.StaffID); err != nil {
		return nil, err
	}

	// Guard on the status we read, not the full allowed set, so the
	// trail's previous_status can never disagree with the row.
	now := time.Now().UTC()
	params := repository.TransitionParams{
		RequestID:    requestID,
		FromStatuses: []models.RequestStatus{request.Status},
		ToStatus:     models.StatusSubmitted,
		SubmittedAt:  &now,
		Log: models.ApprovalLog{
			RequestID:      requestID,
			Action:         models.ActionSubmit,
			PreviousStatus: request.Status,
			NewStatus:      models.StatusSubmitted,
			Comment:        comment,
			PerformedBy:    userIDPtr(actor),
			IPAddress:      ip,
		},
	}
	return s.apply(ctx, requestID, params)
}

// Review marks a submitted request as being looked at by an officer.
func (s *ApprovalService) Review(ctx context.Context, requestID, comment string, actor *models.JWTClaims, ip string) (*models.BadgeRequest, error) {
	if err := requireReviewer(actor); err != nil {
		return nil, err
	}
	request, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != models.StatusSubmitted {
		return nil, appErrors.Clone(appErrors.ErrConflict, "only submitted requests can enter review")
	}

	now := time.Now().UTC()
	params := repository.TransitionParams{
		RequestID:    requestID,
		FromStatuses: []models.RequestStatus{models.StatusSubmitted},
		ToStatus:     models.StatusUnderReview,
		ReviewedBy:   userIDPtr(actor),
		ReviewedAt:   &now,
		Log: models.ApprovalLog{
			RequestID:      requestID,
			Action:         models.ActionReview,
			PreviousStatus: request.Status,
			NewStatus:      models.StatusUnderReview,
			Comment:        comment,
			PerformedBy:    userIDPtr(actor),
			IPAddress:      ip,
		},
	}
	return s.apply(ctx, requestID, params)
}

// Approve accepts a request. Allowed from submitted and under_review
// for reviewer roles.
func (s *ApprovalService) Approve(ctx context.Context, requestID, comment string, actor *models.JWTClaims, ip string) (*models.BadgeRequest, error) {
	if err := requireReviewer(actor); err != nil {
		return nil, err
	}
	request, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !request.CanApprove() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "request cannot be approved from its current status")
	}

	now := time.Now().UTC()
	params := repository.TransitionParams{
		RequestID:    requestID,
		FromStatuses: []models.RequestStatus{request.Status},
		ToStatus:     models.StatusApproved,
		ApprovedBy:   userIDPtr(actor),
		ApprovedAt:   &now,
		Log: models.ApprovalLog{
			RequestID:      requestID,
			Action:         models.ActionApprove,
			PreviousStatus: request.Status,
			NewStatus:      models.StatusApproved,
			Comment:        comment,
			PerformedBy:    userIDPtr(actor),
			IPAddress:      ip,
		},
	}
	return s.apply(ctx, requestID, params)
}

// Reject sends a request back to the submitter with a mandatory reason.
func (s *ApprovalService) Reject(ctx context.Context, requestID, reason string, actor *models.JWTClaims, ip string) (*models.BadgeRequest, error) {
	if err := requireReviewer(actor); err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required")
	}
	request, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !request.CanApprove() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "request cannot be rejected from its current status")
	}

	now := time.Now().UTC()
	params := repository.TransitionParams{
		RequestID:       requestID,
		FromStatuses:    []models.RequestStatus{request.Status},
		ToStatus:        models.StatusRejected,
		ReviewedBy:      userIDPtr(actor),
		ReviewedAt:      &now,
		RejectionReason: &reason,
		Log: models.ApprovalLog{
			RequestID:      requestID,
			Action:         models.ActionReject,
			PreviousStatus: request.Status,
			NewStatus:      models.StatusRejected,
			Comment:        reason,
			PerformedBy:    userIDPtr(actor),
			IPAddress:      ip,
		},
	}
	return s.apply(ctx, requestID, params)
}

// SendBack reverses an approval before any badge exists, returning the
// request to the submitter. The trail entry carries a distinct tag so
// post-approval reversals stay auditable as such.
func (s *ApprovalService) SendBack(ctx context.Context, requestID, reason string, actor *models.JWTClaims, ip string) (*models.BadgeRequest, error) {
	if err := requireReviewer(actor); err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "send-back reason is required")
	}
	request, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != models.StatusApproved {
		return nil, appErrors.Clone(appErrors.ErrConflict, "only approved requests can be sent back")
	}
	if _, err := s.badges.GetByStaffID(ctx, request.StaffID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "delete the issued badge before sending the request back")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check issued badge")
	}

	now := time.Now().UTC()
	params := repository.TransitionParams{
		RequestID:       requestID,
		FromStatuses:    []models.RequestStatus{models.StatusApproved},
		ToStatus:        models.StatusRejected,
		ReviewedBy:      userIDPtr(actor),
		ReviewedAt:      &now,
		RejectionReason: &reason,
		Log: models.ApprovalLog{
			RequestID:      requestID,
			Action:         models.ActionReject,
			PreviousStatus: request.Status,
			NewStatus:      models.StatusRejected,
			Comment:        sendBackTag + reason,
			PerformedBy:    userIDPtr(actor),
			IPAddress:      ip,
		},
	}
	return s.apply(ctx, requestID, params)
}

// BulkSubmit submits many requests, one guard and one outcome per item.
func (s *ApprovalService) BulkSubmit(ctx context.Context, req dto.BulkActionRequest, actor *models.JWTClaims, ip string) *dto.BulkActionResult {
	return s.bulk(req.RequestIDs, func(id string) error {
		_, err := s.Submit(ctx, id, req.Comment, actor, ip)
		return err
	})
}

// BulkApprove approves many requests, one guard and one outcome per item.
func (s *ApprovalService) BulkApprove(ctx context.Context, req dto.BulkActionRequest, actor *models.JWTClaims, ip string) *dto.BulkActionResult {
	return s.bulk(req.RequestIDs, func(id string) error {
		_, err := s.Approve(ctx, id, req.Comment, actor, ip)
		return err
	})
}

// BulkReject rejects many requests with a shared reason.
func (s *ApprovalService) BulkReject(ctx context.Context, req dto.BulkActionRequest, actor *models.JWTClaims, ip string) *dto.BulkActionResult {
	return s.bulk(req.RequestIDs, func(id string) error {
		_, err := s.Reject(ctx, id, req.Reason, actor, ip)
		return err
	})
}

// bulk runs one action per request ID. Failures never abort the batch;
// the caller gets the per-item outcomes in input order.
func (s *ApprovalService) bulk(requestIDs []string, action func(id string) error) *dto.BulkActionResult {
	result := &dto.BulkActionResult{Items: make([]dto.BulkActionItem, 0, len(requestIDs))}
	for _, id := range requestIDs {
		item := dto.BulkActionItem{RequestID: id, Success: true}
		if err := action(id); err != nil {
			item.Success = false
			item.Error = appErrors.FromError(err).Message
			result.Failed++
		} else {
			result.Succeeded++
		}
		result.Items = append(result.Items, item)
	}
	return result
}

// apply runs the guarded transition and re-fetches the updated row.
func (s *ApprovalService) apply(ctx context.Context, requestID string, params repository.TransitionParams) (*models.BadgeRequest, error) {
	if err := s.requests.Transition(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("stale badge request transition",
				zap.String("request_id", requestID),
				zap.String("to_status", string(params.ToStatus)))
			return nil, appErrors.ErrStaleState
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to transition badge request")
	}
	s.metrics.ObserveTransition(string(params.Log.Action))
	return s.Get(ctx, requestID)
}

// checkSubmittable verifies the subject-side submission prerequisites:
// an assigned zone always, an uploaded photo when the category uses one.
func (s *ApprovalService) checkSubmittable(ctx context.Context, staffID string) error {
	staff, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "staff profile not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch staff profile")
	}
	if staff.ZoneCode == nil || *staff.ZoneCode == "" {
		return appErrors.Clone(appErrors.ErrValidation, "staff has no zone assignment")
	}

	category, err := s.categories.GetByID(ctx, staff.CategoryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "badge category not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch badge category")
	}
	if category.Color.RequiresPhoto() {
		hasPhoto, err := s.staff.HasPhoto(ctx, staffID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check staff photo")
		}
		if !hasPhoto {
			return appErrors.Clone(appErrors.ErrValidation, "a cropped photo is required for this badge category")
		}
	}
	return nil
}

func requireReviewer(actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if !actor.Role.CanReview() {
		return appErrors.Clone(appErrors.ErrForbidden, "reviewer role required")
	}
	return nil
}

func userIDPtr(actor *models.JWTClaims) *string {
	if actor == nil || actor.UserID == "" {
		return nil
	}
	return &actor.UserID
}
