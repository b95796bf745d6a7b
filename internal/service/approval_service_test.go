package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/badge-issuance-api/internal/dto"
	"github.com/noah-isme/badge-issuance-api/internal/models"
	"github.com/noah-isme/badge-issuance-api/internal/repository"
	appErrors "github.com/noah-isme/badge-issuance-api/pkg/errors"
)

type requestStoreStub struct {
	requests map[string]*models.BadgeRequest
	logs     []models.ApprovalLog
	err      error
}

func (s *requestStoreStub) GetByID(ctx context.Context, id string) (*models.BadgeRequest, error) {
	if s.err != nil {
		return nil, s.err
	}
	request, ok := s.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *request
	return &clone, nil
}

func (s *requestStoreStub) GetByStaffID(ctx context.Context, staffID string) (*models.BadgeRequest, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, request := range s.requests {
		if request.StaffID == staffID {
			clone := *request
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *requestStoreStub) List(ctx context.Context, filter models.RequestFilter) ([]models.BadgeRequest, error) {
	if s.err != nil {
		return nil, s.err
	}
	result := []models.BadgeRequest{}
	for _, request := range s.requests {
		result = append(result, *request)
	}
	return result, nil
}

func (s *requestStoreStub) Transition(ctx context.Context, params repository.TransitionParams) error {
	if s.err != nil {
		return s.err
	}
	request, ok := s.requests[params.RequestID]
	if !ok {
		return sql.ErrNoRows
	}
	matched := false
	for _, status := range params.FromStatuses {
		if request.Status == status {
			matched = true
			break
		}
	}
	if !matched {
		return sql.ErrNoRows
	}
	request.Status = params.ToStatus
	if params.SubmittedAt != nil {
		request.SubmittedAt = params.SubmittedAt
	}
	if params.ApprovedBy != nil {
		request.ApprovedBy = params.ApprovedBy
	}
	if params.RejectionReason != nil {
		request.RejectionReason = params.RejectionReason
	}
	s.logs = append(s.logs, params.Log)
	return nil
}

type staffReaderStub struct {
	staff  map[string]*models.StaffProfile
	photos map[string]bool
}

func (s *staffReaderStub) GetByID(ctx context.Context, id string) (*models.StaffProfile, error) {
	staff, ok := s.staff[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return staff, nil
}

func (s *staffReaderStub) HasPhoto(ctx context.Context, staffID string) (bool, error) {
	return s.photos[staffID], nil
}

type categoryReaderStub struct {
	categories map[string]*models.BadgeCategory
}

func (s *categoryReaderStub) GetByID(ctx context.Context, id string) (*models.BadgeCategory, error) {
	category, ok := s.categories[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return category, nil
}

type badgeReaderStub struct {
	badges map[string]*models.Badge
}

func (s *badgeReaderStub) GetByStaffID(ctx context.Context, staffID string) (*models.Badge, error) {
	badge, ok := s.badges[staffID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return badge, nil
}

type logReaderStub struct {
	logs []models.ApprovalLog
}

func (s *logReaderStub) ListByRequest(ctx context.Context, requestID string) ([]models.ApprovalLog, error) {
	result := []models.ApprovalLog{}
	for _, log := range s.logs {
		if log.RequestID == requestID {
			result = append(result, log)
		}
	}
	return result, nil
}

func (s *logReaderStub) List(ctx context.Context, filter repository.ApprovalLogFilter) ([]models.ApprovalLog, error) {
	return s.logs, nil
}

type approvalFixture struct {
	requests *requestStoreStub
	staff    *staffReaderStub
	metrics  *MetricsService
	service  *ApprovalService
}

func newApprovalFixture(status models.RequestStatus) *approvalFixture {
	zone := "A"
	requests := &requestStoreStub{
		requests: map[string]*models.BadgeRequest{
			"req-1": {ID: "req-1", StaffID: "staff-1", Status: status},
		},
	}
	staff := &staffReaderStub{
		staff: map[string]*models.StaffProfile{
			"staff-1": {ID: "staff-1", FirstName: "สมชาย", LastName: "ใจดี", CategoryID: "cat-pink", ZoneCode: &zone},
		},
		photos: map[string]bool{"staff-1": true},
	}
	categories := &categoryReaderStub{
		categories: map[string]*models.BadgeCategory{
			"cat-pink":  {ID: "cat-pink", Color: models.ColorPink},
			"cat-green": {ID: "cat-green", Color: models.ColorGreen},
		},
	}
	metrics := NewMetricsService()
	service := NewApprovalService(requests, staff, categories, &badgeReaderStub{}, &logReaderStub{}, metrics, nil)
	return &approvalFixture{requests: requests, staff: staff, metrics: metrics, service: service}
}

func officer() *models.JWTClaims {
	return &models.JWTClaims{UserID: "officer-1", Role: models.RoleOfficer}
}

func submitter() *models.JWTClaims {
	return &models.JWTClaims{UserID: "staff-1", Role: models.RoleSubmitter}
}

func TestApprovalServiceSubmit(t *testing.T) {
	f := newApprovalFixture(models.StatusReadyToSubmit)

	request, err := f.service.Submit(context.Background(), "req-1", "", submitter(), "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, request.Status)
	assert.NotNil(t, request.SubmittedAt)

	require.Len(t, f.requests.logs, 1)
	log := f.requests.logs[0]
	assert.Equal(t, models.ActionSubmit, log.Action)
	assert.Equal(t, models.StatusReadyToSubmit, log.PreviousStatus)
	assert.Equal(t, models.StatusSubmitted, log.NewStatus)
	assert.Equal(t, "10.0.0.1", log.IPAddress)
}

func TestApprovalServiceSubmitFromRejected(t *testing.T) {
	f := newApprovalFixture(models.StatusRejected)
	request, err := f.service.Submit(context.Background(), "req-1", "fixed photo", submitter(), "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, request.Status)
}

func TestApprovalServiceSubmitWrongStatus(t *testing.T) {
	f := newApprovalFixture(models.StatusDraft)
	_, err := f.service.Submit(context.Background(), "req-1", "", submitter(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.requests.logs)
}

func TestApprovalServiceSubmitRequiresZone(t *testing.T) {
	f := newApprovalFixture(models.StatusReadyToSubmit)
	f.staff.staff["staff-1"].ZoneCode = nil
	_, err := f.service.Submit(context.Background(), "req-1", "", submitter(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestApprovalServiceSubmitRequiresPhotoForPink(t *testing.T) {
	f := newApprovalFixture(models.StatusReadyToSubmit)
	f.staff.photos["staff-1"] = false
	_, err := f.service.Submit(context.Background(), "req-1", "", submitter(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestApprovalServiceSubmitGreenSkipsPhoto(t *testing.T) {
	f := newApprovalFixture(models.StatusReadyToSubmit)
	f.staff.staff["staff-1"].CategoryID = "cat-green"
	f.staff.photos["staff-1"] = false
	_, err := f.service.Submit(context.Background(), "req-1", "", submitter(), "")
	require.NoError(t, err)
}

func TestApprovalServiceApprove(t *testing.T) {
	f := newApprovalFixture(models.StatusUnderReview)
	request, err := f.service.Approve(context.Background(), "req-1", "looks good", officer(), "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, request.Status)
	require.NotNil(t, request.ApprovedBy)
	assert.Equal(t, "officer-1", *request.ApprovedBy)
}

func TestApprovalServiceApproveNeedsReviewerRole(t *testing.T) {
	f := newApprovalFixture(models.StatusSubmitted)
	_, err := f.service.Approve(context.Background(), "req-1", "", submitter(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestApprovalServiceStaleState(t *testing.T) {
	f := newApprovalFixture(models.StatusSubmitted)
	// Another actor moves the request between the guard check and the
	// transition.
	service := NewApprovalService(&racingRequestStore{inner: f.requests, to: models.StatusRejected}, f.staff,
		&categoryReaderStub{}, &badgeReaderStub{}, &logReaderStub{}, nil, nil)

	_, err := service.Approve(context.Background(), "req-1", "", officer(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStaleState.Code, appErrors.FromError(err).Code)
}

// racingRequestStore simulates a concurrent transition landing first.
type racingRequestStore struct {
	inner *requestStoreStub
	to    models.RequestStatus
}

func (s *racingRequestStore) GetByID(ctx context.Context, id string) (*models.BadgeRequest, error) {
	return s.inner.GetByID(ctx, id)
}

func (s *racingRequestStore) List(ctx context.Context, filter models.RequestFilter) ([]models.BadgeRequest, error) {
	return s.inner.List(ctx, filter)
}

func (s *racingRequestStore) Transition(ctx context.Context, params repository.TransitionParams) error {
	s.inner.requests[params.RequestID].Status = s.to
	return s.inner.Transition(ctx, params)
}

func TestApprovalServiceApproveGuardsExactStatus(t *testing.T) {
	f := newApprovalFixture(models.StatusUnderReview)
	// The request slips back to submitted between the read and the
	// update. Both statuses allow approval, but committing now would
	// record under_review as the previous status of a submitted row.
	service := NewApprovalService(&racingRequestStore{inner: f.requests, to: models.StatusSubmitted}, f.staff,
		&categoryReaderStub{}, &badgeReaderStub{}, &logReaderStub{}, nil, nil)

	_, err := service.Approve(context.Background(), "req-1", "", officer(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStaleState.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.requests.logs)
}

func TestApprovalServiceSubmitGuardsExactStatus(t *testing.T) {
	f := newApprovalFixture(models.StatusReadyToSubmit)
	service := NewApprovalService(&racingRequestStore{inner: f.requests, to: models.StatusRejected}, f.staff,
		&categoryReaderStub{categories: map[string]*models.BadgeCategory{
			"cat-pink": {ID: "cat-pink", Color: models.ColorPink},
		}}, &badgeReaderStub{}, &logReaderStub{}, nil, nil)

	_, err := service.Submit(context.Background(), "req-1", "", submitter(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStaleState.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.requests.logs)
}

func TestApprovalServiceRejectRequiresReason(t *testing.T) {
	f := newApprovalFixture(models.StatusSubmitted)
	_, err := f.service.Reject(context.Background(), "req-1", "", officer(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestApprovalServiceReject(t *testing.T) {
	f := newApprovalFixture(models.StatusSubmitted)
	request, err := f.service.Reject(context.Background(), "req-1", "photo too dark", officer(), "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, request.Status)
	require.NotNil(t, request.RejectionReason)
	assert.Equal(t, "photo too dark", *request.RejectionReason)
	require.Len(t, f.requests.logs, 1)
	assert.Equal(t, models.ActionReject, f.requests.logs[0].Action)
}

func TestApprovalServiceSendBack(t *testing.T) {
	f := newApprovalFixture(models.StatusApproved)
	request, err := f.service.SendBack(context.Background(), "req-1", "wrong category", officer(), "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, request.Status)
	require.Len(t, f.requests.logs, 1)
	assert.Equal(t, sendBackTag+"wrong category", f.requests.logs[0].Comment)
}

func TestApprovalServiceSendBackBlockedByBadge(t *testing.T) {
	f := newApprovalFixture(models.StatusApproved)
	badges := &badgeReaderStub{badges: map[string]*models.Badge{
		"staff-1": {ID: "badge-1", StaffID: "staff-1"},
	}}
	service := NewApprovalService(f.requests, f.staff,
		&categoryReaderStub{}, badges, &logReaderStub{}, nil, nil)

	_, err := service.SendBack(context.Background(), "req-1", "reason", officer(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestApprovalServiceSendBackOnlyFromApproved(t *testing.T) {
	f := newApprovalFixture(models.StatusSubmitted)
	_, err := f.service.SendBack(context.Background(), "req-1", "reason", officer(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestApprovalServiceBulkApproveMixedResults(t *testing.T) {
	zone := "B"
	requests := &requestStoreStub{
		requests: map[string]*models.BadgeRequest{
			"req-1": {ID: "req-1", StaffID: "staff-1", Status: models.StatusSubmitted},
			"req-2": {ID: "req-2", StaffID: "staff-1", Status: models.StatusDraft},
			"req-3": {ID: "req-3", StaffID: "staff-1", Status: models.StatusUnderReview},
		},
	}
	staff := &staffReaderStub{
		staff: map[string]*models.StaffProfile{
			"staff-1": {ID: "staff-1", CategoryID: "cat-green", ZoneCode: &zone},
		},
	}
	categories := &categoryReaderStub{categories: map[string]*models.BadgeCategory{
		"cat-green": {ID: "cat-green", Color: models.ColorGreen},
	}}
	service := NewApprovalService(requests, staff, categories, &badgeReaderStub{}, &logReaderStub{}, nil, nil)

	result := service.BulkApprove(context.Background(),
		dto.BulkActionRequest{RequestIDs: []string{"req-1", "req-2", "req-3"}}, officer(), "")

	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Items, 3)
	assert.True(t, result.Items[0].Success)
	assert.False(t, result.Items[1].Success)
	assert.NotEmpty(t, result.Items[1].Error)
	assert.True(t, result.Items[2].Success)
	// The draft request stayed put.
	assert.Equal(t, models.StatusDraft, requests.requests["req-2"].Status)
}

func TestApprovalServiceCountsTransitions(t *testing.T) {
	f := newApprovalFixture(models.StatusSubmitted)

	_, err := f.service.Approve(context.Background(), "req-1", "", officer(), "")
	require.NoError(t, err)

	counter := f.metrics.transitionTotal.WithLabelValues(string(models.ActionApprove))
	assert.Equal(t, float64(1), testutil.ToFloat64(counter))
}

func TestApprovalServiceHistoryOrders(t *testing.T) {
	f := newApprovalFixture(models.StatusSubmitted)
	logs := &logReaderStub{logs: []models.ApprovalLog{
		{RequestID: "req-1", Action: models.ActionSubmit},
		{RequestID: "other", Action: models.ActionApprove},
		{RequestID: "req-1", Action: models.ActionReview},
	}}
	service := NewApprovalService(f.requests, f.staff, &categoryReaderStub{}, &badgeReaderStub{}, logs, nil, nil)

	trail, err := service.History(context.Background(), "req-1")
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, models.ActionSubmit, trail[0].Action)
	assert.Equal(t, models.ActionReview, trail[1].Action)
}
