package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/badge-issuance-api/internal/dto"
	"github.com/noah-isme/badge-issuance-api/internal/models"
	"github.com/noah-isme/badge-issuance-api/internal/repository"
	appErrors "github.com/noah-isme/badge-issuance-api/pkg/errors"
	"github.com/noah-isme/badge-issuance-api/pkg/response"
)

type approvalService interface {
	Get(ctx context.Context, id string) (*models.BadgeRequest, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.BadgeRequest, error)
	History(ctx context.Context, requestID string) ([]models.ApprovalLog, error)
	RecentActivity(ctx context.Context, filter repository.ApprovalLogFilter) ([]models.ApprovalLog, error)
	Submit(ctx context.Context, requestID, comment string, actor *models.JWTClaims, ip string) (*models.BadgeRequest, error)
	Review(ctx context.Context, requestID, comment string, actor *models.JWTClaims, ip string) (*models.BadgeRequest, error)
	Approve(ctx context.Context, requestID, comment string, actor *models.JWTClaims, ip string) (*models.BadgeRequest, error)
	Reject(ctx context.Context, requestID, reason string, actor *models.JWTClaims, ip string) (*models.BadgeRequest, error)
	SendBack(ctx context.Context, requestID, reason string, actor *models.JWTClaims, ip string) (*models.BadgeRequest, error)
	BulkSubmit(ctx context.Context, req dto.BulkActionRequest, actor *models.JWTClaims, ip string) *dto.BulkActionResult
	BulkApprove(ctx context.Context, req dto.BulkActionRequest, actor *models.JWTClaims, ip string) *dto.BulkActionResult
	BulkReject(ctx context.Context, req dto.BulkActionRequest, actor *models.JWTClaims, ip string) *dto.BulkActionResult
}

// ApprovalHandler exposes the badge request workflow endpoints.
type ApprovalHandler struct {
	service approvalService
}

// NewApprovalHandler builds a new handler.
func NewApprovalHandler(service approvalService) *ApprovalHandler {
	return &ApprovalHandler{service: service}
}

// Get returns one badge request.
func (h *ApprovalHandler) Get(c *gin.Context) {
	request, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// List returns badge requests filtered by status and category.
func (h *ApprovalHandler) List(c *gin.Context) {
	filter := models.RequestFilter{
		CategoryID: c.Query("category_id"),
		Limit:      intQuery(c, "limit"),
		Offset:     intQuery(c, "offset"),
	}
	if statuses := c.Query("status"); statuses != "" {
		for _, status := range strings.Split(statuses, ",") {
			filter.Status = append(filter.Status, models.RequestStatus(strings.TrimSpace(status)))
		}
	}
	requests, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// History returns a request's approval trail.
func (h *ApprovalHandler) History(c *gin.Context) {
	logs, err := h.service.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}

// Activity returns recent trail entries across all requests.
func (h *ApprovalHandler) Activity(c *gin.Context) {
	filter := repository.ApprovalLogFilter{
		Action: models.ApprovalAction(c.Query("action")),
		Limit:  intQuery(c, "limit"),
		Offset: intQuery(c, "offset"),
	}
	logs, err := h.service.RecentActivity(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}

// Submit moves a request into the review queue.
func (h *ApprovalHandler) Submit(c *gin.Context) {
	var req dto.ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid action payload"))
		return
	}
	request, err := h.service.Submit(c.Request.Context(), c.Param("id"), req.Comment, claimsFromContext(c), clientIP(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Review marks a request as under review.
func (h *ApprovalHandler) Review(c *gin.Context) {
	var req dto.ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid action payload"))
		return
	}
	request, err := h.service.Review(c.Request.Context(), c.Param("id"), req.Comment, claimsFromContext(c), clientIP(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Approve accepts a request.
func (h *ApprovalHandler) Approve(c *gin.Context) {
	var req dto.ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid action payload"))
		return
	}
	request, err := h.service.Approve(c.Request.Context(), c.Param("id"), req.Comment, claimsFromContext(c), clientIP(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Reject returns a request to the submitter with a reason.
func (h *ApprovalHandler) Reject(c *gin.Context) {
	var req dto.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "rejection reason is required"))
		return
	}
	request, err := h.service.Reject(c.Request.Context(), c.Param("id"), req.Reason, claimsFromContext(c), clientIP(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// SendBack reverses an approval before a badge exists.
func (h *ApprovalHandler) SendBack(c *gin.Context) {
	var req dto.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "send-back reason is required"))
		return
	}
	request, err := h.service.SendBack(c.Request.Context(), c.Param("id"), req.Reason, claimsFromContext(c), clientIP(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// BulkSubmit submits many requests at once.
func (h *ApprovalHandler) BulkSubmit(c *gin.Context) {
	h.bulk(c, h.service.BulkSubmit)
}

// BulkApprove approves many requests at once.
func (h *ApprovalHandler) BulkApprove(c *gin.Context) {
	h.bulk(c, h.service.BulkApprove)
}

// BulkReject rejects many requests with a shared reason.
func (h *ApprovalHandler) BulkReject(c *gin.Context) {
	h.bulk(c, h.service.BulkReject)
}

func (h *ApprovalHandler) bulk(c *gin.Context, action func(ctx context.Context, req dto.BulkActionRequest, actor *models.JWTClaims, ip string) *dto.BulkActionResult) {
	var req dto.BulkActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid bulk payload"))
		return
	}
	result := action(c.Request.Context(), req, claimsFromContext(c), clientIP(c))
	response.JSON(c, http.StatusOK, result, nil)
}

func intQuery(c *gin.Context, name string) int {
	value, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return value
}
