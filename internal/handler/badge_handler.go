package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/badge-issuance-api/internal/dto"
	"github.com/noah-isme/badge-issuance-api/internal/models"
	appErrors "github.com/noah-isme/badge-issuance-api/pkg/errors"
	"github.com/noah-isme/badge-issuance-api/pkg/response"
)

type badgeService interface {
	Get(ctx context.Context, id string) (*models.Badge, error)
	List(ctx context.Context, filter models.BadgeFilter) ([]models.Badge, error)
	Categories(ctx context.Context) ([]models.BadgeCategory, error)
	Artifact(ctx context.Context, badgeID string) ([]byte, error)
	Create(ctx context.Context, requestID string, actor *models.JWTClaims, ip string) (*models.Badge, error)
	Delete(ctx context.Context, badgeID string, actor *models.JWTClaims, ip string) error
	ChangeColor(ctx context.Context, badgeID, categoryID string, actor *models.JWTClaims, ip string) (*models.Badge, error)
	UpdateSignatureMode(ctx context.Context, badgeID string, mode models.SignatureMode, actor *models.JWTClaims, ip string) (*models.Badge, error)
}

// BadgeHandler exposes badge issuance endpoints.
type BadgeHandler struct {
	service badgeService
}

// NewBadgeHandler builds a new handler.
func NewBadgeHandler(service badgeService) *BadgeHandler {
	return &BadgeHandler{service: service}
}

// Get returns one badge.
func (h *BadgeHandler) Get(c *gin.Context) {
	badge, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, badge, nil)
}

// List returns badges filtered by category, print state and number.
func (h *BadgeHandler) List(c *gin.Context) {
	filter := models.BadgeFilter{
		CategoryID: c.Query("category_id"),
		Search:     c.Query("search"),
		Limit:      intQuery(c, "limit"),
		Offset:     intQuery(c, "offset"),
	}
	if printed := c.Query("printed"); printed != "" {
		value, err := strconv.ParseBool(printed)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "printed expects true or false"))
			return
		}
		filter.Printed = &value
	}
	badges, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, badges, nil)
}

// Categories returns the active badge categories in display order.
func (h *BadgeHandler) Categories(c *gin.Context) {
	categories, err := h.service.Categories(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, categories, nil)
}

// Artifact serves the rendered badge PNG.
func (h *BadgeHandler) Artifact(c *gin.Context) {
	data, err := h.service.Artifact(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}

// Create issues a badge for an approved request.
func (h *BadgeHandler) Create(c *gin.Context) {
	var req dto.CreateBadgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid badge payload"))
		return
	}
	badge, err := h.service.Create(c.Request.Context(), req.RequestID, claimsFromContext(c), clientIP(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, badge)
}

// Delete retires a badge and rolls its request back to approved.
func (h *BadgeHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claimsFromContext(c), clientIP(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ChangeColor reissues a badge under another category.
func (h *BadgeHandler) ChangeColor(c *gin.Context) {
	var req dto.ChangeColorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid recolor payload"))
		return
	}
	badge, err := h.service.ChangeColor(c.Request.Context(), c.Param("id"), req.CategoryID, claimsFromContext(c), clientIP(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, badge, nil)
}

// UpdateSignature switches the badge's signature mode and regenerates
// the artifact.
func (h *BadgeHandler) UpdateSignature(c *gin.Context) {
	var req dto.SignatureModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid signature payload"))
		return
	}
	badge, err := h.service.UpdateSignatureMode(c.Request.Context(), c.Param("id"), models.SignatureMode(req.Mode), claimsFromContext(c), clientIP(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, badge, nil)
}
