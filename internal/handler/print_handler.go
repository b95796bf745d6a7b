package handler

import (
	"context"
	"fmt"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/badge-issuance-api/internal/dto"
	"github.com/noah-isme/badge-issuance-api/internal/models"
	appErrors "github.com/noah-isme/badge-issuance-api/pkg/errors"
	"github.com/noah-isme/badge-issuance-api/pkg/response"
)

type printService interface {
	PrintBatch(ctx context.Context, req dto.PrintBatchRequest, actor *models.JWTClaims, ip string) (*dto.PrintBatchResult, error)
	ResetPrint(ctx context.Context, badgeID string, actor *models.JWTClaims, ip string) error
	History(ctx context.Context, badgeID string) ([]models.PrintLog, error)
}

// PrintHandler exposes print sheet endpoints.
type PrintHandler struct {
	service printService
}

// NewPrintHandler builds a new handler.
func NewPrintHandler(service printService) *PrintHandler {
	return &PrintHandler{service: service}
}

// Batch lays out up to 8 badges on one sheet and streams the PDF.
func (h *PrintHandler) Batch(c *gin.Context) {
	var req dto.PrintBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid print batch payload"))
		return
	}
	result, err := h.service.PrintBatch(c.Request.Context(), req, claimsFromContext(c), clientIP(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path.Base(result.SheetPath)))
	c.Data(http.StatusOK, "application/pdf", result.Sheet)
}

// Reset zeroes a badge's print counters.
func (h *PrintHandler) Reset(c *gin.Context) {
	if err := h.service.ResetPrint(c.Request.Context(), c.Param("id"), claimsFromContext(c), clientIP(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// History returns a badge's print log.
func (h *PrintHandler) History(c *gin.Context) {
	logs, err := h.service.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}
