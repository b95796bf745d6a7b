package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/badge-issuance-api/internal/dto"
	"github.com/noah-isme/badge-issuance-api/internal/models"
	appErrors "github.com/noah-isme/badge-issuance-api/pkg/errors"
	"github.com/noah-isme/badge-issuance-api/pkg/response"
)

type signatoryService interface {
	List(ctx context.Context) ([]models.Signatory, error)
	Create(ctx context.Context, req dto.CreateSignatoryRequest) (*models.Signatory, error)
	Activate(ctx context.Context, id string) (*models.Signatory, error)
	Active(ctx context.Context) (*models.Signatory, error)
}

// SignatoryHandler exposes signatory management endpoints.
type SignatoryHandler struct {
	service signatoryService
}

// NewSignatoryHandler builds a new handler.
func NewSignatoryHandler(service signatoryService) *SignatoryHandler {
	return &SignatoryHandler{service: service}
}

// List returns all signatories.
func (h *SignatoryHandler) List(c *gin.Context) {
	signatories, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, signatories, nil)
}

// Create registers a new signatory.
func (h *SignatoryHandler) Create(c *gin.Context) {
	var req dto.CreateSignatoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid signatory payload"))
		return
	}
	signatory, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, signatory)
}

// Activate makes a signatory the single active signer.
func (h *SignatoryHandler) Activate(c *gin.Context) {
	signatory, err := h.service.Activate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, signatory, nil)
}

// Active returns the current active signatory.
func (h *SignatoryHandler) Active(c *gin.Context) {
	signatory, err := h.service.Active(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, signatory, nil)
}
