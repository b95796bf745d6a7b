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

type settingService interface {
	Get(ctx context.Context, key string) (*models.SystemSetting, error)
	List(ctx context.Context) ([]models.SystemSetting, error)
	Update(ctx context.Context, key string, req dto.UpdateSettingRequest) (*models.SystemSetting, error)
}

// SettingHandler exposes system setting endpoints.
type SettingHandler struct {
	service settingService
}

// NewSettingHandler builds a new handler.
func NewSettingHandler(service settingService) *SettingHandler {
	return &SettingHandler{service: service}
}

// List returns all settings.
func (h *SettingHandler) List(c *gin.Context) {
	settings, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// Get returns one setting by key.
func (h *SettingHandler) Get(c *gin.Context) {
	setting, err := h.service.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, setting, nil)
}

// Update upserts one setting.
func (h *SettingHandler) Update(c *gin.Context) {
	var req dto.UpdateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid setting payload"))
		return
	}
	setting, err := h.service.Update(c.Request.Context(), c.Param("key"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, setting, nil)
}
