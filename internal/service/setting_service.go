package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/badge-issuance-api/internal/dto"
	"github.com/noah-isme/badge-issuance-api/internal/models"
	appErrors "github.com/noah-isme/badge-issuance-api/pkg/errors"
	"github.com/noah-isme/badge-issuance-api/pkg/numeral"
)

type settingStore interface {
	Get(ctx context.Context, key string) (*models.SystemSetting, error)
	List(ctx context.Context) ([]models.SystemSetting, error)
	Upsert(ctx context.Context, setting *models.SystemSetting) error
}

// SettingService reads and writes admin-editable system settings with a
// redis read-through cache. Cache trouble degrades to direct database
// reads; it never fails a request.
type SettingService struct {
	settings settingStore
	cache    *redis.Client
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewSettingService constructs a SettingService. cache may be nil.
func NewSettingService(settings settingStore, cache *redis.Client, cacheTTL time.Duration, logger *zap.Logger) *SettingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &SettingService{settings: settings, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// Get fetches one setting, from cache when possible.
func (s *SettingService) Get(ctx context.Context, key string) (*models.SystemSetting, error) {
	if cached := s.fromCache(ctx, key); cached != nil {
		return cached, nil
	}

	setting, err := s.settings.Get(ctx, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "setting not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch setting")
	}

	s.toCache(ctx, key, setting)
	return setting, nil
}

// List returns all settings.
func (s *SettingService) List(ctx context.Context) ([]models.SystemSetting, error) {
	settings, err := s.settings.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list settings")
	}
	return settings, nil
}

// Update upserts a setting and invalidates its cache entry.
func (s *SettingService) Update(ctx context.Context, key string, req dto.UpdateSettingRequest) (*models.SystemSetting, error) {
	settingType := models.SettingType(req.Type)
	if err := validateSettingValue(settingType, req.Value); err != nil {
		return nil, err
	}

	setting := &models.SystemSetting{
		Key:         key,
		Value:       req.Value,
		Type:        settingType,
		Description: strPtr(req.Description),
		IsActive:    true,
	}
	if err := s.settings.Upsert(ctx, setting); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update setting")
	}

	s.dropCache(ctx, key)
	return setting, nil
}

// WorkDate returns the configured work date rendered in Thai short form
// with Thai numerals, or "" when not configured. Badges print this as
// the validity date.
func (s *SettingService) WorkDate(ctx context.Context) (string, error) {
	setting, err := s.settings.Get(ctx, models.SettingWorkDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("fetch work date setting: %w", err)
	}
	formatted := numeral.ParseThaiDate(setting.Value, true, true)
	if formatted == "" && setting.Value != "" {
		s.logger.Warn("work_date setting is not a valid YYYY-MM-DD date",
			zap.String("value", setting.Value))
	}
	return formatted, nil
}

func (s *SettingService) fromCache(ctx context.Context, key string) *models.SystemSetting {
	if s.cache == nil {
		return nil
	}
	payload, err := s.cache.Get(ctx, settingCacheKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("setting cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil
	}
	var setting models.SystemSetting
	if err := json.Unmarshal(payload, &setting); err != nil {
		s.logger.Warn("setting cache entry corrupt", zap.String("key", key), zap.Error(err))
		return nil
	}
	return &setting
}

func (s *SettingService) toCache(ctx context.Context, key string, setting *models.SystemSetting) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(setting)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, settingCacheKey(key), payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn("setting cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *SettingService) dropCache(ctx context.Context, key string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, settingCacheKey(key)).Err(); err != nil {
		s.logger.Warn("setting cache invalidation failed", zap.String("key", key), zap.Error(err))
	}
}

func settingCacheKey(key string) string {
	return "setting:" + key
}

func validateSettingValue(settingType models.SettingType, value string) error {
	switch settingType {
	case models.SettingTypeString:
		return nil
	case models.SettingTypeInteger:
		if _, err := strconv.Atoi(value); err != nil {
			return appErrors.Clone(appErrors.ErrValidation, "setting expects an integer value")
		}
	case models.SettingTypeBoolean:
		if value != "true" && value != "false" {
			return appErrors.Clone(appErrors.ErrValidation, "setting expects true or false")
		}
	case models.SettingTypeJSON:
		if !json.Valid([]byte(value)) {
			return appErrors.Clone(appErrors.ErrValidation, "setting expects valid JSON")
		}
	default:
		return appErrors.Clone(appErrors.ErrValidation, "unsupported setting type")
	}
	return nil
}
