package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/badge-issuance-api/internal/dto"
	"github.com/noah-isme/badge-issuance-api/internal/models"
	appErrors "github.com/noah-isme/badge-issuance-api/pkg/errors"
)

type settingRepoStub struct {
	items map[string]*models.SystemSetting
}

func newSettingRepoStub() *settingRepoStub {
	return &settingRepoStub{items: map[string]*models.SystemSetting{}}
}

func (s *settingRepoStub) Get(ctx context.Context, key string) (*models.SystemSetting, error) {
	setting, ok := s.items[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return setting, nil
}

func (s *settingRepoStub) List(ctx context.Context) ([]models.SystemSetting, error) {
	result := []models.SystemSetting{}
	for _, setting := range s.items {
		result = append(result, *setting)
	}
	return result, nil
}

func (s *settingRepoStub) Upsert(ctx context.Context, setting *models.SystemSetting) error {
	s.items[setting.Key] = setting
	return nil
}

func TestSettingServiceWorkDate(t *testing.T) {
	repo := newSettingRepoStub()
	repo.items[models.SettingWorkDate] = &models.SystemSetting{
		Key: models.SettingWorkDate, Value: "2025-12-24", Type: models.SettingTypeString, IsActive: true,
	}
	service := NewSettingService(repo, nil, 0, nil)

	workDate, err := service.WorkDate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "๒๔ ธ.ค. ๒๕๖๘", workDate)
}

func TestSettingServiceWorkDateUnset(t *testing.T) {
	service := NewSettingService(newSettingRepoStub(), nil, 0, nil)
	workDate, err := service.WorkDate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, workDate)
}

func TestSettingServiceWorkDateMalformed(t *testing.T) {
	repo := newSettingRepoStub()
	repo.items[models.SettingWorkDate] = &models.SystemSetting{
		Key: models.SettingWorkDate, Value: "not-a-date", Type: models.SettingTypeString, IsActive: true,
	}
	service := NewSettingService(repo, nil, 0, nil)

	workDate, err := service.WorkDate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, workDate)
}

func TestSettingServiceUpdateValidatesTypes(t *testing.T) {
	service := NewSettingService(newSettingRepoStub(), nil, 0, nil)
	cases := []struct {
		name  string
		req   dto.UpdateSettingRequest
		valid bool
	}{
		{"integer ok", dto.UpdateSettingRequest{Value: "42", Type: "integer"}, true},
		{"integer bad", dto.UpdateSettingRequest{Value: "forty", Type: "integer"}, false},
		{"boolean ok", dto.UpdateSettingRequest{Value: "true", Type: "boolean"}, true},
		{"boolean bad", dto.UpdateSettingRequest{Value: "yes", Type: "boolean"}, false},
		{"json ok", dto.UpdateSettingRequest{Value: `{"a":1}`, Type: "json"}, true},
		{"json bad", dto.UpdateSettingRequest{Value: "{", Type: "json"}, false},
		{"string ok", dto.UpdateSettingRequest{Value: "anything", Type: "string"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.Update(context.Background(), "k-"+tc.name, tc.req)
			if tc.valid {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
			}
		})
	}
}

func TestSettingServiceGetNotFound(t *testing.T) {
	service := NewSettingService(newSettingRepoStub(), nil, 0, nil)
	_, err := service.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSettingServiceUpdateThenGet(t *testing.T) {
	service := NewSettingService(newSettingRepoStub(), nil, 0, nil)
	_, err := service.Update(context.Background(), models.SettingWorkDate, dto.UpdateSettingRequest{
		Value: "2026-01-10", Type: "string",
	})
	require.NoError(t, err)

	setting, err := service.Get(context.Background(), models.SettingWorkDate)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-10", setting.Value)
	assert.True(t, setting.IsActive)
}
