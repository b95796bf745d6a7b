package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/badge-issuance-api/internal/models"
)

// SettingRepository persists admin-editable system settings.
type SettingRepository struct {
	db *sqlx.DB
}

// NewSettingRepository constructs the repository.
func NewSettingRepository(db *sqlx.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// Get fetches an active setting by key.
func (r *SettingRepository) Get(ctx context.Context, key string) (*models.SystemSetting, error) {
	const query = `SELECT key, value, type, description, is_active, updated_at
	FROM system_settings WHERE key = $1 AND is_active = TRUE`
	var setting models.SystemSetting
	if err := r.db.GetContext(ctx, &setting, query, key); err != nil {
		return nil, err
	}
	return &setting, nil
}

// List returns all settings ordered by key.
func (r *SettingRepository) List(ctx context.Context) ([]models.SystemSetting, error) {
	const query = `SELECT key, value, type, description, is_active, updated_at FROM system_settings ORDER BY key`
	var settings []models.SystemSetting
	if err := r.db.SelectContext(ctx, &settings, query); err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return settings, nil
}

// Upsert inserts or replaces a setting value.
func (r *SettingRepository) Upsert(ctx context.Context, setting *models.SystemSetting) error {
	setting.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO system_settings (key, value, type, description, is_active, updated_at)
	VALUES (:key, :value, :type, :description, :is_active, :updated_at)
	ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, type = EXCLUDED.type,
	description = EXCLUDED.description, is_active = EXCLUDED.is_active, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, setting); err != nil {
		return fmt.Errorf("upsert setting: %w", err)
	}
	return nil
}
