package models

import "time"

// SettingType declares how a system setting value is interpreted.
type SettingType string

const (
	SettingTypeString  SettingType = "string"
	SettingTypeInteger SettingType = "integer"
	SettingTypeBoolean SettingType = "boolean"
	SettingTypeJSON    SettingType = "json"
)

// Well-known setting keys.
const (
	SettingWorkDate = "work_date"
)

// SystemSetting is an admin-editable key/value configuration row.
type SystemSetting struct {
	Key         string      `db:"key" json:"key"`
	Value       string      `db:"value" json:"value"`
	Type        SettingType `db:"type" json:"type"`
	Description *string     `db:"description" json:"description,omitempty"`
	IsActive    bool        `db:"is_active" json:"is_active"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}
