package dto

// UpdateSettingRequest upserts one system setting.
type UpdateSettingRequest struct {
	Value       string `json:"value" binding:"required"`
	Type        string `json:"type" binding:"required,oneof=string integer boolean json"`
	Description string `json:"description"`
}
