package models

import "time"

// ColorKey identifies a badge category's template and numbering
// namespace.
type ColorKey string

const (
	ColorPink   ColorKey = "pink"
	ColorRed    ColorKey = "red"
	ColorYellow ColorKey = "yellow"
	ColorGreen  ColorKey = "green"
)

// Valid reports whether the color key is one of the known templates.
func (c ColorKey) Valid() bool {
	switch c {
	case ColorPink, ColorRed, ColorYellow, ColorGreen:
		return true
	}
	return false
}

// RequiresPhoto reports whether badges of this color carry a staff
// photo. Yellow and green badges are issued without one.
func (c ColorKey) RequiresPhoto() bool {
	return c != ColorYellow && c != ColorGreen
}

// BadgeCategory is a badge color/class with its own template and
// numbering namespace.
type BadgeCategory struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Color       ColorKey  `db:"color" json:"color"`
	ColorCode   string    `db:"color_code" json:"color_code"`
	Description *string   `db:"description" json:"description,omitempty"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// SignatureMode selects how the issuing authority signs a badge.
type SignatureMode string

const (
	SignatureManual     SignatureMode = "manual"
	SignatureElectronic SignatureMode = "electronic"
)

// Badge is an issued badge with its rendered artifact. At most one live
// badge exists per staff subject; the number is globally unique and
// encodes the category color as its prefix.
type Badge struct {
	ID            string        `db:"id" json:"id"`
	StaffID       string        `db:"staff_id" json:"staff_id"`
	CategoryID    string        `db:"category_id" json:"category_id"`
	Number        string        `db:"number" json:"number"`
	ArtifactPath  string        `db:"artifact_path" json:"artifact_path"`
	SignatureMode SignatureMode `db:"signature_mode" json:"signature_mode"`
	SignerID      *string       `db:"signer_id" json:"signer_id,omitempty"`
	IsPrinted     bool          `db:"is_printed" json:"is_printed"`
	PrintedCount  int           `db:"printed_count" json:"printed_count"`
	CreatedBy     *string       `db:"created_by" json:"created_by,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// PrintLog records one physical print event for a badge.
type PrintLog struct {
	ID        string    `db:"id" json:"id"`
	BadgeID   string    `db:"badge_id" json:"badge_id"`
	PrintedBy *string   `db:"printed_by" json:"printed_by,omitempty"`
	PrintedAt time.Time `db:"printed_at" json:"printed_at"`
	Notes     string    `db:"notes" json:"notes"`
}

// BadgeFilter constrains badge listing queries.
type BadgeFilter struct {
	CategoryID string
	Printed    *bool
	Search     string
	Limit      int
	Offset     int
}
