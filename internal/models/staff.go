package models

import "time"

// StaffProfile is the badge subject. Managed elsewhere; read here to
// drive submission guards and artifact rendering.
type StaffProfile struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	FirstName   string    `db:"first_name" json:"first_name"`
	LastName    string    `db:"last_name" json:"last_name"`
	DisplayName *string   `db:"display_name" json:"display_name,omitempty"`
	Position    string    `db:"position" json:"position"`
	CategoryID  string    `db:"category_id" json:"category_id"`
	ZoneCode    *string   `db:"zone_code" json:"zone_code,omitempty"`
	Department  string    `db:"department" json:"department"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// FullName joins title, first and last name the way badges print it.
func (s *StaffProfile) FullName() string {
	return s.Title + s.FirstName + " " + s.LastName
}

// Photo is the cropped staff photo (300x400) prepared upstream.
type Photo struct {
	ID         string    `db:"id" json:"id"`
	StaffID    string    `db:"staff_id" json:"staff_id"`
	Path       string    `db:"path" json:"path"`
	Width      int       `db:"width" json:"width"`
	Height     int       `db:"height" json:"height"`
	UploadedAt time.Time `db:"uploaded_at" json:"uploaded_at"`
}
