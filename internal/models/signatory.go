package models

import "time"

// Signatory is the person whose name (and optionally signature image)
// appears on badges as issuing authority. Exactly one signatory is
// active at a time.
type Signatory struct {
	ID            string    `db:"id" json:"id"`
	Rank          *string   `db:"rank" json:"rank,omitempty"`
	FirstName     string    `db:"first_name" json:"first_name"`
	LastName      string    `db:"last_name" json:"last_name"`
	Department    string    `db:"department" json:"department"`
	Position      *string   `db:"position" json:"position,omitempty"`
	SignaturePath *string   `db:"signature_path" json:"signature_path,omitempty"`
	IsActive      bool      `db:"is_active" json:"is_active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// FullName joins rank and name parts.
func (s *Signatory) FullName() string {
	name := s.FirstName + " " + s.LastName
	if s.Rank != nil && *s.Rank != "" {
		return *s.Rank + " " + name
	}
	return name
}
