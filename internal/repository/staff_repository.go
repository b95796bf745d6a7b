package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/badge-issuance-api/internal/models"
)

// StaffRepository reads staff subjects and their cropped photos. Staff
// records are managed by the registry; this service only consumes them.
type StaffRepository struct {
	db *sqlx.DB
}

// NewStaffRepository constructs the repository.
func NewStaffRepository(db *sqlx.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// GetByID fetches a staff profile.
func (r *StaffRepository) GetByID(ctx context.Context, id string) (*models.StaffProfile, error) {
	const query = `SELECT id, title, first_name, last_name, display_name, position, category_id, zone_code, department, created_at, updated_at
	FROM staff_profiles WHERE id = $1`
	var staff models.StaffProfile
	if err := r.db.GetContext(ctx, &staff, query, id); err != nil {
		return nil, err
	}
	return &staff, nil
}

// GetPhoto fetches the cropped photo for a staff subject.
func (r *StaffRepository) GetPhoto(ctx context.Context, staffID string) (*models.Photo, error) {
	const query = `SELECT id, staff_id, path, width, height, uploaded_at FROM photos WHERE staff_id = $1`
	var photo models.Photo
	if err := r.db.GetContext(ctx, &photo, query, staffID); err != nil {
		return nil, err
	}
	return &photo, nil
}

// HasPhoto reports whether a cropped photo exists for the subject.
func (r *StaffRepository) HasPhoto(ctx context.Context, staffID string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM photos WHERE staff_id = $1)`, staffID); err != nil {
		return false, fmt.Errorf("check staff photo: %w", err)
	}
	return exists, nil
}
