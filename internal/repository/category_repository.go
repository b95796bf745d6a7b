package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/badge-issuance-api/internal/models"
)

// CategoryRepository reads badge categories. Categories are immutable
// after creation apart from the activation flag.
type CategoryRepository struct {
	db *sqlx.DB
}

// NewCategoryRepository constructs the repository.
func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

const categoryColumns = `id, name, color, color_code, description, is_active, created_at, updated_at`

// GetByID fetches a category by identifier.
func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*models.BadgeCategory, error) {
	query := fmt.Sprintf(`SELECT %s FROM badge_categories WHERE id = $1`, categoryColumns)
	var category models.BadgeCategory
	if err := r.db.GetContext(ctx, &category, query, id); err != nil {
		return nil, err
	}
	return &category, nil
}

// ListActive returns active categories in the fixed display order
// pink, red, yellow, green.
func (r *CategoryRepository) ListActive(ctx context.Context) ([]models.BadgeCategory, error) {
	query := fmt.Sprintf(`SELECT %s FROM badge_categories WHERE is_active = TRUE
	ORDER BY CASE color WHEN 'pink' THEN 1 WHEN 'red' THEN 2 WHEN 'yellow' THEN 3 WHEN 'green' THEN 4 ELSE 5 END`, categoryColumns)
	var categories []models.BadgeCategory
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("list badge categories: %w", err)
	}
	return categories, nil
}
