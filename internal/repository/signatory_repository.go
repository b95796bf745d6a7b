package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/badge-issuance-api/internal/models"
)

// SignatoryRepository persists badge signatories. The active signatory
// is single-valued: Activate flips the flag for the whole table in one
// transaction.
type SignatoryRepository struct {
	db *sqlx.DB
}

// NewSignatoryRepository constructs the repository.
func NewSignatoryRepository(db *sqlx.DB) *SignatoryRepository {
	return &SignatoryRepository{db: db}
}

const signatoryColumns = `id, rank, first_name, last_name, department, position, signature_path, is_active, created_at, updated_at`

// Create inserts a signatory (inactive by default).
func (r *SignatoryRepository) Create(ctx context.Context, signatory *models.Signatory) error {
	if signatory.ID == "" {
		signatory.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	signatory.CreatedAt = now
	signatory.UpdatedAt = now
	const query = `INSERT INTO signatories
	(id, rank, first_name, last_name, department, position, signature_path, is_active, created_at, updated_at)
	VALUES (:id, :rank, :first_name, :last_name, :department, :position, :signature_path, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, signatory); err != nil {
		return fmt.Errorf("create signatory: %w", err)
	}
	return nil
}

// GetByID fetches a signatory.
func (r *SignatoryRepository) GetByID(ctx context.Context, id string) (*models.Signatory, error) {
	query := fmt.Sprintf(`SELECT %s FROM signatories WHERE id = $1`, signatoryColumns)
	var signatory models.Signatory
	if err := r.db.GetContext(ctx, &signatory, query, id); err != nil {
		return nil, err
	}
	return &signatory, nil
}

// List returns all signatories ordered by rank and name.
func (r *SignatoryRepository) List(ctx context.Context) ([]models.Signatory, error) {
	query := fmt.Sprintf(`SELECT %s FROM signatories ORDER BY rank, first_name`, signatoryColumns)
	var signatories []models.Signatory
	if err := r.db.SelectContext(ctx, &signatories, query); err != nil {
		return nil, fmt.Errorf("list signatories: %w", err)
	}
	return signatories, nil
}

// ListActive returns all rows currently flagged active. The service
// treats anything other than exactly one row as a configuration error.
func (r *SignatoryRepository) ListActive(ctx context.Context) ([]models.Signatory, error) {
	query := fmt.Sprintf(`SELECT %s FROM signatories WHERE is_active = TRUE`, signatoryColumns)
	var signatories []models.Signatory
	if err := r.db.SelectContext(ctx, &signatories, query); err != nil {
		return nil, fmt.Errorf("list active signatories: %w", err)
	}
	return signatories, nil
}

// Activate makes the given signatory the single active one.
func (r *SignatoryRepository) Activate(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin signatory activate: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE signatories SET is_active = FALSE, updated_at = $1 WHERE is_active = TRUE`, now); err != nil {
		return fmt.Errorf("deactivate signatories: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE signatories SET is_active = TRUE, updated_at = $1 WHERE id = $2`, now, id)
	if err != nil {
		return fmt.Errorf("activate signatory: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check signatory activate rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("activate signatory: no such signatory %s", id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit signatory activate: %w", err)
	}
	return nil
}
