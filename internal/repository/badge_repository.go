package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/badge-issuance-api/internal/models"
)

// BadgeRepository persists issued badges, their print counters and
// print logs. The composite operations (create, delete, print batch,
// reset) pair the badge mutation with the owning request's transition
// in one transaction.
type BadgeRepository struct {
	db *sqlx.DB
}

// NewBadgeRepository constructs the repository.
func NewBadgeRepository(db *sqlx.DB) *BadgeRepository {
	return &BadgeRepository{db: db}
}

const badgeColumns = `id, staff_id, category_id, number, artifact_path, signature_mode, signer_id, is_printed, printed_count, created_by, created_at, updated_at`

// GetByID fetches a badge by identifier.
func (r *BadgeRepository) GetByID(ctx context.Context, id string) (*models.Badge, error) {
	query := fmt.Sprintf(`SELECT %s FROM badges WHERE id = $1`, badgeColumns)
	var badge models.Badge
	if err := r.db.GetContext(ctx, &badge, query, id); err != nil {
		return nil, err
	}
	return &badge, nil
}

// GetByStaffID fetches the live badge for a staff subject, if any.
func (r *BadgeRepository) GetByStaffID(ctx context.Context, staffID string) (*models.Badge, error) {
	query := fmt.Sprintf(`SELECT %s FROM badges WHERE staff_id = $1`, badgeColumns)
	var badge models.Badge
	if err := r.db.GetContext(ctx, &badge, query, staffID); err != nil {
		return nil, err
	}
	return &badge, nil
}

// ListNumbersByCategory returns every issued number in the category's
// namespace. The allocator scans these; it never counts rows.
func (r *BadgeRepository) ListNumbersByCategory(ctx context.Context, categoryID string) ([]string, error) {
	var numbers []string
	if err := r.db.SelectContext(ctx, &numbers,
		`SELECT number FROM badges WHERE category_id = $1`, categoryID); err != nil {
		return nil, fmt.Errorf("list badge numbers: %w", err)
	}
	return numbers, nil
}

// List returns badges matching the filter, newest first.
func (r *BadgeRepository) List(ctx context.Context, filter models.BadgeFilter) ([]models.Badge, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(fmt.Sprintf("SELECT %s FROM badges", badgeColumns))

	conditions := make([]string, 0, 3)
	if filter.CategoryID != "" {
		args = append(args, filter.CategoryID)
		conditions = append(conditions, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if filter.Printed != nil {
		args = append(args, *filter.Printed)
		conditions = append(conditions, fmt.Sprintf("is_printed = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conditions = append(conditions, fmt.Sprintf("number ILIKE $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var badges []models.Badge
	if err := r.db.SelectContext(ctx, &badges, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	return badges, nil
}

// CreateWithRequestAdvance inserts the badge and advances its request
// (approved -> badge_created) with the audit entry, atomically.
func (r *BadgeRepository) CreateWithRequestAdvance(ctx context.Context, badge *models.Badge, transition TransitionParams) error {
	if badge.ID == "" {
		badge.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	badge.CreatedAt = now
	badge.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin badge create: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `INSERT INTO badges
	(id, staff_id, category_id, number, artifact_path, signature_mode, signer_id, is_printed, printed_count, created_by, created_at, updated_at)
	VALUES (:id, :staff_id, :category_id, :number, :artifact_path, :signature_mode, :signer_id, :is_printed, :printed_count, :created_by, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, badge); err != nil {
		return fmt.Errorf("create badge: %w", err)
	}

	if err := transitionRequestTx(ctx, tx, transition); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit badge create: %w", err)
	}
	return nil
}

// DeleteWithRequestRollback removes the badge and rolls its request
// back to approved with the audit entry, atomically.
func (r *BadgeRepository) DeleteWithRequestRollback(ctx context.Context, badgeID string, transition TransitionParams) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin badge delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM badges WHERE id = $1`, badgeID); err != nil {
		return fmt.Errorf("delete badge: %w", err)
	}

	if err := transitionRequestTx(ctx, tx, transition); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit badge delete: %w", err)
	}
	return nil
}

// UpdateSignature records a regenerated artifact's signature mode and
// signer. The artifact path stays the same; the file was overwritten.
func (r *BadgeRepository) UpdateSignature(ctx context.Context, badgeID string, mode models.SignatureMode, signerID *string) error {
	const query = `UPDATE badges SET signature_mode = $1, signer_id = $2, updated_at = $3 WHERE id = $4`
	if _, err := r.db.ExecContext(ctx, query, mode, signerID, time.Now().UTC(), badgeID); err != nil {
		return fmt.Errorf("update badge signature: %w", err)
	}
	return nil
}

// PrintBatchItem is one badge included in a print batch. RequestID is
// empty when the owning request has already advanced past
// badge_created (reprints do not move the request again).
type PrintBatchItem struct {
	BadgeID   string
	RequestID string
	Log       models.ApprovalLog
}

// MarkPrintedBatch applies the print side effects for a whole batch as
// one transaction: increment counters, set is_printed, append one
// print log per badge, and advance any request still in badge_created.
func (r *BadgeRepository) MarkPrintedBatch(ctx context.Context, items []PrintBatchItem, printedBy *string, notes string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin print batch: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	for _, item := range items {
		if _, err := tx.ExecContext(ctx,
			`UPDATE badges SET printed_count = printed_count + 1, is_printed = TRUE, updated_at = $1 WHERE id = $2`,
			now, item.BadgeID); err != nil {
			return fmt.Errorf("update print counters: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO print_logs (id, badge_id, printed_by, printed_at, notes) VALUES ($1, $2, $3, $4, $5)`,
			uuid.NewString(), item.BadgeID, printedBy, now, notes); err != nil {
			return fmt.Errorf("append print log: %w", err)
		}

		if item.RequestID != "" {
			transition := TransitionParams{
				RequestID:    item.RequestID,
				FromStatuses: []models.RequestStatus{models.StatusBadgeCreated},
				ToStatus:     models.StatusPrinted,
				Log:          item.Log,
			}
			if err := transitionRequestTx(ctx, tx, transition); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit print batch: %w", err)
	}
	return nil
}

// ResetPrint zeroes a badge's print counters and rolls a printed
// request back to badge_created, atomically.
func (r *BadgeRepository) ResetPrint(ctx context.Context, badgeID string, transition *TransitionParams) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin print reset: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`UPDATE badges SET printed_count = 0, is_printed = FALSE, updated_at = $1 WHERE id = $2`,
		time.Now().UTC(), badgeID); err != nil {
		return fmt.Errorf("reset print counters: %w", err)
	}

	if transition != nil {
		if err := transitionRequestTx(ctx, tx, *transition); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit print reset: %w", err)
	}
	return nil
}

// ListPrintLogs returns a badge's print history, newest first.
func (r *BadgeRepository) ListPrintLogs(ctx context.Context, badgeID string) ([]models.PrintLog, error) {
	var logs []models.PrintLog
	if err := r.db.SelectContext(ctx, &logs,
		`SELECT id, badge_id, printed_by, printed_at, notes FROM print_logs WHERE badge_id = $1 ORDER BY printed_at DESC`,
		badgeID); err != nil {
		return nil, fmt.Errorf("list print logs: %w", err)
	}
	return logs, nil
}
