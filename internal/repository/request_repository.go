package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/badge-issuance-api/internal/models"
)

// RequestRepository persists badge requests and their transitions.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

const requestColumns = `id, staff_id, status, submitted_at, reviewed_by, reviewed_at, approved_by, approved_at, rejection_reason, created_by, created_at, updated_at`

// Create inserts a new request in draft state.
func (r *RequestRepository) Create(ctx context.Context, request *models.BadgeRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.Status == "" {
		request.Status = models.StatusDraft
	}
	now := time.Now().UTC()
	request.CreatedAt = now
	request.UpdatedAt = now
	const query = `INSERT INTO badge_requests
	(id, staff_id, status, created_by, created_at, updated_at)
	VALUES (:id, :staff_id, :status, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create badge request: %w", err)
	}
	return nil
}

// GetByID fetches a request by identifier.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*models.BadgeRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM badge_requests WHERE id = $1`, requestColumns)
	var request models.BadgeRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// GetByStaffID fetches the request belonging to a staff subject.
func (r *RequestRepository) GetByStaffID(ctx context.Context, staffID string) (*models.BadgeRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM badge_requests WHERE staff_id = $1`, requestColumns)
	var request models.BadgeRequest
	if err := r.db.GetContext(ctx, &request, query, staffID); err != nil {
		return nil, err
	}
	return &request, nil
}

// List returns requests matching the filter, newest first.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.BadgeRequest, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(fmt.Sprintf("SELECT %s FROM badge_requests", requestColumns))

	conditions := make([]string, 0, 2)
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CategoryID != "" {
		args = append(args, filter.CategoryID)
		conditions = append(conditions, fmt.Sprintf(
			"staff_id IN (SELECT id FROM staff_profiles WHERE category_id = $%d)", len(args)))
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

	var requests []models.BadgeRequest
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list badge requests: %w", err)
	}
	return requests, nil
}

// TransitionParams groups one guarded status mutation and its audit
// entry. FromStatuses is the optimistic-concurrency guard: the update
// applies only while the row still holds one of them.
type TransitionParams struct {
	RequestID       string
	FromStatuses    []models.RequestStatus
	ToStatus        models.RequestStatus
	SubmittedAt     *time.Time
	ReviewedBy      *string
	ReviewedAt      *time.Time
	ApprovedBy      *string
	ApprovedAt      *time.Time
	RejectionReason *string
	Log             models.ApprovalLog
}

// Transition applies the status mutation and appends its approval-log
// entry as one transaction. sql.ErrNoRows reports that the request no
// longer holds any expected status (stale state).
func (r *RequestRepository) Transition(ctx context.Context, params TransitionParams) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := transitionRequestTx(ctx, tx, params); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transition: %w", err)
	}
	return nil
}

// transitionRequestTx performs the guarded update plus log append on an
// open transaction so composite operations (badge create/delete/print)
// can reuse it.
func transitionRequestTx(ctx context.Context, tx *sqlx.Tx, params TransitionParams) error {
	setParts := []string{"status = $1", "updated_at = $2"}
	args := []interface{}{params.ToStatus, time.Now().UTC()}

	appendSet := func(column string, value interface{}) {
		args = append(args, value)
		setParts = append(setParts, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if params.SubmittedAt != nil {
		appendSet("submitted_at", *params.SubmittedAt)
	}
	if params.ReviewedBy != nil {
		appendSet("reviewed_by", *params.ReviewedBy)
	}
	if params.ReviewedAt != nil {
		appendSet("reviewed_at", *params.ReviewedAt)
	}
	if params.ApprovedBy != nil {
		appendSet("approved_by", *params.ApprovedBy)
	}
	if params.ApprovedAt != nil {
		appendSet("approved_at", *params.ApprovedAt)
	}
	if params.RejectionReason != nil {
		appendSet("rejection_reason", *params.RejectionReason)
	}

	args = append(args, params.RequestID)
	idArg := len(args)

	placeholders := make([]string, len(params.FromStatuses))
	for i, status := range params.FromStatuses {
		args = append(args, status)
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}

	query := fmt.Sprintf("UPDATE badge_requests SET %s WHERE id = $%d AND status IN (%s)",
		strings.Join(setParts, ", "), idArg, strings.Join(placeholders, ","))

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("transition badge request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check transition rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	return insertApprovalLog(ctx, tx, &params.Log)
}
