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

// ApprovalLogRepository reads the append-only approval trail. Entries
// are written through insertApprovalLog inside the same transaction as
// the status mutation they record; no update or delete path exists.
type ApprovalLogRepository struct {
	db *sqlx.DB
}

// NewApprovalLogRepository constructs the repository.
func NewApprovalLogRepository(db *sqlx.DB) *ApprovalLogRepository {
	return &ApprovalLogRepository{db: db}
}

const approvalLogColumns = `id, request_id, action, previous_status, new_status, comment, performed_by, performed_at, ip_address`

// ListByRequest returns a request's trail in the order it happened.
func (r *ApprovalLogRepository) ListByRequest(ctx context.Context, requestID string) ([]models.ApprovalLog, error) {
	query := fmt.Sprintf(`SELECT %s FROM approval_logs WHERE request_id = $1 ORDER BY performed_at ASC, id ASC`, approvalLogColumns)
	var logs []models.ApprovalLog
	if err := r.db.SelectContext(ctx, &logs, query, requestID); err != nil {
		return nil, fmt.Errorf("list approval logs: %w", err)
	}
	return logs, nil
}

// ApprovalLogFilter constrains history queries.
type ApprovalLogFilter struct {
	Action models.ApprovalAction
	Limit  int
	Offset int
}

// List returns recent entries across all requests, newest first.
func (r *ApprovalLogRepository) List(ctx context.Context, filter ApprovalLogFilter) ([]models.ApprovalLog, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 2)
	builder.WriteString(fmt.Sprintf("SELECT %s FROM approval_logs", approvalLogColumns))

	if filter.Action != "" {
		args = append(args, filter.Action)
		builder.WriteString(fmt.Sprintf(" WHERE action = $%d", len(args)))
	}
	builder.WriteString(" ORDER BY performed_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var logs []models.ApprovalLog
	if err := r.db.SelectContext(ctx, &logs, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list approval history: %w", err)
	}
	return logs, nil
}

// insertApprovalLog appends one entry using the caller's transaction so
// the status mutation and its log row commit or roll back together.
func insertApprovalLog(ctx context.Context, ext sqlx.ExtContext, log *models.ApprovalLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.PerformedAt.IsZero() {
		log.PerformedAt = time.Now().UTC()
	}
	const query = `INSERT INTO approval_logs
	(id, request_id, action, previous_status, new_status, comment, performed_by, performed_at, ip_address)
	VALUES (:id, :request_id, :action, :previous_status, :new_status, :comment, :performed_by, :performed_at, :ip_address)`
	if _, err := sqlx.NamedExecContext(ctx, ext, query, log); err != nil {
		return fmt.Errorf("append approval log: %w", err)
	}
	return nil
}
