package models

import "time"

// ApprovalAction enumerates the approval log vocabulary.
type ApprovalAction string

const (
	ActionSubmit       ApprovalAction = "submit"
	ActionReview       ApprovalAction = "review"
	ActionApprove      ApprovalAction = "approve"
	ActionReject       ApprovalAction = "reject"
	ActionEdit         ApprovalAction = "edit"
	ActionBadgeCreated ApprovalAction = "badge_created"
	ActionPrinted      ApprovalAction = "printed"
	ActionResetPrint   ApprovalAction = "reset_print"
	ActionChangeColor  ApprovalAction = "change_color"
	ActionBadgeDeleted ApprovalAction = "badge_deleted"
)

// ApprovalLog is one append-only audit entry for a request transition.
// Rows are never updated or deleted; timestamp order is the trail.
type ApprovalLog struct {
	ID             string         `db:"id" json:"id"`
	RequestID      string         `db:"request_id" json:"request_id"`
	Action         ApprovalAction `db:"action" json:"action"`
	PreviousStatus RequestStatus  `db:"previous_status" json:"previous_status"`
	NewStatus      RequestStatus  `db:"new_status" json:"new_status"`
	Comment        string         `db:"comment" json:"comment"`
	PerformedBy    *string        `db:"performed_by" json:"performed_by,omitempty"`
	PerformedAt    time.Time      `db:"performed_at" json:"performed_at"`
	IPAddress      string         `db:"ip_address" json:"ip_address"`
}
