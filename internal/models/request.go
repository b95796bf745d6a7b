package models

import "time"

// RequestStatus enumerates badge request workflow states. The strings
// are wire-stable.
type RequestStatus string

const (
	StatusDraft         RequestStatus = "draft"
	StatusPhotoUploaded RequestStatus = "photo_uploaded"
	StatusReadyToSubmit RequestStatus = "ready_to_submit"
	StatusSubmitted     RequestStatus = "submitted"
	StatusUnderReview   RequestStatus = "under_review"
	StatusApproved      RequestStatus = "approved"
	StatusRejected      RequestStatus = "rejected"
	StatusBadgeCreated  RequestStatus = "badge_created"
	StatusPrinted       RequestStatus = "printed"
	StatusCompleted     RequestStatus = "completed"
)

// BadgeRequest tracks one staff subject's progress from draft to a
// printed badge. One-to-one with a staff profile.
type BadgeRequest struct {
	ID              string        `db:"id" json:"id"`
	StaffID         string        `db:"staff_id" json:"staff_id"`
	Status          RequestStatus `db:"status" json:"status"`
	SubmittedAt     *time.Time    `db:"submitted_at" json:"submitted_at,omitempty"`
	ReviewedBy      *string       `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time    `db:"reviewed_at" json:"reviewed_at,omitempty"`
	ApprovedBy      *string       `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt      *time.Time    `db:"approved_at" json:"approved_at,omitempty"`
	RejectionReason *string       `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CreatedBy       *string       `db:"created_by" json:"created_by,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// CanEdit reports whether the request is still on the submitter's side.
func (r *BadgeRequest) CanEdit() bool {
	switch r.Status {
	case StatusDraft, StatusPhotoUploaded, StatusReadyToSubmit, StatusRejected:
		return true
	}
	return false
}

// CanSubmit reports whether the request may be submitted for review.
func (r *BadgeRequest) CanSubmit() bool {
	return r.Status == StatusReadyToSubmit || r.Status == StatusRejected
}

// CanApprove reports whether the request may be approved or rejected.
func (r *BadgeRequest) CanApprove() bool {
	return r.Status == StatusSubmitted || r.Status == StatusUnderReview
}

// RequestFilter constrains listing queries.
type RequestFilter struct {
	Status     []RequestStatus
	CategoryID string
	Limit      int
	Offset     int
}
