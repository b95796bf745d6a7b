package dto

// ActionRequest carries an optional comment for a workflow action.
type ActionRequest struct {
	Comment string `json:"comment"`
}

// RejectRequest carries the mandatory rejection reason.
type RejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// BulkActionRequest names the requests a bulk workflow action targets.
// Reason is required for bulk reject, ignored otherwise.
type BulkActionRequest struct {
	RequestIDs []string `json:"request_ids" binding:"required,min=1"`
	Reason     string   `json:"reason"`
	Comment    string   `json:"comment"`
}

// BulkActionItem is the outcome for one request in a bulk action.
type BulkActionItem struct {
	RequestID string `json:"request_id"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

// BulkActionResult summarises a bulk workflow action. Items keep the
// input order; the batch never rolls back as a whole.
type BulkActionResult struct {
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Items     []BulkActionItem `json:"items"`
}
