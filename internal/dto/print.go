package dto

// PrintBatchRequest names the badges to lay out on one A4 sheet.
type PrintBatchRequest struct {
	BadgeIDs []string `json:"badge_ids" binding:"required,min=1,max=8"`
	Notes    string   `json:"notes"`
}

// PrintBatchResult reports a generated print sheet. Sheet holds the PDF
// bytes for immediate download; SheetPath is where the copy was stored.
type PrintBatchResult struct {
	SheetPath  string `json:"sheet_path"`
	BadgeCount int    `json:"badge_count"`
	Sheet      []byte `json:"-"`
}
