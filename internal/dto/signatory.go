package dto

// CreateSignatoryRequest registers a new signatory. New signatories
// start inactive; activation is a separate call.
type CreateSignatoryRequest struct {
	Rank          string `json:"rank"`
	FirstName     string `json:"first_name" binding:"required"`
	LastName      string `json:"last_name" binding:"required"`
	Department    string `json:"department" binding:"required"`
	Position      string `json:"position"`
	SignaturePath string `json:"signature_path"`
}
