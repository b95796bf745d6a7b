package dto

// CreateBadgeRequest names the approved request to issue a badge for.
type CreateBadgeRequest struct {
	RequestID string `json:"request_id" binding:"required"`
}

// ChangeColorRequest moves a badge to another category. The badge is
// deleted and reissued because the number encodes the category color.
type ChangeColorRequest struct {
	CategoryID string `json:"category_id" binding:"required"`
}

// SignatureModeRequest switches how the issuing authority signs the
// badge. Mode is "manual" or "electronic".
type SignatureModeRequest struct {
	Mode string `json:"mode" binding:"required,oneof=manual electronic"`
}
