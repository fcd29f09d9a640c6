package dto

// RegisterWarrantyRequest supplies the warranty details forwarded to the
// provider alongside the stored asset fields.
type RegisterWarrantyRequest struct {
	WarrantyProvider       *string `json:"warranty_provider"`
	WarrantyType           string  `json:"warranty_type" validate:"required,max=100"`
	WarrantyStart          *Date   `json:"warranty_start"`
	WarrantyExpiry         *Date   `json:"warranty_expiry"`
	WarrantyDurationMonths *int    `json:"warranty_duration_months" validate:"omitempty,min=1"`
	WarrantyTerms          *string `json:"warranty_terms"`
	WarrantyContact        *string `json:"warranty_contact"`
	WarrantyClaimURL       *string `json:"warranty_claim_url" validate:"omitempty,url"`
	WarrantyNotes          *string `json:"warranty_notes"`
}
