package dto

// ReferenceRequest creates or renames a category or department.
type ReferenceRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}
