package dto

import "github.com/noah-isme/asset-desk-api/internal/models"

// UpdateProfileRequest is the self-service profile edit. Role and department
// are accepted only so that attempts to change them can be rejected.
type UpdateProfileRequest struct {
	FirstName    *string `json:"first_name" validate:"omitempty,max=100"`
	LastName     *string `json:"last_name" validate:"omitempty,max=100"`
	Role         *string `json:"role,omitempty"`
	DepartmentID *string `json:"department_id,omitempty"`
}

// AdminUpdateUserRequest is an admin edit of another user.
type AdminUpdateUserRequest struct {
	Role         *models.UserRole `json:"role" validate:"omitempty,oneof=admin user"`
	FirstName    *string          `json:"first_name" validate:"omitempty,max=100"`
	LastName     *string          `json:"last_name" validate:"omitempty,max=100"`
	DepartmentID *string          `json:"department_id"`
}
