package dto

import (
	"minimart/internal/domain/auth"
)

// LoginRequest is the request body for login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Credentials converts the request to domain credentials.
func (r *LoginRequest) Credentials() auth.Credentials {
	return auth.Credentials{
		Username: r.Username,
		Password: r.Password,
	}
}

// CreateUserRequest is the request body for creating a user account.
type CreateUserRequest struct {
	Username    string  `json:"username" binding:"required"`
	Password    string  `json:"password" binding:"required,min=8"`
	DisplayName string  `json:"displayName" binding:"required"`
	Role        string  `json:"role" binding:"required,oneof=admin cashier vendor"`
	CustomerID  *string `json:"customerId"`
}

// ChangePasswordRequest is the request body for a password change.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}
