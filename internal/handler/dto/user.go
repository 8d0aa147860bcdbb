package dto

import "github.com/productcatalog/catalog/internal/model"

// CreateUserRequest represents the request body for creating a user.
// IsAdmin defaults to true when omitted.
type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email,max=320"`
	Password string `json:"password" validate:"required,max=1024"`
	IsAdmin  *bool  `json:"is_admin,omitempty"`
}

// UpdateUserRequest represents a partial user update.
type UpdateUserRequest struct {
	Email    *string `json:"email,omitempty" validate:"omitempty,email,max=320"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=1,max=1024"`
	IsAdmin  *bool   `json:"is_admin,omitempty"`
}

// UserResponse represents a user in API responses. It never carries the password hash.
type UserResponse struct {
	ID      int64  `json:"id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

// ToUserResponse converts a User model to UserResponse DTO.
func ToUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:      u.ID,
		Email:   u.Email,
		IsAdmin: u.IsAdmin,
	}
}

// ToUserListResponse converts a slice of users.
func ToUserListResponse(users []model.User) []UserResponse {
	out := make([]UserResponse, len(users))
	for i := range users {
		out[i] = ToUserResponse(&users[i])
	}
	return out
}
