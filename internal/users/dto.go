package users

// CreateUserRequest is the payload for POST /users.
type CreateUserRequest struct {
	Email    string  `json:"email" validate:"required,email,max=255"`
	Password string  `json:"password" validate:"required,min=8,max=128"`
	RoleIDs  []int64 `json:"role_ids" validate:"omitempty,dive,gt=0"`
}

// UpdateUserRequest is the payload for PATCH /users/{id}. A non-nil RoleIDs
// replaces the user's role set.
type UpdateUserRequest struct {
	Email   *string  `json:"email,omitempty" validate:"omitempty,email,max=255"`
	RoleIDs *[]int64 `json:"role_ids,omitempty" validate:"omitempty,dive,gt=0"`
}

// ResetPasswordRequest is the payload for POST /users/{id}/reset-password.
type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// RoleIDsRequest carries role ids for assign/remove operations.
type RoleIDsRequest struct {
	RoleIDs []int64 `json:"role_ids" validate:"required,min=1,dive,gt=0"`
}

// CountResponse reports list sizes for the /count endpoints.
type CountResponse struct {
	Count int `json:"count"`
}
