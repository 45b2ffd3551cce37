package privileges

// CreatePrivilegeRequest is the payload for POST /privileges.
type CreatePrivilegeRequest struct {
	Resource    string  `json:"resource" validate:"required,max=50"`
	Action      string  `json:"action" validate:"required,max=20"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=255"`
}

// UpdatePrivilegeRequest is the payload for PATCH /privileges/{id}.
type UpdatePrivilegeRequest struct {
	Resource    *string `json:"resource,omitempty" validate:"omitempty,min=1,max=50"`
	Action      *string `json:"action,omitempty" validate:"omitempty,min=1,max=20"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=255"`
}

// CountResponse reports list sizes for the /count endpoints.
type CountResponse struct {
	Count int `json:"count"`
}
