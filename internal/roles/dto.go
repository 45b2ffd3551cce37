package roles

// CreateRoleRequest is the payload for POST /roles.
type CreateRoleRequest struct {
	Name        string          `json:"name" validate:"required,max=50"`
	IsSuperuser bool            `json:"is_superuser"`
	Privileges  []PrivilegeSpec `json:"privileges,omitempty" validate:"omitempty,dive"`
}

// UpdateRoleRequest is the payload for PATCH /roles/{id}. A non-nil
// Privileges slice replaces the role's entire privilege set.
type UpdateRoleRequest struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,min=1,max=50"`
	IsSuperuser *bool            `json:"is_superuser,omitempty"`
	Privileges  *[]PrivilegeSpec `json:"privileges,omitempty" validate:"omitempty,dive"`
}

// CreateLinkRequest is the payload for POST /role_privileges.
type CreateLinkRequest struct {
	RoleID      int64 `json:"role_id" validate:"required,gt=0"`
	PrivilegeID int64 `json:"privilege_id" validate:"required,gt=0"`
}

// CountResponse reports list sizes for the /count endpoints.
type CountResponse struct {
	Count int `json:"count"`
}
