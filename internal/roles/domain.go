package roles

import (
	"time"

	"github.com/gatehouse-api/gatehouse/internal/privileges"
)

// Role groups privileges. At most one non-deleted role may carry the
// superuser flag at any time.
type Role struct {
	ID          int64                  `json:"id"`
	Name        string                 `json:"name"`
	IsSuperuser bool                   `json:"is_superuser"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	DeletedAt   *time.Time             `json:"deleted_at,omitempty"`
	Privileges  []privileges.Privilege `json:"privileges"`
}

// Summary is the listing projection of a role.
type Summary struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	IsSuperuser bool   `json:"is_superuser"`
}

// Link is a denormalized role-privilege association row.
type Link struct {
	RoleID               int64   `json:"role_id"`
	PrivilegeID          int64   `json:"privilege_id"`
	RoleName             string  `json:"role_name"`
	PrivilegeResource    string  `json:"privilege_resource"`
	PrivilegeAction      string  `json:"privilege_action"`
	PrivilegeDescription *string `json:"privilege_description,omitempty"`
}

// PrivilegeSpec names a privilege by its natural key for grant requests.
type PrivilegeSpec struct {
	Resource string `json:"resource" validate:"required,max=50"`
	Action   string `json:"action" validate:"required,max=20"`
}
