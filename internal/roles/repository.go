package roles

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatehouse-api/gatehouse/internal/platform/db"
	"github.com/gatehouse-api/gatehouse/internal/privileges"
	"github.com/gatehouse-api/gatehouse/internal/shared"
)

// Repository defines persistence operations for roles and their privilege
// links.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64, includeDeleted bool) (*Role, error)
	GetByName(ctx context.Context, name string) (*Role, error)
	ListSummaries(ctx context.Context, includeDeleted bool, req shared.PageRequest) ([]Summary, error)
	Count(ctx context.Context, includeDeleted bool) (int, error)
	Create(ctx context.Context, name string, isSuperuser bool) (int64, error)
	Update(ctx context.Context, id int64, name *string, isSuperuser *bool) error
	SoftDelete(ctx context.Context, id int64) error
	HardDelete(ctx context.Context, id int64) error
	Restore(ctx context.Context, id int64) error
	CountOtherActiveSuperusers(ctx context.Context, excludeRoleID int64) (int, error)

	GetOrCreatePrivilege(ctx context.Context, resource, action string) (int64, error)
	AttachPrivilege(ctx context.Context, roleID, privilegeID int64) error
	DetachPrivilege(ctx context.Context, roleID, privilegeID int64) error
	ClearPrivileges(ctx context.Context, roleID int64) error
	PrivilegeExists(ctx context.Context, privilegeID int64) (bool, error)

	ListLinks(ctx context.Context, req shared.PageRequest) ([]Link, error)
	CountLinks(ctx context.Context) (int, error)
	GetLink(ctx context.Context, roleID, privilegeID int64) (*Link, error)
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const roleColumns = "id, name, is_superuser, created_at, updated_at, deleted_at"

func (r *repository) scanRole(ctx context.Context, row pgx.Row) (*Role, error) {
	var role Role
	err := row.Scan(&role.ID, &role.Name, &role.IsSuperuser, &role.CreatedAt, &role.UpdatedAt, &role.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	privs, err := r.rolePrivileges(ctx, role.ID)
	if err != nil {
		return nil, err
	}
	role.Privileges = privs
	return &role, nil
}

// rolePrivileges loads the active privileges linked to a role with an
// explicit join, so callers always receive fully populated roles.
func (r *repository) rolePrivileges(ctx context.Context, roleID int64) ([]privileges.Privilege, error) {
	rows, err := r.db.Query(ctx, `
		SELECT p.id, p.resource, p.action, p.description, p.created_at, p.updated_at, p.deleted_at
		FROM role_privileges rp
		JOIN privileges p ON p.id = rp.privilege_id
		WHERE rp.role_id = $1 AND p.deleted_at IS NULL
		ORDER BY p.id`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	privs := make([]privileges.Privilege, 0, 8)
	for rows.Next() {
		var p privileges.Privilege
		if err := rows.Scan(&p.ID, &p.Resource, &p.Action, &p.Description, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt); err != nil {
			return nil, err
		}
		privs = append(privs, p)
	}
	return privs, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64, includeDeleted bool) (*Role, error) {
	query := fmt.Sprintf("SELECT %s FROM roles WHERE id = $1", roleColumns)
	if !includeDeleted {
		query += " AND deleted_at IS NULL"
	}
	return r.scanRole(ctx, r.db.QueryRow(ctx, query, id))
}

func (r *repository) GetByName(ctx context.Context, name string) (*Role, error) {
	query := fmt.Sprintf("SELECT %s FROM roles WHERE name = $1 AND deleted_at IS NULL", roleColumns)
	return r.scanRole(ctx, r.db.QueryRow(ctx, query, name))
}

func (r *repository) ListSummaries(ctx context.Context, includeDeleted bool, req shared.PageRequest) ([]Summary, error) {
	query := "SELECT id, name, is_superuser FROM roles"
	if !includeDeleted {
		query += " WHERE deleted_at IS NULL"
	}
	query += " ORDER BY id LIMIT $1 OFFSET $2"

	rows, err := r.db.Query(ctx, query, req.Limit(), req.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]Summary, 0, req.Limit())
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.Name, &s.IsSuperuser); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (r *repository) Count(ctx context.Context, includeDeleted bool) (int, error) {
	query := "SELECT COUNT(*) FROM roles"
	if !includeDeleted {
		query += " WHERE deleted_at IS NULL"
	}
	var count int
	if err := r.db.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) Create(ctx context.Context, name string, isSuperuser bool) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		"INSERT INTO roles (name, is_superuser) VALUES ($1, $2) RETURNING id",
		name, isSuperuser).Scan(&id)
	if err != nil {
		return 0, translateRoleConflict(err)
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, id int64, name *string, isSuperuser *bool) error {
	query := "UPDATE roles SET updated_at = NOW()"
	var args []interface{}
	argPos := 1

	if name != nil {
		query += fmt.Sprintf(", name = $%d", argPos)
		args = append(args, *name)
		argPos++
	}
	if isSuperuser != nil {
		query += fmt.Sprintf(", is_superuser = $%d", argPos)
		args = append(args, *isSuperuser)
		argPos++
	}

	query += fmt.Sprintf(" WHERE id = $%d AND deleted_at IS NULL", argPos)
	args = append(args, id)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return translateRoleConflict(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) SoftDelete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE roles SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) HardDelete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM roles WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Restore(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE roles SET deleted_at = NULL, updated_at = NOW() WHERE id = $1", id)
	if err != nil {
		return translateRoleConflict(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) CountOtherActiveSuperusers(ctx context.Context, excludeRoleID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM roles WHERE is_superuser AND deleted_at IS NULL AND id <> $1",
		excludeRoleID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// GetOrCreatePrivilege resolves (resource, action) to a privilege id,
// inserting the privilege when absent and reviving a soft-deleted match.
func (r *repository) GetOrCreatePrivilege(ctx context.Context, resource, action string) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		"SELECT id FROM privileges WHERE resource = $1 AND action = $2 AND deleted_at IS NULL",
		resource, action).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}
	err = r.db.QueryRow(ctx, `
		INSERT INTO privileges (resource, action)
		VALUES ($1, $2)
		ON CONFLICT (resource, action) DO UPDATE SET deleted_at = NULL, updated_at = NOW()
		RETURNING id`, resource, action).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repository) AttachPrivilege(ctx context.Context, roleID, privilegeID int64) error {
	_, err := r.db.Exec(ctx,
		"INSERT INTO role_privileges (role_id, privilege_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
		roleID, privilegeID)
	return err
}

func (r *repository) DetachPrivilege(ctx context.Context, roleID, privilegeID int64) error {
	_, err := r.db.Exec(ctx,
		"DELETE FROM role_privileges WHERE role_id = $1 AND privilege_id = $2",
		roleID, privilegeID)
	return err
}

func (r *repository) ClearPrivileges(ctx context.Context, roleID int64) error {
	_, err := r.db.Exec(ctx, "DELETE FROM role_privileges WHERE role_id = $1", roleID)
	return err
}

func (r *repository) PrivilegeExists(ctx context.Context, privilegeID int64) (bool, error) {
	var count int
	err := r.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM privileges WHERE id = $1 AND deleted_at IS NULL",
		privilegeID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

const linkColumns = `
	rp.role_id, rp.privilege_id, r.name,
	p.resource, p.action, p.description`

func (r *repository) ListLinks(ctx context.Context, req shared.PageRequest) ([]Link, error) {
	rows, err := r.db.Query(ctx, fmt.Sprintf(`
		SELECT %s
		FROM role_privileges rp
		JOIN roles r ON r.id = rp.role_id
		JOIN privileges p ON p.id = rp.privilege_id
		ORDER BY rp.role_id, rp.privilege_id
		LIMIT $1 OFFSET $2`, linkColumns),
		req.Limit(), req.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := make([]Link, 0, req.Limit())
	for rows.Next() {
		var l Link
		if err := rows.Scan(&l.RoleID, &l.PrivilegeID, &l.RoleName, &l.PrivilegeResource, &l.PrivilegeAction, &l.PrivilegeDescription); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

func (r *repository) CountLinks(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM role_privileges").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) GetLink(ctx context.Context, roleID, privilegeID int64) (*Link, error) {
	var l Link
	err := r.db.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s
		FROM role_privileges rp
		JOIN roles r ON r.id = rp.role_id
		JOIN privileges p ON p.id = rp.privilege_id
		WHERE rp.role_id = $1 AND rp.privilege_id = $2`, linkColumns),
		roleID, privilegeID).Scan(&l.RoleID, &l.PrivilegeID, &l.RoleName, &l.PrivilegeResource, &l.PrivilegeAction, &l.PrivilegeDescription)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

// translateRoleConflict maps the two unique constraints on roles to
// Conflict errors with distinct messages.
func translateRoleConflict(err error) error {
	switch db.UniqueConstraintName(err) {
	case "uq_roles_name":
		return fmt.Errorf("%w: role name already exists", shared.ErrConflict)
	case "uq_roles_single_superuser":
		return fmt.Errorf("%w: a superuser role already exists", shared.ErrConflict)
	}
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("%w: duplicate role", shared.ErrConflict)
	}
	return err
}

var _ Repository = (*repository)(nil)
