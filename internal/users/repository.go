package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatehouse-api/gatehouse/internal/platform/db"
	"github.com/gatehouse-api/gatehouse/internal/privileges"
	"github.com/gatehouse-api/gatehouse/internal/roles"
	"github.com/gatehouse-api/gatehouse/internal/shared"
)

// Repository defines persistence operations for users and their role links.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	GetByID(ctx context.Context, id int64, includeDeleted bool) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ListSummaries(ctx context.Context, req shared.PageRequest) ([]Summary, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, email, hashedPassword string, roleIDs []int64) (int64, error)
	UpdateEmail(ctx context.Context, id int64, email string) error
	ReplaceRoles(ctx context.Context, id int64, roleIDs []int64) error
	AttachRoles(ctx context.Context, id int64, roleIDs []int64) error
	DetachRoles(ctx context.Context, id int64, roleIDs []int64) error
	SetBlocked(ctx context.Context, id int64, blocked bool) error
	SetPassword(ctx context.Context, id int64, hashedPassword string) error
	SoftDelete(ctx context.Context, id int64) error
	HardDelete(ctx context.Context, id int64) error
	Restore(ctx context.Context, id int64) error
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

const userColumns = "id, email, hashed_password, is_active, is_blocked, created_at, updated_at, deleted_at"

func (r *repository) scanUser(ctx context.Context, row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.HashedPassword, &u.IsActive, &u.IsBlocked, &u.CreatedAt, &u.UpdatedAt, &u.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	userRoles, err := r.userRoles(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	u.Roles = userRoles
	return &u, nil
}

// userRoles loads the user's active roles and each role's active privileges
// with two batched queries, returning a fully populated graph.
func (r *repository) userRoles(ctx context.Context, userID int64) ([]roles.Role, error) {
	rows, err := r.db.Query(ctx, `
		SELECT r.id, r.name, r.is_superuser, r.created_at, r.updated_at, r.deleted_at
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = $1 AND r.deleted_at IS NULL
		ORDER BY r.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	userRoles := make([]roles.Role, 0, 4)
	roleIDs := make([]int64, 0, 4)
	for rows.Next() {
		var role roles.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.IsSuperuser, &role.CreatedAt, &role.UpdatedAt, &role.DeletedAt); err != nil {
			return nil, err
		}
		role.Privileges = []privileges.Privilege{}
		userRoles = append(userRoles, role)
		roleIDs = append(roleIDs, role.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(roleIDs) == 0 {
		return userRoles, nil
	}

	privRows, err := r.db.Query(ctx, `
		SELECT rp.role_id, p.id, p.resource, p.action, p.description, p.created_at, p.updated_at, p.deleted_at
		FROM role_privileges rp
		JOIN privileges p ON p.id = rp.privilege_id
		WHERE rp.role_id = ANY($1) AND p.deleted_at IS NULL
		ORDER BY rp.role_id, p.id`, roleIDs)
	if err != nil {
		return nil, err
	}
	defer privRows.Close()

	byRole := make(map[int64][]privileges.Privilege, len(roleIDs))
	for privRows.Next() {
		var roleID int64
		var p privileges.Privilege
		if err := privRows.Scan(&roleID, &p.ID, &p.Resource, &p.Action, &p.Description, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt); err != nil {
			return nil, err
		}
		byRole[roleID] = append(byRole[roleID], p)
	}
	if err := privRows.Err(); err != nil {
		return nil, err
	}
	for i := range userRoles {
		if privs, ok := byRole[userRoles[i].ID]; ok {
			userRoles[i].Privileges = privs
		}
	}
	return userRoles, nil
}

func (r *repository) GetByID(ctx context.Context, id int64, includeDeleted bool) (*User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userColumns)
	if !includeDeleted {
		query += " AND deleted_at IS NULL"
	}
	return r.scanUser(ctx, r.db.QueryRow(ctx, query, id))
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE email = $1 AND deleted_at IS NULL", userColumns)
	return r.scanUser(ctx, r.db.QueryRow(ctx, query, email))
}

func (r *repository) ListSummaries(ctx context.Context, req shared.PageRequest) ([]Summary, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, email, is_active, is_blocked
		FROM users
		WHERE deleted_at IS NULL
		ORDER BY id
		LIMIT $1 OFFSET $2`, req.Limit(), req.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]Summary, 0, req.Limit())
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.Email, &s.IsActive, &s.IsBlocked); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (r *repository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM users WHERE deleted_at IS NULL").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) Create(ctx context.Context, email, hashedPassword string, roleIDs []int64) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		"INSERT INTO users (email, hashed_password) VALUES ($1, $2) RETURNING id",
		email, hashedPassword).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, fmt.Errorf("%w: email already registered", shared.ErrConflict)
		}
		return 0, err
	}
	if len(roleIDs) > 0 {
		if err := r.AttachRoles(ctx, id, roleIDs); err != nil {
			return 0, err
		}
	}
	return id, nil
}

func (r *repository) UpdateEmail(ctx context.Context, id int64, email string) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE users SET email = $1, updated_at = NOW() WHERE id = $2 AND deleted_at IS NULL",
		email, id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("%w: email already registered", shared.ErrConflict)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ReplaceRoles overwrites the user's role set with the active roles among
// roleIDs.
func (r *repository) ReplaceRoles(ctx context.Context, id int64, roleIDs []int64) error {
	if _, err := r.db.Exec(ctx, "DELETE FROM user_roles WHERE user_id = $1", id); err != nil {
		return err
	}
	return r.AttachRoles(ctx, id, roleIDs)
}

// AttachRoles links the user to each active role in roleIDs. Already-linked
// and unknown/deleted role ids are skipped, so the operation is idempotent.
func (r *repository) AttachRoles(ctx context.Context, id int64, roleIDs []int64) error {
	if len(roleIDs) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id)
		SELECT $1, r.id FROM roles r
		WHERE r.id = ANY($2) AND r.deleted_at IS NULL
		ON CONFLICT DO NOTHING`, id, roleIDs)
	return err
}

func (r *repository) DetachRoles(ctx context.Context, id int64, roleIDs []int64) error {
	if len(roleIDs) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx,
		"DELETE FROM user_roles WHERE user_id = $1 AND role_id = ANY($2)", id, roleIDs)
	return err
}

func (r *repository) SetBlocked(ctx context.Context, id int64, blocked bool) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE users SET is_blocked = $1, updated_at = NOW() WHERE id = $2 AND deleted_at IS NULL",
		blocked, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) SetPassword(ctx context.Context, id int64, hashedPassword string) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE users SET hashed_password = $1, updated_at = NOW() WHERE id = $2 AND deleted_at IS NULL",
		hashedPassword, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SoftDelete marks the user deleted and deactivates the account in the same
// statement.
func (r *repository) SoftDelete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET deleted_at = NOW(), is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) HardDelete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Restore(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET deleted_at = NULL, is_active = TRUE, updated_at = NOW()
		WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ Repository = (*repository)(nil)
