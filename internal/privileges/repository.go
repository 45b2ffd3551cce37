package privileges

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatehouse-api/gatehouse/internal/platform/db"
	"github.com/gatehouse-api/gatehouse/internal/shared"
)

// Repository defines persistence operations for privileges.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64, includeDeleted bool) (*Privilege, error)
	GetOrCreate(ctx context.Context, resource, action string, description *string) (*Privilege, error)
	List(ctx context.Context, includeDeleted bool, req shared.PageRequest) ([]Privilege, error)
	Count(ctx context.Context, includeDeleted bool) (int, error)
	Update(ctx context.Context, id int64, resource, action, description *string) error
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

const privilegeColumns = "id, resource, action, description, created_at, updated_at, deleted_at"

func scanPrivilege(row pgx.Row) (*Privilege, error) {
	var p Privilege
	err := row.Scan(&p.ID, &p.Resource, &p.Action, &p.Description, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) Get(ctx context.Context, id int64, includeDeleted bool) (*Privilege, error) {
	query := fmt.Sprintf("SELECT %s FROM privileges WHERE id = $1", privilegeColumns)
	if !includeDeleted {
		query += " AND deleted_at IS NULL"
	}
	return scanPrivilege(r.db.QueryRow(ctx, query, id))
}

// GetOrCreate returns the active privilege matching (resource, action),
// inserting it when absent. A soft-deleted match is restored in place so the
// unique constraint never blocks re-creation. Idempotent under races.
func (r *repository) GetOrCreate(ctx context.Context, resource, action string, description *string) (*Privilege, error) {
	existing, err := scanPrivilege(r.db.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM privileges WHERE resource = $1 AND action = $2 AND deleted_at IS NULL", privilegeColumns),
		resource, action))
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	return scanPrivilege(r.db.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO privileges (resource, action, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (resource, action) DO UPDATE
		SET deleted_at = NULL,
		    updated_at = NOW(),
		    description = COALESCE(privileges.description, EXCLUDED.description)
		RETURNING %s`, privilegeColumns),
		resource, action, description))
}

func (r *repository) List(ctx context.Context, includeDeleted bool, req shared.PageRequest) ([]Privilege, error) {
	query := fmt.Sprintf("SELECT %s FROM privileges", privilegeColumns)
	if !includeDeleted {
		query += " WHERE deleted_at IS NULL"
	}
	query += " ORDER BY id LIMIT $1 OFFSET $2"

	rows, err := r.db.Query(ctx, query, req.Limit(), req.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	privs := make([]Privilege, 0, req.Limit())
	for rows.Next() {
		var p Privilege
		if err := rows.Scan(&p.ID, &p.Resource, &p.Action, &p.Description, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt); err != nil {
			return nil, err
		}
		privs = append(privs, p)
	}
	return privs, rows.Err()
}

func (r *repository) Count(ctx context.Context, includeDeleted bool) (int, error) {
	query := "SELECT COUNT(*) FROM privileges"
	if !includeDeleted {
		query += " WHERE deleted_at IS NULL"
	}
	var count int
	if err := r.db.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) Update(ctx context.Context, id int64, resource, action, description *string) error {
	query := "UPDATE privileges SET updated_at = NOW()"
	var args []interface{}
	argPos := 1

	if resource != nil {
		query += fmt.Sprintf(", resource = $%d", argPos)
		args = append(args, *resource)
		argPos++
	}
	if action != nil {
		query += fmt.Sprintf(", action = $%d", argPos)
		args = append(args, *action)
		argPos++
	}
	if description != nil {
		query += fmt.Sprintf(", description = $%d", argPos)
		args = append(args, *description)
		argPos++
	}

	query += fmt.Sprintf(" WHERE id = $%d AND deleted_at IS NULL", argPos)
	args = append(args, id)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("%w: privilege resource/action already exists", shared.ErrConflict)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) SoftDelete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE privileges SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) HardDelete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM privileges WHERE id = $1", id)
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
		"UPDATE privileges SET deleted_at = NULL, updated_at = NOW() WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ Repository = (*repository)(nil)
