package activity

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists request log entries.
type Repository interface {
	Insert(ctx context.Context, e Entry) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Insert(ctx context.Context, e Entry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO activity_logs (user_id, method, path, status_code, ip_address, user_agent, client_context, request_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.UserID, e.Method, e.Path, e.StatusCode, e.IPAddress, e.UserAgent, e.ClientContext, e.RequestTime)
	return err
}

func (r *repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, "DELETE FROM activity_logs WHERE request_time < $1", cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
