// Package system exposes operational endpoints: liveness, dependency
// health, and a live description of the database schema.
package system

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/gatehouse-api/gatehouse/internal/platform/httpx"
	"github.com/gatehouse-api/gatehouse/internal/rbac"
)

// Handler wires the system endpoints.
type Handler struct {
	logger *slog.Logger
	pool   *pgxpool.Pool
	cache  *redis.Client
	authMW func(http.Handler) http.Handler
	rbac   rbac.Middleware
}

// NewHandler constructs a Handler. cache may be nil when Redis is not
// configured.
func NewHandler(logger *slog.Logger, pool *pgxpool.Pool, cache *redis.Client, authMW func(http.Handler) http.Handler, rbacMW rbac.Middleware) *Handler {
	return &Handler{logger: logger, pool: pool, cache: cache, authMW: authMW, rbac: rbacMW}
}

// MountRoutes registers system routes. Ping and health are anonymous; the
// schema dump requires a superuser session.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ping", h.ping)
	r.Get("/health", h.health)
	r.Group(func(r chi.Router) {
		r.Use(h.authMW)
		r.Use(h.rbac.RequireSuperuser)
		r.Get("/schema", h.schema)
	})
}

type pingResponse struct {
	Unix int64  `json:"unix"`
	ISO  string `json:"iso"`
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	httpx.JSON(w, http.StatusOK, pingResponse{Unix: now.Unix(), ISO: now.Format(time.RFC3339)})
}

type healthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Components: map[string]string{}}
	status := http.StatusOK

	if err := h.pool.Ping(r.Context()); err != nil {
		resp.Components["postgres"] = "down"
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	} else {
		resp.Components["postgres"] = "ok"
	}
	if h.cache == nil {
		resp.Components["redis"] = "disabled"
	} else if err := h.cache.Ping(r.Context()).Err(); err != nil {
		// The cache and token ledger degrade gracefully, so Redis being
		// down does not fail the health check.
		resp.Components["redis"] = "down"
		resp.Status = "degraded"
	} else {
		resp.Components["redis"] = "ok"
	}

	httpx.JSON(w, status, resp)
}

type columnInfo struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
	Nullable bool   `json:"nullable"`
}

type tableInfo struct {
	Columns []columnInfo `json:"columns"`
	Indexes []string     `json:"indexes"`
}

func (h *Handler) schema(w http.ResponseWriter, r *http.Request) {
	tables, err := h.describeSchema(r)
	if err != nil {
		h.logger.Error("describe schema", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tables)
}

func (h *Handler) describeSchema(r *http.Request) (map[string]*tableInfo, error) {
	ctx := r.Context()
	tables := make(map[string]*tableInfo)

	rows, err := h.pool.Query(ctx, `
		SELECT table_name, column_name, data_type, is_nullable = 'YES'
		FROM information_schema.columns
		WHERE table_schema = 'public'
		ORDER BY table_name, ordinal_position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var table string
		var col columnInfo
		if err := rows.Scan(&table, &col.Name, &col.DataType, &col.Nullable); err != nil {
			return nil, err
		}
		info, ok := tables[table]
		if !ok {
			info = &tableInfo{Indexes: []string{}}
			tables[table] = info
		}
		info.Columns = append(info.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	idxRows, err := h.pool.Query(ctx, `
		SELECT tablename, indexname
		FROM pg_indexes
		WHERE schemaname = 'public'
		ORDER BY tablename, indexname`)
	if err != nil {
		return nil, err
	}
	defer idxRows.Close()
	for idxRows.Next() {
		var table, index string
		if err := idxRows.Scan(&table, &index); err != nil {
			return nil, err
		}
		if info, ok := tables[table]; ok {
			info.Indexes = append(info.Indexes, index)
		}
	}
	return tables, idxRows.Err()
}
