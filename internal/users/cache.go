package users

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gatehouse-api/gatehouse/internal/privileges"
	"github.com/gatehouse-api/gatehouse/internal/roles"
)

// recordVersion guards the cache wire format. Records carrying any other
// version are treated as misses instead of being reinterpreted.
const recordVersion = 1

type cachedPrivilege struct {
	ID          int64   `json:"id"`
	Resource    string  `json:"resource"`
	Action      string  `json:"action"`
	Description *string `json:"description,omitempty"`
}

type cachedRole struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	IsSuperuser bool              `json:"is_superuser"`
	Privileges  []cachedPrivilege `json:"privileges"`
}

// cachedUser is the explicit serialization schema for the user cache. It is
// a defined record, not a reconstructed object graph: only the fields the
// authentication path needs are carried. The password hash is included so
// credential checks can run against a cached entry.
type cachedUser struct {
	Version        int          `json:"version"`
	ID             int64        `json:"id"`
	Email          string       `json:"email"`
	HashedPassword string       `json:"hashed_password"`
	IsActive       bool         `json:"is_active"`
	IsBlocked      bool         `json:"is_blocked"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
	DeletedAt      *time.Time   `json:"deleted_at,omitempty"`
	Roles          []cachedRole `json:"roles"`
}

// Cache stores user graphs in Redis with a short TTL. Every method degrades
// to a miss or no-op on backend errors; the store remains authoritative.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCache constructs a Cache. A nil client disables caching entirely.
func NewCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	return &Cache{client: client, ttl: ttl, logger: logger}
}

func idKey(id int64) string { return fmt.Sprintf("user:id:%d", id) }

func emailKey(email string) string { return "user:email:" + email }

func (c *Cache) get(ctx context.Context, key string) (*User, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil && c.logger != nil {
			c.logger.Warn("user cache get", slog.String("key", key), slog.Any("error", err))
		}
		return nil, false
	}
	var rec cachedUser
	if err := json.Unmarshal(data, &rec); err != nil || rec.Version != recordVersion {
		return nil, false
	}
	return fromRecord(rec), true
}

// GetByID returns the cached user graph for id, or a miss.
func (c *Cache) GetByID(ctx context.Context, id int64) (*User, bool) {
	return c.get(ctx, idKey(id))
}

// GetByEmail returns the cached user graph for email, or a miss.
func (c *Cache) GetByEmail(ctx context.Context, email string) (*User, bool) {
	return c.get(ctx, emailKey(email))
}

// Set stores the user graph under both its id and email keys.
func (c *Cache) Set(ctx context.Context, user *User) {
	if c == nil || c.client == nil || user == nil {
		return
	}
	data, err := json.Marshal(toRecord(user))
	if err != nil {
		return
	}
	for _, key := range []string{idKey(user.ID), emailKey(user.Email)} {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil && c.logger != nil {
			c.logger.Warn("user cache set", slog.String("key", key), slog.Any("error", err))
		}
	}
}

// Invalidate drops the user's id and email keys after a mutation.
func (c *Cache) Invalidate(ctx context.Context, id int64, email string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, idKey(id), emailKey(email)).Err(); err != nil && c.logger != nil {
		c.logger.Warn("user cache invalidate", slog.Int64("user_id", id), slog.Any("error", err))
	}
}

func toRecord(u *User) cachedUser {
	rec := cachedUser{
		Version:        recordVersion,
		ID:             u.ID,
		Email:          u.Email,
		HashedPassword: u.HashedPassword,
		IsActive:       u.IsActive,
		IsBlocked:      u.IsBlocked,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
		DeletedAt:      u.DeletedAt,
		Roles:          make([]cachedRole, 0, len(u.Roles)),
	}
	for _, role := range u.Roles {
		cr := cachedRole{
			ID:          role.ID,
			Name:        role.Name,
			IsSuperuser: role.IsSuperuser,
			Privileges:  make([]cachedPrivilege, 0, len(role.Privileges)),
		}
		for _, p := range role.Privileges {
			cr.Privileges = append(cr.Privileges, cachedPrivilege{
				ID:          p.ID,
				Resource:    p.Resource,
				Action:      p.Action,
				Description: p.Description,
			})
		}
		rec.Roles = append(rec.Roles, cr)
	}
	return rec
}

func fromRecord(rec cachedUser) *User {
	u := &User{
		ID:             rec.ID,
		Email:          rec.Email,
		HashedPassword: rec.HashedPassword,
		IsActive:       rec.IsActive,
		IsBlocked:      rec.IsBlocked,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
		DeletedAt:      rec.DeletedAt,
		Roles:          make([]roles.Role, 0, len(rec.Roles)),
	}
	for _, cr := range rec.Roles {
		role := roles.Role{
			ID:          cr.ID,
			Name:        cr.Name,
			IsSuperuser: cr.IsSuperuser,
			Privileges:  make([]privileges.Privilege, 0, len(cr.Privileges)),
		}
		for _, cp := range cr.Privileges {
			role.Privileges = append(role.Privileges, privileges.Privilege{
				ID:          cp.ID,
				Resource:    cp.Resource,
				Action:      cp.Action,
				Description: cp.Description,
			})
		}
		u.Roles = append(u.Roles, role)
	}
	return u
}
