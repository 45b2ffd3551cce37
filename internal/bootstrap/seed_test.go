package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gatehouse-api/gatehouse/internal/privileges"
	"github.com/gatehouse-api/gatehouse/internal/roles"
	"github.com/gatehouse-api/gatehouse/internal/shared"
	"github.com/gatehouse-api/gatehouse/internal/users"
)

// seedStore backs both repositories with one in-memory graph.
type seedStore struct {
	roles      map[int64]*roles.Role
	nextRoleID int64
	privs      map[string]int64
	nextPrivID int64
	roleLinks  map[int64]map[int64]bool

	users      map[int64]*users.User
	nextUserID int64
	userLinks  map[int64]map[int64]bool
}

func newSeedStore() *seedStore {
	return &seedStore{
		roles:     map[int64]*roles.Role{},
		privs:     map[string]int64{},
		roleLinks: map[int64]map[int64]bool{},
		users:     map[int64]*users.User{},
		userLinks: map[int64]map[int64]bool{},
	}
}

type seedRoleRepo struct{ s *seedStore }

func (r seedRoleRepo) WithTx(ctx context.Context, fn func(context.Context, roles.Repository) error) error {
	return fn(ctx, r)
}

func (r seedRoleRepo) Get(ctx context.Context, id int64, includeDeleted bool) (*roles.Role, error) {
	role, ok := r.s.roles[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	out := *role
	out.Privileges = []privileges.Privilege{}
	for key, privID := range r.s.privs {
		if r.s.roleLinks[id][privID] {
			out.Privileges = append(out.Privileges, privileges.Privilege{ID: privID, Resource: key})
		}
	}
	return &out, nil
}

func (r seedRoleRepo) GetByName(ctx context.Context, name string) (*roles.Role, error) {
	for id, role := range r.s.roles {
		if role.Name == name {
			return r.Get(ctx, id, false)
		}
	}
	return nil, shared.ErrNotFound
}

func (r seedRoleRepo) ListSummaries(ctx context.Context, includeDeleted bool, req shared.PageRequest) ([]roles.Summary, error) {
	return nil, nil
}

func (r seedRoleRepo) Count(ctx context.Context, includeDeleted bool) (int, error) {
	return len(r.s.roles), nil
}

func (r seedRoleRepo) Create(ctx context.Context, name string, isSuperuser bool) (int64, error) {
	for _, role := range r.s.roles {
		if role.Name == name {
			return 0, fmt.Errorf("%w: role name already taken", shared.ErrConflict)
		}
	}
	r.s.nextRoleID++
	r.s.roles[r.s.nextRoleID] = &roles.Role{ID: r.s.nextRoleID, Name: name, IsSuperuser: isSuperuser, CreatedAt: time.Now()}
	r.s.roleLinks[r.s.nextRoleID] = map[int64]bool{}
	return r.s.nextRoleID, nil
}

func (r seedRoleRepo) Update(ctx context.Context, id int64, name *string, isSuperuser *bool) error {
	return nil
}

func (r seedRoleRepo) SoftDelete(ctx context.Context, id int64) error { return nil }
func (r seedRoleRepo) HardDelete(ctx context.Context, id int64) error { return nil }
func (r seedRoleRepo) Restore(ctx context.Context, id int64) error    { return nil }

func (r seedRoleRepo) CountOtherActiveSuperusers(ctx context.Context, excludeRoleID int64) (int, error) {
	n := 0
	for id, role := range r.s.roles {
		if id != excludeRoleID && role.IsSuperuser {
			n++
		}
	}
	return n, nil
}

func (r seedRoleRepo) GetOrCreatePrivilege(ctx context.Context, resource, action string) (int64, error) {
	key := resource + "/" + action
	if id, ok := r.s.privs[key]; ok {
		return id, nil
	}
	r.s.nextPrivID++
	r.s.privs[key] = r.s.nextPrivID
	return r.s.nextPrivID, nil
}

func (r seedRoleRepo) AttachPrivilege(ctx context.Context, roleID, privilegeID int64) error {
	r.s.roleLinks[roleID][privilegeID] = true
	return nil
}

func (r seedRoleRepo) DetachPrivilege(ctx context.Context, roleID, privilegeID int64) error {
	return nil
}

func (r seedRoleRepo) ClearPrivileges(ctx context.Context, roleID int64) error { return nil }

func (r seedRoleRepo) PrivilegeExists(ctx context.Context, privilegeID int64) (bool, error) {
	return true, nil
}

func (r seedRoleRepo) ListLinks(ctx context.Context, req shared.PageRequest) ([]roles.Link, error) {
	return nil, nil
}

func (r seedRoleRepo) CountLinks(ctx context.Context) (int, error) { return 0, nil }

func (r seedRoleRepo) GetLink(ctx context.Context, roleID, privilegeID int64) (*roles.Link, error) {
	return nil, shared.ErrNotFound
}

type seedUserRepo struct{ s *seedStore }

func (r seedUserRepo) WithTx(ctx context.Context, fn func(context.Context, users.Repository) error) error {
	return fn(ctx, r)
}

func (r seedUserRepo) GetByID(ctx context.Context, id int64, includeDeleted bool) (*users.User, error) {
	u, ok := r.s.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (r seedUserRepo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	for _, u := range r.s.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r seedUserRepo) ListSummaries(ctx context.Context, req shared.PageRequest) ([]users.Summary, error) {
	return nil, nil
}

func (r seedUserRepo) Count(ctx context.Context) (int, error) { return len(r.s.users), nil }

func (r seedUserRepo) Create(ctx context.Context, email, hashedPassword string, roleIDs []int64) (int64, error) {
	r.s.nextUserID++
	r.s.users[r.s.nextUserID] = &users.User{ID: r.s.nextUserID, Email: email, HashedPassword: hashedPassword, IsActive: true}
	r.s.userLinks[r.s.nextUserID] = map[int64]bool{}
	return r.s.nextUserID, r.AttachRoles(ctx, r.s.nextUserID, roleIDs)
}

func (r seedUserRepo) UpdateEmail(ctx context.Context, id int64, email string) error { return nil }

func (r seedUserRepo) ReplaceRoles(ctx context.Context, id int64, roleIDs []int64) error {
	return nil
}

func (r seedUserRepo) AttachRoles(ctx context.Context, id int64, roleIDs []int64) error {
	for _, roleID := range roleIDs {
		r.s.userLinks[id][roleID] = true
	}
	return nil
}

func (r seedUserRepo) DetachRoles(ctx context.Context, id int64, roleIDs []int64) error { return nil }

func (r seedUserRepo) SetBlocked(ctx context.Context, id int64, blocked bool) error { return nil }

func (r seedUserRepo) SetPassword(ctx context.Context, id int64, hashedPassword string) error {
	return nil
}

func (r seedUserRepo) SoftDelete(ctx context.Context, id int64) error { return nil }
func (r seedUserRepo) HardDelete(ctx context.Context, id int64) error { return nil }
func (r seedUserRepo) Restore(ctx context.Context, id int64) error    { return nil }

func TestBaselinePrivilegesAreComplete(t *testing.T) {
	specs := BaselinePrivileges()
	require.Len(t, specs, 15)

	seen := map[string]bool{}
	for _, spec := range specs {
		key := spec.Resource + "/" + spec.Action
		require.False(t, seen[key], "duplicate baseline privilege %s", key)
		seen[key] = true
	}
	require.True(t, seen["users/block"])
	require.True(t, seen["users/reset_password"])
	require.True(t, seen["privileges/delete"])
}

func TestSeederIsIdempotent(t *testing.T) {
	store := newSeedStore()
	roleService := roles.NewService(seedRoleRepo{s: store})
	userService := users.NewService(seedUserRepo{s: store}, nil)
	seeder := NewSeeder(roleService, userService, slog.Default())
	ctx := context.Background()

	require.NoError(t, seeder.Run(ctx, "admin@example.com", "changethis"))

	require.Len(t, store.roles, 1)
	require.Len(t, store.privs, 15)
	require.Len(t, store.users, 1)

	admin, err := roleService.GetByName(ctx, AdminRoleName)
	require.NoError(t, err)
	require.True(t, admin.IsSuperuser)
	require.Len(t, store.roleLinks[admin.ID], 15)
	require.True(t, store.userLinks[1][admin.ID])

	user, err := userService.GetByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	require.True(t, users.VerifyPassword(user.HashedPassword, "changethis"))

	// Second run changes nothing.
	require.NoError(t, seeder.Run(ctx, "admin@example.com", "changethis"))
	require.Len(t, store.roles, 1)
	require.Len(t, store.privs, 15)
	require.Len(t, store.users, 1)
}
