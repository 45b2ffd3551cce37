package users

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gatehouse-api/gatehouse/internal/roles"
	"github.com/gatehouse-api/gatehouse/internal/shared"
)

type fakeUserRepo struct {
	users  map[int64]*User
	nextID int64
	roles  map[int64]roles.Role
	links  map[int64]map[int64]bool
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users: map[int64]*User{},
		roles: map[int64]roles.Role{},
		links: map[int64]map[int64]bool{},
	}
}

func (f *fakeUserRepo) addRole(id int64, name string, superuser bool) {
	f.roles[id] = roles.Role{ID: id, Name: name, IsSuperuser: superuser}
}

func (f *fakeUserRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, f)
}

func (f *fakeUserRepo) withGraph(u *User) *User {
	out := *u
	out.Roles = []roles.Role{}
	var ids []int64
	for roleID := range f.links[u.ID] {
		ids = append(ids, roleID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, roleID := range ids {
		out.Roles = append(out.Roles, f.roles[roleID])
	}
	return &out
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int64, includeDeleted bool) (*User, error) {
	u, ok := f.users[id]
	if !ok || (!includeDeleted && u.DeletedAt != nil) {
		return nil, shared.ErrNotFound
	}
	return f.withGraph(u), nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	for _, u := range f.users {
		if u.Email == email && u.DeletedAt == nil {
			return f.withGraph(u), nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeUserRepo) ListSummaries(ctx context.Context, req shared.PageRequest) ([]Summary, error) {
	var out []Summary
	for _, u := range f.users {
		if u.DeletedAt == nil {
			out = append(out, Summary{ID: u.ID, Email: u.Email, IsActive: u.IsActive, IsBlocked: u.IsBlocked})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeUserRepo) Count(ctx context.Context) (int, error) {
	n := 0
	for _, u := range f.users {
		if u.DeletedAt == nil {
			n++
		}
	}
	return n, nil
}

func (f *fakeUserRepo) Create(ctx context.Context, email, hashedPassword string, roleIDs []int64) (int64, error) {
	for _, u := range f.users {
		if u.Email == email {
			return 0, fmt.Errorf("%w: email already registered", shared.ErrConflict)
		}
	}
	f.nextID++
	now := time.Now()
	f.users[f.nextID] = &User{ID: f.nextID, Email: email, HashedPassword: hashedPassword, IsActive: true, CreatedAt: now, UpdatedAt: now}
	f.links[f.nextID] = map[int64]bool{}
	return f.nextID, f.AttachRoles(ctx, f.nextID, roleIDs)
}

func (f *fakeUserRepo) UpdateEmail(ctx context.Context, id int64, email string) error {
	u, ok := f.users[id]
	if !ok || u.DeletedAt != nil {
		return shared.ErrNotFound
	}
	u.Email = email
	return nil
}

func (f *fakeUserRepo) ReplaceRoles(ctx context.Context, id int64, roleIDs []int64) error {
	f.links[id] = map[int64]bool{}
	return f.AttachRoles(ctx, id, roleIDs)
}

func (f *fakeUserRepo) AttachRoles(ctx context.Context, id int64, roleIDs []int64) error {
	if f.links[id] == nil {
		f.links[id] = map[int64]bool{}
	}
	for _, roleID := range roleIDs {
		if _, ok := f.roles[roleID]; ok {
			f.links[id][roleID] = true
		}
	}
	return nil
}

func (f *fakeUserRepo) DetachRoles(ctx context.Context, id int64, roleIDs []int64) error {
	for _, roleID := range roleIDs {
		delete(f.links[id], roleID)
	}
	return nil
}

func (f *fakeUserRepo) SetBlocked(ctx context.Context, id int64, blocked bool) error {
	u, ok := f.users[id]
	if !ok || u.DeletedAt != nil {
		return shared.ErrNotFound
	}
	u.IsBlocked = blocked
	return nil
}

func (f *fakeUserRepo) SetPassword(ctx context.Context, id int64, hashedPassword string) error {
	u, ok := f.users[id]
	if !ok || u.DeletedAt != nil {
		return shared.ErrNotFound
	}
	u.HashedPassword = hashedPassword
	return nil
}

func (f *fakeUserRepo) SoftDelete(ctx context.Context, id int64) error {
	u, ok := f.users[id]
	if !ok || u.DeletedAt != nil {
		return shared.ErrNotFound
	}
	now := time.Now()
	u.DeletedAt = &now
	u.IsActive = false
	return nil
}

func (f *fakeUserRepo) HardDelete(ctx context.Context, id int64) error {
	if _, ok := f.users[id]; !ok {
		return shared.ErrNotFound
	}
	delete(f.users, id)
	delete(f.links, id)
	return nil
}

func (f *fakeUserRepo) Restore(ctx context.Context, id int64) error {
	u, ok := f.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.DeletedAt = nil
	u.IsActive = true
	return nil
}

var _ Repository = (*fakeUserRepo)(nil)

func newTestService(repo Repository) *Service {
	return NewService(repo, nil)
}

func TestCreateUserNormalizesEmail(t *testing.T) {
	svc := newTestService(newFakeUserRepo())
	ctx := context.Background()

	user, err := svc.Create(ctx, "  Alice@Example.COM ", "correct-horse", nil)
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", user.Email)
	require.True(t, user.IsActive)
	require.True(t, VerifyPassword(user.HashedPassword, "correct-horse"))
	require.False(t, VerifyPassword(user.HashedPassword, "wrong"))
}

func TestCreateUserRejectsShortPassword(t *testing.T) {
	svc := newTestService(newFakeUserRepo())
	_, err := svc.Create(context.Background(), "alice@example.com", "short", nil)
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestCreateUserDuplicateEmailConflicts(t *testing.T) {
	svc := newTestService(newFakeUserRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, "alice@example.com", "correct-horse", nil)
	require.NoError(t, err)
	_, err = svc.Create(ctx, "ALICE@example.com", "correct-horse", nil)
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestBlockAndUnblockUser(t *testing.T) {
	svc := newTestService(newFakeUserRepo())
	ctx := context.Background()

	user, err := svc.Create(ctx, "alice@example.com", "correct-horse", nil)
	require.NoError(t, err)

	require.NoError(t, svc.Block(ctx, user.ID))
	blocked, err := svc.Get(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, blocked.IsBlocked)

	require.NoError(t, svc.Unblock(ctx, user.ID))
	unblocked, err := svc.Get(ctx, user.ID)
	require.NoError(t, err)
	require.False(t, unblocked.IsBlocked)
}

func TestSoftDeleteDeactivatesAndRestoreReactivates(t *testing.T) {
	svc := newTestService(newFakeUserRepo())
	ctx := context.Background()

	user, err := svc.Create(ctx, "alice@example.com", "correct-horse", nil)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, user.ID, false))
	_, err = svc.GetByEmail(ctx, "alice@example.com")
	require.ErrorIs(t, err, shared.ErrNotFound)

	// Deleting again conflicts instead of silently passing.
	err = svc.Delete(ctx, user.ID, false)
	require.ErrorIs(t, err, shared.ErrConflict)

	restored, err := svc.Restore(ctx, user.ID)
	require.NoError(t, err)
	require.Nil(t, restored.DeletedAt)
	require.True(t, restored.IsActive)
}

func TestAssignRolesIsIdempotent(t *testing.T) {
	repo := newFakeUserRepo()
	repo.addRole(1, "auditor", false)
	svc := newTestService(repo)
	ctx := context.Background()

	user, err := svc.Create(ctx, "alice@example.com", "correct-horse", nil)
	require.NoError(t, err)

	first, err := svc.AssignRoles(ctx, user.ID, []int64{1})
	require.NoError(t, err)
	second, err := svc.AssignRoles(ctx, user.ID, []int64{1})
	require.NoError(t, err)

	require.Len(t, first.Roles, 1)
	require.Len(t, second.Roles, 1)

	removed, err := svc.RemoveRoles(ctx, user.ID, []int64{1})
	require.NoError(t, err)
	require.Empty(t, removed.Roles)
}

func TestUpdateReplacesRoleSet(t *testing.T) {
	repo := newFakeUserRepo()
	repo.addRole(1, "auditor", false)
	repo.addRole(2, "editor", false)
	svc := newTestService(repo)
	ctx := context.Background()

	user, err := svc.Create(ctx, "alice@example.com", "correct-horse", []int64{1})
	require.NoError(t, err)
	require.Len(t, user.Roles, 1)

	roleIDs := []int64{2}
	updated, err := svc.Update(ctx, user.ID, nil, &roleIDs)
	require.NoError(t, err)
	require.Len(t, updated.Roles, 1)
	require.Equal(t, "editor", updated.Roles[0].Name)
}

func TestResetPasswordReplacesHash(t *testing.T) {
	svc := newTestService(newFakeUserRepo())
	ctx := context.Background()

	user, err := svc.Create(ctx, "alice@example.com", "correct-horse", nil)
	require.NoError(t, err)

	require.NoError(t, svc.ResetPassword(ctx, user.ID, "battery-staple"))
	after, err := svc.Get(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, VerifyPassword(after.HashedPassword, "battery-staple"))
	require.False(t, VerifyPassword(after.HashedPassword, "correct-horse"))
}
