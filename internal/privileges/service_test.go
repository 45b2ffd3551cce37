package privileges

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gatehouse-api/gatehouse/internal/shared"
)

type fakePrivilegeRepo struct {
	privs  map[int64]*Privilege
	nextID int64
}

func newFakePrivilegeRepo() *fakePrivilegeRepo {
	return &fakePrivilegeRepo{privs: map[int64]*Privilege{}}
}

func (f *fakePrivilegeRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, f)
}

func (f *fakePrivilegeRepo) Get(ctx context.Context, id int64, includeDeleted bool) (*Privilege, error) {
	p, ok := f.privs[id]
	if !ok || (!includeDeleted && p.DeletedAt != nil) {
		return nil, shared.ErrNotFound
	}
	out := *p
	return &out, nil
}

func (f *fakePrivilegeRepo) GetOrCreate(ctx context.Context, resource, action string, description *string) (*Privilege, error) {
	for _, p := range f.privs {
		if p.Resource == resource && p.Action == action {
			// The upsert path revives a soft-deleted row.
			p.DeletedAt = nil
			if description != nil {
				p.Description = description
			}
			out := *p
			return &out, nil
		}
	}
	f.nextID++
	now := time.Now()
	p := &Privilege{ID: f.nextID, Resource: resource, Action: action, Description: description, CreatedAt: now, UpdatedAt: now}
	f.privs[f.nextID] = p
	out := *p
	return &out, nil
}

func (f *fakePrivilegeRepo) List(ctx context.Context, includeDeleted bool, req shared.PageRequest) ([]Privilege, error) {
	var out []Privilege
	for _, p := range f.privs {
		if includeDeleted || p.DeletedAt == nil {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakePrivilegeRepo) Count(ctx context.Context, includeDeleted bool) (int, error) {
	list, _ := f.List(ctx, includeDeleted, shared.PageRequest{})
	return len(list), nil
}

func (f *fakePrivilegeRepo) Update(ctx context.Context, id int64, resource, action, description *string) error {
	p, ok := f.privs[id]
	if !ok || p.DeletedAt != nil {
		return shared.ErrNotFound
	}
	next := *p
	if resource != nil {
		next.Resource = *resource
	}
	if action != nil {
		next.Action = *action
	}
	if description != nil {
		next.Description = description
	}
	for otherID, other := range f.privs {
		if otherID != id && other.Resource == next.Resource && other.Action == next.Action && other.DeletedAt == nil {
			return fmt.Errorf("%w: privilege already exists", shared.ErrConflict)
		}
	}
	*p = next
	p.UpdatedAt = time.Now()
	return nil
}

func (f *fakePrivilegeRepo) SoftDelete(ctx context.Context, id int64) error {
	p, ok := f.privs[id]
	if !ok || p.DeletedAt != nil {
		return shared.ErrNotFound
	}
	now := time.Now()
	p.DeletedAt = &now
	return nil
}

func (f *fakePrivilegeRepo) HardDelete(ctx context.Context, id int64) error {
	if _, ok := f.privs[id]; !ok {
		return shared.ErrNotFound
	}
	delete(f.privs, id)
	return nil
}

func (f *fakePrivilegeRepo) Restore(ctx context.Context, id int64) error {
	p, ok := f.privs[id]
	if !ok {
		return shared.ErrNotFound
	}
	p.DeletedAt = nil
	return nil
}

var _ Repository = (*fakePrivilegeRepo)(nil)

func TestCreatePrivilegeReusesExistingPair(t *testing.T) {
	repo := newFakePrivilegeRepo()
	svc := NewService(repo)
	ctx := context.Background()

	first, err := svc.Create(ctx, "users", "read", nil)
	require.NoError(t, err)
	second, err := svc.Create(ctx, " users ", " read ", nil)
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.Len(t, repo.privs, 1)
}

func TestCreatePrivilegeRevivesSoftDeleted(t *testing.T) {
	repo := newFakePrivilegeRepo()
	svc := NewService(repo)
	ctx := context.Background()

	p, err := svc.Create(ctx, "users", "read", nil)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, p.ID, false))

	revived, err := svc.Create(ctx, "users", "read", nil)
	require.NoError(t, err)
	require.Equal(t, p.ID, revived.ID)
	require.Nil(t, revived.DeletedAt)
}

func TestCreatePrivilegeValidatesInput(t *testing.T) {
	svc := NewService(newFakePrivilegeRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, "", "read", nil)
	require.ErrorIs(t, err, shared.ErrInvalidInput)
	_, err = svc.Create(ctx, "users", "  ", nil)
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestDeletePrivilegeSoftThenRestore(t *testing.T) {
	svc := NewService(newFakePrivilegeRepo())
	ctx := context.Background()

	p, err := svc.Create(ctx, "users", "read", nil)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, p.ID, false))
	_, err = svc.Get(ctx, p.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)

	restored, err := svc.Restore(ctx, p.ID)
	require.NoError(t, err)
	require.Nil(t, restored.DeletedAt)
}

func TestDeleteAlreadyDeletedPrivilegeConflicts(t *testing.T) {
	svc := NewService(newFakePrivilegeRepo())
	ctx := context.Background()

	p, err := svc.Create(ctx, "users", "read", nil)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, p.ID, false))
	require.ErrorIs(t, svc.Delete(ctx, p.ID, false), shared.ErrConflict)
}

func TestDeletePrivilegeHardRemovesRow(t *testing.T) {
	repo := newFakePrivilegeRepo()
	svc := NewService(repo)
	ctx := context.Background()

	p, err := svc.Create(ctx, "users", "read", nil)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, p.ID, true))
	require.Empty(t, repo.privs)

	_, err = svc.Restore(ctx, p.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
