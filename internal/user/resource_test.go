// resource_test.go

package user

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/communityshare/server/internal/core"
	"github.com/communityshare/server/internal/resource"
)

type fakeRepo struct {
	users  map[int64]*User
	nextID int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: make(map[int64]*User), nextID: 1}
}

func (f *fakeRepo) Create(_ context.Context, u *User) error {
	u.ID = f.nextID
	f.nextID++
	u.Active = true
	copied := *u
	f.users[u.ID] = &copied
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id int64) (*User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range f.users {
		if u.Email == email && u.Active {
			copied := *u
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("get user by email: %w", core.ErrNotFound)
}

func (f *fakeRepo) Update(_ context.Context, u *User) error {
	if _, ok := f.users[u.ID]; !ok {
		return fmt.Errorf("update user: %w", core.ErrNotFound)
	}
	copied := *u
	f.users[u.ID] = &copied
	return nil
}

func (f *fakeRepo) UpdatePassword(_ context.Context, id int64, hash string) error {
	u, ok := f.users[id]
	if !ok {
		return fmt.Errorf("update password: %w", core.ErrNotFound)
	}
	u.PasswordHash = hash
	return nil
}

func (f *fakeRepo) TouchLastActive(context.Context, int64) error { return nil }

func (f *fakeRepo) List(_ context.Context, params ListParams) ([]*User, error) {
	var out []*User
	for _, u := range f.users {
		if !u.Active {
			continue
		}
		if params.Email != "" && u.Email != params.Email {
			continue
		}
		copied := *u
		out = append(out, &copied)
	}
	return out, nil
}

type fakeCounter struct {
	counts map[string]int
}

func (f *fakeCounter) CountByRole(
	_ context.Context,
	userID int64,
	role string,
) (int, error) {
	return f.counts[fmt.Sprintf("%d:%s", userID, role)], nil
}

func seedUser(t *testing.T, repo *fakeRepo, u User) *User {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), &u))
	return &u
}

func TestSerializeDerivedRoles(t *testing.T) {
	repo := newFakeRepo()
	counter := &fakeCounter{counts: map[string]int{"1:educator": 2}}
	res := NewResource(repo, counter)

	u := seedUser(t, repo, User{Name: "Dana", Email: "dana@example.org"})

	out, err := res.Serialize(context.Background(), u, u.Requester())
	require.NoError(t, err)
	require.Equal(t, true, out["is_educator"])
	require.Equal(t, false, out["is_community_partner"])
	require.Contains(t, out, "email")
}

func TestSerializeStandardHidesEmail(t *testing.T) {
	repo := newFakeRepo()
	res := NewResource(repo, &fakeCounter{counts: map[string]int{}})

	u := seedUser(t, repo, User{Name: "Dana", Email: "dana@example.org"})
	other := &resource.Requester{ID: 99}

	out, err := res.Serialize(context.Background(), u, other)
	require.NoError(t, err)
	require.NotContains(t, out, "email")
	require.NotContains(t, out, "date_created")
	require.Contains(t, out, "name")
}

func TestPasswordDeserializerHashes(t *testing.T) {
	repo := newFakeRepo()
	res := NewResource(repo, &fakeCounter{counts: map[string]int{}})

	u := seedUser(t, repo, User{Name: "Dana", Email: "dana@example.org"})
	req := u.Requester()

	changed, err := res.DeserializeUpdate(
		context.Background(), u,
		map[string]any{"password": "correct horse battery"},
		req,
	)
	require.NoError(t, err)
	require.True(t, changed)
	require.NotEmpty(t, u.PasswordHash)
	require.NotContains(t, u.PasswordHash, "correct horse")

	ok, err := core.VerifyPassword("correct horse battery", u.PasswordHash)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestPasswordTooShort(t *testing.T) {
	repo := newFakeRepo()
	res := NewResource(repo, &fakeCounter{counts: map[string]int{}})
	u := seedUser(t, repo, User{Name: "Dana", Email: "dana@example.org"})

	_, err := res.DeserializeUpdate(
		context.Background(), u,
		map[string]any{"password": "short"},
		u.Requester(),
	)
	require.ErrorIs(t, err, core.ErrValidation)
}

func TestAdministratorFlagGuard(t *testing.T) {
	repo := newFakeRepo()
	res := NewResource(repo, &fakeCounter{counts: map[string]int{}})
	u := seedUser(t, repo, User{Name: "Dana", Email: "dana@example.org"})

	// A regular user asking for the flag is ignored.
	_, err := res.DeserializeUpdate(
		context.Background(), u,
		map[string]any{"is_administrator": true},
		u.Requester(),
	)
	require.NoError(t, err)
	require.False(t, u.Administrator)

	// An administrator can grant it.
	admin := &resource.Requester{ID: 99, Administrator: true}
	_, err = res.DeserializeUpdate(
		context.Background(), u,
		map[string]any{"is_administrator": true},
		admin,
	)
	require.NoError(t, err)
	require.True(t, u.Administrator)
}

func TestGenericCreateDisabled(t *testing.T) {
	repo := newFakeRepo()
	res := NewResource(repo, &fakeCounter{counts: map[string]int{}})

	allowed, err := res.HasAddRights(
		context.Background(),
		map[string]any{"name": "X", "email": "x@example.org"},
		&resource.Requester{ID: 1, Administrator: true},
	)
	require.NoError(t, err)
	require.False(t, allowed)
}
