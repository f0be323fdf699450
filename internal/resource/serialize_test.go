// serialize_test.go

package resource

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/communityshare/server/internal/core"
)

type note struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Body    string `json:"body"`
	OwnerID int64  `json:"owner_id"`
	Pinned  bool   `json:"pinned"`
	Active  bool   `json:"active"`
}

func (n *note) EntityID() int64 { return n.ID }
func (n *note) IsActive() bool  { return n.Active }
func (n *note) Deactivate()     { n.Active = false }

type noteStore struct {
	notes  map[int64]*note
	nextID int64
}

func newNoteStore() *noteStore {
	return &noteStore{notes: make(map[int64]*note), nextID: 1}
}

func (s *noteStore) get(_ context.Context, id int64) (*note, error) {
	n, ok := s.notes[id]
	if !ok {
		return nil, fmt.Errorf("note %d: %w", id, core.ErrNotFound)
	}
	copied := *n
	return &copied, nil
}

func (s *noteStore) list(
	_ context.Context,
	_ url.Values,
	_ *Requester,
) ([]*note, error) {
	ids := make([]int64, 0, len(s.notes))
	for id := range s.notes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]*note, 0, len(ids))
	for _, id := range ids {
		copied := *s.notes[id]
		out = append(out, &copied)
	}
	return out, nil
}

func (s *noteStore) insert(_ context.Context, n *note) error {
	n.ID = s.nextID
	s.nextID++
	n.Active = true
	copied := *n
	s.notes[n.ID] = &copied
	return nil
}

func (s *noteStore) persist(_ context.Context, n *note) error {
	if _, ok := s.notes[n.ID]; !ok {
		return fmt.Errorf("note %d: %w", n.ID, core.ErrNotFound)
	}
	copied := *n
	s.notes[n.ID] = &copied
	return nil
}

func noteResource(store *noteStore, allCanReadMany bool) *Resource[*note] {
	return Build(Resource[*note]{
		Name:                "notes",
		Mandatory:           []string{"title", "owner_id"},
		Writeable:           []string{"title", "body", "pinned"},
		StandardReadable:    []string{"id", "title", "owner_id"},
		AdminReadable:       []string{"id", "title", "body", "owner_id", "pinned"},
		StandardCanReadMany: true,
		AllCanReadMany:      allCanReadMany,

		New:     func() *note { return &note{} },
		Get:     store.get,
		List:    store.list,
		Insert:  store.insert,
		Persist: store.persist,

		HasAddRights: func(_ context.Context, _ map[string]any, req *Requester) (bool, error) {
			return req != nil, nil
		},
		HasAdminRights: func(n *note, req *Requester) bool {
			return req != nil && (req.Administrator || req.ID == n.OwnerID)
		},
	})
}

func seedNote(t *testing.T, store *noteStore, n note) *note {
	t.Helper()
	require.NoError(t, store.insert(context.Background(), &n))
	return &n
}

func TestSerializeTiers(t *testing.T) {
	store := newNoteStore()
	res := noteResource(store, false)
	n := seedNote(t, store, note{Title: "hello", Body: "text", OwnerID: 7})

	ctx := context.Background()
	owner := &Requester{ID: 7}
	admin := &Requester{ID: 1, Administrator: true}
	other := &Requester{ID: 9}

	adminFields := []string{"id", "title", "body", "owner_id", "pinned"}
	standardFields := []string{"id", "title", "owner_id"}

	for _, tc := range []struct {
		name   string
		req    *Requester
		fields []string
	}{
		{"owner sees admin view", owner, adminFields},
		{"administrator sees admin view", admin, adminFields},
		{"unrelated user sees standard view", other, standardFields},
	} {
		t.Run(tc.name, func(t *testing.T) {
			out, err := res.Serialize(ctx, n, tc.req)
			require.NoError(t, err)
			require.Len(t, out, len(tc.fields))
			for _, f := range tc.fields {
				require.Contains(t, out, f)
			}
		})
	}
}

func TestSerializeAnonymous(t *testing.T) {
	store := newNoteStore()
	n := seedNote(t, store, note{Title: "hello", OwnerID: 7})
	ctx := context.Background()

	closed := noteResource(store, false)
	out, err := closed.Serialize(ctx, n, nil)
	require.NoError(t, err)
	require.Nil(t, out)

	open := noteResource(store, true)
	out, err = open.Serialize(ctx, n, nil)
	require.NoError(t, err)
	require.Contains(t, out, "title")
	require.NotContains(t, out, "body")
}

func TestSerializeCustomField(t *testing.T) {
	store := newNoteStore()
	res := noteResource(store, false)
	res.AdminReadable = append(res.AdminReadable, "excerpt")
	res.Serializers = map[string]SerializeFunc[*note]{
		"excerpt": func(_ context.Context, n *note, _ *Requester) (any, error) {
			if len(n.Body) > 4 {
				return n.Body[:4], nil
			}
			return n.Body, nil
		},
	}

	n := seedNote(t, store, note{Title: "hello", Body: "longer text", OwnerID: 7})

	out, err := res.Serialize(context.Background(), n, &Requester{ID: 7})
	require.NoError(t, err)
	require.Equal(t, "long", out["excerpt"])
}

func TestDeserializeCreateMandatory(t *testing.T) {
	store := newNoteStore()
	res := noteResource(store, false)

	err := res.DeserializeCreate(
		context.Background(),
		&note{},
		map[string]any{"title": "hello"},
		&Requester{ID: 7},
	)
	require.Error(t, err)
	require.ErrorIs(t, err, core.ErrValidation)
	require.Contains(t, err.Error(), "owner_id")
}

func TestDeserializeCreateIgnoresUnknownFields(t *testing.T) {
	store := newNoteStore()
	res := noteResource(store, false)
	n := &note{}

	err := res.DeserializeCreate(
		context.Background(),
		n,
		map[string]any{
			"title":    "hello",
			"owner_id": float64(7),
			"id":       float64(99),
			"active":   false,
			"bogus":    "ignored",
		},
		&Requester{ID: 7},
	)
	require.NoError(t, err)
	require.Equal(t, "hello", n.Title)
	require.Equal(t, int64(7), n.OwnerID)
	require.Zero(t, n.ID)
	require.False(t, n.Pinned)
}

func TestDeserializeUpdateChangeTracking(t *testing.T) {
	store := newNoteStore()
	res := noteResource(store, false)
	n := &note{ID: 1, Title: "hello", Body: "text", Active: true}
	ctx := context.Background()
	req := &Requester{ID: 7}

	changed, err := res.DeserializeUpdate(ctx, n, map[string]any{
		"title": "hello",
		"body":  "text",
	}, req)
	require.NoError(t, err)
	require.False(t, changed)

	changed, err = res.DeserializeUpdate(ctx, n, map[string]any{
		"body":   "updated",
		"pinned": true,
	}, req)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, "updated", n.Body)
	require.True(t, n.Pinned)
}

func TestDeserializeUpdateRejectsWrongType(t *testing.T) {
	store := newNoteStore()
	res := noteResource(store, false)

	_, err := res.DeserializeUpdate(
		context.Background(),
		&note{ID: 1, Active: true},
		map[string]any{"pinned": "yes"},
		&Requester{ID: 7},
	)
	require.Error(t, err)
	require.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestAdminRoundTrip(t *testing.T) {
	store := newNoteStore()
	res := noteResource(store, false)
	ctx := context.Background()
	owner := &Requester{ID: 7}

	original := seedNote(t, store, note{
		Title: "hello", Body: "text", OwnerID: 7, Pinned: true,
	})

	out, err := res.Serialize(ctx, original, owner)
	require.NoError(t, err)

	clone := &note{ID: original.ID, OwnerID: 7, Active: true}
	changed, err := res.DeserializeUpdate(ctx, clone, out, owner)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, original.Title, clone.Title)
	require.Equal(t, original.Body, clone.Body)
	require.Equal(t, original.Pinned, clone.Pinned)
}

func TestBuildPanicsOnUndeclaredField(t *testing.T) {
	store := newNoteStore()

	defer func() {
		r := recover()
		require.NotNil(t, r)
		require.Contains(t, fmt.Sprint(r), "no_such_field")
	}()

	Build(Resource[*note]{
		Name:             "notes",
		StandardReadable: []string{"id", "no_such_field"},
		New:              func() *note { return &note{} },
		Get:              store.get,
		List:             store.list,
		Insert:           store.insert,
		Persist:          store.persist,
	})
}

func TestDefaultDeleteDeactivates(t *testing.T) {
	store := newNoteStore()
	res := noteResource(store, false)
	ctx := context.Background()
	n := seedNote(t, store, note{Title: "hello", OwnerID: 7})

	require.NoError(t, res.deleteItem(ctx, n, &Requester{ID: 7}))

	stored, err := store.get(ctx, n.ID)
	require.NoError(t, err)
	require.False(t, stored.IsActive())

	_, err = res.fetch(ctx, n.ID)
	require.Error(t, err)
	require.True(t, errors.Is(err, core.ErrNotFound))
}
