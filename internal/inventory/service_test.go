package inventory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barventory/barventory/internal/model"
	"github.com/barventory/barventory/internal/schema"
	"github.com/barventory/barventory/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	m, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return NewService(m, nil)
}

func TestLoadAll_EmptyStore(t *testing.T) {
	svc := newTestService(t)

	snap, err := svc.LoadAll(context.Background())
	require.NoError(t, err)

	assert.Empty(t, snap.Products)
	assert.Empty(t, snap.Locations)
	assert.Nil(t, snap.State, "state should be absent in a fresh store")
}

func TestSaveAll_ThenLoadAll(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// First save: two products, no locations, no state.
	p1 := model.Product{ID: "p1", Name: "Gin", Category: "spirits", Volume: 0.7, Price: 21.5}
	p2 := model.Product{ID: "p2", Name: "Rum", Category: "spirits", Volume: 0.7, Price: 18.0}
	require.NoError(t, svc.SaveAll(ctx, Snapshot{
		Products:  []model.Product{p1, p2},
		Locations: []model.Location{},
	}))

	snap, err := svc.LoadAll(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []model.Product{p1, p2}, snap.Products)
	assert.Empty(t, snap.Locations)
	assert.Nil(t, snap.State)

	// Second save drops p2: it must be gone afterwards.
	require.NoError(t, svc.SaveAll(ctx, Snapshot{
		Products:  []model.Product{p1},
		Locations: []model.Location{},
	}))

	snap, err = svc.LoadAll(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []model.Product{p1}, snap.Products)
}

func TestSaveAll_WithState(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	st := model.InventoryState{ID: "ignored", CurrentLocationID: "l1", UnsyncedChanges: true}
	require.NoError(t, svc.SaveAll(ctx, Snapshot{
		Products:  []model.Product{},
		Locations: []model.Location{{ID: "l1", Name: "Main Bar"}},
		State:     &st,
	}))

	snap, err := svc.LoadAll(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap.State)
	assert.Equal(t, schema.StateKey, snap.State.ID, "caller-supplied key must be replaced")
	assert.Equal(t, "l1", snap.State.CurrentLocationID)
	assert.True(t, snap.State.UnsyncedChanges)
}

func TestSaveAll_NilStatePreservesStored(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SaveState(ctx, model.InventoryState{CurrentLocationID: "l1"}))

	// Snapshot without state: stored record survives.
	require.NoError(t, svc.SaveAll(ctx, Snapshot{
		Products:  []model.Product{},
		Locations: []model.Location{},
	}))

	st, ok, err := svc.State(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "l1", st.CurrentLocationID)
}

func TestSaveProduct_MintsID(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	saved, err := svc.SaveProduct(ctx, model.Product{Name: "Tonic"})
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)

	parsed, err := uuid.Parse(saved.ID)
	require.NoError(t, err, "minted id should be a UUID")
	assert.Equal(t, uuid.Version(7), parsed.Version())

	got, ok, err := svc.Product(ctx, saved.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Tonic", got.Name)
}

func TestSaveProduct_KeepsCallerID(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	saved, err := svc.SaveProduct(ctx, model.Product{ID: "p1", Name: "Gin"})
	require.NoError(t, err)
	assert.Equal(t, "p1", saved.ID)
}

func TestDeleteLocation_RemovesNestedTree(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	loc := model.Location{
		ID:   "l1",
		Name: "Main Bar",
		Counters: []model.Counter{{
			ID:   "c1",
			Name: "Front",
			Areas: []model.Area{{
				ID:      "a1",
				Name:    "Fridge",
				Entries: []model.InventoryEntry{{ProductID: "p1", StartCount: 6, EndCount: 4}},
			}},
		}},
	}
	_, err := svc.SaveLocation(ctx, loc)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteLocation(ctx, "l1"))

	locations, err := svc.Locations(ctx)
	require.NoError(t, err)
	assert.Empty(t, locations, "nested counters/areas/entries go with the location")
}

func TestService_AfterManagerClose(t *testing.T) {
	m, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	svc := NewService(m, nil)

	_, err = svc.LoadAll(context.Background())
	require.NoError(t, err)
	require.NoError(t, m.Close())

	_, err = svc.LoadAll(context.Background())
	assert.True(t, store.IsUnavailable(err), "expected CONNECTION_UNAVAILABLE, got %v", err)
}
