package store

import (
	"context"
	"sort"
	"testing"

	"github.com/barventory/barventory/internal/model"
	"github.com/barventory/barventory/internal/schema"
)

func productIDs(products []model.Product) []string {
	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	sort.Strings(ids)
	return ids
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestReplaceAll_ReplaceSemantics(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	// Arbitrary initial state.
	for _, id := range []string{"p1", "p2", "p3"} {
		if _, err := Put(ctx, m, schema.Products, model.Product{ID: id, Name: "old " + id}); err != nil {
			t.Fatalf("seed Put(%s) failed: %v", id, err)
		}
	}

	// p2 updated, p4 added, p1 and p3 dropped.
	incoming := []model.Product{
		{ID: "p2", Name: "new p2"},
		{ID: "p4", Name: "new p4"},
	}
	if err := ReplaceAll(ctx, m, Replace(schema.Products, incoming)); err != nil {
		t.Fatalf("ReplaceAll() failed: %v", err)
	}

	products, err := GetAll(ctx, m, schema.Products)
	if err != nil {
		t.Fatalf("GetAll() failed: %v", err)
	}
	if got, want := productIDs(products), []string{"p2", "p4"}; !equalIDs(got, want) {
		t.Errorf("key set = %v, want %v", got, want)
	}
	for _, p := range products {
		if p.ID == "p2" && p.Name != "new p2" {
			t.Errorf("p2 content = %q, want %q", p.Name, "new p2")
		}
	}
}

func TestReplaceAll_EmptySetEmptiesCollection(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	if _, err := Put(ctx, m, schema.Products, model.Product{ID: "p1"}); err != nil {
		t.Fatalf("seed Put() failed: %v", err)
	}

	if err := ReplaceAll(ctx, m, Replace(schema.Products, []model.Product{})); err != nil {
		t.Fatalf("ReplaceAll() failed: %v", err)
	}

	products, err := GetAll(ctx, m, schema.Products)
	if err != nil {
		t.Fatalf("GetAll() failed: %v", err)
	}
	if len(products) != 0 {
		t.Errorf("GetAll() returned %d records, want 0", len(products))
	}
}

func TestReplaceAll_SpansMultipleCollections(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	err := ReplaceAll(ctx, m,
		Replace(schema.Products, []model.Product{{ID: "p1", Name: "Gin"}}),
		Replace(schema.Locations, []model.Location{{ID: "l1", Name: "Main Bar"}}),
	)
	if err != nil {
		t.Fatalf("ReplaceAll() failed: %v", err)
	}

	products, err := GetAll(ctx, m, schema.Products)
	if err != nil {
		t.Fatalf("GetAll(products) failed: %v", err)
	}
	locations, err := GetAll(ctx, m, schema.Locations)
	if err != nil {
		t.Fatalf("GetAll(locations) failed: %v", err)
	}
	if len(products) != 1 || len(locations) != 1 {
		t.Errorf("got %d products, %d locations, want 1 and 1", len(products), len(locations))
	}
}

func TestReplaceAll_AtomicOnFailure(t *testing.T) {
	notifier := &captureNotifier{}
	m := newTestManager(t, WithNotifier(notifier))
	ctx := context.Background()

	seed := []model.Product{
		{ID: "p1", Name: "keep me"},
		{ID: "p2", Name: "me too"},
	}
	if err := ReplaceAll(ctx, m, Replace(schema.Products, seed)); err != nil {
		t.Fatalf("seed ReplaceAll() failed: %v", err)
	}

	// The empty-id record fails mid-transaction, after p9 was already
	// put and before the stale deletes ran.
	bad := []model.Product{
		{ID: "p9", Name: "never visible"},
		{Name: "no id"},
	}
	err := ReplaceAll(ctx, m, Replace(schema.Products, bad))
	if !IsSaveFailed(err) {
		t.Fatalf("ReplaceAll() = %v, want SAVE_FAILED", err)
	}

	// Pre-call contents, not a partial mix.
	products, err := GetAll(ctx, m, schema.Products)
	if err != nil {
		t.Fatalf("GetAll() failed: %v", err)
	}
	if got, want := productIDs(products), []string{"p1", "p2"}; !equalIDs(got, want) {
		t.Errorf("key set = %v, want pre-call %v", got, want)
	}

	if !notifier.has(EventSaveFailed) {
		t.Errorf("events = %v, want %s reported", notifier.kinds(), EventSaveFailed)
	}
}

func TestReplaceAll_SingletonCanonicalKey(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	st := model.InventoryState{ID: "bogus-key", CurrentLocationID: "l1", UnsyncedChanges: true}
	err := ReplaceAll(ctx, m,
		Replace(schema.Products, []model.Product{}),
		Singleton(schema.State, st),
	)
	if err != nil {
		t.Fatalf("ReplaceAll() failed: %v", err)
	}

	if _, ok, _ := Get(ctx, m, schema.State, "bogus-key"); ok {
		t.Error("state retrievable under the caller-supplied key")
	}
	got, ok, err := Get(ctx, m, schema.State, schema.StateKey)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if !ok {
		t.Fatal("state absent under the canonical key")
	}
	if !got.UnsyncedChanges || got.CurrentLocationID != "l1" {
		t.Errorf("state content = %+v", got)
	}
}

func TestReplaceAll_OmittedStateLeftUntouched(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	if _, err := Put(ctx, m, schema.State, model.InventoryState{CurrentLocationID: "l1"}); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	// Reconciling other collections without a state set leaves the
	// stored state alone.
	if err := ReplaceAll(ctx, m, Replace(schema.Products, []model.Product{})); err != nil {
		t.Fatalf("ReplaceAll() failed: %v", err)
	}

	st, ok, err := Get(ctx, m, schema.State, schema.StateKey)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if !ok {
		t.Fatal("state record lost by unrelated reconciliation")
	}
	if st.CurrentLocationID != "l1" {
		t.Errorf("CurrentLocationID = %q, want %q", st.CurrentLocationID, "l1")
	}
}

func TestReplaceAll_UnknownCollectionRejected(t *testing.T) {
	m := newTestManager(t)

	rogue := schema.Collection[model.Product]{
		Name: "nope",
		Key:  func(p model.Product) string { return p.ID },
	}
	err := ReplaceAll(context.Background(), m, Replace(rogue, []model.Product{}))
	if !is(err, ErrCodeUnknownCollection) {
		t.Errorf("got %v, want UNKNOWN_COLLECTION", err)
	}
}
