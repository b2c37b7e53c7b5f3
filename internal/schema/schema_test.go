package schema

import (
	"testing"

	"github.com/barventory/barventory/internal/model"
)

func TestMigrations_VersionsStrictlyAscending(t *testing.T) {
	last := 0
	for _, mig := range Migrations() {
		if mig.Version <= last {
			t.Errorf("migration version %d not greater than preceding %d", mig.Version, last)
		}
		last = mig.Version
	}
	if last != Version {
		t.Errorf("last migration targets v%d, declared Version is %d", last, Version)
	}
}

func TestMigrations_StepsReferenceDeclaredCollections(t *testing.T) {
	for _, mig := range Migrations() {
		for _, step := range mig.Steps {
			if !Known(step.Collection) {
				t.Errorf("v%d step references undeclared collection %q", mig.Version, step.Collection)
			}
			if step.Kind == StepCreateIndex && (step.Index == "" || step.Field == "") {
				t.Errorf("v%d create-index step incomplete: %+v", mig.Version, step)
			}
		}
	}
}

func TestMigrations_EveryCollectionCreated(t *testing.T) {
	created := map[string]bool{}
	for _, mig := range Migrations() {
		for _, step := range mig.Steps {
			if step.Kind == StepCreateCollection {
				created[step.Collection] = true
			}
		}
	}
	for _, name := range Collections() {
		if !created[name] {
			t.Errorf("collection %q is declared but never created by a migration", name)
		}
	}
}

func TestKnown(t *testing.T) {
	for _, name := range Collections() {
		if !Known(name) {
			t.Errorf("Known(%q) = false", name)
		}
	}
	if Known("bogus") {
		t.Error(`Known("bogus") = true`)
	}
}

func TestCollectionKeys(t *testing.T) {
	if got := Products.Key(model.Product{ID: "p1"}); got != "p1" {
		t.Errorf("Products.Key = %q, want %q", got, "p1")
	}
	if got := Locations.Key(model.Location{ID: "l1"}); got != "l1" {
		t.Errorf("Locations.Key = %q, want %q", got, "l1")
	}
	if got := State.Key(model.InventoryState{ID: "anything"}); got != StateKey {
		t.Errorf("State.Key = %q, want fixed %q", got, StateKey)
	}
}

func TestStateCanonicalize(t *testing.T) {
	st := State.Canonicalize(model.InventoryState{ID: "wrong"})
	if st.ID != StateKey {
		t.Errorf("Canonicalize ID = %q, want %q", st.ID, StateKey)
	}
}
