// Package schema is the registry of declared collections and the ordered
// migration history that establishes them.
//
// The registry is fixed at compile time: a collection is a name, a way to
// derive a string key from a record, and optional secondary indexes. The
// migration history is a list of data-driven step descriptors interpreted by
// the store during upgrade; the only step kinds are create-collection and
// create-index, both create-if-absent. Removing or renaming a collection is
// unsupported.
package schema

import "github.com/barventory/barventory/internal/model"

// Version is the schema version the registry declares. The on-disk version
// (PRAGMA user_version) never regresses; opening a database whose version
// exceeds this value fails.
const Version = 3

// StateKey is the fixed key of the singleton InventoryState record.
const StateKey = "inventory-state"

// Index declares a secondary index over one top-level JSON field of a
// collection's records.
type Index struct {
	Name  string
	Field string
}

// Collection describes one declared collection, typed by its record type.
// Key derives the storage key from a record. Canonicalize, when set, rewrites
// a record before persisting (used to force the singleton's key field).
type Collection[V any] struct {
	Name         string
	Key          func(V) string
	Canonicalize func(V) V
	Indexes      []Index
}

// Declared collections. These are the only names the repository accepts.
var (
	Products = Collection[model.Product]{
		Name: "products",
		Key:  func(p model.Product) string { return p.ID },
		Indexes: []Index{
			{Name: "products_by_category", Field: "category"},
		},
	}

	Locations = Collection[model.Location]{
		Name: "locations",
		Key:  func(l model.Location) string { return l.ID },
	}

	State = Collection[model.InventoryState]{
		Name: "inventory_state",
		Key:  func(model.InventoryState) string { return StateKey },
		Canonicalize: func(s model.InventoryState) model.InventoryState {
			s.ID = StateKey
			return s
		},
	}
)

// Collections returns the names of all declared collections.
func Collections() []string {
	return []string{Products.Name, Locations.Name, State.Name}
}

// Known reports whether name is a declared collection.
func Known(name string) bool {
	for _, c := range Collections() {
		if c == name {
			return true
		}
	}
	return false
}

// StepKind tags a migration step descriptor.
type StepKind int

const (
	// StepCreateCollection creates a collection if it does not exist.
	StepCreateCollection StepKind = iota
	// StepCreateIndex creates a secondary index if it does not exist.
	StepCreateIndex
)

// Step is one migration action. Collection is always set; Index and Field
// are set for StepCreateIndex only.
type Step struct {
	Kind       StepKind
	Collection string
	Index      string
	Field      string
}

// Migration is the ordered set of steps that establishes one schema version.
type Migration struct {
	Version int
	Steps   []Step
}

// Migrations returns the full migration history in ascending version order.
// The store applies every migration whose version exceeds the on-disk
// version. History is append-only: released versions are never edited.
func Migrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Steps: []Step{
				{Kind: StepCreateCollection, Collection: Products.Name},
				{Kind: StepCreateCollection, Collection: Locations.Name},
			},
		},
		{
			Version: 2,
			Steps: []Step{
				{Kind: StepCreateCollection, Collection: State.Name},
			},
		},
		{
			Version: 3,
			Steps: []Step{
				{Kind: StepCreateIndex, Collection: Products.Name, Index: "products_by_category", Field: "category"},
			},
		},
	}
}
