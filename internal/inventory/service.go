// Package inventory is the application-facing facade over the storage
// layer: load everything, save everything, and per-entity convenience
// operations. It adds no invariant enforcement of its own; atomicity and key
// semantics come from the store.
package inventory

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/barventory/barventory/internal/model"
	"github.com/barventory/barventory/internal/schema"
	"github.com/barventory/barventory/internal/store"
)

// Snapshot is the composite of everything the application holds in memory.
// A nil State means "no state record": LoadAll found none, or SaveAll must
// leave the stored one untouched.
type Snapshot struct {
	Products  []model.Product       `json:"products" yaml:"products"`
	Locations []model.Location      `json:"locations" yaml:"locations"`
	State     *model.InventoryState `json:"state,omitempty" yaml:"state,omitempty"`
}

// Service is the storage facade. Construct with NewService; the manager is
// injected, never ambient.
type Service struct {
	m   *store.Manager
	log *zap.SugaredLogger
}

// NewService wires a Service to the given manager. A nil logger defaults to
// a nop logger.
func NewService(m *store.Manager, log *zap.SugaredLogger) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{m: m, log: log}
}

// LoadAll reads every collection plus the singleton state in one fan-out.
func (s *Service) LoadAll(ctx context.Context) (Snapshot, error) {
	products, err := store.GetAll(ctx, s.m, schema.Products)
	if err != nil {
		return Snapshot{}, err
	}
	locations, err := store.GetAll(ctx, s.m, schema.Locations)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{Products: products, Locations: locations}
	state, ok, err := store.Get(ctx, s.m, schema.State, schema.StateKey)
	if err != nil {
		return Snapshot{}, err
	}
	if ok {
		snap.State = &state
	}
	return snap, nil
}

// SaveAll atomically replaces the product and location collections with the
// snapshot's contents and, when the snapshot carries a state record, puts it
// under the canonical key. All-or-nothing: on error nothing is written.
func (s *Service) SaveAll(ctx context.Context, snap Snapshot) error {
	sets := []store.Replacement{
		store.Replace(schema.Products, snap.Products),
		store.Replace(schema.Locations, snap.Locations),
	}
	if snap.State != nil {
		sets = append(sets, store.Singleton(schema.State, *snap.State))
	}

	if err := store.ReplaceAll(ctx, s.m, sets...); err != nil {
		return err
	}
	s.log.Debugw("saved snapshot",
		"products", len(snap.Products),
		"locations", len(snap.Locations),
		"with_state", snap.State != nil,
	)
	return nil
}

// SaveProduct puts one product, minting an id when the caller left it
// empty, and returns the stored record.
func (s *Service) SaveProduct(ctx context.Context, p model.Product) (model.Product, error) {
	if p.ID == "" {
		p.ID = newID()
	}
	if _, err := store.Put(ctx, s.m, schema.Products, p); err != nil {
		return model.Product{}, err
	}
	return p, nil
}

// DeleteProduct removes a product. Deleting an unknown id succeeds.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	return store.Delete(ctx, s.m, schema.Products, id)
}

// Product returns one product by id; ok is false when absent.
func (s *Service) Product(ctx context.Context, id string) (model.Product, bool, error) {
	return store.Get(ctx, s.m, schema.Products, id)
}

// Products returns the whole catalogue.
func (s *Service) Products(ctx context.Context) ([]model.Product, error) {
	return store.GetAll(ctx, s.m, schema.Products)
}

// SaveLocation puts one location tree, minting an id when empty, and
// returns the stored record. The nested counters, areas and entries travel
// with the location document.
func (s *Service) SaveLocation(ctx context.Context, l model.Location) (model.Location, error) {
	if l.ID == "" {
		l.ID = newID()
	}
	if _, err := store.Put(ctx, s.m, schema.Locations, l); err != nil {
		return model.Location{}, err
	}
	return l, nil
}

// DeleteLocation removes a location and, with it, every nested counter,
// area and inventory entry.
func (s *Service) DeleteLocation(ctx context.Context, id string) error {
	return store.Delete(ctx, s.m, schema.Locations, id)
}

// Locations returns all locations.
func (s *Service) Locations(ctx context.Context) ([]model.Location, error) {
	return store.GetAll(ctx, s.m, schema.Locations)
}

// SaveState puts the singleton state record. The stored key is always the
// canonical one, whatever the record's ID field says.
func (s *Service) SaveState(ctx context.Context, st model.InventoryState) error {
	_, err := store.Put(ctx, s.m, schema.State, st)
	return err
}

// State returns the singleton state record; ok is false when none has been
// saved yet.
func (s *Service) State(ctx context.Context) (model.InventoryState, bool, error) {
	return store.Get(ctx, s.m, schema.State, schema.StateKey)
}

// newID returns a time-ordered unique id for records saved without one.
// Uses github.com/google/uuid for RFC 4122 compliant UUIDs.
func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}
