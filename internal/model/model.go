// Package model defines the domain records persisted by the storage layer:
// the product catalogue, the location tree (locations own counters, counters
// own areas, areas own inventory entries), and the singleton application
// state document.
//
// Records are stored as embedded JSON documents. A Location row carries its
// whole counter/area/entry tree; nested structures are never stored as
// separate collections, so deleting a Location removes everything beneath it.
package model

// Product describes one sellable item in the catalogue.
//
// Products are referenced by id from InventoryEntry records, but the storage
// layer does not enforce that reference; callers keep the two consistent.
type Product struct {
	ID       string  `json:"id" yaml:"id"`
	Name     string  `json:"name" yaml:"name"`
	Category string  `json:"category" yaml:"category"`
	Volume   float64 `json:"volume" yaml:"volume"` // bottle volume in litres
	Price    float64 `json:"price" yaml:"price"`
	Supplier string  `json:"supplier,omitempty" yaml:"supplier,omitempty"`
	ImageURL string  `json:"imageUrl,omitempty" yaml:"imageUrl,omitempty"`
	Notes    string  `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Location is a venue with an ordered list of counters.
type Location struct {
	ID       string    `json:"id" yaml:"id"`
	Name     string    `json:"name" yaml:"name"`
	Address  string    `json:"address,omitempty" yaml:"address,omitempty"`
	Counters []Counter `json:"counters" yaml:"counters"`
}

// Counter is a serving station within a location. Its id is unique within
// the owning location only.
type Counter struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Areas       []Area `json:"areas" yaml:"areas"`
}

// Area is a storage or display area within a counter.
type Area struct {
	ID          string           `json:"id" yaml:"id"`
	Name        string           `json:"name" yaml:"name"`
	Description string           `json:"description,omitempty" yaml:"description,omitempty"`
	Order       *int             `json:"order,omitempty" yaml:"order,omitempty"`
	Entries     []InventoryEntry `json:"entries" yaml:"entries"`
}

// InventoryEntry records the counted stock of one product within an area.
// It has no identity of its own; its lifecycle is bound to the owning area.
// Open-volume fields track partially full bottles and are optional.
type InventoryEntry struct {
	ProductID       string   `json:"productId" yaml:"productId"`
	StartCount      int      `json:"startCount" yaml:"startCount"`
	EndCount        int      `json:"endCount" yaml:"endCount"`
	StartOpenVolume *float64 `json:"startOpenVolume,omitempty" yaml:"startOpenVolume,omitempty"`
	EndOpenVolume   *float64 `json:"endOpenVolume,omitempty" yaml:"endOpenVolume,omitempty"`
}

// InventoryState is the singleton cross-cutting state document. It is always
// persisted under one fixed key; the storage layer overwrites any
// caller-supplied ID before writing.
type InventoryState struct {
	ID                string     `json:"id" yaml:"id"`
	CurrentLocationID string     `json:"currentLocationId,omitempty" yaml:"currentLocationId,omitempty"`
	UnsyncedChanges   bool       `json:"unsyncedChanges" yaml:"unsyncedChanges"`
	Products          []Product  `json:"products,omitempty" yaml:"products,omitempty"`
	Locations         []Location `json:"locations,omitempty" yaml:"locations,omitempty"`
}
