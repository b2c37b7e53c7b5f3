package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSnapshot_AcceptsMinimalDocument(t *testing.T) {
	doc := []byte(`products: []
locations: []
`)
	issues, err := ValidateSnapshot(doc)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestValidateSnapshot_AcceptsFullDocument(t *testing.T) {
	doc := []byte(`products:
  - id: p1
    name: Monkey Gin
    category: spirits
    volume: 0.5
    price: 29.9
    supplier: Fine Spirits Co
locations:
  - id: l1
    name: Main Bar
    counters:
      - id: c1
        name: Front Counter
        areas:
          - id: a1
            name: Fridge
            order: 1
            entries:
              - productId: p1
                startCount: 6
                endCount: 4
                startOpenVolume: 0.3
state:
  currentLocationId: l1
  unsyncedChanges: true
`)
	issues, err := ValidateSnapshot(doc)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestValidateSnapshot_RejectsNegativePrice(t *testing.T) {
	doc := []byte(`products:
  - id: p1
    name: Gin
    category: spirits
    volume: 0.7
    price: -1
locations: []
`)
	issues, err := ValidateSnapshot(doc)
	require.NoError(t, err)
	require.NotEmpty(t, issues)
}

func TestValidateSnapshot_RejectsMissingProductName(t *testing.T) {
	doc := []byte(`products:
  - id: p1
    category: spirits
    volume: 0.7
    price: 21.5
locations: []
`)
	issues, err := ValidateSnapshot(doc)
	require.NoError(t, err)
	require.NotEmpty(t, issues)
}

func TestValidateSnapshot_RejectsEmptyEntryProductID(t *testing.T) {
	doc := []byte(`products: []
locations:
  - id: l1
    name: Main Bar
    counters:
      - id: c1
        name: Front Counter
        areas:
          - id: a1
            name: Fridge
            entries:
              - productId: ""
                startCount: 0
                endCount: 0
`)
	issues, err := ValidateSnapshot(doc)
	require.NoError(t, err)
	require.NotEmpty(t, issues)
}

func TestValidateSnapshot_MalformedYAMLIsAnError(t *testing.T) {
	_, err := ValidateSnapshot([]byte("products: ["))
	require.Error(t, err)
}
