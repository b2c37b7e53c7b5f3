package cli

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/barventory/barventory/internal/inventory"
)

//go:embed snapshot.cue
var snapshotSchema string

// ValidationIssue is one schema violation found in a snapshot file.
type ValidationIssue struct {
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// ValidateSnapshot checks a YAML snapshot document against the embedded CUE
// schema. A nil slice with a nil error means the document is valid; a
// non-nil error means the document could not be checked at all.
func ValidateSnapshot(doc []byte) ([]ValidationIssue, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(doc, &raw); err != nil {
		return nil, fmt.Errorf("parsing snapshot YAML: %w", err)
	}

	cctx := cuecontext.New()
	schemaVal := cctx.CompileString(snapshotSchema)
	if err := schemaVal.Err(); err != nil {
		return nil, fmt.Errorf("compiling snapshot schema: %w", err)
	}
	def := schemaVal.LookupPath(cue.ParsePath("#Snapshot"))
	if err := def.Err(); err != nil {
		return nil, fmt.Errorf("resolving #Snapshot: %w", err)
	}

	dataVal := cctx.Encode(raw)
	if err := dataVal.Err(); err != nil {
		return nil, fmt.Errorf("encoding snapshot data: %w", err)
	}

	unified := def.Unify(dataVal)
	err := unified.Validate(cue.Concrete(true))
	if err == nil {
		return nil, nil
	}

	var issues []ValidationIssue
	for _, e := range cueerrors.Errors(err) {
		issue := ValidationIssue{Message: e.Error()}
		if p := e.Path(); len(p) > 0 {
			issue.Path = cue.MakePath(pathSelectors(p)...).String()
		}
		issues = append(issues, issue)
	}
	return issues, nil
}

func pathSelectors(path []string) []cue.Selector {
	sels := make([]cue.Selector, len(path))
	for i, p := range path {
		sels[i] = cue.Str(p)
	}
	return sels
}

// loadSnapshotFile reads a snapshot file, optionally validates it, and
// decodes it into the facade's snapshot type.
func loadSnapshotFile(path string, validate bool) (inventory.Snapshot, []ValidationIssue, error) {
	doc, err := os.ReadFile(path)
	if err != nil {
		return inventory.Snapshot{}, nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if validate {
		issues, err := ValidateSnapshot(doc)
		if err != nil {
			return inventory.Snapshot{}, nil, err
		}
		if len(issues) > 0 {
			return inventory.Snapshot{}, issues, nil
		}
	}

	var snap inventory.Snapshot
	if err := yaml.Unmarshal(doc, &snap); err != nil {
		return inventory.Snapshot{}, nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return snap, nil, nil
}
