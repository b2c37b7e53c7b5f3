package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// marshalRecord serializes a record to JSON TEXT for storage.
// HTML escaping is disabled so the stored document matches what callers
// wrote (< > & stay literal).
func marshalRecord(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalRecord parses stored JSON TEXT back into a record.
func unmarshalRecord[V any](data string) (V, error) {
	var v V
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return v, fmt.Errorf("unmarshal record: %w", err)
	}
	return v, nil
}

// normalizeKey returns the NFC form of a key. Keys that render identically
// must compare equal, regardless of which Unicode composition the caller
// produced.
func normalizeKey(k string) string {
	return norm.NFC.String(k)
}
