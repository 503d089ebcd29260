// Package storage persists the bookmark table and the visit history.
package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hfi/waypoint/internal/errs"
)

// FormatVersion is written into every persisted document
const FormatVersion = 1

// Mapping is a persisted bookmark
type Mapping struct {
	Key  string `json:"key"`
	Path string `json:"path"`
}

// HistoryState is the persisted visit history. A nil Current marks an empty
// history.
type HistoryState struct {
	Entries []string `json:"entries"`
	Current *int     `json:"current"`
}

// Store defines the serialization boundary for both documents.
// A document that was never saved loads as empty.
type Store interface {
	// LoadMappings returns the bookmarks in insertion order
	LoadMappings(ctx context.Context) ([]Mapping, error)

	// SaveMappings replaces the persisted bookmarks
	SaveMappings(ctx context.Context, mappings []Mapping) error

	// LoadHistory returns the visit history
	LoadHistory(ctx context.Context) (HistoryState, error)

	// SaveHistory replaces the persisted history
	SaveHistory(ctx context.Context, state HistoryState) error

	// Close releases any resources
	Close() error
}

type mappingsDoc struct {
	Version  int       `json:"version"`
	Mappings []Mapping `json:"mappings"`
}

type historyDoc struct {
	Version int `json:"version"`
	HistoryState
}

func encodeMappings(mappings []Mapping) ([]byte, error) {
	if mappings == nil {
		mappings = []Mapping{}
	}
	return json.MarshalIndent(mappingsDoc{Version: FormatVersion, Mappings: mappings}, "", "  ")
}

func decodeMappings(data []byte, source string) ([]Mapping, error) {
	var doc mappingsDoc
	if err := decode(data, source, &doc.Version, &doc); err != nil {
		return nil, err
	}
	return doc.Mappings, nil
}

func encodeHistory(state HistoryState) ([]byte, error) {
	if state.Entries == nil {
		state.Entries = []string{}
	}
	return json.MarshalIndent(historyDoc{Version: FormatVersion, HistoryState: state}, "", "  ")
}

func decodeHistory(data []byte, source string) (HistoryState, error) {
	var doc historyDoc
	if err := decode(data, source, &doc.Version, &doc); err != nil {
		return HistoryState{}, err
	}
	return doc.HistoryState, nil
}

// decode parses a persisted document. Empty or unparsable data is corrupt,
// never an empty store.
func decode(data []byte, source string, version *int, v any) error {
	if len(data) == 0 {
		return errs.Internal(nil, "%s is empty", source)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errs.Internal(err, "failed to parse %s", source)
	}
	if *version != FormatVersion {
		return errs.Internal(fmt.Errorf("unsupported version %d", *version), "failed to parse %s", source)
	}
	return nil
}
