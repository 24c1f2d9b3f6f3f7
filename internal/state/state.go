// Package state persists the apply records the engine uses to diff desired
// configuration against what was previously applied.
//
// The store is a single JSON document keyed by resource id. It must survive
// process restarts and be readable by subsequent invocations; the apply
// engine is its only writer.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// documentVersion guards against reading documents written by an
// incompatible future layout.
const documentVersion = 1

// Record is the persisted trace of one applied resource.
type Record struct {
	ID         string            `json:"id"`
	Kind       string            `json:"kind"`
	Hash       string            `json:"hash"`
	Attributes map[string]string `json:"attributes"`
	AppliedAt  time.Time         `json:"applied_at"`
}

// Store loads and saves the full apply-record set.
type Store interface {
	// Load returns all records, or an empty map when no state exists yet.
	Load(ctx context.Context) (map[string]Record, error)

	// Save atomically replaces the stored record set.
	Save(ctx context.Context, records map[string]Record) error
}

// document is the on-disk/on-object layout.
type document struct {
	Version   int               `json:"version"`
	UpdatedAt time.Time         `json:"updated_at"`
	Resources map[string]Record `json:"resources"`
}

func encode(records map[string]Record) ([]byte, error) {
	doc := document{
		Version:   documentVersion,
		UpdatedAt: time.Now().UTC(),
		Resources: records,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}
	return append(data, '\n'), nil
}

func decode(data []byte) (map[string]Record, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	if doc.Version != documentVersion {
		return nil, fmt.Errorf("unsupported state version %d", doc.Version)
	}
	if doc.Resources == nil {
		return map[string]Record{}, nil
	}
	return doc.Resources, nil
}
