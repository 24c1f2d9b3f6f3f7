package state

import (
	"context"
	"fmt"
)

// ObjectClient is the subset of the object-storage client the store needs.
// Implemented by the Spaces platform client.
type ObjectClient interface {
	ObjectExists(ctx context.Context, bucket, key string) (bool, error)
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	PutObject(ctx context.Context, bucket, key string, data []byte) error
}

// SpacesStore persists state as a single object in a Spaces bucket, so
// multiple operator machines share one view of what was applied.
type SpacesStore struct {
	client ObjectClient
	bucket string
	key    string
}

// NewSpacesStore creates an object-backed store.
func NewSpacesStore(client ObjectClient, bucket, key string) *SpacesStore {
	if key == "" {
		key = "addonctl/state.json"
	}
	return &SpacesStore{client: client, bucket: bucket, key: key}
}

// Load implements Store.
func (s *SpacesStore) Load(ctx context.Context) (map[string]Record, error) {
	exists, err := s.client.ObjectExists(ctx, s.bucket, s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to check state object %s/%s: %w", s.bucket, s.key, err)
	}
	if !exists {
		return map[string]Record{}, nil
	}

	data, err := s.client.GetObject(ctx, s.bucket, s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to read state object %s/%s: %w", s.bucket, s.key, err)
	}
	return decode(data)
}

// Save implements Store.
func (s *SpacesStore) Save(ctx context.Context, records map[string]Record) error {
	data, err := encode(records)
	if err != nil {
		return err
	}
	if err := s.client.PutObject(ctx, s.bucket, s.key, data); err != nil {
		return fmt.Errorf("failed to write state object %s/%s: %w", s.bucket, s.key, err)
	}
	return nil
}
