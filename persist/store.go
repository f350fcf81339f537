// Package persist saves and loads versioned simulation-state blobs so a
// session can be handed off across process restarts. The driver treats the
// payload as opaque; versioning lives in the envelope.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// CurrentVersion is bumped on any incompatible envelope change.
const CurrentVersion = 1

// ErrNotFound is returned when no snapshot exists for a key.
var ErrNotFound = errors.New("persist: snapshot not found")

// Envelope wraps a state payload with versioning metadata.
type Envelope struct {
	Version int             `json:"version"`
	SavedAt time.Time       `json:"saved_at"`
	Payload json.RawMessage `json:"payload"`
}

// Store saves and loads snapshot envelopes by key.
type Store interface {
	Save(ctx context.Context, key string, e Envelope) error
	Load(ctx context.Context, key string) (Envelope, error)
}

// Wrap marshals a payload into a current-version envelope.
func Wrap(payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal snapshot payload: %w", err)
	}
	return Envelope{
		Version: CurrentVersion,
		SavedAt: time.Now().UTC(),
		Payload: raw,
	}, nil
}

// Unwrap validates the version and unmarshals the payload.
func Unwrap(e Envelope, into any) error {
	if e.Version != CurrentVersion {
		return fmt.Errorf("snapshot version %d not supported (want %d)", e.Version, CurrentVersion)
	}
	if err := json.Unmarshal(e.Payload, into); err != nil {
		return fmt.Errorf("unmarshal snapshot payload: %w", err)
	}
	return nil
}
