// Package session persists conversation state between turns. State is
// stored as opaque JSON snapshots keyed by session identifier; backends
// never interpret the snapshot.
package session

import (
	"context"
	"encoding/json"

	"github.com/tripflow/tripflow/types"
)

// Store loads and saves session state snapshots.
type Store interface {
	// Load returns the state for a session. A missing session yields
	// ErrSessionNotFound.
	Load(ctx context.Context, sessionID string) (*types.State, error)
	// Save persists the full state snapshot, replacing any previous one.
	Save(ctx context.Context, st *types.State) error
	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, sessionID string) error
	// Count reports how many sessions the store currently holds.
	Count(ctx context.Context) (int, error)
	// Close releases backend resources.
	Close() error
}

func encode(st *types.State) ([]byte, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "failed to encode session state").WithCause(err)
	}
	return data, nil
}

func decode(data []byte) (*types.State, error) {
	var st types.State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, types.NewError(types.ErrInternalError, "failed to decode session state").WithCause(err)
	}
	if st.Components.Records == nil {
		st.Components = types.NewComponentSet()
	}
	return &st, nil
}

func notFound(sessionID string) *types.Error {
	return types.NewError(types.ErrSessionNotFound, "session not found: "+sessionID)
}
