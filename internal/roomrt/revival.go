package roomrt

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// roomCodeAlphabet omits glyphs easy to misread (0/O, 1/I/L).
const roomCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const roomCodeLength = 6

// GenerateRoomCode returns a fresh 6-character code over the restricted
// alphabet. Collisions are tolerated: create_room is idempotent per code.
func GenerateRoomCode() (string, error) {
	return gonanoid.Generate(roomCodeAlphabet, roomCodeLength)
}

// SnapshotStore is the slice of the persistence adapter Revival depends on.
type SnapshotStore interface {
	GetRoomDocument(ctx context.Context, roomCode string) (*PersistedRoom, error)
	WorkspaceExists(ctx context.Context, roomCode string) (bool, error)
}

// PersistedRoom is the subset of a persisted room document Revival needs.
type PersistedRoom struct {
	Document string
}

// Reviver materializes Rooms from persisted state on first reference to a
// room code.
type Reviver struct {
	registry *Registry
	store    SnapshotStore
}

// NewReviver builds a Reviver over registry and store.
func NewReviver(registry *Registry, store SnapshotStore) *Reviver {
	return &Reviver{registry: registry, store: store}
}

func looksLikeUUID(code string) bool {
	return len(code) == 36 && strings.Contains(code, "-")
}

// synthesizeHostID mints the host identity for a room materialized without
// a declared host.
func synthesizeHostID() string {
	return "host_" + uuid.NewString()[:8]
}

// EnsureRoomExists returns the live Room for code, materializing it from
// persisted state (or rejecting the code) if it was not already live.
func (rv *Reviver) EnsureRoomExists(ctx context.Context, code string) (*Room, error) {
	if room := rv.registry.Get(code); room != nil {
		return room, nil
	}

	persisted, err := rv.store.GetRoomDocument(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("revival: loading room document: %w", err)
	}

	if looksLikeUUID(code) {
		hasWorkspace, err := rv.store.WorkspaceExists(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("revival: checking workspace: %w", err)
		}
		if persisted == nil && !hasWorkspace {
			return nil, ErrInvalidRoomCode
		}
	}

	var snapshot *string
	if persisted != nil {
		d := persisted.Document
		snapshot = &d
	}

	candidate := newRoom(uuid.NewString(), code, synthesizeHostID(), snapshot)
	winner, inserted := rv.registry.InsertIfAbsent(code, candidate)
	if !inserted {
		// Another goroutine raced us; the registry's winner is authoritative.
		// If it was about to be evicted (empty_since set, still registered)
		// a fresh Join should still be able to use it.
		winner.ClearEmptySince()
	}
	return winner, nil
}

// CreateRoomResult is the outcome of an explicit create-room call.
type CreateRoomResult struct {
	Room     *Room
	Restored bool
}

// CreateRoom implements the idempotent explicit create-room operation.
// If desiredCode is already live, it returns that Room with Restored=true;
// otherwise it runs the same materialization steps as EnsureRoomExists
// using the supplied or generated code/host id.
func (rv *Reviver) CreateRoom(ctx context.Context, desiredCode, desiredHostID string) (*CreateRoomResult, error) {
	code := desiredCode
	if code == "" {
		generated, err := GenerateRoomCode()
		if err != nil {
			return nil, fmt.Errorf("revival: generating room code: %w", err)
		}
		code = generated
	}

	if room := rv.registry.Get(code); room != nil {
		return &CreateRoomResult{Room: room, Restored: true}, nil
	}

	persisted, err := rv.store.GetRoomDocument(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("revival: loading room document: %w", err)
	}

	if looksLikeUUID(code) {
		hasWorkspace, err := rv.store.WorkspaceExists(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("revival: checking workspace: %w", err)
		}
		if persisted == nil && !hasWorkspace {
			return nil, ErrInvalidRoomCode
		}
	}

	var snapshot *string
	if persisted != nil {
		d := persisted.Document
		snapshot = &d
	}

	hostID := desiredHostID
	if hostID == "" {
		hostID = synthesizeHostID()
	}

	candidate := newRoom(uuid.NewString(), code, hostID, snapshot)
	winner, inserted := rv.registry.InsertIfAbsent(code, candidate)
	if !inserted {
		return &CreateRoomResult{Room: winner, Restored: true}, nil
	}
	return &CreateRoomResult{Room: winner, Restored: false}, nil
}
