// Package snapshot provides persistent form state storage for autosave and restore.
package snapshot

import (
	"errors"
	"time"
)

// Store persists form snapshots.
// Each form holds at most one snapshot; saving again overwrites the previous one.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores a snapshot for a form.
	// Overwrites if a snapshot for formID already exists.
	Save(formID string, data []byte) error

	// Load retrieves the snapshot for a form.
	// Returns ErrNotFound if no snapshot exists.
	Load(formID string) ([]byte, error)

	// List returns metadata for all stored snapshots, ordered by form ID.
	// Returns empty slice (not error) if the store is empty.
	List() ([]Info, error)

	// Delete removes the snapshot for a form.
	// Returns nil if no snapshot exists.
	Delete(formID string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Info provides metadata without loading full state.
type Info struct {
	FormID  string
	SavedAt time.Time
	Size    int64
}

// Sentinel errors for snapshot operations.
var (
	// ErrNotFound indicates no snapshot exists for the form.
	ErrNotFound = errors.New("snapshot not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("snapshot store closed")
)
