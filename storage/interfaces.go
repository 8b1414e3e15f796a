package storage

import "context"

// SnapshotRepository persists a built corpus snapshot.
// Implementations must be safe for concurrent Load calls.
type SnapshotRepository interface {
	// Save replaces any stored snapshot with snap. The snapshot is verified
	// first. A failed save leaves the previously stored snapshot in place.
	Save(ctx context.Context, snap *Snapshot) error

	// Load reads and verifies the stored snapshot.
	// Returns ErrNotFound if nothing has been saved and ErrSchemaMismatch if
	// the stored parts do not line up.
	Load(ctx context.Context) (*Snapshot, error)

	// Close closes the storage backend and releases resources.
	Close() error
}
