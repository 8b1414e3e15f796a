package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/cardseek/core"
	"github.com/poiesic/cardseek/storage"
)

const (
	buildingSuffix = ".building"
	previousSuffix = ".previous"
)

// Repository implements storage.SnapshotRepository for BadgerDB.
//
// On disk the database is only opened for the duration of a Save or Load.
// Save writes a complete database next to the target directory and renames
// it into place, so readers never observe a half-written snapshot.
type Repository struct {
	path   string
	memory *Backend // set for in-memory repositories
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

var _ storage.SnapshotRepository = (*Repository)(nil)

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger. BadgerDB's own logging is routed through it too.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) {
		r.logger = logger
	}
}

// NewRepository creates a repository for the snapshot directory at path.
func NewRepository(path string, opts ...Option) (storage.SnapshotRepository, error) {
	if path == "" {
		return nil, errors.New("snapshot path is required")
	}
	return newRepository(path, opts...), nil
}

func newRepository(path string, opts ...Option) *Repository {
	r := &Repository{path: path, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "badger-snapshot")
	return r
}

// Save verifies snap and replaces the stored snapshot with it.
func (r *Repository) Save(ctx context.Context, snap *storage.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := snap.Verify(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return storage.ErrStorageClosed
	}

	if r.memory != nil {
		if err := r.memory.DropAll(); err != nil {
			return err
		}
		return writeSnapshot(r.memory, snap)
	}

	return r.saveToDisk(snap)
}

func (r *Repository) saveToDisk(snap *storage.Snapshot) error {
	building := r.path + buildingSuffix
	previous := r.path + previousSuffix

	if err := os.RemoveAll(building); err != nil {
		return err
	}

	backend, err := openBackend(building, modeReadWrite, r.logger)
	if err != nil {
		return err
	}
	if err := writeSnapshot(backend, snap); err != nil {
		backend.Close()
		os.RemoveAll(building)
		return err
	}
	if err := backend.Close(); err != nil {
		os.RemoveAll(building)
		return err
	}

	if err := os.RemoveAll(previous); err != nil {
		return err
	}
	hadPrevious := false
	if _, err := os.Stat(r.path); err == nil {
		if err := os.Rename(r.path, previous); err != nil {
			return err
		}
		hadPrevious = true
	}

	if err := os.Rename(building, r.path); err != nil {
		if hadPrevious {
			if restoreErr := os.Rename(previous, r.path); restoreErr != nil {
				r.logger.Error("failed to restore previous snapshot", "path", r.path, "err", restoreErr)
			}
		}
		return err
	}

	if err := os.RemoveAll(previous); err != nil {
		r.logger.Warn("failed to remove previous snapshot", "path", previous, "err", err)
	}

	r.logger.Info("snapshot saved",
		"path", r.path,
		"cards", len(snap.Cards),
		"units", len(snap.Units),
		"dimension", snap.Manifest.Dimension)
	return nil
}

// Load reads and verifies the stored snapshot.
func (r *Repository) Load(ctx context.Context) (*storage.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, storage.ErrStorageClosed
	}

	backend := r.memory
	if backend == nil {
		var err error
		backend, err = openBackend(r.path, modeReadOnly, r.logger)
		if err != nil {
			return nil, err
		}
		defer backend.Close()
	}

	snap, err := readSnapshot(backend)
	if err != nil {
		return nil, err
	}
	if err := snap.Verify(); err != nil {
		return nil, err
	}

	r.logger.Debug("snapshot loaded", "cards", len(snap.Cards), "units", len(snap.Units))
	return snap, nil
}

// Close releases the repository. In-memory snapshots are discarded.
func (r *Repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if r.memory != nil {
		return r.memory.Close()
	}
	return nil
}

func writeSnapshot(backend *Backend, snap *storage.Snapshot) error {
	return backend.WithWriteBatch(func(wb *badger.WriteBatch) error {
		for i := range snap.Cards {
			if err := wb.Set(makeRowKey(cardPrefix, i), storage.MarshalCard(&snap.Cards[i])); err != nil {
				return err
			}
		}
		for i := range snap.Units {
			if err := wb.Set(makeRowKey(unitPrefix, i), storage.MarshalUnit(&snap.Units[i])); err != nil {
				return err
			}
		}
		for i, v := range snap.Vectors {
			if err := wb.Set(makeRowKey(vectorPrefix, i), storage.MarshalVector(v)); err != nil {
				return err
			}
		}
		// The manifest goes last: a snapshot without one is treated as absent.
		return wb.Set([]byte(manifestKey), storage.MarshalManifest(&snap.Manifest))
	})
}

func readSnapshot(backend *Backend) (*storage.Snapshot, error) {
	snap := &storage.Snapshot{}

	err := backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(manifestKey))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		if err := item.Value(func(val []byte) error {
			manifest, err := storage.UnmarshalManifest(val)
			if err != nil {
				return err
			}
			snap.Manifest = *manifest
			return nil
		}); err != nil {
			return err
		}

		snap.Cards = make([]core.Card, 0, snap.Manifest.CardCount)
		if err := scanRows(tx, cardPrefix, func(val []byte) error {
			card, err := storage.UnmarshalCard(val)
			if err != nil {
				return err
			}
			snap.Cards = append(snap.Cards, *card)
			return nil
		}); err != nil {
			return err
		}

		snap.Units = make([]core.Unit, 0, snap.Manifest.UnitCount)
		if err := scanRows(tx, unitPrefix, func(val []byte) error {
			unit, err := storage.UnmarshalUnit(val)
			if err != nil {
				return err
			}
			snap.Units = append(snap.Units, *unit)
			return nil
		}); err != nil {
			return err
		}

		snap.Vectors = make([][]float32, 0, snap.Manifest.UnitCount)
		return scanRows(tx, vectorPrefix, func(val []byte) error {
			v, err := storage.UnmarshalVector(val)
			if err != nil {
				return err
			}
			snap.Vectors = append(snap.Vectors, v)
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}

	return snap, nil
}

// scanRows calls fn for every value under prefix in row order and fails on a
// gap in the row numbering.
func scanRows(tx *badger.Txn, prefix string, fn func(val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	want := 0
	for iter.Rewind(); iter.Valid(); iter.Next() {
		item := iter.Item()
		row, err := parseRowKey(prefix, item.Key())
		if err != nil {
			return fmt.Errorf("%w: %v", storage.ErrSchemaMismatch, err)
		}
		if row != want {
			return fmt.Errorf("%w: %s row %d missing", storage.ErrSchemaMismatch, prefix, want)
		}
		if err := item.Value(fn); err != nil {
			return err
		}
		want++
	}
	return nil
}
