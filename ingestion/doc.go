// Package ingestion provides the build pipeline that turns a card table into
// a persisted, searchable snapshot.
//
// The Pipeline type manages the build workflow:
//   - Deriving index units from the cards at the configured granularity
//   - Generating embeddings in batches on a worker pool, retrying failed batches
//   - Optionally normalizing every vector to unit length
//   - Assembling and verifying the snapshot and its manifest
//   - Saving the snapshot to a storage.SnapshotRepository
//
// Any error aborts the build before anything is persisted.
package ingestion
