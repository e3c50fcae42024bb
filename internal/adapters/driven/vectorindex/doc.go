// Package vectorindex provides an exact cosine-similarity vector index
// held in memory, with SQLite-backed snapshots for persistence.
//
// Entries live in four parallel collections (ids, vectors, metadata,
// texts) keyed by insertion position. The collections always have equal
// length and matching order; an id-to-position map makes duplicate
// checks O(1).
//
// Search is exhaustive, O(n*d) per query for n entries of dimension d.
// That is a deliberate ceiling: for corpora up to a few thousand chunks
// it answers in milliseconds, and no approximate index is built.
//
// # Snapshots
//
// Save writes the collections to a single SQLite file with a format
// version marker; Load restores them. Vectors round-trip bit-exact as
// little-endian float32 blobs. A missing file loads as an empty index;
// a corrupt or version-incompatible file fails with StoreCorruptError
// and leaves the current contents untouched.
//
// # Thread Safety
//
// The index guards its collections with a RWMutex: concurrent readers
// are safe, writers are serialised. The snapshot file itself carries no
// lock, so concurrent Save calls from separate processes are
// unsupported.
package vectorindex
