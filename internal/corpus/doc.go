// Package corpus resolves user-supplied paths into a stream of raw
// corpus files. Directories are walked recursively, hidden entries are
// skipped, and the walk is filtered against the extensions the
// normaliser registry knows how to handle.
//
// The package also provides a debounced filesystem watcher used by the
// re-indexing watch mode.
package corpus
