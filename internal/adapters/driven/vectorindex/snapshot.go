package vectorindex

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/docqa-cli/internal/adapters/driven/vectorindex/migrations"
	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/logger"
)

// formatVersion identifies the snapshot schema. Load refuses files
// written with any other version.
const formatVersion = 1

// Keys stored in index_meta.
const (
	metaFormatVersion = "format_version"
	metaDimensions    = "dimensions"
)

// corrupt wraps a low-level failure as a snapshot corruption error.
func corrupt(path, reason string, err error) error {
	return &domain.StoreCorruptError{Path: path, Reason: reason, Err: err}
}

// Save writes a snapshot of the index to a SQLite file at path. The
// snapshot is assembled in a temporary file and renamed into place, so
// a crash mid-save never leaves a torn file at path. Save holds the
// read lock throughout: searches proceed, writers wait.
func (idx *Index) Save(ctx context.Context, path string) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	tmp := path + ".tmp"
	_ = os.Remove(tmp)

	if err := idx.writeSnapshot(ctx, tmp); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing snapshot: %w", err)
	}

	logger.Debug("vector index: saved %d entries to %s", len(idx.ids), path)
	return nil
}

// writeSnapshot creates a fresh snapshot database at path and fills it
// from the current collections. Caller must hold at least the read
// lock.
func (idx *Index) writeSnapshot(ctx context.Context, path string) error {
	db, err := openSnapshot(path)
	if err != nil {
		return fmt.Errorf("creating snapshot: %w", err)
	}
	defer db.Close()

	if err := migrate(db, migrations.FS); err != nil {
		return fmt.Errorf("preparing snapshot schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning snapshot transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	meta := map[string]string{
		metaFormatVersion: strconv.Itoa(formatVersion),
		metaDimensions:    strconv.Itoa(idx.dims),
	}
	for key, value := range meta {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO index_meta (key, value) VALUES (?, ?)", key, value); err != nil {
			return fmt.Errorf("writing snapshot metadata: %w", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries (position, id, vector, metadata, content)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing entry insert: %w", err)
	}
	defer stmt.Close()

	for pos := range idx.ids {
		metadataJSON, err := json.Marshal(idx.metadatas[pos])
		if err != nil {
			return fmt.Errorf("marshalling entry metadata: %w", err)
		}

		if _, err := stmt.ExecContext(ctx, pos, idx.ids[pos],
			vectorBytes(idx.vectors[pos]), string(metadataJSON), idx.texts[pos]); err != nil {
			return fmt.Errorf("writing entry %s: %w", idx.ids[pos], err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}
	return nil
}

// Load replaces the index contents from the snapshot at path. A
// missing file loads an empty index. The snapshot is fully decoded and
// validated into a staging area before the live collections are
// swapped, so a corrupt or version-incompatible file leaves the
// current contents untouched.
func (idx *Index) Load(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			idx.mu.Lock()
			idx.reset()
			idx.mu.Unlock()
			logger.Debug("vector index: no snapshot at %s, starting empty", path)
			return nil
		}
		return fmt.Errorf("checking snapshot: %w", err)
	}

	staged, err := readSnapshot(ctx, path)
	if err != nil {
		return err
	}

	idx.mu.Lock()
	idx.ids = staged.ids
	idx.vectors = staged.vectors
	idx.metadatas = staged.metadatas
	idx.texts = staged.texts
	idx.byID = staged.byID
	idx.dims = staged.dims
	idx.mu.Unlock()

	logger.Debug("vector index: loaded %d entries from %s", len(staged.ids), path)
	return nil
}

// staging holds fully validated snapshot contents before they replace
// the live collections.
type staging struct {
	ids       []string
	vectors   [][]float32
	metadatas []map[string]string
	texts     []string
	byID      map[string]int
	dims      int
}

// add validates one decoded entry against the declared dimensions and
// appends it to the staged collections.
func (st *staging) add(path, id string, vectorBlob []byte, metadataJSON, content string) error {
	if len(vectorBlob)%4 != 0 {
		return corrupt(path,
			fmt.Sprintf("entry %s has a truncated vector blob of %d bytes", id, len(vectorBlob)), nil)
	}
	vector := vectorFloats(vectorBlob)
	if len(vector) != st.dims {
		return corrupt(path,
			fmt.Sprintf("entry %s has dimension %d, snapshot declares %d", id, len(vector), st.dims), nil)
	}

	var metadata map[string]string
	if err := json.Unmarshal([]byte(metadataJSON), &metadata); err != nil {
		return corrupt(path, fmt.Sprintf("entry %s has malformed metadata", id), err)
	}

	if _, dup := st.byID[id]; dup {
		return corrupt(path, fmt.Sprintf("entry id %s appears twice", id), nil)
	}

	st.byID[id] = len(st.ids)
	st.ids = append(st.ids, id)
	st.vectors = append(st.vectors, vector)
	st.metadatas = append(st.metadatas, metadata)
	st.texts = append(st.texts, content)
	return nil
}

// readSnapshot decodes and validates a snapshot file.
func readSnapshot(ctx context.Context, path string) (*staging, error) {
	db, err := openSnapshot(path)
	if err != nil {
		return nil, corrupt(path, "cannot open snapshot", err)
	}
	defer db.Close()

	version, err := readMetaInt(ctx, db, path, metaFormatVersion)
	if err != nil {
		return nil, err
	}
	if version != formatVersion {
		return nil, corrupt(path,
			fmt.Sprintf("unsupported format version %d, want %d", version, formatVersion), nil)
	}

	dims, err := readMetaInt(ctx, db, path, metaDimensions)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, vector, metadata, content
		FROM entries
		ORDER BY position
	`)
	if err != nil {
		return nil, corrupt(path, "cannot read entries", err)
	}
	defer rows.Close()

	st := &staging{byID: make(map[string]int), dims: dims}
	for rows.Next() {
		var (
			id           string
			vectorBlob   []byte
			metadataJSON string
			content      string
		)
		if err := rows.Scan(&id, &vectorBlob, &metadataJSON, &content); err != nil {
			return nil, corrupt(path, "cannot scan entry", err)
		}
		if err := st.add(path, id, vectorBlob, metadataJSON, content); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, corrupt(path, "cannot iterate entries", err)
	}

	return st, nil
}

// readMetaInt reads one integer marker from index_meta.
func readMetaInt(ctx context.Context, db *sql.DB, path, key string) (int, error) {
	var raw string
	err := db.QueryRowContext(ctx,
		"SELECT value FROM index_meta WHERE key = ?", key).Scan(&raw)
	if err != nil {
		return 0, corrupt(path, fmt.Sprintf("missing %s marker", key), err)
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, corrupt(path, fmt.Sprintf("malformed %s marker %q", key, raw), err)
	}
	return value, nil
}

// openSnapshot opens a snapshot database with WAL mode and a busy
// timeout applied.
func openSnapshot(path string) (*sql.DB, error) {
	return sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
}

// migrationVersion extracts the numeric prefix of a migration file
// name. Returns 0 when the name does not carry one.
func migrationVersion(name string) int {
	prefix, _, ok := strings.Cut(name, "_")
	if !ok {
		return 0
	}
	version, err := strconv.Atoi(prefix)
	if err != nil {
		return 0
	}
	return version
}

// migrate applies any migration files newer than the version recorded
// in schema_migrations.
func migrate(db *sql.DB, fsys embed.FS) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var current int
	if err := db.QueryRow(
		"SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var pending []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") && migrationVersion(name) > current {
			pending = append(pending, name)
		}
	}
	sort.Strings(pending)

	for _, name := range pending {
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := db.Exec(
			"INSERT INTO schema_migrations (version) VALUES (?)", migrationVersion(name)); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// vectorBytes encodes a vector as little-endian float32 bytes. The
// encoding preserves bits exactly, so a save/load round trip returns
// identical floats.
func vectorBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// vectorFloats decodes a little-endian float32 blob.
func vectorFloats(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
