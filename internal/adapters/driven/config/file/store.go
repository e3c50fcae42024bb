package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*Store)(nil)

// configFileName is the TOML file inside the config directory.
const configFileName = "config.toml"

// Store persists configuration as TOML. In memory the settings live as
// a flat map with dot-notation keys ("embedding.model"); on disk they
// are written back as nested tables so the file stays hand-editable.
type Store struct {
	mu       sync.RWMutex
	filePath string
	data     map[string]any
}

// NewStore opens the store under configDir, creating the directory
// when needed. An empty configDir selects ~/.docqa. Existing
// configuration is loaded immediately.
func NewStore(configDir string) (*Store, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		configDir = filepath.Join(home, ".docqa")
	}
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	s := &Store{
		filePath: filepath.Join(configDir, configFileName),
		data:     map[string]any{},
	}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns the raw value for a dot-notation key.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.data[key]
	return val, ok
}

// value is Get without the presence flag, for the typed getters.
func (s *Store) value(key string) any {
	val, _ := s.Get(key)
	return val
}

// GetString returns the value as a string, empty when absent or of
// another type.
func (s *Store) GetString(key string) string {
	str, _ := s.value(key).(string)
	return str
}

// GetInt returns the value as an int. TOML integers decode as int64.
func (s *Store) GetInt(key string) int {
	switch v := s.value(key).(type) {
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// GetBool returns the value as a bool, false when absent.
func (s *Store) GetBool(key string) bool {
	b, _ := s.value(key).(bool)
	return b
}

// GetFloat returns the value as a float64. Whole numbers in the TOML
// file decode as int64, so those convert too.
func (s *Store) GetFloat(key string) float64 {
	switch v := s.value(key).(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

// GetStringSlice returns the value as a []string. TOML arrays decode
// as []any; non-string elements are dropped.
func (s *Store) GetStringSlice(key string) []string {
	switch v := s.value(key).(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}

// Set stores a value and persists the whole file immediately, so a
// crash never loses an acknowledged change.
func (s *Store) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return s.flush()
}

// Save writes the current configuration to disk.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush()
}

// Load replaces the in-memory settings with the file contents. A
// missing file means empty configuration, not an error.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		s.data = map[string]any{}
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}

	var nested map[string]any
	if err := toml.Unmarshal(raw, &nested); err != nil {
		return fmt.Errorf("parsing %s: %w", s.filePath, err)
	}

	s.data = map[string]any{}
	flattenInto(s.data, "", nested)
	return nil
}

// Path returns the configuration file path.
func (s *Store) Path() string {
	return s.filePath
}

// flush serialises the flat map back into nested TOML tables and
// writes the file. Caller must hold the write lock.
func (s *Store) flush() error {
	payload, err := toml.Marshal(nest(s.data))
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(s.filePath, payload, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// flattenInto walks nested tables and records each leaf under its
// dot-joined key.
func flattenInto(dst map[string]any, prefix string, src map[string]any) {
	for key, value := range src {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if table, ok := value.(map[string]any); ok {
			flattenInto(dst, full, table)
			continue
		}
		dst[full] = value
	}
}

// nest rebuilds the table structure from dot-notation keys.
func nest(flat map[string]any) map[string]any {
	root := map[string]any{}
	for key, value := range flat {
		parts := strings.Split(key, ".")
		node := root
		for _, part := range parts[:len(parts)-1] {
			child, ok := node[part].(map[string]any)
			if !ok {
				child = map[string]any{}
				node[part] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = value
	}
	return root
}
