package driven

// ConfigStore provides access to application configuration.
// Implementations own persistence (a TOML file, an in-memory map) and
// type conversion. The typed getters return the zero value when the key
// is missing or holds a value of a different type; GetStringSlice
// returns nil in those cases.
type ConfigStore interface {
	// Get retrieves a raw value by key, reporting whether it exists.
	Get(key string) (any, bool)

	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
	GetFloat(key string) float64
	GetStringSlice(key string) []string

	// Set stores a value under key in memory. Save persists the
	// current state; Load replaces it from storage.
	Set(key string, value any) error
	Save() error
	Load() error

	// Path returns the backing file path.
	Path() string
}
