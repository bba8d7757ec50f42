package driven

// ConfigStore holds user settings under dotted keys such as "llm.provider"
// or "search.result_count". The file adapter keeps them in config.toml; the
// CLI wraps it to overlay credentials from the environment.
type ConfigStore interface {
	// Get returns the raw value for key and whether it is set.
	Get(key string) (any, bool)

	// GetString returns the value for key, or "" when unset or not a string.
	GetString(key string) string

	// GetInt returns the value for key as an int. Whole-number floats are
	// accepted; anything else yields 0.
	GetInt(key string) int

	// GetBool returns the value for key, or false when unset or not a bool.
	GetBool(key string) bool

	// GetStringSlice returns the string elements stored under key.
	GetStringSlice(key string) []string

	// Set writes a single value and persists it. On a failed write the
	// previous value is kept.
	Set(key string, value any) error

	// Save writes every value to storage.
	Save() error

	// Load replaces the in-memory values with the stored ones.
	Load() error

	// Path is the location of the backing file.
	Path() string
}
