package file

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/apidex-labs/apidex/internal/core/domain"
	"github.com/apidex-labs/apidex/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore is a file-based implementation of driven.ConfigStore using TOML.
// Configuration is stored in a TOML file within the apidex config directory.
type ConfigStore struct {
	mu       sync.RWMutex
	filePath string
	data     map[string]any
}

// NewConfigStore creates a new TOML-based config store.
// If configDir is empty, defaults to ~/.apidex/config.toml.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".apidex")
	}

	// Ensure directory exists
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	s := &ConfigStore{
		filePath: filepath.Join(configDir, "config.toml"),
		data:     make(map[string]any),
	}

	// Load existing data if file exists
	if err := s.Load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	return s, nil
}

// Get retrieves a configuration value by key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.data[key]
	return val, ok
}

// GetString retrieves a string configuration value.
func (s *ConfigStore) GetString(key string) string {
	val, ok := s.Get(key)
	if !ok {
		return ""
	}

	str, ok := val.(string)
	if !ok {
		return ""
	}
	return str
}

// GetInt retrieves an integer configuration value.
func (s *ConfigStore) GetInt(key string) int {
	val, ok := s.Get(key)
	if !ok {
		return 0
	}

	// TOML integers are parsed as int64
	switch v := val.(type) {
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// GetFloat retrieves a float configuration value.
func (s *ConfigStore) GetFloat(key string) float64 {
	val, ok := s.Get(key)
	if !ok {
		return 0
	}

	// TOML floats parse as float64, but a weight written as "1" parses
	// as an integer.
	switch v := val.(type) {
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

// GetBool retrieves a boolean configuration value.
func (s *ConfigStore) GetBool(key string) bool {
	val, ok := s.Get(key)
	if !ok {
		return false
	}

	b, ok := val.(bool)
	if !ok {
		return false
	}
	return b
}

// Set stores a configuration value and persists immediately.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
	return s.save()
}

// save writes configuration to the TOML file (caller must hold lock).
func (s *ConfigStore) save() error {
	data, err := toml.Marshal(s.data)
	if err != nil {
		return err
	}

	// Write with restricted permissions
	return os.WriteFile(s.filePath, data, 0600)
}

// Load reads configuration from the TOML file.
func (s *ConfigStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			// No config file yet - that's fine, start empty
			s.data = make(map[string]any)
			return nil
		}
		return err
	}

	var loaded map[string]any
	if err := toml.Unmarshal(data, &loaded); err != nil {
		return err
	}

	if loaded == nil {
		loaded = make(map[string]any)
	}

	// Flatten nested maps into dot-notation keys for easier access
	s.data = flattenMap(loaded, "")
	return nil
}

// flattenMap converts nested maps to dot-notation keys.
// E.g., {"a": {"b": 1}} becomes {"a.b": 1}.
func flattenMap(m map[string]any, prefix string) map[string]any {
	result := make(map[string]any)

	for key, value := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		if nested, ok := value.(map[string]any); ok {
			// Recursively flatten nested maps
			for k, v := range flattenMap(nested, fullKey) {
				result[k] = v
			}
		} else {
			result[fullKey] = value
		}
	}

	return result
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}

// EngineSettings assembles the ranking pipeline settings from config,
// falling back to defaults for unset keys, and validates the result.
// Misconfigured weights fail here rather than at query time.
func (s *ConfigStore) EngineSettings() (domain.EngineSettings, error) {
	settings := domain.DefaultEngineSettings()

	weight := func(key string, target *float64) {
		if _, ok := s.Get("scoring." + key); ok {
			*target = s.GetFloat("scoring." + key)
		}
	}
	weight("text_relevance", &settings.Weights.TextRelevance)
	weight("performance", &settings.Weights.Performance)
	weight("geography", &settings.Weights.Geography)
	weight("freshness", &settings.Weights.Freshness)
	weight("permission_fit", &settings.Weights.PermissionFit)
	weight("historical_success", &settings.Weights.HistoricalSuccess)
	weight("popularity", &settings.Weights.Popularity)

	if v := s.GetInt("engine.merge_cap"); v > 0 {
		settings.MergeCap = v
	}
	if v := s.GetInt("engine.rerank_top_n"); v > 0 {
		settings.RerankTopN = v
	}
	if v := s.GetFloat("engine.p95_threshold_ms"); v > 0 {
		settings.P95ThresholdMs = v
	}
	if v := s.GetInt("engine.freshness_half_life_days"); v > 0 {
		settings.FreshnessHalfLife = time.Duration(v) * 24 * time.Hour
	}
	if _, ok := s.Get("engine.region_hop_decay"); ok {
		settings.RegionHopDecay = s.GetFloat("engine.region_hop_decay")
	}
	if v := s.GetInt("engine.embed_timeout_ms"); v > 0 {
		settings.EmbedTimeout = time.Duration(v) * time.Millisecond
	}
	if v := s.GetInt("engine.rerank_timeout_ms"); v > 0 {
		settings.RerankTimeout = time.Duration(v) * time.Millisecond
	}
	if v := s.GetInt("engine.query_deadline_ms"); v > 0 {
		settings.QueryDeadline = time.Duration(v) * time.Millisecond
	}

	if err := settings.Validate(); err != nil {
		return domain.EngineSettings{}, err
	}
	return settings, nil
}
