package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	retrievalerrors "github.com/aman-labs/coderetrieval/internal/errors"
)

// Config is the complete configuration for the retrieval engine. It mirrors
// the recognized option set: per-field boosts, hybrid fusion weights,
// transitive-closure depth bounds, vector-search tuning, and the on-disk
// index location.
type Config struct {
	Boost      BoostConfig      `yaml:"boost" json:"boost"`
	Hybrid     HybridConfig     `yaml:"hybrid" json:"hybrid"`
	Transitive TransitiveConfig `yaml:"transitive" json:"transitive"`
	Vector     VectorConfig     `yaml:"vector" json:"vector"`
	Index      IndexConfig      `yaml:"index" json:"index"`
}

// BoostConfig holds the per-field score multipliers applied to matched
// subqueries in the keyword index.
type BoostConfig struct {
	EntityName float64 `yaml:"entity_name" json:"entity_name"`
	DocSummary float64 `yaml:"doc_summary" json:"doc_summary"`
	Content    float64 `yaml:"content" json:"content"`
}

// HybridConfig holds the fusion weights for keyword and vector result lists.
// KeywordWeight and VectorWeight must sum to 1.0 within a tight tolerance.
type HybridConfig struct {
	KeywordWeight float64 `yaml:"keyword_weight" json:"keyword_weight"`
	VectorWeight  float64 `yaml:"vector_weight" json:"vector_weight"`
}

// TransitiveConfig bounds graph-closure traversal depth.
type TransitiveConfig struct {
	DefaultDepth int `yaml:"default_depth" json:"default_depth"`
	MaxDepth     int `yaml:"max_depth" json:"max_depth"`
}

// VectorConfig tunes the HNSW-backed vector store.
type VectorConfig struct {
	EfSearch  int `yaml:"ef_search" json:"ef_search"`
	BatchSize int `yaml:"batch_size" json:"batch_size"`
}

// IndexConfig locates persisted index state on disk.
type IndexConfig struct {
	Directory string `yaml:"directory" json:"directory"`
}

// weightSumTolerance bounds how far keyword_weight + vector_weight may drift
// from 1.0 before configuration is rejected.
const weightSumTolerance = 1e-9

// NewConfig returns a Config populated with the recognized defaults.
func NewConfig() *Config {
	return &Config{
		Boost: BoostConfig{
			EntityName: 3.0,
			DocSummary: 2.0,
			Content:    1.0,
		},
		Hybrid: HybridConfig{
			KeywordWeight: 0.6,
			VectorWeight:  0.4,
		},
		Transitive: TransitiveConfig{
			DefaultDepth: 5,
			MaxDepth:     10,
		},
		Vector: VectorConfig{
			EfSearch:  40,
			BatchSize: 100,
		},
		Index: IndexConfig{
			Directory: "./data/index",
		},
	}
}

// GetUserConfigPath returns the path to the user/global configuration file,
// following the XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/coderetrieval/config.yaml (if set)
//   - ~/.config/coderetrieval/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "coderetrieval", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "coderetrieval", "config.yaml")
	}
	return filepath.Join(home, ".config", "coderetrieval", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig loads the user/global configuration file if it exists.
// Returns nil config and nil error if the file doesn't exist.
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()
	if !fileExists(configPath) {
		return nil, nil
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}
	return cfg, nil
}

// Load loads configuration for the repository rooted at dir, applying
// overrides in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/coderetrieval/config.yaml)
//  3. Project config (.coderetrieval.yaml in dir)
//  4. Environment variables (CODERETRIEVAL_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, retrievalerrors.ConfigError(retrievalerrors.ErrCodeConfigInvalid,
			"failed to load user config", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from .coderetrieval.yaml or
// .coderetrieval.yml in dir.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ".coderetrieval.yaml")
	if fileExists(yamlPath) {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, ".coderetrieval.yml")
	if fileExists(ymlPath) {
		return c.loadYAML(ymlPath)
	}

	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return retrievalerrors.ConfigError(retrievalerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("failed to read config file %s", path), err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return retrievalerrors.ConfigError(retrievalerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("failed to parse config file %s", path), err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Boost.EntityName != 0 {
		c.Boost.EntityName = other.Boost.EntityName
	}
	if other.Boost.DocSummary != 0 {
		c.Boost.DocSummary = other.Boost.DocSummary
	}
	if other.Boost.Content != 0 {
		c.Boost.Content = other.Boost.Content
	}

	if other.Hybrid.KeywordWeight != 0 {
		c.Hybrid.KeywordWeight = other.Hybrid.KeywordWeight
	}
	if other.Hybrid.VectorWeight != 0 {
		c.Hybrid.VectorWeight = other.Hybrid.VectorWeight
	}

	if other.Transitive.DefaultDepth != 0 {
		c.Transitive.DefaultDepth = other.Transitive.DefaultDepth
	}
	if other.Transitive.MaxDepth != 0 {
		c.Transitive.MaxDepth = other.Transitive.MaxDepth
	}

	if other.Vector.EfSearch != 0 {
		c.Vector.EfSearch = other.Vector.EfSearch
	}
	if other.Vector.BatchSize != 0 {
		c.Vector.BatchSize = other.Vector.BatchSize
	}

	if other.Index.Directory != "" {
		c.Index.Directory = other.Index.Directory
	}
}

// applyEnvOverrides applies CODERETRIEVAL_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CODERETRIEVAL_BOOST_ENTITY_NAME"); v != "" {
		if f, err := parseFloat64(v); err == nil {
			c.Boost.EntityName = f
		}
	}
	if v := os.Getenv("CODERETRIEVAL_BOOST_DOC_SUMMARY"); v != "" {
		if f, err := parseFloat64(v); err == nil {
			c.Boost.DocSummary = f
		}
	}
	if v := os.Getenv("CODERETRIEVAL_BOOST_CONTENT"); v != "" {
		if f, err := parseFloat64(v); err == nil {
			c.Boost.Content = f
		}
	}

	if v := os.Getenv("CODERETRIEVAL_KEYWORD_WEIGHT"); v != "" {
		if f, err := parseFloat64(v); err == nil && f >= 0 && f <= 1 {
			c.Hybrid.KeywordWeight = f
		}
	}
	if v := os.Getenv("CODERETRIEVAL_VECTOR_WEIGHT"); v != "" {
		if f, err := parseFloat64(v); err == nil && f >= 0 && f <= 1 {
			c.Hybrid.VectorWeight = f
		}
	}

	if v := os.Getenv("CODERETRIEVAL_TRANSITIVE_DEFAULT_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Transitive.DefaultDepth = n
		}
	}
	if v := os.Getenv("CODERETRIEVAL_TRANSITIVE_MAX_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Transitive.MaxDepth = n
		}
	}

	if v := os.Getenv("CODERETRIEVAL_VECTOR_EF_SEARCH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Vector.EfSearch = n
		}
	}
	if v := os.Getenv("CODERETRIEVAL_VECTOR_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Vector.BatchSize = n
		}
	}

	if v := os.Getenv("CODERETRIEVAL_INDEX_DIRECTORY"); v != "" {
		c.Index.Directory = v
	}
}

// parseFloat64 parses a string to float64.
func parseFloat64(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(strings.TrimSpace(s), "%f", &f)
	return f, err
}

// Validate checks the configuration against the recognized option
// constraints, returning a RetrievalError on the first violation found.
func (c *Config) Validate() error {
	if !isFinitePositive(c.Boost.EntityName) {
		return retrievalerrors.ValidationError(retrievalerrors.ErrCodeBoostInvalid,
			fmt.Sprintf("boost.entity_name must be finite and > 0, got %v", c.Boost.EntityName))
	}
	if !isFinitePositive(c.Boost.DocSummary) {
		return retrievalerrors.ValidationError(retrievalerrors.ErrCodeBoostInvalid,
			fmt.Sprintf("boost.doc_summary must be finite and > 0, got %v", c.Boost.DocSummary))
	}
	if !isFinitePositive(c.Boost.Content) {
		return retrievalerrors.ValidationError(retrievalerrors.ErrCodeBoostInvalid,
			fmt.Sprintf("boost.content must be finite and > 0, got %v", c.Boost.Content))
	}

	if c.Hybrid.KeywordWeight < 0 || c.Hybrid.KeywordWeight > 1 {
		return retrievalerrors.ValidationError(retrievalerrors.ErrCodeWeightsInvalid,
			fmt.Sprintf("hybrid.keyword_weight must be in [0,1], got %v", c.Hybrid.KeywordWeight))
	}
	if c.Hybrid.VectorWeight < 0 || c.Hybrid.VectorWeight > 1 {
		return retrievalerrors.ValidationError(retrievalerrors.ErrCodeWeightsInvalid,
			fmt.Sprintf("hybrid.vector_weight must be in [0,1], got %v", c.Hybrid.VectorWeight))
	}
	sum := c.Hybrid.KeywordWeight + c.Hybrid.VectorWeight
	if math.Abs(sum-1.0) > weightSumTolerance {
		return retrievalerrors.ValidationError(retrievalerrors.ErrCodeWeightsInvalid,
			fmt.Sprintf("hybrid.keyword_weight + hybrid.vector_weight must equal 1.0 (tolerance %g), got %v", weightSumTolerance, sum))
	}

	if c.Transitive.DefaultDepth < 1 || c.Transitive.DefaultDepth > 10 {
		return retrievalerrors.ValidationError(retrievalerrors.ErrCodeDepthInvalid,
			fmt.Sprintf("transitive.default_depth must be in [1,10], got %d", c.Transitive.DefaultDepth))
	}
	if c.Transitive.MaxDepth < 1 || c.Transitive.MaxDepth > 10 {
		return retrievalerrors.ValidationError(retrievalerrors.ErrCodeDepthInvalid,
			fmt.Sprintf("transitive.max_depth must be in [1,10], got %d", c.Transitive.MaxDepth))
	}
	if c.Transitive.DefaultDepth > c.Transitive.MaxDepth {
		return retrievalerrors.ValidationError(retrievalerrors.ErrCodeDepthInvalid,
			fmt.Sprintf("transitive.default_depth (%d) must not exceed transitive.max_depth (%d)", c.Transitive.DefaultDepth, c.Transitive.MaxDepth))
	}

	if c.Vector.EfSearch <= 0 {
		return retrievalerrors.ValidationError(retrievalerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("vector.ef_search must be a positive int, got %d", c.Vector.EfSearch))
	}
	if c.Vector.BatchSize <= 0 {
		return retrievalerrors.ValidationError(retrievalerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("vector.batch_size must be a positive int, got %d", c.Vector.BatchSize))
	}

	if strings.TrimSpace(c.Index.Directory) == "" {
		return retrievalerrors.ValidationError(retrievalerrors.ErrCodeConfigInvalid,
			"index.directory must not be empty")
	}

	return nil
}

func isFinitePositive(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f > 0
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// LoadUserConfig loads the user configuration file.
// Returns nil config and nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	return loadUserConfig()
}

// FindProjectRoot finds the project root directory by walking up from
// startDir, looking for a .git directory or a .coderetrieval.yaml/.yml file.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}
		if fileExists(filepath.Join(currentDir, ".coderetrieval.yaml")) ||
			fileExists(filepath.Join(currentDir, ".coderetrieval.yml")) {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return absDir, nil
		}
		currentDir = parentDir
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
