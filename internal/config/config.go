// Package config loads the layered configuration for an LFCA run: a YAML
// file (searched in standard locations), overridden by LFCA_-prefixed
// environment variables. .env files only fill in variables the process
// environment does not already set, so a variable already present in the
// environment wins over a .env entry; this is the same viper+godotenv
// combination the teacher repo used for its own config.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all settings for a single analysis run or query session.
// Per spec §6, the only recognized *environment* inputs are DataDir and
// concurrency limits; the remaining sub-structs are per-run analysis
// parameters that a caller supplies explicitly (CLI flags, a run-spec
// file) rather than picking up ambiently from the process environment.
type Config struct {
	DataDir     string            `yaml:"data_dir"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	Mirror      MirrorConfig      `yaml:"mirror"`
	Extractor   ExtractorConfig   `yaml:"extractor"`
	Graph       GraphConfig       `yaml:"graph"`
}

// ConcurrencyConfig bounds the Graph Builder's shard fan-out and the
// number of concurrent catalog readers a host advertises.
type ConcurrencyConfig struct {
	BuildShards    int `yaml:"build_shards"`
	MaxReaders     int `yaml:"max_readers"`
}

// CatalogConfig selects and configures the catalog store backend.
type CatalogConfig struct {
	Backend     string `yaml:"backend"` // "sqlite" or "postgres"
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
	// GraphIndex, when non-empty, additionally mirrors Edge/FileIdentity
	// writes into a Neo4j-backed graph index. coupling_graph reads the SQL
	// catalog only and does not consult this index.
	GraphIndexURI      string `yaml:"graph_index_uri"`
	GraphIndexUser     string `yaml:"graph_index_user"`
	GraphIndexPassword string `yaml:"graph_index_password"`
	GraphIndexDatabase string `yaml:"graph_index_database"`
}

// MirrorConfig configures the Repo Mirror.
type MirrorConfig struct {
	CacheDir    string `yaml:"cache_dir"`
	ShallowDepth int   `yaml:"shallow_depth"` // 0 = full history
}

// ExtractorConfig configures extraction policies per §4.2.
type ExtractorConfig struct {
	RenameSimilarityThreshold int     `yaml:"rename_similarity_threshold"`
	MergePolicy               string  `yaml:"merge_policy"` // include|exclude|downweight
	MergeWeight               float64 `yaml:"merge_weight"`
	MaxChangesetSize          int     `yaml:"max_changeset_size"`
	BulkPolicy                string  `yaml:"bulk_policy"` // keep|drop|downweight
}

// GraphConfig configures Graph Builder thresholds per §4.4.
type GraphConfig struct {
	MinRevisions             int `yaml:"min_revisions"`
	MinCooccurrence          int `yaml:"min_cooccurrence"`
	TopKEdgesPerFile         int `yaml:"topk_edges_per_file"`
	MinComponentCooccurrence int `yaml:"min_component_cooccurrence"`
}

// Default returns the spec-mandated defaults.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		DataDir: filepath.Join(homeDir, ".lfca", "data"),
		Concurrency: ConcurrencyConfig{
			BuildShards: 4,
			MaxReaders:  16,
		},
		Catalog: CatalogConfig{
			Backend:    "sqlite",
			SQLitePath: filepath.Join(homeDir, ".lfca", "catalog.db"),
		},
		Mirror: MirrorConfig{
			CacheDir:     filepath.Join(homeDir, ".lfca", "mirrors"),
			ShallowDepth: 0,
		},
		Extractor: ExtractorConfig{
			RenameSimilarityThreshold: 80,
			MergePolicy:               "include",
			MergeWeight:               0.5,
			MaxChangesetSize:          50,
			BulkPolicy:                "keep",
		},
		Graph: GraphConfig{
			MinRevisions:             5,
			MinCooccurrence:          5,
			TopKEdgesPerFile:         50,
			MinComponentCooccurrence: 3,
		},
	}
}

// Load loads configuration from path, or from the standard search
// locations (.lfca/config.yaml, ./config.yaml, $HOME/.lfca/config.yaml)
// when path is empty, layering LFCA_-prefixed environment variables and
// .env files on top of the file and the spec defaults.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	v.SetDefault("data_dir", cfg.DataDir)
	v.SetDefault("concurrency", cfg.Concurrency)
	v.SetDefault("catalog", cfg.Catalog)
	v.SetDefault("mirror", cfg.Mirror)
	v.SetDefault("extractor", cfg.Extractor)
	v.SetDefault("graph", cfg.Graph)

	v.SetEnvPrefix("LFCA")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".lfca")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".lfca"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

func loadEnvFiles() {
	envFiles := []string{".env.local", ".env"}
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			godotenv.Load(file)
		}
	}
	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".lfca", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		godotenv.Load(homeEnvFile)
	}
}

// applyEnvOverrides applies the two recognized environment inputs named in
// §6: data_dir and concurrency limits.
func applyEnvOverrides(cfg *Config) {
	if dir := os.Getenv("LFCA_DATA_DIR"); dir != "" {
		cfg.DataDir = expandPath(dir)
	}
	if shards := os.Getenv("LFCA_BUILD_SHARDS"); shards != "" {
		if n, err := strconv.Atoi(shards); err == nil {
			cfg.Concurrency.BuildShards = n
		}
	}
	if readers := os.Getenv("LFCA_MAX_READERS"); readers != "" {
		if n, err := strconv.Atoi(readers); err == nil {
			cfg.Concurrency.MaxReaders = n
		}
	}
}

func expandPath(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, path[1:])
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("data_dir", c.DataDir)
	v.Set("concurrency", c.Concurrency)
	v.Set("catalog", c.Catalog)
	v.Set("mirror", c.Mirror)
	v.Set("extractor", c.Extractor)
	v.Set("graph", c.Graph)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
