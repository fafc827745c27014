package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ChunkerConfig configures how normalized text is split into chunks.
type ChunkerConfig struct {
	ChunkSize            int `yaml:"chunk_size"`
	ChunkOverlap         int `yaml:"chunk_overlap"`
	MaxChunksPerDocument int `yaml:"max_chunks_per_document"`
}

// LoaderConfig configures source content loading.
type LoaderConfig struct {
	// PDFPageWindow bounds how many pages are decoded at once when
	// extracting text from a PDF source.
	PDFPageWindow int       `yaml:"pdf_page_window"`
	S3            *S3Config `yaml:"s3,omitempty"`
}

// S3Config contains connection details for s3:// source locators.
type S3Config struct {
	Endpoint     string `yaml:"endpoint"`
	AccessKeyEnv string `yaml:"access_key_env"`
	SecretKeyEnv string `yaml:"secret_key_env"`
	UseSSL       bool   `yaml:"use_ssl"`
}

// EmbedderConfig selects and configures the embedding backend.
type EmbedderConfig struct {
	Type          string `yaml:"type"` // "openai" or "static"
	BaseURL       string `yaml:"base_url"`
	APIKeyEnv     string `yaml:"api_key_env"`
	Model         string `yaml:"model"`
	Dimension     int    `yaml:"dimension"`
	TimeoutSecs   int    `yaml:"timeout_secs"`
	BatchSize     int    `yaml:"batch_size"`
	MaxInputChars int    `yaml:"max_input_chars"`
	CacheSize     int    `yaml:"cache_size"`
	RatePerSec    int    `yaml:"rate_per_sec"`
}

// VectorStoreConfig selects and configures the vector index backend.
type VectorStoreConfig struct {
	Type            string `yaml:"type"` // "qdrant" or "memory"
	URL             string `yaml:"url"`
	APIKeyEnv       string `yaml:"api_key_env"`
	Collection      string `yaml:"collection"`
	Distance        string `yaml:"distance"`
	TimeoutSecs     int    `yaml:"timeout_secs"`
	UpsertBatchSize int    `yaml:"upsert_batch_size"`
}

// DocStoreConfig configures the document metadata store.
type DocStoreConfig struct {
	Type string `yaml:"type"` // "sqlite" or "memory"
	Path string `yaml:"path"`
}

// RetryConfig bounds orchestrator-level retries on transient backend
// failures and the number of embedding sub-batches in flight.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts"`
	InitialDelayMs   int `yaml:"initial_delay_ms"`
	MaxDelayMs       int `yaml:"max_delay_ms"`
	EmbedConcurrency int `yaml:"embed_concurrency"`
}

// AppConfig is the root application configuration, assembled once at
// startup and threaded through constructors.
type AppConfig struct {
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Loader      LoaderConfig      `yaml:"loader"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	DocStore    DocStoreConfig    `yaml:"doc_store"`
	Retry       RetryConfig       `yaml:"retry"`
}

// Load reads a config from the given path. A missing file yields the
// defaults rather than an error.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then
// ~/.config/lexindex/config.yaml. If neither exists, it writes
// defaults to the user path and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "lexindex", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Embedder:    EmbedderConfig{Type: "static"},
		VectorStore: VectorStoreConfig{Type: "memory"},
		DocStore:    DocStoreConfig{Type: "sqlite"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = 1000
	}
	if cfg.Chunker.ChunkOverlap == 0 {
		cfg.Chunker.ChunkOverlap = 200
	}
	if cfg.Chunker.MaxChunksPerDocument == 0 {
		cfg.Chunker.MaxChunksPerDocument = 5000
	}
	if cfg.Loader.PDFPageWindow == 0 {
		cfg.Loader.PDFPageWindow = 10
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "static"
	}
	if cfg.Embedder.BaseURL == "" {
		cfg.Embedder.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Embedder.APIKeyEnv == "" {
		cfg.Embedder.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Embedder.Model == "" {
		cfg.Embedder.Model = "text-embedding-3-small"
	}
	if cfg.Embedder.Dimension == 0 {
		cfg.Embedder.Dimension = 1536
	}
	if cfg.Embedder.TimeoutSecs == 0 {
		cfg.Embedder.TimeoutSecs = 30
	}
	if cfg.Embedder.BatchSize == 0 {
		cfg.Embedder.BatchSize = 20
	}
	if cfg.Embedder.MaxInputChars == 0 {
		cfg.Embedder.MaxInputChars = 8000
	}
	if cfg.Embedder.CacheSize == 0 {
		cfg.Embedder.CacheSize = 1000
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "memory"
	}
	if cfg.VectorStore.Collection == "" {
		cfg.VectorStore.Collection = "legal_documents"
	}
	if cfg.VectorStore.Distance == "" {
		cfg.VectorStore.Distance = "Cosine"
	}
	if cfg.VectorStore.TimeoutSecs == 0 {
		cfg.VectorStore.TimeoutSecs = 15
	}
	if cfg.VectorStore.UpsertBatchSize == 0 {
		cfg.VectorStore.UpsertBatchSize = 10
	}
	if cfg.DocStore.Type == "" {
		cfg.DocStore.Type = "sqlite"
	}
	if cfg.DocStore.Path == "" {
		cfg.DocStore.Path = "lexindex.db"
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 3
	}
	if cfg.Retry.InitialDelayMs == 0 {
		cfg.Retry.InitialDelayMs = 200
	}
	if cfg.Retry.MaxDelayMs == 0 {
		cfg.Retry.MaxDelayMs = 5000
	}
	if cfg.Retry.EmbedConcurrency == 0 {
		cfg.Retry.EmbedConcurrency = 4
	}
}
