package config

import (
	"time"

	"github.com/handspeak/gesture-server/internal/logging"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Schema   SchemaConfig   `toml:"schema"`
	Model    ModelConfig    `toml:"model"`
	Enhancer EnhancerConfig `toml:"enhancer"`
	Log      logging.Config `toml:"log"`
}

type ServerConfig struct {
	Addr            string        `toml:"addr"`
	AllowedOrigins  []string      `toml:"allowed_origins"`
	ReadTimeout     time.Duration `toml:"read_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
	MaxBodyBytes    int64         `toml:"max_body_bytes"`
}

// SchemaConfig is fixed for the lifetime of the process.
type SchemaConfig struct {
	SequenceLength   int      `toml:"sequence_length"`
	FeaturesPerFrame int      `toml:"features_per_frame"`
	Labels           []string `toml:"labels"`
}

type ModelConfig struct {
	Path              string `toml:"path"`
	MetadataPath      string `toml:"metadata_path"`
	SharedLibraryPath string `toml:"shared_library_path"`
	IntraOpThreads    int    `toml:"intra_op_threads"` // 0 = runtime default
}

// EnhancerConfig configures the text-enhancement collaborator. It is the only
// section applied on hot reload.
type EnhancerConfig struct {
	Enabled      bool          `toml:"enabled"`
	Provider     string        `toml:"provider"` // "gemini", "openai", "groq"
	Model        string        `toml:"model"`
	APIKey       string        `toml:"api_key"`
	Timeout      time.Duration `toml:"timeout"`
	MaxRetries   int           `toml:"max_retries"`
	RetryBackoff time.Duration `toml:"retry_backoff"`
	CacheSize    int           `toml:"cache_size"`
	DefaultTone  string        `toml:"default_tone"`
}
