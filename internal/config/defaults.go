package config

import (
	"time"

	"github.com/handspeak/gesture-server/internal/gesture"
	"github.com/handspeak/gesture-server/internal/logging"
)

// DefaultConfig returns the configuration of the shipped 120x9 six-gesture model.
func DefaultConfig() *Config {
	labels := make([]string, len(gesture.DefaultLabels))
	copy(labels, gesture.DefaultLabels)

	return &Config{
		Server: ServerConfig{
			Addr:            ":5000",
			AllowedOrigins:  []string{"*"},
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Schema: SchemaConfig{
			SequenceLength:   120,
			FeaturesPerFrame: 9,
			Labels:           labels,
		},
		Model: ModelConfig{
			Path:         "models/gesture.onnx",
			MetadataPath: "models/gesture_metadata.json",
		},
		Enhancer: EnhancerConfig{
			Enabled:      true,
			Provider:     "gemini",
			Timeout:      15 * time.Second,
			MaxRetries:   3,
			RetryBackoff: 300 * time.Millisecond,
			CacheSize:    256,
			DefaultTone:  "FRIENDLY",
		},
		Log: logging.Config{
			Level:  "info",
			Format: "json",
		},
	}
}
