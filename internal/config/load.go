package config

import (
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// DefaultPath is used when no --config flag is given.
const DefaultPath = "config.toml"

// Load reads path over the defaults and applies environment overrides. A
// missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, errors.Wrapf(err, "failed to parse config file %s", path)
			}
		} else if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to stat config file %s", path)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if p := strings.TrimSpace(os.Getenv("PORT")); p != "" {
		c.Server.Addr = ":" + p
	}
	if v := os.Getenv("GESTURE_MODEL_PATH"); v != "" {
		c.Model.Path = v
	}
	if v := os.Getenv("GESTURE_METADATA_PATH"); v != "" {
		c.Model.MetadataPath = v
	}
	if v := os.Getenv("ONNXRUNTIME_LIB"); v != "" {
		c.Model.SharedLibraryPath = v
	}
	if c.Enhancer.APIKey == "" {
		c.Enhancer.APIKey = os.Getenv(apiKeyEnv(c.Enhancer.Provider))
	}
}

func apiKeyEnv(provider string) string {
	switch provider {
	case "openai":
		return "OPENAI_API_KEY"
	case "groq":
		return "GROQ_API_KEY"
	default:
		return "GEMINI_API_KEY"
	}
}
