package config

import (
	"strings"

	"github.com/handspeak/gesture-server/internal/enhance"
	"github.com/handspeak/gesture-server/internal/gesture"
	"github.com/pkg/errors"
)

// Validate returns the first problem found. Schema problems are
// gesture.ConfigurationErrors.
func (c *Config) Validate() error {
	if _, err := c.FrameSchema(); err != nil {
		return err
	}
	if _, err := c.LabelTable(); err != nil {
		return err
	}

	if c.Server.Addr == "" {
		return errors.Errorf("invalid server.addr: empty")
	}
	if c.Server.ReadTimeout <= 0 {
		return errors.Errorf("invalid server.read_timeout: %v", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return errors.Errorf("invalid server.write_timeout: %v", c.Server.WriteTimeout)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.Errorf("invalid server.shutdown_timeout: %v", c.Server.ShutdownTimeout)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return errors.Errorf("invalid server.max_body_bytes: %d", c.Server.MaxBodyBytes)
	}

	if c.Model.Path == "" {
		return &gesture.ConfigurationError{Field: "model.path", Reason: "empty"}
	}
	if c.Model.MetadataPath == "" {
		return &gesture.ConfigurationError{Field: "model.metadata_path", Reason: "empty"}
	}
	if c.Model.IntraOpThreads < 0 {
		return errors.Errorf("invalid model.intra_op_threads: %d", c.Model.IntraOpThreads)
	}

	return c.Enhancer.Validate()
}

// Validate checks the enhancer section on its own so a reload can be judged
// without the rest of the file.
func (e EnhancerConfig) Validate() error {
	if !e.Enabled {
		return nil
	}
	validProviders := map[string]bool{"gemini": true, "openai": true, "groq": true}
	if !validProviders[e.Provider] {
		return errors.Errorf("invalid enhancer.provider: %s (must be gemini, openai or groq)", e.Provider)
	}
	if e.Timeout <= 0 {
		return errors.Errorf("invalid enhancer.timeout: %v", e.Timeout)
	}
	if e.MaxRetries < 1 {
		return errors.Errorf("invalid enhancer.max_retries: %d (must be at least 1)", e.MaxRetries)
	}
	if e.RetryBackoff < 0 {
		return errors.Errorf("invalid enhancer.retry_backoff: %v", e.RetryBackoff)
	}
	if e.CacheSize < 0 {
		return errors.Errorf("invalid enhancer.cache_size: %d", e.CacheSize)
	}
	if e.DefaultTone != "" {
		if _, ok := enhance.LookupTone(e.DefaultTone); !ok {
			return errors.Errorf("invalid enhancer.default_tone: %s (must be one of %s)",
				e.DefaultTone, strings.Join(enhance.ToneNames(), ", "))
		}
	}
	return nil
}

// FrameSchema builds the process-wide schema.
func (c *Config) FrameSchema() (gesture.FrameSchema, error) {
	return gesture.NewFrameSchema(c.Schema.SequenceLength, c.Schema.FeaturesPerFrame)
}

// LabelTable builds the process-wide label table.
func (c *Config) LabelTable() (gesture.LabelTable, error) {
	return gesture.NewLabelTable(c.Schema.Labels)
}
