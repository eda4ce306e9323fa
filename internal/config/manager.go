package config

import (
	"context"
	"path/filepath"
	"reflect"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Manager owns the loaded configuration and reloads it when the file changes.
// Subscribers only receive configurations that validated; schema, model and
// server sections keep their startup values.
type Manager struct {
	mu          sync.RWMutex
	path        string
	config      *Config
	subscribers []func(*Config)
	watcher     *fsnotify.Watcher
	wg          sync.WaitGroup
	logger      *zap.Logger
}

func NewManager(path string, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("config")

	config, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger.Info("configuration loaded", zap.String("path", path))
	return &Manager{
		path:   path,
		config: config,
		logger: logger,
	}, nil
}

func (m *Manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	configCopy := *m.config
	return &configCopy
}

// Subscribe registers fn to run after every successful reload.
func (m *Manager) Subscribe(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, fn)
}

func (m *Manager) StartWatching(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create config watcher")
	}

	// Watch the directory so editors that replace the file are still seen.
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		watcher.Close()
		return errors.Wrapf(err, "failed to watch %s", m.path)
	}
	m.watcher = watcher

	m.wg.Add(1)
	go m.watchLoop(ctx)

	m.logger.Info("watching for changes", zap.String("path", m.path))
	return nil
}

func (m *Manager) Stop() {
	if m.watcher != nil {
		m.watcher.Close()
	}
	m.wg.Wait()
}

func (m *Manager) watchLoop(ctx context.Context) {
	defer m.wg.Done()
	configFileName := filepath.Base(m.path)

	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != configFileName {
				continue
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				m.logger.Info("file change detected", zap.String("file", event.Name))
				m.Reload()
			}

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn("watcher error", zap.Error(err))

		case <-ctx.Done():
			return
		}
	}
}

// Reload re-reads the file. Only the enhancer section and the log level are
// taken from it; invalid files are ignored.
func (m *Manager) Reload() {
	loaded, err := Load(m.path)
	if err != nil {
		m.logger.Warn("failed to reload config", zap.Error(err))
		return
	}
	if err := loaded.Validate(); err != nil {
		m.logger.Warn("invalid config after reload", zap.Error(err))
		return
	}

	m.mu.Lock()
	current := m.config
	for _, section := range restartOnly(current, loaded) {
		m.logger.Warn("change ignored until restart", zap.String("section", section))
	}
	next := *current
	next.Enhancer = loaded.Enhancer
	next.Log.Level = loaded.Log.Level
	m.config = &next
	subscribers := make([]func(*Config), len(m.subscribers))
	copy(subscribers, m.subscribers)
	m.mu.Unlock()

	m.logger.Info("configuration reloaded")
	for _, fn := range subscribers {
		cfgCopy := next
		fn(&cfgCopy)
	}
}

func restartOnly(current, loaded *Config) []string {
	var changed []string
	if !reflect.DeepEqual(current.Schema, loaded.Schema) {
		changed = append(changed, "schema")
	}
	if current.Model != loaded.Model {
		changed = append(changed, "model")
	}
	if !reflect.DeepEqual(current.Server, loaded.Server) {
		changed = append(changed, "server")
	}
	if current.Log.Format != loaded.Log.Format {
		changed = append(changed, "log.format")
	}
	return changed
}
