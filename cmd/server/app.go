package main

import (
	"context"

	"github.com/handspeak/gesture-server/internal/config"
	"github.com/handspeak/gesture-server/internal/enhance"
	"github.com/handspeak/gesture-server/internal/gesture"
	"github.com/handspeak/gesture-server/internal/handlers"
	"github.com/handspeak/gesture-server/internal/model"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// classifierWithClasses is what the ONNX session offers beyond gesture.Classifier.
type classifierWithClasses interface {
	gesture.Classifier
	Classes() []string
}

// newService runs every startup check between config and classifier. A
// ConfigurationError here stops the process before it accepts requests.
func newService(cfg *config.Config, classifier gesture.Classifier, logger *zap.Logger) (*gesture.Service, error) {
	schema, err := cfg.FrameSchema()
	if err != nil {
		return nil, err
	}
	labels, err := cfg.LabelTable()
	if err != nil {
		return nil, err
	}
	if c, ok := classifier.(classifierWithClasses); ok {
		if err := model.CheckClasses(model.Metadata{Classes: c.Classes()}, labels); err != nil {
			return nil, err
		}
	}
	return gesture.NewService(schema, labels, classifier, logger)
}

// openClassifier loads the ONNX model and builds the service on top of it.
func openClassifier(cfg *config.Config, logger *zap.Logger) (*gesture.Service, func(), error) {
	session, err := model.Open(model.Options{
		ModelPath:         cfg.Model.Path,
		MetadataPath:      cfg.Model.MetadataPath,
		SharedLibraryPath: cfg.Model.SharedLibraryPath,
		IntraOpThreads:    cfg.Model.IntraOpThreads,
	}, logger)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to load model")
	}

	svc, err := newService(cfg, session, logger)
	if err != nil {
		session.Close()
		return nil, nil, err
	}
	return svc, session.Close, nil
}

// newEnhancer returns nil when enhancement is disabled.
func newEnhancer(ctx context.Context, cfg config.EnhancerConfig, logger *zap.Logger) (*enhance.Enhancer, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	adapter, err := enhance.NewAdapter(ctx, enhance.AdapterConfig{
		Provider: cfg.Provider,
		APIKey:   cfg.APIKey,
		Model:    cfg.Model,
	})
	if err != nil {
		return nil, err
	}
	return enhance.New(adapter, enhance.Options{
		Timeout:      cfg.Timeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		CacheSize:    cfg.CacheSize,
		DefaultTone:  enhance.ParseTone(cfg.DefaultTone, enhance.ToneFriendly),
	}, logger)
}

// replaceEnhancer installs next and closes the previous enhancer once its
// running calls return. The returned channel closes when that is done.
func replaceEnhancer(h *handlers.Handler, next *enhance.Enhancer, logger *zap.Logger) <-chan struct{} {
	if logger == nil {
		logger = zap.NewNop()
	}
	done := make(chan struct{})
	prev := h.SetEnhancer(next)
	if prev == nil {
		close(done)
		return done
	}
	go func() {
		defer close(done)
		if err := prev.Close(); err != nil {
			logger.Warn("failed to close previous enhancer", zap.Error(err))
		}
	}()
	return done
}
