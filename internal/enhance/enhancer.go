package enhance

import (
	"context"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	ErrEmptyText = errors.New("input is empty")
	// ErrClosed is returned by calls made after Close has started.
	ErrClosed = errors.New("enhancer is closed")
)

type mode int

const (
	modeEnhance mode = iota
	modeGrammar
)

// Options tune retries, caching and the fallback tone.
type Options struct {
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	CacheSize    int
	DefaultTone  Tone
}

// Result is a successful enhancement.
type Result struct {
	Original string
	Enhanced string
	Tone     Tone
}

type cacheKey struct {
	mode mode
	tone Tone
	text string
}

// Enhancer polishes captions through an Adapter. It never touches
// classification state; failures stay on this call path.
type Enhancer struct {
	adapter Adapter
	opts    Options
	cache   *lru.Cache[cacheKey, string]
	logger  *zap.Logger
	sleep   func(ctx context.Context, d time.Duration) error

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

func New(adapter Adapter, opts Options, logger *zap.Logger) (*Enhancer, error) {
	if adapter == nil {
		return nil, errors.New("enhancer: nil adapter")
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	if opts.DefaultTone == "" {
		opts.DefaultTone = ToneFriendly
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Enhancer{
		adapter: adapter,
		opts:    opts,
		logger:  logger.Named("enhance"),
		sleep:   sleepContext,
	}
	if opts.CacheSize > 0 {
		cache, err := lru.New[cacheKey, string](opts.CacheSize)
		if err != nil {
			return nil, errors.Wrap(err, "enhancer: create cache")
		}
		e.cache = cache
	}
	return e, nil
}

// Enhance corrects text and rewrites it in the named tone. Unknown or empty
// tone names fall back to the default tone.
func (e *Enhancer) Enhance(ctx context.Context, text, toneName string) (Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, ErrEmptyText
	}
	tone := ParseTone(toneName, e.opts.DefaultTone)

	if err := e.acquire(); err != nil {
		return Result{}, err
	}
	defer e.inflight.Done()

	out, err := e.run(ctx, cacheKey{mode: modeEnhance, tone: tone, text: text}, BuildUserPrompt(text, tone))
	if err != nil {
		return Result{}, errors.Wrap(err, "enhancement failed")
	}
	return Result{Original: text, Enhanced: out, Tone: tone}, nil
}

// CorrectGrammar returns the corrected text. On failure it returns the
// original text together with the error so callers can fall back to it.
func (e *Enhancer) CorrectGrammar(ctx context.Context, text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return text, ErrEmptyText
	}
	if err := e.acquire(); err != nil {
		return text, err
	}
	defer e.inflight.Done()

	out, err := e.run(ctx, cacheKey{mode: modeGrammar, text: trimmed}, buildGrammarPrompt(trimmed))
	if err != nil {
		return text, errors.Wrap(err, "grammar correction failed")
	}
	return out, nil
}

func (e *Enhancer) run(ctx context.Context, key cacheKey, userPrompt string) (string, error) {
	if e.cache != nil {
		if out, ok := e.cache.Get(key); ok {
			return out, nil
		}
	}

	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	sys := systemPromptFor(key.mode)
	var lastErr error
	for attempt := 1; attempt <= e.opts.MaxRetries; attempt++ {
		start := time.Now()
		reply, err := e.adapter.Complete(ctx, sys, userPrompt)
		took := time.Since(start)
		out := cleanOutput(reply)
		if err == nil && out == "" {
			err = errors.Wrap(ErrNoChoices, "empty reply")
		}
		if err == nil {
			e.logger.Debug("completed",
				zap.Int("attempt", attempt),
				zap.Duration("took", took),
				zap.String("tone", string(key.tone)))
			if e.cache != nil {
				e.cache.Add(key, out)
			}
			return out, nil
		}

		lastErr = err
		e.logger.Warn("attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", e.opts.MaxRetries),
			zap.Duration("took", took),
			zap.Error(err))

		if attempt == e.opts.MaxRetries {
			break
		}
		if err := e.sleep(ctx, time.Duration(attempt)*e.opts.RetryBackoff); err != nil {
			break
		}
	}
	return "", lastErr
}

func (e *Enhancer) acquire() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	e.inflight.Add(1)
	return nil
}

// Close rejects new calls, waits for calls already running to return, then
// releases the adapter's client. Running calls are bounded by Options.Timeout.
func (e *Enhancer) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.inflight.Wait()
	return closeAdapter(e.adapter)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
