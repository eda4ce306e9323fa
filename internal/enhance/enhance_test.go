package enhance

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdapter struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	calls   int
	prompts []string
	systems []string
	closed  bool
}

func (f *fakeAdapter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	f.systems = append(f.systems, systemPrompt)
	f.prompts = append(f.prompts, userPrompt)
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.replies) {
		return f.replies[i], nil
	}
	return "ok", nil
}

func (f *fakeAdapter) Close() error {
	f.closed = true
	return nil
}

func newTestEnhancer(t *testing.T, a Adapter, opts Options) *Enhancer {
	t.Helper()
	e, err := New(a, opts, nil)
	require.NoError(t, err)
	e.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return e
}

func TestParseTone(t *testing.T) {
	tests := []struct {
		in   string
		want Tone
	}{
		{in: "friendly", want: ToneFriendly},
		{in: "PROFESSIONAL", want: ToneProfessional},
		{in: " Casual ", want: ToneCasual},
		{in: "persuasive", want: TonePersuasive},
		{in: "very professional", want: ToneFriendly},
		{in: "", want: ToneFriendly},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseTone(tc.in, ToneFriendly))
		})
	}
	assert.Equal(t, ToneCasual, ParseTone("unknown", ToneCasual))
}

func TestBuildUserPrompt(t *testing.T) {
	p := BuildUserPrompt("your name what", ToneProfessional)
	assert.Contains(t, p, "formal and professional")
	assert.Contains(t, p, `"your name what"`)
	assert.Contains(t, p, "make it professional")
}

func TestCleanOutput(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "  What is your name?\n", want: "What is your name?"},
		{name: "quoted", in: `"Hello, thank you!"`, want: "Hello, thank you!"},
		{name: "fenced", in: "```text\nHello there.\n```", want: "Hello there."},
		{name: "empty", in: "   ", want: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, cleanOutput(tc.in))
		})
	}
}

func TestEnhance(t *testing.T) {
	a := &fakeAdapter{replies: []string{"  What is your name?  "}}
	e := newTestEnhancer(t, a, Options{MaxRetries: 3})

	res, err := e.Enhance(context.Background(), " your name what ", "casual")
	require.NoError(t, err)
	assert.Equal(t, "your name what", res.Original)
	assert.Equal(t, "What is your name?", res.Enhanced)
	assert.Equal(t, ToneCasual, res.Tone)
	assert.Equal(t, systemPrompt, a.systems[0])
}

func TestEnhanceEmptyText(t *testing.T) {
	a := &fakeAdapter{}
	e := newTestEnhancer(t, a, Options{})

	_, err := e.Enhance(context.Background(), "   ", "friendly")
	assert.True(t, errors.Is(err, ErrEmptyText))
	assert.Equal(t, 0, a.calls)
}

func TestEnhanceRetriesThenSucceeds(t *testing.T) {
	boom := errors.New("503 unavailable")
	a := &fakeAdapter{errs: []error{boom, boom}, replies: []string{"", "", "Hello!"}}
	e := newTestEnhancer(t, a, Options{MaxRetries: 3, RetryBackoff: time.Millisecond})

	var waits []time.Duration
	e.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	res, err := e.Enhance(context.Background(), "hello", "")
	require.NoError(t, err)
	assert.Equal(t, "Hello!", res.Enhanced)
	assert.Equal(t, 3, a.calls)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, waits)
}

func TestEnhanceGivesUpAfterMaxRetries(t *testing.T) {
	boom := errors.New("quota exceeded")
	a := &fakeAdapter{errs: []error{boom, boom, boom, boom}}
	e := newTestEnhancer(t, a, Options{MaxRetries: 3})

	_, err := e.Enhance(context.Background(), "hello", "friendly")
	require.Error(t, err)
	assert.Equal(t, boom, errors.Cause(err))
	assert.Equal(t, 3, a.calls)
}

func TestEnhanceStopsOnCancelledContext(t *testing.T) {
	boom := errors.New("timeout")
	a := &fakeAdapter{errs: []error{boom, boom, boom}}
	e := newTestEnhancer(t, a, Options{MaxRetries: 3})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Enhance(ctx, "hello", "friendly")
	require.Error(t, err)
	assert.Equal(t, 1, a.calls)
}

func TestEnhanceEmptyReplyIsError(t *testing.T) {
	a := &fakeAdapter{replies: []string{"  ", "\n"}}
	e := newTestEnhancer(t, a, Options{MaxRetries: 2})

	_, err := e.Enhance(context.Background(), "hello", "friendly")
	assert.True(t, errors.Is(err, ErrNoChoices))
	assert.Equal(t, 2, a.calls)
}

func TestEnhanceRetriesBlankReply(t *testing.T) {
	a := &fakeAdapter{replies: []string{"   ", "Hello there."}}
	e := newTestEnhancer(t, a, Options{MaxRetries: 3})

	res, err := e.Enhance(context.Background(), "hello", "friendly")
	require.NoError(t, err)
	assert.Equal(t, "Hello there.", res.Enhanced)
	assert.Equal(t, 2, a.calls)
}

func TestEnhanceCache(t *testing.T) {
	a := &fakeAdapter{replies: []string{"Hello!", "Hello there!", "Hi!"}}
	e := newTestEnhancer(t, a, Options{MaxRetries: 1, CacheSize: 8})

	first, err := e.Enhance(context.Background(), "hello", "friendly")
	require.NoError(t, err)
	second, err := e.Enhance(context.Background(), "hello", "FRIENDLY")
	require.NoError(t, err)
	assert.Equal(t, first.Enhanced, second.Enhanced)
	assert.Equal(t, 1, a.calls)

	third, err := e.Enhance(context.Background(), "hello", "casual")
	require.NoError(t, err)
	assert.Equal(t, "Hello there!", third.Enhanced)

	fixed, err := e.CorrectGrammar(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Hi!", fixed)
	assert.Equal(t, 3, a.calls)
}

func TestCorrectGrammarFallsBackToOriginal(t *testing.T) {
	boom := errors.New("unreachable")
	a := &fakeAdapter{errs: []error{boom, boom, boom}}
	e := newTestEnhancer(t, a, Options{MaxRetries: 3})

	out, err := e.CorrectGrammar(context.Background(), "thank you hello")
	assert.Error(t, err)
	assert.Equal(t, "thank you hello", out)
	assert.Equal(t, grammarSystemPrompt, a.systems[0])
}

func TestEnhancerTimeout(t *testing.T) {
	blocking := adapterFunc(func(ctx context.Context, _, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	e, err := New(blocking, Options{Timeout: 20 * time.Millisecond, MaxRetries: 3}, nil)
	require.NoError(t, err)

	start := time.Now()
	_, err = e.Enhance(context.Background(), "hello", "friendly")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestEnhancerClose(t *testing.T) {
	a := &fakeAdapter{}
	e := newTestEnhancer(t, a, Options{})
	require.NoError(t, e.Close())
	assert.True(t, a.closed)
}

type blockingAdapter struct {
	entered chan struct{}
	release chan struct{}

	mu               sync.Mutex
	closed           bool
	closedDuringCall bool
}

func (b *blockingAdapter) Complete(ctx context.Context, _, _ string) (string, error) {
	close(b.entered)
	<-b.release
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closedDuringCall = b.closed
	return "Hello!", nil
}

func (b *blockingAdapter) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *blockingAdapter) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func TestEnhancerCloseWaitsForRunningCalls(t *testing.T) {
	a := &blockingAdapter{entered: make(chan struct{}), release: make(chan struct{})}
	e := newTestEnhancer(t, a, Options{MaxRetries: 1})

	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := e.Enhance(context.Background(), "hello", "friendly")
		done <- outcome{res, err}
	}()
	<-a.entered

	closeDone := make(chan error, 1)
	go func() { closeDone <- e.Close() }()

	require.Eventually(t, func() bool {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.closed
	}, time.Second, time.Millisecond)

	// New calls are refused while the running one drains.
	_, err := e.CorrectGrammar(context.Background(), "hello")
	assert.Equal(t, ErrClosed, err)
	assert.False(t, a.isClosed())

	close(a.release)
	got := <-done
	require.NoError(t, got.err)
	assert.Equal(t, "Hello!", got.res.Enhanced)

	require.NoError(t, <-closeDone)
	assert.True(t, a.isClosed())
	assert.False(t, a.closedDuringCall)
}

func TestEnhanceAfterClose(t *testing.T) {
	a := &fakeAdapter{}
	e := newTestEnhancer(t, a, Options{})
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	_, err := e.Enhance(context.Background(), "hello", "friendly")
	assert.Equal(t, ErrClosed, err)
	out, err := e.CorrectGrammar(context.Background(), "hello")
	assert.Equal(t, ErrClosed, err)
	assert.Equal(t, "hello", out)
	assert.Equal(t, 0, a.calls)
}

func TestNewRequiresAdapter(t *testing.T) {
	_, err := New(nil, Options{}, nil)
	assert.Error(t, err)
}

type adapterFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

func (f adapterFunc) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f(ctx, systemPrompt, userPrompt)
}
