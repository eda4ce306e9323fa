package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/handspeak/gesture-server/internal/enhance"
	"github.com/handspeak/gesture-server/internal/gesture"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClassifier struct {
	calls  int32
	output []float32
	err    error
}

func (s *stubClassifier) Infer(gesture.FeatureTensor) ([]float32, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.err != nil {
		return nil, s.err
	}
	return s.output, nil
}

func (s *stubClassifier) OutputSize() int { return len(s.output) }

type stubAdapter struct {
	reply string
	err   error
}

func (s stubAdapter) Complete(ctx context.Context, _, _ string) (string, error) {
	return s.reply, s.err
}

func newTestHandler(t *testing.T, c gesture.Classifier, e *enhance.Enhancer) *Handler {
	t.Helper()
	schema, err := gesture.NewFrameSchema(120, 9)
	require.NoError(t, err)
	labels, err := gesture.NewLabelTable(gesture.DefaultLabels)
	require.NoError(t, err)
	svc, err := gesture.NewService(schema, labels, c, nil)
	require.NoError(t, err)
	return NewHandler(svc, e, 1<<20, nil)
}

func newTestEnhancer(t *testing.T, a enhance.Adapter) *enhance.Enhancer {
	t.Helper()
	e, err := enhance.New(a, enhance.Options{MaxRetries: 1}, nil)
	require.NoError(t, err)
	return e
}

func post(t *testing.T, fn http.HandlerFunc, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	fn(rec, req)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func sensorBody(n int) string {
	values := make([]float32, n)
	b, _ := json.Marshal(map[string]interface{}{"sensor_data": values})
	return string(b)
}

func TestPredict(t *testing.T) {
	c := &stubClassifier{output: []float32{0.1, 0.1, 0.1, 0.1, 0.1, 0.5}}
	h := newTestHandler(t, c, nil)

	rec, out := post(t, h.Predict, sensorBody(1080))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "name", out["prediction"])
	assert.InDelta(t, 0.5, out["confidence"], 1e-6)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.EqualValues(t, 1, atomic.LoadInt32(&c.calls))
}

func TestPredictShapeMismatch(t *testing.T) {
	c := &stubClassifier{output: make([]float32, 6)}
	h := newTestHandler(t, c, nil)

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "short", body: sensorBody(1000), want: "Expected 1080 values, got 1000"},
		{name: "missing field", body: `{}`, want: "Expected 1080 values, got 0"},
		{name: "null field", body: `{"sensor_data": null}`, want: "Expected 1080 values, got 0"},
		{name: "twelve feature client", body: sensorBody(1440), want: "Expected 1080 values, got 1440"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, out := post(t, h.Predict, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.want, out["error"])
			assert.Equal(t, gesture.KindShapeMismatch, out["kind"])
			assert.Nil(t, out["prediction"])
		})
	}
	assert.EqualValues(t, 0, atomic.LoadInt32(&c.calls))
}

func TestPredictInvalidRequest(t *testing.T) {
	c := &stubClassifier{output: make([]float32, 6)}
	h := newTestHandler(t, c, nil)

	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `sensor_data=1,2,3`},
		{name: "strings", body: `{"sensor_data": ["a", "b"]}`},
		{name: "null element", body: `{"sensor_data": [1, null, 3]}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, out := post(t, h.Predict, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, kindInvalidRequest, out["kind"])
		})
	}
	assert.EqualValues(t, 0, atomic.LoadInt32(&c.calls))
}

func TestPredictBodyTooLarge(t *testing.T) {
	c := &stubClassifier{output: make([]float32, 6)}
	h := newTestHandler(t, c, nil)
	h.maxBody = 64

	rec, _ := post(t, h.Predict, sensorBody(1080))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestPredictInferenceFailureThenRecovers(t *testing.T) {
	c := &stubClassifier{output: []float32{0, 0, 1, 0, 0, 0}, err: errors.New("onnxruntime: allocation failed")}
	h := newTestHandler(t, c, nil)

	rec, out := post(t, h.Predict, sensorBody(1080))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, gesture.KindInferenceFailure, out["kind"])
	assert.Nil(t, out["prediction"])

	c.err = nil
	rec, out = post(t, h.Predict, sensorBody(1080))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no gesture", out["prediction"])
}

func TestSchemaAndHealth(t *testing.T) {
	h := newTestHandler(t, &stubClassifier{output: make([]float32, 6)}, nil)

	rec := httptest.NewRecorder()
	h.Schema(rec, httptest.NewRequest(http.MethodGet, "/schema", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var schema SchemaResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &schema))
	assert.Equal(t, SchemaResponse{
		SequenceLength:   120,
		FeaturesPerFrame: 9,
		ExpectedLength:   1080,
		Labels:           gesture.DefaultLabels,
	}, schema)

	rec = httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestEnhanceText(t *testing.T) {
	e := newTestEnhancer(t, stubAdapter{reply: "What is your name?"})
	h := newTestHandler(t, &stubClassifier{output: make([]float32, 6)}, e)

	rec, out := post(t, h.EnhanceText, `{"text": "your name what", "tone": "professional"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "your name what", out["original"])
	assert.Equal(t, "What is your name?", out["enhanced"])
	assert.Equal(t, "PROFESSIONAL", out["tone"])
}

func TestEnhanceTextErrors(t *testing.T) {
	failing := newTestEnhancer(t, stubAdapter{err: errors.New("API error 500")})

	tests := []struct {
		name     string
		enhancer *enhance.Enhancer
		body     string
		code     int
		errText  string
	}{
		{name: "empty text", enhancer: failing, body: `{"text": "   "}`, code: http.StatusBadRequest, errText: "No text provided"},
		{name: "bad json", enhancer: failing, body: `{"text":`, code: http.StatusBadRequest},
		{name: "provider failure", enhancer: failing, body: `{"text": "hello"}`, code: http.StatusBadRequest, errText: "API error 500"},
		{name: "not configured", body: `{"text": "hello"}`, code: http.StatusServiceUnavailable},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandler(t, &stubClassifier{output: make([]float32, 6)}, tc.enhancer)
			rec, out := post(t, h.EnhanceText, tc.body)
			assert.Equal(t, tc.code, rec.Code)
			assert.Equal(t, false, out["success"])
			if tc.errText != "" {
				assert.Contains(t, out["error"], tc.errText)
			}
		})
	}
}

func TestEnhanceFailureDoesNotAffectPredict(t *testing.T) {
	c := &stubClassifier{output: []float32{1, 0, 0, 0, 0, 0}}
	h := newTestHandler(t, c, newTestEnhancer(t, stubAdapter{err: errors.New("timeout")}))

	rec, _ := post(t, h.EnhanceText, `{"text": "hello"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, out := post(t, h.Predict, sensorBody(1080))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", out["prediction"])
}

func TestCorrectGrammar(t *testing.T) {
	tests := []struct {
		name     string
		enhancer *enhance.Enhancer
		want     string
	}{
		{name: "not configured", want: "hello thank you"},
		{name: "provider ok", want: "Hello, thank you."},
		{name: "provider down", want: "hello thank you"},
	}
	tests[1].enhancer = newTestEnhancer(t, stubAdapter{reply: "Hello, thank you."})
	tests[2].enhancer = newTestEnhancer(t, stubAdapter{err: errors.New("unreachable")})

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandler(t, &stubClassifier{output: make([]float32, 6)}, tc.enhancer)
			rec, out := post(t, h.CorrectGrammar, `{"text": "hello thank you"}`)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "hello thank you", out["original_text"])
			assert.Equal(t, tc.want, out["corrected_text"])
		})
	}

	h := newTestHandler(t, &stubClassifier{output: make([]float32, 6)}, nil)
	rec, _ := post(t, h.CorrectGrammar, `{"text": ""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetEnhancer(t *testing.T) {
	h := newTestHandler(t, &stubClassifier{output: make([]float32, 6)}, nil)
	e := newTestEnhancer(t, stubAdapter{reply: "Hi!"})

	assert.Nil(t, h.SetEnhancer(e))
	rec, out := post(t, h.EnhanceText, `{"text": "hello"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Hi!", out["enhanced"])

	assert.Equal(t, e, h.SetEnhancer(nil))
}

func TestWithEnhancerFollowsReplacement(t *testing.T) {
	old := newTestEnhancer(t, stubAdapter{reply: "old"})
	next := newTestEnhancer(t, stubAdapter{reply: "new"})
	h := newTestHandler(t, &stubClassifier{output: make([]float32, 6)}, old)

	var used []*enhance.Enhancer
	err := h.withEnhancer(func(e *enhance.Enhancer) error {
		used = append(used, e)
		if e == old {
			h.SetEnhancer(next)
			return enhance.ErrClosed
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []*enhance.Enhancer{old, next}, used)
}

func TestClosedEnhancer(t *testing.T) {
	e := newTestEnhancer(t, stubAdapter{reply: "Hi!"})
	require.NoError(t, e.Close())
	h := newTestHandler(t, &stubClassifier{output: make([]float32, 6)}, e)

	rec, out := post(t, h.EnhanceText, `{"text": "hello"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "hello", out["original"])

	rec, out = post(t, h.CorrectGrammar, `{"text": "hello thank you"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello thank you", out["corrected_text"])
}
