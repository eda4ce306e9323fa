package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/handspeak/gesture-server/internal/enhance"
	"github.com/handspeak/gesture-server/internal/gesture"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Handler struct {
	service  *gesture.Service
	enhancer atomic.Pointer[enhance.Enhancer]
	maxBody  int64
	logger   *zap.Logger
}

// NewHandler serves classification from service. enhancer may be nil, in which
// case the text endpoints report that enhancement is unavailable.
func NewHandler(service *gesture.Service, enhancer *enhance.Enhancer, maxBody int64, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		service: service,
		maxBody: maxBody,
		logger:  logger.Named("handlers"),
	}
	h.enhancer.Store(enhancer)
	return h
}

// SetEnhancer swaps the text enhancer and returns the previous one.
func (h *Handler) SetEnhancer(e *enhance.Enhancer) *enhance.Enhancer {
	return h.enhancer.Swap(e)
}

var errEnhancerUnavailable = errors.New("text enhancement is not configured")

// withEnhancer runs fn on the current enhancer. A reload can close the
// enhancer a request loaded before the call starts; fn is then rerun on its
// replacement.
func (h *Handler) withEnhancer(fn func(*enhance.Enhancer) error) error {
	for attempt := 0; attempt < 3; attempt++ {
		e := h.enhancer.Load()
		if e == nil {
			return errEnhancerUnavailable
		}
		if err := fn(e); !errors.Is(err, enhance.ErrClosed) {
			return err
		}
	}
	return errEnhancerUnavailable
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) error {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
	return json.NewDecoder(r.Body).Decode(v)
}

func decodeStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) Schema(w http.ResponseWriter, r *http.Request) {
	schema := h.service.Schema()
	writeJSON(w, http.StatusOK, SchemaResponse{
		SequenceLength:   schema.SequenceLength(),
		FeaturesPerFrame: schema.FeaturesPerFrame(),
		ExpectedLength:   schema.ExpectedLength(),
		Labels:           h.service.Labels().Names(),
	})
}

func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	var req PredictionRequest
	if err := h.decode(w, r, &req); err != nil {
		writeJSON(w, decodeStatus(err), ErrorResponse{Error: "Invalid JSON: " + err.Error(), Kind: kindInvalidRequest})
		return
	}

	raw := make([]float32, len(req.SensorData))
	for i, v := range req.SensorData {
		if v == nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error: fmt.Sprintf("sensor_data[%d] is null", i),
				Kind:  kindInvalidRequest,
			})
			return
		}
		raw[i] = *v
	}

	pred, err := h.service.Classify(raw)
	if err != nil {
		kind := gesture.KindOf(err)
		switch kind {
		case gesture.KindShapeMismatch:
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: kind})
		default:
			h.logger.Error("prediction error", zap.String("kind", kind), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Prediction failed", Kind: kind})
		}
		return
	}

	writeJSON(w, http.StatusOK, PredictionResponse{
		Prediction: pred.Label,
		Confidence: pred.Confidence,
	})
}

func (h *Handler) EnhanceText(w http.ResponseWriter, r *http.Request) {
	var req EnhanceRequest
	if err := h.decode(w, r, &req); err != nil {
		writeJSON(w, decodeStatus(err), EnhanceResponse{Error: "Invalid JSON: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, EnhanceResponse{Error: "No text provided"})
		return
	}

	var res enhance.Result
	err := h.withEnhancer(func(e *enhance.Enhancer) error {
		var err error
		res, err = e.Enhance(r.Context(), req.Text, req.Tone)
		return err
	})
	if errors.Is(err, errEnhancerUnavailable) {
		writeJSON(w, http.StatusServiceUnavailable, EnhanceResponse{
			Error:    err.Error(),
			Original: req.Text,
		})
		return
	}
	if err != nil {
		h.logger.Warn("enhancement failed", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, EnhanceResponse{
			Error:    err.Error(),
			Original: strings.TrimSpace(req.Text),
		})
		return
	}

	writeJSON(w, http.StatusOK, EnhanceResponse{
		Original: res.Original,
		Enhanced: res.Enhanced,
		Tone:     string(res.Tone),
		Success:  true,
	})
}

// CorrectGrammar always answers with a usable sentence: on any failure the
// original text is returned as the correction.
func (h *Handler) CorrectGrammar(w http.ResponseWriter, r *http.Request) {
	var req GrammarRequest
	if err := h.decode(w, r, &req); err != nil {
		writeJSON(w, decodeStatus(err), ErrorResponse{Error: "Invalid JSON: " + err.Error(), Kind: kindInvalidRequest})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "No text provided", Kind: kindInvalidRequest})
		return
	}

	corrected := req.Text
	err := h.withEnhancer(func(e *enhance.Enhancer) error {
		out, err := e.CorrectGrammar(r.Context(), req.Text)
		corrected = out
		return err
	})
	if err != nil && !errors.Is(err, errEnhancerUnavailable) {
		h.logger.Warn("grammar correction failed, returning original text", zap.Error(err))
	}

	writeJSON(w, http.StatusOK, GrammarResponse{
		OriginalText:  req.Text,
		CorrectedText: corrected,
	})
}
