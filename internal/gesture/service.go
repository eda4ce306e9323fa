package gesture

import (
	"math"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Prediction is the outcome of a completed classification.
type Prediction struct {
	Label      string
	Index      int
	Confidence float32
}

// Service runs one request through validate, reshape, infer and resolve. It
// holds only read-only state and is safe for concurrent use.
type Service struct {
	schema     FrameSchema
	labels     LabelTable
	classifier Classifier
	logger     *zap.Logger
}

// NewService checks that schema, labels and classifier agree with each other.
// Any disagreement is a ConfigurationError and no service is returned.
func NewService(schema FrameSchema, labels LabelTable, classifier Classifier, logger *zap.Logger) (*Service, error) {
	if schema.ExpectedLength() == 0 {
		return nil, configErrorf("schema", "schema is not initialised")
	}
	if labels.Len() == 0 {
		return nil, configErrorf("schema.labels", "label table is empty")
	}
	if classifier == nil {
		return nil, configErrorf("model", "no classifier")
	}
	if n := classifier.OutputSize(); n != labels.Len() {
		return nil, configErrorf("schema.labels", "%d labels but classifier outputs %d classes", labels.Len(), n)
	}
	if shaper, ok := classifier.(InputShaper); ok {
		if err := checkInputShape(shaper.InputShape(), schema); err != nil {
			return nil, err
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		schema:     schema,
		labels:     labels,
		classifier: classifier,
		logger:     logger.Named("gesture"),
	}, nil
}

func checkInputShape(shape []int64, schema FrameSchema) error {
	if len(shape) < 2 {
		return configErrorf("model.input_shape", "need at least 2 dims, got %v", shape)
	}
	batch := int64(1)
	for _, d := range shape[:len(shape)-2] {
		batch *= d
	}
	seq, feat := shape[len(shape)-2], shape[len(shape)-1]
	if batch != 1 || seq != int64(schema.SequenceLength()) || feat != int64(schema.FeaturesPerFrame()) {
		return configErrorf("model.input_shape", "model expects %v, schema is [1 %d %d]",
			shape, schema.SequenceLength(), schema.FeaturesPerFrame())
	}
	return nil
}

func (s *Service) Schema() FrameSchema { return s.schema }
func (s *Service) Labels() LabelTable { return s.labels }

// Classify returns the label for raw, or a *ShapeError when raw has the wrong
// length (the classifier is not called), or an *InferenceError when the
// classifier fails.
func (s *Service) Classify(raw []float32) (Prediction, error) {
	if err := s.schema.Validate(raw); err != nil {
		s.logger.Debug("rejected sample", zap.Error(err))
		return Prediction{}, err
	}

	tensor := Reshape(raw, s.schema)

	probs, err := s.infer(tensor)
	if err != nil {
		s.logger.Warn("inference failed", zap.Error(err))
		return Prediction{}, &InferenceError{Err: err}
	}

	return ResolvePrediction(probs, s.labels), nil
}

// infer calls the classifier and checks its output. A panic inside the
// classifier is returned as an error.
func (s *Service) infer(tensor FeatureTensor) (probs []float32, err error) {
	defer func() {
		if r := recover(); r != nil {
			probs = nil
			err = errors.Errorf("classifier panic: %v", r)
		}
	}()

	probs, err = s.classifier.Infer(tensor)
	if err != nil {
		return nil, err
	}
	if len(probs) != s.labels.Len() {
		return nil, errors.Errorf("classifier returned %d values, want %d", len(probs), s.labels.Len())
	}
	for i, p := range probs {
		if math.IsNaN(float64(p)) || math.IsInf(float64(p), 0) {
			return nil, errors.Errorf("classifier returned non-finite value %v at class %d", p, i)
		}
	}
	return probs, nil
}
