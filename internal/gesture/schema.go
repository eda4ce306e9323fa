package gesture

// FrameSchema is the fixed geometry of one classification input.
type FrameSchema struct {
	sequenceLength   int
	featuresPerFrame int
}

// NewFrameSchema returns a schema for sequenceLength frames of featuresPerFrame
// values each. Both dimensions must be positive.
func NewFrameSchema(sequenceLength, featuresPerFrame int) (FrameSchema, error) {
	if sequenceLength <= 0 {
		return FrameSchema{}, configErrorf("schema.sequence_length", "must be > 0, got %d", sequenceLength)
	}
	if featuresPerFrame <= 0 {
		return FrameSchema{}, configErrorf("schema.features_per_frame", "must be > 0, got %d", featuresPerFrame)
	}
	return FrameSchema{sequenceLength: sequenceLength, featuresPerFrame: featuresPerFrame}, nil
}

func (s FrameSchema) SequenceLength() int { return s.sequenceLength }
func (s FrameSchema) FeaturesPerFrame() int { return s.featuresPerFrame }

// ExpectedLength is the number of values a RawSample must contain.
func (s FrameSchema) ExpectedLength() int {
	return s.sequenceLength * s.featuresPerFrame
}

// Validate checks the element count only. Non-finite values pass.
func (s FrameSchema) Validate(raw []float32) error {
	if len(raw) != s.ExpectedLength() {
		return &ShapeError{Expected: s.ExpectedLength(), Actual: len(raw)}
	}
	return nil
}
