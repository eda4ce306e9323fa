package gesture

import "fmt"

// FeatureTensor is a RawSample partitioned row-major into frames. It owns its
// data and is never mutated after Reshape returns it.
type FeatureTensor struct {
	frames   int
	features int
	data     []float32
}

// Reshape partitions raw into schema.SequenceLength() frames. raw must already
// have passed schema.Validate; anything else is a programming error and panics.
func Reshape(raw []float32, schema FrameSchema) FeatureTensor {
	if err := schema.Validate(raw); err != nil {
		panic(fmt.Sprintf("gesture: reshape of unvalidated sample: %v", err))
	}
	data := make([]float32, len(raw))
	copy(data, raw)
	return FeatureTensor{
		frames:   schema.SequenceLength(),
		features: schema.FeaturesPerFrame(),
		data:     data,
	}
}

func (t FeatureTensor) Frames() int { return t.frames }
func (t FeatureTensor) FeaturesPerFrame() int { return t.features }
func (t FeatureTensor) Len() int { return len(t.data) }

// Shape is the batched model input shape: [1, frames, features].
func (t FeatureTensor) Shape() []int64 {
	return []int64{1, int64(t.frames), int64(t.features)}
}

// Frame returns a copy of frame i.
func (t FeatureTensor) Frame(i int) []float32 {
	start := i * t.features
	out := make([]float32, t.features)
	copy(out, t.data[start:start+t.features])
	return out
}

// At returns the value at position pos of frame i.
func (t FeatureTensor) At(i, pos int) float32 {
	return t.data[i*t.features+pos]
}

// Flatten returns a copy of the values in their original order.
func (t FeatureTensor) Flatten() []float32 {
	out := make([]float32, len(t.data))
	copy(out, t.data)
	return out
}
