package gesture

// Classifier is the trained model: a shaped tensor in, one probability per
// class out. Implementations must allow concurrent Infer calls.
type Classifier interface {
	Infer(t FeatureTensor) ([]float32, error)
	OutputSize() int
}

// InputShaper is implemented by classifiers that know the input shape they
// were built for, so it can be checked against the schema at startup.
type InputShaper interface {
	InputShape() []int64
}

// ClassifierFunc adapts a plain function to a Classifier with a fixed output size.
type ClassifierFunc struct {
	Classes int
	Fn      func(t FeatureTensor) ([]float32, error)
}

func (c ClassifierFunc) Infer(t FeatureTensor) ([]float32, error) { return c.Fn(t) }
func (c ClassifierFunc) OutputSize() int { return c.Classes }
