package gesture

import "strings"

// DefaultLabels is the label table of the shipped six-class model.
var DefaultLabels = []string{"hello", "thank you", "no gesture", "what", "your", "name"}

// LabelTable maps classifier output index i to a gesture name.
type LabelTable struct {
	names []string
}

func NewLabelTable(names []string) (LabelTable, error) {
	if len(names) == 0 {
		return LabelTable{}, configErrorf("schema.labels", "label table is empty")
	}
	seen := make(map[string]int, len(names))
	for i, name := range names {
		if strings.TrimSpace(name) == "" {
			return LabelTable{}, configErrorf("schema.labels", "label %d is blank", i)
		}
		if j, ok := seen[name]; ok {
			return LabelTable{}, configErrorf("schema.labels", "label %q repeated at %d and %d", name, j, i)
		}
		seen[name] = i
	}
	cp := make([]string, len(names))
	copy(cp, names)
	return LabelTable{names: cp}, nil
}

func (l LabelTable) Len() int { return len(l.names) }
func (l LabelTable) Name(i int) string { return l.names[i] }

// Names returns a copy of the table in index order.
func (l LabelTable) Names() []string {
	out := make([]string, len(l.names))
	copy(out, l.names)
	return out
}

// Argmax returns the index of the largest value. Ties go to the smallest index.
// probs must be non-empty.
func Argmax(probs []float32) int {
	best := 0
	for i := 1; i < len(probs); i++ {
		if probs[i] > probs[best] {
			best = i
		}
	}
	return best
}

// Resolve returns the label of the highest-probability class.
// len(probs) must equal table.Len().
func Resolve(probs []float32, table LabelTable) string {
	return ResolvePrediction(probs, table).Label
}

// ResolvePrediction is Resolve with the winning index and its probability.
func ResolvePrediction(probs []float32, table LabelTable) Prediction {
	idx := Argmax(probs)
	return Prediction{
		Label:      table.Name(idx),
		Index:      idx,
		Confidence: probs[idx],
	}
}
