package model

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// Metadata is the JSON sidecar exported next to the ONNX graph.
type Metadata struct {
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes,omitempty"`
	InputName   string   `json:"input_name,omitempty"`
	OutputName  string   `json:"output_name,omitempty"`
}

const (
	defaultInputName  = "input"
	defaultOutputName = "output"
)

func LoadMetadata(path string) (Metadata, error) {
	metaFile, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, errors.Wrap(err, "failed to read metadata")
	}

	var metadata Metadata
	if err := json.Unmarshal(metaFile, &metadata); err != nil {
		return Metadata{}, errors.Wrap(err, "failed to parse metadata")
	}
	if err := metadata.validate(); err != nil {
		return Metadata{}, errors.Wrapf(err, "invalid metadata %s", path)
	}
	if metadata.InputName == "" {
		metadata.InputName = defaultInputName
	}
	if metadata.OutputName == "" {
		metadata.OutputName = defaultOutputName
	}
	return metadata, nil
}

func (m Metadata) validate() error {
	if len(m.InputShape) == 0 {
		return errors.New("input_shape is empty")
	}
	if len(m.OutputShape) == 0 {
		return errors.New("output_shape is empty")
	}
	for _, dims := range [][]int64{m.InputShape, m.OutputShape} {
		for _, d := range dims {
			if d <= 0 {
				return errors.Errorf("shape %v has non-positive dimension", dims)
			}
		}
	}
	if batch := elements(m.OutputShape[:len(m.OutputShape)-1]); batch != 1 {
		return errors.Errorf("output_shape %v must describe a single batch", m.OutputShape)
	}
	if len(m.Classes) > 0 && int64(len(m.Classes)) != m.ClassCount() {
		return errors.Errorf("%d classes listed but output_shape %v has %d", len(m.Classes), m.OutputShape, m.ClassCount())
	}
	return nil
}

// ClassCount is the last output dimension.
func (m Metadata) ClassCount() int64 {
	return m.OutputShape[len(m.OutputShape)-1]
}

func elements(shape []int64) int64 {
	n := int64(1)
	for _, d := range shape {
		n *= d
	}
	return n
}
