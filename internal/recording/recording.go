package recording

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/handspeak/gesture-server/internal/gesture"
	"github.com/pkg/errors"
)

// Frame is one row of a watch sensor recording. Columns not listed here are
// ignored, which is how the orientation quaternion's w component is dropped.
type Frame struct {
	AccelerationX    float32  `csv:"Acceleration_x"`
	AccelerationY    float32  `csv:"Acceleration_y"`
	AccelerationZ    float32  `csv:"Acceleration_z"`
	GravityX         float32  `csv:"Gravity_x"`
	GravityY         float32  `csv:"Gravity_y"`
	GravityZ         float32  `csv:"Gravity_z"`
	AngularVelocityX float32  `csv:"AngularVelocity_x"`
	AngularVelocityY float32  `csv:"AngularVelocity_y"`
	AngularVelocityZ float32  `csv:"AngularVelocity_z"`
	OrientationX     *float32 `csv:"Orientation_x"`
	OrientationY     *float32 `csv:"Orientation_y"`
	OrientationZ     *float32 `csv:"Orientation_z"`
}

// Features returns the frame's values in model order. Nine features are
// acceleration, gravity and angular velocity; twelve add orientation xyz.
func (f Frame) Features(n int) ([]float32, error) {
	base := []float32{
		f.AccelerationX, f.AccelerationY, f.AccelerationZ,
		f.GravityX, f.GravityY, f.GravityZ,
		f.AngularVelocityX, f.AngularVelocityY, f.AngularVelocityZ,
	}
	switch n {
	case 9:
		return base, nil
	case 12:
		if f.OrientationX == nil || f.OrientationY == nil || f.OrientationZ == nil {
			return nil, errors.New("recording has no orientation columns")
		}
		return append(base, *f.OrientationX, *f.OrientationY, *f.OrientationZ), nil
	default:
		return nil, errors.Errorf("csv recordings carry 9 or 12 features per frame, schema wants %d", n)
	}
}

// ReadCSV decodes a recording.
func ReadCSV(r io.Reader) ([]Frame, error) {
	var frames []Frame
	if err := gocsv.Unmarshal(r, &frames); err != nil {
		return nil, errors.Wrap(err, "failed to parse recording")
	}
	return frames, nil
}

// Sample flattens the first schema.SequenceLength() frames into a RawSample.
// Short recordings are an error; they are never padded.
func Sample(frames []Frame, schema gesture.FrameSchema) ([]float32, error) {
	if len(frames) < schema.SequenceLength() {
		return nil, errors.Errorf("recording has %d frames, need %d", len(frames), schema.SequenceLength())
	}
	raw := make([]float32, 0, schema.ExpectedLength())
	for i, f := range frames[:schema.SequenceLength()] {
		values, err := f.Features(schema.FeaturesPerFrame())
		if err != nil {
			return nil, errors.Wrapf(err, "frame %d", i)
		}
		raw = append(raw, values...)
	}
	return raw, nil
}

type jsonSample struct {
	SensorData []*float32 `json:"sensor_data"`
}

// LoadFile reads a RawSample from a .csv recording or a .json request body.
// JSON samples are returned as-is so the schema can reject bad lengths.
func LoadFile(path string, schema gesture.FrameSchema) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open input")
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		frames, err := ReadCSV(f)
		if err != nil {
			return nil, err
		}
		return Sample(frames, schema)
	case ".json":
		var s jsonSample
		if err := json.NewDecoder(f).Decode(&s); err != nil {
			return nil, errors.Wrap(err, "failed to parse input")
		}
		raw := make([]float32, len(s.SensorData))
		for i, v := range s.SensorData {
			if v == nil {
				return nil, errors.Errorf("sensor_data[%d] is null", i)
			}
			raw[i] = *v
		}
		return raw, nil
	default:
		return nil, errors.Errorf("unsupported input %s (want .csv or .json)", path)
	}
}
