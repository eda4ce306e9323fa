package model

import (
	"sync"

	"github.com/handspeak/gesture-server/internal/gesture"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
)

// Options locate the ONNX graph and the runtime library.
type Options struct {
	ModelPath         string
	MetadataPath      string
	SharedLibraryPath string
	IntraOpThreads    int
}

// Session is a gesture.Classifier backed by ONNX Runtime. The graph is loaded
// once; every Infer call allocates its own tensors so calls may overlap.
type Session struct {
	session  *ort.DynamicAdvancedSession
	Metadata Metadata
	logger   *zap.Logger
}

var (
	envMu   sync.Mutex
	envRefs int
)

func acquireEnvironment(libPath string) error {
	envMu.Lock()
	defer envMu.Unlock()
	if envRefs == 0 {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return errors.Wrap(err, "failed to initialize ONNX environment")
		}
	}
	envRefs++
	return nil
}

func releaseEnvironment() {
	envMu.Lock()
	defer envMu.Unlock()
	envRefs--
	if envRefs == 0 {
		ort.DestroyEnvironment()
	}
}

func Open(opts Options, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("model")

	metadata, err := LoadMetadata(opts.MetadataPath)
	if err != nil {
		return nil, err
	}

	if err := acquireEnvironment(opts.SharedLibraryPath); err != nil {
		return nil, err
	}

	var sessionOpts *ort.SessionOptions
	if opts.IntraOpThreads > 0 {
		sessionOpts, err = ort.NewSessionOptions()
		if err != nil {
			releaseEnvironment()
			return nil, errors.Wrap(err, "failed to create session options")
		}
		defer sessionOpts.Destroy()
		if err := sessionOpts.SetIntraOpNumThreads(opts.IntraOpThreads); err != nil {
			releaseEnvironment()
			return nil, errors.Wrap(err, "failed to set intra-op threads")
		}
	}

	session, err := ort.NewDynamicAdvancedSession(opts.ModelPath,
		[]string{metadata.InputName}, []string{metadata.OutputName}, sessionOpts)
	if err != nil {
		releaseEnvironment()
		return nil, errors.Wrap(err, "failed to create ONNX session")
	}

	logger.Info("model loaded",
		zap.String("path", opts.ModelPath),
		zap.Int64s("input_shape", metadata.InputShape),
		zap.Int64s("output_shape", metadata.OutputShape))

	return &Session{
		session:  session,
		Metadata: metadata,
		logger:   logger,
	}, nil
}

func (s *Session) OutputSize() int { return int(s.Metadata.ClassCount()) }

func (s *Session) InputShape() []int64 {
	out := make([]int64, len(s.Metadata.InputShape))
	copy(out, s.Metadata.InputShape)
	return out
}

// Classes returns the class names recorded in the metadata, if any.
func (s *Session) Classes() []string { return s.Metadata.Classes }

func (s *Session) Infer(t gesture.FeatureTensor) ([]float32, error) {
	inputTensor, err := ort.NewTensor(ort.NewShape(s.Metadata.InputShape...), t.Flatten())
	if err != nil {
		return nil, errors.Wrap(err, "failed to create input tensor")
	}
	defer inputTensor.Destroy()

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(s.Metadata.OutputShape...))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create output tensor")
	}
	defer outputTensor.Destroy()

	err = s.session.Run([]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor})
	if err != nil {
		return nil, errors.Wrap(err, "inference failed")
	}

	outputData := outputTensor.GetData()
	probs := make([]float32, len(outputData))
	copy(probs, outputData)
	return probs, nil
}

func (s *Session) Close() {
	if s.session != nil {
		s.session.Destroy()
		s.session = nil
		releaseEnvironment()
	}
}

// CheckClasses reports a ConfigurationError when the metadata lists class
// names that differ from the configured label table.
func CheckClasses(meta Metadata, labels gesture.LabelTable) error {
	if len(meta.Classes) == 0 {
		return nil
	}
	names := labels.Names()
	if len(names) != len(meta.Classes) {
		return &gesture.ConfigurationError{Field: "schema.labels",
			Reason: "label table and model metadata classes differ in length"}
	}
	for i := range names {
		if names[i] != meta.Classes[i] {
			return &gesture.ConfigurationError{Field: "schema.labels",
				Reason: "label " + names[i] + " does not match model class " + meta.Classes[i]}
		}
	}
	return nil
}
