// Package inference - Inference sessions.
package inference

import (
	"image"
	"os"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// SessionConfig describes one model loaded into an inference session.
type SessionConfig struct {
	// ModelPath is the ONNX model file.
	ModelPath string
	// SharedLibPath is the onnxruntime shared library. Empty uses DefaultSharedLibPath.
	SharedLibPath string
	// InputSize is the square input side in pixels.
	InputSize int
	// OutputChannels is the per-anchor channel count of the single output.
	OutputChannels int
	// Threads is the intra-op thread count. Zero lets onnxruntime decide.
	Threads int
}

var (
	environmentOnce sync.Once
	environmentErr  error
)

// DefaultSharedLibPath returns the path to the onnxruntime shared library for
// the current platform.
//
// Returns:
//   - string: The path to the shared library, empty when the platform has none.
func DefaultSharedLibPath() string {
	switch runtime.GOOS {
	case "windows":
		return "./third_party/onnxruntime.dll"
	case "darwin":
		return "./third_party/libonnxruntime.1.23.0.dylib"
	case "linux":
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.so"
		}
		return "./third_party/onnxruntime.so"
	}
	return ""
}

// initEnvironment initializes the process-wide onnxruntime environment once.
func initEnvironment(libPath string) error {
	environmentOnce.Do(func() {
		if libPath == "" {
			libPath = DefaultSharedLibPath()
		}
		if libPath == "" {
			environmentErr = errors.Errorf("no onnxruntime library for %s/%s", runtime.GOOS, runtime.GOARCH)
			return
		}
		if _, err := os.Stat(libPath); err != nil {
			environmentErr = errors.Wrapf(err, "onnxruntime library not found at %s", libPath)
			return
		}
		ort.SetSharedLibraryPath(libPath)
		environmentErr = errors.Wrap(ort.InitializeEnvironment(), "error initializing ORT environment")
	})
	return environmentErr
}

// Session is a Runner backed by an onnxruntime session with preallocated
// input and output tensors.
type Session struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	size    image.Point
}

// NewSession loads a model into onnxruntime.
//
// Arguments:
//   - config: The model and runtime settings.
//
// Returns:
//   - *Session: The session.
//   - error: An error if the runtime or model cannot be loaded.
func NewSession(config SessionConfig) (*Session, error) {
	if config.InputSize <= 0 || config.OutputChannels <= 0 {
		return nil, errors.Errorf("invalid session shape: input %d, channels %d", config.InputSize, config.OutputChannels)
	}
	if err := initEnvironment(config.SharedLibPath); err != nil {
		return nil, err
	}

	side := int64(config.InputSize)
	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, side, side))
	if err != nil {
		return nil, errors.Wrap(err, "error creating input tensor")
	}

	outputShape := ort.NewShape(1, int64(config.OutputChannels), int64(AnchorCount(config.InputSize)))
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, errors.Wrap(err, "error creating output tensor")
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, errors.Wrap(err, "error creating ORT session options")
	}
	defer options.Destroy()

	if err := options.SetIntraOpNumThreads(config.Threads); err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, errors.Wrap(err, "error setting intra-op threads")
	}
	if err := options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended); err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, errors.Wrap(err, "error setting graph optimization level")
	}

	session, err := ort.NewAdvancedSession(
		config.ModelPath,
		[]string{"images"},
		[]string{"output0"},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, errors.Wrapf(err, "error creating ORT session for %s", config.ModelPath)
	}

	return &Session{
		session: session,
		input:   inputTensor,
		output:  outputTensor,
		size:    image.Pt(config.InputSize, config.InputSize),
	}, nil
}

// InputSize returns the model input size.
func (s *Session) InputSize() image.Point {
	return s.size
}

// Run copies input into the session, runs it and returns a copy of the output.
// Calls are serialized because the tensors are shared.
func (s *Session) Run(input []float32) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil, ErrNotInitialized
	}
	dst := s.input.GetData()
	if len(input) != len(dst) {
		return nil, errors.Errorf("input has %d floats, session expects %d", len(input), len(dst))
	}
	copy(dst, input)

	if err := s.session.Run(); err != nil {
		return nil, errors.Wrap(err, "error running ORT session")
	}

	out := s.output.GetData()
	result := make([]float32, len(out))
	copy(result, out)
	return result, nil
}

// Close releases the resources associated with the Session.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.session != nil {
		err = s.session.Destroy()
		s.session = nil
	}
	if s.input != nil {
		s.input.Destroy()
		s.input = nil
	}
	if s.output != nil {
		s.output.Destroy()
		s.output = nil
	}
	return err
}
