package detectors

import (
	"github.com/nvr-ai/go-humansort/config"
	"github.com/nvr-ai/go-humansort/inference"
	"github.com/nvr-ai/go-humansort/models"
	"github.com/nvr-ai/go-humansort/models/postprocess"
	"github.com/pkg/errors"
)

// Set is the two detectors and two pose estimators every image is run through.
type Set struct {
	DetectorA inference.Detector
	DetectorB inference.Detector
	PoseA     inference.PoseEstimator
	PoseB     inference.PoseEstimator
}

// Close releases every model in the set and returns the first error.
func (s *Set) Close() error {
	var first error
	closers := []interface{ Close() error }{s.DetectorA, s.DetectorB, s.PoseA, s.PoseB}
	for _, c := range closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// OpenRunner creates the runner for one model on its configured backend.
//
// Arguments:
//   - model: The model entry.
//   - sharedLibPath: The onnxruntime library, used by the onnxruntime backend only.
//   - channels: The per-anchor output channel count of the model.
//
// Returns:
//   - inference.Runner: The runner.
//   - error: An error if the backend is unknown or the model cannot be loaded.
func OpenRunner(model config.ModelConfig, sharedLibPath string, channels int) (inference.Runner, error) {
	switch model.Backend {
	case config.BackendONNXRuntime:
		return inference.NewSession(inference.SessionConfig{
			ModelPath:      model.Path,
			SharedLibPath:  sharedLibPath,
			InputSize:      model.InputSize,
			OutputChannels: channels,
			Threads:        model.Threads,
		})
	case config.BackendOpenCV:
		return inference.NewDNN(model.Path, model.InputSize)
	default:
		return nil, errors.Errorf("unsupported backend %q", model.Backend)
	}
}

// Open loads all four models. Already opened models are closed if a later one fails.
//
// Arguments:
//   - cfg: The models section of the configuration.
//
// Returns:
//   - *Set: The opened models.
//   - error: An error naming the model that failed to load.
func Open(cfg config.ModelsConfig) (*Set, error) {
	classes, err := models.DefaultClassManager().Count(cfg.Family)
	if err != nil {
		return nil, errors.Wrap(err, "error resolving detector classes")
	}
	set := &Set{}

	detector := func(name string, m config.ModelConfig, src postprocess.Source) (inference.Detector, error) {
		dc := DefaultConfig()
		dc.Classes = classes
		dc.Source = src
		dc.ConfidenceThreshold = float32(cfg.ConfidenceThreshold)
		dc.NMS.IoUThreshold = cfg.NMSThreshold
		runner, err := OpenRunner(m, cfg.SharedLibPath, dc.Channels())
		if err != nil {
			return nil, errors.Wrapf(err, "error opening %s", name)
		}
		return NewYOLODetector(runner, dc), nil
	}
	estimator := func(name string, m config.ModelConfig) (inference.PoseEstimator, error) {
		runner, err := OpenRunner(m, cfg.SharedLibPath, PoseChannels)
		if err != nil {
			return nil, errors.Wrapf(err, "error opening %s", name)
		}
		return NewYOLOPose(runner, float32(cfg.ConfidenceThreshold)), nil
	}

	if set.DetectorA, err = detector("detector_a", cfg.DetectorA, postprocess.SourceA); err != nil {
		return nil, err
	}
	if set.DetectorB, err = detector("detector_b", cfg.DetectorB, postprocess.SourceB); err != nil {
		set.Close()
		return nil, err
	}
	if set.PoseA, err = estimator("pose_a", cfg.PoseA); err != nil {
		set.Close()
		return nil, err
	}
	if set.PoseB, err = estimator("pose_b", cfg.PoseB); err != nil {
		set.Close()
		return nil, err
	}
	return set, nil
}
