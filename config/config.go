package config

import (
	"runtime"

	"github.com/nvr-ai/go-humansort/models"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Backend names a model execution runtime.
type Backend string

const (
	// BackendONNXRuntime runs models through onnxruntime.
	BackendONNXRuntime Backend = "onnxruntime"
	// BackendOpenCV runs models through the OpenCV dnn module.
	BackendOpenCV Backend = "opencv"
)

// Config is the full configuration of a sorting run.
type Config struct {
	Thresholds Thresholds    `mapstructure:"thresholds"`
	Models     ModelsConfig  `mapstructure:"models"`
	Sorter     SorterConfig  `mapstructure:"sorter"`
	Journal    JournalConfig `mapstructure:"journal"`
	Log        LogConfig     `mapstructure:"log"`
}

// ModelConfig locates one model and the runtime that executes it.
type ModelConfig struct {
	Path      string  `mapstructure:"path"`
	Backend   Backend `mapstructure:"backend"`
	InputSize int     `mapstructure:"input_size"`
	Threads   int     `mapstructure:"threads"`
}

// ModelsConfig holds the two detectors and the two pose estimators.
type ModelsConfig struct {
	DetectorA ModelConfig `mapstructure:"detector_a"`
	DetectorB ModelConfig `mapstructure:"detector_b"`
	PoseA     ModelConfig `mapstructure:"pose_a"`
	PoseB     ModelConfig `mapstructure:"pose_b"`
	// Family is the label set of both detectors. It decides the class count of
	// their heads and, unless thresholds.person_class is set, the person class.
	Family models.ModelFamily `mapstructure:"family"`
	// SharedLibPath overrides the onnxruntime shared library location.
	SharedLibPath string `mapstructure:"shared_lib_path"`
	// NMSThreshold is applied to raw detector heads before fusion.
	NMSThreshold float64 `mapstructure:"nms_threshold"`
	// ConfidenceThreshold drops raw anchors and pose instances scoring below it.
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
}

// SorterConfig configures directory routing.
type SorterConfig struct {
	InputDir    string `mapstructure:"input_dir"`
	HumanDir    string `mapstructure:"human_dir"`
	NonHumanDir string `mapstructure:"non_human_dir"`
	Workers     int    `mapstructure:"workers"`
	DryRun      bool   `mapstructure:"dry_run"`
	Progress    bool   `mapstructure:"progress"`
}

// JournalConfig configures the sqlite verdict journal. An empty path disables it.
type JournalConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads a YAML configuration file on top of the defaults.
//
// Arguments:
//   - path: Path of the YAML file.
//
// Returns:
//   - *Config: The merged configuration.
//   - error: An error if the file cannot be read, decoded or validated.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("HUMANSORT")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := cfg.resolvePersonClass(v.InConfig("thresholds.person_class")); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// The defaults are static; failing to decode them is a programming error.
		panic(errors.Wrap(err, "decode default config"))
	}
	if err := cfg.resolvePersonClass(false); err != nil {
		panic(err)
	}
	return &cfg
}

// resolvePersonClass sets the person class to the person label of the model
// family unless it was configured explicitly.
func (c *Config) resolvePersonClass(explicit bool) error {
	idx, err := models.DefaultClassManager().PersonIndex(c.Models.Family)
	if err != nil {
		return errors.Wrap(err, "models.family")
	}
	if !explicit {
		c.Thresholds.PersonClass = idx
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	th := DefaultThresholds()
	v.SetDefault("thresholds.person.source_a", th.Person.SourceA)
	v.SetDefault("thresholds.person.source_b", th.Person.SourceB)
	v.SetDefault("thresholds.person.iou", th.Person.IoU)
	v.SetDefault("thresholds.person.min_area_ratio", th.Person.MinAreaRatio)
	v.SetDefault("thresholds.person.max_area_ratio", th.Person.MaxAreaRatio)
	v.SetDefault("thresholds.person.aspect.min", th.Person.Aspect.Min)
	v.SetDefault("thresholds.person.aspect.max", th.Person.Aspect.Max)
	v.SetDefault("thresholds.person.center_threshold", th.Person.CenterThreshold)
	v.SetDefault("thresholds.face.min_area_ratio", th.Face.MinAreaRatio)
	v.SetDefault("thresholds.body.min_area_ratio", th.Body.MinAreaRatio)
	v.SetDefault("thresholds.body.min_essential_keypoints", th.Body.MinEssentialKeypoints)
	v.SetDefault("thresholds.keypoint_confidence", th.KeypointConfidence)

	v.SetDefault("models.detector_a.path", "models/yolov8m.onnx")
	v.SetDefault("models.detector_a.backend", string(BackendONNXRuntime))
	v.SetDefault("models.detector_a.input_size", 640)
	v.SetDefault("models.detector_a.threads", 4)
	v.SetDefault("models.detector_b.path", "models/yolo11m.onnx")
	v.SetDefault("models.detector_b.backend", string(BackendOpenCV))
	v.SetDefault("models.detector_b.input_size", 640)
	v.SetDefault("models.detector_b.threads", 4)
	v.SetDefault("models.pose_a.path", "models/yolov8m-pose.onnx")
	v.SetDefault("models.pose_a.backend", string(BackendONNXRuntime))
	v.SetDefault("models.pose_a.input_size", 640)
	v.SetDefault("models.pose_a.threads", 4)
	v.SetDefault("models.pose_b.path", "models/yolo11m-pose.onnx")
	v.SetDefault("models.pose_b.backend", string(BackendOpenCV))
	v.SetDefault("models.pose_b.input_size", 640)
	v.SetDefault("models.pose_b.threads", 4)
	v.SetDefault("models.family", string(models.ModelFamilyYOLO))
	v.SetDefault("models.shared_lib_path", "")
	v.SetDefault("models.nms_threshold", 0.7)
	v.SetDefault("models.confidence_threshold", 0.25)

	v.SetDefault("sorter.input_dir", ".")
	v.SetDefault("sorter.human_dir", "human")
	v.SetDefault("sorter.non_human_dir", "non_human")
	v.SetDefault("sorter.workers", runtime.NumCPU())
	v.SetDefault("sorter.dry_run", false)
	v.SetDefault("sorter.progress", true)

	v.SetDefault("journal.path", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Validate checks the configuration once at startup.
func (c *Config) Validate() error {
	if err := c.Thresholds.Validate(); err != nil {
		return errors.Wrap(err, "thresholds")
	}

	entries := map[string]ModelConfig{
		"detector_a": c.Models.DetectorA,
		"detector_b": c.Models.DetectorB,
		"pose_a":     c.Models.PoseA,
		"pose_b":     c.Models.PoseB,
	}
	for name, m := range entries {
		if err := m.Validate(); err != nil {
			return errors.Wrapf(err, "models.%s", name)
		}
	}
	labels, err := models.DefaultClassManager().Count(c.Models.Family)
	if err != nil {
		return errors.Wrap(err, "models.family")
	}
	if c.Thresholds.PersonClass >= labels {
		return errors.Wrapf(ErrInvalidThreshold, "person_class %d is out of range for the %s family of %d labels",
			c.Thresholds.PersonClass, c.Models.Family, labels)
	}
	if c.Models.NMSThreshold < 0 || c.Models.NMSThreshold > 1 {
		return errors.Errorf("models.nms_threshold must be in [0, 1], got %v", c.Models.NMSThreshold)
	}
	if c.Models.ConfidenceThreshold < 0 || c.Models.ConfidenceThreshold > 1 {
		return errors.Errorf("models.confidence_threshold must be in [0, 1], got %v", c.Models.ConfidenceThreshold)
	}

	if c.Sorter.Workers < 1 {
		return errors.Errorf("sorter.workers must be positive, got %d", c.Sorter.Workers)
	}
	if c.Sorter.HumanDir == "" || c.Sorter.NonHumanDir == "" {
		return errors.New("sorter.human_dir and sorter.non_human_dir are required")
	}
	if c.Sorter.HumanDir == c.Sorter.NonHumanDir {
		return errors.New("sorter.human_dir and sorter.non_human_dir must differ")
	}
	return nil
}

// Validate checks a single model entry.
func (m ModelConfig) Validate() error {
	if m.Path == "" {
		return errors.New("path is required")
	}
	switch m.Backend {
	case BackendONNXRuntime, BackendOpenCV:
	default:
		return errors.Errorf("unsupported backend %q", m.Backend)
	}
	if m.InputSize <= 0 || m.InputSize%32 != 0 {
		return errors.Errorf("input_size must be a positive multiple of 32, got %d", m.InputSize)
	}
	if m.Threads < 0 {
		return errors.Errorf("threads must not be negative, got %d", m.Threads)
	}
	return nil
}
