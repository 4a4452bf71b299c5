// Package detectors - YOLO detection and pose heads on top of a model runner.
package detectors

import (
	"github.com/nvr-ai/go-humansort/models"
	"github.com/nvr-ai/go-humansort/models/postprocess"
)

// PoseChannels is the per-anchor channel count of a YOLO pose head: box,
// person score and 17 keypoints of (x, y, confidence).
const PoseChannels = 4 + 1 + 17*3

// Config controls how a raw YOLO head is turned into detections.
type Config struct {
	// Classes is the number of class scores per anchor.
	Classes int `json:"classes"`

	// ConfidenceThreshold drops anchors whose best class score is below it.
	ConfidenceThreshold float32 `json:"confidence_threshold"`

	// NMS removes duplicate anchors before the detections leave the detector.
	NMS postprocess.NMSConfig `json:"nms"`

	// Source tags every detection with the detector that produced it.
	Source postprocess.Source `json:"source"`
}

// Channels returns the per-anchor channel count of a detection head.
func (c Config) Channels() int {
	return 4 + c.Classes
}

// DefaultConfig returns the configuration for an 80-class COCO detector.
//
// Returns:
//   - Config: The default configuration.
//
// @example
// config := DefaultConfig()
// config.Source = postprocess.SourceB
// detector := NewYOLODetector(runner, config)
func DefaultConfig() Config {
	return Config{
		Classes:             len(models.YOLOClasses.Classes),
		ConfidenceThreshold: 0.25,
		NMS: postprocess.NMSConfig{
			IoUThreshold: 0.7,
			ClassAware:   true,
		},
		Source: postprocess.SourceA,
	}
}
