// Package config - Thresholds and pipeline configuration for human sorting.
package config

import (
	"github.com/nvr-ai/go-humansort/images"
	"github.com/nvr-ai/go-humansort/pose"
	"github.com/pkg/errors"
)

// ErrInvalidThreshold is the cause of every threshold validation error.
var ErrInvalidThreshold = errors.New("invalid threshold")

// PersonThresholds configure the person-box decision.
type PersonThresholds struct {
	// SourceA is the confidence floor for the first detector.
	SourceA float64 `json:"source_a" yaml:"source_a" mapstructure:"source_a"`
	// SourceB is the confidence floor for the second detector.
	SourceB float64 `json:"source_b" yaml:"source_b" mapstructure:"source_b"`
	// IoU is the weighted box fusion clustering threshold.
	IoU float64 `json:"iou" yaml:"iou" mapstructure:"iou"`
	// MinAreaRatio is the minimum fused box area / image area.
	MinAreaRatio float64 `json:"min_area_ratio" yaml:"min_area_ratio" mapstructure:"min_area_ratio"`
	// MaxAreaRatio caps the fused box area / image area. Zero disables it.
	MaxAreaRatio float64 `json:"max_area_ratio" yaml:"max_area_ratio" mapstructure:"max_area_ratio"`
	// Aspect bounds the fused box height/width. A zero Max disables it.
	Aspect images.AspectRange `json:"aspect" yaml:"aspect" mapstructure:"aspect"`
	// CenterThreshold is the largest offset of the box center from the image
	// center, per axis as a fraction of the image size. Zero disables it.
	CenterThreshold float64 `json:"center_threshold" yaml:"center_threshold" mapstructure:"center_threshold"`
}

// FaceThresholds configure the face decision.
type FaceThresholds struct {
	// MinAreaRatio is the minimum face ellipse area / image area.
	MinAreaRatio float64 `json:"min_area_ratio" yaml:"min_area_ratio" mapstructure:"min_area_ratio"`
}

// BodyThresholds configure the body decision.
type BodyThresholds struct {
	// MinAreaRatio is the minimum keypoint bounding area / image area.
	MinAreaRatio float64 `json:"min_area_ratio" yaml:"min_area_ratio" mapstructure:"min_area_ratio"`
	// MinEssentialKeypoints is how many essential keypoints must be confident.
	MinEssentialKeypoints int `json:"min_essential_keypoints" yaml:"min_essential_keypoints" mapstructure:"min_essential_keypoints"`
}

// Thresholds holds every constant the decision procedures read. It is built
// once at startup and passed by value; nothing mutates it during processing.
type Thresholds struct {
	Person PersonThresholds `json:"person" yaml:"person" mapstructure:"person"`
	Face   FaceThresholds   `json:"face" yaml:"face" mapstructure:"face"`
	Body   BodyThresholds   `json:"body" yaml:"body" mapstructure:"body"`
	// KeypointConfidence gates keypoints in both fusion and area estimation.
	KeypointConfidence float64 `json:"keypoint_confidence" yaml:"keypoint_confidence" mapstructure:"keypoint_confidence"`
	// PersonClass is the class index of "person" in the detectors' label set.
	PersonClass int `json:"person_class" yaml:"person_class" mapstructure:"person_class"`
}

// DefaultThresholds returns the production thresholds.
//
// Returns:
//   - Thresholds: Defaults tuned for YOLO COCO detectors and YOLO-pose estimators.
//
// @example
// th := DefaultThresholds()
// th.Face.MinAreaRatio = 0.002
// err := th.Validate()
func DefaultThresholds() Thresholds {
	return Thresholds{
		Person: PersonThresholds{
			SourceA:      0.5,
			SourceB:      0.5,
			IoU:          0.55,
			MinAreaRatio: 0.65,
		},
		Face: FaceThresholds{
			MinAreaRatio: 0.0015,
		},
		Body: BodyThresholds{
			MinAreaRatio:          0.10,
			MinEssentialKeypoints: 4,
		},
		KeypointConfidence: 0.5,
		PersonClass:        0,
	}
}

// Validate checks that every threshold lies in its valid range.
//
// Returns:
//   - error: An error wrapping ErrInvalidThreshold that names the first bad field.
func (t Thresholds) Validate() error {
	unit := []struct {
		name  string
		value float64
	}{
		{"person.source_a", t.Person.SourceA},
		{"person.source_b", t.Person.SourceB},
		{"person.iou", t.Person.IoU},
		{"person.min_area_ratio", t.Person.MinAreaRatio},
		{"person.max_area_ratio", t.Person.MaxAreaRatio},
		{"person.center_threshold", t.Person.CenterThreshold},
		{"face.min_area_ratio", t.Face.MinAreaRatio},
		{"body.min_area_ratio", t.Body.MinAreaRatio},
	}
	for _, f := range unit {
		if f.value < 0 || f.value > 1 {
			return errors.Wrapf(ErrInvalidThreshold, "%s must be in [0, 1], got %v", f.name, f.value)
		}
	}

	if t.Person.MaxAreaRatio > 0 && t.Person.MaxAreaRatio < t.Person.MinAreaRatio {
		return errors.Wrapf(ErrInvalidThreshold, "person.max_area_ratio %v is below person.min_area_ratio %v",
			t.Person.MaxAreaRatio, t.Person.MinAreaRatio)
	}
	if a := t.Person.Aspect; a.Min < 0 || a.Max < 0 || (a.Max == 0 && a.Min != 0) || (a.Max > 0 && a.Min > a.Max) {
		return errors.Wrapf(ErrInvalidThreshold, "person.aspect must satisfy 0 <= min <= max, got [%v, %v]", a.Min, a.Max)
	}

	// A zero keypoint threshold would let the (0,0,0) sentinel through.
	if t.KeypointConfidence <= 0 || t.KeypointConfidence > 1 {
		return errors.Wrapf(ErrInvalidThreshold, "keypoint_confidence must be in (0, 1], got %v", t.KeypointConfidence)
	}

	if n := len(pose.EssentialKeypoints); t.Body.MinEssentialKeypoints < 1 || t.Body.MinEssentialKeypoints > n {
		return errors.Wrapf(ErrInvalidThreshold, "body.min_essential_keypoints must be in [1, %d], got %d", n, t.Body.MinEssentialKeypoints)
	}

	if t.PersonClass < 0 {
		return errors.Wrapf(ErrInvalidThreshold, "person_class must not be negative, got %d", t.PersonClass)
	}

	return nil
}
