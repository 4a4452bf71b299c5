// Package postprocess - Postprocessing utilities for detector outputs.
package postprocess

import (
	"fmt"

	"github.com/nvr-ai/go-humansort/images"
)

// Source identifies which detector produced a detection.
type Source int

const (
	// SourceA is the first independent detector.
	SourceA Source = iota
	// SourceB is the second independent detector.
	SourceB
	// SourceFused marks the output of weighted box fusion.
	SourceFused
)

func (s Source) String() string {
	switch s {
	case SourceA:
		return "A"
	case SourceB:
		return "B"
	case SourceFused:
		return "FUSED"
	default:
		return fmt.Sprintf("Source(%d)", int(s))
	}
}

// Detection represents a single detection result.
type Detection struct {
	// The bounding box of the detection in absolute pixels.
	Box images.Rect
	// The confidence score of the detection.
	Score float64
	// The predicted class index of the detection.
	Class int
	// The detector that produced the detection.
	Source Source
}

func (d Detection) String() string {
	return fmt.Sprintf("class %d from %s (confidence %f): (%.1f, %.1f), (%.1f, %.1f)",
		d.Class, d.Source, d.Score, d.Box.X1, d.Box.Y1, d.Box.X2, d.Box.Y2)
}

// FilterByScore returns the detections whose score is at least min.
func FilterByScore(detections []Detection, min float64) []Detection {
	filtered := make([]Detection, 0, len(detections))
	for _, d := range detections {
		if d.Score >= min {
			filtered = append(filtered, d)
		}
	}
	return filtered
}

// FilterByClass returns the detections of the given class.
func FilterByClass(detections []Detection, class int) []Detection {
	filtered := make([]Detection, 0, len(detections))
	for _, d := range detections {
		if d.Class == class {
			filtered = append(filtered, d)
		}
	}
	return filtered
}

// Tag returns a copy of detections with every Source set to src.
func Tag(detections []Detection, src Source) []Detection {
	tagged := make([]Detection, len(detections))
	for i, d := range detections {
		d.Source = src
		tagged[i] = d
	}
	return tagged
}
