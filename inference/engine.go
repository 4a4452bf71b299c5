// Package inference - Model runtimes and the detector/pose collaborator interfaces.
package inference

import (
	"context"
	"image"

	"github.com/nvr-ai/go-humansort/models/postprocess"
	"github.com/nvr-ai/go-humansort/pose"
	"github.com/pkg/errors"
)

// ErrNotInitialized is returned when a runtime is used after Close.
var ErrNotInitialized = errors.New("runtime not initialized")

// Detector produces object detections for one image.
type Detector interface {
	// Detect returns detections in absolute pixel coordinates of img.
	Detect(ctx context.Context, img image.Image) ([]postprocess.Detection, error)
	Close() error
}

// PoseEstimator produces a single pose estimate for one image.
type PoseEstimator interface {
	// Estimate returns the pose in absolute pixel coordinates of img, or nil
	// when no pose was found.
	Estimate(ctx context.Context, img image.Image) (*pose.Pose, error)
	Close() error
}

// Runner executes a model on a preprocessed CHW float32 input.
type Runner interface {
	// InputSize is the width and height the model expects.
	InputSize() image.Point
	// Run executes the model and returns a copy of its single output tensor.
	Run(input []float32) ([]float32, error)
	Close() error
}

// AnchorCount returns the number of prediction anchors of an anchor-free
// YOLO head (strides 8, 16 and 32) for a square input of the given size.
//
// @example
// AnchorCount(640) // 6400 + 1600 + 400 = 8400
func AnchorCount(size int) int {
	total := 0
	for _, stride := range []int{8, 16, 32} {
		side := size / stride
		total += side * side
	}
	return total
}
