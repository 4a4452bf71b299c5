package detectors

import (
	"image"

	"github.com/chewxy/math32"
	"github.com/nvr-ai/go-humansort/images"
	"github.com/nvr-ai/go-humansort/inference"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// anchorRows reorders a channel-major [channels, anchors] head, as exported by
// YOLOv8 and later, into one contiguous row per anchor. output is reordered in
// place and must not be used by the caller afterwards.
//
// Arguments:
//   - output: The raw model output.
//   - channels: The per-anchor channel count.
//
// Returns:
//   - []float32: Anchor-major rows of length channels.
//   - int: The number of anchors.
//   - error: An error if output does not divide into channels.
func anchorRows(output []float32, channels int) ([]float32, int, error) {
	if channels <= 0 || len(output)%channels != 0 {
		return nil, 0, errors.Errorf("output of %d floats does not split into %d channels", len(output), channels)
	}
	anchors := len(output) / channels
	if anchors <= 1 || channels == 1 {
		return output, anchors, nil
	}

	head := tensor.New(
		tensor.Of(tensor.Float32),
		tensor.WithShape(channels, anchors),
		tensor.WithBacking(output),
	)
	if err := head.T(); err != nil {
		return nil, 0, errors.Wrap(err, "error transposing head")
	}
	if err := head.Transpose(); err != nil {
		return nil, 0, errors.Wrap(err, "error materializing head")
	}
	rows, ok := head.Data().([]float32)
	if !ok {
		return nil, 0, errors.Errorf("unexpected head data type %T", head.Data())
	}
	return rows, anchors, nil
}

// toRect converts a model-space center box to image coordinates clamped to bounds.
func toRect(cx, cy, w, h float32, scale inference.Scale, bounds image.Rectangle) images.Rect {
	minX, minY := float32(bounds.Min.X), float32(bounds.Min.Y)
	maxX, maxY := float32(bounds.Max.X), float32(bounds.Max.Y)

	x1 := clamp(minX+(cx-w/2)*scale.X, minX, maxX)
	y1 := clamp(minY+(cy-h/2)*scale.Y, minY, maxY)
	x2 := clamp(minX+(cx+w/2)*scale.X, minX, maxX)
	y2 := clamp(minY+(cy+h/2)*scale.Y, minY, maxY)

	return images.Rect{X1: float64(x1), Y1: float64(y1), X2: float64(x2), Y2: float64(y2)}
}

func clamp(v, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(v, hi))
}

// run prepares img for runner, executes it and returns anchor-major rows.
func run(runner inference.Runner, img image.Image, channels int) ([]float32, int, inference.Scale, error) {
	size := runner.InputSize()
	input := make([]float32, 3*size.X*size.Y)
	scale, err := inference.PrepareInput(img, size, input)
	if err != nil {
		return nil, 0, inference.Scale{}, errors.Wrap(err, "error preparing input")
	}
	output, err := runner.Run(input)
	if err != nil {
		return nil, 0, inference.Scale{}, err
	}
	rows, anchors, err := anchorRows(output, channels)
	if err != nil {
		return nil, 0, inference.Scale{}, err
	}
	return rows, anchors, scale, nil
}
