package detectors

import (
	"context"
	"image"

	"github.com/nvr-ai/go-humansort/inference"
	"github.com/nvr-ai/go-humansort/models/postprocess"
)

// YOLODetector decodes an anchor-free YOLO detection head into detections.
type YOLODetector struct {
	runner inference.Runner
	config Config
}

// NewYOLODetector wraps runner with the decoding described by config.
// The detector owns runner and closes it on Close.
func NewYOLODetector(runner inference.Runner, config Config) *YOLODetector {
	return &YOLODetector{runner: runner, config: config}
}

// Detect runs the model on img and returns its detections after NMS, in
// absolute pixel coordinates of img, highest score first.
func (d *YOLODetector) Detect(ctx context.Context, img image.Image) ([]postprocess.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, anchors, scale, err := run(d.runner, img, d.config.Channels())
	if err != nil {
		return nil, err
	}
	candidates := d.decode(rows, anchors, scale, img.Bounds())
	kept := postprocess.ApplyGreedyNMS(candidates, d.config.NMS)
	return postprocess.Tag(kept, d.config.Source), nil
}

// decode keeps the best class of every anchor whose score clears the floor.
func (d *YOLODetector) decode(rows []float32, anchors int, scale inference.Scale, bounds image.Rectangle) []postprocess.Detection {
	channels := d.config.Channels()
	detections := make([]postprocess.Detection, 0, 64)

	for i := 0; i < anchors; i++ {
		row := rows[i*channels : (i+1)*channels]

		classID, score := -1, float32(-1)
		for c, s := range row[4:] {
			if s > score {
				classID, score = c, s
			}
		}
		if score < d.config.ConfidenceThreshold {
			continue
		}

		box := toRect(row[0], row[1], row[2], row[3], scale, bounds)
		if box.Empty() {
			continue
		}
		detections = append(detections, postprocess.Detection{
			Box:   box,
			Score: float64(score),
			Class: classID,
		})
	}
	return detections
}

// Close releases the underlying runner.
func (d *YOLODetector) Close() error {
	return d.runner.Close()
}
