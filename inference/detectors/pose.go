package detectors

import (
	"context"
	"image"

	"github.com/nvr-ai/go-humansort/inference"
	"github.com/nvr-ai/go-humansort/pose"
)

// YOLOPose decodes a YOLO pose head into the single most confident pose.
type YOLOPose struct {
	runner   inference.Runner
	minScore float32
}

// NewYOLOPose wraps runner. Instances scoring below minScore are ignored.
// The estimator owns runner and closes it on Close.
func NewYOLOPose(runner inference.Runner, minScore float32) *YOLOPose {
	return &YOLOPose{runner: runner, minScore: minScore}
}

// Estimate returns the highest-scoring person's keypoints in absolute pixel
// coordinates of img, or nil when no instance reaches the floor.
func (p *YOLOPose) Estimate(ctx context.Context, img image.Image) (*pose.Pose, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, anchors, scale, err := run(p.runner, img, PoseChannels)
	if err != nil {
		return nil, err
	}

	best, bestScore := -1, float32(0)
	for i := 0; i < anchors; i++ {
		s := rows[i*PoseChannels+4]
		if s >= p.minScore && (best < 0 || s > bestScore) {
			best, bestScore = i, s
		}
	}
	if best < 0 {
		return nil, nil
	}

	bounds := img.Bounds()
	row := rows[best*PoseChannels : (best+1)*PoseChannels]
	out := &pose.Pose{}
	for k := range out {
		kx, ky, kc := row[5+k*3], row[5+k*3+1], row[5+k*3+2]
		out[k] = pose.Keypoint{
			X:          float64(clamp(float32(bounds.Min.X)+kx*scale.X, float32(bounds.Min.X), float32(bounds.Max.X))),
			Y:          float64(clamp(float32(bounds.Min.Y)+ky*scale.Y, float32(bounds.Min.Y), float32(bounds.Max.Y))),
			Confidence: float64(clamp(kc, 0, 1)),
		}
	}
	return out, nil
}

// Close releases the underlying runner.
func (p *YOLOPose) Close() error {
	return p.runner.Close()
}
