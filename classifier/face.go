package classifier

import (
	"github.com/nvr-ai/go-humansort/config"
	"github.com/nvr-ai/go-humansort/pose"
)

// DetectFace looks for a visible face large enough relative to the image.
// The nose and both eyes must survive keypoint fusion; the score is the face
// ellipse area over the image area.
func DetectFace(in Input, th config.Thresholds) (Evidence, bool) {
	fused := pose.Fuse(in.PoseA, in.PoseB, th.KeypointConfidence)
	if fused == nil {
		return Evidence{}, false
	}
	if !fused[pose.Nose].Present() || !fused[pose.LeftEye].Present() || !fused[pose.RightEye].Present() {
		return Evidence{}, false
	}

	area := in.imageArea()
	if area <= 0 {
		return Evidence{}, false
	}
	ratio := pose.FaceArea(fused) / area
	if ratio < th.Face.MinAreaRatio {
		return Evidence{}, false
	}
	return Evidence{Kind: EvidenceFace, Score: ratio}, true
}
