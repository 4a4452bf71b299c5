package classifier

import (
	"github.com/nvr-ai/go-humansort/config"
	"github.com/nvr-ai/go-humansort/pose"
)

// DetectBody looks for a visible body.
//
// Fewer than Body.MinEssentialKeypoints confident essential keypoints means no
// evidence whatever the area: a sparse skeleton gives a meaningless bounding
// area. Otherwise the score is the keypoint bounding area over the image area.
func DetectBody(in Input, th config.Thresholds) (Evidence, bool) {
	fused := pose.Fuse(in.PoseA, in.PoseB, th.KeypointConfidence)
	if fused == nil {
		return Evidence{}, false
	}
	if pose.CountConfident(fused, pose.EssentialKeypoints, th.KeypointConfidence) < th.Body.MinEssentialKeypoints {
		return Evidence{}, false
	}

	area := in.imageArea()
	if area <= 0 {
		return Evidence{}, false
	}
	ratio := pose.BodyArea(fused, th.KeypointConfidence) / area
	if ratio < th.Body.MinAreaRatio {
		return Evidence{}, false
	}
	return Evidence{Kind: EvidenceBody, Score: ratio}, true
}
