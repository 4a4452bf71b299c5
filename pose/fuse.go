package pose

// Fuse merges two independent pose estimates of the same image.
//
// Per keypoint index:
//   - both confidences ≥ threshold: x, y and confidence are averaged.
//   - exactly one ≥ threshold: that keypoint is taken unchanged.
//   - neither: the missing sentinel (0, 0, 0).
//
// A nil source contributes nothing, so a single present source is gated on its
// own. Fuse returns nil when both sources are nil.
//
// Arguments:
//   - a: Pose from the first estimator, or nil.
//   - b: Pose from the second estimator, or nil.
//   - threshold: Minimum confidence for a keypoint to be used.
//
// Returns:
//   - *Pose: The fused pose, or nil if neither source found a pose.
func Fuse(a, b *Pose, threshold float64) *Pose {
	if a == nil && b == nil {
		return nil
	}

	var fused Pose
	for i := Index(0); i < NumKeypoints; i++ {
		var ka, kb Keypoint
		okA, okB := false, false
		if a != nil {
			ka = a[i]
			okA = ka.Confidence >= threshold
		}
		if b != nil {
			kb = b[i]
			okB = kb.Confidence >= threshold
		}

		switch {
		case okA && okB:
			fused[i] = Keypoint{
				X:          (ka.X + kb.X) / 2,
				Y:          (ka.Y + kb.Y) / 2,
				Confidence: (ka.Confidence + kb.Confidence) / 2,
			}
		case okA:
			fused[i] = ka
		case okB:
			fused[i] = kb
		default:
			fused[i] = Keypoint{}
		}
	}
	return &fused
}
