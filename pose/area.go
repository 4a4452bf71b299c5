package pose

import "math"

// FaceArea approximates the visible face as an ellipse spanned by the nose
// and eyes, in square pixels.
//
// With both eyes: a = |LE-RE|/2 and b = (|N-LE| + |N-RE|)/4.
// With one eye:   a = |N-E|/2   and b = |N-E|/4.
// The result is π·a·b, or 0 when the nose or both eyes are missing.
func FaceArea(p *Pose) float64 {
	if p == nil {
		return 0
	}
	nose, left, right := p[Nose], p[LeftEye], p[RightEye]
	if !nose.Present() {
		return 0
	}

	var a, b float64
	switch {
	case left.Present() && right.Present():
		a = distance(left, right) / 2
		b = (distance(nose, left) + distance(nose, right)) / 4
	case left.Present():
		d := distance(nose, left)
		a, b = d/2, d/4
	case right.Present():
		d := distance(nose, right)
		a, b = d/2, d/4
	default:
		return 0
	}
	return math.Pi * a * b
}

// BodyArea returns the area of the axis-aligned box around the confident
// shoulder, hip, knee and ankle keypoints, or 0 when none qualify.
func BodyArea(p *Pose, threshold float64) float64 {
	if p == nil {
		return 0
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	found := false
	for _, i := range BodyAreaKeypoints {
		k := p[i]
		if k.Confidence < threshold {
			continue
		}
		found = true
		minX, maxX = math.Min(minX, k.X), math.Max(maxX, k.X)
		minY, maxY = math.Min(minY, k.Y), math.Max(maxY, k.Y)
	}
	if !found {
		return 0
	}
	return (maxX - minX) * (maxY - minY)
}
