// Package images - Image geometry and decoding utilities
package images

import "math"

// Rect is an axis-aligned bounding box in absolute pixel coordinates.
type Rect struct {
	X1, Y1, X2, Y2 float64
}

// Width returns the horizontal extent of r, or 0 for an inverted box.
func (r Rect) Width() float64 {
	return math.Max(0, r.X2-r.X1)
}

// Height returns the vertical extent of r, or 0 for an inverted box.
func (r Rect) Height() float64 {
	return math.Max(0, r.Y2-r.Y1)
}

// Area returns the area of r in square pixels.
func (r Rect) Area() float64 {
	return r.Width() * r.Height()
}

// Empty reports whether r covers no area.
func (r Rect) Empty() bool {
	return r.Width() == 0 || r.Height() == 0
}

// Center returns the center point of r.
func (r Rect) Center() (float64, float64) {
	return (r.X1 + r.X2) / 2, (r.Y1 + r.Y2) / 2
}

// CalculateIoU returns the Intersection over Union of two rectangles.
//
// IoU = Area of Intersection / Area of Union
//
//   - 1.0 means the rectangles are identical.
//   - 0.0 means they don't overlap at all (touching edges count as no overlap).
//
// The intersection corner is the max of the top-left corners and the min of the
// bottom-right corners; a non-positive width or height means no overlap. The union
// uses inclusion-exclusion: Area(A) + Area(B) - Area(A∩B). A zero union (two
// degenerate boxes) yields 0 rather than NaN.
//
// Arguments:
//   - r: The first rectangle.
//   - o: The other rectangle to compare against.
//
// Returns:
//   - float64: A value in [0, 1].
//
// Example Usage:
// ```go
//
//	a := Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}
//	b := Rect{X1: 5, Y1: 5, X2: 15, Y2: 15}
//	iou := CalculateIoU(a, b) // 25 / (100 + 100 - 25) = 0.142857
//
// ```
func CalculateIoU(r, o Rect) float64 {
	ix1 := math.Max(r.X1, o.X1)
	iy1 := math.Max(r.Y1, o.Y1)
	ix2 := math.Min(r.X2, o.X2)
	iy2 := math.Min(r.Y2, o.Y2)

	interW := ix2 - ix1
	interH := iy2 - iy1
	if interW <= 0 || interH <= 0 {
		return 0.0
	}
	interArea := interW * interH

	unionArea := r.Area() + o.Area() - interArea
	if unionArea <= 0 {
		return 0.0
	}

	return interArea / unionArea
}

// AreaRatio returns the fraction of a width x height image covered by box.
// A degenerate image yields 0.
func AreaRatio(box Rect, width, height int) float64 {
	imageArea := float64(width) * float64(height)
	if imageArea <= 0 {
		return 0
	}
	return box.Area() / imageArea
}

// IsValidSize reports whether box covers between minRatio and maxRatio
// (inclusive) of an image of the given area.
//
// Arguments:
//   - box: The box to check.
//   - imageArea: The image area in square pixels.
//   - minRatio: Lower bound of box_area / image_area.
//   - maxRatio: Upper bound of box_area / image_area.
//
// Returns:
//   - bool: True when the ratio lies in [minRatio, maxRatio].
func IsValidSize(box Rect, imageArea, minRatio, maxRatio float64) bool {
	if imageArea <= 0 {
		return false
	}
	ratio := box.Area() / imageArea
	return ratio >= minRatio && ratio <= maxRatio
}

// AspectRange bounds the height/width ratio of a box.
type AspectRange struct {
	Min float64 `json:"min" yaml:"min" mapstructure:"min"`
	Max float64 `json:"max" yaml:"max" mapstructure:"max"`
}

// IsValidAspect reports whether the height/width ratio of box lies in r.
// A box with zero width or height is never valid.
func IsValidAspect(box Rect, r AspectRange) bool {
	w, h := box.Width(), box.Height()
	if w == 0 || h == 0 {
		return false
	}
	aspect := h / w
	return aspect >= r.Min && aspect <= r.Max
}

// IsCentered reports whether the center of box lies within threshold of the
// image center, measured separately on each axis as a fraction of the image
// width and height.
func IsCentered(box Rect, imageW, imageH, threshold float64) bool {
	if imageW <= 0 || imageH <= 0 {
		return false
	}
	cx, cy := box.Center()
	dx := math.Abs(cx-imageW/2) / imageW
	dy := math.Abs(cy-imageH/2) / imageH
	return dx <= threshold && dy <= threshold
}
