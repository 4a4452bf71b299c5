package images

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestIoU_Correctness validates the IoU implementation against known test cases
func TestIoU_Correctness(t *testing.T) {
	tests := []struct {
		name     string
		r1       Rect
		r2       Rect
		expected float64
	}{
		{"Identical rectangles", Rect{0, 0, 100, 100}, Rect{0, 0, 100, 100}, 1.0},
		{"No overlap", Rect{0, 0, 100, 100}, Rect{200, 200, 300, 300}, 0.0},
		{"Touching edges", Rect{0, 0, 100, 100}, Rect{100, 0, 200, 100}, 0.0},
		// intersection=2500, union=17500
		{"Half overlap", Rect{0, 0, 100, 100}, Rect{50, 50, 150, 150}, 1.0 / 7.0},
		// intersection=100, union=19900
		{"Small overlap", Rect{0, 0, 100, 100}, Rect{90, 90, 190, 190}, 100.0 / 19900.0},
		{"One inside other", Rect{0, 0, 100, 100}, Rect{25, 25, 75, 75}, 0.25},
		{"Fractional coordinates", Rect{0.5, 0.5, 10.5, 10.5}, Rect{0.5, 0.5, 10.5, 10.5}, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateIoU(tt.r1, tt.r2)
			assert.InDelta(t, tt.expected, result, 1e-6)

			reverse := CalculateIoU(tt.r2, tt.r1)
			assert.InDelta(t, result, reverse, 1e-9, "IoU must be symmetric")
		})
	}
}

// TestIoU_vs_ImageRectangle compares integer-aligned boxes against image.Rectangle
func TestIoU_vs_ImageRectangle(t *testing.T) {
	testCases := []struct {
		name string
		r1   image.Rectangle
		r2   image.Rectangle
	}{
		{"No overlap", image.Rect(0, 0, 100, 100), image.Rect(200, 200, 300, 300)},
		{"Partial overlap", image.Rect(0, 0, 100, 100), image.Rect(50, 50, 150, 150)},
		{"Full overlap", image.Rect(50, 50, 150, 150), image.Rect(50, 50, 150, 150)},
		{"One inside other", image.Rect(0, 0, 100, 100), image.Rect(25, 25, 75, 75)},
		{"Large boxes", image.Rect(0, 0, 1920, 1080), image.Rect(960, 540, 1920, 1080)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			custom := CalculateIoU(fromImageRect(tc.r1), fromImageRect(tc.r2))
			assert.InDelta(t, imageRectangleIoU(tc.r1, tc.r2), custom, 1e-9)
		})
	}
}

func fromImageRect(r image.Rectangle) Rect {
	return Rect{float64(r.Min.X), float64(r.Min.Y), float64(r.Max.X), float64(r.Max.Y)}
}

// imageRectangleIoU implements IoU using Go's standard library image.Rectangle
func imageRectangleIoU(r1, r2 image.Rectangle) float64 {
	intersect := r1.Intersect(r2)
	if intersect.Empty() {
		return 0.0
	}
	intersectArea := intersect.Dx() * intersect.Dy()
	union := r1.Dx()*r1.Dy() + r2.Dx()*r2.Dy() - intersectArea
	return float64(intersectArea) / float64(union)
}

// TestIoU_EdgeCases tests degenerate and boundary inputs
func TestIoU_EdgeCases(t *testing.T) {
	tests := []struct {
		name string
		r1   Rect
		r2   Rect
	}{
		{"Zero area rectangle 1", Rect{0, 0, 0, 0}, Rect{0, 0, 100, 100}},
		{"Zero area rectangle 2", Rect{0, 0, 100, 100}, Rect{50, 50, 50, 50}},
		{"Both zero area", Rect{0, 0, 0, 0}, Rect{10, 10, 10, 10}},
		{"Same degenerate box", Rect{5, 5, 5, 5}, Rect{5, 5, 5, 5}},
		{"Inverted box", Rect{100, 100, 0, 0}, Rect{0, 0, 100, 100}},
		{"Negative coordinates", Rect{-100, -100, 0, 0}, Rect{-50, -50, 50, 50}},
		{"Very large coordinates", Rect{0, 0, 999999, 999999}, Rect{500000, 500000, 999999, 999999}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateIoU(tt.r1, tt.r2)
			assert.False(t, math.IsNaN(result))
			assert.GreaterOrEqual(t, result, 0.0)
			assert.LessOrEqual(t, result, 1.0)

			reverse := CalculateIoU(tt.r2, tt.r1)
			assert.False(t, math.IsNaN(reverse))
			assert.GreaterOrEqual(t, reverse, 0.0)
			assert.LessOrEqual(t, reverse, 1.0)
		})
	}
}

func TestIoU_ShiftedFullyAway(t *testing.T) {
	box := Rect{10, 20, 110, 220}
	shifted := Rect{box.X1 + box.Width() + 1, box.Y1, box.X2 + box.Width() + 1, box.Y2}

	assert.Equal(t, 1.0, CalculateIoU(box, box))
	assert.Equal(t, 0.0, CalculateIoU(box, shifted))
}

func TestIsValidSize(t *testing.T) {
	box := Rect{0, 0, 100, 100} // 10_000 px²

	tests := []struct {
		name      string
		imageArea float64
		min, max  float64
		expected  bool
	}{
		{"Inside range", 100_000, 0.05, 0.5, true},
		{"Exactly min", 100_000, 0.1, 0.5, true},
		{"Exactly max", 20_000, 0.1, 0.5, true},
		{"Too small", 1_000_000, 0.05, 0.5, false},
		{"Too large", 10_000, 0.05, 0.5, false},
		{"Zero image area", 0, 0, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsValidSize(box, tt.imageArea, tt.min, tt.max))
		})
	}
}

func TestIsValidAspect(t *testing.T) {
	portrait := AspectRange{Min: 1.0, Max: 3.0}

	tests := []struct {
		name     string
		box      Rect
		expected bool
	}{
		{"Tall box", Rect{0, 0, 50, 100}, true},
		{"Square box is min", Rect{0, 0, 50, 50}, true},
		{"Too tall", Rect{0, 0, 10, 100}, false},
		{"Wide box", Rect{0, 0, 100, 50}, false},
		{"Zero width", Rect{10, 0, 10, 100}, false},
		{"Zero height", Rect{0, 10, 100, 10}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsValidAspect(tt.box, portrait))
		})
	}
}

func TestIsCentered(t *testing.T) {
	tests := []struct {
		name      string
		box       Rect
		threshold float64
		expected  bool
	}{
		{"Exactly centered", Rect{400, 300, 600, 500}, 0.0, true},
		{"Within threshold", Rect{450, 300, 650, 500}, 0.1, true},
		{"Horizontal offset too large", Rect{700, 300, 900, 500}, 0.1, false},
		{"Vertical offset too large", Rect{400, 0, 600, 100}, 0.1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsCentered(tt.box, 1000, 800, tt.threshold))
		})
	}

	assert.False(t, IsCentered(Rect{0, 0, 1, 1}, 0, 0, 1))
}

func TestAreaRatio(t *testing.T) {
	assert.InDelta(t, 0.25, AreaRatio(Rect{0, 0, 50, 50}, 100, 100), 1e-9)
	assert.Equal(t, 0.0, AreaRatio(Rect{0, 0, 50, 50}, 0, 100))
}
