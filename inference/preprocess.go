package inference

import (
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// Scale maps model-input coordinates back to the original image.
type Scale struct {
	X, Y float32
}

// PrepareInput resizes img to size and writes it into dst as planar RGB
// normalized to [0, 1], ready for a model call.
//
// Arguments:
//   - img: The image to prepare.
//   - size: The model input width and height.
//   - dst: The destination buffer, at least 3*size.X*size.Y floats.
//
// Returns:
//   - Scale: Factors from model-input pixels to original pixels.
//   - error: An error if dst is too small or img is empty.
func PrepareInput(img image.Image, size image.Point, dst []float32) (Scale, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return Scale{}, errors.New("empty image")
	}
	channelSize := size.X * size.Y
	if len(dst) < channelSize*3 {
		return Scale{}, errors.Errorf("destination only holds %d floats, needs %d", len(dst), channelSize*3)
	}
	red := dst[0:channelSize]
	green := dst[channelSize : channelSize*2]
	blue := dst[channelSize*2 : channelSize*3]

	resized := resize.Resize(uint(size.X), uint(size.Y), img, resize.Lanczos3)
	origin := resized.Bounds().Min

	i := 0
	for y := 0; y < size.Y; y++ {
		for x := 0; x < size.X; x++ {
			r, g, b, _ := resized.At(origin.X+x, origin.Y+y).RGBA()
			red[i] = float32(r>>8) / 255.0
			green[i] = float32(g>>8) / 255.0
			blue[i] = float32(b>>8) / 255.0
			i++
		}
	}

	return Scale{
		X: float32(bounds.Dx()) / float32(size.X),
		Y: float32(bounds.Dy()) / float32(size.Y),
	}, nil
}
