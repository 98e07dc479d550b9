package engine

import (
	"fmt"
	"image"

	"github.com/nfnt/resize"
)

// ToCHW stretches img onto a size x size RGB input and writes it into dst as
// planar float32 values in [0,1]. dst must hold at least 3*size*size values.
func ToCHW(img image.Image, size int, dst []float32) (Frame, error) {
	if img == nil {
		return Frame{}, fmt.Errorf("nil image")
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return Frame{}, fmt.Errorf("empty image")
	}

	plane := size * size
	if len(dst) < plane*3 {
		return Frame{}, fmt.Errorf("destination holds %d floats, needs %d", len(dst), plane*3)
	}
	red := dst[0:plane]
	green := dst[plane : plane*2]
	blue := dst[plane*2 : plane*3]

	resized := resize.Resize(uint(size), uint(size), img, resize.Bilinear)
	rb := resized.Bounds()

	i := 0
	for y := rb.Min.Y; y < rb.Min.Y+size; y++ {
		for x := rb.Min.X; x < rb.Min.X+size; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			red[i] = float32(r>>8) / 255.0
			green[i] = float32(g>>8) / 255.0
			blue[i] = float32(b>>8) / 255.0
			i++
		}
	}

	return NewFrame(bounds, size), nil
}
