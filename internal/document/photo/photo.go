// Package photo normalizes badge photos to the 3:4 portrait format.
package photo

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/nfnt/resize"

	_ "image/png"

	_ "golang.org/x/image/webp"
)

const (
	targetWidth  = 300
	targetHeight = 400
	jpegQuality  = 85
)

// Dimensions describes the normalized output.
type Dimensions struct {
	Width  int `json:"largura"`
	Height int `json:"altura"`
}

// Normalize crops and scales a photo to 300x400 JPEG. Images wider than 3:4
// are center-cropped; taller images are cropped with a top bias so faces
// framed in the upper portion survive the crop.
func Normalize(data []byte) ([]byte, Dimensions, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, Dimensions{}, fmt.Errorf("decode photo: %w", err)
	}

	cropped := cropToRatio(src)
	scaled := resize.Resize(targetWidth, targetHeight, cropped, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, Dimensions{}, fmt.Errorf("encode photo: %w", err)
	}
	return buf.Bytes(), Dimensions{Width: targetWidth, Height: targetHeight}, nil
}

// cropToRatio cuts the largest 3:4 region out of src.
func cropToRatio(src image.Image) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	// Current vs. target aspect: 3/4 == 0.75.
	if w*4 == h*3 {
		return src
	}

	var rect image.Rectangle
	if w*4 > h*3 {
		// Too wide: keep full height, center-crop the width.
		cropW := h * 3 / 4
		x0 := bounds.Min.X + (w-cropW)/2
		rect = image.Rect(x0, bounds.Min.Y, x0+cropW, bounds.Max.Y)
	} else {
		// Too tall: keep full width, crop with a top bias of 20% of the
		// excess height.
		cropH := w * 4 / 3
		y0 := bounds.Min.Y + (h-cropH)/5
		rect = image.Rect(bounds.Min.X, y0, bounds.Max.X, y0+cropH)
	}

	type subImager interface {
		SubImage(image.Rectangle) image.Image
	}
	if si, ok := src.(subImager); ok {
		return si.SubImage(rect)
	}

	// Fallback for decoders without SubImage support.
	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	for y := 0; y < rect.Dy(); y++ {
		for x := 0; x < rect.Dx(); x++ {
			dst.Set(x, y, src.At(rect.Min.X+x, rect.Min.Y+y))
		}
	}
	return dst
}
