package photo

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func decodeJPEG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func TestNormalizeAlreadyPortrait(t *testing.T) {
	out, dims, err := Normalize(encodePNG(t, solid(600, 800, color.White)))

	require.NoError(t, err)
	assert.Equal(t, Dimensions{Width: 300, Height: 400}, dims)

	img := decodeJPEG(t, out)
	assert.Equal(t, 300, img.Bounds().Dx())
	assert.Equal(t, 400, img.Bounds().Dy())
}

func TestNormalizeWideImageCenterCrops(t *testing.T) {
	// Left third red, middle third green, right third blue. A center crop of
	// a 1200x400 image keeps only the green band.
	src := image.NewRGBA(image.Rect(0, 0, 1200, 400))
	for y := 0; y < 400; y++ {
		for x := 0; x < 1200; x++ {
			switch {
			case x < 400:
				src.Set(x, y, color.RGBA{R: 255, A: 255})
			case x < 800:
				src.Set(x, y, color.RGBA{G: 255, A: 255})
			default:
				src.Set(x, y, color.RGBA{B: 255, A: 255})
			}
		}
	}

	out, _, err := Normalize(encodePNG(t, src))
	require.NoError(t, err)

	img := decodeJPEG(t, out)
	r, g, b, _ := img.At(150, 200).RGBA()
	assert.Greater(t, g, r, "center of crop should come from the green band")
	assert.Greater(t, g, b, "center of crop should come from the green band")
}

func TestNormalizeTallImageTopBias(t *testing.T) {
	// 300x1000: crop height is 400, excess 600, top bias 20% => crop starts
	// at y=120 and ends at y=520. Rows above 100 are white, rows from 100
	// down are black, so the whole crop is black.
	src := image.NewRGBA(image.Rect(0, 0, 300, 1000))
	for y := 0; y < 1000; y++ {
		for x := 0; x < 300; x++ {
			if y < 100 {
				src.Set(x, y, color.White)
			} else {
				src.Set(x, y, color.Black)
			}
		}
	}

	out, _, err := Normalize(encodePNG(t, src))
	require.NoError(t, err)

	img := decodeJPEG(t, out)
	r, _, _, _ := img.At(150, 10).RGBA()
	assert.Less(t, r, uint32(20000), "crop should start below the white header band")
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	_, _, err := Normalize([]byte("not an image"))
	assert.Error(t, err)
}
