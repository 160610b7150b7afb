// Package imagecheck scores uploaded document images for legibility before
// anything is persisted.
package imagecheck

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"math"

	// Registered decoders for the accepted upload formats.
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"
)

// Result is the outcome of a quality validation run.
//
// IsValid requires both a score of at least 60 AND an empty issue list: a
// document can clear the score bar and still be rejected because a discrete
// check fired. Callers must not relax this to score-only.
type Result struct {
	IsValid bool     `json:"isValid"`
	Score   int      `json:"score"`
	Issues  []string `json:"issues"`
	Details Details  `json:"details"`
}

// Details carries the raw measurements for diagnostics and API responses.
type Details struct {
	Width      int     `json:"width,omitempty"`
	Height     int     `json:"height,omitempty"`
	Format     string  `json:"format,omitempty"`
	Size       int     `json:"size,omitempty"`
	Sharpness  float64 `json:"sharpness,omitempty"`
	Brightness float64 `json:"brightness,omitempty"`
}

const (
	minWidth  = 800
	minHeight = 600

	minSize = 50 * 1024
	maxSize = 10 * 1024 * 1024

	passingScore = 60

	// Measurement happens on a bounded copy; analysis quality is unaffected
	// while keeping large uploads cheap.
	analysisMaxDim = 800
)

// Validator measures an uploaded image and applies the acceptance checks.
type Validator struct{}

func New() *Validator { return &Validator{} }

// Validate decodes and scores raw image bytes. Every check deducts from a
// starting score of 100 (floored at 0) and appends a plain-language issue the
// candidate can act on.
func (v *Validator) Validate(data []byte) Result {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Result{
			IsValid: false,
			Score:   0,
			Issues:  []string{"Erro ao processar imagem. Verifique se o arquivo está correto."},
		}
	}

	bounds := img.Bounds()
	details := Details{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Format: format,
		Size:   len(data),
	}

	issues := []string{}
	score := 100

	if details.Width < minWidth || details.Height < minHeight {
		issues = append(issues, fmt.Sprintf(
			"Resolução muito baixa (%dx%d). Mínimo recomendado: %dx%dpx",
			details.Width, details.Height, minWidth, minHeight))
		score -= 30
	}

	if details.Size < minSize {
		issues = append(issues, "Arquivo muito pequeno. Pode estar com baixa qualidade.")
		score -= 20
	}
	if details.Size > maxSize {
		issues = append(issues, "Arquivo muito grande. Considere comprimir a imagem.")
		score -= 10
	}

	switch format {
	case "jpeg", "png", "webp":
	default:
		issues = append(issues, fmt.Sprintf("Formato não suportado (%s). Use JPEG, PNG ou WebP.", format))
		score -= 40
	}

	gray := grayscale(bound(img))
	details.Sharpness = estimateSharpness(gray)
	details.Brightness = estimateBrightness(bound(img))

	if details.Sharpness < 30 {
		issues = append(issues, "Imagem muito embaçada ou desfocada. Tire outra foto com mais nitidez.")
		score -= 40
	} else if details.Sharpness < 50 {
		issues = append(issues, "Imagem um pouco embaçada. Recomendamos tirar outra foto.")
		score -= 20
	}

	if details.Brightness < 50 {
		issues = append(issues, "Imagem muito escura. Tire a foto com mais iluminação.")
		score -= 25
	} else if details.Brightness > 230 {
		issues = append(issues, "Imagem muito clara/estourada. Reduza a exposição.")
		score -= 25
	}

	// Practically black or white means illegible regardless of everything else.
	if details.Brightness < 10 {
		issues = append(issues, "Imagem praticamente preta. Documento ilegível.")
		score -= 50
	} else if details.Brightness > 245 {
		issues = append(issues, "Imagem praticamente branca. Documento ilegível.")
		score -= 50
	}

	if score < 0 {
		score = 0
	}

	return Result{
		IsValid: score >= passingScore && len(issues) == 0,
		Score:   score,
		Issues:  issues,
		Details: details,
	}
}

// bound scales the image down so measurement cost stays bounded.
func bound(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() <= analysisMaxDim && b.Dy() <= analysisMaxDim {
		return img
	}
	return resize.Thumbnail(analysisMaxDim, analysisMaxDim, img, resize.Bilinear)
}

func grayscale(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray
}

// estimateSharpness approximates edge strength with the standard deviation of
// the grayscale values, normalized to 0-100. Flat (blurred) images have low
// variance; detailed ones spread wide.
func estimateSharpness(gray *image.Gray) float64 {
	pix := gray.Pix
	if len(pix) == 0 {
		return 0
	}

	var sum, sumSq float64
	for _, p := range pix {
		v := float64(p)
		sum += v
		sumSq += v * v
	}
	n := float64(len(pix))
	mean := sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}

	sharpness := math.Sqrt(variance) * 0.5
	if sharpness > 100 {
		sharpness = 100
	}
	return sharpness
}

// estimateBrightness is the mean of the per-channel means, on a 0-255 scale.
func estimateBrightness(img image.Image) float64 {
	b := img.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return 128
	}

	var sumR, sumG, sumB float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			sumR += float64(r >> 8)
			sumG += float64(g >> 8)
			sumB += float64(bl >> 8)
		}
	}
	n := float64(total)
	return (sumR/n + sumG/n + sumB/n) / 3
}
