// Package tesseract implements the OCR port with a local Tesseract engine.
package tesseract

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

type Recognizer struct{}

func New() *Recognizer {
	return &Recognizer{}
}

// Recognize runs Tesseract over the image. A fresh client per call keeps the
// cgo handle lifecycle simple; OCR latency dwarfs the setup cost.
func (r *Recognizer) Recognize(ctx context.Context, image []byte, language string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if language == "" {
		language = "por"
	}
	if err := client.SetLanguage(language); err != nil {
		return "", fmt.Errorf("set ocr language: %w", err)
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("load image for ocr: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr recognize: %w", err)
	}
	return text, nil
}
