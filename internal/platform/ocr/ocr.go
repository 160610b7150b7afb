// Package ocr abstracts the text-recognition engine used to validate
// residency proofs.
package ocr

import "context"

// Recognizer extracts text from an image.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, language string) (string, error)
}
