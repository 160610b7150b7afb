// Package storage abstracts the blob store that holds résumés and admission
// documents. Callers only ever see the returned public URL.
package storage

import "context"

// Store persists a blob under a logical folder and returns its public URL.
type Store interface {
	Store(ctx context.Context, data []byte, folder, filename, contentType string) (string, error)
}
