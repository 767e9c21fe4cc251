// Package storage writes export documents to local disk or S3.
package storage

import (
	"context"
	"io"
)

// Provider stores export documents under slash-separated keys.
type Provider interface {
	// Create returns a writer for key. The object is complete only once Close
	// returns nil; a failed upload is reported by Write or Close.
	Create(ctx context.Context, key string) (io.WriteCloser, error)

	// Location returns a URL naming the stored object (file:// or s3://).
	Location(key string) string
}

// Abort discards a partially written object. Writers that cannot discard are
// closed instead.
func Abort(w io.WriteCloser, cause error) {
	if a, ok := w.(interface{ Abort(error) }); ok {
		a.Abort(cause)
		return
	}
	_ = w.Close()
}
