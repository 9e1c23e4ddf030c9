// Package blobstore is the binary storage collaborator. The core stores and
// forwards opaque references; layout, signing and expiry live here.
package blobstore

import (
	"context"
	"io"
)

type Store interface {
	// Put stores the buffer under a fresh opaque reference and returns it.
	Put(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (string, error)
	// URL resolves a reference to a retrievable URL.
	URL(ctx context.Context, ref string) (string, error)
}
