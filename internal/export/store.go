// Package export writes CSV snapshots of a team's items to object storage.
package export

import (
	"context"
	"io"
)

// Store abstracts the destination of exported files. The S3 implementation
// is used in production; the filesystem implementation in tests.
type Store interface {
	// Put writes the content under the given key and returns when the
	// object is durably stored.
	Put(ctx context.Context, key string, contentType string, body io.Reader) error
}
