package audio

import (
	"context"
	"io"
)

// Store persists recorded speaking answers and resolves stored references
// back to readable streams for transcription.
type Store interface {
	Save(ctx context.Context, name string, audio io.Reader) (string, error)
	Resolve(ctx context.Context, ref string) (io.ReadCloser, error)
}
