package speech

import (
	"context"
	"errors"
	"io"
)

// ErrUnavailable signals that transcription could not be performed at all,
// as opposed to producing an empty transcript.
var ErrUnavailable = errors.New("speech transcription unavailable")

// Transcriber converts recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}
