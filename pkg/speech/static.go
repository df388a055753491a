package speech

import (
	"context"
	"io"
	"math/rand"
)

// canned transcripts used when no speech-to-text provider is configured.
var simulatedTranscripts = []string{
	"I believe that technology has improved our lives significantly.",
	"My favorite hobby is playing football because it is very exciting.",
}

// StaticTranscriber returns canned transcripts. It exists for demo and local
// development setups without a speech-to-text provider; production setups
// should prefer surfacing ErrUnavailable over synthetic text.
type StaticTranscriber struct{}

// NewStaticTranscriber constructs the canned transcriber.
func NewStaticTranscriber() *StaticTranscriber {
	return &StaticTranscriber{}
}

// Transcribe discards the audio and returns one of the canned transcripts.
func (t *StaticTranscriber) Transcribe(_ context.Context, _ string, _ io.Reader) (string, error) {
	return simulatedTranscripts[rand.Intn(len(simulatedTranscripts))], nil
}
