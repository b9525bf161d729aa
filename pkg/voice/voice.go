// Package voice turns assistant replies into speech. Synthesis is
// strictly best-effort: the chat pipeline never blocks or fails on it.
package voice

import (
	"context"
	"encoding/base64"
	"errors"
)

// ErrSynthesis wraps failures from the speech backend.
var ErrSynthesis = errors.New("voice: synthesis failed")

// Synthesizer renders text to encoded audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// DataURL encodes MPEG audio as a data URL embeddable in a JSON
// response, sparing clients a second fetch.
func DataURL(audio []byte) string {
	if len(audio) == 0 {
		return ""
	}
	return "data:audio/mpeg;base64," + base64.StdEncoding.EncodeToString(audio)
}

// Noop is a Synthesizer that produces no audio. Used when no speech
// backend is configured.
type Noop struct{}

func (Noop) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return nil, nil
}

var _ Synthesizer = Noop{}
