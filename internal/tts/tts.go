// Package tts synthesizes narration through a VOICEVOX compatible HTTP service.
package tts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Audio is synthesized speech. Duration is measured from the decoded payload.
type Audio struct {
	Data       []byte
	Format     string
	SampleRate int
	Duration   time.Duration
}

// Synthesizer turns text into speech. Implementations must be safe for concurrent use.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (Audio, error)
}

type ErrorKind string

const Unavailable ErrorKind = "unavailable"

// SynthesisError is returned for any failed synthesis request.
// Index is the segment index, or -1 when the call was not tied to a segment.
type SynthesisError struct {
	Kind  ErrorKind
	Index int
	Err   error
}

func (e *SynthesisError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("synthesis %s (segment %d): %v", e.Kind, e.Index+1, e.Err)
	}
	return fmt.Sprintf("synthesis %s: %v", e.Kind, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

func unavailable(index int, err error) *SynthesisError {
	var se *SynthesisError
	if errors.As(err, &se) {
		return &SynthesisError{Kind: se.Kind, Index: index, Err: se.Err}
	}
	return &SynthesisError{Kind: Unavailable, Index: index, Err: err}
}

// SynthesizeAll synthesizes texts with at most workers requests in flight.
// Results are returned in input order. The first failure cancels the
// remaining requests and is returned with the failing segment index.
func SynthesizeAll(ctx context.Context, s Synthesizer, texts []string, workers int) ([]Audio, error) {
	if workers <= 0 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	out := make([]Audio, len(texts))
	for i, text := range texts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return unavailable(i, err)
			}
			a, err := s.Synthesize(gctx, text)
			if err != nil {
				return unavailable(i, err)
			}
			out[i] = a
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
