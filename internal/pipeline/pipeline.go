// Package pipeline runs the two dependent Gemini passes that turn a portrait
// into a passport photo.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"passportphoto/internal/domain"
	"passportphoto/internal/imagecodec"
	"passportphoto/internal/infra"
)

// ErrNoSource is returned when Run is called without a source image.
var ErrNoSource = errors.New("pipeline: no source image")

// Stage is the lifecycle of one pipeline run.
type Stage int

const (
	Idle Stage = iota
	Stage1
	Stage2
	Done
	Failed
)

func (s Stage) String() string {
	switch s {
	case Idle:
		return "idle"
	case Stage1:
		return "stage1"
	case Stage2:
		return "stage2"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Transformer is the remote image capability.
type Transformer interface {
	Transform(ctx context.Context, encoded domain.EncodedImage, mimeType, instruction string) (domain.EncodedImage, error)
}

// Observer is notified on every stage transition.
type Observer func(from, to Stage)

// Pipeline sequences the composition pass and the lighting pass. A Pipeline
// is reusable; each Run starts again from Idle.
//
// Runs on one Pipeline must not overlap; the controller's busy flag
// guarantees that.
type Pipeline struct {
	transformer Transformer
	logger      *infra.Logger
	observer    Observer

	mu    sync.Mutex
	stage Stage
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithObserver registers a transition callback.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// WithLogger sets the logger used for stage transitions.
func WithLogger(l *infra.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

func New(t Transformer, opts ...Option) *Pipeline {
	p := &Pipeline{transformer: t}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		p.logger = &l
	}
	return p
}

// Stage returns the state of the most recent run.
func (p *Pipeline) Stage() Stage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stage
}

// Run executes both passes. Stage 2 only ever sees Stage 1's output, and a
// failure in either pass leaves no partial result.
func (p *Pipeline) Run(ctx context.Context, src *domain.SourceImage) (domain.EncodedImage, error) {
	if src == nil {
		return "", ErrNoSource
	}
	start := time.Now()
	p.mu.Lock()
	p.stage = Idle
	p.mu.Unlock()
	p.transition(Stage1)

	encoded, err := imagecodec.Encode(src.Reader())
	if err != nil {
		return p.fail(err)
	}
	composed, err := p.transformer.Transform(ctx, encoded, src.MIMEType, CompositionInstruction)
	if err != nil {
		return p.fail(err)
	}

	p.transition(Stage2)
	lit, err := p.transformer.Transform(ctx, composed, IntermediateMIMEType, LightingInstruction)
	if err != nil {
		return p.fail(err)
	}

	p.transition(Done)
	p.logger.Info().
		Str("source", src.Name).
		Int("source_bytes", src.Size()).
		Dur("elapsed", time.Since(start)).
		Msg("pipeline: correction finished")
	return lit, nil
}

func (p *Pipeline) fail(err error) (domain.EncodedImage, error) {
	from := p.transition(Failed)
	p.logger.Warn().
		Err(err).
		Str("stage", from.String()).
		Msg("pipeline: correction failed")
	return "", err
}

func (p *Pipeline) transition(to Stage) Stage {
	p.mu.Lock()
	from := p.stage
	p.stage = to
	observer := p.observer
	p.mu.Unlock()

	p.logger.Debug().Str("from", from.String()).Str("to", to.String()).Msg("pipeline: stage")
	if observer != nil {
		observer(from, to)
	}
	return from
}
