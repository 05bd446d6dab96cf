// Package controller owns the UI state of one user: the selected photo, its
// preview, the corrected result, the busy flag and the error banner.
package controller

import (
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"passportphoto/internal/domain"
	"passportphoto/internal/imagecodec"
	"passportphoto/internal/infra"
	"passportphoto/internal/pipeline"
	"passportphoto/internal/render"
)

// ErrorPrefix qualifies every pipeline failure shown to the user.
const ErrorPrefix = "Failed to process image. "

// Runner executes the correction pipeline.
type Runner interface {
	Run(ctx context.Context, src *domain.SourceImage) (domain.EncodedImage, error)
	Stage() pipeline.Stage
}

// State is a snapshot of the UI state. Result and Error are never both set.
type State struct {
	Source          *domain.SourceImage
	OriginalPreview string
	Result          string
	Busy            bool
	Error           string
	Stage           pipeline.Stage
	Version         uint64 // bumped whenever a new image is selected
}

// HasResult reports whether a corrected image is available.
func (s State) HasResult() bool { return s.Result != "" }

type Controller struct {
	runner Runner
	logger *infra.Logger

	mu         sync.Mutex
	state      State
	generation uint64
	done       chan struct{}
}

func New(runner Runner, logger *infra.Logger) *Controller {
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Controller{runner: runner, logger: logger}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	if c.runner != nil {
		s.Stage = c.runner.Stage()
	}
	return s
}

// SelectImage replaces the source image and clears any result or error.
func (c *Controller) SelectImage(src domain.SourceImage) {
	preview := imagecodec.DataURI(src.MIMEType, imagecodec.EncodeBytes(src.Data))

	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.state.Version = c.generation
	c.state.Source = &src
	c.state.OriginalPreview = preview
	c.state.Result = ""
	c.state.Error = ""
	c.logger.Debug().
		Str("name", src.Name).
		Str("mime", src.MIMEType).
		Int("bytes", src.Size()).
		Msg("controller: image selected")
}

// RunCorrection runs the pipeline on the calling goroutine. It returns false
// without touching the state when no image is selected or a run is already
// in flight.
func (c *Controller) RunCorrection(ctx context.Context) bool {
	src, gen, ok := c.begin()
	if !ok {
		return false
	}
	c.execute(ctx, src, gen)
	return true
}

// StartCorrection is RunCorrection on a new goroutine. The run is detached
// from ctx cancellation; values carried by ctx are kept.
func (c *Controller) StartCorrection(ctx context.Context) bool {
	src, gen, ok := c.begin()
	if !ok {
		return false
	}
	runCtx := context.WithoutCancel(ctx)
	go c.execute(runCtx, src, gen)
	return true
}

// Wait blocks until the in-flight run, if any, has completed.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) begin() (*domain.SourceImage, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Source == nil || c.state.Busy {
		return nil, 0, false
	}
	c.state.Busy = true
	c.state.Result = ""
	c.state.Error = ""
	c.done = make(chan struct{})
	return c.state.Source, c.generation, true
}

func (c *Controller) execute(ctx context.Context, src *domain.SourceImage, gen uint64) {
	out, err := c.runner.Run(ctx, src)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Busy = false
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
	if gen != c.generation {
		// A newer image was selected while this run was in flight.
		c.logger.Debug().Msg("controller: discarding outcome for replaced image")
		return
	}
	if err != nil {
		c.state.Result = ""
		c.state.Error = ErrorPrefix + err.Error()
		return
	}
	c.state.Error = ""
	c.state.Result = imagecodec.DataURI(pipeline.IntermediateMIMEType, out)
}

// DownloadResult converts the current result into the JPEG offered for
// download. A result that cannot be converted is dropped and replaced by the
// error, so result and error stay exclusive.
func (c *Controller) DownloadResult() ([]byte, error) {
	c.mu.Lock()
	result := c.state.Result
	busy := c.state.Busy
	c.mu.Unlock()

	if busy {
		return nil, domain.DownloadError("The image is still being processed.", nil)
	}
	out, err := downloadJPEG(result)
	if err != nil {
		c.mu.Lock()
		if c.state.Result == result && !c.state.Busy {
			c.state.Result = ""
			c.state.Error = err.Error()
		}
		c.mu.Unlock()
		c.logger.Warn().Err(err).Msg("controller: download failed")
		return nil, err
	}
	return out, nil
}

// ResultImage returns the decoded result bytes and MIME type.
func (c *Controller) ResultImage() (string, []byte, bool) {
	c.mu.Lock()
	result := c.state.Result
	c.mu.Unlock()
	if result == "" {
		return "", nil, false
	}
	mimeType, data, err := imagecodec.ParseDataURI(result)
	if err != nil {
		return "", nil, false
	}
	return mimeType, data, true
}

func downloadJPEG(result string) ([]byte, error) {
	if result == "" {
		return nil, domain.DownloadError("There is no corrected image to download.", nil)
	}
	_, data, err := imagecodec.ParseDataURI(result)
	if err != nil {
		return nil, domain.DownloadError("Failed to load the edited image for download.", err)
	}
	out, _, err := render.JPEG(data, render.DownloadQuality)
	if err != nil {
		return nil, err
	}
	return out, nil
}
