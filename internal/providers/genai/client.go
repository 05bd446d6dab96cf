package genai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	genaisdk "google.golang.org/genai"

	"passportphoto/internal/domain"
	"passportphoto/internal/imagecodec"
	"passportphoto/internal/infra"
)

const (
	// DefaultModel is the Gemini model able to return edited images.
	DefaultModel = "gemini-2.5-flash-image"

	responseModalityImage = "IMAGE"
	defaultTimeout        = 120 * time.Second
)

// MissingKeyMessage is surfaced when no credential is configured.
const MissingKeyMessage = "GEMINI_API_KEY environment variable not set. Please configure it to use the Gemini API."

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client wraps a single image-in, image-out exchange with Gemini. A client
// without an API key is valid; every Transform on it fails with a
// configuration error before any network access.
type Client struct {
	apiKey string
	model  string
	sdk    *genaisdk.Client
	logger *infra.Logger
}

// NewClient constructs a Gemini client with sane defaults. Callers may provide
// a nil HTTP client; one bounded by opts.Timeout is created.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	model := strings.TrimPrefix(strings.TrimSpace(opts.Model), "models/")
	if model == "" {
		model = DefaultModel
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}

	c := &Client{
		apiKey: strings.TrimSpace(opts.APIKey),
		model:  model,
		logger: logger,
	}
	if c.apiKey == "" {
		return c, nil
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	cfg := &genaisdk.ClientConfig{
		APIKey:     c.apiKey,
		Backend:    genaisdk.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if baseURL := strings.TrimSpace(opts.BaseURL); baseURL != "" {
		cfg.HTTPOptions = genaisdk.HTTPOptions{BaseURL: strings.TrimRight(baseURL, "/") + "/"}
	}
	sdk, err := genaisdk.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("genai: create client: %w", err)
	}
	c.sdk = sdk
	return c, nil
}

// Model returns the configured Gemini model identifier.
func (c *Client) Model() string {
	return c.model
}

// Configured reports whether a credential is present.
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != "" && c.sdk != nil
}

// Transform sends one image plus an instruction and returns the first inline
// image found in the response.
func (c *Client) Transform(ctx context.Context, encoded domain.EncodedImage, mimeType, instruction string) (domain.EncodedImage, error) {
	if !c.Configured() {
		return "", domain.ConfigurationError(MissingKeyMessage)
	}
	if err := ctx.Err(); err != nil {
		return "", domain.RemoteTransformError(err)
	}
	data, err := imagecodec.Decode(encoded)
	if err != nil {
		return "", domain.ReadError("Failed to decode the image payload.", err)
	}

	contents := []*genaisdk.Content{
		genaisdk.NewContentFromParts([]*genaisdk.Part{
			genaisdk.NewPartFromBytes(data, mimeType),
			genaisdk.NewPartFromText(instruction),
		}, genaisdk.RoleUser),
	}
	config := &genaisdk.GenerateContentConfig{
		ResponseModalities: []string{responseModalityImage},
	}

	start := time.Now()
	resp, err := c.sdk.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		c.logger.Error().
			Err(err).
			Str("model", c.model).
			Dur("elapsed", time.Since(start)).
			Msg("genai: generate content failed")
		return "", domain.RemoteTransformError(describeAPIError(err))
	}

	out, ok := firstInlineImage(resp)
	if !ok {
		c.logger.Warn().
			Str("model", c.model).
			Int("candidates", len(resp.Candidates)).
			Msg("genai: response carried no image part")
		return "", domain.EmptyResponseError()
	}

	c.logger.Debug().
		Str("model", c.model).
		Str("input_mime", mimeType).
		Int("input_bytes", len(data)).
		Int("output_bytes", len(out)).
		Dur("elapsed", time.Since(start)).
		Msg("genai: transformed image")

	return imagecodec.EncodeBytes(out), nil
}

func firstInlineImage(resp *genaisdk.GenerateContentResponse) ([]byte, bool) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, false
	}
	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return nil, false
	}
	for _, part := range candidate.Content.Parts {
		if part == nil || part.InlineData == nil {
			continue
		}
		if len(part.InlineData.Data) > 0 {
			return part.InlineData.Data, true
		}
	}
	return nil, false
}

// describeAPIError keeps the API's own message when one is available.
func describeAPIError(err error) error {
	var apiErr genaisdk.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return fmt.Errorf("gemini status %d: %s", apiErr.Code, apiErr.Message)
	}
	return err
}
