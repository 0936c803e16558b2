package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"google.golang.org/genai"

	"vnforge/internal/imgutil"
	"vnforge/internal/logging"
	"vnforge/internal/services"
)

// ContentGenerator is the provider seam. *genai.Models satisfies it.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator produces composites. Client is the production implementation;
// tests substitute fakes.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Composite, error)
}

// Option customises a Client.
type Option func(*Client)

// WithTimeout bounds every provider call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "generation")
	}
}

// Client calls the image model. It holds no per-request state.
type Client struct {
	models  ContentGenerator
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// New constructs a Client around an existing generator.
func New(models ContentGenerator, model string, opts ...Option) *Client {
	c := &Client{
		models:  models,
		model:   model,
		timeout: 2 * time.Minute,
		logger:  logging.NewComponentLogger(nil, "generation"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewGemini dials the Gemini API with apiKey.
func NewGemini(ctx context.Context, apiKey, model string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "generation", "init", "gemini api key is empty", nil)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "generation", "init", "create gemini client", err)
	}
	return New(client.Models, model, opts...), nil
}

// Generate performs one provider call and decodes the returned composite.
func (c *Client) Generate(ctx context.Context, req Request) (*Composite, error) {
	if err := req.Validate(); err != nil {
		return nil, services.Wrap(services.ErrValidation, "generation", "validate request", "", err)
	}

	grid, ratio := Grid{Rows: 1, Cols: 1}, BackgroundRatio
	labels := []string{string(KindBackground)}
	if req.Kind == KindCharacter {
		var err error
		if grid, ratio, err = ChooseGrid(len(req.Emotions)); err != nil {
			return nil, services.Wrap(services.ErrValidation, "generation", "choose grid", "", err)
		}
		labels = append([]string(nil), req.Emotions...)
	}
	prompt := BuildPrompt(req, grid)

	logger := logging.WithContext(ctx, c.logger)
	logger.Info("requesting composite",
		logging.String("kind", string(req.Kind)),
		logging.String("grid", grid.String()),
		logging.String("aspect_ratio", ratio.String()),
		logging.String("model", c.model),
	)

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	started := time.Now()
	resp, err := c.models.GenerateContent(callCtx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
		ImageConfig:        &genai.ImageConfig{AspectRatio: ratio.String()},
	})
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, services.Wrap(services.ErrGeneration, "generation", "call provider",
				fmt.Sprintf("timed out after %s", c.timeout), err)
		}
		return nil, services.Wrap(services.ErrGeneration, "generation", "call provider", "", err)
	}

	blob, notes, err := extractImage(resp)
	if err != nil {
		return nil, services.Wrap(services.ErrGeneration, "generation", "parse response", "", err)
	}
	img, format, err := imgutil.Decode(blob.Data)
	if err != nil {
		return nil, services.Wrap(services.ErrGeneration, "generation", "decode image", blob.MIMEType, err)
	}
	b := img.Bounds()
	if err := checkAspect(b.Dx(), b.Dy(), ratio); err != nil {
		return nil, services.Wrap(services.ErrGeneration, "generation", "check layout", "", err)
	}

	logger.Info("composite received",
		logging.String("format", format),
		logging.Int("width", b.Dx()),
		logging.Int("height", b.Dy()),
		logging.Duration("elapsed", time.Since(started)),
	)
	return &Composite{
		Image:       img,
		Grid:        grid,
		AspectRatio: ratio,
		Labels:      labels,
		MIMEType:    blob.MIMEType,
		Notes:       notes,
	}, nil
}

// extractImage returns the first inline image of the first candidate along
// with any text parts.
func extractImage(resp *genai.GenerateContentResponse) (*genai.Blob, string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return nil, "", fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
		}
		return nil, "", errors.New("response has no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return nil, "", errors.New("candidate has no content")
	}
	var notes []string
	for _, part := range candidate.Content.Parts {
		if part == nil {
			continue
		}
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData, strings.Join(notes, "\n"), nil
		}
		if text := strings.TrimSpace(part.Text); text != "" {
			notes = append(notes, text)
		}
	}
	if len(notes) > 0 {
		return nil, "", fmt.Errorf("no image data in response (model said: %s)", truncate(strings.Join(notes, " "), 200))
	}
	return nil, "", errors.New("no image data in response")
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
