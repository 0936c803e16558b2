package generation

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"vnforge/internal/services"
)

type fakeModels struct {
	resp   *genai.GenerateContentResponse
	err    error
	delay  time.Duration
	model  string
	prompt string
	config *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.config = config
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompt = contents[0].Parts[0].Text
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.resp, f.err
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 240, G: 240, B: 240, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func imageResponse(data []byte, text string) *genai.GenerateContentResponse {
	parts := []*genai.Part{}
	if text != "" {
		parts = append(parts, &genai.Part{Text: text})
	}
	parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: "image/png", Data: data}})
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts}}},
	}
}

func characterRequest() Request {
	return Request{
		Kind:        KindCharacter,
		Description: "friendly barista",
		Emotions:    []string{"neutral", "happy", "sad", "surprised", "angry"},
	}
}

func TestGenerateCharacterComposite(t *testing.T) {
	fake := &fakeModels{resp: imageResponse(pngBytes(t, 1050, 450), "here you go")}
	client := New(fake, "test-model")

	composite, err := client.Generate(context.Background(), characterRequest())
	require.NoError(t, err)

	assert.Equal(t, "test-model", fake.model)
	require.NotNil(t, fake.config.ImageConfig)
	assert.Equal(t, "21:9", fake.config.ImageConfig.AspectRatio)
	assert.Equal(t, []string{"IMAGE", "TEXT"}, fake.config.ResponseModalities)
	assert.Contains(t, fake.prompt, "friendly barista")

	assert.Equal(t, Grid{Rows: 1, Cols: 5}, composite.Grid)
	assert.Equal(t, characterRequest().Emotions, composite.Labels)
	assert.Equal(t, "here you go", composite.Notes)
	w, h := composite.CellSize()
	assert.Equal(t, 210, w)
	assert.Equal(t, 450, h)
}

func TestGenerateBackground(t *testing.T) {
	fake := &fakeModels{resp: imageResponse(pngBytes(t, 160, 90), "")}
	composite, err := New(fake, "m").Generate(context.Background(), Request{Kind: KindBackground, Description: "cafe"})
	require.NoError(t, err)
	assert.Equal(t, "16:9", fake.config.ImageConfig.AspectRatio)
	assert.Equal(t, Grid{1, 1}, composite.Grid)
	assert.Equal(t, []string{"background"}, composite.Labels)
}

func TestGenerateFailures(t *testing.T) {
	tests := []struct {
		name string
		fake *fakeModels
	}{
		{"provider error", &fakeModels{err: errors.New("quota exceeded")}},
		{"no candidates", &fakeModels{resp: &genai.GenerateContentResponse{}}},
		{"text only", &fakeModels{resp: &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{{Text: "I cannot draw that"}}}}},
		}}},
		{"undecodable", &fakeModels{resp: imageResponse([]byte("garbage"), "")}},
		{"wrong aspect", &fakeModels{resp: imageResponse(pngBytes(t, 100, 100), "")}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.fake, "m").Generate(context.Background(), characterRequest())
			require.Error(t, err)
			assert.True(t, errors.Is(err, services.ErrGeneration), "got %v", err)
		})
	}
}

func TestGenerateProviderMessagePreserved(t *testing.T) {
	fake := &fakeModels{err: errors.New("quota exceeded")}
	_, err := New(fake, "m").Generate(context.Background(), characterRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestGenerateTimeout(t *testing.T) {
	fake := &fakeModels{delay: time.Second, resp: imageResponse(pngBytes(t, 10, 10), "")}
	client := New(fake, "m", WithTimeout(20*time.Millisecond))
	_, err := client.Generate(context.Background(), characterRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrGeneration))
	assert.Contains(t, err.Error(), "timed out")
}

func TestGenerateRejectsInvalidRequest(t *testing.T) {
	fake := &fakeModels{}
	_, err := New(fake, "m").Generate(context.Background(), Request{Kind: KindCharacter, Description: "x"})
	assert.True(t, errors.Is(err, services.ErrValidation))
	assert.Empty(t, fake.model, "provider must not be called")
}

func TestNewGeminiRequiresKey(t *testing.T) {
	_, err := NewGemini(context.Background(), " ", "m")
	assert.True(t, errors.Is(err, services.ErrConfiguration))
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"abcdef", 3, "abc..."},
		{"abécd", 3, "ab..."},
		{"日本語", 4, "日..."},
		{"日本", 1, "..."},
	}
	for _, tt := range tests {
		got := truncate(tt.in, tt.n)
		assert.Equal(t, tt.want, got, "truncate(%q, %d)", tt.in, tt.n)
		assert.True(t, utf8.ValidString(got))
	}
}
