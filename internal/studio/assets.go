package studio

import (
	"context"
	"fmt"
	"strings"

	"vnforge/internal/generation"
	"vnforge/internal/imgutil"
	"vnforge/internal/logging"
	"vnforge/internal/project"
	"vnforge/internal/services"
	"vnforge/internal/spritesheet"
	"vnforge/internal/textutil"
)

// BackgroundRequest asks for one background image.
type BackgroundRequest struct {
	Project     string `json:"project"`
	Description string `json:"description"`
	Style       string `json:"style,omitempty"`
	// Name becomes images/bg_<name>.png. Derived from the description when
	// empty.
	Name string `json:"name,omitempty"`
}

// BackgroundResult reports a stored background.
type BackgroundResult struct {
	Project string `json:"project"`
	Name    string `json:"name"`
	File    string `json:"file"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Snippet string `json:"snippet"`
	Notes   string `json:"notes,omitempty"`
}

// CharacterRequest asks for one character sheet.
type CharacterRequest struct {
	Project     string   `json:"project"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Emotions    []string `json:"emotions,omitempty"`
	Pose        string   `json:"pose,omitempty"`
	Style       string   `json:"style,omitempty"`
}

// Sprite is one stored character variant.
type Sprite struct {
	Emotion  string `json:"emotion"`
	File     string `json:"file"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Degraded bool   `json:"degraded,omitempty"`
}

// CharacterResult reports the stored sprites of one character.
type CharacterResult struct {
	Project   string   `json:"project"`
	Character string   `json:"character"`
	Grid      string   `json:"grid"`
	Sprites   []Sprite `json:"sprites"`
	Snippet   string   `json:"snippet"`
	Notes     string   `json:"notes,omitempty"`
}

// Files returns the project-relative sprite paths in emotion order.
func (r *CharacterResult) Files() []string {
	files := make([]string, len(r.Sprites))
	for i, sprite := range r.Sprites {
		files[i] = sprite.File
	}
	return files
}

// GenerateBackground generates a 16:9 background and stores it as
// images/bg_<name>.png.
func (s *Studio) GenerateBackground(ctx context.Context, req BackgroundRequest) (*BackgroundResult, error) {
	ctx, logger := s.begin(ctx, "generate_background", req.Project)
	p, err := s.projects.Open(req.Project)
	if err != nil {
		return nil, err
	}
	if s.generator == nil {
		return nil, errGeneratorMissing()
	}
	name := backgroundName(req.Name, req.Description)

	composite, err := s.generator.Generate(ctx, generation.Request{
		Kind:        generation.KindBackground,
		Description: req.Description,
		Style:       req.Style,
	})
	if err != nil {
		return nil, err
	}
	img := imgutil.ToNRGBA(composite.Image)
	data, err := imgutil.EncodePNG(img)
	if err != nil {
		return nil, fmt.Errorf("encode background: %w", err)
	}
	file := "bg_" + name + ".png"
	if _, err := p.WriteImage(file, data); err != nil {
		return nil, err
	}

	b := img.Bounds()
	logger.Info("background stored",
		logging.String(logging.FieldEventType, "asset_stored"),
		logging.String("file", file),
		logging.Int("width", b.Dx()),
		logging.Int("height", b.Dy()),
	)
	return &BackgroundResult{
		Project: req.Project,
		Name:    name,
		File:    project.ImagesDir + "/" + file,
		Width:   b.Dx(),
		Height:  b.Dy(),
		Snippet: fmt.Sprintf("image bg %s = %q\n\n# usage\nscene bg %s", name, project.ImagesDir+"/"+file, name),
		Notes:   composite.Notes,
	}, nil
}

// GenerateCharacter generates every requested emotion in one composite,
// slices it, removes the background of each cell and stores
// images/<name>_<emotion>.png. Nothing is written unless every variant was
// processed.
func (s *Studio) GenerateCharacter(ctx context.Context, req CharacterRequest) (*CharacterResult, error) {
	ctx, logger := s.begin(ctx, "generate_character", req.Project)
	p, err := s.projects.Open(req.Project)
	if err != nil {
		return nil, err
	}
	name := textutil.SanitizeIdentifier(req.Name, "")
	if name == "" {
		return nil, services.Wrap(services.ErrValidation, "studio", "generate character",
			"character name required", nil)
	}
	emotions, err := s.emotions(req.Emotions)
	if err != nil {
		return nil, err
	}
	if s.generator == nil {
		return nil, errGeneratorMissing()
	}

	composite, err := s.generator.Generate(ctx, generation.Request{
		Kind:          generation.KindCharacter,
		Description:   req.Description,
		Emotions:      emotions,
		CharacterName: textutil.DisplayName(name),
		Pose:          req.Pose,
		Style:         req.Style,
	})
	if err != nil {
		return nil, err
	}
	cells, err := spritesheet.Slice(composite, emotions)
	if err != nil {
		return nil, err
	}

	type encoded struct {
		sprite Sprite
		data   []byte
	}
	outputs := make([]encoded, 0, len(emotions))
	for _, emotion := range emotions {
		cut, stats := s.remover.RemoveWithStats(cells[emotion])
		if stats.Degraded {
			logging.WarnWithContext(logger, "background left in place", "background_removal_degraded",
				logging.String("emotion", emotion),
				logging.Float64("border_coverage", stats.Coverage),
				logging.Alert("no dominant backdrop colour on the sprite border"),
			)
		}
		sprite := imgutil.ScaleToHeight(cut, s.cfg.Images.CharacterHeight)
		data, err := imgutil.EncodePNG(sprite)
		if err != nil {
			return nil, fmt.Errorf("encode %s sprite: %w", emotion, err)
		}
		file := fmt.Sprintf("%s_%s.png", name, emotion)
		outputs = append(outputs, encoded{
			sprite: Sprite{
				Emotion:  emotion,
				File:     project.ImagesDir + "/" + file,
				Width:    sprite.Bounds().Dx(),
				Height:   sprite.Bounds().Dy(),
				Degraded: stats.Degraded,
			},
			data: data,
		})
	}

	result := &CharacterResult{
		Project:   req.Project,
		Character: name,
		Grid:      composite.Grid.String(),
		Notes:     composite.Notes,
	}
	for _, out := range outputs {
		if _, err := p.WriteFile(out.sprite.File, out.data); err != nil {
			return nil, err
		}
		result.Sprites = append(result.Sprites, out.sprite)
	}
	result.Snippet = characterSnippet(name, result.Sprites)

	logger.Info("character stored",
		logging.String(logging.FieldEventType, "asset_stored"),
		logging.String("character", name),
		logging.String("grid", result.Grid),
		logging.Int("sprites", len(result.Sprites)),
	)
	return result, nil
}

// emotions resolves and normalises the requested labels, defaulting to the
// configured set.
func (s *Studio) emotions(requested []string) ([]string, error) {
	if len(requested) == 0 {
		return append([]string(nil), s.cfg.Images.Emotions...), nil
	}
	out := make([]string, 0, len(requested))
	seen := make(map[string]struct{}, len(requested))
	for _, raw := range requested {
		label := textutil.SanitizeIdentifier(raw, "")
		if label == "" {
			return nil, services.Wrap(services.ErrValidation, "studio", "generate character",
				fmt.Sprintf("emotion %q has no usable characters", raw), nil)
		}
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	if len(out) > generation.MaxEmotions {
		return nil, services.Wrap(services.ErrValidation, "studio", "generate character",
			fmt.Sprintf("at most %d emotions per character", generation.MaxEmotions), nil)
	}
	return out, nil
}

func characterSnippet(name string, sprites []Sprite) string {
	var b strings.Builder
	fmt.Fprintf(&b, "define %s = Character(%s)\n", name, textutil.RenpyString(textutil.DisplayName(name)))
	for _, sprite := range sprites {
		fmt.Fprintf(&b, "image %s %s = %q\n", name, sprite.Emotion, sprite.File)
	}
	if len(sprites) > 0 {
		fmt.Fprintf(&b, "\n# usage\nshow %s %s at center\n%s \"...\"", name, sprites[0].Emotion, name)
	}
	return b.String()
}

func backgroundName(name, description string) string {
	if cleaned := strings.TrimPrefix(textutil.SanitizeIdentifier(name, ""), "bg_"); cleaned != "" {
		return cleaned
	}
	words := strings.Fields(description)
	if len(words) > 4 {
		words = words[:4]
	}
	return textutil.SanitizeIdentifier(strings.Join(words, " "), "scene")
}

func errGeneratorMissing() error {
	return services.Wrap(services.ErrConfiguration, "studio", "generate",
		"image generation is not configured; set GEMINI_API_KEY", nil)
}
