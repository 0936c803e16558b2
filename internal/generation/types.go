package generation

import (
	"fmt"
	"image"
	"strings"
)

// Kind selects the prompt family and aspect-ratio class of a request.
type Kind string

const (
	KindBackground Kind = "background"
	KindCharacter  Kind = "character"
)

// MaxEmotions bounds the number of cells requested in one composite.
const MaxEmotions = 12

// Request describes one generation call.
type Request struct {
	Kind        Kind
	Description string
	// Emotions is the ordered label list for character sheets. Ignored for
	// backgrounds.
	Emotions []string
	// Optional hints folded into the prompt.
	CharacterName string
	Pose          string
	Style         string
}

// Validate checks the request before any network traffic happens.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Description) == "" {
		return fmt.Errorf("description must not be empty")
	}
	switch r.Kind {
	case KindBackground:
		return nil
	case KindCharacter:
	default:
		return fmt.Errorf("unsupported kind %q", r.Kind)
	}
	if len(r.Emotions) == 0 {
		return fmt.Errorf("character requests need at least one emotion")
	}
	if len(r.Emotions) > MaxEmotions {
		return fmt.Errorf("at most %d emotions per sheet, got %d", MaxEmotions, len(r.Emotions))
	}
	seen := make(map[string]struct{}, len(r.Emotions))
	for _, emotion := range r.Emotions {
		if strings.TrimSpace(emotion) == "" {
			return fmt.Errorf("emotion labels must not be empty")
		}
		if _, dup := seen[emotion]; dup {
			return fmt.Errorf("duplicate emotion %q", emotion)
		}
		seen[emotion] = struct{}{}
	}
	return nil
}

// Grid is the row-major cell layout agreed with the provider.
type Grid struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

// Cells returns the number of cells in the grid.
func (g Grid) Cells() int { return g.Rows * g.Cols }

func (g Grid) String() string { return fmt.Sprintf("%dx%d", g.Rows, g.Cols) }

// Composite is the decoded provider output plus the layout it was asked for.
type Composite struct {
	Image       image.Image
	Grid        Grid
	AspectRatio Ratio
	// Labels holds the emotion order used in the prompt, one per cell.
	Labels   []string
	MIMEType string
	// Notes carries any text the provider returned alongside the image.
	Notes string
}

// CellSize returns the per-cell dimensions for the measured image, with
// remainder pixels dropped.
func (c *Composite) CellSize() (int, int) {
	b := c.Image.Bounds()
	if c.Grid.Cols == 0 || c.Grid.Rows == 0 {
		return 0, 0
	}
	return b.Dx() / c.Grid.Cols, b.Dy() / c.Grid.Rows
}
