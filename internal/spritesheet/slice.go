// Package spritesheet cuts a generated composite into per-label sprites.
package spritesheet

import (
	"fmt"
	"image"
	"image/draw"

	"vnforge/internal/generation"
	"vnforge/internal/services"
)

// Cell is one labelled region of a composite.
type Cell struct {
	Label  string
	Row    int
	Col    int
	Bounds image.Rectangle
}

// Layout computes the cell rectangles for labels laid out row-major on the
// composite's grid. Every cell is exactly W/cols by H/rows pixels; the
// remainder on the right and bottom edges is dropped.
func Layout(c *generation.Composite, labels []string) ([]Cell, error) {
	if c == nil || c.Image == nil {
		return nil, services.Wrap(services.ErrLayoutMismatch, "spritesheet", "layout", "composite has no image", nil)
	}
	grid := c.Grid
	if grid.Rows < 1 || grid.Cols < 1 {
		return nil, services.Wrap(services.ErrLayoutMismatch, "spritesheet", "layout",
			fmt.Sprintf("invalid grid %s", grid), nil)
	}
	if len(labels) != grid.Cells() {
		return nil, services.Wrap(services.ErrLayoutMismatch, "spritesheet", "layout",
			fmt.Sprintf("%d labels for a %s grid of %d cells", len(labels), grid, grid.Cells()), nil)
	}
	seen := make(map[string]struct{}, len(labels))
	for _, label := range labels {
		if _, dup := seen[label]; dup {
			return nil, services.Wrap(services.ErrLayoutMismatch, "spritesheet", "layout",
				fmt.Sprintf("duplicate label %q", label), nil)
		}
		seen[label] = struct{}{}
	}

	b := c.Image.Bounds()
	cellW, cellH := b.Dx()/grid.Cols, b.Dy()/grid.Rows
	if cellW < 1 || cellH < 1 {
		return nil, services.Wrap(services.ErrLayoutMismatch, "spritesheet", "layout",
			fmt.Sprintf("%dx%d image cannot hold a %s grid", b.Dx(), b.Dy(), grid), nil)
	}

	cells := make([]Cell, len(labels))
	for i, label := range labels {
		row, col := i/grid.Cols, i%grid.Cols
		min := image.Pt(b.Min.X+col*cellW, b.Min.Y+row*cellH)
		cells[i] = Cell{
			Label:  label,
			Row:    row,
			Col:    col,
			Bounds: image.Rectangle{Min: min, Max: min.Add(image.Pt(cellW, cellH))},
		}
	}
	return cells, nil
}

// Slice copies every cell into its own origin-based image keyed by label.
// Pixels are copied verbatim, so identical composites always yield identical
// sprites.
func Slice(c *generation.Composite, labels []string) (map[string]*image.NRGBA, error) {
	cells, err := Layout(c, labels)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*image.NRGBA, len(cells))
	for _, cell := range cells {
		dst := image.NewNRGBA(image.Rect(0, 0, cell.Bounds.Dx(), cell.Bounds.Dy()))
		draw.Draw(dst, dst.Bounds(), c.Image, cell.Bounds.Min, draw.Src)
		out[cell.Label] = dst
	}
	return out, nil
}
