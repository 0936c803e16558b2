package bgremove

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	backdrop = color.NRGBA{R: 240, G: 240, B: 238, A: 255}
	figure   = color.NRGBA{R: 120, G: 30, B: 40, A: 255}
	edge     = color.NRGBA{R: 195, G: 200, B: 200, A: 255}
)

// sprite draws a figure on a flat backdrop. The figure touches the bottom
// edge, has a one pixel anti-aliased outline, and encloses a backdrop
// coloured "eye" that must survive.
func sprite() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 60, 90))
	for y := 0; y < 90; y++ {
		for x := 0; x < 60; x++ {
			img.SetNRGBA(x, y, backdrop)
		}
	}
	for y := 19; y < 90; y++ {
		for x := 19; x <= 40; x++ {
			img.SetNRGBA(x, y, edge)
		}
	}
	for y := 20; y < 90; y++ {
		for x := 20; x < 40; x++ {
			img.SetNRGBA(x, y, figure)
		}
	}
	img.SetNRGBA(30, 30, backdrop)
	return img
}

func TestRemoveClearsBackdrop(t *testing.T) {
	out, stats := New(DefaultOptions()).RemoveWithStats(sprite())

	assert.False(t, stats.Degraded)
	assert.Equal(t, 1, stats.Clusters)
	assert.Equal(t, uint8(0), out.NRGBAAt(0, 0).A, "corner should be transparent")
	assert.Equal(t, uint8(0), out.NRGBAAt(50, 50).A, "backdrop should be transparent")
	assert.Equal(t, uint8(255), out.NRGBAAt(30, 60).A, "figure must stay opaque")
	assert.Equal(t, uint8(255), out.NRGBAAt(30, 89).A, "figure touching the border must stay opaque")
	assert.Equal(t, uint8(255), out.NRGBAAt(30, 30).A, "enclosed backdrop colour must stay opaque")

	outline := out.NRGBAAt(19, 50)
	assert.Greater(t, outline.A, uint8(0), "outline should be partially transparent")
	assert.Less(t, outline.A, uint8(255), "outline should be partially transparent")
	assert.Equal(t, edge.R, outline.R, "rgb is preserved")
	assert.Greater(t, stats.Feathered, 0)
}

func TestRemoveIsIdempotent(t *testing.T) {
	remover := New(DefaultOptions())
	once := remover.Remove(sprite())
	twice, stats := remover.RemoveWithStats(once)

	assert.False(t, stats.Degraded)
	assert.Equal(t, once.Pix, twice.Pix)
}

func TestRemoveDeterministicAndNonMutating(t *testing.T) {
	src := sprite()
	before := append([]uint8(nil), src.Pix...)
	remover := New(DefaultOptions())

	a := remover.Remove(src)
	b := remover.Remove(src)
	assert.Equal(t, a.Pix, b.Pix)
	assert.Equal(t, before, src.Pix, "input must not be modified")
}

func TestRemoveDegradesWithoutDominantBorderColour(t *testing.T) {
	palette := []color.NRGBA{
		{R: 255, A: 255}, {G: 255, A: 255}, {B: 255, A: 255},
		{R: 255, G: 255, A: 255}, {G: 255, B: 255, A: 255}, {R: 255, B: 255, A: 255},
	}
	img := image.NewNRGBA(image.Rect(0, 0, 48, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 48; x++ {
			img.SetNRGBA(x, y, palette[(x/8+y/8)%len(palette)])
		}
	}

	out, stats := New(DefaultOptions()).RemoveWithStats(img)
	require.True(t, stats.Degraded)
	assert.Less(t, stats.Coverage, 0.40)
	assert.Equal(t, img.Pix, out.Pix, "degraded output is the untouched input")
}

func TestRemoveHandlesOffsetBounds(t *testing.T) {
	sub := sprite().SubImage(image.Rect(10, 0, 50, 90))
	out := New(Options{}).Remove(sub)
	assert.Equal(t, image.Rect(0, 0, 40, 90), out.Bounds())
	assert.Equal(t, uint8(0), out.NRGBAAt(0, 0).A)
}

func TestRemoveEmptyImage(t *testing.T) {
	out, stats := New(DefaultOptions()).RemoveWithStats(image.NewNRGBA(image.Rect(0, 0, 0, 0)))
	assert.True(t, stats.Degraded)
	assert.Equal(t, 0, out.Bounds().Dx())
}
