package generation

import (
	"fmt"
	"math"
)

// Ratio is a provider aspect ratio such as 16:9.
type Ratio struct {
	W int
	H int
}

func (r Ratio) String() string { return fmt.Sprintf("%d:%d", r.W, r.H) }

// Value returns width divided by height.
func (r Ratio) Value() float64 { return float64(r.W) / float64(r.H) }

var (
	// CellRatio is the target portrait ratio of one character sprite.
	CellRatio = Ratio{W: 2, H: 3}
	// BackgroundRatio is used for single-image backgrounds.
	BackgroundRatio = Ratio{W: 16, H: 9}
)

// SupportedRatios lists the composite aspect ratios the image model accepts.
var SupportedRatios = []Ratio{
	{1, 1}, {2, 3}, {3, 2}, {3, 4}, {4, 3}, {4, 5}, {5, 4}, {9, 16}, {16, 9}, {21, 9},
}

// RatioTolerance is the largest |ln(measured/requested)| accepted for a
// returned composite.
const RatioTolerance = 0.25

func logDistance(a, b float64) float64 {
	return math.Abs(math.Log(a / b))
}

// NearestRatio returns the supported ratio closest to target on a log scale.
func NearestRatio(target float64) Ratio {
	best := SupportedRatios[0]
	bestDist := math.Inf(1)
	for _, r := range SupportedRatios {
		if d := logDistance(r.Value(), target); d < bestDist {
			best, bestDist = r, d
		}
	}
	return best
}

// ChooseGrid picks the layout for n cells. Every factor pair rows*cols == n
// is paired with the supported composite ratio nearest to cols/rows cells of
// CellRatio; the pair whose resulting cell aspect is closest to CellRatio
// wins, with ties going to fewer rows.
func ChooseGrid(n int) (Grid, Ratio, error) {
	if n < 1 {
		return Grid{}, Ratio{}, fmt.Errorf("grid needs at least one cell, got %d", n)
	}
	var (
		bestGrid  Grid
		bestRatio Ratio
		bestDist  = math.Inf(1)
	)
	for rows := 1; rows <= n; rows++ {
		if n%rows != 0 {
			continue
		}
		cols := n / rows
		ideal := CellRatio.Value() * float64(cols) / float64(rows)
		ratio := NearestRatio(ideal)
		cell := ratio.Value() * float64(rows) / float64(cols)
		// strict comparison keeps the earlier (fewer rows) candidate on ties
		if d := logDistance(cell, CellRatio.Value()); d < bestDist-1e-12 {
			bestGrid, bestRatio, bestDist = Grid{Rows: rows, Cols: cols}, ratio, d
		}
	}
	return bestGrid, bestRatio, nil
}

// checkAspect verifies the measured composite roughly honours the requested
// ratio.
func checkAspect(width, height int, requested Ratio) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("image has empty dimensions %dx%d", width, height)
	}
	measured := float64(width) / float64(height)
	if d := logDistance(measured, requested.Value()); d > RatioTolerance {
		return fmt.Errorf("image is %dx%d (ratio %.3f), requested %s (%.3f)",
			width, height, measured, requested, requested.Value())
	}
	return nil
}
