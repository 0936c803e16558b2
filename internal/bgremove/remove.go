// Package bgremove cuts the plain backdrop out of generated sprites.
//
// Border pixels seed up to four background colours. A 4-connected flood
// fill from the border clears every pixel within tolerance of one of those
// colours; opaque pixels touching the cleared region that sit just beyond the
// tolerance receive partial alpha so the cut edge is anti-aliased. When the
// border has no dominant colour the sprite is returned untouched.
package bgremove

import (
	"image"
	"image/draw"
	"sort"
)

const (
	maxClusters = 4
	// clusters covering less than this share of the border never seed the
	// fill, so a foot or hand touching the edge stays opaque
	minSeedShare = 0.10
)

// Options tunes the classifier.
type Options struct {
	// Tolerance is the largest per-channel distance (0-255) at which a pixel
	// is treated as background.
	Tolerance int
	// Falloff is the width of the partial-alpha band beyond Tolerance.
	Falloff int
	// MinCoverage is the border share the dominant colour must reach before
	// anything is removed.
	MinCoverage float64
}

// DefaultOptions matches the shipped configuration.
func DefaultOptions() Options {
	return Options{Tolerance: 32, Falloff: 24, MinCoverage: 0.40}
}

// Stats describes what one Remove call did.
type Stats struct {
	Degraded  bool
	Coverage  float64
	Clusters  int
	Cleared   int
	Feathered int
}

// Remover classifies background pixels. The zero value is not usable; call
// New.
type Remover struct {
	opts Options
}

// New returns a Remover with opts, falling back to defaults for zero fields.
func New(opts Options) *Remover {
	def := DefaultOptions()
	if opts.Tolerance <= 0 {
		opts.Tolerance = def.Tolerance
	}
	if opts.Falloff < 0 {
		opts.Falloff = 0
	}
	if opts.MinCoverage <= 0 || opts.MinCoverage > 1 {
		opts.MinCoverage = def.MinCoverage
	}
	return &Remover{opts: opts}
}

// Remove returns a copy of img with the background made transparent. It never
// fails.
func (r *Remover) Remove(img image.Image) *image.NRGBA {
	out, _ := r.RemoveWithStats(img)
	return out
}

// RemoveWithStats is Remove plus a summary of the decision taken.
func (r *Remover) RemoveWithStats(img image.Image) (*image.NRGBA, Stats) {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)

	w, h := out.Rect.Dx(), out.Rect.Dy()
	if w == 0 || h == 0 {
		return out, Stats{Degraded: true}
	}

	border := borderPoints(w, h)
	transparent := 0
	for _, p := range border {
		if alphaAt(out, p.X, p.Y) == 0 {
			transparent++
		}
	}
	transparentShare := float64(transparent) / float64(len(border))

	var seeds []rgb
	stats := Stats{Coverage: transparentShare}
	if transparentShare < r.opts.MinCoverage {
		clusters := r.cluster(out, border)
		best := 0.0
		for _, c := range clusters {
			share := float64(c.members) / float64(len(border))
			if share > best {
				best = share
			}
			if share >= minSeedShare {
				seeds = append(seeds, c.center)
			}
		}
		stats.Coverage = best
		stats.Clusters = len(seeds)
		if best < r.opts.MinCoverage {
			stats.Degraded = true
			return out, stats
		}
	}
	// with a mostly transparent border only existing transparency spreads,
	// which makes a second pass a no-op

	r.fill(out, border, seeds, &stats)
	return out, stats
}

func (r *Remover) fill(img *image.NRGBA, border []image.Point, seeds []rgb, stats *Stats) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	visited := make([]bool, w*h)
	queue := make([]image.Point, 0, len(border))

	isCore := func(x, y int) bool {
		if alphaAt(img, x, y) == 0 {
			return true
		}
		return len(seeds) > 0 && distance(pixelAt(img, x, y), seeds) <= r.opts.Tolerance
	}

	for _, p := range border {
		idx := p.Y*w + p.X
		if visited[idx] || !isCore(p.X, p.Y) {
			continue
		}
		visited[idx] = true
		queue = append(queue, p)
	}

	var feather []image.Point
	neighbours := [4]image.Point{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		if setAlpha(img, p.X, p.Y, 0) {
			stats.Cleared++
		}
		for _, d := range neighbours {
			n := p.Add(d)
			if n.X < 0 || n.Y < 0 || n.X >= w || n.Y >= h {
				continue
			}
			idx := n.Y*w + n.X
			if visited[idx] {
				continue
			}
			visited[idx] = true
			if isCore(n.X, n.Y) {
				queue = append(queue, n)
				continue
			}
			feather = append(feather, n)
		}
	}

	if len(seeds) == 0 || r.opts.Falloff == 0 {
		return
	}
	band := r.opts.Tolerance + r.opts.Falloff
	for _, p := range feather {
		d := distance(pixelAt(img, p.X, p.Y), seeds)
		if d > band {
			continue
		}
		alpha := uint8((d - r.opts.Tolerance) * 255 / r.opts.Falloff)
		if alpha < alphaAt(img, p.X, p.Y) {
			setAlpha(img, p.X, p.Y, alpha)
			stats.Feathered++
		}
	}
}

type rgb struct{ r, g, b int }

type cluster struct {
	center  rgb
	members int
}

// cluster groups opaque border colours. Buckets of a coarse colour cube are
// visited by descending population (ties by bucket key), so the result only
// depends on pixel values.
func (r *Remover) cluster(img *image.NRGBA, border []image.Point) []cluster {
	type bucket struct {
		key              int
		count            int
		sumR, sumG, sumB int
	}
	buckets := map[int]*bucket{}
	var opaque []rgb
	for _, p := range border {
		if alphaAt(img, p.X, p.Y) == 0 {
			continue
		}
		c := pixelAt(img, p.X, p.Y)
		opaque = append(opaque, c)
		key := (c.r>>4)<<8 | (c.g>>4)<<4 | c.b>>4
		bk, ok := buckets[key]
		if !ok {
			bk = &bucket{key: key}
			buckets[key] = bk
		}
		bk.count++
		bk.sumR += c.r
		bk.sumG += c.g
		bk.sumB += c.b
	}
	ordered := make([]*bucket, 0, len(buckets))
	for _, bk := range buckets {
		ordered = append(ordered, bk)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].count != ordered[j].count {
			return ordered[i].count > ordered[j].count
		}
		return ordered[i].key < ordered[j].key
	})

	var clusters []cluster
	for _, bk := range ordered {
		if len(clusters) == maxClusters {
			break
		}
		center := rgb{bk.sumR / bk.count, bk.sumG / bk.count, bk.sumB / bk.count}
		merged := false
		for _, c := range clusters {
			if chebyshev(center, c.center) <= r.opts.Tolerance {
				merged = true
				break
			}
		}
		if !merged {
			clusters = append(clusters, cluster{center: center})
		}
	}
	// membership uses the same distance test as the fill, so every counted
	// border pixel is cleared
	for _, c := range opaque {
		best, bestDist := -1, r.opts.Tolerance+1
		for i, cl := range clusters {
			if d := chebyshev(c, cl.center); d < bestDist {
				best, bestDist = i, d
			}
		}
		if best >= 0 {
			clusters[best].members++
		}
	}
	return clusters
}

func borderPoints(w, h int) []image.Point {
	points := make([]image.Point, 0, 2*(w+h))
	for x := 0; x < w; x++ {
		points = append(points, image.Pt(x, 0))
		if h > 1 {
			points = append(points, image.Pt(x, h-1))
		}
	}
	for y := 1; y < h-1; y++ {
		points = append(points, image.Pt(0, y))
		if w > 1 {
			points = append(points, image.Pt(w-1, y))
		}
	}
	return points
}

func pixelAt(img *image.NRGBA, x, y int) rgb {
	i := img.PixOffset(x, y)
	return rgb{int(img.Pix[i]), int(img.Pix[i+1]), int(img.Pix[i+2])}
}

func alphaAt(img *image.NRGBA, x, y int) uint8 {
	return img.Pix[img.PixOffset(x, y)+3]
}

func setAlpha(img *image.NRGBA, x, y int, a uint8) bool {
	i := img.PixOffset(x, y) + 3
	if img.Pix[i] == a {
		return false
	}
	img.Pix[i] = a
	return true
}

func distance(c rgb, seeds []rgb) int {
	best := 256
	for _, s := range seeds {
		if d := chebyshev(c, s); d < best {
			best = d
		}
	}
	return best
}

func chebyshev(a, b rgb) int {
	d := abs(a.r - b.r)
	if g := abs(a.g - b.g); g > d {
		d = g
	}
	if bl := abs(a.b - b.b); bl > d {
		d = bl
	}
	return d
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
