// Package graph draws the straight line of a solved linear equation as a PNG.
package graph

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"math-bot/api/internal/equation"
)

const (
	Width  = 640
	Height = 640
	margin = 24
)

var ErrNotPlottable = errors.New("not plottable")

var (
	bg    = color.RGBA{R: 0x1e, G: 0x1f, B: 0x22, A: 0xff}
	grid  = color.RGBA{R: 0x33, G: 0x35, B: 0x3a, A: 0xff}
	axis  = color.RGBA{R: 0xc8, G: 0xc8, B: 0xc8, A: 0xff}
	line  = color.RGBA{R: 0x4f, G: 0xa3, B: 0xff, A: 0xff}
	point = color.RGBA{R: 0xff, G: 0x55, B: 0x55, A: 0xff}
)

// Plot описывает прямую y = M·x + B и отмеченную точку решения X.
type Plot struct {
	M, B float64
	X    float64
}

// Range returns the x window: [-3|x|, 3|x|], never narrower than [-10, 10].
func (p Plot) Range() (lo, hi float64) {
	r := 3 * math.Abs(p.X)
	if r < 10 {
		r = 10
	}
	return -r, r
}

func (p Plot) at(x float64) float64 { return p.M*x + p.B }

// PNG renders the plot. The y window is sized to show the line over the x range and
// always includes the origin.
func (p Plot) PNG() ([]byte, error) {
	for _, v := range []float64{p.M, p.B, p.X} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, ErrNotPlottable
		}
	}
	img := p.Image()
	var out bytes.Buffer
	if err := png.Encode(&out, img); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func (p Plot) Image() *image.RGBA {
	xlo, xhi := p.Range()
	y1, y2 := p.at(xlo), p.at(xhi)
	ylo, yhi := math.Min(math.Min(y1, y2), 0), math.Max(math.Max(y1, y2), 0)
	if yhi-ylo < 1e-9 {
		ylo, yhi = ylo-10, yhi+10
	}
	pad := (yhi - ylo) * 0.05
	ylo, yhi = ylo-pad, yhi+pad

	v := viewport{xlo: xlo, xhi: xhi, ylo: ylo, yhi: yhi}
	dst := image.NewRGBA(image.Rect(0, 0, Width, Height))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)

	// сетка по целым, если клеток не слишком много
	if step := gridStep(xhi - xlo); step > 0 {
		for gx := math.Ceil(xlo/step) * step; gx <= xhi; gx += step {
			px, _ := v.toPx(gx, 0)
			vline(dst, px, grid)
		}
	}
	if step := gridStep(yhi - ylo); step > 0 {
		for gy := math.Ceil(ylo/step) * step; gy <= yhi; gy += step {
			_, py := v.toPx(0, gy)
			hline(dst, py, grid)
		}
	}

	ox, oy := v.toPx(0, 0)
	vline(dst, ox, axis)
	hline(dst, oy, axis)

	ax, ay := v.toPx(xlo, y1)
	bx, by := v.toPx(xhi, y2)
	segment(dst, ax, ay, bx, by, line)
	segment(dst, ax, ay+1, bx, by+1, line)

	sx, sy := v.toPx(p.X, p.at(p.X))
	disc(dst, sx, sy, 5, point)
	return dst
}

type viewport struct{ xlo, xhi, ylo, yhi float64 }

func (v viewport) toPx(x, y float64) (int, int) {
	w := float64(Width - 2*margin)
	h := float64(Height - 2*margin)
	px := margin + (x-v.xlo)/(v.xhi-v.xlo)*w
	py := margin + (v.yhi-y)/(v.yhi-v.ylo)*h
	return int(math.Round(px)), int(math.Round(py))
}

func gridStep(span float64) float64 {
	if span <= 0 {
		return 0
	}
	step := math.Pow(10, math.Floor(math.Log10(span/10)))
	for span/step > 20 {
		step *= 2
	}
	return step
}

func vline(dst *image.RGBA, x int, c color.Color) {
	for y := 0; y < Height; y++ {
		dst.Set(x, y, c)
	}
}

func hline(dst *image.RGBA, y int, c color.Color) {
	for x := 0; x < Width; x++ {
		dst.Set(x, y, c)
	}
}

// segment: Брезенхэм.
func segment(dst *image.RGBA, x0, y0, x1, y1 int, c color.Color) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for i := 0; i < 4*(Width+Height); i++ {
		if image.Pt(x0, y0).In(dst.Rect) {
			dst.Set(x0, y0, c)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func disc(dst *image.RGBA, cx, cy, r int, c color.Color) {
	for y := -r; y <= r; y++ {
		for x := -r; x <= r; x++ {
			if x*x+y*y <= r*r {
				dst.Set(cx+x, cy+y, c)
			}
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// ForSolution builds the plot of a solved linear shape; ok is false for shapes that are
// not a line through the solution.
func ForSolution(s equation.Solution) (Plot, bool) {
	m, b, ok := s.Line()
	if !ok || s.X == nil {
		return Plot{}, false
	}
	return Plot{M: m.Float64(), B: b.Float64(), X: s.X.Float64()}, true
}
