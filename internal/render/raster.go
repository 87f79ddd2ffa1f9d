package render

import (
	"image"
	"image/color"
	"math"
)

// Raster is the RGBA canvas a style renders into. Pixels start fully
// transparent.
type Raster struct {
	W, H int
	Pix  []uint8 // RGBA, 4 bytes per pixel, row-major
}

func NewRaster(w, h int) *Raster {
	return &Raster{W: w, H: h, Pix: make([]uint8, w*h*4)}
}

func (r *Raster) Set(x, y int, c color.RGBA) {
	if x < 0 || x >= r.W || y < 0 || y >= r.H {
		return
	}
	i := (y*r.W + x) * 4
	r.Pix[i] = c.R
	r.Pix[i+1] = c.G
	r.Pix[i+2] = c.B
	r.Pix[i+3] = c.A
}

// Image wraps the pixel buffer in a stdlib image without copying.
func (r *Raster) Image() *image.RGBA {
	return &image.RGBA{Pix: r.Pix, Stride: r.W * 4, Rect: image.Rect(0, 0, r.W, r.H)}
}

// dot stamps a filled square of the given width centered on (x,y).
// Widths 1-4 px are what styles configure; a square cap is
// indistinguishable at that scale.
func (r *Raster) dot(x, y, width int, c color.RGBA) {
	if width <= 1 {
		r.Set(x, y, c)
		return
	}
	lo := -(width - 1) / 2
	hi := width / 2
	for dy := lo; dy <= hi; dy++ {
		for dx := lo; dx <= hi; dx++ {
			r.Set(x+dx, y+dy, c)
		}
	}
}

// Line draws a Bresenham segment with the given stroke width.
func (r *Raster) Line(x0, y0, x1, y1, width int, c color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		r.dot(x0, y0, width, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// LineF draws a segment given in float pixel coordinates.
func (r *Raster) LineF(x0, y0, x1, y1 float64, width int, c color.RGBA) {
	r.Line(int(math.Round(x0)), int(math.Round(y0)), int(math.Round(x1)), int(math.Round(y1)), width, c)
}

// Circle draws a midpoint-algorithm circle outline.
func (r *Raster) Circle(cx, cy, radius, width int, c color.RGBA) {
	x, y := radius, 0
	err := 1 - radius
	for x >= y {
		r.dot(cx+x, cy+y, width, c)
		r.dot(cx+y, cy+x, width, c)
		r.dot(cx-y, cy+x, width, c)
		r.dot(cx-x, cy+y, width, c)
		r.dot(cx-x, cy-y, width, c)
		r.dot(cx-y, cy-x, width, c)
		r.dot(cx+y, cy-x, width, c)
		r.dot(cx+x, cy-y, width, c)
		y++
		if err < 0 {
			err += 2*y + 1
		} else {
			x--
			err += 2*(y-x) + 1
		}
	}
}

// FillTriangle rasterizes a filled triangle by scanline.
func (r *Raster) FillTriangle(x0, y0, x1, y1, x2, y2 float64, c color.RGBA) {
	minY := int(math.Floor(math.Min(y0, math.Min(y1, y2))))
	maxY := int(math.Ceil(math.Max(y0, math.Max(y1, y2))))
	if minY < 0 {
		minY = 0
	}
	if maxY >= r.H {
		maxY = r.H - 1
	}
	for y := minY; y <= maxY; y++ {
		fy := float64(y) + 0.5
		xs := make([]float64, 0, 3)
		edge := func(ax, ay, bx, by float64) {
			if (ay <= fy && by > fy) || (by <= fy && ay > fy) {
				t := (fy - ay) / (by - ay)
				xs = append(xs, ax+t*(bx-ax))
			}
		}
		edge(x0, y0, x1, y1)
		edge(x1, y1, x2, y2)
		edge(x2, y2, x0, y0)
		if len(xs) < 2 {
			continue
		}
		lo, hi := xs[0], xs[0]
		for _, x := range xs[1:] {
			if x < lo {
				lo = x
			}
			if x > hi {
				hi = x
			}
		}
		for x := int(math.Floor(lo)); x <= int(math.Ceil(hi)); x++ {
			if float64(x)+0.5 >= lo && float64(x)+0.5 <= hi {
				r.Set(x, y, c)
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
