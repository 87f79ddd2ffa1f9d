package render

import (
	"math"

	"meteotiles/internal/grid"
)

type point struct{ X, Y float64 }

type segment struct{ A, B point }

// RenderIsolines contours the resampled W*H buffer with marching
// squares at the style's fixed interval and rasterizes the joined,
// smoothed polylines.
func RenderIsolines(s *IsolinesStyle, vals []float32, w, h int, srcUnit string) *Raster {
	r := NewRaster(w, h)

	conv := make([]float32, len(vals))
	for i, v := range vals {
		if grid.IsMissing(v) {
			conv[i] = grid.Missing()
			continue
		}
		conv[i] = grid.Convert(v, srcUnit, s.Unit)
	}

	if s.Interval <= 0 {
		return r
	}
	first := math.Ceil(s.DomainMin/s.Interval) * s.Interval
	for level := first; level <= s.DomainMax+1e-9; level += s.Interval {
		segs := marchingSquares(conv, w, h, level)
		for _, line := range joinSegments(segs) {
			line = smooth3(line)
			for i := 1; i < len(line); i++ {
				r.LineF(line[i-1].X, line[i-1].Y, line[i].X, line[i].Y, s.LineWidth, s.Color)
			}
		}
	}
	return r
}

// marchingSquares emits the contour segments of one level. Corners are
// classified with >= so a grid value exactly on the level sits on one
// side consistently and cannot emit duplicate segments.
func marchingSquares(vals []float32, w, h int, level float64) []segment {
	var segs []segment
	lv := float32(level)

	interp := func(x0, y0 float64, v0 float32, x1, y1 float64, v1 float32) point {
		if v0 == v1 {
			return point{(x0 + x1) / 2, (y0 + y1) / 2}
		}
		t := float64(lv-v0) / float64(v1-v0)
		if t < 0 {
			t = 0
		} else if t > 1 {
			t = 1
		}
		return point{x0 + t*(x1-x0), y0 + t*(y1-y0)}
	}

	for y := 0; y < h-1; y++ {
		for x := 0; x < w-1; x++ {
			tl := vals[y*w+x]
			tr := vals[y*w+x+1]
			br := vals[(y+1)*w+x+1]
			bl := vals[(y+1)*w+x]
			if grid.IsMissing(tl) || grid.IsMissing(tr) || grid.IsMissing(br) || grid.IsMissing(bl) {
				continue
			}

			idx := 0
			if tl >= lv {
				idx |= 8
			}
			if tr >= lv {
				idx |= 4
			}
			if br >= lv {
				idx |= 2
			}
			if bl >= lv {
				idx |= 1
			}
			if idx == 0 || idx == 15 {
				continue
			}

			fx, fy := float64(x), float64(y)
			top := func() point { return interp(fx, fy, tl, fx+1, fy, tr) }
			right := func() point { return interp(fx+1, fy, tr, fx+1, fy+1, br) }
			bottom := func() point { return interp(fx, fy+1, bl, fx+1, fy+1, br) }
			left := func() point { return interp(fx, fy, tl, fx, fy+1, bl) }

			add := func(a, b point) { segs = append(segs, segment{a, b}) }

			switch idx {
			case 1, 14:
				add(left(), bottom())
			case 2, 13:
				add(bottom(), right())
			case 3, 12:
				add(left(), right())
			case 4, 11:
				add(top(), right())
			case 6, 9:
				add(top(), bottom())
			case 7, 8:
				add(left(), top())
			case 5, 10:
				// Saddle; disambiguate on the cell-center mean.
				center := (tl + tr + br + bl) / 4
				if (idx == 5) == (center >= lv) {
					add(left(), top())
					add(bottom(), right())
				} else {
					add(left(), bottom())
					add(top(), right())
				}
			}
		}
	}
	return segs
}

// joinSegments connects segments into polylines by greedy head/tail
// matching on quantized endpoints.
func joinSegments(segs []segment) [][]point {
	type key struct{ X, Y int32 }
	quant := func(p point) key {
		return key{int32(math.Round(p.X * 16)), int32(math.Round(p.Y * 16))}
	}

	// Endpoint -> indexes of unconsumed segments touching it.
	ends := make(map[key][]int, len(segs)*2)
	for i, s := range segs {
		ends[quant(s.A)] = append(ends[quant(s.A)], i)
		ends[quant(s.B)] = append(ends[quant(s.B)], i)
	}
	used := make([]bool, len(segs))

	take := func(k key) (int, bool) {
		for _, i := range ends[k] {
			if !used[i] {
				used[i] = true
				return i, true
			}
		}
		return 0, false
	}

	var lines [][]point
	for i := range segs {
		if used[i] {
			continue
		}
		used[i] = true
		line := []point{segs[i].A, segs[i].B}

		// Grow at the tail.
		for {
			j, ok := take(quant(line[len(line)-1]))
			if !ok {
				break
			}
			if quant(segs[j].A) == quant(line[len(line)-1]) {
				line = append(line, segs[j].B)
			} else {
				line = append(line, segs[j].A)
			}
		}
		// Grow at the head.
		for {
			j, ok := take(quant(line[0]))
			if !ok {
				break
			}
			var p point
			if quant(segs[j].A) == quant(line[0]) {
				p = segs[j].B
			} else {
				p = segs[j].A
			}
			line = append([]point{p}, line...)
		}
		lines = append(lines, line)
	}
	return lines
}

// smooth3 applies a 3-point moving average, keeping endpoints fixed.
func smooth3(line []point) []point {
	if len(line) < 3 {
		return line
	}
	out := make([]point, len(line))
	out[0] = line[0]
	out[len(line)-1] = line[len(line)-1]
	for i := 1; i < len(line)-1; i++ {
		out[i] = point{
			X: (line[i-1].X + line[i].X + line[i+1].X) / 3,
			Y: (line[i-1].Y + line[i].Y + line[i+1].Y) / 3,
		}
	}
	return out
}
