package starfield

import (
	"sort"

	"github.com/deepsky-data/starqc/internal/monitoring"
)

// seedPoint is a local intensity maximum above the detection threshold.
type seedPoint struct {
	x, y int
	v    uint16
}

// DetectStars locates star candidates in the frame.
//
// Seeds are 8-neighborhood local maxima above Level + k*NoiseSigma. They
// are visited brightest first; a seed closer than MinStarSeparationPx to an
// already accepted brighter seed is absorbed by it. Each surviving seed is
// refined to a flux-weighted sub-pixel centroid over a circular window of
// ApertureRadiusPx, with per-pixel weights max(0, value - Level). The
// result is sorted by non-increasing flux and capped at MaxCandidateStars,
// dropping the faintest candidates first.
//
// The returned flux is provisional: photometry recomputes it about the
// refined centroid. On a pure-noise frame the 5-sigma threshold keeps the
// expected seed count near zero.
func DetectStars(frame *Frame, bg BackgroundModel, params AnalysisParams) ([]Star, DetectorMetrics) {
	p := params.normalized()
	var dm DetectorMetrics

	threshold := bg.Level + p.DetectionSigmaMultiplier*bg.NoiseSigma
	seeds := findSeeds(frame, threshold)
	dm.Seeds = len(seeds)

	// Brightest first so the greedy merge always keeps the stronger peak.
	sort.Slice(seeds, func(i, j int) bool {
		if seeds[i].v != seeds[j].v {
			return seeds[i].v > seeds[j].v
		}
		if seeds[i].y != seeds[j].y {
			return seeds[i].y < seeds[j].y
		}
		return seeds[i].x < seeds[j].x
	})

	accepted := mergeSeeds(seeds, frame.width, frame.height, p.MinStarSeparationPx, &dm)

	stars := make([]Star, 0, len(accepted))
	for _, s := range accepted {
		star, ok := centroidAt(frame, s, bg.Level, p.ApertureRadiusPx, &dm)
		if !ok {
			continue
		}
		stars = append(stars, star)
	}

	sortStarsByFlux(stars)
	if len(stars) > p.MaxCandidateStars {
		dm.Truncated = len(stars) - p.MaxCandidateStars
		stars = stars[:p.MaxCandidateStars]
	}
	dm.Accepted = len(stars)

	if p.EnableDiagnostics {
		monitoring.Logf("[Detect] threshold=%.1f seeds=%d merged=%d zero_flux=%d truncated=%d accepted=%d",
			threshold, dm.Seeds, dm.Merged, dm.ZeroFlux, dm.Truncated, dm.Accepted)
	}
	return stars, dm
}

// findSeeds scans for pixels above threshold that are not exceeded by any
// 8-neighbor. Ties with neighbors are allowed so saturated plateaus still
// seed; the separation merge collapses them afterwards. Border pixels
// cannot seed because their neighborhood is incomplete.
func findSeeds(frame *Frame, threshold float64) []seedPoint {
	var seeds []seedPoint
	w, h := frame.width, frame.height
	px := frame.pixels
	for y := 1; y < h-1; y++ {
		base := y * w
		for x := 1; x < w-1; x++ {
			v := px[base+x]
			if float64(v) <= threshold {
				continue
			}
			if v < px[base+x-1] || v < px[base+x+1] ||
				v < px[base-w+x-1] || v < px[base-w+x] || v < px[base-w+x+1] ||
				v < px[base+w+x-1] || v < px[base+w+x] || v < px[base+w+x+1] {
				continue
			}
			seeds = append(seeds, seedPoint{x: x, y: y, v: v})
		}
	}
	return seeds
}

// mergeSeeds applies the minimum-separation rule using a bucket grid with
// cells the size of the separation radius, so each seed only checks its
// 3x3 cell neighborhood instead of every accepted seed.
func mergeSeeds(seeds []seedPoint, width, height, sep int, dm *DetectorMetrics) []seedPoint {
	gw := (width + sep - 1) / sep
	gh := (height + sep - 1) / sep
	grid := make([][]seedPoint, gw*gh)
	sepSq := sep * sep

	accepted := make([]seedPoint, 0, len(seeds))
	for _, s := range seeds {
		cx, cy := s.x/sep, s.y/sep
		conflict := false
	scan:
		for gy := cy - 1; gy <= cy+1; gy++ {
			if gy < 0 || gy >= gh {
				continue
			}
			for gx := cx - 1; gx <= cx+1; gx++ {
				if gx < 0 || gx >= gw {
					continue
				}
				for _, a := range grid[gy*gw+gx] {
					dx, dy := s.x-a.x, s.y-a.y
					if dx*dx+dy*dy < sepSq {
						conflict = true
						break scan
					}
				}
			}
		}
		if conflict {
			dm.Merged++
			continue
		}
		grid[cy*gw+cx] = append(grid[cy*gw+cx], s)
		accepted = append(accepted, s)
	}
	return accepted
}

// centroidAt computes the flux-weighted centroid and provisional flux over
// the circular window around a seed.
func centroidAt(frame *Frame, s seedPoint, level float64, radius int, dm *DetectorMetrics) (Star, bool) {
	x0, x1 := s.x-radius, s.x+radius
	y0, y1 := s.y-radius, s.y+radius
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > frame.width-1 {
		x1 = frame.width - 1
	}
	if y1 > frame.height-1 {
		y1 = frame.height - 1
	}

	rSq := radius * radius
	var flux, wx, wy float64
	var winPeak uint16
	for y := y0; y <= y1; y++ {
		base := y * frame.width
		for x := x0; x <= x1; x++ {
			dx, dy := x-s.x, y-s.y
			if dx*dx+dy*dy > rSq {
				continue
			}
			raw := frame.pixels[base+x]
			if raw > winPeak {
				winPeak = raw
			}
			w := float64(raw) - level
			if w <= 0 {
				continue
			}
			flux += w
			wx += w * float64(x)
			wy += w * float64(y)
		}
	}
	if flux <= 0 {
		dm.ZeroFlux++
		return Star{}, false
	}
	cx, cy := wx/flux, wy/flux
	if cx < 0 || cy < 0 || cx > float64(frame.width-1) || cy > float64(frame.height-1) {
		dm.OutOfBounds++
		return Star{}, false
	}
	return Star{X: cx, Y: cy, Flux: flux, Peak: winPeak}, true
}

// sortStarsByFlux orders stars by non-increasing flux with a positional
// tiebreak so equal-flux orderings stay deterministic.
func sortStarsByFlux(stars []Star) {
	sort.Slice(stars, func(i, j int) bool {
		if stars[i].Flux != stars[j].Flux {
			return stars[i].Flux > stars[j].Flux
		}
		if stars[i].Y != stars[j].Y {
			return stars[i].Y < stars[j].Y
		}
		return stars[i].X < stars[j].X
	})
}
