package starfield

// ZoneStat summarizes the stars whose centroids fall in one cell of a 3x3
// frame grid.
type ZoneStat struct {
	Row                int     `json:"row"`
	Col                int     `json:"col"`
	StarCount          int     `json:"star_count"`
	MedianHFR          float64 `json:"median_hfr"`
	MedianEccentricity float64 `json:"median_eccentricity"`
}

// ZoneSummary is the 3x3 zone reduction of a measured star list. Empty
// zones report zero medians. The corner-to-center HFR ratio is a coarse
// indicator of field tilt or curvature: a well-corrected flat field sits
// near 1, optics trouble pushes it above.
type ZoneSummary struct {
	Zones     [3][3]ZoneStat `json:"zones"`
	CenterHFR float64        `json:"center_hfr"`
	CornerHFR float64        `json:"corner_hfr"`
	TiltRatio float64        `json:"tilt_ratio"`
}

// AnalyzeZones bins stars into a 3x3 grid over the frame and reduces each
// zone to median HFR and eccentricity.
func AnalyzeZones(frame *Frame, stars []Star) ZoneSummary {
	var sum ZoneSummary
	var hfrs, eccs [3][3][]float64

	w := float64(frame.width)
	h := float64(frame.height)
	for _, s := range stars {
		col := gridIndex(s.X, w)
		row := gridIndex(s.Y, h)
		hfrs[row][col] = append(hfrs[row][col], s.HFR)
		eccs[row][col] = append(eccs[row][col], s.Eccentricity)
	}

	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			sum.Zones[r][c] = ZoneStat{
				Row:                r,
				Col:                c,
				StarCount:          len(hfrs[r][c]),
				MedianHFR:          medianFloat(hfrs[r][c]),
				MedianEccentricity: medianFloat(eccs[r][c]),
			}
		}
	}

	sum.CenterHFR = sum.Zones[1][1].MedianHFR
	cornerSum, corners := 0.0, 0
	for _, rc := range [4][2]int{{0, 0}, {0, 2}, {2, 0}, {2, 2}} {
		z := sum.Zones[rc[0]][rc[1]]
		if z.StarCount > 0 {
			cornerSum += z.MedianHFR
			corners++
		}
	}
	if corners > 0 {
		sum.CornerHFR = cornerSum / float64(corners)
	}
	if sum.CenterHFR > 0 {
		sum.TiltRatio = sum.CornerHFR / sum.CenterHFR
	}
	return sum
}

// gridIndex maps a coordinate in [0, extent) to a third of the extent,
// clamping so border centroids stay inside the grid.
func gridIndex(v, extent float64) int {
	idx := int(v * 3 / extent)
	if idx < 0 {
		return 0
	}
	if idx > 2 {
		return 2
	}
	return idx
}
