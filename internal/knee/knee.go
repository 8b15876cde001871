// Package knee implements a Kneedle-style knee-point detector for a
// descending similarity-score curve. No library in this codebase's
// dependency lineage covers curve-elbow detection, so this is a direct
// stdlib port of the Kneedle algorithm (Satopaa et al., 2011) restricted to
// the single case the retrieval pipeline needs: a decreasing, normalised
// sequence.
package knee

// Cutoff returns the index of the knee in a descending scores slice, or -1
// if none is found (fewer than 3 points, or the curve never bends sharply
// enough relative to sensitivity). minChunks floors the returned index so
// the caller never retains fewer than minChunks-1 followers (index is
// 0-based, so a returned index of minChunks-1 keeps minChunks points).
func Cutoff(scores []float64, sensitivity float64, minChunks int) int {
	n := len(scores)
	if n < 3 {
		return -1
	}
	if sensitivity <= 0 {
		sensitivity = 1.0
	}

	// Normalise x to [0,1] over the point index and y to [0,1] over the
	// score range, then compute the difference curve (1 - x) - y (Kneedle's
	// "convex, decreasing" case looks for the maximum of x - y_normalised;
	// for a decreasing curve we look for the maximum drop below the
	// straight line from first to last point).
	minY, maxY := scores[0], scores[0]
	for _, y := range scores {
		if y < minY {
			minY = y
		}
		if y > maxY {
			maxY = y
		}
	}
	spread := maxY - minY
	if spread == 0 {
		return -1
	}

	diffs := make([]float64, n)
	for i, y := range scores {
		x := float64(i) / float64(n-1)
		yNorm := (y - minY) / spread
		diffs[i] = (1 - x) - yNorm
	}

	// Local maxima of the difference curve are knee candidates.
	type candidate struct {
		idx  int
		diff float64
	}
	var candidates []candidate
	for i := 1; i < n-1; i++ {
		if diffs[i] >= diffs[i-1] && diffs[i] >= diffs[i+1] {
			candidates = append(candidates, candidate{i, diffs[i]})
		}
	}
	if len(candidates) == 0 {
		return -1
	}

	// Average distance between consecutive x-values (uniform here: 1/(n-1))
	// scaled by sensitivity is the threshold: the first candidate whose
	// difference value lies within it of the curve's overall maximum
	// difference is the knee; when no candidate does, there is no knee.
	meanGap := 1.0 / float64(n-1)
	threshold := sensitivity * meanGap

	best := -1
	runningMax := -1.0
	for i := 0; i < n; i++ {
		if diffs[i] > runningMax {
			runningMax = diffs[i]
		}
	}
	for _, c := range candidates {
		if runningMax-c.diff <= threshold {
			best = c.idx
			break
		}
	}
	if best == -1 {
		return -1
	}

	if minChunks < 1 {
		minChunks = 1
	}
	if best < minChunks-1 {
		best = minChunks - 1
	}
	if best > n-1 {
		best = n - 1
	}
	return best
}
