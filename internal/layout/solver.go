// Package layout computes the paged video-grid arrangement for a room:
// how many rows/columns fit a container, how large each tile is, and how
// many tiles a viewport can hold per page.
package layout

import "math"

// theoreticalHeight is the fixed unit height used to compare candidate
// decompositions against the container's aspect ratio. Only the ratio
// matters, so the value itself is arbitrary.
const theoreticalHeight = 100.0

// Solution is the row/column decomposition and per-item dimensions for a grid.
type Solution struct {
	Rows       int
	Cols       int
	ItemWidth  float64
	ItemHeight float64
}

// Solve returns the grid decomposition whose shape best matches the container.
//
// For each candidate row count r in 1..min(maxRows, itemCount) it computes
// cols = ceil(itemCount/r) and the width/height ratio of that decomposition at
// the target item aspect ratio. The candidate whose ratio is closest to the
// container's own ratio wins; ties go to the smallest r. Item dimensions are
// then derived from whichever container axis is the binding constraint, after
// reserving minGap per row or column.
//
// itemCount must be > 0; behavior with zero items is undefined.
func Solve(containerWidth, containerHeight float64, itemCount, maxRows int, aspectRatio, minGap float64) Solution {
	containerRatio := containerWidth / containerHeight

	bestRows, bestCols := 1, 1
	bestRatio := math.Inf(1)
	bestDiff := math.Inf(1)

	for rows := 1; rows <= maxRows && rows <= itemCount; rows++ {
		cols := int(math.Ceil(float64(itemCount) / float64(rows)))
		width := theoreticalHeight * aspectRatio * float64(cols)
		height := theoreticalHeight * float64(rows)
		ratio := width / height
		if diff := math.Abs(ratio - containerRatio); diff < bestDiff {
			bestDiff = diff
			bestRatio = ratio
			bestRows = rows
			bestCols = cols
		}
	}

	sol := Solution{Rows: bestRows, Cols: bestCols}
	if bestRatio < containerRatio {
		// Height-bound: fill the vertical axis, width follows the aspect ratio.
		sol.ItemHeight = (containerHeight - minGap*float64(bestRows)) / float64(bestRows)
		sol.ItemWidth = sol.ItemHeight * aspectRatio
	} else {
		sol.ItemWidth = (containerWidth - minGap*float64(bestCols)) / float64(bestCols)
		sol.ItemHeight = sol.ItemWidth / aspectRatio
	}
	return sol
}
