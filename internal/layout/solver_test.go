package layout

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolveCoversAllItems(t *testing.T) {
	cases := []struct {
		width, height float64
		items, rows   int
	}{
		{1280, 720, 1, 3},
		{1280, 720, 2, 3},
		{1280, 720, 5, 3},
		{1280, 720, 9, 3},
		{375, 812, 4, 4}, // portrait phone
		{1920, 400, 6, 2},
		{800, 800, 7, 5},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%dx%v", tc.items, tc.width), func(t *testing.T) {
			sol := Solve(tc.width, tc.height, tc.items, tc.rows, 16.0/9.0, 10)
			assert.GreaterOrEqual(t, sol.Rows*sol.Cols, tc.items)
			assert.LessOrEqual(t, sol.Rows, tc.rows)
			assert.Greater(t, sol.ItemWidth, 0.0)
			assert.Greater(t, sol.ItemHeight, 0.0)
		})
	}
}

func TestSolveIsDeterministic(t *testing.T) {
	a := Solve(1440, 900, 6, 3, 16.0/9.0, 8)
	b := Solve(1440, 900, 6, 3, 16.0/9.0, 8)
	assert.Equal(t, a, b)
}

func TestSolvePreservesAspectRatio(t *testing.T) {
	const ratio = 16.0 / 9.0
	sol := Solve(1280, 720, 4, 3, ratio, 10)
	require.Greater(t, sol.ItemHeight, 0.0)
	assert.InDelta(t, ratio, sol.ItemWidth/sol.ItemHeight, 1e-9)
}

func TestSolveSingleItemFillsContainer(t *testing.T) {
	sol := Solve(1280, 720, 1, 3, 16.0/9.0, 0)
	assert.Equal(t, 1, sol.Rows)
	assert.Equal(t, 1, sol.Cols)
	assert.InDelta(t, 1280, sol.ItemWidth, 1)
}

func TestSolveWideContainerPrefersFewRows(t *testing.T) {
	// A very wide container should lay 4 tiles out in a single row.
	sol := Solve(4000, 500, 4, 4, 16.0/9.0, 10)
	assert.Equal(t, 1, sol.Rows)
	assert.Equal(t, 4, sol.Cols)
}

func TestSolveTallContainerPrefersManyRows(t *testing.T) {
	sol := Solve(400, 2000, 4, 4, 16.0/9.0, 10)
	assert.Equal(t, 4, sol.Rows)
	assert.Equal(t, 1, sol.Cols)
}

func TestSolveDegenerateWithoutCandidates(t *testing.T) {
	// maxRows < 1 leaves no valid candidate; the failure-safe default is 1x1.
	sol := Solve(1280, 720, 5, 0, 16.0/9.0, 10)
	assert.Equal(t, 1, sol.Rows)
	assert.Equal(t, 1, sol.Cols)
	assert.False(t, math.IsNaN(sol.ItemWidth))
}
