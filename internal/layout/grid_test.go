package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridArrangesCurrentPage(t *testing.T) {
	g := NewGrid(16.0/9.0, 3, 10, 120)
	g.Resize(1280, 900)
	g.SetTiles([]string{"local", "a", "b", "c"})

	arr := g.Arrange()
	require.Len(t, arr.Tiles, 4)
	assert.Equal(t, 1, arr.Page)
	assert.Equal(t, 1, arr.PageCount)
	assert.GreaterOrEqual(t, arr.Solution.Rows*arr.Solution.Cols, 4)
}

func TestGridPaginatesWhenViewportShrinks(t *testing.T) {
	g := NewGrid(16.0/9.0, 3, 0, 0)
	g.Resize(1280, 900)
	tiles := make([]string, 30)
	for i := range tiles {
		tiles[i] = string(rune('a' + i))
	}
	g.SetTiles(tiles)
	first := g.Arrange()
	require.Greater(t, first.PageCount, 1)

	g.NextPage()
	second := g.Arrange()
	assert.Equal(t, first.Page+1, second.Page)
	assert.NotEqual(t, first.Tiles[0], second.Tiles[0])
}

func TestGridEmptyWithoutTiles(t *testing.T) {
	g := NewGrid(16.0/9.0, 3, 10, 0)
	g.Resize(800, 600)
	arr := g.Arrange()
	assert.Empty(t, arr.Tiles)
	assert.Equal(t, 1, arr.PageCount)
}
