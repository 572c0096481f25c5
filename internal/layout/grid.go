package layout

// Arrangement is the renderable result for the current page: which tiles to
// show and how to place them.
type Arrangement struct {
	Tiles     []string
	Solution  Solution
	Page      int
	PageCount int
}

// Grid ties the capacity estimator, paginator and solver together for one
// tile collection. Feed it viewport resizes and tile-list changes; ask it
// for the current page's arrangement.
type Grid struct {
	estimator *CapacityEstimator
	paginator *Paginator[string]

	aspectRatio float64
	maxRows     int
	minGap      float64

	viewportWidth  float64
	viewportHeight float64
	chromeHeight   float64
}

// NewGrid creates a grid with the given tile aspect ratio, row ceiling,
// minimum gap and reserved chrome height.
func NewGrid(aspectRatio float64, maxRows int, minGap, chromeHeight float64) *Grid {
	return &Grid{
		estimator:    NewCapacityEstimator(chromeHeight),
		paginator:    NewPaginator[string](nil, 1),
		aspectRatio:  aspectRatio,
		maxRows:      maxRows,
		minGap:       minGap,
		chromeHeight: chromeHeight,
	}
}

// SetTiles replaces the ordered tile id list (typically the session's
// activity order).
func (g *Grid) SetTiles(ids []string) {
	g.paginator.SetItems(ids)
}

// Resize records a new viewport size and recomputes page capacity.
func (g *Grid) Resize(width, height float64) {
	g.viewportWidth = width
	g.viewportHeight = height
	g.estimator.SetViewport(width, height)
	g.paginator.SetCapacity(g.estimator.Capacity())
}

// NextPage and PrevPage page through tiles; both are no-ops at the bounds.
func (g *Grid) NextPage() { g.paginator.Next() }

// PrevPage pages back; no-op at the first page.
func (g *Grid) PrevPage() { g.paginator.Prev() }

// Arrange solves the layout for the current page. With no tiles or no
// viewport yet, it returns an empty arrangement.
func (g *Grid) Arrange() Arrangement {
	tiles := g.paginator.Page()
	arr := Arrangement{
		Tiles:     tiles,
		Page:      g.paginator.CurrentPage(),
		PageCount: g.paginator.PageCount(),
	}
	if len(tiles) == 0 || g.viewportWidth <= 0 || g.viewportHeight <= 0 {
		return arr
	}
	usableHeight := g.viewportHeight - g.chromeHeight
	if usableHeight <= 0 {
		usableHeight = g.viewportHeight
	}
	arr.Solution = Solve(g.viewportWidth, usableHeight, len(tiles), g.maxRows, g.aspectRatio, g.minGap)
	// Feed the solved tile size back so the next capacity estimate reflects
	// what is actually rendered.
	g.estimator.SetTileSize(arr.Solution.ItemWidth, arr.Solution.ItemHeight)
	return arr
}
