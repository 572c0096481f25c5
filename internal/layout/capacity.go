package layout

// Fallback tile dimensions used until a real tile has been measured.
const (
	MinTileWidth  = 320.0
	MinTileHeight = 180.0
)

// CapacityEstimator derives how many tiles fit one page from the viewport
// size and the measured size of a representative rendered tile. Chrome
// heights (navigation bar, report button, and similar fixed UI) are
// subtracted from the usable area before dividing.
type CapacityEstimator struct {
	chromeHeight float64

	viewportWidth  float64
	viewportHeight float64
	tileWidth      float64
	tileHeight     float64

	last int
}

// NewCapacityEstimator creates an estimator reserving chromeHeight pixels of
// vertical space for fixed UI.
func NewCapacityEstimator(chromeHeight float64) *CapacityEstimator {
	return &CapacityEstimator{chromeHeight: chromeHeight, last: 1}
}

// SetViewport records the current viewport dimensions. Call on every resize.
func (e *CapacityEstimator) SetViewport(width, height float64) {
	e.viewportWidth = width
	e.viewportHeight = height
}

// SetTileSize records the measured dimensions of a rendered tile. Zero or
// negative measurements are ignored so the fallback minimums keep applying
// until a tile has actually rendered.
func (e *CapacityEstimator) SetTileSize(width, height float64) {
	if width <= 0 || height <= 0 {
		return
	}
	e.tileWidth = width
	e.tileHeight = height
}

// Capacity returns the per-page tile capacity, never less than 1. A capacity
// of 0 would zero out pagination downstream, so when the viewport is too
// small (or unmeasured) the previous value, floored at 1, is returned.
func (e *CapacityEstimator) Capacity() int {
	tileW, tileH := e.tileWidth, e.tileHeight
	if tileW <= 0 {
		tileW = MinTileWidth
	}
	if tileH <= 0 {
		tileH = MinTileHeight
	}

	usableHeight := e.viewportHeight - e.chromeHeight
	if e.viewportWidth <= 0 || usableHeight <= 0 {
		return e.last
	}

	cols := int(e.viewportWidth / tileW)
	rows := int(usableHeight / tileH)
	capacity := cols * rows
	if capacity < 1 {
		capacity = e.last
	}
	e.last = capacity
	return capacity
}
