package layout

// Paginator splits an ordered item list into fixed-capacity pages and tracks
// the current page. Pages are 1-based. Navigation past either bound is a
// no-op; when the page count collapses to 1, the current page resets to 1.
type Paginator[T any] struct {
	items    []T
	capacity int
	page     int
}

// NewPaginator creates a paginator over items. capacity must be > 0.
func NewPaginator[T any](items []T, capacity int) *Paginator[T] {
	p := &Paginator[T]{page: 1}
	p.SetCapacity(capacity)
	p.SetItems(items)
	return p
}

// SetItems replaces the item list and reclamps the current page.
func (p *Paginator[T]) SetItems(items []T) {
	p.items = items
	p.reclamp()
}

// SetCapacity changes the per-page capacity and reclamps the current page.
// Zero or negative capacities are ignored.
func (p *Paginator[T]) SetCapacity(capacity int) {
	if capacity <= 0 {
		return
	}
	p.capacity = capacity
	p.reclamp()
}

// PageCount returns the total number of pages (at least 1).
func (p *Paginator[T]) PageCount() int {
	if len(p.items) == 0 {
		return 1
	}
	return (len(p.items) + p.capacity - 1) / p.capacity
}

// CurrentPage returns the 1-based current page number.
func (p *Paginator[T]) CurrentPage() int { return p.page }

// Page returns the slice of items on the current page.
func (p *Paginator[T]) Page() []T {
	start := (p.page - 1) * p.capacity
	if start >= len(p.items) {
		return nil
	}
	end := start + p.capacity
	if end > len(p.items) {
		end = len(p.items)
	}
	return p.items[start:end]
}

// Next advances one page; at the last page it does nothing.
func (p *Paginator[T]) Next() {
	if p.page < p.PageCount() {
		p.page++
	}
}

// Prev goes back one page; at the first page it does nothing.
func (p *Paginator[T]) Prev() {
	if p.page > 1 {
		p.page--
	}
}

func (p *Paginator[T]) reclamp() {
	if p.capacity == 0 {
		p.capacity = 1
	}
	count := p.PageCount()
	if count == 1 {
		p.page = 1
		return
	}
	if p.page > count {
		p.page = count
	}
	if p.page < 1 {
		p.page = 1
	}
}
