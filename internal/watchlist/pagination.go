package watchlist

// Pagination is pure page arithmetic over the current stock list.
type Pagination struct {
	CurrentPage int `json:"current_page"`
	PageSize    int `json:"page_size"`
	TotalItems  int `json:"total_items"`
}

// NewPagination starts on page 1 with the given page size.
func NewPagination(pageSize int) Pagination {
	if pageSize <= 0 {
		pageSize = 25
	}
	return Pagination{CurrentPage: 1, PageSize: pageSize}
}

// TotalPages is ceil(TotalItems / PageSize); zero when there are no items.
func (p Pagination) TotalPages() int {
	if p.TotalItems <= 0 || p.PageSize <= 0 {
		return 0
	}
	return (p.TotalItems + p.PageSize - 1) / p.PageSize
}

// GoToPage moves to page n. Requests outside [1, TotalPages] or equal to
// the current page are no-ops. Reports whether the page changed.
func (p *Pagination) GoToPage(n int) bool {
	if n < 1 || n > p.TotalPages() || n == p.CurrentPage {
		return false
	}
	p.CurrentPage = n
	return true
}

// SetPageSize changes the page size, resets to page 1 and recomputes the
// page count.
func (p *Pagination) SetPageSize(size int) {
	if size <= 0 {
		return
	}
	p.PageSize = size
	p.CurrentPage = 1
}

// SetTotal replaces the item count and clamps the current page back into
// range (page 1 when empty).
func (p *Pagination) SetTotal(total int) {
	p.TotalItems = total
	if tp := p.TotalPages(); tp > 0 && p.CurrentPage > tp {
		p.CurrentPage = tp
	}
	if p.CurrentPage < 1 {
		p.CurrentPage = 1
	}
}

// Bounds returns the half-open [start, end) slice indexes of the current
// page.
func (p Pagination) Bounds() (start, end int) {
	if p.TotalItems <= 0 {
		return 0, 0
	}
	start = (p.CurrentPage - 1) * p.PageSize
	if start >= p.TotalItems {
		return 0, 0
	}
	end = start + p.PageSize
	if end > p.TotalItems {
		end = p.TotalItems
	}
	return start, end
}
