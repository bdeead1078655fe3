package domain

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// PageRequest is a 1-based page selector.
type PageRequest struct {
	Page  int
	Limit int
}

// Normalize clamps the request into the supported range.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

// Offset returns the number of rows to skip.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

// CardPage is a single page of cards plus the total match count.
type CardPage struct {
	Items      []*Card
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// NewCardPage assembles a page and derives TotalPages.
func NewCardPage(items []*Card, total int64, req PageRequest) *CardPage {
	pages := 0
	if req.Limit > 0 {
		pages = int((total + int64(req.Limit) - 1) / int64(req.Limit))
	}
	if items == nil {
		items = []*Card{}
	}
	return &CardPage{Items: items, Total: total, Page: req.Page, Limit: req.Limit, TotalPages: pages}
}
