package store

const (
	DefaultPerPage = 10
	MaxPerPage     = 50
)

// Page is a 1-based page request.
type Page struct {
	Page    int
	PerPage int
}

// Normalize clamps the request to sane bounds.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	return p
}

func (p Page) Offset() int {
	p = p.Normalize()
	return (p.Page - 1) * p.PerPage
}

type PageInfo struct {
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	Total      int  `json:"total"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

func NewPageInfo(p Page, total int) PageInfo {
	p = p.Normalize()
	pages := (total + p.PerPage - 1) / p.PerPage
	return PageInfo{
		Page:       p.Page,
		PerPage:    p.PerPage,
		TotalPages: pages,
		Total:      total,
		HasNext:    p.Page < pages,
		HasPrev:    p.Page > 1,
	}
}
