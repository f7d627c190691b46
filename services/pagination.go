package services

// Pagination describes one page of a listing.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// PageQuery selects a page. Values below 1 are clamped.
type PageQuery struct {
	Page     int
	PageSize int
}

func (q PageQuery) normalize() PageQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 10
	}
	if q.PageSize > 100 {
		q.PageSize = 100
	}
	return q
}

func (q PageQuery) offset() int {
	return (q.Page - 1) * q.PageSize
}

func newPagination(q PageQuery, total int64) Pagination {
	pages := int((total + int64(q.PageSize) - 1) / int64(q.PageSize))
	return Pagination{Page: q.Page, PageSize: q.PageSize, Total: total, TotalPages: pages}
}
