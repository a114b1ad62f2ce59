package attune

import (
	"net/url"
	"strconv"
)

// PageParams selects one page of a list endpoint. Page numbers are
// zero-based. Zero values are omitted from the request so the server
// defaults apply.
type PageParams struct {
	PageNumber     int
	PageSize       int
	AscendingOrder bool
}

// Query renders the parameters in wire form.
func (p PageParams) Query() url.Values {
	q := url.Values{}
	if p.PageNumber > 0 {
		q.Set("page_number", strconv.Itoa(p.PageNumber))
	}
	if p.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(p.PageSize))
	}
	if p.AscendingOrder {
		q.Set("ascending_order", "true")
	}
	return q
}

// WithPageParams applies pagination to a list call.
func WithPageParams(p PageParams) CallOption {
	return WithQueryValues(p.Query())
}
