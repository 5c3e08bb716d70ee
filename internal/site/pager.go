package site

// Pager describes one page of a paginated listing. Neighbours are referenced
// by page number and URL; 0 and "" mean there is none.
type Pager struct {
	Number     int
	TotalPages int
	TotalItems int
	PageSize   int
	Items      []*Page

	PreviousNumber int
	PreviousURL    string
	NextNumber     int
	NextURL        string
}

// HasPrevious reports whether a previous page exists.
func (p *Pager) HasPrevious() bool { return p.PreviousNumber > 0 }

// HasNext reports whether a next page exists.
func (p *Pager) HasNext() bool { return p.NextNumber > 0 }
