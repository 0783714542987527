package couchparty

import (
	"context"
	"fmt"
)

const DefaultPageSize = 25

// CollectionProxy pages through the rows of one view matching fixed base
// options. It fetches a page per call and caches nothing.
type CollectionProxy struct {
	store    *CouchStore
	typ      TypeName
	designID string
	view     string
	base     Options
	pageSize int
	page     int
}

// Collection makes a proxy over view of typ. base must not contain limit or
// skip, the proxy manages them.
func (s *CouchStore) Collection(typ TypeName, view string, base Options, pageSize int) (*CollectionProxy, error) {
	if view == "" {
		return nil, ErrorConfiguration{Message: "collection needs a view"}
	}
	if pageSize <= 0 {
		return nil, ErrorConfiguration{Message: fmt.Sprintf("page size must be positive, got %d", pageSize)}
	}
	if base.Has(OptLimit) || base.Has(OptSkip) {
		return nil, ErrorConfiguration{Message: "collection options must not contain limit or skip"}
	}
	dd, err := s.design(typ)
	if err != nil {
		return nil, ErrorConfiguration{Message: err.Error()}
	}
	if _, err := dd.LookupView(view); err != nil {
		return nil, ErrorConfiguration{Message: err.Error()}
	}
	return &CollectionProxy{
		store:    s,
		typ:      typ,
		designID: dd.ID(),
		view:     view,
		base:     base.Without(OptRaw),
		pageSize: pageSize,
	}, nil
}

func (p *CollectionProxy) DesignID() string { return p.designID }

func (p *CollectionProxy) View() string { return p.view }

func (p *CollectionProxy) PageSize() int { return p.pageSize }

// CurrentPage is the last page fetched, 0 before the first fetch.
func (p *CollectionProxy) CurrentPage() int { return p.page }

// Page fetches page n, 1-based. A page past the end is empty.
func (p *CollectionProxy) Page(ctx context.Context, n int) ([]Record, error) {
	recs, err := p.fetch(ctx, n)
	if err != nil {
		return nil, err
	}
	p.page = n
	return recs, nil
}

func (p *CollectionProxy) NextPage(ctx context.Context) ([]Record, error) {
	return p.Page(ctx, p.page+1)
}

// PrevPage steps back, it never goes before page 1.
func (p *CollectionProxy) PrevPage(ctx context.Context) ([]Record, error) {
	n := p.page - 1
	if n < 1 {
		n = 1
	}
	return p.Page(ctx, n)
}

// EachPage visits every row from page 1 on, stopping after the first short
// page. The cursor is left as it was.
func (p *CollectionProxy) EachPage(ctx context.Context, fn func(Record) error) error {
	for n := 1; ; n++ {
		recs, err := p.fetch(ctx, n)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			if err := fn(rec); err != nil {
				return err
			}
		}
		if len(recs) < p.pageSize {
			return nil
		}
	}
}

func (p *CollectionProxy) fetch(ctx context.Context, n int) ([]Record, error) {
	if n < 1 {
		return nil, ErrorConfiguration{Message: fmt.Sprintf("page must be 1 or more, got %d", n)}
	}
	opts := p.base.Merge(Options{
		OptLimit: p.pageSize,
		OptSkip:  (n - 1) * p.pageSize,
	})
	res, err := p.store.Query(ctx, p.typ, p.view, opts)
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

type PaginateOptions struct {
	Type    TypeName
	View    string // all when empty
	PerPage int    // DefaultPageSize when zero
	Page    int    // 1 when zero
	Query   Options
}

func (o PaginateOptions) proxy(s *CouchStore) (*CollectionProxy, error) {
	view := o.View
	if view == "" {
		view = AllView
	}
	perPage := o.PerPage
	if perPage == 0 {
		perPage = DefaultPageSize
	}
	return s.Collection(o.Type, view, o.Query, perPage)
}

// Paginate returns one page of a view.
func (s *CouchStore) Paginate(ctx context.Context, o PaginateOptions) ([]Record, error) {
	p, err := o.proxy(s)
	if err != nil {
		return nil, err
	}
	page := o.Page
	if page == 0 {
		page = 1
	}
	return p.Page(ctx, page)
}

// PaginatedEach visits every row of a view page by page.
func (s *CouchStore) PaginatedEach(ctx context.Context, o PaginateOptions, fn func(Record) error) error {
	p, err := o.proxy(s)
	if err != nil {
		return err
	}
	return p.EachPage(ctx, fn)
}
