package couchparty

import (
	"context"
	"fmt"
)

// All returns every document of typ ordered by id.
func (s *CouchStore) All(ctx context.Context, typ TypeName, opts Options) ([]Record, error) {
	res, err := s.Query(ctx, typ, AllView, opts.Without(OptRaw, OptReduce))
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

// Count reduces the all view of typ.
func (s *CouchStore) Count(ctx context.Context, typ TypeName, opts Options) (int, error) {
	res, err := s.Query(ctx, typ, AllView, opts.Without(OptRaw, OptIncludeDocs, OptGroup).Merge(Options{OptReduce: true}))
	if err != nil {
		return 0, err
	}
	if len(res.Rows) == 0 {
		return 0, nil
	}
	var n int
	if err := jsonc.Unmarshal(res.Rows[0].Value, &n); err != nil {
		return 0, fmt.Errorf("count %s: %w", typ, err)
	}
	return n, nil
}

// First returns the first document of typ.
func (s *CouchStore) First(ctx context.Context, typ TypeName, opts Options) (Record, bool, error) {
	return s.FirstFromView(ctx, typ, AllView, opts)
}

// FirstFromView returns the first row of view, false when the view is empty.
func (s *CouchStore) FirstFromView(ctx context.Context, typ TypeName, view string, opts Options) (Record, bool, error) {
	res, err := s.Query(ctx, typ, view, opts.Without(OptRaw).Merge(Options{OptLimit: 1}))
	if err != nil {
		return Record{}, false, err
	}
	if len(res.Records) == 0 {
		return Record{}, false, nil
	}
	return res.Records[0], true, nil
}
