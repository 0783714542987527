package couchparty

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"
	log "github.com/sirupsen/logrus"
)

// QueryResult is a view response with its decoded rows. Records is nil for
// raw queries.
type QueryResult struct {
	*ViewResult
	Records []Record
}

// Query runs view of typ. Unknown views and unresolvable databases fail
// before any store call. The design document is synchronized first,
// the stale option only affects the view request itself.
func (s *CouchStore) Query(ctx context.Context, typ TypeName, view string, opts Options) (*QueryResult, error) {
	dd, err := s.design(typ)
	if err != nil {
		return nil, err
	}
	v, err := dd.LookupView(view)
	if err != nil {
		return nil, err
	}
	db, err := s.resolveDatabase(ctx, typ, opts)
	if err != nil {
		return nil, err
	}

	if err := s.EnsureDesign(ctx, typ, db); err != nil {
		return nil, err
	}

	params := queryParams(v, opts)
	reduce, _ := params.Bool(OptReduce)
	raw, _ := params.Bool(OptRaw)

	entry := logger.WithFields(log.Fields{
		"qid":  xid.New().String(),
		"type": typ,
		"view": view,
		"db":   db,
	})
	queryLog(ctx, entry, "view query %v", map[string]any(params.Without(OptRaw)))

	start := time.Now()
	res, err := s.client.QueryView(ctx, db, dd.ID(), view, params)
	ViewQueries.WithLabelValues(string(typ), view).Inc()
	ViewQueryDuration.WithLabelValues(string(typ), view).Observe(time.Since(start).Seconds())
	if err != nil {
		entry.WithError(err).Debug("view query failed")
		return nil, storeError(fmt.Sprintf("query %s/%s", typ, view), err)
	}
	queryLog(ctx, entry, "view query returned %d rows of %d", len(res.Rows), res.TotalRows)

	ret := &QueryResult{ViewResult: res}
	if raw {
		return ret, nil
	}
	ret.Records = make([]Record, 0, len(res.Rows))
	for _, row := range res.Rows {
		rec, err := s.decodeRow(row, reduce)
		if err != nil {
			return nil, err
		}
		ret.Records = append(ret.Records, rec)
	}
	return ret, nil
}

// Each runs the query and calls fn for every decoded row in store order.
// An error from fn stops the iteration and is returned.
func (s *CouchStore) Each(ctx context.Context, typ TypeName, view string, opts Options, fn func(Record) error) error {
	res, err := s.Query(ctx, typ, view, opts.Without(OptRaw))
	if err != nil {
		return err
	}
	for _, rec := range res.Records {
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

// queryParams merges view defaults with opts into a new map.
func queryParams(v View, opts Options) Options {
	params := Options(v.Defaults).Merge(opts).Without(OptDatabase)

	if v.HasReduce() {
		if !params.Has(OptReduce) {
			params[OptReduce] = false
		}
	} else {
		delete(params, OptReduce)
		delete(params, OptGroup)
	}

	reduce, _ := params.Bool(OptReduce)
	raw, _ := params.Bool(OptRaw)
	switch {
	case reduce:
		delete(params, OptIncludeDocs)
	case !raw && !params.Has(OptIncludeDocs):
		params[OptIncludeDocs] = true
	}
	return params
}
