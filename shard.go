package couchparty

import (
	"context"
	"fmt"
)

type CtxStore struct{}

func WithStore(ctx context.Context, s *CouchStore) context.Context {
	return context.WithValue(ctx, CtxStore{}, s)
}

func StoreFromContext(ctx context.Context) (*CouchStore, error) {
	if v, ok := ctx.Value(CtxStore{}).(*CouchStore); ok && v != nil {
		return v, nil
	}
	return nil, fmt.Errorf("context does not contain a store")
}

type CtxDatabase struct{}

// WithDatabase overrides the target database of queries made with ctx.
func WithDatabase(ctx context.Context, db string) context.Context {
	return context.WithValue(ctx, CtxDatabase{}, db)
}

func DatabaseFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(CtxDatabase{}).(string)
	return v, ok
}
