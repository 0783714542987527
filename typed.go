package couchparty

import (
	"context"
	"fmt"
	"reflect"
)

// typeOf finds the registered type of T in s.
func typeOf[T any](s *CouchStore) (TypeName, error) {
	rt := reflect.TypeOf((*T)(nil)).Elem()
	md, ok := s.GetModelDescriptionByType(rt)
	if !ok {
		return "", ErrorNotFound{Message: fmt.Sprintf("model %s is not registered", rt)}
	}
	return md.TypeName(), nil
}

// Models queries view of T using the store from ctx. Rows that do not
// decode to T are skipped.
func Models[T any](ctx context.Context, view string, opts Options) ([]*T, error) {
	s, err := StoreFromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("Models: %w", err)
	}
	typ, err := typeOf[T](s)
	if err != nil {
		return nil, err
	}
	res, err := s.Query(ctx, typ, view, opts.Without(OptRaw, OptReduce))
	if err != nil {
		return nil, err
	}
	ret := make([]*T, 0, len(res.Records))
	for _, rec := range res.Records {
		if m, ok := As[T](rec); ok {
			ret = append(ret, m)
		}
	}
	return ret, nil
}

// FindOne is FindBy for T using the store from ctx.
func FindOne[T any](ctx context.Context, finder string, key any, opts Options) (*T, bool, error) {
	s, err := StoreFromContext(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("FindOne: %w", err)
	}
	typ, err := typeOf[T](s)
	if err != nil {
		return nil, false, err
	}
	rec, ok, err := s.FindBy(ctx, typ, finder, key, opts)
	if err != nil || !ok {
		return nil, false, err
	}
	m, ok := As[T](rec)
	return m, ok, nil
}
