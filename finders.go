package couchparty

import (
	"context"
	"fmt"
	"strings"
)

const finderPrefix = "find_by_"

// FinderName is the finder resolving to the view keyed by props.
func FinderName(props ...string) string {
	return finderPrefix + strings.Join(props, "_and_")
}

// ResolveFinder maps a finder name like find_by_title_and_active to a view.
// A finder naming document properties of the model declares its view on
// first use. Anything else is ErrorNotFound.
func (s *CouchStore) ResolveFinder(typ TypeName, name string) (string, error) {
	if v, ok := s.lookupFinder(typ, name); ok {
		return v, nil
	}

	notFound := ErrorNotFound{Type: typ, Name: name, Message: fmt.Sprintf("no finder %s for %s", name, typ)}

	rest, ok := strings.CutPrefix(name, finderPrefix)
	if !ok || rest == "" {
		return "", notFound
	}
	md, ok := s.GetModelDescriptionByName(typ)
	if !ok {
		return "", ErrorNotFound{Type: typ, Message: fmt.Sprintf("model %s is not registered", typ)}
	}
	props := strings.Split(rest, "_and_")
	for _, p := range props {
		fd, err := md.ColumnByJsonName(p)
		if err != nil || fd.IsMeta {
			return "", notFound
		}
	}
	return s.ViewBy(typ, props, ViewByOptions{})
}

// FindBy returns the first row of the finder view matching key.
func (s *CouchStore) FindBy(ctx context.Context, typ TypeName, finder string, key any, opts Options) (Record, bool, error) {
	view, err := s.ResolveFinder(typ, finder)
	if err != nil {
		return Record{}, false, err
	}
	return s.FirstFromView(ctx, typ, view, opts.Merge(Options{OptKey: key}))
}
