package couchparty

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// CouchStore is a session over one document store. It owns the model
// descriptions, their design documents and the synchronization registry.
type CouchStore struct {
	Store

	client   DocumentStore
	database string
	registry *DesignRegistry
}

// NewCouchStore makes a store session. database is the default database for
// models that have none bound, it may be empty.
func NewCouchStore(client DocumentStore, database string) *CouchStore {
	if client == nil {
		panic("client is nil")
	}
	ret := &CouchStore{
		client:   client,
		database: database,
		registry: NewDesignRegistry(),
	}

	ret.Init()

	return ret
}

func (s *CouchStore) Client() DocumentStore {
	return s.client
}

func (s *CouchStore) Database() string {
	return s.database
}

func (s *CouchStore) Registry() *DesignRegistry {
	return s.registry
}

func (s *CouchStore) String() string {
	return fmt.Sprintf("couchstore(%s)", s.database)
}

func (s *CouchStore) register(md *ModelDesc) error {
	typ := md.TypeName()
	if strings.ContainsAny(string(typ), `'\`) {
		return ErrorConfiguration{Message: fmt.Sprintf("bad type name %q", typ)}
	}

	dd := NewDesignDoc(typ)
	if _, err := dd.DeclareView(allViewFor(typ)); err != nil {
		return err
	}
	for _, v := range md.Views() {
		if _, err := dd.DeclareView(v); err != nil {
			return fmt.Errorf("register %s: %w", typ, err)
		}
	}

	s.mu.Lock()
	s.modelDescriptions[typ] = md
	s.designs[typ] = dd
	s.mu.Unlock()

	// a re-registered type must be compared with the stored copy again
	s.registry.MarkStaleType(typ)

	logger.WithFields(log.Fields{
		"type":  typ,
		"ddoc":  dd.ID(),
		"views": dd.ViewNames(),
	}).Debug("model registered")

	return nil
}

func (s *CouchStore) design(typ TypeName) (*DesignDoc, error) {
	dd, ok := s.Design(typ)
	if !ok {
		return nil, ErrorNotFound{Type: typ, Message: fmt.Sprintf("model %s is not registered", typ)}
	}
	return dd, nil
}

// DeclareView adds or overwrites a view of a registered type at runtime.
// A changed definition makes the next query resynchronize.
func (s *CouchStore) DeclareView(typ TypeName, v View) error {
	dd, err := s.design(typ)
	if err != nil {
		return err
	}
	changed, err := dd.DeclareView(v)
	if err != nil {
		return err
	}
	if changed {
		s.registry.MarkStaleType(typ)
		logger.WithFields(log.Fields{"type": typ, "view": v.Name}).Debug("view declared")
	}
	return nil
}

// ViewBy declares a view keyed by props and records its finder name.
// It returns the view name.
func (s *CouchStore) ViewBy(typ TypeName, props []string, opts ViewByOptions) (string, error) {
	v, err := ViewBy(typ, props, opts)
	if err != nil {
		return "", err
	}
	if err := s.DeclareView(typ, v); err != nil {
		return "", err
	}
	s.addFinder(typ, FinderName(props...), v.Name)
	return v.Name, nil
}

// resolveDatabase picks the target database: the database option, then the
// context, then the model binding, then the store default.
func (s *CouchStore) resolveDatabase(ctx context.Context, typ TypeName, opts Options) (string, error) {
	if db, ok := opts.String(OptDatabase); ok && db != "" {
		return db, nil
	}
	if db, ok := DatabaseFromContext(ctx); ok && db != "" {
		return db, nil
	}
	if md, ok := s.GetModelDescriptionByName(typ); ok && md.DatabaseName() != "" {
		return md.DatabaseName(), nil
	}
	if s.database != "" {
		return s.database, nil
	}
	return "", ErrorNoDatabase{Type: typ}
}
