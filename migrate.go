package couchparty

import (
	"context"
	"fmt"

	"github.com/covrom/couchparty/ddoc"
	"github.com/covrom/couchparty/utils"
	log "github.com/sirupsen/logrus"
)

// Migrate synchronizes the design documents of all registered models that
// resolve to a database.
func (s *CouchStore) Migrate(ctx context.Context) error {
	for _, typ := range s.TypeNames() {
		db, err := s.resolveDatabase(ctx, typ, nil)
		if err != nil {
			// модель без базы пропускаем
			logger.WithField("type", typ).Debug("migrate: no database, skipped")
			continue
		}
		if err := s.EnsureDesign(ctx, typ, db); err != nil {
			return fmt.Errorf("Migrate %s: %w", typ, err)
		}
	}
	return nil
}

// SaveDesign writes the design document of typ even when the stored copy is
// the same, giving it a new revision.
func (s *CouchStore) SaveDesign(ctx context.Context, typ TypeName, db string) error {
	dd, err := s.design(typ)
	if err != nil {
		return err
	}
	doc := dd.ToDocument()
	digest, err := digestOf(doc)
	if err != nil {
		return ErrorConfiguration{Message: err.Error()}
	}

	e := s.registry.entry(typ, db)
	e.Lock()
	defer e.Unlock()

	return s.syncLocked(ctx, e, dd, doc, digest, db, true)
}

// StoredDesign reads the design document of typ from db, nil when it was
// never written.
func (s *CouchStore) StoredDesign(ctx context.Context, typ TypeName, db string) (*ddoc.Design, error) {
	dd, err := s.design(typ)
	if err != nil {
		return nil, err
	}
	return s.loadDesign(ctx, db, dd.ID())
}

// CachedDesign returns a copy of the stored design document as last observed
// by this process.
func (s *CouchStore) CachedDesign(typ TypeName, db string) (*ddoc.Design, bool) {
	e, ok := s.registry.entries.Load(syncKey{Type: typ, Database: db})
	if !ok {
		return nil, false
	}
	e.Lock()
	defer e.Unlock()
	if e.stored == nil {
		return nil, false
	}
	return utils.DeepClone(e.stored).(*ddoc.Design), true
}

// UpdateViews synchronizes typ and touches every view so the store builds
// the indexes.
func (s *CouchStore) UpdateViews(ctx context.Context, typ TypeName, db string) error {
	dd, err := s.design(typ)
	if err != nil {
		return err
	}
	if err := s.EnsureDesign(ctx, typ, db); err != nil {
		return err
	}
	for _, name := range dd.ViewNames() {
		v, err := dd.LookupView(name)
		if err != nil {
			return err
		}
		params := Options{OptLimit: 0}
		if v.HasReduce() {
			params[OptReduce] = false
		}
		if _, err := s.client.QueryView(ctx, db, dd.ID(), name, params); err != nil {
			return storeError(fmt.Sprintf("update view %s/%s", typ, name), err)
		}
		logger.WithFields(log.Fields{"type": typ, "view": name, "db": db}).Debug("view updated")
	}
	return nil
}

// RequestRefresh makes the next query of typ compare its design document
// with the stored copy in every database.
func (s *CouchStore) RequestRefresh(typ TypeName) {
	s.registry.MarkStaleType(typ)
}

func (s *CouchStore) MarkStale(typ TypeName, db string) {
	s.registry.MarkStale(typ, db)
}

// Invalidate drops all synchronization state.
func (s *CouchStore) Invalidate() {
	s.registry.Invalidate()
}

func (s *CouchStore) SyncState(typ TypeName, db string) SyncState {
	return s.registry.State(typ, db)
}
