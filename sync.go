package couchparty

import (
	"context"
	"errors"

	"github.com/covrom/couchparty/ddoc"
	log "github.com/sirupsen/logrus"
)

// EnsureDesign makes sure the design document of typ stored in db matches the
// declared views. When the last check in this process confirmed the current
// declaration no store call is made.
func (s *CouchStore) EnsureDesign(ctx context.Context, typ TypeName, db string) error {
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

	if e.state == StateSynced && e.digest == digest {
		return nil
	}
	return s.syncLocked(ctx, e, dd, doc, digest, db, false)
}

// syncLocked compares doc with the stored copy and writes it when they
// differ or force is set. e must be locked.
func (s *CouchStore) syncLocked(ctx context.Context, e *syncEntry, dd *DesignDoc, doc *ddoc.Design, digest uint64, db string, force bool) error {
	stored, err := s.loadDesign(ctx, db, doc.ID)
	if err != nil {
		return err
	}

	fields := log.Fields{
		"type": dd.TypeName(),
		"db":   db,
		"ddoc": doc.ID,
	}

	if stored != nil && !force && stored.Equal(doc) {
		e.state = StateSynced
		e.digest = digest
		e.stored = stored
		dd.markStored(stored.Rev, digest)
		logger.WithFields(fields).WithField("rev", stored.Rev).Debug("design document is up to date")
		return nil
	}

	rev := ""
	if stored != nil {
		rev = stored.Rev
	}
	newRev, err := s.writeDesign(ctx, dd.TypeName(), db, doc, rev)
	if err != nil {
		return err
	}

	written := *doc
	written.Rev = newRev
	e.state = StateSynced
	e.digest = digest
	e.stored = &written
	dd.markStored(newRev, digest)

	logger.WithFields(fields).WithField("rev", newRev).Info("design document saved")
	return nil
}

// writeDesign puts doc, on a revision conflict it refetches the revision and
// tries once more.
func (s *CouchStore) writeDesign(ctx context.Context, typ TypeName, db string, doc *ddoc.Design, rev string) (string, error) {
	for attempt := 1; ; attempt++ {
		newRev, err := s.saveDesign(ctx, db, doc, rev)
		if err == nil {
			DesignWrites.WithLabelValues(string(typ), "ok").Inc()
			return newRev, nil
		}
		if !errors.Is(err, ErrDocumentConflict) {
			DesignWrites.WithLabelValues(string(typ), "error").Inc()
			return "", storeError("writeDesign", err)
		}

		DesignConflicts.WithLabelValues(string(typ)).Inc()
		logger.WithFields(log.Fields{
			"type":    typ,
			"db":      db,
			"ddoc":    doc.ID,
			"rev":     rev,
			"attempt": attempt,
		}).Warn("design document write conflict")

		if attempt == 2 {
			DesignWrites.WithLabelValues(string(typ), "conflict").Inc()
			return "", ErrorConflict{ID: doc.ID, Database: db, Attempts: attempt}
		}

		cur, err := s.loadDesign(ctx, db, doc.ID)
		if err != nil {
			return "", err
		}
		rev = ""
		if cur != nil {
			rev = cur.Rev
		}
	}
}
