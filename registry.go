package couchparty

import (
	"sync"

	"github.com/covrom/couchparty/ddoc"
	"github.com/puzpuzpuz/xsync/v3"
)

// SyncState of a design document in one database.
type SyncState int

const (
	StateUnknown SyncState = iota
	StateSynced
	StateStale
)

func (s SyncState) String() string {
	switch s {
	case StateSynced:
		return "SYNCED"
	case StateStale:
		return "STALE"
	}
	return "UNKNOWN"
}

type syncKey struct {
	Type     TypeName
	Database string
}

// syncEntry is locked for the whole check-fetch-write sequence.
type syncEntry struct {
	sync.Mutex
	state  SyncState
	digest uint64       // digest of the document that was confirmed stored
	stored *ddoc.Design // last observed stored copy
}

// DesignRegistry keeps the synchronization state per model type and
// database. One registry belongs to one CouchStore.
type DesignRegistry struct {
	entries *xsync.MapOf[syncKey, *syncEntry]
}

func NewDesignRegistry() *DesignRegistry {
	return &DesignRegistry{
		entries: xsync.NewMapOf[syncKey, *syncEntry](),
	}
}

func (r *DesignRegistry) entry(typ TypeName, db string) *syncEntry {
	e, _ := r.entries.LoadOrCompute(syncKey{Type: typ, Database: db}, func() *syncEntry {
		return &syncEntry{}
	})
	return e
}

func (r *DesignRegistry) State(typ TypeName, db string) SyncState {
	e, ok := r.entries.Load(syncKey{Type: typ, Database: db})
	if !ok {
		return StateUnknown
	}
	e.Lock()
	defer e.Unlock()
	return e.state
}

// MarkStale forces the next query on typ in db to revalidate.
func (r *DesignRegistry) MarkStale(typ TypeName, db string) {
	e, ok := r.entries.Load(syncKey{Type: typ, Database: db})
	if !ok {
		return
	}
	e.Lock()
	if e.state == StateSynced {
		e.state = StateStale
	}
	e.Unlock()
}

// MarkStaleType marks typ stale in every database it was synced to.
func (r *DesignRegistry) MarkStaleType(typ TypeName) {
	r.entries.Range(func(k syncKey, e *syncEntry) bool {
		if k.Type != typ {
			return true
		}
		e.Lock()
		if e.state == StateSynced {
			e.state = StateStale
		}
		e.Unlock()
		return true
	})
}

// Invalidate forgets everything, all types go back to UNKNOWN.
func (r *DesignRegistry) Invalidate() {
	r.entries.Clear()
}
