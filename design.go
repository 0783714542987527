package couchparty

import (
	"sort"
	"sync"

	"github.com/cespare/xxhash"
	"github.com/covrom/couchparty/ddoc"
)

// DesignDoc is the in-memory design document of one model type.
type DesignDoc struct {
	sync.RWMutex
	id       string
	typeName TypeName
	views    map[string]View
	rev      string
	dirty    bool
}

func NewDesignDoc(typ TypeName) *DesignDoc {
	return &DesignDoc{
		id:       ddoc.ID(string(typ)),
		typeName: typ,
		views:    make(map[string]View),
		dirty:    true,
	}
}

func (d *DesignDoc) ID() string {
	return d.id
}

func (d *DesignDoc) TypeName() TypeName {
	return d.typeName
}

// Rev is the last revision written or observed by this process.
func (d *DesignDoc) Rev() string {
	d.RLock()
	defer d.RUnlock()
	return d.rev
}

func (d *DesignDoc) Dirty() bool {
	d.RLock()
	defer d.RUnlock()
	return d.dirty
}

// DeclareView registers or overwrites a view. It reports whether the view
// set changed, an identical redeclaration changes nothing.
func (d *DesignDoc) DeclareView(v View) (bool, error) {
	if err := v.Validate(); err != nil {
		return false, err
	}
	nv, err := v.normalized()
	if err != nil {
		return false, err
	}

	d.Lock()
	defer d.Unlock()

	if old, ok := d.views[nv.Name]; ok && old.Equal(nv) {
		return false, nil
	}
	d.views[nv.Name] = nv
	d.dirty = true
	return true, nil
}

func (d *DesignDoc) LookupView(name string) (View, error) {
	d.RLock()
	defer d.RUnlock()
	v, ok := d.views[name]
	if !ok {
		return View{}, ErrorNotFound{Type: d.typeName, Name: name}
	}
	return v, nil
}

func (d *DesignDoc) ViewNames() []string {
	d.RLock()
	defer d.RUnlock()
	ret := make([]string, 0, len(d.views))
	for name := range d.views {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

// ToDocument serializes the declared views into the stored shape.
// The result does not depend on declaration order.
func (d *DesignDoc) ToDocument() *ddoc.Design {
	d.RLock()
	defer d.RUnlock()
	ret := &ddoc.Design{
		ID:       d.id,
		Language: ddoc.Language,
		Views:    make(ddoc.Views, len(d.views)),
	}
	for name, v := range d.views {
		ret.Views[name] = v.Doc()
	}
	return ret
}

func (d *DesignDoc) markStored(rev string, digest uint64) {
	d.Lock()
	defer d.Unlock()
	d.rev = rev
	cur, err := digestOf(d.toDocumentLocked())
	if err == nil && cur == digest {
		d.dirty = false
	}
}

func (d *DesignDoc) toDocumentLocked() *ddoc.Design {
	ret := &ddoc.Design{
		ID:       d.id,
		Language: ddoc.Language,
		Views:    make(ddoc.Views, len(d.views)),
	}
	for name, v := range d.views {
		ret.Views[name] = v.Doc()
	}
	return ret
}

// digestOf hashes the canonical form of doc.
func digestOf(doc *ddoc.Design) (uint64, error) {
	b, err := doc.Canonical()
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(b), nil
}
