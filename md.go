package couchparty

import (
	"fmt"
	"reflect"
	"sync"
)

type TypeName string

type mdMap struct {
	sync.RWMutex
	m map[TypeName]*ModelDesc
}

var mdRepo = mdMap{
	m: make(map[TypeName]*ModelDesc),
}

type MD[T any] struct {
	Val T
}

func (m MD[T]) MD() (*ModelDesc, error) {
	sm := StructModel[T]{M: m.Val}
	modelType := sm.TypeName()
	mdRepo.RLock()
	if ret, ok := mdRepo.m[modelType]; ok {
		mdRepo.RUnlock()
		return ret, nil
	}
	mdRepo.RUnlock()

	mdRepo.Lock()
	defer mdRepo.Unlock()

	if ret, ok := mdRepo.m[modelType]; ok {
		return ret, nil
	}

	modelDescription, err := NewModelDescription(sm)
	if err != nil {
		return nil, err
	}

	mdRepo.m[modelType] = modelDescription
	return modelDescription, nil
}

type ModelDescriber interface {
	MD() (*ModelDesc, error)
}

// Register adds the model to the store and builds its design document from
// the statically declared views.
func Register[T ModelDescriber](s *CouchStore, m T) error {
	md, err := m.MD()
	if err != nil {
		return fmt.Errorf("init ModelDesc failed: %w", err)
	}
	return s.register(md)
}

type ModelDesc struct {
	m            Modeller
	typeName     TypeName
	databaseName string
	typ          reflect.Type

	columns           []FieldDescription
	columnByFieldName map[string]*FieldDescription // by struct field name
	columnByJsonName  map[string]*FieldDescription // by document property

	views []View
}

func (md ModelDesc) Modeller() Modeller {
	return md.m
}

// DatabaseName is the default database of the model, empty when unbound.
func (md ModelDesc) DatabaseName() string {
	return md.databaseName
}

func (md ModelDesc) TypeName() TypeName {
	return md.typeName
}

func (md ModelDesc) ReflectType() reflect.Type {
	return md.typ
}

// Views returns the statically declared views.
func (md ModelDesc) Views() []View {
	ret := make([]View, len(md.views))
	copy(ret, md.views)
	return ret
}

// New returns a pointer to a zero model value.
func (md ModelDesc) New() any {
	if md.typ == nil {
		return &AnyObjectMap{}
	}
	return reflect.New(md.typ).Interface()
}

func (md ModelDesc) ColumnByJsonName(jsonName string) (*FieldDescription, error) {
	field, ok := md.columnByJsonName[jsonName]
	if !ok {
		return nil, fmt.Errorf("ColumnByJsonName no such field: %s.%s", md.TypeName(), jsonName)
	}
	return field, nil
}

func (md *ModelDesc) Init(m Modeller) error {
	md.m = m
	md.typeName = m.TypeName()
	md.databaseName = m.DatabaseName()
	if md.typeName == "" {
		return fmt.Errorf("model type name is empty")
	}
	if rt, ok := m.(reflectTyper); ok {
		md.typ = rt.ReflectType()
	}
	if v, ok := m.(Viewable); ok {
		md.views = v.CouchViews()
	}

	columns := m.Fields()
	columnByJsonName := make(map[string]*FieldDescription)
	columnByFieldName := make(map[string]*FieldDescription)

	for i := range columns {
		column := &columns[i]
		if _, ok := columnByFieldName[column.FieldName]; ok {
			return fmt.Errorf("field name not uniq: '%s'", column.FieldName)
		}
		if _, ok := columnByJsonName[column.JsonName]; ok {
			return fmt.Errorf("document property not uniq: '%s'", column.JsonName)
		}
		column.Idx = i
		columnByFieldName[column.FieldName] = column
		columnByJsonName[column.JsonName] = column
	}

	md.columns = columns
	md.columnByFieldName = columnByFieldName
	md.columnByJsonName = columnByJsonName

	return nil
}

func NewModelDescription[T Modeller](m T) (*ModelDesc, error) {
	modelDescription := ModelDesc{}

	if err := modelDescription.Init(m); err != nil {
		return nil, fmt.Errorf("init ModelDesc failed: %s", err)
	}

	return &modelDescription, nil
}
