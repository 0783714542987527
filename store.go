package couchparty

import (
	"reflect"
	"sort"
	"sync"
)

type (
	finderName = string
	viewName   = string
)

type Store struct {
	mu                sync.RWMutex
	modelDescriptions map[TypeName]*ModelDesc
	designs           map[TypeName]*DesignDoc
	finders           map[TypeName]map[finderName]viewName
}

func (s *Store) Init() {
	s.modelDescriptions = make(map[TypeName]*ModelDesc)
	s.designs = make(map[TypeName]*DesignDoc)
	s.finders = make(map[TypeName]map[finderName]viewName)
}

// TypeNames returns the registered types in sorted order.
func (s *Store) TypeNames() []TypeName {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ret := make([]TypeName, 0, len(s.modelDescriptions))
	for k := range s.modelDescriptions {
		ret = append(ret, k)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

func (s *Store) GetModelDescriptionByName(typ TypeName) (*ModelDesc, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ret, ok := s.modelDescriptions[typ]
	return ret, ok
}

// Получение описания модели из его reflect.Type
func (s *Store) GetModelDescriptionByType(typ reflect.Type) (*ModelDesc, bool) {
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, md := range s.modelDescriptions {
		if md.ReflectType() == typ {
			return md, true
		}
	}
	return nil, false
}

// Design returns the design document of a registered type.
func (s *Store) Design(typ TypeName) (*DesignDoc, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.designs[typ]
	return d, ok
}

func (s *Store) addFinder(typ TypeName, name finderName, view viewName) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.finders[typ]
	if !ok {
		m = make(map[finderName]viewName)
		s.finders[typ] = m
	}
	m[name] = view
}

func (s *Store) lookupFinder(typ TypeName, name finderName) (viewName, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.finders[typ][name]
	return v, ok
}
