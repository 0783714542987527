package couchparty

import "reflect"

// Modeller describes a model type mapped to CouchDB documents.
type Modeller interface {
	TypeName() TypeName
	DatabaseName() string
	Fields() []FieldDescription
}

// Viewable is implemented by models that declare their views statically.
type Viewable interface {
	CouchViews() []View
}

// DatabaseNamer binds a model to a default database.
type DatabaseNamer interface {
	DatabaseName() string
}

type reflectTyper interface {
	ReflectType() reflect.Type
}
