package couchparty

import (
	"fmt"
	"reflect"
)

type StructModel[T any] struct {
	M T
}

func (s StructModel[T]) ReflectType() reflect.Type {
	_, typ := reflStructType(s.M)
	return typ
}

func reflStructType(m any) (reflect.Value, reflect.Type) {
	value := reflect.Indirect(reflect.ValueOf(m))
	if value.Kind() != reflect.Struct {
		panic(fmt.Sprintf("only structs are supported: %T is not a struct", m))
	}
	return value, value.Type()
}

func (s StructModel[T]) TypeName() TypeName {
	return TypeName(s.ReflectType().Name())
}

func (s StructModel[T]) DatabaseName() string {
	if dn, ok := any(s.M).(DatabaseNamer); ok {
		return dn.DatabaseName()
	}
	return ""
}

func (s StructModel[T]) CouchViews() []View {
	if v, ok := any(s.M).(Viewable); ok {
		return v.CouchViews()
	}
	return nil
}

func (s StructModel[T]) Fields() []FieldDescription {
	rv, typ := reflStructType(s.M)
	columns := make([]FieldDescription, 0, typ.NumField())
	structFields(rv, &columns)
	return columns
}

func structFields(rv reflect.Value, columns *[]FieldDescription) {
	typ := rv.Type()

	for i := 0; i < typ.NumField(); i++ {
		structField := typ.Field(i)
		if len(structField.PkgPath) > 0 {
			continue
		}

		frv := rv.Field(i)

		if structField.Anonymous && frv.Kind() == reflect.Struct {
			structFields(frv, columns)
			continue
		}

		if column := NewFDByStructField(structField); column != nil {
			*columns = append(*columns, *column)
		}
	}
}
