package couchparty

import (
	"reflect"
	"strings"

	"github.com/covrom/couchparty/utils"
)

// Description of field in struct
type FieldDescription struct {
	Idx           int          // index in ModelDesc columns
	FieldName     string       // struct field name
	ElemType      reflect.Type // type
	JsonName      string       // json name, the document property
	JsonOmitEmpty bool         // omit empty on json marshal
	IsMeta        bool         // _id, _rev or type tag
}

func NewFDByStructField(structField reflect.StructField) *FieldDescription {
	jsonName := utils.JsonFieldName(structField)
	if jsonName == "" {
		return nil
	}

	elemType := structField.Type
	switch elemType.Kind() {
	case reflect.Ptr, reflect.Slice:
		elemType = elemType.Elem()
	}

	return &FieldDescription{
		FieldName:     structField.Name,
		ElemType:      elemType,
		JsonName:      jsonName,
		JsonOmitEmpty: strings.Contains(structField.Tag.Get("json"), ",omitempty"),
		IsMeta:        jsonName == "_id" || jsonName == "_rev" || jsonName == TypeField,
	}
}
