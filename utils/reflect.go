package utils

import (
	"reflect"
	"strings"
)

// JsonFieldName is the json property of a struct field, empty for json:"-".
func JsonFieldName(field reflect.StructField) string {
	jsonTag := strings.Split(field.Tag.Get("json"), ",")[0]
	if jsonTag == "-" {
		return ""
	} else if len(jsonTag) == 0 {
		return field.Name
	}
	return jsonTag
}
