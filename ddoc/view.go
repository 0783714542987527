package ddoc

import (
	"reflect"
)

// DefaultsField is the sidecar property that keeps declared query defaults next to a view.
const DefaultsField = "couchparty-defaults"

type View struct {
	Map      string         `json:"map"`
	Reduce   string         `json:"reduce,omitempty"`
	Defaults map[string]any `json:"couchparty-defaults,omitempty"`
}

func (v View) Equal(to View) bool {
	return v.Map == to.Map &&
		v.Reduce == to.Reduce &&
		DefaultsEqual(v.Defaults, to.Defaults)
}

// DefaultsEqual treats nil and empty defaults as equal.
func DefaultsEqual(d1, d2 map[string]any) bool {
	if len(d1) != len(d2) {
		return false
	}
	if len(d1) == 0 {
		return true
	}
	return reflect.DeepEqual(d1, d2)
}

type Views map[string]View

func (vs Views) Equal(to Views) bool {
	if len(vs) != len(to) {
		return false
	}
	for name, v1 := range vs {
		v2, ok := to[name]
		if !ok || !v1.Equal(v2) {
			return false
		}
	}
	return true
}
