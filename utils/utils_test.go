package utils

import (
	"reflect"
	"testing"
)

type inner struct {
	Map      string
	Defaults map[string]any
}

type outer struct {
	ID     string
	Views  map[string]inner
	Tags   []string
	Skip   string `deepcopy:"-"`
	hidden string
}

func TestDeepClone(t *testing.T) {
	src := &outer{
		ID: "a",
		Views: map[string]inner{
			"all": {Map: "m", Defaults: map[string]any{"stale": "ok"}},
		},
		Tags:   []string{"x"},
		Skip:   "skip",
		hidden: "hidden",
	}

	dst := DeepClone(src).(*outer)

	if dst == src {
		t.Fatal("clone is the same pointer")
	}
	want := &outer{
		ID:    "a",
		Views: map[string]inner{"all": {Map: "m", Defaults: map[string]any{"stale": "ok"}}},
		Tags:  []string{"x"},
	}
	if !reflect.DeepEqual(dst, want) {
		t.Errorf("DeepClone() = %+v, want %+v", dst, want)
		return
	}

	dst.Views["all"].Defaults["stale"] = "update_after"
	dst.Tags[0] = "y"
	if src.Views["all"].Defaults["stale"] != "ok" || src.Tags[0] != "x" {
		t.Errorf("source modified through clone: %+v", src)
	}
}

func TestDeepCopyNil(t *testing.T) {
	src := &outer{ID: "a"}
	dst := &outer{}
	if err := DeepCopy(dst, src); err != nil {
		t.Errorf("DeepCopy() error = %v", err)
		return
	}
	if dst.Views != nil || dst.Tags != nil {
		t.Errorf("nil fields became non nil: %+v", dst)
	}
	if err := DeepCopy(*dst, *src); err == nil {
		t.Errorf("DeepCopy() by value must fail")
	}
}

func TestJsonFieldName(t *testing.T) {
	type doc struct {
		ID    string `json:"_id,omitempty"`
		Title string
		Skip  string `json:"-"`
		Empty string `json:",omitempty"`
	}
	typ := reflect.TypeOf(doc{})
	tests := []struct {
		field string
		want  string
	}{
		{"ID", "_id"},
		{"Title", "Title"},
		{"Skip", ""},
		{"Empty", "Empty"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			f, _ := typ.FieldByName(tt.field)
			if got := JsonFieldName(f); got != tt.want {
				t.Errorf("JsonFieldName() = %v, want %v", got, tt.want)
			}
		})
	}
}
