package couchparty

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func TestOptionsMergePure(t *testing.T) {
	defaults := Options{OptDescending: true, OptStale: StaleOK}
	opts := Options{OptStartKey: "b", OptDescending: false}

	got := defaults.Merge(opts)

	want := Options{OptDescending: false, OptStale: StaleOK, OptStartKey: "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Merge() = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(opts, Options{OptStartKey: "b", OptDescending: false}) {
		t.Errorf("Merge() modified its argument: %v", opts)
	}
	if !reflect.DeepEqual(defaults, Options{OptDescending: true, OptStale: StaleOK}) {
		t.Errorf("Merge() modified the receiver: %v", defaults)
	}
}

func TestOptionsAccessors(t *testing.T) {
	o := Options{
		"a": 3,
		"b": float64(4),
		"c": "5",
		"d": json.Number("6"),
		"e": "true",
		"f": false,
		"g": "x",
	}
	tests := []struct {
		name string
		want int
		ok   bool
	}{
		{"a", 3, true},
		{"b", 4, true},
		{"c", 5, true},
		{"d", 6, true},
		{"g", 0, false},
		{"missing", 0, false},
	}
	for _, tt := range tests {
		got, ok := o.Int(tt.name)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Int(%q) = %v, %v, want %v, %v", tt.name, got, ok, tt.want, tt.ok)
		}
	}
	if b, ok := o.Bool("e"); !b || !ok {
		t.Errorf("Bool(e) = %v, %v", b, ok)
	}
	if b, ok := o.Bool("f"); b || !ok {
		t.Errorf("Bool(f) = %v, %v", b, ok)
	}
	if _, ok := o.Bool("g"); ok {
		t.Errorf("Bool(g) must fail")
	}
	if w := o.Without("a", "b"); w.Has("a") || w.Has("b") || !o.Has("a") {
		t.Errorf("Without() = %v, receiver %v", w, o)
	}
}

func TestEncodeOptions(t *testing.T) {
	opts := Options{
		OptKey:         []any{"aaa", true},
		OptStartKey:    "b",
		OptLimit:       10,
		OptSkip:        float64(20),
		OptDescending:  true,
		OptStale:       StaleOK,
		OptIncludeDocs: false,
		OptRaw:         true,
		OptDatabase:    "other",
		"conflicts":    true,
		"since":        time.Unix(0, 0).UTC(),
	}
	q, err := encodeOptions(opts)
	if err != nil {
		t.Errorf("encodeOptions() error = %v", err)
		return
	}
	want := map[string]string{
		"key":          `["aaa",true]`,
		"startkey":     `"b"`,
		"limit":        "10",
		"skip":         "20",
		"descending":   "true",
		"stale":        "ok",
		"include_docs": "false",
		"conflicts":    "true",
		"since":        `"1970-01-01T00:00:00Z"`,
	}
	if len(q) != len(want) {
		t.Errorf("encodeOptions() = %v, want %v", q, want)
	}
	for k, v := range want {
		if got := q.Get(k); got != v {
			t.Errorf("param %s = %q, want %q", k, got, v)
		}
	}
}

func TestQueryParams(t *testing.T) {
	mapOnly := View{Name: "by_title", Map: "m", Defaults: Options{OptDescending: true}}
	withReduce := View{Name: "all", Map: "m", Reduce: "_count"}

	tests := []struct {
		name string
		view View
		opts Options
		want Options
	}{
		{
			name: "defaults",
			view: mapOnly,
			opts: nil,
			want: Options{OptDescending: true, OptIncludeDocs: true},
		},
		{
			name: "caller wins",
			view: mapOnly,
			opts: Options{OptDescending: false, OptDatabase: "x"},
			want: Options{OptDescending: false, OptIncludeDocs: true},
		},
		{
			name: "reduce off by default",
			view: withReduce,
			opts: Options{},
			want: Options{OptReduce: false, OptIncludeDocs: true},
		},
		{
			name: "reduce requested",
			view: withReduce,
			opts: Options{OptReduce: true, OptGroup: true, OptIncludeDocs: true},
			want: Options{OptReduce: true, OptGroup: true},
		},
		{
			name: "reduce on map only view",
			view: mapOnly,
			opts: Options{OptReduce: true, OptGroup: true},
			want: Options{OptDescending: true, OptIncludeDocs: true},
		},
		{
			name: "raw",
			view: mapOnly,
			opts: Options{OptRaw: true},
			want: Options{OptDescending: true, OptRaw: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := queryParams(tt.view, tt.opts); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("queryParams() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestViewBy(t *testing.T) {
	v, err := ViewBy("Course", []string{"title", "active"}, ViewByOptions{})
	if err != nil {
		t.Errorf("ViewBy() error = %v", err)
		return
	}
	if v.Name != "by_title_and_active" {
		t.Errorf("ViewBy() name = %s", v.Name)
	}
	wantMap := `function(doc) {
  if (doc['couchparty-type'] == 'Course' && doc['title'] != null && doc['active'] != null) {
    emit([doc['title'], doc['active']], null);
  }
}`
	if v.Map != wantMap {
		t.Errorf("ViewBy() map =\n%s\nwant\n%s", v.Map, wantMap)
	}

	duck, _ := ViewBy("Course", []string{"title"}, ViewByOptions{Ducktype: true})
	wantDuck := `function(doc) {
  if (doc['title'] != null) {
    emit(doc['title'], null);
  }
}`
	if duck.Map != wantDuck {
		t.Errorf("ViewBy(ducktype) map =\n%s", duck.Map)
	}

	if _, err := ViewBy("Course", nil, ViewByOptions{}); err == nil {
		t.Errorf("ViewBy() without properties must fail")
	}
	if got := FinderName("title", "active"); got != "find_by_title_and_active" {
		t.Errorf("FinderName() = %s", got)
	}
}

func TestDesignDocDeclare(t *testing.T) {
	a := NewDesignDoc("Course")
	b := NewDesignDoc("Course")

	views := []View{
		{Name: "by_title", Map: "m1", Defaults: Options{OptStale: StaleOK, OptLimit: 10}},
		{Name: "by_date", Map: "m2", Reduce: "_count"},
		{Name: "all", Map: "m3"},
	}
	for _, v := range views {
		if _, err := a.DeclareView(v); err != nil {
			t.Errorf("DeclareView() error = %v", err)
			return
		}
	}
	for i := len(views) - 1; i >= 0; i-- {
		if _, err := b.DeclareView(views[i]); err != nil {
			t.Errorf("DeclareView() error = %v", err)
			return
		}
	}

	da, _ := digestOf(a.ToDocument())
	db, _ := digestOf(b.ToDocument())
	if da != db {
		t.Errorf("declaration order changed the document")
	}
	if !a.ToDocument().Equal(b.ToDocument()) {
		t.Errorf("documents differ")
	}

	changed, err := a.DeclareView(views[0])
	if err != nil || changed {
		t.Errorf("identical redeclaration: changed = %v, err = %v", changed, err)
	}
	if _, err := a.DeclareView(View{Map: "m"}); err == nil {
		t.Errorf("empty view name must fail")
	}
	if _, err := a.LookupView("missing"); err == nil {
		t.Errorf("LookupView() of a missing view must fail")
	}
	if got := a.ViewNames(); !reflect.DeepEqual(got, []string{"all", "by_date", "by_title"}) {
		t.Errorf("ViewNames() = %v", got)
	}
}
