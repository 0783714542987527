package ddoc

import (
	"testing"
)

func TestDesignCanonical(t *testing.T) {
	d1 := Design{ID: ID("Course"), Rev: "1-a", Language: Language, Views: Views{}}
	d2 := Design{ID: ID("Course"), Rev: "7-b", Language: Language, Views: Views{}}

	d1.Views["by_title"] = View{Map: "function(doc) {}"}
	d1.Views["all"] = View{Map: "function(doc) {}", Reduce: "_count"}
	d2.Views["all"] = View{Map: "function(doc) {}", Reduce: "_count"}
	d2.Views["by_title"] = View{Map: "function(doc) {}"}

	b1, err := d1.Canonical()
	if err != nil {
		t.Fatal(err)
	}
	b2, err := d2.Canonical()
	if err != nil {
		t.Fatal(err)
	}
	if string(b1) != string(b2) {
		t.Errorf("canonical forms differ:\n%s\n%s", b1, b2)
	}
	if !d1.Equal(&d2) {
		t.Error("designs with different revisions must be equal")
	}
}

func TestDesignEqual(t *testing.T) {
	base := func() *Design {
		return &Design{ID: ID("Article"), Views: Views{
			"by_date": View{Map: "m", Defaults: map[string]any{"descending": true}},
		}}
	}
	tests := []struct {
		name   string
		modify func(d *Design)
		want   bool
	}{
		{"same", func(d *Design) {}, true},
		{"default language", func(d *Design) { d.Language = Language }, true},
		{"map", func(d *Design) { d.Views["by_date"] = View{Map: "x", Defaults: map[string]any{"descending": true}} }, false},
		{"reduce", func(d *Design) {
			d.Views["by_date"] = View{Map: "m", Reduce: "_sum", Defaults: map[string]any{"descending": true}}
		}, false},
		{"defaults", func(d *Design) { d.Views["by_date"] = View{Map: "m"} }, false},
		{"extra view", func(d *Design) { d.Views["all"] = View{Map: "m"} }, false},
		{"id", func(d *Design) { d.ID = ID("Other") }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := base()
			tt.modify(d)
			if got := base().Equal(d); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeDefaultsRoundTrip(t *testing.T) {
	norm, err := NormalizeDefaults(map[string]any{"stale": "ok", "limit": 10, "descending": true})
	if err != nil {
		t.Fatal(err)
	}
	d := Design{ID: ID("Mention"), Views: Views{"by_title": View{Map: "m", Defaults: norm}}}
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	var back Design
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	b2, err := json.Marshal(back)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != string(b2) {
		t.Errorf("defaults did not round trip:\n%s\n%s", b, b2)
	}
	if !back.Equal(&d) {
		t.Error("decoded design must equal the written one")
	}
}

func TestIDAndName(t *testing.T) {
	if got := ID("Course"); got != "_design/Course" {
		t.Errorf("ID() = %q", got)
	}
	if got := ID("_design/Course"); got != "_design/Course" {
		t.Errorf("ID() = %q", got)
	}
	if got := Name("_design/Course"); got != "Course" {
		t.Errorf("Name() = %q", got)
	}
}
