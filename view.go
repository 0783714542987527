package couchparty

import (
	"fmt"
	"strings"

	"github.com/covrom/couchparty/ddoc"
)

// AllView is declared for every registered model.
const AllView = "all"

// View is a named index definition. Map and Reduce are opaque to the package,
// they are only stored and compared.
type View struct {
	Name     string
	Map      string
	Reduce   string
	Defaults Options
}

func (v View) HasReduce() bool {
	return v.Reduce != ""
}

func (v View) Validate() error {
	if v.Name == "" {
		return ErrorConfiguration{Message: "view name is empty"}
	}
	if v.Map == "" {
		return ErrorConfiguration{Message: fmt.Sprintf("view %q has no map function", v.Name)}
	}
	return nil
}

// normalized returns v with defaults in their stored json form.
func (v View) normalized() (View, error) {
	defaults, err := ddoc.NormalizeDefaults(v.Defaults)
	if err != nil {
		return v, ErrorConfiguration{Message: fmt.Sprintf("view %q defaults: %s", v.Name, err)}
	}
	v.Defaults = defaults
	return v, nil
}

func (v View) Doc() ddoc.View {
	return ddoc.View{
		Map:      v.Map,
		Reduce:   v.Reduce,
		Defaults: v.Defaults,
	}
}

func (v View) Equal(to View) bool {
	return v.Name == to.Name && v.Doc().Equal(to.Doc())
}

func viewFromDoc(name string, d ddoc.View) View {
	return View{
		Name:     name,
		Map:      d.Map,
		Reduce:   d.Reduce,
		Defaults: d.Defaults,
	}
}

// ViewName is the conventional name of a view keyed by properties.
func ViewName(props ...string) string {
	return "by_" + strings.Join(props, "_and_")
}

type ViewByOptions struct {
	// Ducktype omits the type tag guard, every document with the properties is indexed.
	Ducktype bool
	Reduce   string
	Defaults Options
}

// ViewBy builds a view keyed by the given document properties. Several
// properties give a compound key in the given order.
func ViewBy(typ TypeName, props []string, opts ViewByOptions) (View, error) {
	if len(props) == 0 {
		return View{}, ErrorConfiguration{Message: "view_by needs at least one property"}
	}
	for _, p := range props {
		if p == "" || strings.ContainsAny(p, `'\`) {
			return View{}, ErrorConfiguration{Message: fmt.Sprintf("bad property name %q", p)}
		}
	}

	conds := make([]string, 0, len(props)+1)
	keys := make([]string, 0, len(props))
	if !opts.Ducktype {
		conds = append(conds, fmt.Sprintf("doc['%s'] == '%s'", TypeField, typ))
	}
	for _, p := range props {
		conds = append(conds, fmt.Sprintf("doc['%s'] != null", p))
		keys = append(keys, fmt.Sprintf("doc['%s']", p))
	}
	key := keys[0]
	if len(keys) > 1 {
		key = "[" + strings.Join(keys, ", ") + "]"
	}

	return View{
		Name: ViewName(props...),
		Map: fmt.Sprintf(`function(doc) {
  if (%s) {
    emit(%s, null);
  }
}`, strings.Join(conds, " && "), key),
		Reduce:   opts.Reduce,
		Defaults: opts.Defaults,
	}, nil
}

func allViewFor(typ TypeName) View {
	return View{
		Name: AllView,
		Map: fmt.Sprintf(`function(doc) {
  if (doc['%s'] == '%s') {
    emit(doc['_id'], null);
  }
}`, TypeField, typ),
		Reduce: "_count",
	}
}
