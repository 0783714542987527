package couchparty

import (
	"encoding/json"
	"sort"
	"strconv"
)

// Options are view query parameters. Keys the package does not know are sent
// to the store as they are.
type Options map[string]any

const (
	OptKey         = "key"
	OptStartKey    = "startkey"
	OptEndKey      = "endkey"
	OptLimit       = "limit"
	OptSkip        = "skip"
	OptDescending  = "descending"
	OptStale       = "stale"
	OptReduce      = "reduce"
	OptGroup       = "group"
	OptIncludeDocs = "include_docs"
	OptRaw         = "raw"
	OptDatabase    = "database"
)

// Stale values accepted by CouchDB.
const (
	StaleOK          = "ok"
	StaleUpdateAfter = "update_after"
)

// client side options, never sent to the store
var localOptions = map[string]struct{}{
	OptRaw:      {},
	OptDatabase: {},
}

// keys that are json encoded in the query string
var jsonOptions = map[string]struct{}{
	"key":       {},
	"keys":      {},
	"startkey":  {},
	"start_key": {},
	"endkey":    {},
	"end_key":   {},
}

// Clone returns a shallow copy, values are shared.
func (o Options) Clone() Options {
	ret := make(Options, len(o))
	for k, v := range o {
		ret[k] = v
	}
	return ret
}

// Merge returns a new Options with over applied on top of o.
// Neither o nor over is modified.
func (o Options) Merge(over Options) Options {
	ret := make(Options, len(o)+len(over))
	for k, v := range o {
		ret[k] = v
	}
	for k, v := range over {
		ret[k] = v
	}
	return ret
}

func (o Options) Without(names ...string) Options {
	ret := o.Clone()
	for _, n := range names {
		delete(ret, n)
	}
	return ret
}

func (o Options) Has(name string) bool {
	_, ok := o[name]
	return ok
}

func (o Options) Bool(name string) (bool, bool) {
	switch v := o[name].(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, false
		}
		return b, true
	}
	return false, false
}

func (o Options) Int(name string) (int, bool) {
	switch v := o[name].(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint:
		return int(v), true
	case float64:
		return int(v), true
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	case string:
		i, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		return i, true
	}
	return 0, false
}

func (o Options) String(name string) (string, bool) {
	s, ok := o[name].(string)
	return s, ok
}

// Keys returns the option names in sorted order.
func (o Options) Keys() []string {
	ret := make([]string, 0, len(o))
	for k := range o {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret
}
