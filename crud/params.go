package crud

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/covrom/couchparty"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type ParamNames struct {
	Page       []string
	PerPage    []string
	Key        []string
	StartKey   []string
	EndKey     []string
	Descending []string
}

var DefaultParamNames = &ParamNames{
	Page:       []string{"page"},
	PerPage:    []string{"per_page", "limit"},
	Key:        []string{"key"},
	StartKey:   []string{"startkey", "start_key"},
	EndKey:     []string{"endkey", "end_key"},
	Descending: []string{"descending"},
}

// PageRequest is a collection page asked for in a request query.
type PageRequest struct {
	Page    int
	PerPage int
	Query   couchparty.Options
}

func first(query url.Values, names []string) (string, bool) {
	for _, n := range names {
		if query.Has(n) {
			return query.Get(n), true
		}
	}
	return "", false
}

// ParsePageRequest reads page, per_page and key range parameters. Keys are
// json values, a bare word is taken as a string.
func ParsePageRequest(query url.Values, defPerPage int) (PageRequest, error) {
	ret := PageRequest{
		Page:    1,
		PerPage: defPerPage,
		Query:   couchparty.Options{},
	}
	if v, ok := first(query, DefaultParamNames.Page); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return ret, couchparty.ErrorConfiguration{Message: fmt.Sprintf("bad page %q", v)}
		}
		ret.Page = n
	}
	if v, ok := first(query, DefaultParamNames.PerPage); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return ret, couchparty.ErrorConfiguration{Message: fmt.Sprintf("bad per_page %q", v)}
		}
		ret.PerPage = n
	}
	for opt, names := range map[string][]string{
		couchparty.OptKey:      DefaultParamNames.Key,
		couchparty.OptStartKey: DefaultParamNames.StartKey,
		couchparty.OptEndKey:   DefaultParamNames.EndKey,
	} {
		if v, ok := first(query, names); ok {
			ret.Query[opt] = parseKey(v)
		}
	}
	if v, ok := first(query, DefaultParamNames.Descending); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return ret, couchparty.ErrorConfiguration{Message: fmt.Sprintf("bad descending %q", v)}
		}
		ret.Query[couchparty.OptDescending] = b
	}
	return ret, nil
}

func parseKey(v string) any {
	var ret any
	if err := json.UnmarshalFromString(v, &ret); err != nil {
		return v
	}
	return ret
}

func PageRequestFrom(r *http.Request, defPerPage int) (PageRequest, error) {
	return ParsePageRequest(r.URL.Query(), defPerPage)
}
