package couchtest

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/valyala/fastjson"
)

// MapFunc runs a compiled map function over one document.
type MapFunc func(doc *fastjson.Value, emit func(key, value *fastjson.Value))

var (
	reEquals  = regexp.MustCompile(`doc\[['"]([^'"]+)['"]\]\s*===?\s*['"]([^'"]*)['"]`)
	reNotNull = regexp.MustCompile(`doc\[['"]([^'"]+)['"]\]\s*!==?\s*null`)
	reRef     = regexp.MustCompile(`^doc\[['"]([^'"]+)['"]\]$`)
)

// CompileMap understands the map functions generated for property views:
// equality and not null guards on document properties and a single emit
// whose key and value are property references, arrays of them or literals.
func CompileMap(src string) (MapFunc, error) {
	i := strings.Index(src, "emit(")
	if i < 0 {
		return nil, fmt.Errorf("no emit in map function")
	}
	args, err := emitArgs(src[i+len("emit("):])
	if err != nil {
		return nil, err
	}
	if len(args) != 2 {
		return nil, fmt.Errorf("emit needs key and value, got %d arguments", len(args))
	}
	key, err := compileExpr(args[0])
	if err != nil {
		return nil, err
	}
	value, err := compileExpr(args[1])
	if err != nil {
		return nil, err
	}

	guard := src[:i]
	var equals [][2]string
	for _, m := range reEquals.FindAllStringSubmatch(guard, -1) {
		equals = append(equals, [2]string{m[1], m[2]})
	}
	var notNull []string
	for _, m := range reNotNull.FindAllStringSubmatch(guard, -1) {
		notNull = append(notNull, m[1])
	}

	return func(doc *fastjson.Value, emit func(key, value *fastjson.Value)) {
		for _, eq := range equals {
			v := doc.Get(eq[0])
			if v == nil || v.Type() != fastjson.TypeString || string(v.GetStringBytes()) != eq[1] {
				return
			}
		}
		for _, p := range notNull {
			v := doc.Get(p)
			if v == nil || v.Type() == fastjson.TypeNull {
				return
			}
		}
		emit(key(doc), value(doc))
	}, nil
}

// emitArgs splits the argument list of emit at top level commas.
func emitArgs(s string) ([]string, error) {
	var (
		ret   []string
		depth int
		quote byte
		start int
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ']' || c == '}':
			depth--
		case c == ')':
			if depth == 0 {
				return append(ret, strings.TrimSpace(s[start:i])), nil
			}
			depth--
		case c == ',' && depth == 0:
			ret = append(ret, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	return nil, fmt.Errorf("unbalanced emit call")
}

type expr func(doc *fastjson.Value) *fastjson.Value

var null = fastjson.MustParse("null")

func compileExpr(s string) (expr, error) {
	s = strings.TrimSpace(s)
	if m := reRef.FindStringSubmatch(s); m != nil {
		prop := m[1]
		return func(doc *fastjson.Value) *fastjson.Value {
			if v := doc.Get(prop); v != nil {
				return v
			}
			return null
		}, nil
	}
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		elems, err := emitArgs(s[1:len(s)-1] + ")")
		if err != nil {
			return nil, err
		}
		items := make([]expr, 0, len(elems))
		for _, e := range elems {
			if e == "" {
				continue
			}
			item, err := compileExpr(e)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return func(doc *fastjson.Value) *fastjson.Value {
			var b bytes.Buffer
			b.WriteByte('[')
			for i, item := range items {
				if i > 0 {
					b.WriteByte(',')
				}
				b.Write(item(doc).MarshalTo(nil))
			}
			b.WriteByte(']')
			return fastjson.MustParseBytes(b.Bytes())
		}, nil
	}
	if strings.HasPrefix(s, "'") && strings.HasSuffix(s, "'") && len(s) >= 2 {
		s = strconv.Quote(s[1 : len(s)-1])
	}
	v, err := fastjson.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("unsupported expression %q: %w", s, err)
	}
	return func(*fastjson.Value) *fastjson.Value { return v }, nil
}

func typeRank(v *fastjson.Value) int {
	if v == nil {
		return 0
	}
	switch v.Type() {
	case fastjson.TypeNull:
		return 0
	case fastjson.TypeFalse:
		return 1
	case fastjson.TypeTrue:
		return 2
	case fastjson.TypeNumber:
		return 3
	case fastjson.TypeString:
		return 4
	case fastjson.TypeArray:
		return 5
	}
	return 6
}

// Collate orders keys the way views do: null, false, true, numbers, strings,
// arrays and objects. Strings compare by bytes.
func Collate(a, b *fastjson.Value) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch ra {
	case 3:
		fa, fb := a.GetFloat64(), b.GetFloat64()
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case 4:
		return bytes.Compare(a.GetStringBytes(), b.GetStringBytes())
	case 5:
		aa, ab := a.GetArray(), b.GetArray()
		for i := 0; i < len(aa) && i < len(ab); i++ {
			if c := Collate(aa[i], ab[i]); c != 0 {
				return c
			}
		}
		switch {
		case len(aa) < len(ab):
			return -1
		case len(aa) > len(ab):
			return 1
		}
		return 0
	case 6:
		return bytes.Compare(a.MarshalTo(nil), b.MarshalTo(nil))
	}
	return 0
}
