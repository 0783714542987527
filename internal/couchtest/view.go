package couchtest

import (
	"bytes"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/valyala/fastjson"
)

type viewQuery struct {
	Key          *fastjson.Value
	StartKey     *fastjson.Value
	EndKey       *fastjson.Value
	Descending   bool
	InclusiveEnd bool
	Skip         int
	Limit        int // -1 is no limit
	IncludeDocs  bool
	Reduce       *bool
	Group        bool
}

func parseKeyParam(query url.Values, names ...string) (*fastjson.Value, error) {
	for _, n := range names {
		if !query.Has(n) {
			continue
		}
		v, err := fastjson.Parse(query.Get(n))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %s: %w", n, err, ErrBadJSON)
		}
		return v, nil
	}
	return nil, nil
}

func parseIntParam(query url.Values, name string, def int) (int, error) {
	s := query.Get(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q: %w", name, s, ErrBadJSON)
	}
	return n, nil
}

func parseViewQuery(query url.Values) (q viewQuery, err error) {
	if q.Key, err = parseKeyParam(query, "key"); err != nil {
		return
	}
	if q.StartKey, err = parseKeyParam(query, "startkey", "start_key"); err != nil {
		return
	}
	if q.EndKey, err = parseKeyParam(query, "endkey", "end_key"); err != nil {
		return
	}
	if q.Descending, err = parseBool(query.Get("descending"), false); err != nil {
		return
	}
	if q.InclusiveEnd, err = parseBool(query.Get("inclusive_end"), true); err != nil {
		return
	}
	if q.IncludeDocs, err = parseBool(query.Get("include_docs"), false); err != nil {
		return
	}
	if q.Group, err = parseBool(query.Get("group"), false); err != nil {
		return
	}
	if query.Has("reduce") {
		var b bool
		if b, err = parseBool(query.Get("reduce"), true); err != nil {
			return
		}
		q.Reduce = &b
	}
	if q.Skip, err = parseIntParam(query, "skip", 0); err != nil {
		return
	}
	q.Limit, err = parseIntParam(query, "limit", -1)
	return
}

type viewRow struct {
	ID    string
	Key   *fastjson.Value
	Value *fastjson.Value
	Doc   *document
}

func (d *database) viewDef(ddocID, view string) (string, string, error) {
	ddoc, ok := d.docs[ddocID]
	if !ok {
		return "", "", fmt.Errorf("%s: %w", ddocID, ErrDocumentNotFound)
	}
	v, err := fastjson.ParseBytes(ddoc.Data)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", err, ErrBadJSON)
	}
	vv := v.Get("views", view)
	if vv == nil {
		return "", "", fmt.Errorf("%s: %w", view, ErrViewNotFound)
	}
	return string(vv.GetStringBytes("map")), string(vv.GetStringBytes("reduce")), nil
}

func (d *database) selectView(ddocID, view string, q viewQuery) ([]byte, error) {
	mapSrc, reduceSrc, err := d.viewDef(ddocID, view)
	if err != nil {
		return nil, err
	}
	mapFn, err := CompileMap(mapSrc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", err, ErrCompilation)
	}

	var rows []viewRow
	for id, doc := range d.docs {
		if strings.HasPrefix(id, "_design/") {
			continue
		}
		v, err := fastjson.ParseBytes(doc.JSON())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", err, ErrBadJSON)
		}
		doc := doc
		mapFn(v, func(key, value *fastjson.Value) {
			rows = append(rows, viewRow{ID: doc.ID, Key: key, Value: value, Doc: doc})
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if c := Collate(rows[i].Key, rows[j].Key); c != 0 {
			return c < 0
		}
		return rows[i].ID < rows[j].ID
	})
	if q.Descending {
		for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
			rows[i], rows[j] = rows[j], rows[i]
		}
	}
	totalRows := len(rows)

	// direction aware range
	dir := 1
	if q.Descending {
		dir = -1
	}
	inRange := func(key *fastjson.Value) (before, after bool) {
		if q.Key != nil {
			c := Collate(key, q.Key) * dir
			return c < 0, c > 0
		}
		if q.StartKey != nil && Collate(key, q.StartKey)*dir < 0 {
			before = true
		}
		if q.EndKey != nil {
			c := Collate(key, q.EndKey) * dir
			if c > 0 || (c == 0 && !q.InclusiveEnd) {
				after = true
			}
		}
		return
	}
	offset := 0
	selected := rows[:0:0]
	for i, row := range rows {
		before, after := inRange(row.Key)
		if before {
			offset = i + 1
			continue
		}
		if after {
			break
		}
		selected = append(selected, row)
	}

	reduce := reduceSrc != ""
	if q.Reduce != nil {
		reduce = *q.Reduce && reduceSrc != ""
	}
	if q.Reduce != nil && *q.Reduce && reduceSrc == "" {
		return nil, fmt.Errorf("reduce is invalid for map only views: %w", ErrBadJSON)
	}

	var b bytes.Buffer
	if reduce {
		reduced, err := reduceRows(reduceSrc, selected, q.Group)
		if err != nil {
			return nil, err
		}
		b.WriteString(`{"rows":[`)
		for i, row := range page(reduced, q.Skip, q.Limit) {
			if i > 0 {
				b.WriteByte(',')
			}
			fmt.Fprintf(&b, `{"key":%s,"value":%s}`, row.Key.MarshalTo(nil), row.Value.MarshalTo(nil))
		}
		b.WriteString(`]}`)
		return b.Bytes(), nil
	}

	offset += min(q.Skip, len(selected))
	var a fastjson.Arena
	fmt.Fprintf(&b, `{"total_rows":%d,"offset":%d,"rows":[`, totalRows, offset)
	for i, row := range page(selected, q.Skip, q.Limit) {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, `{"id":%s,"key":%s,"value":%s`,
			a.NewString(row.ID).MarshalTo(nil), row.Key.MarshalTo(nil), row.Value.MarshalTo(nil))
		if q.IncludeDocs {
			b.WriteString(`,"doc":`)
			b.Write(row.Doc.JSON())
		}
		b.WriteByte('}')
	}
	b.WriteString(`]}`)
	return b.Bytes(), nil
}

func page(rows []viewRow, skip, limit int) []viewRow {
	if skip >= len(rows) {
		return nil
	}
	rows = rows[skip:]
	if limit >= 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

func reduceRows(src string, rows []viewRow, group bool) ([]viewRow, error) {
	var fn func([]viewRow) (*fastjson.Value, error)
	switch strings.TrimSpace(src) {
	case "_count":
		fn = func(rs []viewRow) (*fastjson.Value, error) {
			return fastjson.Parse(strconv.Itoa(len(rs)))
		}
	case "_sum":
		fn = func(rs []viewRow) (*fastjson.Value, error) {
			var sum float64
			for _, r := range rs {
				sum += r.Value.GetFloat64()
			}
			return fastjson.Parse(strconv.FormatFloat(sum, 'f', -1, 64))
		}
	default:
		return nil, fmt.Errorf("unsupported reduce %q: %w", src, ErrCompilation)
	}

	if !group {
		if len(rows) == 0 {
			return nil, nil
		}
		v, err := fn(rows)
		if err != nil {
			return nil, err
		}
		return []viewRow{{Key: null, Value: v}}, nil
	}

	var ret []viewRow
	for start := 0; start < len(rows); {
		end := start + 1
		for end < len(rows) && Collate(rows[start].Key, rows[end].Key) == 0 {
			end++
		}
		v, err := fn(rows[start:end])
		if err != nil {
			return nil, err
		}
		ret = append(ret, viewRow{Key: rows[start].Key, Value: v})
		start = end
	}
	return ret, nil
}
