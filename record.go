package couchparty

import (
	"encoding/json"

	jsoniter "github.com/json-iterator/go"
)

type RecordKind int

const (
	// Untyped records hold a generic map: reduce output, rows without a
	// document and documents with no registered type tag.
	Untyped RecordKind = iota
	// Typed records hold a pointer to a registered model.
	Typed
)

func (k RecordKind) String() string {
	if k == Typed {
		return "typed"
	}
	return "untyped"
}

// Record is one decoded view row.
type Record struct {
	Kind   RecordKind
	Type   TypeName
	ID     string
	Key    json.RawMessage
	Value  json.RawMessage
	Model  any
	Fields AnyObjectMap
}

func (r Record) IsTyped() bool {
	return r.Kind == Typed
}

// Decode fills v from the record, v may be of another type than the model.
func (r Record) Decode(v any) error {
	if r.Kind == Typed {
		b, err := jsonc.Marshal(r.Model)
		if err != nil {
			return err
		}
		return jsonc.Unmarshal(b, v)
	}
	return r.Fields.ConvertTo(v)
}

func (r Record) MarshalJSON() ([]byte, error) {
	if r.Kind == Typed {
		return jsonc.Marshal(r.Model)
	}
	return r.Fields.MarshalJSON()
}

// As returns the model of a typed record.
func As[T any](r Record) (*T, bool) {
	if r.Kind != Typed {
		return nil, false
	}
	m, ok := r.Model.(*T)
	return m, ok
}

func (s *CouchStore) decodeRow(row ViewRow, reduce bool) (Record, error) {
	switch {
	case reduce:
		return untypedRecord(row, AnyObjectMap{
			"key":   rawValue(row.Key),
			"value": rawValue(row.Value),
		}), nil
	case row.HasDoc():
		return s.decodeDocument(row)
	}
	return untypedRecord(row, AnyObjectMap{
		"id":    row.ID,
		"key":   rawValue(row.Key),
		"value": rawValue(row.Value),
	}), nil
}

// decodeDocument instantiates the type named by the document tag. Documents
// without a tag or with a tag of an unregistered type stay untyped.
func (s *CouchStore) decodeDocument(row ViewRow) (Record, error) {
	tag := TypeName(jsoniter.Get(row.Doc, TypeField).ToString())
	if tag != "" {
		if md, ok := s.GetModelDescriptionByName(tag); ok && md.ReflectType() != nil {
			m := md.New()
			if err := jsonc.Unmarshal(row.Doc, m); err != nil {
				return Record{}, ErrorUnavailable{Op: "decodeDocument", Err: err}
			}
			return Record{
				Kind:  Typed,
				Type:  tag,
				ID:    row.ID,
				Key:   row.Key,
				Value: row.Value,
				Model: m,
			}, nil
		}
	}
	fields := AnyObjectMap{}
	if err := fields.UnmarshalJSON(row.Doc); err != nil {
		return Record{}, ErrorUnavailable{Op: "decodeDocument", Err: err}
	}
	rec := untypedRecord(row, fields)
	rec.Type = fields.TypeName()
	return rec, nil
}

func untypedRecord(row ViewRow, fields AnyObjectMap) Record {
	return Record{
		Kind:   Untyped,
		ID:     row.ID,
		Key:    row.Key,
		Value:  row.Value,
		Fields: fields,
	}
}

func rawValue(b json.RawMessage) any {
	if len(b) == 0 {
		return nil
	}
	var v any
	if err := jsonc.Unmarshal(b, &v); err != nil {
		return nil
	}
	return v
}
