package couchparty

import "errors"

// AnyObjectMap holds a document that has no registered model.
type AnyObjectMap map[string]interface{}

func (f AnyObjectMap) MarshalJSON() ([]byte, error) {
	if f == nil {
		return []byte("{}"), nil
	}

	var v map[string]interface{} = f

	return jsonc.Marshal(v)
}

func (f *AnyObjectMap) UnmarshalJSON(b []byte) error {
	if f == nil {
		return errors.New("AnyObjectMap: UnmarshalJSON on nil pointer")
	}

	v := make(map[string]interface{})
	if err := jsonc.Unmarshal(b, &v); err != nil {
		return err
	}

	*f = v

	return nil
}

func (f AnyObjectMap) TypeName() TypeName {
	t, _ := f[TypeField].(string)
	return TypeName(t)
}

// ConvertTo decodes the map into value through json.
func (f AnyObjectMap) ConvertTo(value interface{}) error {
	bval, err := jsonc.Marshal(f)
	if err != nil {
		return err
	}
	return jsonc.Unmarshal(bval, value)
}
