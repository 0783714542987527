package ddoc

import (
	"strings"

	jsoniter "github.com/json-iterator/go"
)

const (
	Prefix   = "_design/"
	Language = "javascript"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Design is the stored shape of a design document.
type Design struct {
	ID       string `json:"_id"`
	Rev      string `json:"_rev,omitempty"`
	Language string `json:"language,omitempty"`
	Views    Views  `json:"views"`
}

func ID(name string) string {
	if strings.HasPrefix(name, Prefix) {
		return name
	}
	return Prefix + name
}

// Name strips the design prefix from id.
func Name(id string) string {
	return strings.TrimPrefix(id, Prefix)
}

func (d Design) String() string {
	b, _ := json.Marshal(d)
	return string(b)
}

// Canonical serializes d without its revision. Map keys are sorted, so equal
// view sets always give equal bytes.
func (d Design) Canonical() ([]byte, error) {
	d.Rev = ""
	return json.Marshal(d)
}

// Equal compares the stored content only, revisions are ignored.
func (from *Design) Equal(to *Design) bool {
	if from == nil || to == nil {
		return from == to
	}
	return from.ID == to.ID &&
		languageOf(from) == languageOf(to) &&
		from.Views.Equal(to.Views)
}

func languageOf(d *Design) string {
	if d.Language == "" {
		return Language
	}
	return d.Language
}

// NormalizeDefaults passes defaults through a json round trip so that values
// compare equal to what the store returns for them.
func NormalizeDefaults(defaults map[string]any) (map[string]any, error) {
	if len(defaults) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(defaults)
	if err != nil {
		return nil, err
	}
	ret := make(map[string]any, len(defaults))
	if err := json.Unmarshal(b, &ret); err != nil {
		return nil, err
	}
	return ret, nil
}
