package couchparty

// TypeField is the document property holding the model type tag.
const TypeField = "couchparty-type"

// Document is embedded by models to carry the CouchDB meta fields.
type Document struct {
	ID   string   `json:"_id,omitempty"`
	Rev  string   `json:"_rev,omitempty"`
	Type TypeName `json:"couchparty-type,omitempty"`
}
