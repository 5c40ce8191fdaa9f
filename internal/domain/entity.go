package domain

import (
	"fmt"
	"strconv"
)

// EntityType identifies a catalog kind in the remote API.
type EntityType string

const (
	EntityProduct             EntityType = "product"
	EntityService             EntityType = "service"
	EntityBundle              EntityType = "bundle"
	EntityVariant             EntityType = "variant"
	EntityFolder              EntityType = "productfolder"
	EntityUnit                EntityType = "uom"
	EntityCountry             EntityType = "country"
	EntityCustomEntity        EntityType = "customentity"
	EntityCustomEntityElement EntityType = "customentityelement"
)

// CatalogTypes are the entity kinds that flow through the batch orchestrator.
var CatalogTypes = []EntityType{EntityProduct, EntityService, EntityBundle, EntityVariant}

// Ref is a lightweight reference to another remote record.
type Ref struct {
	ID   string `json:"id"`
	Type string `json:"type,omitempty"`
	Name string `json:"name,omitempty"`
}

// AttributeValue is one attribute attached to a remote entity.
type AttributeValue struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Type  string `json:"type,omitempty"`
	Value any    `json:"value"`
}

// Entity is the shape of a remote catalog record the sync engine depends on:
// an id, a type marker, scalar fields (the match-field candidates), an
// optional folder reference and a list of attribute values.
type Entity struct {
	ID         string           `json:"id"`
	Type       EntityType       `json:"type"`
	Name       string           `json:"name"`
	Fields     map[string]any   `json:"fields,omitempty"`
	Folder     *Ref             `json:"folder,omitempty"`
	Attributes []AttributeValue `json:"attributes,omitempty"`
}

// Field returns a scalar field by name. Name is addressable as a field too.
func (e *Entity) Field(name string) (any, bool) {
	if name == "name" {
		return e.Name, e.Name != ""
	}
	if e.Fields == nil {
		return nil, false
	}
	v, ok := e.Fields[name]
	return v, ok
}

// MatchValue returns the string form of the entity's match-field value.
// The second return is false when the field is absent or empty, which is a
// skip condition for synchronization, not an error.
func (e *Entity) MatchValue(field string) (string, bool) {
	v, ok := e.Field(field)
	if !ok || v == nil {
		return "", false
	}
	s := stringify(v)
	return s, s != ""
}

// Attribute returns the entity's attribute with the given id.
func (e *Entity) Attribute(id string) (*AttributeValue, bool) {
	for i := range e.Attributes {
		if e.Attributes[i].ID == id {
			return &e.Attributes[i], true
		}
	}
	return nil, false
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", v)
	}
}
