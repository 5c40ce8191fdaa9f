package remote

import (
	"encoding/json"
	"fmt"

	"github.com/stocklink/stocklink/internal/domain"
)

// wireEntity mirrors the subset of the remote record schema the sync engine
// depends on. Unrecognized scalar fields are preserved in Fields so match
// fields like code/article/externalCode stay addressable without schema
// knowledge here.
type wireEntity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Meta struct {
		Type string `json:"type"`
	} `json:"meta"`
	Folder *struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"productFolder"`
	Attributes []struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Type  string `json:"type"`
		Value any    `json:"value"`
	} `json:"attributes"`
}

// DecodeEntity converts one remote record into the domain shape.
func DecodeEntity(raw json.RawMessage) (domain.Entity, error) {
	var wire wireEntity
	if err := json.Unmarshal(raw, &wire); err != nil {
		return domain.Entity{}, fmt.Errorf("malformed entity: %w", err)
	}
	if wire.ID == "" {
		return domain.Entity{}, fmt.Errorf("malformed entity: missing id")
	}

	e := domain.Entity{
		ID:   wire.ID,
		Type: domain.EntityType(wire.Meta.Type),
		Name: wire.Name,
	}
	if wire.Folder != nil {
		e.Folder = &domain.Ref{ID: wire.Folder.ID, Type: string(domain.EntityFolder), Name: wire.Folder.Name}
	}
	for _, a := range wire.Attributes {
		e.Attributes = append(e.Attributes, domain.AttributeValue{
			ID: a.ID, Name: a.Name, Type: a.Type, Value: a.Value,
		})
	}

	// Keep the remaining scalar fields addressable as match-field candidates.
	var all map[string]any
	if err := json.Unmarshal(raw, &all); err == nil {
		fields := make(map[string]any)
		for k, v := range all {
			switch k {
			case "id", "name", "meta", "productFolder", "attributes":
				continue
			}
			switch v.(type) {
			case string, float64, bool:
				fields[k] = v
			}
		}
		if len(fields) > 0 {
			e.Fields = fields
		}
	}
	return e, nil
}
