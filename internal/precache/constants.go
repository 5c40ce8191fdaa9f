package precache

import (
	"time"

	"github.com/stocklink/stocklink/internal/domain"
)

const (
	endpointUnits         = "entity/uom"
	endpointCountries     = "entity/country"
	endpointCustomEntity  = "entity/customentity"
	vocabularyMatchField  = "code"
	attributeQueryPrefix  = "attr_"
	attributeTypeCustom   = "customentity"
	defaultMetaCacheSize  = 256
	defaultMetaCacheTTL   = 10 * time.Minute
)

// vocabularies are the shared standard dictionaries resolved in stage one.
var vocabularies = []struct {
	entityType domain.EntityType
	endpoint   string
}{
	{domain.EntityUnit, endpointUnits},
	{domain.EntityCountry, endpointCountries},
}

func attributeEndpoint(t domain.EntityType) string {
	return "entity/" + string(t) + "/metadata/attributes"
}

func elementsEndpoint(customEntityID string) string {
	return endpointCustomEntity + "/" + customEntityID
}
