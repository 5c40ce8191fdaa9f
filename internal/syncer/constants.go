package syncer

const (
	endpointProduct         = "entity/product"
	endpointService         = "entity/service"
	endpointBundle          = "entity/bundle"
	endpointVariant         = "entity/variant"
	endpointFolder          = "entity/productfolder"
	endpointCharacteristics = "entity/variant/metadata/characteristics"

	refTypeFolder = "productfolder"

	attributeTypeCustom = "customentity"
)
