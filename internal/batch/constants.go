package batch

const (
	endpointAssortment = "entity/assortment"

	// directSubGroupSize bounds peak memory in the non-queued fallback:
	// entities are prepared and submitted in small fixed sub-groups with
	// processed references dropped as the pass advances.
	directSubGroupSize = 20

	// gcCadence is how many sub-groups the direct fallback processes
	// between explicit collection passes.
	gcCadence = 5
)
