package mapping

import "github.com/stocklink/stocklink/internal/domain"

const (
	// searchPageLimit caps the match-filter search. One hit is enough;
	// a few more let us log when a match value is ambiguous.
	searchPageLimit = 10
)

// verifiedKinds are the mapping kinds whose child-side records users edit or
// delete by hand, so a stored mapping may point at nothing. Resolve confirms
// the target still exists before reusing these, and drops the row otherwise.
var verifiedKinds = map[domain.MappingKind]bool{
	domain.KindStandardEntity: true,
	domain.KindCharacteristic: true,
}
