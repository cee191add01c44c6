package medquote

import "github.com/xraph/medquote/id"

// ID is the primary identifier type for all medquote entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
