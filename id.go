package replay

import "github.com/xraph/replay/id"

// ID is the primary identifier type for all Replay entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
