package replay

import "github.com/xraph/replay/types"

// Re-export common types for convenience so users don't have to import types package.

// Points is re-exported from types package.
type Points = types.Points

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export Points constructors
var (
	PointsOf   = types.PointsOf
	ZeroPoints = types.ZeroPoints
)

// Re-export Entity constructor
var NewEntity = types.NewEntity
