package medquote

import "github.com/xraph/medquote/types"

// Re-export common types for convenience so users don't have to import types package.

// Money is re-exported from types package.
type Money = types.Money

// Week is re-exported from types package.
type Week = types.Week

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export Money and Week constructors
var (
	USD       = types.USD
	Dollars   = types.Dollars
	Zero      = types.Zero
	Sum       = types.Sum
	WeekOf    = types.WeekOf
	ParseWeek = types.ParseWeek
)

// Re-export Entity constructor
var NewEntity = types.NewEntity
