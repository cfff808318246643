package salesdoc

import (
	"github.com/xraph/salesdoc/lineitem"
	"github.com/xraph/salesdoc/types"
)

// Re-export common types for convenience so users don't have to import types package.

// Money is re-exported from types package.
type Money = types.Money

// Quantity is re-exported from types package.
type Quantity = types.Quantity

// Entity is re-exported from types package.
type Entity = types.Entity

// LineItemInput is re-exported from lineitem package.
type LineItemInput = lineitem.Input

// Re-export Money constructors
var (
	Cents      = types.Cents
	ParseMoney = types.ParseMoney
	MustParse  = types.MustParse
	Zero       = types.Zero
	Sum        = types.Sum
)

// Re-export Quantity constructors
var (
	Units        = types.Units
	NewQuantity  = types.NewQuantity
	MustQuantity = types.MustQuantity
)
