package strategy

import (
	"math"

	"TradePilot/internal/model"
)

// Decision thresholds are fixed at unit magnitude for every weight
// scheme; weight tuning changes sensitivity, not the boundary.
const (
	buyThreshold  = 1.0
	sellThreshold = -1.0
)

// Decide maps a total score and the current holding to an action.
// Sells are only possible for symbols actually held.
func Decide(total float64, holdingQty int) model.Action {
	switch {
	case total >= buyThreshold:
		return model.ActionBuy
	case total <= sellThreshold && holdingQty > 0:
		return model.ActionSell
	default:
		return model.ActionHold
	}
}

// SizeBuy returns the whole-share quantity a buy-unit budget affords at
// the given price. 0 means the action degrades to a no-op: either one
// share costs more than the budget, or there is no usable price.
func SizeBuy(buyUnit, price float64) int {
	if price <= 0 || buyUnit <= 0 {
		return 0
	}
	return int(math.Floor(buyUnit / price))
}
