package derive

import "github.com/wheeltrack/wheel/pkg/wheel/types"

// Action is a mutation the UI may offer on a trade row.
type Action string

const (
	ActionEdit   Action = "edit"
	ActionClose  Action = "close"
	ActionAssign Action = "assign"
	ActionRoll   Action = "roll"
	ActionExpire Action = "expire"
)

// Actions returns the mutations available for a trade. Edit is always
// offered; the rest are gated on an Open status and on the leg type.
func Actions(t types.Trade) []Action {
	out := []Action{ActionEdit}
	if t.Status != types.StatusOpen {
		return out
	}
	switch t.TradeType {
	case types.SellPut:
		out = append(out, ActionClose, ActionAssign, ActionRoll)
	case types.SellCall:
		out = append(out, ActionExpire, ActionRoll)
	}
	return out
}

// Allows reports whether the action is available for the trade.
func Allows(t types.Trade, a Action) bool {
	for _, x := range Actions(t) {
		if x == a {
			return true
		}
	}
	return false
}
