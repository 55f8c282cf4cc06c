package render

import (
	"encoding/json"
	"io"

	"github.com/wheeltrack/wheel/pkg/wheel/types"
	"github.com/wheeltrack/wheel/pkg/wheel/view"
)

// snapshotModel is the output shape for the JSON and YAML renderers.
type snapshotModel struct {
	SellPuts      []types.Trade                  `json:"sell_puts" yaml:"sell_puts"`
	SellCalls     []types.Trade                  `json:"sell_calls" yaml:"sell_calls"`
	CostBasis     map[string]types.CostBasis     `json:"cost_basis" yaml:"cost_basis"`
	CumulativePnl map[string]types.CumulativePnl `json:"cumulative_pnl" yaml:"cumulative_pnl"`
	Dashboard     *types.DashboardSummary        `json:"dashboard" yaml:"dashboard"`
}

func buildModel(snap view.Snapshot, opts Options) snapshotModel {
	return snapshotModel{
		SellPuts:      keepRows(snap.SellPuts, opts),
		SellCalls:     keepRows(snap.SellCalls, opts),
		CostBasis:     snap.CostBasis,
		CumulativePnl: snap.CumulativePnl,
		Dashboard:     snap.Dashboard,
	}
}

type JSONRenderer struct{}

func NewJSONRenderer() *JSONRenderer { return &JSONRenderer{} }

func (r *JSONRenderer) Render(w io.Writer, snap view.Snapshot, opts Options) error {
	enc := json.NewEncoder(w)
	if opts.PrettyJSON {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(buildModel(snap, opts))
}
