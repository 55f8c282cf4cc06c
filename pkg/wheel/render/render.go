package render

import (
	"io"

	"github.com/wheeltrack/wheel/pkg/wheel/filter"
	"github.com/wheeltrack/wheel/pkg/wheel/quotes"
	"github.com/wheeltrack/wheel/pkg/wheel/types"
	"github.com/wheeltrack/wheel/pkg/wheel/view"
)

// Unavailable is rendered when a ticker's cost-basis or cumulative-P&L
// snapshot is missing.
const Unavailable = "N/A"

// Renderer renders a page snapshot to an output writer.
type Renderer interface {
	Render(w io.Writer, snap view.Snapshot, opts Options) error
}

type Options struct {
	Color       bool
	PrettyJSON  bool
	MaxColWidth int

	// Filter restricts rows by underlying ticker; nil keeps everything.
	Filter filter.Filter

	// Quotes adds live Price/Chg% columns when non-nil.
	Quotes quotes.Service

	// Today anchors the days-held computation; zero means the current date.
	Today types.Date
}
