package render

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/wheeltrack/wheel/pkg/wheel/view"
)

type YAMLRenderer struct{}

func NewYAMLRenderer() *YAMLRenderer { return &YAMLRenderer{} }

func (r *YAMLRenderer) Render(w io.Writer, snap view.Snapshot, opts Options) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(buildModel(snap, opts))
}
