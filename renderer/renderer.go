package renderer

import "github.com/hltx/hightext/layout"

// Renderer turns a layout result into a final artifact, for example a
// PDF or PNG byte slice.
type Renderer interface {
	Render(result *layout.Result) ([]byte, error)
}
