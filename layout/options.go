package layout

// BuildOptions configures the layout stage with its dependencies, most
// importantly the measurement backend.
type BuildOptions struct {
	Typesetter Typesetter
}

// Extent is the measured size of a styled text run, in mm. Ascent and
// Descent are measured from the baseline; Height is their sum.
type Extent struct {
	Width   float64 `json:"width"`
	Ascent  float64 `json:"ascent"`
	Descent float64 `json:"descent"`
}

// Height returns the total vertical extent.
func (e Extent) Height() float64 { return e.Ascent + e.Descent }

// Typesetter measures text runs with the host toolkit's font metrics.
// Implementations resolve the Face to a concrete font.
type Typesetter interface {
	Measure(text string, face Face) (Extent, error)
}
