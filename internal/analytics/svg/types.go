package svg

// Series is one named row of values plotted against the shared labels.
type Series struct {
	Name   string
	Color  string
	Values []float64
}

// Opts customises the chart renderers. Zero values take the defaults.
type Opts struct {
	Title       string
	Description string
	Width       int
	Height      int
	Padding     float64
	Ticks       int
	AxisColor   string
	GridColor   string
	ShowDots    bool
}

// Defaults for the report charts.
const (
	DefaultWidth   = 720
	DefaultHeight  = 240
	DefaultPadding = 32.0
	DefaultTicks   = 5
)

var palette = []string{"#2563eb", "#f97316", "#16a34a", "#9333ea", "#dc2626"}
