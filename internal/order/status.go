package order

// Color tags understood by the renderers.
const (
	ColorWarning = "warning"
	ColorInfo    = "info"
	ColorPrimary = "primary"
	ColorSuccess = "success"
	ColorError   = "error"
	ColorDefault = "default"
)

var statusColors = map[Status]string{
	Pending:        ColorWarning,
	Accepted:       ColorInfo,
	Preparing:      ColorInfo,
	Ready:          ColorPrimary,
	Delivering:     ColorPrimary,
	OutForDelivery: ColorPrimary,
	Delivered:      ColorSuccess,
	Cancelled:      ColorError,
}

var statusLabels = map[Status]string{
	Pending:        "Pending",
	Accepted:       "Accepted",
	Preparing:      "Preparing",
	Ready:          "Ready",
	Delivering:     "Delivering",
	OutForDelivery: "Out for Delivery",
	Delivered:      "Delivered",
	Cancelled:      "Cancelled",
}

// ProgressSteps is the happy path a customer sees on the tracking bar.
var ProgressSteps = []Status{Pending, Preparing, Ready, Delivering, Delivered}

// StatusColor never fails; unknown statuses get ColorDefault.
func StatusColor(s Status) string {
	if c, ok := statusColors[s]; ok {
		return c
	}
	return ColorDefault
}

// StatusLabel echoes unknown statuses unchanged.
func StatusLabel(s Status) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// StatusProgress is the percentage along ProgressSteps, 0 when s is off
// the path.
func StatusProgress(s Status) int {
	for i, step := range ProgressSteps {
		if step == s {
			return i * 100 / (len(ProgressSteps) - 1)
		}
	}
	return 0
}

// Known reports whether s is one of the named constants.
func (s Status) Known() bool {
	_, ok := statusLabels[s]
	return ok
}

func (s Status) Label() string { return StatusLabel(s) }

func (s Status) Color() string { return StatusColor(s) }
