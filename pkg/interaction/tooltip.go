package interaction

import (
	"time"

	"github.com/ha1tch/flow-toolkit/pkg/throttle"
)

// Tooltip shows the id of the hovered object once the pointer has rested on
// it for the delay. Hover is called on every pointer move and Tick from the
// event loop; the last hover within the delay wins.
type Tooltip struct {
	pending *throttle.Coalescer[string]
	visible string
}

// NewTooltip creates a tooltip with the given show/hide delay.
func NewTooltip(delay time.Duration) *Tooltip {
	return &Tooltip{pending: throttle.NewCoalescer[string](delay)}
}

// Hover records the object under the pointer; "" means nothing.
func (t *Tooltip) Hover(id string, now time.Time) {
	if id == t.visible {
		t.pending.Drop()
		return
	}
	t.pending.Touch(id, now)
}

// Tick applies a settled hover and reports whether the visible tooltip
// changed.
func (t *Tooltip) Tick(now time.Time) (string, bool) {
	id, ok := t.pending.Due(now)
	if !ok || id == t.visible {
		return t.visible, false
	}
	t.visible = id
	return id, true
}

// Visible returns the id the tooltip shows, or "".
func (t *Tooltip) Visible() string { return t.visible }

// Hide clears the tooltip immediately.
func (t *Tooltip) Hide() {
	t.pending.Drop()
	t.visible = ""
}
