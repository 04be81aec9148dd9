// internal/pointer/tracker.go
package pointer

import (
	"sync/atomic"

	"github.com/xkilldash9x/flux-cli/internal/field"
)

// Gone is the position of a pointer that is not over the surface, either
// before the first event or after leaving. It is far enough off-canvas that
// no interaction or backlight applies.
var Gone = field.Vec2{X: -5000, Y: -5000}

// Source yields the pointer position for the next tick.
type Source interface {
	Position() field.Vec2
}

// Tracker holds the most recent pointer position. Writers and the frame loop
// may run on different goroutines; the latest write wins.
type Tracker struct {
	pos atomic.Pointer[field.Vec2]
}

// NewTracker returns a tracker parked at Gone.
func NewTracker() *Tracker {
	t := &Tracker{}
	t.Set(Gone)
	return t
}

// Set records a new position in canvas coordinates.
func (t *Tracker) Set(p field.Vec2) {
	t.pos.Store(&p)
}

// Move is Set for discrete coordinates.
func (t *Tracker) Move(x, y float64) {
	t.Set(field.Vec2{X: x, Y: y})
}

// Leave parks the pointer at Gone.
func (t *Tracker) Leave() {
	t.Set(Gone)
}

// Position returns the latest position.
func (t *Tracker) Position() field.Vec2 {
	if p := t.pos.Load(); p != nil {
		return *p
	}
	return Gone
}

// MapToCanvas rescales a client-space position on a surface laid out at
// layoutW x layoutH into a backing store of backingW x backingH. A degenerate
// layout leaves the coordinates unscaled.
func MapToCanvas(clientX, clientY, layoutW, layoutH, backingW, backingH float64) field.Vec2 {
	sx, sy := 1.0, 1.0
	if layoutW > 0 {
		sx = backingW / layoutW
	}
	if layoutH > 0 {
		sy = backingH / layoutH
	}
	return field.Vec2{X: clientX * sx, Y: clientY * sy}
}
