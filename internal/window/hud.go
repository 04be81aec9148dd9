// internal/window/hud.go
package window

import (
	"fmt"
	"math"

	"github.com/xkilldash9x/flux-cli/internal/driver"
)

// hudLines builds the overlay text for the current driver state.
func hudLines(st driver.Status, notice string, canCritique bool) []string {
	lines := []string{fmt.Sprintf("FLUX  frame %d  gen %d", st.Frames, st.Generation)}
	if !st.Ready {
		lines = append(lines, "Loading flux map...")
	}
	if st.Fallback && st.Message != "" {
		lines = append(lines, st.Message)
	}
	if notice != "" {
		lines = append(lines, notice)
	}
	keys := "O open  S save  H hide  Q quit"
	if canCritique {
		keys = "O open  S save  C critique  H hide  Q quit"
	}
	return append(lines, keys)
}

// backingSize converts a layout size to device pixels. Sizes never drop
// below one pixel.
func backingSize(outsideWidth, outsideHeight int, scale float64) (int, int) {
	if scale <= 0 {
		scale = 1
	}
	w := int(math.Ceil(float64(outsideWidth) * scale))
	h := int(math.Ceil(float64(outsideHeight) * scale))
	return max(w, 1), max(h, 1)
}
