package marionette

import (
	"fmt"
	"os"
	"time"
)

// renderStats holds per-render cache metrics.
// Only populated when Project.debug is true.
type renderStats struct {
	layersDrawn   int
	cacheHits     int
	cacheRebuilds int
	elapsed       time.Duration
}

// debugLog prints render stats to stderr.
func (p *Project) debugLog(stats renderStats) {
	if !p.debug {
		return
	}
	_, _ = fmt.Fprintf(os.Stderr,
		"[marionette] render: %v | layers: %d | cache hits: %d | rebuilds: %d\n",
		stats.elapsed, stats.layersDrawn, stats.cacheHits, stats.cacheRebuilds)
}

// debugCheckDepth warns on stderr if a layer or bone tree gets deeper than
// the threshold.
const debugMaxTreeDepth = 32

func debugCheckDepth(kind, name string, depth int) {
	if depth > debugMaxTreeDepth {
		_, _ = fmt.Fprintf(os.Stderr, "[marionette] warning: %s tree depth %d exceeds %d (%s %q)\n",
			kind, depth, debugMaxTreeDepth, kind, name)
	}
}

// debugCheckHistory warns on stderr when the undo stack is full and the
// oldest step is about to be dropped.
func debugCheckHistory(h *History) {
	if h.UndoLen() >= h.Limit() {
		_, _ = fmt.Fprintf(os.Stderr, "[marionette] history full at %d steps, dropping the oldest\n", h.Limit())
	}
}
