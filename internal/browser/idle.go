package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ibeckermayer/portalpilot/internal/query"
)

// ErrIdleTimeout is returned when the page never settles.
var ErrIdleTimeout = errors.New("timed out waiting for network idle")

const idlePoll = 100 * time.Millisecond

// idleProbeJS reports document readiness plus the number of resource entries
// the page has started so far. A stable count means no new requests.
const idleProbeJS = `(() => ({
	ready: document.readyState === 'complete',
	resources: performance.getEntriesByType('resource').length,
}))()`

type idleSettings struct {
	quiet   time.Duration
	timeout time.Duration
}

type idleProbe struct {
	Ready     bool `json:"ready"`
	Resources int  `json:"resources"`
}

// waitIdle polls the page until it is loaded and the resource count has not
// moved for s.quiet. Evaluation errors during navigation count as not ready.
func waitIdle(ctx context.Context, ev query.Evaluator, s idleSettings) error {
	if s.timeout <= 0 {
		s.timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ticker := time.NewTicker(idlePoll)
	defer ticker.Stop()

	last := -1
	var stableSince time.Time
	for {
		var probe idleProbe
		if err := ev.Evaluate(ctx, idleProbeJS, &probe); err == nil && probe.Ready {
			now := time.Now()
			if probe.Resources != last {
				last = probe.Resources
				stableSince = now
			} else if now.Sub(stableSince) >= s.quiet {
				return nil
			}
		} else {
			last = -1
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w after %s", ErrIdleTimeout, s.timeout)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
