package transmogrify

import (
	"context"
	"fmt"
	"strings"

	"github.com/kompox/pgcluster/domain/model"
	"github.com/kompox/pgcluster/internal/logging"
)

// Check validates every applicable transmogrifier in ts, requirements
// first, and merges the results. It never modifies c.
func Check(c *model.Cluster, ts []Transmogrifier) *CheckResult {
	r := &CheckResult{}
	for _, t := range ts {
		if !t.IsApplicable(c) {
			continue
		}
		r.Absorb(Check(c, t.Required()))
		r.Absorb(t.Check(c))
	}
	return r
}

// Describe returns the plan of every applicable transmogrifier in ts. The
// plan of a transmogrifier's requirements is its first item; requirements
// of non-applicable transmogrifiers are not shown.
func Describe(c *model.Cluster, ts []Transmogrifier) *ChangeDescription {
	out := &ChangeDescription{}
	for _, t := range ts {
		if !t.IsApplicable(c) {
			continue
		}
		d := t.Description(c)
		if d == nil {
			d = &ChangeDescription{Title: t.Name()}
		}
		d.prepend(Describe(c, t.Required()))
		out.AddDescription(d)
	}
	return out
}

// Apply checks ts and, if the check finds no errors, applies them.
//
// Every transmogrifier is preceded by its transitive requirements in the
// work queue. Entries that are not applicable are dropped up front. The
// queue is then drained front to back: a ready entry is applied, an entry
// that is not ready goes to the back. If a whole pass over the queue finds
// nothing ready, Apply stops with ErrSchedulerDeadlock.
func Apply(ctx context.Context, c *model.Cluster, ts []Transmogrifier) (*CheckResult, error) {
	log := logging.FromContext(ctx)

	result := Check(c, ts)
	if result.HasErrors() {
		return result, fmt.Errorf("%w: check failed:\n%s", model.ErrConfiguration, strings.TrimRight(result.String(), "\n"))
	}

	var queue []Transmogrifier
	for _, t := range ts {
		for _, w := range append(AllRequired(t), t) {
			if w.IsApplicable(c) {
				queue = append(queue, w)
			}
		}
	}

	stalled := 0
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		if t.IsReady(c) {
			log.Debug(ctx, "applying transmogrifier", "name", t.Name())
			if err := t.Apply(ctx, c); err != nil {
				return result, fmt.Errorf("%s: %w", t.Name(), err)
			}
			stalled = 0
			continue
		}
		queue = append(queue, t)
		stalled++
		log.Debug(ctx, "transmogrifier not ready, requeued", "name", t.Name(), "stalled", stalled)
		if stalled >= len(queue) {
			names := make([]string, 0, len(queue))
			for _, q := range queue {
				names = append(names, q.Name())
			}
			return result, fmt.Errorf("%w: waiting: %s", model.ErrSchedulerDeadlock, strings.Join(names, ", "))
		}
	}
	return result, nil
}
