package selector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// PollInterval is the fixed delay between resolution sweeps.
const PollInterval = 100 * time.Millisecond

// ErrNoSelectors is returned without polling when a step carries an empty
// selector-group list: the target can never resolve.
var ErrNoSelectors = errors.New("no selectors to resolve")

// TimeoutError is returned when no descriptor matched before the deadline.
type TimeoutError struct {
	Timeout time.Duration
	Groups  int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("no match for %d selector group(s) within %s", e.Groups, e.Timeout)
}

// Finder probes the live document for a single descriptor. A nil node with a
// nil error means no match right now; an error means the descriptor could not
// be evaluated (both count as a miss for that sweep).
type Finder interface {
	Find(ctx context.Context, d Descriptor) (*Node, error)
}

// Resolver retries descriptor lookups until one matches or the timeout
// elapses.
type Resolver struct {
	logger *zap.Logger
}

// NewResolver creates a resolver. A nil logger is replaced with a no-op one.
func NewResolver(logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{logger: logger.Named("resolver")}
}

// Resolve sweeps the selector groups in preference order every PollInterval
// until a node is found or timeout elapses. Within a group only the primary
// alternative is evaluated; the remaining alternatives are redundant
// fallbacks recorded by the source tool. The first match of a sweep wins
// immediately. Descriptor evaluation errors (invalid XPath and the like) are
// treated as a miss for that sweep, never as a fatal error.
func (r *Resolver) Resolve(ctx context.Context, f Finder, groups [][]string, timeout time.Duration) (*Node, error) {
	if len(groups) == 0 {
		return nil, ErrNoSelectors
	}

	deadline := time.Now().Add(timeout)
	for {
		for _, group := range groups {
			if len(group) == 0 {
				continue
			}
			d := Parse(group[0])
			node, err := f.Find(ctx, d)
			if err != nil {
				r.logger.Debug("descriptor evaluation failed",
					zap.String("strategy", string(d.Strategy)),
					zap.String("value", d.Value),
					zap.Error(err))
				continue
			}
			if node != nil {
				return node, nil
			}
		}

		if !time.Now().Before(deadline) {
			return nil, &TimeoutError{Timeout: timeout, Groups: len(groups)}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(PollInterval):
		}
	}
}
