package replay

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rewindhq/rewind/internal/models"
	"github.com/rewindhq/rewind/internal/selector"
)

// Config holds the timing knobs for one run.
type Config struct {
	// StepTimeout bounds target resolution for steps that do not carry their
	// own timeout.
	StepTimeout time.Duration
	// SettleDelay is the pause after scrolling a target into view, letting
	// layout and animation finish before the pointer event fires.
	SettleDelay time.Duration
	// StepDelay is the inter-step pacing applied by the runner.
	StepDelay time.Duration
}

// DefaultConfig returns the stock run timing.
func DefaultConfig() Config {
	return Config{
		StepTimeout: 5 * time.Second,
		SettleDelay: 200 * time.Millisecond,
		StepDelay:   500 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.StepTimeout <= 0 {
		c.StepTimeout = d.StepTimeout
	}
	if c.SettleDelay < 0 {
		c.SettleDelay = d.SettleDelay
	}
	return c
}

// Interpreter executes one canonical step at a time against a page.
type Interpreter struct {
	page     Page
	resolver *selector.Resolver
	cfg      Config
	logger   *zap.Logger
}

// NewInterpreter creates an interpreter bound to one page.
func NewInterpreter(page Page, cfg Config, logger *zap.Logger) *Interpreter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Interpreter{
		page:     page,
		resolver: selector.NewResolver(logger),
		cfg:      cfg.withDefaults(),
		logger:   logger.Named("interpreter"),
	}
}

// Execute runs a single step. Inability to complete it surfaces as a
// *StepFailure; no-op kinds (navigate, set-viewport, unknown) never fail.
func (in *Interpreter) Execute(ctx context.Context, step models.Step) error {
	// Target-bearing kinds resolve their DOM node up front; the dispatch
	// below only acts on it.
	var node *selector.Node
	if step.NeedsTarget() {
		var err error
		node, err = in.resolveTarget(ctx, step)
		if err != nil {
			return err
		}
	}

	switch step.Kind {
	case models.StepNavigate:
		// Navigation is performed by the page-lifecycle collaborator before
		// the interpreter runs; completed no-op keeps index bookkeeping
		// uniform.
		in.logger.Debug("navigate step (handled by page lifecycle)", zap.Int("index", step.Index))
		return nil

	case models.StepClick:
		return in.pointer(ctx, step, node, 1)
	case models.StepDoubleClick:
		return in.pointer(ctx, step, node, 2)

	case models.StepHover:
		if err := in.settle(ctx, node); err != nil {
			return err
		}
		if err := in.page.Hover(ctx, node); err != nil {
			return newFailure(FailureAction, step, "hover dispatch failed", err)
		}
		return nil

	case models.StepChangeValue:
		if err := in.page.SetValue(ctx, node, step.Value); err != nil {
			return newFailure(FailureAction, step, "value assignment failed", err)
		}
		return nil

	case models.StepKeyDown:
		if err := in.page.SendKey(ctx, KeyDown, step.Key); err != nil {
			return newFailure(FailureAction, step, fmt.Sprintf("key down %q failed", step.Key), err)
		}
		return nil
	case models.StepKeyUp:
		if err := in.page.SendKey(ctx, KeyUp, step.Key); err != nil {
			return newFailure(FailureAction, step, fmt.Sprintf("key up %q failed", step.Key), err)
		}
		return nil

	case models.StepScroll:
		if len(step.Selectors) > 0 {
			node, err := in.resolveTarget(ctx, step)
			if err != nil {
				return err
			}
			if err := in.page.ScrollElement(ctx, node, step.X, step.Y); err != nil {
				return newFailure(FailureAction, step, "element scroll failed", err)
			}
			return nil
		}
		if err := in.page.ScrollWindow(ctx, step.X, step.Y); err != nil {
			return newFailure(FailureAction, step, "window scroll failed", err)
		}
		return nil

	case models.StepWaitForElement:
		// Resolution above is the whole step.
		return nil

	case models.StepWaitForExpression:
		return in.waitForExpression(ctx, step)

	case models.StepSetViewport:
		// Recorded no-op: viewport geometry is not actionable from the page
		// context the recording was made in.
		in.logger.Debug("set-viewport step skipped", zap.Int("index", step.Index))
		return nil

	case models.StepUnknown:
		in.logger.Warn("skipping unrecognized step kind", zap.Int("index", step.Index))
		return nil

	default:
		in.logger.Warn("skipping unhandled step kind",
			zap.Int("index", step.Index), zap.String("kind", string(step.Kind)))
		return nil
	}
}

// pointer performs the shared click/double-click sequence: centre, settle,
// dispatch.
func (in *Interpreter) pointer(ctx context.Context, step models.Step, node *selector.Node, clicks int) error {
	if err := in.settle(ctx, node); err != nil {
		return err
	}
	if err := in.page.Click(ctx, node, clicks); err != nil {
		return newFailure(FailureAction, step, "click dispatch failed", err)
	}
	return nil
}

// resolveTarget locates the step's DOM target, using the step's own timeout
// when it carries one.
func (in *Interpreter) resolveTarget(ctx context.Context, step models.Step) (*selector.Node, error) {
	timeout := in.cfg.StepTimeout
	if step.TimeoutMs > 0 {
		timeout = time.Duration(step.TimeoutMs) * time.Millisecond
	}
	node, err := in.resolver.Resolve(ctx, in.page, step.Selectors, timeout)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, newFailure(FailureTargetNotFound, step, err.Error(), err)
	}
	return node, nil
}

// settle scrolls the node into the viewport centre and waits out the settle
// delay so layout catches up before input dispatch.
func (in *Interpreter) settle(ctx context.Context, node *selector.Node) error {
	if err := in.page.ScrollIntoView(ctx, node); err != nil {
		in.logger.Debug("scroll into view failed", zap.Error(err))
	}
	return sleep(ctx, in.cfg.SettleDelay)
}

func (in *Interpreter) waitForExpression(ctx context.Context, step models.Step) error {
	timeout := in.cfg.StepTimeout
	if step.TimeoutMs > 0 {
		timeout = time.Duration(step.TimeoutMs) * time.Millisecond
	}
	deadline := time.Now().Add(timeout)
	for {
		ok, err := in.page.Eval(ctx, step.Expression)
		if err != nil {
			// Expressions may reference state that appears only later;
			// evaluation errors mean "not yet true".
			in.logger.Debug("expression not evaluable yet", zap.Int("index", step.Index), zap.Error(err))
		} else if ok {
			return nil
		}

		if !time.Now().Before(deadline) {
			return newFailure(FailureExpressionTimeout, step,
				fmt.Sprintf("expression not truthy within %s", timeout), nil)
		}
		if err := sleep(ctx, selector.PollInterval); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
