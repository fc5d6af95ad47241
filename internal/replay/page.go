// Package replay executes canonical step lists against a live page.
package replay

import (
	"context"

	"github.com/rewindhq/rewind/internal/selector"
)

// KeyDirection selects which half of a key stroke to dispatch.
type KeyDirection string

const (
	KeyDown KeyDirection = "down"
	KeyUp   KeyDirection = "up"
)

// Page is the request/response channel into the page execution context. All
// step side effects are confined behind it; the interpreter holds no state of
// its own across calls. The chromedp driver implements it for real runs and
// tests substitute fakes.
type Page interface {
	selector.Finder

	// ScrollIntoView centres the node in the viewport.
	ScrollIntoView(ctx context.Context, n *selector.Node) error
	// Click dispatches a pointer click on the node; clickCount 2 means a
	// double click.
	Click(ctx context.Context, n *selector.Node, clickCount int) error
	// Hover dispatches pointer-over events on the node.
	Hover(ctx context.Context, n *selector.Node) error
	// SetValue focuses the node, clears it, assigns value, then fires input
	// and change notifications in that order.
	SetValue(ctx context.Context, n *selector.Node, value string) error
	// SendKey dispatches a keyboard event against the focused element.
	SendKey(ctx context.Context, dir KeyDirection, key string) error
	// ScrollElement scrolls the node's internal viewport to the offset.
	ScrollElement(ctx context.Context, n *selector.Node, x, y float64) error
	// ScrollWindow scrolls the page viewport to the offset.
	ScrollWindow(ctx context.Context, x, y float64) error
	// Eval evaluates a boolean expression in the page context.
	Eval(ctx context.Context, expression string) (bool, error)
}
