package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/rewindhq/rewind/internal/replay"
	"github.com/rewindhq/rewind/internal/selector"
)

// refAttribute tags resolved elements so later interactions can address them
// without repeating the original descriptor lookup.
const refAttribute = "data-rewind-ref"

// lookupFn re-finds a tagged element, descending into open shadow roots so
// pierce-resolved nodes stay reachable.
const lookupFn = `function __lookup(ref) {
	function search(root) {
		var el = root.querySelector('[` + refAttribute + `="' + ref + '"]');
		if (el) return el;
		var all = root.querySelectorAll('*');
		for (var i = 0; i < all.length; i++) {
			if (all[i].shadowRoot) {
				el = search(all[i].shadowRoot);
				if (el) return el;
			}
		}
		return null;
	}
	return search(document);
}`

// findScript locates an element for one descriptor and mints a ref for it.
// A thrown evaluation (invalid XPath, bad CSS) returns the empty string: a
// miss, never an error that stops resolution.
const findScript = `(function(strategy, value) {
	function byXPath(v) {
		return document.evaluate(v, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
	}
	function byAria(v) {
		var nodes = document.querySelectorAll('[aria-label], [aria-labelledby]');
		for (var i = 0; i < nodes.length; i++) {
			if (nodes[i].getAttribute('aria-label') === v || nodes[i].getAttribute('aria-labelledby') === v) {
				return nodes[i];
			}
		}
		return null;
	}
	function byPierce(v, root) {
		var el = root.querySelector(v);
		if (el) return el;
		var all = root.querySelectorAll('*');
		for (var i = 0; i < all.length; i++) {
			if (all[i].shadowRoot) {
				el = byPierce(v, all[i].shadowRoot);
				if (el) return el;
			}
		}
		return null;
	}
	var el = null;
	try {
		switch (strategy) {
		case 'xpath':
			el = byXPath(value);
			break;
		case 'aria':
			el = byAria(value);
			break;
		case 'pierce':
			el = byPierce(value, document);
			break;
		default:
			el = document.querySelector(value);
		}
	} catch (e) {
		return '';
	}
	if (!el || el.nodeType !== 1) return '';
	if (!el.hasAttribute('` + refAttribute + `')) {
		window.__rewindRefSeq = (window.__rewindRefSeq || 0) + 1;
		el.setAttribute('` + refAttribute + `', String(window.__rewindRefSeq));
	}
	return el.getAttribute('` + refAttribute + `');
})(%s, %s)`

// Page is one open tab. It implements the replay page interface by
// evaluating scripts in the page context and dispatching raw input events
// over CDP.
type Page struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
}

var _ replay.Page = (*Page)(nil)

// AwaitLoadComplete polls document.readyState until the page reports
// complete or the timeout elapses.
func (p *Page) AwaitLoadComplete(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		var state string
		if err := p.run(ctx, chromedp.Evaluate(`document.readyState`, &state)); err == nil && state == "complete" {
			return nil
		}
		if !time.Now().Before(deadline) {
			return ErrLoadTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// Close releases the tab.
func (p *Page) Close() error {
	p.cancel()
	return nil
}

// Find probes the document for a single descriptor match.
func (p *Page) Find(ctx context.Context, d selector.Descriptor) (*selector.Node, error) {
	script := fmt.Sprintf(findScript, jsString(string(d.Strategy)), jsString(d.Value))
	var ref string
	if err := p.run(ctx, chromedp.Evaluate(script, &ref)); err != nil {
		return nil, fmt.Errorf("evaluate descriptor: %w", err)
	}
	if ref == "" {
		return nil, nil
	}
	return &selector.Node{Ref: ref}, nil
}

// ScrollIntoView centres the node in the viewport.
func (p *Page) ScrollIntoView(ctx context.Context, n *selector.Node) error {
	return p.nodeAction(ctx, n, `el.scrollIntoView({block: 'center', inline: 'center'});`)
}

// Click dispatches the pointer event sequence for a click or double click at
// the node's centre.
func (p *Page) Click(ctx context.Context, n *selector.Node, clickCount int) error {
	return p.nodeAction(ctx, n, fmt.Sprintf(`
		var rect = el.getBoundingClientRect();
		var cx = rect.left + rect.width / 2, cy = rect.top + rect.height / 2;
		var clicks = %d;
		for (var c = 0; c < clicks; c++) {
			['pointerdown', 'mousedown', 'pointerup', 'mouseup', 'click'].forEach(function(t) {
				var ev = t.indexOf('pointer') === 0
					? new PointerEvent(t, {bubbles: true, cancelable: true, clientX: cx, clientY: cy, pointerType: 'mouse'})
					: new MouseEvent(t, {bubbles: true, cancelable: true, clientX: cx, clientY: cy, detail: c + 1});
				el.dispatchEvent(ev);
			});
		}
		if (clicks === 2) {
			el.dispatchEvent(new MouseEvent('dblclick', {bubbles: true, cancelable: true, clientX: cx, clientY: cy, detail: 2}));
		}`, clickCount))
}

// Hover dispatches pointer-over events on the node.
func (p *Page) Hover(ctx context.Context, n *selector.Node) error {
	return p.nodeAction(ctx, n, `
		var rect = el.getBoundingClientRect();
		var cx = rect.left + rect.width / 2, cy = rect.top + rect.height / 2;
		['pointerover', 'pointerenter', 'mouseover', 'mouseenter', 'mousemove'].forEach(function(t) {
			var ev = t.indexOf('pointer') === 0
				? new PointerEvent(t, {bubbles: t !== 'pointerenter', cancelable: true, clientX: cx, clientY: cy, pointerType: 'mouse'})
				: new MouseEvent(t, {bubbles: t !== 'mouseenter', cancelable: true, clientX: cx, clientY: cy});
			el.dispatchEvent(ev);
		});`)
}

// SetValue focuses the node, clears it, assigns the value through the native
// setter so framework-bound inputs observe the edit, then fires input and
// change notifications in that order.
func (p *Page) SetValue(ctx context.Context, n *selector.Node, value string) error {
	return p.nodeAction(ctx, n, fmt.Sprintf(`
		var value = %s;
		el.focus();
		var proto = null;
		if (el instanceof HTMLInputElement) proto = HTMLInputElement.prototype;
		else if (el instanceof HTMLTextAreaElement) proto = HTMLTextAreaElement.prototype;
		else if (el instanceof HTMLSelectElement) proto = HTMLSelectElement.prototype;
		if (proto) {
			var desc = Object.getOwnPropertyDescriptor(proto, 'value');
			desc.set.call(el, '');
			desc.set.call(el, value);
		} else if ('value' in el) {
			el.value = value;
		} else {
			el.textContent = value;
		}
		el.dispatchEvent(new Event('input', {bubbles: true}));
		el.dispatchEvent(new Event('change', {bubbles: true}));`, jsString(value)))
}

// SendKey dispatches a raw keyboard event; it lands on whichever element
// holds focus, matching how the stroke was recorded.
func (p *Page) SendKey(ctx context.Context, dir replay.KeyDirection, key string) error {
	typ := input.KeyDown
	if dir == replay.KeyUp {
		typ = input.KeyUp
	}
	params := input.DispatchKeyEvent(typ).WithKey(key)
	if typ == input.KeyDown && len([]rune(key)) == 1 {
		params = params.WithText(key)
	}
	return p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return params.Do(ctx)
	}))
}

// ScrollElement scrolls the node's internal viewport to the offset.
func (p *Page) ScrollElement(ctx context.Context, n *selector.Node, x, y float64) error {
	return p.nodeAction(ctx, n, fmt.Sprintf(`
		if (el.scrollTo) { el.scrollTo(%[1]g, %[2]g); }
		else { el.scrollLeft = %[1]g; el.scrollTop = %[2]g; }`, x, y))
}

// ScrollWindow scrolls the page viewport to the offset.
func (p *Page) ScrollWindow(ctx context.Context, x, y float64) error {
	return p.run(ctx, chromedp.Evaluate(fmt.Sprintf(`window.scrollTo(%g, %g)`, x, y), nil))
}

// Eval evaluates a boolean expression in the page context. Evaluation errors
// propagate; the interpreter decides whether they matter.
func (p *Page) Eval(ctx context.Context, expression string) (bool, error) {
	var result bool
	if err := p.run(ctx, chromedp.Evaluate(fmt.Sprintf(`!!(%s)`, expression), &result)); err != nil {
		return false, err
	}
	return result, nil
}

// nodeAction runs a script body with `el` bound to the referenced node.
// A node that has left the document since resolution is an error.
func (p *Page) nodeAction(ctx context.Context, n *selector.Node, body string) error {
	script := fmt.Sprintf(`(function() {
		%s;
		var el = __lookup(%s);
		if (!el) return false;
		%s
		return true;
	})()`, lookupFn, jsString(n.Ref), body)

	var found bool
	if err := p.run(ctx, chromedp.Evaluate(script, &found)); err != nil {
		return fmt.Errorf("page action: %w", err)
	}
	if !found {
		return fmt.Errorf("node %s detached from document", n.Ref)
	}
	return nil
}

// run executes chromedp actions on the tab, honoring the caller's
// cancellation before dispatch.
func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return chromedp.Run(p.ctx, actions...)
}

// jsString embeds a Go string as a quoted, escaped JS string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
