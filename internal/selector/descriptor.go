// Package selector locates live DOM nodes from recorded target descriptors.
package selector

import "strings"

// Strategy names how a descriptor is evaluated against the document.
type Strategy string

const (
	// StrategyCSS is a plain CSS selector (the unprefixed default).
	StrategyCSS Strategy = "css"
	// StrategyXPath evaluates an XPath expression, first ordered node wins.
	StrategyXPath Strategy = "xpath"
	// StrategyARIA matches aria-label or aria-labelledby attribute equality.
	StrategyARIA Strategy = "aria"
	// StrategyPierce is a CSS match allowed to cross shadow-tree boundaries.
	StrategyPierce Strategy = "pierce"
)

// Descriptor is one parsed target descriptor.
type Descriptor struct {
	Strategy Strategy
	Value    string
}

// Parse splits a strategy-prefixed descriptor string. Unprefixed strings are
// plain CSS.
func Parse(raw string) Descriptor {
	switch {
	case strings.HasPrefix(raw, "xpath/"):
		return Descriptor{Strategy: StrategyXPath, Value: strings.TrimPrefix(raw, "xpath/")}
	case strings.HasPrefix(raw, "aria/"):
		return Descriptor{Strategy: StrategyARIA, Value: strings.TrimPrefix(raw, "aria/")}
	case strings.HasPrefix(raw, "pierce/"):
		return Descriptor{Strategy: StrategyPierce, Value: strings.TrimPrefix(raw, "pierce/")}
	default:
		return Descriptor{Strategy: StrategyCSS, Value: raw}
	}
}

// Node is a handle on a resolved DOM node. Ref is an opaque reference minted
// by the page driver; subsequent interactions address the node through it.
type Node struct {
	Ref string
}
