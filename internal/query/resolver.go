package query

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Evaluator evaluates a JavaScript expression in the page and decodes the
// JSON result into out.
type Evaluator interface {
	Evaluate(ctx context.Context, expression string, out any) error
}

// Resolver locates the fields of a query in a page.
type Resolver interface {
	Resolve(ctx context.Context, ev Evaluator, q *Query) (*Response, error)
}

// Call renders an invocation of the JS function source fn with JSON-encoded args.
func Call(fn string, args ...any) (string, error) {
	encoded := make([]string, len(args))
	for i, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return "", fmt.Errorf("failed to encode script argument: %w", err)
		}
		encoded[i] = string(b)
	}
	return "(" + fn + ")(" + strings.Join(encoded, ", ") + ")", nil
}

// DOMResolver locates fields with selectors, visible text and name keywords
// evaluated directly in the page.
type DOMResolver struct{}

// NewDOMResolver creates a DOM resolver.
func NewDOMResolver() *DOMResolver {
	return &DOMResolver{}
}

// Resolve implements Resolver.
func (d *DOMResolver) Resolve(ctx context.Context, ev Evaluator, q *Query) (*Response, error) {
	expr, err := Call(resolveJS, plan(q), RefAttr)
	if err != nil {
		return nil, err
	}

	var matches []Match
	if err := ev.Evaluate(ctx, expr, &matches); err != nil {
		return nil, fmt.Errorf("failed to evaluate query: %w", err)
	}
	for i := range matches {
		if matches[i].Found {
			matches[i].Source = "dom"
		}
	}
	return NewResponse(q, matches), nil
}
