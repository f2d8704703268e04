package query

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// RefAttr is the attribute the resolver stamps on every located element.
const RefAttr = "data-pp-ref"

// ErrNotFound is returned when required fields could not be located.
var ErrNotFound = errors.New("query fields not found")

// Match is the resolution of one field.
type Match struct {
	Path  string `json:"path"`
	Found bool   `json:"found"`
	Text  string `json:"text"`
	// Source names the resolver that located the element.
	Source string `json:"source,omitempty"`
}

// Response holds the outcome of resolving a query against a page.
type Response struct {
	hints   map[string]string
	matches map[string]Match
}

// NewResponse builds a response for q from per-path matches.
func NewResponse(q *Query, matches []Match) *Response {
	r := &Response{
		hints:   make(map[string]string),
		matches: make(map[string]Match),
	}
	for _, step := range plan(q) {
		r.hints[step.Path] = step.Hint
	}
	for _, m := range matches {
		r.matches[m.Path] = m
	}
	return r
}

// RefSelector returns the CSS selector addressing the element stamped for path.
func RefSelector(path string) string {
	return fmt.Sprintf(`[%s="%s"]`, RefAttr, path)
}

// Element returns a selector for the element located at path.
func (r *Response) Element(path string) (string, bool) {
	if r == nil {
		return "", false
	}
	m, ok := r.matches[path]
	if !ok || !m.Found {
		return "", false
	}
	return RefSelector(path), true
}

// Text returns the visible text of the element at path, or the field's text
// hint when the element was not located.
func (r *Response) Text(path string) string {
	if r == nil {
		return ""
	}
	if m, ok := r.matches[path]; ok && m.Found && strings.TrimSpace(m.Text) != "" {
		return strings.TrimSpace(m.Text)
	}
	if ClassifyHint(r.hints[path]) == HintText {
		return r.hints[path]
	}
	return ""
}

// Missing returns the leaf paths that were not located, sorted.
func (r *Response) Missing(q *Query) []string {
	var missing []string
	for _, leaf := range q.Leaves() {
		if _, ok := r.Element(leaf.Path); !ok {
			missing = append(missing, leaf.Path)
		}
	}
	sort.Strings(missing)
	return missing
}

// Require returns the selectors for paths, or ErrNotFound naming every
// missing path.
func (r *Response) Require(paths ...string) ([]string, error) {
	selectors := make([]string, 0, len(paths))
	var missing []string
	for _, p := range paths {
		sel, ok := r.Element(p)
		if !ok {
			missing = append(missing, p)
			continue
		}
		selectors = append(selectors, sel)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, strings.Join(missing, ", "))
	}
	return selectors, nil
}

// merge overlays found matches from other onto r.
func (r *Response) merge(other []Match) {
	for _, m := range other {
		if m.Found {
			r.matches[m.Path] = m
		}
	}
}
