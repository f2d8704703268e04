package query

import (
	"regexp"
	"strings"
)

// HintKind classifies how a field is located.
type HintKind string

const (
	HintNone     HintKind = "name"
	HintSelector HintKind = "selector"
	HintText     HintKind = "text"
)

// Role narrows the candidate elements for a field located by name.
type Role string

const (
	RoleAny       Role = "any"
	RoleClickable Role = "clickable"
	RoleInput     Role = "input"
	RoleContainer Role = "container"
	RoleDocument  Role = "document"
)

var htmlTags = map[string]bool{
	"a": true, "button": true, "input": true, "form": true, "div": true,
	"span": true, "section": true, "dialog": true, "select": true,
	"textarea": true, "body": true, "main": true, "nav": true, "label": true,
}

// compound matches one compound selector such as a.hub, div.modal#x or
// button:first-child.
var compound = regexp.MustCompile(`^(?:[a-zA-Z][\w-]*|\*)?(?:[.#][\w-]+|::?[\w-]+(?:\([^)]*\))?)+$`)

// ClassifyHint reports whether hint is a CSS selector, visible text or empty.
func ClassifyHint(hint string) HintKind {
	hint = strings.TrimSpace(hint)
	switch {
	case hint == "":
		return HintNone
	case strings.ContainsAny(hint, "#[]="):
		return HintSelector
	case isSelector(hint):
		return HintSelector
	default:
		return HintText
	}
}

// isSelector accepts hints made only of tag names, compound selectors and
// combinators. Any word of prose makes the hint text.
func isSelector(hint string) bool {
	for _, tok := range strings.Fields(hint) {
		switch {
		case tok == ">" || tok == "+" || tok == "~":
		case htmlTags[strings.ToLower(tok)]:
		case compound.MatchString(tok):
		default:
			return false
		}
	}
	return true
}

// noise words carry role information but never appear in the target markup.
var noise = map[string]bool{
	"field": true, "btn": true, "button": true, "input": true, "link": true,
	"el": true, "element": true, "box": true, "text": true, "form": true,
}

var synonyms = map[string][]string{
	"close":    {"close", "dismiss", "×", "cancel"},
	"username": {"username", "user", "login id", "email"},
	"password": {"password", "passwd"},
	"login":    {"login", "log in", "sign in", "signin"},
	"submit":   {"submit", "continue"},
	"popup":    {"popup", "modal", "dialog", "overlay"},
	"hub":      {"hub"},
	"search":   {"search"},
}

// Keywords returns the match terms derived from a field name.
func Keywords(name string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(w string) {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	for _, tok := range strings.Split(strings.ToLower(name), "_") {
		if tok == "" || noise[tok] {
			continue
		}
		if syn, ok := synonyms[tok]; ok {
			for _, s := range syn {
				add(s)
			}
			continue
		}
		add(tok)
	}
	if len(out) == 0 {
		// A name made only of noise words still has to match something.
		for _, tok := range strings.Split(strings.ToLower(name), "_") {
			if tok != "" {
				add(tok)
			}
		}
	}
	return out
}

// RoleOf infers the element role from a field name and whether it has children.
func RoleOf(name string, container bool) Role {
	lower := strings.ToLower(name)
	switch lower {
	case "body", "page", "document":
		return RoleDocument
	}
	if container {
		return RoleContainer
	}
	for _, tok := range strings.Split(lower, "_") {
		switch tok {
		case "btn", "button", "link":
			return RoleClickable
		case "field", "input":
			return RoleInput
		}
	}
	return RoleAny
}

// planStep is one element lookup, serialized into the resolver script.
type planStep struct {
	Path     string   `json:"path"`
	Parent   string   `json:"parent"`
	Kind     HintKind `json:"kind"`
	Hint     string   `json:"hint"`
	Keywords []string `json:"keywords"`
	Role     Role     `json:"role"`
}

// plan flattens the query with parents before their children.
func plan(q *Query) []planStep {
	var steps []planStep
	var walk func(prefix string, fields []*Field)
	walk = func(prefix string, fields []*Field) {
		for _, f := range fields {
			path := joinPath(prefix, f.Name)
			steps = append(steps, planStep{
				Path:     path,
				Parent:   prefix,
				Kind:     ClassifyHint(f.Hint),
				Hint:     f.Hint,
				Keywords: Keywords(f.Name),
				Role:     RoleOf(f.Name, len(f.Children) > 0),
			})
			walk(path, f.Children)
		}
	}
	walk("", q.Fields)
	return steps
}
