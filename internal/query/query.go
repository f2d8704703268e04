// Package query locates page elements from a small declarative query language.
//
// A query names the elements a step needs, optionally with a hint:
//
//	{
//	    body {
//	        username_field "input#username"
//	        login_button
//	    }
//	    hub_text "Log in to the Exhibitor Hub"
//	}
//
// A hint that looks like a CSS selector is used as one; any other hint is
// matched against visible text. Fields without a hint are matched by the
// words in their name.
package query

import (
	"fmt"
	"strconv"
	"strings"
	"text/scanner"
)

// Field is one named node of a query.
type Field struct {
	Name     string
	Hint     string
	Children []*Field
	Pos      scanner.Position
}

// Query is a parsed query.
type Query struct {
	Fields []*Field
}

// Leaf is a field without children, addressed by its dotted path.
type Leaf struct {
	Path   string
	Name   string
	Hint   string
	Parent string
}

// Parse parses a query.
func Parse(src string) (*Query, error) {
	p := &parser{}
	p.s.Init(strings.NewReader(src))
	p.s.Mode = scanner.ScanIdents | scanner.ScanStrings | scanner.ScanRawStrings | scanner.ScanComments | scanner.SkipComments
	p.s.Filename = "query"
	p.s.Error = func(s *scanner.Scanner, msg string) {
		if p.err == nil {
			p.err = fmt.Errorf("%s: %s", s.Position, msg)
		}
	}
	p.next()

	fields, err := p.block()
	if err != nil {
		return nil, err
	}
	if p.tok != scanner.EOF {
		return nil, p.errorf("unexpected %s after query", p.s.TokenText())
	}
	if len(fields) == 0 {
		return nil, p.errorf("empty query")
	}
	return &Query{Fields: fields}, nil
}

// MustParse is Parse for package-level query literals.
func MustParse(src string) *Query {
	q, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return q
}

// Leaves returns the leaf fields in document order.
func (q *Query) Leaves() []Leaf {
	var leaves []Leaf
	var walk func(prefix string, fields []*Field)
	walk = func(prefix string, fields []*Field) {
		for _, f := range fields {
			path := joinPath(prefix, f.Name)
			if len(f.Children) == 0 {
				leaves = append(leaves, Leaf{Path: path, Name: f.Name, Hint: f.Hint, Parent: prefix})
				continue
			}
			walk(path, f.Children)
		}
	}
	walk("", q.Fields)
	return leaves
}

// String renders the query in canonical form.
func (q *Query) String() string {
	var b strings.Builder
	var write func(fields []*Field, depth int)
	write = func(fields []*Field, depth int) {
		for _, f := range fields {
			b.WriteString(strings.Repeat("    ", depth))
			b.WriteString(f.Name)
			if f.Hint != "" {
				b.WriteString(" ")
				b.WriteString(strconv.Quote(f.Hint))
			}
			if len(f.Children) > 0 {
				b.WriteString(" {\n")
				write(f.Children, depth+1)
				b.WriteString(strings.Repeat("    ", depth))
				b.WriteString("}")
			}
			b.WriteString("\n")
		}
	}
	b.WriteString("{\n")
	write(q.Fields, 1)
	b.WriteString("}")
	return b.String()
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

type parser struct {
	s   scanner.Scanner
	tok rune
	err error
}

func (p *parser) next() {
	p.tok = p.s.Scan()
}

func (p *parser) errorf(format string, args ...any) error {
	if p.err != nil {
		return p.err
	}
	return fmt.Errorf("%s: %s", p.s.Position, fmt.Sprintf(format, args...))
}

// block parses '{' field* '}'.
func (p *parser) block() ([]*Field, error) {
	if p.tok != '{' {
		return nil, p.errorf("expected '{', found %q", p.s.TokenText())
	}
	p.next()

	var fields []*Field
	seen := make(map[string]bool)
	for p.tok != '}' {
		if p.err != nil {
			return nil, p.err
		}
		if p.tok == scanner.EOF {
			return nil, p.errorf("unexpected end of query, missing '}'")
		}
		f, err := p.field()
		if err != nil {
			return nil, err
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("%s: duplicate field %s", f.Pos, f.Name)
		}
		seen[f.Name] = true
		fields = append(fields, f)
	}
	p.next()
	return fields, p.err
}

// field parses IDENT [STRING] [block].
func (p *parser) field() (*Field, error) {
	if p.tok != scanner.Ident {
		return nil, p.errorf("expected field name, found %q", p.s.TokenText())
	}
	f := &Field{Name: p.s.TokenText(), Pos: p.s.Position}
	p.next()

	if p.tok == scanner.String || p.tok == scanner.RawString {
		hint, err := strconv.Unquote(p.s.TokenText())
		if err != nil {
			return nil, p.errorf("invalid hint for %s: %v", f.Name, err)
		}
		f.Hint = strings.TrimSpace(hint)
		p.next()
	}

	if p.tok == '{' {
		children, err := p.block()
		if err != nil {
			return nil, err
		}
		if len(children) == 0 {
			return nil, fmt.Errorf("%s: field %s has an empty block", f.Pos, f.Name)
		}
		f.Children = children
	}
	return f, nil
}
