// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package expr

// Kind identifies the kind of a Part.
type Kind int

const (
	// Bypass parts are passed to the database verbatim.
	Bypass Kind = iota
	// Arg parts consume the next argument of the expression.
	Arg
	// Ref parts name a column, a qualified column or a column alias.
	Ref
	// Value parts name a property of the current entity.
	Value
)

func (k Kind) String() string {
	switch k {
	case Bypass:
		return "Bypass"
	case Arg:
		return "Arg"
	case Ref:
		return "Ref"
	case Value:
		return "Value"
	}
	return "Unknown"
}

// Part is a section of a parsed expression.
type Part struct {
	Kind Kind
	// Text is the verbatim chunk of a Bypass part and the name inside the
	// braces of Ref and Value parts.
	Text string
	// Prefix is the part of a Ref name before its first dot. It may be a
	// table alias or the first segment of a nested property path.
	Prefix string
	// Rest is the part of a Ref name after its first dot.
	Rest string
}

func (p Part) String() string {
	switch p.Kind {
	case Arg:
		return "Arg[]"
	case Bypass, Ref, Value:
		return p.Kind.String() + "[" + p.Text + "]"
	}
	return "Unknown[]"
}

// Template is a parsed expression content.
type Template struct {
	parts []Part
	args  int
}

// Parts returns the parts of the template in order.
func (t *Template) Parts() []Part {
	return t.parts
}

// Args returns the number of Arg parts.
func (t *Template) Args() int {
	return t.args
}

// IsPlain reports whether the template has no placeholders.
func (t *Template) IsPlain() bool {
	for _, p := range t.parts {
		if p.Kind != Bypass {
			return false
		}
	}
	return true
}

func (t *Template) String() string {
	s := "Template["
	for i, p := range t.parts {
		if i > 0 {
			s += " "
		}
		s += p.String()
	}
	return s + "]"
}
