// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package expr

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrTemplate is matched by errors describing malformed expression content
// and by errors binding arguments to it.
var ErrTemplate = errors.New("invalid expression")

func NewParser() *Parser {
	return &Parser{}
}

type Parser struct {
	input string
	pos   int
	// nextPos is start of the next char.
	nextPos int
	// char is the rune starting at pos. char is set to 0 when pos reaches the
	// end of input.
	char rune
	// prevPartEnd is the value of pos when we last finished parsing a
	// placeholder.
	prevPartEnd int
	// currentPartStart is the value of pos just before we started parsing the
	// placeholder under pos. We maintain currentPartStart >= prevPartEnd.
	currentPartStart int
	// parts are the output of the parser. Parts are added as they are parsed.
	parts []Part
	args  int
	// lineNum is the number of the current line of the input.
	lineNum int
	// lineStart is the position of the first char of the current line in the
	// input.
	lineStart int
}

// Parse takes the content of an expression and returns its Template.
func (p *Parser) Parse(input string) (t *Template, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("%w: cannot parse %q: %s", ErrTemplate, input, err)
		}
	}()

	p.init(input)

	for {
		if err := p.advanceToNextPlaceholder(); err != nil {
			return nil, err
		}

		p.currentPartStart = p.pos

		if p.pos == len(p.input) {
			break
		}

		part, err := p.parsePlaceholder()
		if err != nil {
			return nil, err
		}
		if part.Kind == Arg {
			p.args++
		}
		p.add(&part)
	}

	// Add any remaining unparsed string input to the parser.
	p.add(nil)
	return &Template{parts: p.parts, args: p.args}, nil
}

// init resets the state of the parser and sets the input string.
func (p *Parser) init(input string) {
	p.input = input
	p.pos = 0
	p.nextPos = 0
	p.char = 0
	p.prevPartEnd = 0
	p.currentPartStart = 0
	p.parts = []Part{}
	p.args = 0
	p.lineNum = 1
	p.lineStart = 0
	p.advanceChar()
}

// colNum calculates the current column number taking into account line breaks.
func (p *Parser) colNum() int {
	return p.pos - p.lineStart + 1
}

// advanceChar moves the parser to the next character in the input. It also
// takes care of updating the line and column numbers if it encounters line
// breaks.
func (p *Parser) advanceChar() bool {
	if p.nextPos >= len(p.input) {
		p.char = 0
		p.pos = p.nextPos
		return false
	}
	if p.char == '\n' {
		p.lineStart = p.nextPos
		p.lineNum++
	}
	var size int
	p.char, size = utf8.DecodeRuneInString(p.input[p.nextPos:])
	p.pos = p.nextPos
	p.nextPos += size
	return true
}

// errorAt wraps an error with line and column information.
func errorAt(err error, line int, column int, input string) error {
	if strings.ContainsRune(input, '\n') {
		return fmt.Errorf("line %d, column %d: %w", line, column, err)
	}
	return fmt.Errorf("column %d: %w", column, err)
}

// A checkpoint struct for saving parser state to restore later. We only use a
// checkpoint within an attempted parsing of a placeholder or literal.
type checkpoint struct {
	parser    *Parser
	pos       int
	nextPos   int
	char      rune
	lineNum   int
	lineStart int
}

// save takes a snapshot of the state of the parser and returns a pointer to a
// checkpoint that represents it.
func (p *Parser) save() *checkpoint {
	return &checkpoint{
		parser:    p,
		pos:       p.pos,
		nextPos:   p.nextPos,
		char:      p.char,
		lineNum:   p.lineNum,
		lineStart: p.lineStart,
	}
}

// restore sets the internal state of the parser to the values stored in the
// checkpoint.
func (cp *checkpoint) restore() {
	cp.parser.pos = cp.pos
	cp.parser.nextPos = cp.nextPos
	cp.parser.char = cp.char
	cp.parser.lineNum = cp.lineNum
	cp.parser.lineStart = cp.lineStart
}

// add pushes the parsed placeholder to the list of parts along with the
// bypass chunk that stretches from the end of the previous placeholder to
// the beginning of this one.
func (p *Parser) add(part *Part) {
	if p.prevPartEnd != p.currentPartStart {
		p.parts = append(p.parts, Part{Kind: Bypass, Text: p.input[p.prevPartEnd:p.currentPartStart]})
	}

	if part != nil {
		p.parts = append(p.parts, *part)
	}

	p.prevPartEnd = p.pos
	p.currentPartStart = p.pos
}

// skipComment jumps over -- and /* */ comments. If no comment is found the
// parser state is left unchanged.
func (p *Parser) skipComment() bool {
	cp := p.save()
	c := p.char
	if p.skipChar('-') || p.skipChar('/') {
		if (c == '-' && p.skipChar('-')) || (c == '/' && p.skipChar('*')) {
			var end rune
			if c == '-' {
				end = '\n'
			} else {
				end = '*'
			}
			for p.pos < len(p.input) {
				if p.char == end {
					// A -- comment does not consume the newline.
					if end == '*' {
						p.advanceChar()
						if !p.skipChar('/') {
							continue
						}
					}
					return true
				}
				p.advanceChar()
			}
			// Reached end of input (valid comment end).
			return true
		}
		cp.restore()
		return false
	}
	return false
}

// advanceToNextPlaceholder advances the parser until it finds a brace
// outside of string literals and comments.
func (p *Parser) advanceToNextPlaceholder() error {
	for p.pos < len(p.input) {
		if ok, err := p.skipStringLiteral(); err != nil {
			return err
		} else if ok {
			continue
		}
		if ok := p.skipComment(); ok {
			continue
		}
		if p.char == '{' || p.char == '}' {
			return nil
		}
		p.advanceChar()
	}
	return nil
}

// skipStringLiteral jumps over single and double quoted sections of input.
// Doubled up quotes are escaped.
func (p *Parser) skipStringLiteral() (bool, error) {
	cp := p.save()

	c := p.char
	if p.skipChar('"') || p.skipChar('\'') {

		// We keep track of whether the next quote has been previously
		// escaped. If not, it might be a closing quote.
		maybeCloser := true
		for p.skipCharFind(c) {
			if maybeCloser && !p.peekChar(c) {
				return true, nil
			}
			maybeCloser = !maybeCloser
		}

		cp.restore()
		return false, errorAt(fmt.Errorf("missing closing quote in string literal"), p.lineNum, p.colNum(), p.input)
	}
	return false, nil
}

// parsePlaceholder parses the placeholder starting at the brace under the
// parser.
func (p *Parser) parsePlaceholder() (Part, error) {
	line, col := p.lineNum, p.colNum()
	if !p.skipChar('{') {
		return Part{}, errorAt(fmt.Errorf("unexpected '}'"), line, col, p.input)
	}
	p.skipBlanks()
	if p.skipChar('}') {
		return Part{Kind: Arg}, nil
	}

	kind := Ref
	if p.skipChar('#') {
		kind = Value
	}
	name, ok := p.parseName()
	if !ok {
		if p.pos >= len(p.input) {
			return Part{}, errorAt(fmt.Errorf("missing closing brace"), line, col, p.input)
		}
		return Part{}, errorAt(fmt.Errorf("invalid name in placeholder"), p.lineNum, p.colNum(), p.input)
	}
	p.skipBlanks()
	if !p.skipChar('}') {
		if p.pos >= len(p.input) {
			return Part{}, errorAt(fmt.Errorf("missing closing brace"), line, col, p.input)
		}
		return Part{}, errorAt(fmt.Errorf("invalid character %q in placeholder", p.char), p.lineNum, p.colNum(), p.input)
	}

	part := Part{Kind: kind, Text: name}
	if kind == Ref {
		if i := strings.IndexByte(name, '.'); i >= 0 {
			part.Prefix, part.Rest = name[:i], name[i+1:]
		}
	}
	return part, nil
}

// parseName parses a dotted name such as "name.first". It returns false,
// leaving the parser unchanged, if there is no valid name under the parser.
func (p *Parser) parseName() (string, bool) {
	cp := p.save()
	mark := p.pos
	for {
		if !p.skipNameSegment() {
			cp.restore()
			return "", false
		}
		if !p.skipChar('.') {
			break
		}
	}
	return p.input[mark:p.pos], true
}

func (p *Parser) skipNameSegment() bool {
	if p.pos >= len(p.input) || !isNameChar(p.char) {
		return false
	}
	for p.pos < len(p.input) && isNameChar(p.char) {
		p.advanceChar()
	}
	return true
}

// peekChar returns true if the current char equals the one passed as parameter.
func (p *Parser) peekChar(c rune) bool {
	return p.pos < len(p.input) && p.char == c
}

// skipChar jumps over the current char if it matches the char passed as a
// parameter. Returns true in that case, false otherwise.
func (p *Parser) skipChar(c rune) bool {
	if p.pos < len(p.input) && p.char == c {
		p.advanceChar()
		return true
	}
	return false
}

// skipCharFind looks for a char that matches the one passed as parameter and
// then advances the parser to jump over it. In that case returns true. If the
// end of the string is reached and no matching char was found, it returns
// false and it does not change the parser.
func (p *Parser) skipCharFind(c rune) bool {
	cp := p.save()
	for p.pos < len(p.input) {
		if p.char == c {
			p.advanceChar()
			return true
		}
		p.advanceChar()
	}
	cp.restore()
	return false
}

// skipBlanks advances the parser past spaces, tabs and newlines. Returns
// whether the parser position was changed.
func (p *Parser) skipBlanks() bool {
	mark := p.pos
	for p.pos < len(p.input) {
		switch p.char {
		case ' ', '\t', '\r', '\n':
			p.advanceChar()
		default:
			return p.pos != mark
		}
	}
	return p.pos != mark
}

// isNameChar returns true if the rune can be part of a property name or a
// table alias.
func isNameChar(c rune) bool {
	return c == '_' || unicode.IsLetter(c) || unicode.IsDigit(c)
}
