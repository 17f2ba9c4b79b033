// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package handlers

import (
	"fmt"
	"strings"
	"unicode"
)

// ParseError is a syntax error in a handler specification
type ParseError struct {
	Input string
	// Pos is the byte offset of the error in Input
	Pos int
	Msg string
}

// Error marks the position of the error in the input: prefix[message]suffix
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s[%s]%s", e.Input[:e.Pos], e.Msg, e.Input[e.Pos:])
}

// InitializationError is returned when a handler cannot be created from its specification
type InitializationError struct {
	// Spec is the specification, or the part of it, that could not be used
	Spec string
	Err  error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("cannot create handler from %q: %v", e.Spec, e.Err)
}

func (e *InitializationError) Unwrap() error {
	return e.Err
}

const handlerPrefix = "handler="

// propertyParser parses "key=value;key={nested};..." strings
type propertyParser struct {
	input string
	pos   int
	// offset is the length of the prefix added to the user's input, errors are reported without it
	offset int
}

// parseProperties parses a handler specification into its properties. Values in braces are returned without
// the outer braces. A string without '=' is the name of a handler.
func parseProperties(input string) (map[string]string, error) {
	p := &propertyParser{input: input}
	if !strings.Contains(input, "=") {
		p.input = handlerPrefix + input
		p.offset = len(handlerPrefix)
	}
	p.skipSpace()
	props := map[string]string{}
	for !p.done() {
		key, err := p.identifier()
		if err != nil {
			return nil, err
		}
		if err := p.expect('='); err != nil {
			return nil, err
		}
		val, err := p.argument()
		if err != nil {
			return nil, err
		}
		props[key] = val
		if p.done() {
			break
		}
		if err := p.expect(';'); err != nil {
			return nil, err
		}
	}
	return props, nil
}

func (p *propertyParser) done() bool {
	return p.pos >= len(p.input)
}

func (p *propertyParser) cur() byte {
	return p.input[p.pos]
}

func (p *propertyParser) errorf(format string, args ...any) error {
	pos := p.pos - p.offset
	if pos < 0 {
		pos = 0
	}
	return &ParseError{Input: p.input[p.offset:], Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// next advances by one character and skips the whitespace that follows
func (p *propertyParser) next() {
	p.pos++
	p.skipSpace()
}

func (p *propertyParser) skipSpace() {
	for !p.done() && unicode.IsSpace(rune(p.cur())) {
		p.pos++
	}
}

func isIdentifierChar(c byte) bool {
	return c == '_' || c == '-' || unicode.IsLetter(rune(c)) || unicode.IsDigit(rune(c))
}

func (p *propertyParser) identifier() (string, error) {
	start := p.pos
	for !p.done() && isIdentifierChar(p.cur()) {
		p.pos++
	}
	if start == p.pos {
		return "", p.errorf("expected identifier")
	}
	id := p.input[start:p.pos]
	p.skipSpace()
	return id, nil
}

func (p *propertyParser) expect(c byte) error {
	if p.done() || p.cur() != c {
		return p.errorf("expected '%c'", c)
	}
	p.next()
	return nil
}

// argument parses a bare value up to the next ';' or a brace-balanced value
func (p *propertyParser) argument() (string, error) {
	if p.done() {
		return "", nil
	}
	if p.cur() != '{' {
		start := p.pos
		for !p.done() && p.cur() != ';' {
			p.pos++
		}
		return strings.TrimSpace(p.input[start:p.pos]), nil
	}
	start := p.pos + 1
	depth := 0
	for {
		if p.done() {
			return "", p.errorf("unexpected end")
		}
		switch p.cur() {
		case '{':
			depth++
		case '}':
			depth--
		}
		if depth == 0 {
			val := p.input[start:p.pos]
			p.next()
			return val, nil
		}
		p.pos++
	}
}
