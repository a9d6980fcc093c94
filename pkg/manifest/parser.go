/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/
package manifest

import (
	"bytes"
	"fmt"
)

// Parse converts manifest source text into an object graph. The source must
// be a root dictionary containing an `objects` dictionary of identifier →
// object entries. Unknown object kinds parse as KindOther and round-trip
// verbatim. Each parsed entry keeps its original byte span so untouched
// objects serialize byte-identically.
func Parse(src []byte) (*Graph, error) {
	p := &parser{src: src}
	g := &Graph{
		index:   make(map[ID]*entryNode),
		retired: make(map[ID]struct{}),
		indent:  defaultIndent,
	}

	p.skipTrivia()
	if err := p.expect('{', "root dictionary"); err != nil {
		return nil, err
	}

	sawObjects := false
	for {
		p.skipTrivia()
		if p.eof() {
			return nil, p.errHere("unexpected end of input inside root dictionary")
		}
		if p.peek() == '}' {
			p.pos++
			break
		}
		key, err := p.parseString()
		if err != nil {
			return nil, err
		}
		p.skipTrivia()
		if err := p.expect('=', "'=' after root key"); err != nil {
			return nil, err
		}
		p.skipTrivia()
		if key == "objects" {
			if sawObjects {
				return nil, p.errHere("duplicate objects dictionary")
			}
			sawObjects = true
			if err := p.parseObjects(g); err != nil {
				return nil, err
			}
		} else {
			v, err := p.parseValue()
			if err != nil {
				return nil, err
			}
			if key == "rootObject" {
				if s, ok := v.(*Scalar); ok {
					g.RootObject = ID(s.Val)
				}
			}
		}
		p.skipTrivia()
		if err := p.expect(';', "';' after root entry"); err != nil {
			return nil, err
		}
		if key == "objects" {
			// Everything from the objects closing brace onward is epilogue;
			// keep parsing for validation only.
			g.epilogue = src[g.epilogueStart:]
		}
	}
	p.skipTrivia()
	if !p.eof() {
		return nil, p.errHere("unexpected content after root dictionary")
	}
	if !sawObjects {
		return nil, &MalformedManifestError{
			Offset: len(src),
			Line:   lineAt(src, len(src)),
			Column: columnAt(src, len(src)),
			Msg:    "manifest has no objects dictionary",
		}
	}

	if first := g.firstEntry(); first != nil {
		g.indent = detectIndent(first.lead)
	}
	return g, nil
}

const defaultIndent = "\t\t"

// parseObjects consumes the objects dictionary, capturing prologue, entry
// spans, and inter-entry trivia for byte-faithful serialization.
func (p *parser) parseObjects(g *Graph) error {
	if err := p.expect('{', "objects dictionary"); err != nil {
		return err
	}
	g.prologue = p.src[:p.pos]

	for {
		triviaStart := p.pos
		p.skipTrivia()
		if p.eof() {
			return p.errHere("unexpected end of input inside objects dictionary")
		}
		if p.peek() == '}' {
			g.tail = p.src[triviaStart:p.pos]
			g.epilogueStart = p.pos
			p.pos++
			return nil
		}

		lead := p.src[triviaStart:p.pos]
		entryStart := p.pos
		idTok, err := p.parseString()
		if err != nil {
			return err
		}
		p.skipTrivia()
		if err := p.expect('=', "'=' after object identifier"); err != nil {
			return err
		}
		p.skipTrivia()
		if p.eof() || p.peek() != '{' {
			return p.errHere(fmt.Sprintf("object %s must be a dictionary", idTok))
		}
		attrsVal, err := p.parseValue()
		if err != nil {
			return err
		}
		p.skipTrivia()
		if err := p.expect(';', "';' after object entry"); err != nil {
			return err
		}

		id := ID(idTok)
		if _, dup := g.index[id]; dup {
			return &MalformedManifestError{
				Offset: entryStart,
				Line:   lineAt(p.src, entryStart),
				Column: columnAt(p.src, entryStart),
				Msg:    fmt.Sprintf("duplicate identifier %s", id),
			}
		}

		attrs := attrsVal.(*Dict)
		isa, _ := attrs.GetString("isa")
		obj := &Object{
			ID:    id,
			Kind:  kindForISA(isa),
			ISA:   isa,
			Attrs: attrs,
		}
		node := &entryNode{lead: lead, raw: p.src[entryStart:p.pos], obj: obj}
		g.nodes = append(g.nodes, node)
		g.index[id] = node
	}
}

type parser struct {
	src []byte
	pos int
}

func (p *parser) eof() bool  { return p.pos >= len(p.src) }
func (p *parser) peek() byte { return p.src[p.pos] }

func (p *parser) expect(c byte, what string) error {
	if p.eof() || p.peek() != c {
		return p.errHere("expected " + what)
	}
	p.pos++
	return nil
}

func (p *parser) errHere(msg string) error {
	return &MalformedManifestError{
		Offset: p.pos,
		Line:   lineAt(p.src, p.pos),
		Column: columnAt(p.src, p.pos),
		Msg:    msg,
	}
}

// skipTrivia advances past whitespace, block comments, and line comments.
// Comments are formatting metadata: annotation comments are regenerated by
// the serializer for dirty objects and preserved via raw spans otherwise.
func (p *parser) skipTrivia() {
	for !p.eof() {
		c := p.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			p.pos++
		case c == '/' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '*':
			end := bytes.Index(p.src[p.pos+2:], []byte("*/"))
			if end < 0 {
				p.pos = len(p.src)
				return
			}
			p.pos += 2 + end + 2
		case c == '/' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '/':
			for !p.eof() && p.peek() != '\n' {
				p.pos++
			}
		default:
			return
		}
	}
}

func (p *parser) parseValue() (Value, error) {
	if p.eof() {
		return nil, p.errHere("expected value")
	}
	switch p.peek() {
	case '{':
		return p.parseDict()
	case '(':
		return p.parseList()
	default:
		s, err := p.parseString()
		if err != nil {
			return nil, err
		}
		return &Scalar{Val: s}, nil
	}
}

func (p *parser) parseDict() (*Dict, error) {
	if err := p.expect('{', "dictionary"); err != nil {
		return nil, err
	}
	d := &Dict{}
	for {
		p.skipTrivia()
		if p.eof() {
			return nil, p.errHere("unterminated dictionary")
		}
		if p.peek() == '}' {
			p.pos++
			return d, nil
		}
		key, err := p.parseString()
		if err != nil {
			return nil, err
		}
		p.skipTrivia()
		if err := p.expect('=', "'=' after dictionary key"); err != nil {
			return nil, err
		}
		p.skipTrivia()
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		p.skipTrivia()
		if err := p.expect(';', "';' after dictionary value"); err != nil {
			return nil, err
		}
		d.Entries = append(d.Entries, DictEntry{Key: key, Value: v})
	}
}

func (p *parser) parseList() (*List, error) {
	if err := p.expect('(', "list"); err != nil {
		return nil, err
	}
	l := &List{}
	for {
		p.skipTrivia()
		if p.eof() {
			return nil, p.errHere("unterminated list")
		}
		if p.peek() == ')' {
			p.pos++
			return l, nil
		}
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		l.Items = append(l.Items, v)
		p.skipTrivia()
		if !p.eof() && p.peek() == ',' {
			p.pos++
		}
	}
}

func (p *parser) parseString() (string, error) {
	if p.eof() {
		return "", p.errHere("expected string")
	}
	if p.peek() == '"' {
		return p.parseQuoted()
	}
	start := p.pos
	for !p.eof() && isBareChar(p.peek()) {
		// A slash may open a comment; stop the token there.
		if p.peek() == '/' && p.pos+1 < len(p.src) && (p.src[p.pos+1] == '*' || p.src[p.pos+1] == '/') {
			break
		}
		p.pos++
	}
	if p.pos == start {
		return "", p.errHere("expected string")
	}
	return string(p.src[start:p.pos]), nil
}

func (p *parser) parseQuoted() (string, error) {
	start := p.pos
	p.pos++ // opening quote
	var out []byte
	for {
		if p.eof() {
			return "", &MalformedManifestError{
				Offset: start,
				Line:   lineAt(p.src, start),
				Column: columnAt(p.src, start),
				Msg:    "unterminated quoted string",
			}
		}
		c := p.peek()
		p.pos++
		switch c {
		case '"':
			return string(out), nil
		case '\\':
			if p.eof() {
				continue
			}
			esc := p.peek()
			p.pos++
			switch esc {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			case '"', '\\':
				out = append(out, esc)
			default:
				out = append(out, '\\', esc)
			}
		default:
			out = append(out, c)
		}
	}
}

func isBareChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_' || c == '$' || c == '.' || c == '/' || c == ':' || c == '+' || c == '-' || c == '<' || c == '>':
		return true
	}
	return false
}

func lineAt(src []byte, off int) int {
	if off > len(src) {
		off = len(src)
	}
	return bytes.Count(src[:off], []byte{'\n'}) + 1
}

func columnAt(src []byte, off int) int {
	if off > len(src) {
		off = len(src)
	}
	nl := bytes.LastIndexByte(src[:off], '\n')
	return off - nl
}

// detectIndent extracts the entry indentation from leading trivia, falling
// back to the conventional two tabs.
func detectIndent(lead []byte) string {
	nl := bytes.LastIndexByte(lead, '\n')
	if nl < 0 {
		return defaultIndent
	}
	tailStart := nl + 1
	tail := lead[tailStart:]
	for _, c := range tail {
		if c != ' ' && c != '\t' {
			return defaultIndent
		}
	}
	if len(tail) == 0 {
		return defaultIndent
	}
	return string(tail)
}
