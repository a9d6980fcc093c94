/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/
package manifest

import (
	"bytes"
	"path"
	"strings"
)

// Serialize renders the graph back to manifest text. Objects untouched since
// parse re-emit their original byte spans, so a zero-operation round trip is
// byte-identical. Inserted or mutated objects render in the document's
// canonical layout: one-line entries for file references and build files,
// indented multi-line entries for everything else, with identifier
// annotation comments regenerated from the live graph.
func (g *Graph) Serialize() []byte {
	var buf bytes.Buffer
	buf.Write(g.prologue)
	for _, n := range g.nodes {
		buf.Write(n.lead)
		if n.obj.dirty || n.raw == nil {
			g.renderEntry(&buf, n.obj)
		} else {
			buf.Write(n.raw)
		}
	}
	buf.Write(g.tail)
	buf.Write(g.epilogue)
	return buf.Bytes()
}

func (g *Graph) renderEntry(buf *bytes.Buffer, o *Object) {
	buf.WriteString(string(o.ID))
	if ann := g.annotation(o.ID); ann != "" {
		buf.WriteString(" /* " + ann + " */")
	}
	buf.WriteString(" = ")
	if oneLineKind(o.Kind) {
		g.renderDictInline(buf, o.Attrs)
	} else {
		g.renderDictBlock(buf, o.Attrs, g.indent+"\t")
	}
	buf.WriteByte(';')
}

func oneLineKind(k Kind) bool {
	return k == KindFileReference || k == KindBuildFile
}

func (g *Graph) renderDictInline(buf *bytes.Buffer, d *Dict) {
	buf.WriteByte('{')
	for _, e := range d.Entries {
		buf.WriteString(quoteIfNeeded(e.Key))
		buf.WriteString(" = ")
		g.renderValueInline(buf, e.Value)
		buf.WriteString("; ")
	}
	buf.WriteByte('}')
}

func (g *Graph) renderValueInline(buf *bytes.Buffer, v Value) {
	switch t := v.(type) {
	case *Scalar:
		g.renderScalar(buf, t)
	case *Dict:
		g.renderDictInline(buf, t)
	case *List:
		buf.WriteByte('(')
		for _, item := range t.Items {
			g.renderValueInline(buf, item)
			buf.WriteString(", ")
		}
		buf.WriteByte(')')
	}
}

func (g *Graph) renderDictBlock(buf *bytes.Buffer, d *Dict, indent string) {
	buf.WriteString("{\n")
	for _, e := range d.Entries {
		buf.WriteString(indent)
		buf.WriteString(quoteIfNeeded(e.Key))
		buf.WriteString(" = ")
		g.renderValueBlock(buf, e.Value, indent)
		buf.WriteString(";\n")
	}
	buf.WriteString(indent[:len(indent)-1])
	buf.WriteByte('}')
}

func (g *Graph) renderValueBlock(buf *bytes.Buffer, v Value, indent string) {
	switch t := v.(type) {
	case *Scalar:
		g.renderScalar(buf, t)
	case *Dict:
		g.renderDictBlock(buf, t, indent+"\t")
	case *List:
		buf.WriteString("(\n")
		for _, item := range t.Items {
			buf.WriteString(indent + "\t")
			g.renderValueBlock(buf, item, indent+"\t")
			buf.WriteString(",\n")
		}
		buf.WriteString(indent)
		buf.WriteByte(')')
	}
}

// renderScalar writes the scalar, annotating identifier values that resolve
// to a live object so regenerated entries read like the hand-written ones.
func (g *Graph) renderScalar(buf *bytes.Buffer, s *Scalar) {
	buf.WriteString(quoteIfNeeded(s.Val))
	if id := ID(s.Val); id.Valid() {
		if _, live := g.index[id]; live {
			if ann := g.annotation(id); ann != "" {
				buf.WriteString(" /* " + ann + " */")
			}
		}
	}
}

// annotation returns the comment text conventionally attached to an
// identifier: the object's display name, with build files qualified by the
// phase that compiles them.
func (g *Graph) annotation(id ID) string {
	node, ok := g.index[id]
	if !ok {
		return ""
	}
	o := node.obj
	if o.Kind == KindBuildFile {
		name := ""
		if ref, ok := o.Attr("fileRef"); ok {
			if refNode, live := g.index[ID(ref)]; live {
				name = refNode.obj.DisplayName()
			}
		}
		if name == "" {
			return ""
		}
		for _, n := range g.nodes {
			if n.obj.Kind != KindSourcesBuildPhase {
				continue
			}
			for _, fid := range n.obj.RefList("files") {
				if fid == id {
					return name + " in " + n.obj.DisplayName()
				}
			}
		}
		return name
	}
	if name, ok := o.Attr("name"); ok && name != "" {
		return name
	}
	if o.Kind == KindOther {
		return ""
	}
	if p, ok := o.Path(); ok {
		return path.Base(p)
	}
	if o.Kind == KindSourcesBuildPhase {
		return "Sources"
	}
	return ""
}

// quoteIfNeeded renders a string bare when it stays within the conservative
// bare-token alphabet, quoting and escaping it otherwise.
func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	for i := 0; i < len(s); i++ {
		if !isSafeBareChar(s[i]) {
			return quote(s)
		}
	}
	return s
}

// isSafeBareChar is deliberately narrower than the parser's bare alphabet:
// anything the serializer emits bare must re-parse as the same token.
func isSafeBareChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_' || c == '$' || c == '.' || c == '/':
		return true
	}
	return false
}

func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}
