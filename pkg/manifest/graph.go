/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/
package manifest

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
)

// entryNode pairs one parsed object with the byte spans needed to reproduce
// it exactly: the trivia (whitespace, section banners) preceding it and the
// entry text itself. A nil raw span marks an object inserted after parse.
type entryNode struct {
	lead []byte
	raw  []byte
	obj  *Object
}

// Graph is the in-memory representation of one manifest. It owns all
// objects; a graph is built fresh per invocation, mutated in memory, and
// serialized exactly once.
type Graph struct {
	prologue      []byte
	nodes         []*entryNode
	tail          []byte
	epilogue      []byte
	epilogueStart int

	index   map[ID]*entryNode
	retired map[ID]struct{}
	indent  string

	// RootObject is the identifier the document names as its root, when any.
	RootObject ID
}

func (g *Graph) firstEntry() *entryNode {
	if len(g.nodes) == 0 {
		return nil
	}
	return g.nodes[0]
}

// Len returns the number of live objects.
func (g *Graph) Len() int { return len(g.nodes) }

// Objects returns the live objects in document order.
func (g *Graph) Objects() []*Object {
	out := make([]*Object, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = n.obj
	}
	return out
}

// Lookup returns the object with the given identifier.
func (g *Graph) Lookup(id ID) (*Object, error) {
	n, ok := g.index[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return n.obj, nil
}

// LookupKind returns the object with the given identifier, verifying its kind.
func (g *Graph) LookupKind(id ID, kind Kind) (*Object, error) {
	o, err := g.Lookup(id)
	if err != nil {
		return nil, err
	}
	if o.Kind != kind {
		return nil, &NotFoundError{ID: id, Want: strings.ToLower(kind.String())}
	}
	return o, nil
}

// FindByPath returns the identifiers of every FileReference whose cleaned
// path equals the given path. More than one result indicates a duplicate
// defect the caller may ask DeduplicateSources to collapse.
func (g *Graph) FindByPath(p string) []ID {
	want := path.Clean(strings.TrimSpace(p))
	var ids []ID
	for _, n := range g.nodes {
		if n.obj.Kind != KindFileReference {
			continue
		}
		if got, ok := n.obj.Path(); ok && got == want {
			ids = append(ids, n.obj.ID)
		}
	}
	return ids
}

// FindTargetsByName returns the identifiers of targets with the given
// human-readable name, in document order.
func (g *Graph) FindTargetsByName(name string) []ID {
	var ids []ID
	for _, n := range g.nodes {
		if n.obj.Kind != KindTarget {
			continue
		}
		if got, ok := n.obj.Attr("name"); ok && got == name {
			ids = append(ids, n.obj.ID)
		}
	}
	return ids
}

// ReverseReferences returns the identifiers of every object holding a
// reference to id, scanning all attribute values (opaque objects included)
// so a removal can never silently orphan a pointer.
func (g *Graph) ReverseReferences(id ID) []ID {
	var refs []ID
	for _, n := range g.nodes {
		if n.obj.ID == id {
			continue
		}
		if valueReferences(n.obj.Attrs, id) {
			refs = append(refs, n.obj.ID)
		}
	}
	return refs
}

func valueReferences(v Value, id ID) bool {
	switch t := v.(type) {
	case *Scalar:
		return ID(t.Val) == id
	case *Dict:
		for _, e := range t.Entries {
			if e.Key == "isa" {
				continue
			}
			if valueReferences(e.Value, id) {
				return true
			}
		}
	case *List:
		for _, item := range t.Items {
			if valueReferences(item, id) {
				return true
			}
		}
	}
	return false
}

// Insert adds a detached object to the graph. A fresh identifier is
// generated when the object carries none; a caller-supplied identifier that
// is live, or was retired earlier in this session, fails with
// IdentifierCollisionError. The new entry is placed after the last object of
// the same kind to keep section grouping intact.
func (g *Graph) Insert(obj *Object) (ID, error) {
	if obj.ID == "" {
		obj.ID = g.generateID()
	} else {
		if _, live := g.index[obj.ID]; live {
			return "", &IdentifierCollisionError{ID: obj.ID}
		}
		if _, wasRetired := g.retired[obj.ID]; wasRetired {
			return "", &IdentifierCollisionError{ID: obj.ID}
		}
	}
	obj.markDirty()

	node := &entryNode{lead: []byte("\n" + g.indent), obj: obj}
	pos := len(g.nodes)
	for i := len(g.nodes) - 1; i >= 0; i-- {
		if g.nodes[i].obj.Kind == obj.Kind && g.nodes[i].obj.ISA == obj.ISA {
			pos = i + 1
			break
		}
	}
	g.nodes = append(g.nodes, nil)
	copy(g.nodes[pos+1:], g.nodes[pos:])
	g.nodes[pos] = node
	g.index[obj.ID] = node
	return obj.ID, nil
}

// Remove deletes the object with the given identifier. Without cascade the
// call refuses with DanglingReferenceError while any reverse reference
// remains. With cascade, referencing entries of modeled kinds are scrubbed
// (and BuildFiles bound to the removed object are removed in turn); a
// reference held by an opaque object still refuses, since opaque content is
// never altered. The identifier is retired and never reused this session.
func (g *Graph) Remove(id ID, cascade bool) error {
	if _, ok := g.index[id]; !ok {
		return &NotFoundError{ID: id}
	}
	refs := g.ReverseReferences(id)
	if len(refs) > 0 && !cascade {
		return &DanglingReferenceError{ID: id, ReferencedBy: refs}
	}
	if cascade {
		for _, refID := range refs {
			node, ok := g.index[refID]
			if !ok {
				continue // removed by a nested cascade
			}
			ref := node.obj
			if ref.Kind == KindOther {
				return &DanglingReferenceError{ID: id, ReferencedBy: []ID{refID}}
			}
			for _, attr := range ref.refListAttrs() {
				ref.RemoveRef(attr, id)
			}
			for _, attr := range ref.refAttrs() {
				if v, ok := ref.Attr(attr); ok && ID(v) == id {
					// A join object whose binding is gone is itself garbage.
					if err := g.Remove(refID, true); err != nil {
						return err
					}
				}
			}
		}
		if remaining := g.ReverseReferences(id); len(remaining) > 0 {
			return &DanglingReferenceError{ID: id, ReferencedBy: remaining}
		}
	}
	g.dropNode(id)
	return nil
}

func (g *Graph) dropNode(id ID) {
	node := g.index[id]
	for i, n := range g.nodes {
		if n == node {
			g.nodes = append(g.nodes[:i], g.nodes[i+1:]...)
			break
		}
	}
	delete(g.index, id)
	g.retired[id] = struct{}{}
}

// generateID produces a fresh 24-hex identifier distinct from every live and
// retired identifier in this session.
func (g *Graph) generateID() ID {
	for {
		var buf [idLength / 2]byte
		if _, err := rand.Read(buf[:]); err != nil {
			// crypto/rand never fails on supported platforms; an identifier
			// collision here would surface as IdentifierCollisionError anyway.
			panic(fmt.Sprintf("identifier generation failed: %v", err))
		}
		id := ID(strings.ToUpper(hex.EncodeToString(buf[:])))
		if _, live := g.index[id]; live {
			continue
		}
		if _, wasRetired := g.retired[id]; wasRetired {
			continue
		}
		return id
	}
}

// Issue is one referential-integrity finding.
type Issue struct {
	ObjectID ID     `json:"object_id"`
	Code     string `json:"code"`
	Detail   string `json:"detail"`
}

// Integrity issue codes.
const (
	IssueDanglingReference   = "dangling-reference"
	IssueDuplicatePhaseEntry = "duplicate-phase-entry"
	IssueDuplicatePath       = "duplicate-path"
)

// CheckIntegrity scans the graph for dangling references in modeled
// reference slots, duplicate entries in build-phase lists, and duplicate
// file-reference paths. A clean graph returns no issues.
func (g *Graph) CheckIntegrity() []Issue {
	var issues []Issue
	pathOwners := make(map[string]ID)

	for _, n := range g.nodes {
		o := n.obj
		for _, attr := range o.refListAttrs() {
			seen := make(map[ID]bool)
			for _, ref := range o.RefList(attr) {
				if _, ok := g.index[ref]; !ok {
					issues = append(issues, Issue{
						ObjectID: o.ID,
						Code:     IssueDanglingReference,
						Detail:   fmt.Sprintf("%s list references missing object %s", attr, ref),
					})
				}
				if o.Kind == KindSourcesBuildPhase && seen[ref] {
					issues = append(issues, Issue{
						ObjectID: o.ID,
						Code:     IssueDuplicatePhaseEntry,
						Detail:   fmt.Sprintf("object %s appears more than once in %s", ref, attr),
					})
				}
				seen[ref] = true
			}
		}
		for _, attr := range o.refAttrs() {
			ref, ok := o.Attr(attr)
			if !ok {
				issues = append(issues, Issue{
					ObjectID: o.ID,
					Code:     IssueDanglingReference,
					Detail:   fmt.Sprintf("missing %s attribute", attr),
				})
				continue
			}
			if _, live := g.index[ID(ref)]; !live {
				issues = append(issues, Issue{
					ObjectID: o.ID,
					Code:     IssueDanglingReference,
					Detail:   fmt.Sprintf("%s references missing object %s", attr, ref),
				})
			}
		}
		if o.Kind == KindFileReference {
			if p, ok := o.Path(); ok {
				if prev, dup := pathOwners[p]; dup {
					issues = append(issues, Issue{
						ObjectID: o.ID,
						Code:     IssueDuplicatePath,
						Detail:   fmt.Sprintf("path %q already referenced by %s", p, prev),
					})
				} else {
					pathOwners[p] = o.ID
				}
			}
		}
	}
	return issues
}
