/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/
package manifest

import (
	"path"
)

// ID is an opaque manifest identifier: 24 uppercase hexadecimal characters.
type ID string

const idLength = 24

// Valid reports whether the identifier has the canonical 24-hex shape.
func (id ID) Valid() bool {
	if len(id) != idLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < '0' || c > '9') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}

// Kind classifies the object types the engine understands. Everything else
// parses as KindOther and is preserved verbatim.
type Kind int

const (
	KindOther Kind = iota
	KindFileReference
	KindBuildFile
	KindGroup
	KindSourcesBuildPhase
	KindTarget
)

// String returns the canonical isa value for the kind.
func (k Kind) String() string {
	switch k {
	case KindFileReference:
		return "FileReference"
	case KindBuildFile:
		return "BuildFile"
	case KindGroup:
		return "Group"
	case KindSourcesBuildPhase:
		return "SourcesBuildPhase"
	case KindTarget:
		return "Target"
	default:
		return "Other"
	}
}

// kindForISA maps an isa attribute to a Kind. The PBX/XC-prefixed spellings
// used by older descriptor dialects map to the same kinds.
func kindForISA(isa string) Kind {
	switch isa {
	case "FileReference", "PBXFileReference":
		return KindFileReference
	case "BuildFile", "PBXBuildFile":
		return KindBuildFile
	case "Group", "PBXGroup":
		return KindGroup
	case "SourcesBuildPhase", "PBXSourcesBuildPhase":
		return KindSourcesBuildPhase
	case "Target", "NativeTarget", "PBXNativeTarget":
		return KindTarget
	default:
		return KindOther
	}
}

// Object is one typed record in the graph: a kind, an ordered attribute
// dictionary, and (depending on kind) identifier references to other objects.
// Objects reference each other only by ID, never by pointer.
type Object struct {
	ID    ID
	Kind  Kind
	ISA   string
	Attrs *Dict

	dirty bool
}

// NewObject creates a detached object of the given kind with its isa
// attribute populated. Insert it into a Graph to give it an identifier.
func NewObject(kind Kind) *Object {
	isa := kind.String()
	o := &Object{Kind: kind, ISA: isa, Attrs: &Dict{}, dirty: true}
	o.Attrs.Set("isa", &Scalar{Val: isa})
	return o
}

// Dirty reports whether the object was inserted or mutated since parse.
// Dirty objects serialize in canonical layout; clean ones byte-identically.
func (o *Object) Dirty() bool { return o.dirty }

func (o *Object) markDirty() { o.dirty = true }

// Attr returns the named scalar attribute.
func (o *Object) Attr(name string) (string, bool) {
	return o.Attrs.GetString(name)
}

// SetAttr sets a scalar attribute and marks the object dirty.
func (o *Object) SetAttr(name, val string) {
	o.Attrs.Set(name, &Scalar{Val: val})
	o.markDirty()
}

// SetValue sets an attribute to an arbitrary value and marks the object dirty.
func (o *Object) SetValue(name string, v Value) {
	o.Attrs.Set(name, v)
	o.markDirty()
}

// RemoveAttr deletes an attribute and marks the object dirty when present.
func (o *Object) RemoveAttr(name string) {
	if o.Attrs.Delete(name) {
		o.markDirty()
	}
}

// RefList returns the identifier list held in the named attribute.
// Non-scalar items are skipped; the caller sees only identifier entries.
func (o *Object) RefList(name string) []ID {
	v, ok := o.Attrs.Get(name)
	if !ok {
		return nil
	}
	list, ok := v.(*List)
	if !ok {
		return nil
	}
	ids := make([]ID, 0, len(list.Items))
	for _, item := range list.Items {
		if s, ok := item.(*Scalar); ok {
			ids = append(ids, ID(s.Val))
		}
	}
	return ids
}

// SetRefList replaces the named identifier list and marks the object dirty.
func (o *Object) SetRefList(name string, ids []ID) {
	items := make([]Value, len(ids))
	for i, id := range ids {
		items[i] = &Scalar{Val: string(id)}
	}
	o.Attrs.Set(name, &List{Items: items})
	o.markDirty()
}

// AppendRef appends an identifier to the named list unless already present.
// Returns true when the list changed.
func (o *Object) AppendRef(name string, id ID) bool {
	for _, existing := range o.RefList(name) {
		if existing == id {
			return false
		}
	}
	v, ok := o.Attrs.Get(name)
	list, isList := v.(*List)
	if !ok || !isList {
		list = &List{}
		o.Attrs.Set(name, list)
	}
	list.Items = append(list.Items, &Scalar{Val: string(id)})
	o.markDirty()
	return true
}

// RemoveRef removes every occurrence of id from the named list.
// Returns true when the list changed.
func (o *Object) RemoveRef(name string, id ID) bool {
	v, ok := o.Attrs.Get(name)
	if !ok {
		return false
	}
	list, ok := v.(*List)
	if !ok {
		return false
	}
	kept := list.Items[:0]
	changed := false
	for _, item := range list.Items {
		if s, isScalar := item.(*Scalar); isScalar && ID(s.Val) == id {
			changed = true
			continue
		}
		kept = append(kept, item)
	}
	if changed {
		list.Items = kept
		o.markDirty()
	}
	return changed
}

// refListAttrs names the attributes that hold identifier lists for this kind.
func (o *Object) refListAttrs() []string {
	switch o.Kind {
	case KindGroup:
		return []string{"children"}
	case KindSourcesBuildPhase:
		return []string{"files"}
	case KindTarget:
		return []string{"buildPhases", "dependencies"}
	default:
		return nil
	}
}

// refAttrs names the attributes that hold a single identifier for this kind.
func (o *Object) refAttrs() []string {
	if o.Kind == KindBuildFile {
		return []string{"fileRef"}
	}
	return nil
}

// Path returns the file reference path attribute, cleaned to slash form.
func (o *Object) Path() (string, bool) {
	p, ok := o.Attr("path")
	if !ok || p == "" {
		return "", false
	}
	return path.Clean(p), true
}

// DisplayName returns the human-readable name for annotations: the name
// attribute, the path basename, or the identifier as a last resort.
func (o *Object) DisplayName() string {
	if name, ok := o.Attr("name"); ok && name != "" {
		return name
	}
	if p, ok := o.Path(); ok {
		return path.Base(p)
	}
	if o.Kind == KindSourcesBuildPhase {
		return "Sources"
	}
	return string(o.ID)
}
