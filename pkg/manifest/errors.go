/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/
package manifest

import (
	"fmt"
	"strings"
)

// MalformedManifestError reports a parse failure with the offending location.
type MalformedManifestError struct {
	Offset int
	Line   int
	Column int
	Msg    string
}

func (e *MalformedManifestError) Error() string {
	return fmt.Sprintf("malformed manifest at line %d, column %d (byte %d): %s", e.Line, e.Column, e.Offset, e.Msg)
}

// NotFoundError reports a lookup miss. Want names the expected object kind
// when the identifier resolved to an object of the wrong kind.
type NotFoundError struct {
	ID   ID
	Want string
}

func (e *NotFoundError) Error() string {
	if e.Want != "" {
		return fmt.Sprintf("object %s is not a %s", e.ID, e.Want)
	}
	return fmt.Sprintf("object %s not found", e.ID)
}

// IdentifierCollisionError reports an insert with an identifier that is
// already live, or that was retired earlier in the same session.
type IdentifierCollisionError struct {
	ID ID
}

func (e *IdentifierCollisionError) Error() string {
	return fmt.Sprintf("identifier %s already exists in this manifest", e.ID)
}

// DanglingReferenceError reports a removal that would leave identifiers
// pointing at a missing object.
type DanglingReferenceError struct {
	ID           ID
	ReferencedBy []ID
}

func (e *DanglingReferenceError) Error() string {
	refs := make([]string, len(e.ReferencedBy))
	for i, id := range e.ReferencedBy {
		refs[i] = string(id)
	}
	return fmt.Sprintf("removing %s would dangle references held by [%s]", e.ID, strings.Join(refs, ", "))
}
