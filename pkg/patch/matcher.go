/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/
package patch

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/fulmenhq/projpatch/pkg/manifest"
)

// Matcher selects file references by exact path, display name, or a
// doublestar glob matched against the reference path.
type Matcher string

// Match reports whether the matcher selects a file reference with the given
// cleaned path and display name.
func (m Matcher) Match(filePath, name string) (bool, error) {
	want := strings.TrimSpace(string(m))
	if want == "" {
		return false, fmt.Errorf("empty matcher")
	}
	if path.Clean(want) == filePath || want == name {
		return true, nil
	}
	if !hasGlobMeta(want) {
		return false, nil
	}
	ok, err := doublestar.Match(want, filePath)
	if err != nil {
		return false, fmt.Errorf("invalid matcher pattern %q: %w", want, err)
	}
	if ok {
		return true, nil
	}
	ok, err = doublestar.Match(want, name)
	if err != nil {
		return false, fmt.Errorf("invalid matcher pattern %q: %w", want, err)
	}
	return ok, nil
}

func hasGlobMeta(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}

// matchFileReferences returns the identifiers of every FileReference the
// matcher selects, in document order.
func matchFileReferences(g *manifest.Graph, m Matcher) ([]manifest.ID, error) {
	var ids []manifest.ID
	for _, o := range g.Objects() {
		if o.Kind != manifest.KindFileReference {
			continue
		}
		p, _ := o.Path()
		ok, err := m.Match(p, o.DisplayName())
		if err != nil {
			return nil, err
		}
		if ok {
			ids = append(ids, o.ID)
		}
	}
	return ids, nil
}
