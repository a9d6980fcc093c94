/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/

// Package patch provides the closed set of idempotent graph mutations and
// the planner that expands declarative intents into them. Every operation
// validates against the current graph before mutating anything: on failure
// the graph is left untouched and a typed error is returned.
package patch

import (
	"fmt"
	"path"
	"strings"

	"github.com/fulmenhq/projpatch/pkg/manifest"
)

// AddFileReference ensures a FileReference for the given path exists,
// returning the existing identifier when one already matches. The second
// return value reports whether an object was created; re-running with the
// same path is a no-op that returns the same identifier.
func AddFileReference(g *manifest.Graph, filePath string) (manifest.ID, bool, error) {
	clean := path.Clean(strings.TrimSpace(filePath))
	if ids := g.FindByPath(clean); len(ids) > 0 {
		return ids[0], false, nil
	}
	obj := manifest.NewObject(manifest.KindFileReference)
	if ft := fileTypeForPath(clean); ft != "" {
		obj.SetAttr("lastKnownFileType", ft)
	}
	if base := path.Base(clean); base != clean {
		obj.SetAttr("name", base)
	}
	obj.SetAttr("path", clean)
	obj.SetAttr("sourceTree", "<group>")
	id, err := g.Insert(obj)
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

// AddBuildFile ensures a BuildFile binding fileRefID into the given sources
// phase, appending it to the phase list unless one is already there.
// Re-adding is a no-op returning the existing build file's identifier.
func AddBuildFile(g *manifest.Graph, fileRefID, phaseID manifest.ID) (manifest.ID, bool, error) {
	if _, err := g.LookupKind(fileRefID, manifest.KindFileReference); err != nil {
		return "", false, err
	}
	phase, err := g.LookupKind(phaseID, manifest.KindSourcesBuildPhase)
	if err != nil {
		return "", false, err
	}
	for _, bfID := range phase.RefList("files") {
		bf, lookupErr := g.Lookup(bfID)
		if lookupErr != nil || bf.Kind != manifest.KindBuildFile {
			continue
		}
		if ref, ok := bf.Attr("fileRef"); ok && manifest.ID(ref) == fileRefID {
			return bfID, false, nil
		}
	}
	bf := manifest.NewObject(manifest.KindBuildFile)
	bf.SetAttr("fileRef", string(fileRefID))
	id, err := g.Insert(bf)
	if err != nil {
		return "", false, err
	}
	phase.AppendRef("files", id)
	return id, true, nil
}

// RemoveFileEverywhere removes every FileReference matched by m together
// with all BuildFiles bound to it, its group memberships, and its phase
// entries, in one pass. A matcher that matches nothing is a successful
// no-op. The whole removal set is validated before any mutation; a match
// referenced by an opaque object refuses with DanglingReferenceError.
func RemoveFileEverywhere(g *manifest.Graph, m Matcher) ([]manifest.ID, error) {
	fileRefs, err := matchFileReferences(g, m)
	if err != nil {
		return nil, err
	}
	if len(fileRefs) == 0 {
		return nil, nil
	}

	// Validation pass: every referencer must be a kind we may scrub.
	doomed := make(map[manifest.ID]bool, len(fileRefs))
	for _, frID := range fileRefs {
		doomed[frID] = true
	}
	var buildFiles []manifest.ID
	for _, frID := range fileRefs {
		for _, refID := range g.ReverseReferences(frID) {
			ref, lookupErr := g.Lookup(refID)
			if lookupErr != nil {
				continue
			}
			switch ref.Kind {
			case manifest.KindGroup:
				// children scrub
			case manifest.KindBuildFile:
				buildFiles = append(buildFiles, refID)
				doomed[refID] = true
			default:
				return nil, &manifest.DanglingReferenceError{ID: frID, ReferencedBy: []manifest.ID{refID}}
			}
		}
	}
	for _, bfID := range buildFiles {
		for _, refID := range g.ReverseReferences(bfID) {
			ref, lookupErr := g.Lookup(refID)
			if lookupErr != nil {
				continue
			}
			if ref.Kind != manifest.KindSourcesBuildPhase {
				return nil, &manifest.DanglingReferenceError{ID: bfID, ReferencedBy: []manifest.ID{refID}}
			}
		}
	}

	// Mutation pass: scrub referencing lists, then drop the doomed objects.
	for _, o := range g.Objects() {
		if doomed[o.ID] {
			continue
		}
		switch o.Kind {
		case manifest.KindGroup:
			for id := range doomed {
				o.RemoveRef("children", id)
			}
		case manifest.KindSourcesBuildPhase:
			for id := range doomed {
				o.RemoveRef("files", id)
			}
		}
	}
	removed := make([]manifest.ID, 0, len(doomed))
	for _, bfID := range buildFiles {
		if err := g.Remove(bfID, false); err != nil {
			return nil, err
		}
		removed = append(removed, bfID)
	}
	for _, frID := range fileRefs {
		if err := g.Remove(frID, false); err != nil {
			return nil, err
		}
		removed = append(removed, frID)
	}
	return removed, nil
}

// RewritePathPrefix rewrites the path of every FileReference whose path
// starts with oldPrefix. Returns the number of references rewritten; after
// one run the prefix matches nothing further, so a re-run is a no-op.
func RewritePathPrefix(g *manifest.Graph, oldPrefix, newPrefix string) (int, error) {
	count := 0
	for _, o := range g.Objects() {
		if o.Kind != manifest.KindFileReference {
			continue
		}
		p, ok := o.Attr("path")
		if !ok || !strings.HasPrefix(p, oldPrefix) {
			continue
		}
		o.SetAttr("path", newPrefix+p[len(oldPrefix):])
		count++
	}
	return count, nil
}

// DeduplicateSources removes repeated entries from a sources phase, keeping
// the first occurrence. Two flavors of duplication collapse: the same
// identifier listed twice, and distinct BuildFiles resolving to the same
// file-reference path (a corruption this engine is asked to repair). Build
// files and file references left unreachable by the collapse are removed.
// Returns the number of entries dropped; a clean phase is a no-op.
func DeduplicateSources(g *manifest.Graph, phaseID manifest.ID) (int, error) {
	phase, err := g.LookupKind(phaseID, manifest.KindSourcesBuildPhase)
	if err != nil {
		return 0, err
	}

	files := phase.RefList("files")
	seenID := make(map[manifest.ID]bool)
	seenKey := make(map[string]bool)
	kept := make([]manifest.ID, 0, len(files))
	var droppedBuildFiles []manifest.ID

	for _, bfID := range files {
		if seenID[bfID] {
			continue
		}
		seenID[bfID] = true
		key := dedupeKey(g, bfID)
		if key != "" && seenKey[key] {
			droppedBuildFiles = append(droppedBuildFiles, bfID)
			continue
		}
		if key != "" {
			seenKey[key] = true
		}
		kept = append(kept, bfID)
	}

	droppedCount := len(files) - len(kept)
	if droppedCount == 0 {
		return 0, nil
	}
	phase.SetRefList("files", kept)

	for _, bfID := range droppedBuildFiles {
		bf, lookupErr := g.Lookup(bfID)
		if lookupErr != nil {
			continue
		}
		fileRef, hasRef := bf.Attr("fileRef")
		if len(g.ReverseReferences(bfID)) == 0 {
			if err := g.Remove(bfID, false); err != nil {
				return 0, err
			}
		}
		if !hasRef {
			continue
		}
		// Collapse the orphaned duplicate file reference too, unless
		// something other than a group still points at it.
		frID := manifest.ID(fileRef)
		if _, lookupErr := g.Lookup(frID); lookupErr != nil {
			continue
		}
		onlyGroups := true
		for _, refID := range g.ReverseReferences(frID) {
			ref, lookupErr := g.Lookup(refID)
			if lookupErr != nil || ref.Kind != manifest.KindGroup {
				onlyGroups = false
				break
			}
		}
		if onlyGroups {
			if err := g.Remove(frID, true); err != nil {
				return 0, err
			}
		}
	}
	return droppedCount, nil
}

// dedupeKey identifies what a phase entry ultimately compiles: the cleaned
// path of the bound file reference. Entries that cannot be resolved keep an
// empty key and are never collapsed by content.
func dedupeKey(g *manifest.Graph, bfID manifest.ID) string {
	bf, err := g.Lookup(bfID)
	if err != nil || bf.Kind != manifest.KindBuildFile {
		return ""
	}
	ref, ok := bf.Attr("fileRef")
	if !ok {
		return ""
	}
	fr, err := g.Lookup(manifest.ID(ref))
	if err != nil || fr.Kind != manifest.KindFileReference {
		return ""
	}
	if p, ok := fr.Path(); ok {
		return "path:" + p
	}
	return "ref:" + ref
}

// DisableBuildFile marks a build file excluded from its phase without
// removing it, the structural replacement for commenting the entry out.
// Already-disabled entries are a no-op.
func DisableBuildFile(g *manifest.Graph, bfID manifest.ID) error {
	bf, err := g.LookupKind(bfID, manifest.KindBuildFile)
	if err != nil {
		return err
	}
	settings, err := settingsDict(bf)
	if err != nil {
		return err
	}
	if v, ok := settings.GetString("ENABLED"); ok && v == "0" {
		return nil
	}
	settings.Set("ENABLED", &manifest.Scalar{Val: "0"})
	bf.SetValue("settings", settings)
	return nil
}

// EnableBuildFile clears the exclusion flag set by DisableBuildFile,
// dropping the settings dictionary when nothing else remains in it.
// Already-enabled entries are a no-op.
func EnableBuildFile(g *manifest.Graph, bfID manifest.ID) error {
	bf, err := g.LookupKind(bfID, manifest.KindBuildFile)
	if err != nil {
		return err
	}
	v, ok := bf.Attrs.Get("settings")
	if !ok {
		return nil
	}
	settings, ok := v.(*manifest.Dict)
	if !ok {
		return nil
	}
	if !settings.Delete("ENABLED") {
		return nil
	}
	if len(settings.Entries) == 0 {
		bf.RemoveAttr("settings")
	} else {
		bf.SetValue("settings", settings)
	}
	return nil
}

// settingsDict returns the build file's settings dictionary, creating an
// empty one when absent. A settings attribute of any other shape refuses:
// overwriting it would discard content the engine does not model.
func settingsDict(o *manifest.Object) (*manifest.Dict, error) {
	v, ok := o.Attrs.Get("settings")
	if !ok {
		return &manifest.Dict{}, nil
	}
	d, isDict := v.(*manifest.Dict)
	if !isDict {
		return nil, fmt.Errorf("build file %s has a non-dictionary settings attribute", o.ID)
	}
	return d, nil
}

// fileTypeForPath maps a file extension to the descriptor's file-type tag.
// Unknown extensions yield no tag, which is valid in the format.
func fileTypeForPath(p string) string {
	switch strings.ToLower(path.Ext(p)) {
	case ".swift":
		return "sourcecode.swift"
	case ".m":
		return "sourcecode.c.objc"
	case ".mm":
		return "sourcecode.cpp.objcpp"
	case ".c":
		return "sourcecode.c.c"
	case ".cc", ".cpp", ".cxx":
		return "sourcecode.cpp.cpp"
	case ".h", ".hh", ".hpp":
		return "sourcecode.c.h"
	case ".metal":
		return "sourcecode.metal"
	case ".storyboard":
		return "file.storyboard"
	case ".xib":
		return "file.xib"
	case ".plist":
		return "text.plist.xml"
	case ".json":
		return "text.json"
	case ".md":
		return "net.daringfireball.markdown"
	case ".png":
		return "image.png"
	case ".framework":
		return "wrapper.framework"
	default:
		return ""
	}
}
