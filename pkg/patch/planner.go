/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/
package patch

import (
	"fmt"

	"github.com/fulmenhq/projpatch/pkg/logger"
	"github.com/fulmenhq/projpatch/pkg/manifest"
	"github.com/fulmenhq/projpatch/pkg/safeio"
)

// TargetNotFoundError reports an intent addressing a target name absent
// from the manifest.
type TargetNotFoundError struct {
	Name string
}

func (e *TargetNotFoundError) Error() string {
	return fmt.Sprintf("target %q not found", e.Name)
}

// AmbiguousTargetError reports a target name shared by several targets.
type AmbiguousTargetError struct {
	Name string
	IDs  []manifest.ID
}

func (e *AmbiguousTargetError) Error() string {
	return fmt.Sprintf("target %q is ambiguous: %d targets share the name", e.Name, len(e.IDs))
}

// IntentError wraps a failure with the intent that caused it.
type IntentError struct {
	Index  int
	Intent Intent
	Err    error
}

func (e *IntentError) Error() string {
	return fmt.Sprintf("intent %d (%s): %v", e.Index+1, e.Intent, e.Err)
}

func (e *IntentError) Unwrap() error { return e.Err }

// Options configures planner behavior.
type Options struct {
	// CreateMissingPhase lets add-source create a sources phase for targets
	// that have none, instead of failing.
	CreateMissingPhase bool
}

// Planner expands declarative intents into the concrete operation sequence
// and applies it to a graph. Intents are applied in order; the first failure
// stops the run, and the caller is expected to discard the graph rather than
// serialize a half-applied session.
type Planner struct {
	opts Options
}

// NewPlanner returns a planner with the given options.
func NewPlanner(opts Options) *Planner {
	return &Planner{opts: opts}
}

// Change records one applied mutation for reporting.
type Change struct {
	Intent Intent `json:"intent"`
	Detail string `json:"detail"`
}

// Apply runs the intents against the graph. On error the returned changes
// cover the intents that completed before the failure.
func (p *Planner) Apply(g *manifest.Graph, intents []Intent) ([]Change, error) {
	var changes []Change
	for i, intent := range intents {
		if err := intent.Validate(); err != nil {
			return changes, &IntentError{Index: i, Intent: intent, Err: err}
		}
		detail, err := p.applyOne(g, intent)
		if err != nil {
			return changes, &IntentError{Index: i, Intent: intent, Err: err}
		}
		logger.Debug("applied intent",
			logger.String("intent", intent.String()),
			logger.String("result", detail))
		changes = append(changes, Change{Intent: intent, Detail: detail})
	}
	return changes, nil
}

func (p *Planner) applyOne(g *manifest.Graph, intent Intent) (string, error) {
	switch intent.Action {
	case ActionAddSource:
		return p.addSource(g, intent)
	case ActionRemoveSource:
		// The target is resolved up front so a bad name fails the intent
		// even when the matcher finds nothing; the removal itself spans the
		// whole graph to avoid leaving stray references behind.
		if _, err := p.resolveTarget(g, intent.Target); err != nil {
			return "", err
		}
		removed, err := RemoveFileEverywhere(g, Matcher(intent.Matcher))
		if err != nil {
			return "", err
		}
		if len(removed) == 0 {
			return "no matching files, nothing to remove", nil
		}
		return fmt.Sprintf("removed %d objects", len(removed)), nil
	case ActionRenamePrefix:
		count, err := RewritePathPrefix(g, intent.Old, intent.New)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("rewrote %d paths", count), nil
	case ActionPruneDuplicates:
		phaseID, err := p.resolveSourcesPhase(g, intent.Target, false)
		if err != nil {
			return "", err
		}
		dropped, err := DeduplicateSources(g, phaseID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("dropped %d duplicate entries", dropped), nil
	case ActionDisableSource:
		return p.toggleSources(g, intent, DisableBuildFile, "disabled")
	case ActionEnableSource:
		return p.toggleSources(g, intent, EnableBuildFile, "enabled")
	default:
		return "", fmt.Errorf("unknown intent action %q", intent.Action)
	}
}

func (p *Planner) addSource(g *manifest.Graph, intent Intent) (string, error) {
	clean, err := safeio.CleanUserPath(intent.Path)
	if err != nil {
		return "", fmt.Errorf("path %q: %w", intent.Path, err)
	}
	phaseID, err := p.resolveSourcesPhase(g, intent.Target, p.opts.CreateMissingPhase)
	if err != nil {
		return "", err
	}
	frID, created, err := AddFileReference(g, clean)
	if err != nil {
		return "", err
	}
	bfID, added, err := AddBuildFile(g, frID, phaseID)
	if err != nil {
		return "", err
	}
	if created {
		if group := rootGroup(g); group != nil {
			group.AppendRef("children", frID)
		}
	}
	switch {
	case created:
		return fmt.Sprintf("created file reference %s and build file %s", frID, bfID), nil
	case added:
		return fmt.Sprintf("bound existing file reference %s via build file %s", frID, bfID), nil
	default:
		return "already present, nothing to do", nil
	}
}

type toggleFunc func(*manifest.Graph, manifest.ID) error

func (p *Planner) toggleSources(g *manifest.Graph, intent Intent, toggle toggleFunc, verb string) (string, error) {
	phaseID, err := p.resolveSourcesPhase(g, intent.Target, false)
	if err != nil {
		return "", err
	}
	phase, err := g.LookupKind(phaseID, manifest.KindSourcesBuildPhase)
	if err != nil {
		return "", err
	}
	m := Matcher(intent.Matcher)
	count := 0
	for _, bfID := range phase.RefList("files") {
		bf, lookupErr := g.Lookup(bfID)
		if lookupErr != nil || bf.Kind != manifest.KindBuildFile {
			continue
		}
		ref, ok := bf.Attr("fileRef")
		if !ok {
			continue
		}
		fr, lookupErr := g.Lookup(manifest.ID(ref))
		if lookupErr != nil || fr.Kind != manifest.KindFileReference {
			continue
		}
		frPath, _ := fr.Path()
		matched, matchErr := m.Match(frPath, fr.DisplayName())
		if matchErr != nil {
			return "", matchErr
		}
		if !matched {
			continue
		}
		if err := toggle(g, bfID); err != nil {
			return "", err
		}
		count++
	}
	return fmt.Sprintf("%s %d build files", verb, count), nil
}

// resolveTarget resolves a target by its human-readable name.
func (p *Planner) resolveTarget(g *manifest.Graph, name string) (*manifest.Object, error) {
	ids := g.FindTargetsByName(name)
	switch len(ids) {
	case 0:
		return nil, &TargetNotFoundError{Name: name}
	case 1:
		return g.Lookup(ids[0])
	default:
		return nil, &AmbiguousTargetError{Name: name, IDs: ids}
	}
}

// resolveSourcesPhase finds the sources build phase of the named target,
// optionally creating an empty one when the target has none.
func (p *Planner) resolveSourcesPhase(g *manifest.Graph, targetName string, createMissing bool) (manifest.ID, error) {
	target, err := p.resolveTarget(g, targetName)
	if err != nil {
		return "", err
	}
	for _, phaseID := range target.RefList("buildPhases") {
		phase, lookupErr := g.Lookup(phaseID)
		if lookupErr == nil && phase.Kind == manifest.KindSourcesBuildPhase {
			return phaseID, nil
		}
	}
	if !createMissing {
		return "", fmt.Errorf("target %q has no sources build phase", targetName)
	}
	phase := manifest.NewObject(manifest.KindSourcesBuildPhase)
	phase.SetAttr("buildActionMask", "2147483647")
	phase.SetRefList("files", nil)
	phase.SetAttr("runOnlyForDeploymentPostprocessing", "0")
	phaseID, err := g.Insert(phase)
	if err != nil {
		return "", err
	}
	target.AppendRef("buildPhases", phaseID)
	logger.Debug("created sources build phase",
		logger.String("target", targetName),
		logger.String("phase", string(phaseID)))
	return phaseID, nil
}

// rootGroup returns the first group no other group claims as a child: the
// organizational root new file references hang off. Nil when the manifest
// has no groups at all.
func rootGroup(g *manifest.Graph) *manifest.Object {
	child := make(map[manifest.ID]bool)
	for _, o := range g.Objects() {
		if o.Kind != manifest.KindGroup {
			continue
		}
		for _, c := range o.RefList("children") {
			child[c] = true
		}
	}
	for _, o := range g.Objects() {
		if o.Kind == manifest.KindGroup && !child[o.ID] {
			return o
		}
	}
	return nil
}
