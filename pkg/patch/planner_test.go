/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/
package patch

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulmenhq/projpatch/pkg/manifest"
)

func plannerGraph(t *testing.T) *manifest.Graph {
	t.Helper()
	src, err := os.ReadFile("testdata/sample.pbxproj")
	require.NoError(t, err)
	g, err := manifest.Parse(src)
	require.NoError(t, err)
	return g
}

func TestPlannerAddSource(t *testing.T) {
	g := plannerGraph(t)
	p := NewPlanner(Options{})

	changes, err := p.Apply(g, []Intent{
		{Action: ActionAddSource, Target: "App", Path: "Sources/Extra.swift"},
	})
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Contains(t, changes[0].Detail, "created file reference")

	ids := g.FindByPath("Sources/Extra.swift")
	require.Len(t, ids, 1)
	phase, err := g.Lookup("0C1000000000000000000001")
	require.NoError(t, err)
	assert.Len(t, phase.RefList("files"), 3)

	group, err := g.Lookup("0A1000000000000000000001")
	require.NoError(t, err)
	assert.Contains(t, group.RefList("children"), ids[0])
	assert.Empty(t, g.CheckIntegrity())
}

func TestPlannerAddSourceIdempotent(t *testing.T) {
	g := plannerGraph(t)
	p := NewPlanner(Options{})
	intents := []Intent{
		{Action: ActionAddSource, Target: "App", Path: "Sources/Extra.swift"},
	}

	_, err := p.Apply(g, intents)
	require.NoError(t, err)
	first := g.Serialize()

	g2, err := manifest.Parse(first)
	require.NoError(t, err)
	changes, err := p.Apply(g2, intents)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Contains(t, changes[0].Detail, "already present")
	assert.Equal(t, first, g2.Serialize(), "second run must not change the document")
}

func TestPlannerAddSourceBindsExistingReference(t *testing.T) {
	g := plannerGraph(t)
	p := NewPlanner(Options{})

	// Notes.md already has a file reference but no build file.
	changes, err := p.Apply(g, []Intent{
		{Action: ActionAddSource, Target: "App", Path: "Notes.md"},
	})
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Contains(t, changes[0].Detail, "bound existing file reference")

	phase, err := g.Lookup("0C1000000000000000000001")
	require.NoError(t, err)
	assert.Len(t, phase.RefList("files"), 3)
	// No second reference for the same path appeared.
	assert.Len(t, g.FindByPath("Notes.md"), 1)
}

func TestPlannerAddSourceRejectsTraversal(t *testing.T) {
	g := plannerGraph(t)
	p := NewPlanner(Options{})

	_, err := p.Apply(g, []Intent{
		{Action: ActionAddSource, Target: "App", Path: "../outside.swift"},
	})
	var intentErr *IntentError
	require.ErrorAs(t, err, &intentErr)
	assert.Equal(t, 0, intentErr.Index)
}

func TestPlannerRemoveSource(t *testing.T) {
	g := plannerGraph(t)
	p := NewPlanner(Options{})

	changes, err := p.Apply(g, []Intent{
		{Action: ActionRemoveSource, Target: "App", Matcher: "Helper.swift"},
	})
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Contains(t, changes[0].Detail, "removed 2 objects")

	assert.Empty(t, g.FindByPath("Sources/Helper.swift"))
	assert.Empty(t, g.CheckIntegrity())

	// Same intent again: nothing left to match, still a success.
	changes, err = p.Apply(g, []Intent{
		{Action: ActionRemoveSource, Target: "App", Matcher: "Helper.swift"},
	})
	require.NoError(t, err)
	assert.Contains(t, changes[0].Detail, "nothing to remove")
}

func TestPlannerRemoveSourceUnknownTarget(t *testing.T) {
	g := plannerGraph(t)
	p := NewPlanner(Options{})

	// A bad target name fails even though the matcher also matches nothing.
	_, err := p.Apply(g, []Intent{
		{Action: ActionRemoveSource, Target: "Ghost", Matcher: "Helper.swift"},
	})
	var notFound *TargetNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "Ghost", notFound.Name)
}

func TestPlannerAmbiguousTarget(t *testing.T) {
	src := `{
	objects = {
		C10000000000000000000001 = {isa = SourcesBuildPhase; files = (); };
		D10000000000000000000001 = {isa = Target; name = App; buildPhases = (C10000000000000000000001, ); };
		D10000000000000000000002 = {isa = Target; name = App; buildPhases = (); };
	};
}
`
	g, err := manifest.Parse([]byte(src))
	require.NoError(t, err)

	p := NewPlanner(Options{})
	_, err = p.Apply(g, []Intent{
		{Action: ActionAddSource, Target: "App", Path: "main.c"},
	})
	var ambiguous *AmbiguousTargetError
	require.ErrorAs(t, err, &ambiguous)
	assert.Len(t, ambiguous.IDs, 2)
}

func TestPlannerRenamePrefix(t *testing.T) {
	g := plannerGraph(t)
	p := NewPlanner(Options{})

	changes, err := p.Apply(g, []Intent{
		{Action: ActionRenamePrefix, Old: "Sources/", New: "Src/"},
	})
	require.NoError(t, err)
	assert.Contains(t, changes[0].Detail, "rewrote 2 paths")
	assert.Len(t, g.FindByPath("Src/AppDelegate.swift"), 1)
}

func TestPlannerRenamePrefixNoMatch(t *testing.T) {
	g := plannerGraph(t)
	src := g.Serialize()
	p := NewPlanner(Options{})

	changes, err := p.Apply(g, []Intent{
		{Action: ActionRenamePrefix, Old: "Vendored/", New: "ThirdParty/"},
	})
	require.NoError(t, err)
	assert.Contains(t, changes[0].Detail, "rewrote 0 paths")
	assert.Equal(t, src, g.Serialize(), "no-match rename must leave the document byte-identical")
}

func TestPlannerPruneDuplicates(t *testing.T) {
	g, err := manifest.Parse([]byte(duplicatedPhaseSrc))
	require.NoError(t, err)

	p := NewPlanner(Options{})
	changes, err := p.Apply(g, []Intent{
		{Action: ActionPruneDuplicates, Target: "App"},
	})
	require.NoError(t, err)
	assert.Contains(t, changes[0].Detail, "dropped 2 duplicate entries")
	assert.Empty(t, g.CheckIntegrity())
}

func TestPlannerDisableEnable(t *testing.T) {
	g := plannerGraph(t)
	p := NewPlanner(Options{})

	changes, err := p.Apply(g, []Intent{
		{Action: ActionDisableSource, Target: "App", Matcher: "Helper.swift"},
	})
	require.NoError(t, err)
	assert.Contains(t, changes[0].Detail, "disabled 1 build files")

	bf, err := g.Lookup("0B1000000000000000000002")
	require.NoError(t, err)
	v, ok := bf.Attrs.Get("settings")
	require.True(t, ok)
	settings, ok := v.(*manifest.Dict)
	require.True(t, ok)
	flag, _ := settings.GetString("ENABLED")
	assert.Equal(t, "0", flag)

	changes, err = p.Apply(g, []Intent{
		{Action: ActionEnableSource, Target: "App", Matcher: "Helper.swift"},
	})
	require.NoError(t, err)
	assert.Contains(t, changes[0].Detail, "enabled 1 build files")
	_, ok = bf.Attrs.Get("settings")
	assert.False(t, ok, "settings dictionary should be dropped once empty")
}

func TestPlannerCreateMissingPhase(t *testing.T) {
	src := `{
	objects = {
		A20000000000000000000001 = {isa = Group; children = (); };
		D20000000000000000000001 = {isa = Target; name = Tool; buildPhases = (); };
	};
}
`
	g, err := manifest.Parse([]byte(src))
	require.NoError(t, err)

	p := NewPlanner(Options{CreateMissingPhase: true})
	_, err = p.Apply(g, []Intent{
		{Action: ActionAddSource, Target: "Tool", Path: "main.c"},
	})
	require.NoError(t, err)

	target, err := g.Lookup("D20000000000000000000001")
	require.NoError(t, err)
	phases := target.RefList("buildPhases")
	require.Len(t, phases, 1)
	phase, err := g.LookupKind(phases[0], manifest.KindSourcesBuildPhase)
	require.NoError(t, err)
	assert.Len(t, phase.RefList("files"), 1)
	assert.Empty(t, g.CheckIntegrity())
}

func TestPlannerMissingPhaseRefused(t *testing.T) {
	src := `{
	objects = {
		D30000000000000000000001 = {isa = Target; name = Tool; buildPhases = (); };
	};
}
`
	g, err := manifest.Parse([]byte(src))
	require.NoError(t, err)

	p := NewPlanner(Options{})
	_, err = p.Apply(g, []Intent{
		{Action: ActionAddSource, Target: "Tool", Path: "main.c"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no sources build phase")
}

func TestPlannerStopsAtFirstFailure(t *testing.T) {
	g := plannerGraph(t)
	p := NewPlanner(Options{})

	changes, err := p.Apply(g, []Intent{
		{Action: ActionAddSource, Target: "App", Path: "Sources/Extra.swift"},
		{Action: ActionAddSource, Target: "Ghost", Path: "Sources/More.swift"},
		{Action: ActionAddSource, Target: "App", Path: "Sources/Never.swift"},
	})
	var intentErr *IntentError
	require.ErrorAs(t, err, &intentErr)
	assert.Equal(t, 1, intentErr.Index)
	assert.Len(t, changes, 1, "changes cover only the intents that completed")
	assert.Empty(t, g.FindByPath("Sources/Never.swift"))
}

func TestPlannerValidatesIntents(t *testing.T) {
	g := plannerGraph(t)
	p := NewPlanner(Options{})

	_, err := p.Apply(g, []Intent{{Action: ActionAddSource, Target: "App"}})
	var intentErr *IntentError
	require.ErrorAs(t, err, &intentErr)
	assert.Contains(t, err.Error(), "requires path")
}
