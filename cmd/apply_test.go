/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/
package cmd

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/fulmenhq/projpatch/pkg/manifest"
)

const sampleFixture = "../tests/fixtures/manifests/sample.pbxproj"

// runCLI executes an isolated command tree so tests never share flag state.
func runCLI(args ...string) error {
	root := newRootCommand()
	registerSubcommands(root)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	return root.Execute()
}

func tempManifest(t *testing.T) string {
	t.Helper()
	src, err := os.ReadFile(sampleFixture)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	target := filepath.Join(t.TempDir(), "project.pbxproj")
	if err := os.WriteFile(target, src, 0o644); err != nil {
		t.Fatal(err)
	}
	return target
}

func TestApplyAddSource(t *testing.T) {
	target := tempManifest(t)

	err := runCLI("apply", "--manifest", target, "--op", "add:App:Sources/Extra.swift")
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	out, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	g, err := manifest.Parse(out)
	if err != nil {
		t.Fatalf("patched manifest does not parse: %v", err)
	}
	if ids := g.FindByPath("Sources/Extra.swift"); len(ids) != 1 {
		t.Errorf("FindByPath = %v, expected the added file", ids)
	}
	if issues := g.CheckIntegrity(); len(issues) != 0 {
		t.Errorf("integrity issues in written manifest: %v", issues)
	}

	// Second run is a no-op: same intent, identical bytes on disk.
	if err := runCLI("apply", "--manifest", target, "--op", "add:App:Sources/Extra.swift"); err != nil {
		t.Fatalf("idempotent re-apply failed: %v", err)
	}
	again, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, again) {
		t.Error("re-apply changed the manifest bytes")
	}
}

func TestApplyCheckReportsPendingChanges(t *testing.T) {
	target := tempManifest(t)
	before, _ := os.ReadFile(target)

	err := runCLI("apply", "--manifest", target, "--check", "--op", "add:App:Sources/Extra.swift")
	if !errors.Is(err, errChangesRequired) {
		t.Fatalf("err = %v, expected errChangesRequired", err)
	}

	after, _ := os.ReadFile(target)
	if !bytes.Equal(before, after) {
		t.Error("--check modified the manifest")
	}
}

func TestApplyCheckCleanManifest(t *testing.T) {
	target := tempManifest(t)

	if err := runCLI("apply", "--manifest", target, "--op", "add:App:Sources/Extra.swift"); err != nil {
		t.Fatal(err)
	}
	// The intent is already satisfied, so check passes.
	if err := runCLI("apply", "--manifest", target, "--check", "--op", "add:App:Sources/Extra.swift"); err != nil {
		t.Errorf("check on a satisfied manifest failed: %v", err)
	}
}

func TestApplyDryRun(t *testing.T) {
	target := tempManifest(t)
	before, _ := os.ReadFile(target)

	if err := runCLI("apply", "--manifest", target, "--dry-run", "--op", "remove:App:Helper.swift"); err != nil {
		t.Fatalf("dry run failed: %v", err)
	}
	after, _ := os.ReadFile(target)
	if !bytes.Equal(before, after) {
		t.Error("--dry-run modified the manifest")
	}
}

func TestApplyBackup(t *testing.T) {
	target := tempManifest(t)
	before, _ := os.ReadFile(target)

	if err := runCLI("apply", "--manifest", target, "--backup", "--op", "rename-prefix:Sources/:Src/"); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	backup, err := os.ReadFile(target + ".orig")
	if err != nil {
		t.Fatalf("backup not written: %v", err)
	}
	if !bytes.Equal(backup, before) {
		t.Error("backup does not hold the original bytes")
	}
	after, _ := os.ReadFile(target)
	if bytes.Equal(after, before) {
		t.Error("manifest was not rewritten")
	}
}

func TestApplyFailureLeavesManifestUntouched(t *testing.T) {
	target := tempManifest(t)
	before, _ := os.ReadFile(target)

	err := runCLI("apply", "--manifest", target,
		"--op", "add:App:Sources/Extra.swift",
		"--op", "remove:Ghost:Helper.swift")
	if err == nil {
		t.Fatal("expected failure for the unknown target")
	}

	after, _ := os.ReadFile(target)
	if !bytes.Equal(before, after) {
		t.Error("failed session still modified the manifest")
	}
}

func TestApplyRequiresOperations(t *testing.T) {
	target := tempManifest(t)
	err := runCLI("apply", "--manifest", target)
	if err == nil || !bytes.Contains([]byte(err.Error()), []byte("no operations")) {
		t.Errorf("err = %v, expected the no-operations message", err)
	}
}

func TestApplyPlanFile(t *testing.T) {
	target := tempManifest(t)
	plan := filepath.Join(filepath.Dir(target), "changes.yaml")
	planBody := `version: 1
intents:
  - action: add-source
    target: App
    path: Sources/FromPlan.swift
  - action: rename-prefix
    old: Sources/
    new: Src/
`
	if err := os.WriteFile(plan, []byte(planBody), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := runCLI("apply", "--manifest", target, "--plan", plan); err != nil {
		t.Fatalf("apply with plan failed: %v", err)
	}

	out, _ := os.ReadFile(target)
	g, err := manifest.Parse(out)
	if err != nil {
		t.Fatal(err)
	}
	// The plan runs in order: the add lands first, then the rename moves it.
	if ids := g.FindByPath("Src/FromPlan.swift"); len(ids) != 1 {
		t.Errorf("FindByPath = %v, expected the renamed plan addition", ids)
	}
}

func TestApplyRejectsBadPlan(t *testing.T) {
	target := tempManifest(t)
	plan := filepath.Join(filepath.Dir(target), "bad.yaml")
	if err := os.WriteFile(plan, []byte("version: 1\nintents:\n  - action: explode\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := runCLI("apply", "--manifest", target, "--plan", plan); err == nil {
		t.Error("expected schema rejection for the bad plan")
	}
}

func TestApplyMalformedManifest(t *testing.T) {
	target := filepath.Join(t.TempDir(), "broken.pbxproj")
	if err := os.WriteFile(target, []byte("{ objects = { "), 0o644); err != nil {
		t.Fatal(err)
	}

	err := runCLI("apply", "--manifest", target, "--op", "dedupe:App")
	var malformed *manifest.MalformedManifestError
	if !errors.As(err, &malformed) {
		t.Errorf("err = %v, expected MalformedManifestError", err)
	}
}
