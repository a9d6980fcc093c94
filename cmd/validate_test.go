/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/
package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateCleanManifest(t *testing.T) {
	if err := runCLI("validate", sampleFixture); err != nil {
		t.Fatalf("validate failed on the clean fixture: %v", err)
	}
}

func TestValidateReportsFailures(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.pbxproj")
	if err := os.WriteFile(broken, []byte("{ objects = { "), 0o644); err != nil {
		t.Fatal(err)
	}

	err := runCLI("validate", sampleFixture, broken)
	if err == nil {
		t.Fatal("expected validation failure")
	}
	if !strings.Contains(err.Error(), "1 of 2 manifests failed") {
		t.Errorf("err = %v, expected a failure count", err)
	}
}

func TestValidateJSONOutput(t *testing.T) {
	root := newRootCommand()
	registerSubcommands(root)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"validate", "--json", sampleFixture})
	if err := root.Execute(); err != nil {
		t.Fatalf("validate --json failed: %v", err)
	}

	var reports []fileReport
	if err := json.Unmarshal(out.Bytes(), &reports); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if len(reports) != 1 {
		t.Fatalf("got %d reports, expected 1", len(reports))
	}
	r := reports[0]
	if !r.Valid || !r.RoundTrip || r.Objects != 9 || len(r.Issues) != 0 {
		t.Errorf("report = %+v", r)
	}
}

func TestValidateOne(t *testing.T) {
	dir := t.TempDir()

	dangling := filepath.Join(dir, "dangling.pbxproj")
	src := "{ objects = { " +
		"B00000000000000000000001 = {isa = BuildFile; fileRef = F00000000000000000000009; }; " +
		"}; }"
	if err := os.WriteFile(dangling, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	report := validateOne(dangling)
	if report.Valid {
		t.Error("dangling reference should fail validation")
	}
	if len(report.Issues) == 0 {
		t.Error("issues not reported")
	}
	if !report.RoundTrip {
		t.Error("round trip should still hold for an unmutated graph")
	}

	missing := validateOne(filepath.Join(dir, "nope.pbxproj"))
	if missing.Valid || missing.ParseErr == "" {
		t.Errorf("missing file report = %+v", missing)
	}
}
