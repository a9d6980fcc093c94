/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/
package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/projpatch/pkg/config"
	"github.com/fulmenhq/projpatch/pkg/logger"
	"github.com/fulmenhq/projpatch/pkg/manifest"
	"github.com/fulmenhq/projpatch/pkg/patch"
	"github.com/fulmenhq/projpatch/pkg/safeio"
)

// errChangesRequired signals --check found pending changes; it maps to a
// non-zero exit without being an engine failure.
var errChangesRequired = errors.New("manifest requires changes")

func newApplyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply patch intents to a manifest",
		Long: `Apply one or more declarative patch intents to a project manifest.

Intents come from repeated --op expressions, a --plan file, or both (plan
first). The session is all-or-nothing: if any intent fails, no output is
written and the manifest on disk is untouched.

Intent expressions:
   add:<target>:<path>            add a source file to the target
   remove:<target>:<matcher>      remove a file everywhere it is referenced
   rename-prefix:<old>:<new>      rewrite a path prefix across file references
   dedupe:<target>                collapse duplicate sources entries
   disable:<target>:<matcher>     exclude matching sources without removing them
   enable:<target>:<matcher>      clear a previous exclusion`,
		RunE: runApply,
	}

	cmd.Flags().StringP("manifest", "m", "", "Path to the manifest file (required)")
	cmd.Flags().StringArray("op", nil, "Intent expression (repeatable, applied in order)")
	cmd.Flags().String("plan", "", "YAML plan file listing intents")
	cmd.Flags().Bool("check", false, "Report whether changes would occur without writing")
	cmd.Flags().Bool("dry-run", false, "Apply in memory and report, but do not write")
	cmd.Flags().Bool("backup", false, "Write <manifest>.orig before replacing")
	_ = cmd.MarkFlagRequired("manifest")

	return cmd
}

func runApply(cmd *cobra.Command, _ []string) error {
	manifestPath, _ := cmd.Flags().GetString("manifest")
	ops, _ := cmd.Flags().GetStringArray("op")
	planPath, _ := cmd.Flags().GetString("plan")
	checkOnly, _ := cmd.Flags().GetBool("check")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	backup, _ := cmd.Flags().GetBool("backup")

	cfg, err := config.LoadProjectConfig()
	if err != nil {
		logger.Warn("could not load configuration, using defaults", logger.Err(err))
		cfg = config.Default()
	}
	if cmd.Flags().Changed("backup") {
		cfg.Patch.Backup = backup
	}

	intents, err := collectIntents(planPath, ops)
	if err != nil {
		return err
	}
	if len(intents) == 0 {
		return fmt.Errorf("no operations given: use --op or --plan")
	}

	manifestPath = filepath.Clean(manifestPath)
	src, err := os.ReadFile(manifestPath)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}

	g, err := manifest.Parse(src)
	if err != nil {
		return err
	}

	planner := patch.NewPlanner(patch.Options{
		CreateMissingPhase: cfg.Patch.CreateMissingPhase,
	})
	changes, err := planner.Apply(g, intents)
	if err != nil {
		// Per-session atomicity: nothing is written on any intent failure.
		return err
	}

	if issues := g.CheckIntegrity(); len(issues) > 0 {
		for _, issue := range issues {
			logger.Error("integrity violation after patch",
				logger.String("object", string(issue.ObjectID)),
				logger.String("code", issue.Code),
				logger.String("detail", issue.Detail))
		}
		return &manifest.DanglingReferenceError{ID: issues[0].ObjectID}
	}

	out := g.Serialize()
	if bytes.Equal(out, src) {
		logger.Info("manifest already up to date",
			logger.String("manifest", manifestPath),
			logger.Int("intents", len(intents)))
		return nil
	}

	for _, change := range changes {
		logger.Info("applied",
			logger.String("intent", change.Intent.String()),
			logger.String("result", change.Detail))
	}

	if checkOnly {
		logger.Warn("manifest requires changes", logger.String("manifest", manifestPath))
		return errChangesRequired
	}
	if dryRun {
		logger.Info("dry run: not writing", logger.String("manifest", manifestPath))
		return nil
	}

	if cfg.Patch.Backup {
		if err := safeio.WriteFilePreservePerms(manifestPath+".orig", src); err != nil {
			return fmt.Errorf("write backup: %w", err)
		}
	}
	if err := safeio.WriteFileAtomic(manifestPath, out); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	logger.Info("manifest updated",
		logger.String("manifest", manifestPath),
		logger.Int("intents", len(intents)))
	return nil
}

// collectIntents gathers intents from the plan file (first) and then the
// --op expressions, preserving order within each source.
func collectIntents(planPath string, ops []string) ([]patch.Intent, error) {
	var intents []patch.Intent
	if planPath != "" {
		data, err := os.ReadFile(filepath.Clean(planPath))
		if err != nil {
			return nil, fmt.Errorf("read plan: %w", err)
		}
		planIntents, err := patch.LoadPlan(data)
		if err != nil {
			return nil, err
		}
		intents = append(intents, planIntents...)
	}
	for _, expr := range ops {
		intent, err := patch.ParseIntent(expr)
		if err != nil {
			return nil, err
		}
		intents = append(intents, intent)
	}
	return intents, nil
}
