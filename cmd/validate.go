/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/
package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fulmenhq/projpatch/pkg/logger"
	"github.com/fulmenhq/projpatch/pkg/manifest"
)

// fileReport is the validation outcome for one manifest.
type fileReport struct {
	Manifest  string           `json:"manifest"`
	Valid     bool             `json:"valid"`
	ParseErr  string           `json:"parse_error,omitempty"`
	RoundTrip bool             `json:"round_trip"`
	Objects   int              `json:"objects"`
	Issues    []manifest.Issue `json:"issues,omitempty"`
}

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <manifest>...",
		Short: "Check manifests for parse, integrity, and round-trip fidelity",
		Long: `Validate parses each manifest, checks referential integrity (dangling
references, duplicate phase entries, duplicate paths), and verifies the
serializer reproduces the input byte-for-byte. Manifests are checked
concurrently; the exit code is non-zero if any fails.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runValidate,
	}
	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")

	var mu sync.Mutex
	reports := make([]fileReport, 0, len(args))

	var eg errgroup.Group
	eg.SetLimit(runtime.NumCPU())
	for _, arg := range args {
		manifestPath := filepath.Clean(arg)
		eg.Go(func() error {
			report := validateOne(manifestPath)
			mu.Lock()
			reports = append(reports, report)
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()

	sort.Slice(reports, func(i, j int) bool { return reports[i].Manifest < reports[j].Manifest })

	failed := 0
	for _, r := range reports {
		if !r.Valid {
			failed++
		}
	}

	if jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			return err
		}
	} else {
		for _, r := range reports {
			logValidateReport(r)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d manifests failed validation", failed, len(reports))
	}
	logger.Info("all manifests valid", logger.Int("manifests", len(reports)))
	return nil
}

func validateOne(manifestPath string) fileReport {
	report := fileReport{Manifest: manifestPath}
	src, err := os.ReadFile(manifestPath)
	if err != nil {
		report.ParseErr = err.Error()
		return report
	}
	g, err := manifest.Parse(src)
	if err != nil {
		report.ParseErr = err.Error()
		return report
	}
	report.Objects = g.Len()
	report.Issues = g.CheckIntegrity()
	report.RoundTrip = bytes.Equal(g.Serialize(), src)
	report.Valid = len(report.Issues) == 0 && report.RoundTrip
	return report
}

func logValidateReport(r fileReport) {
	switch {
	case r.ParseErr != "":
		logger.Error("manifest failed to parse",
			logger.String("manifest", r.Manifest),
			logger.String("error", r.ParseErr))
	case !r.RoundTrip:
		logger.Error("manifest does not round-trip byte-identically",
			logger.String("manifest", r.Manifest))
	case len(r.Issues) > 0:
		for _, issue := range r.Issues {
			logger.Error("integrity issue",
				logger.String("manifest", r.Manifest),
				logger.String("object", string(issue.ObjectID)),
				logger.String("code", issue.Code),
				logger.String("detail", issue.Detail))
		}
	default:
		logger.Info("manifest valid",
			logger.String("manifest", r.Manifest),
			logger.Int("objects", r.Objects))
	}
}
