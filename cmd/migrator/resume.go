package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oramigrate/oracle-to-mssql/pkg/orchestrator"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var resumeRunDir string

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Re-attach to an interrupted run and retry its unresolved objects",
	Long: `resume reloads a previous run's migration_selection.json and
migration_results.json from --run-dir and re-drives only the objects that
were not already deployed, relying on SharedMemory (loaded fresh, as every
other command does) to recognize what the interrupted run already
finished.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runResume(cmd.Context())
	},
}

func init() {
	resumeCmd.Flags().StringVar(&resumeRunDir, "run-dir", "", "path to the interrupted run's directory (required)")
	_ = resumeCmd.MarkFlagRequired("run-dir")
}

func runResume(ctx context.Context) error {
	prior, err := loadPriorReport(resumeRunDir)
	if err != nil {
		return fmt.Errorf("reading prior run results: %w", err)
	}
	sel, err := loadSelectionFile(filepath.Join(resumeRunDir, "migration_selection.json"))
	if err != nil {
		return fmt.Errorf("reading prior run selection: %w", err)
	}

	remaining := remainingSelection(sel, prior)
	logger.Info("resuming run",
		zap.String("run_dir", resumeRunDir),
		zap.Int("previously_deployed", len(prior.Deployed)),
		zap.Int("still_pending_deps", len(prior.StillPendingDeps)),
	)

	migrateSelectionPath = writeTempSelection(remaining)
	return runMigrate(ctx)
}

func loadPriorReport(runDir string) (*orchestrator.Report, error) {
	data, err := os.ReadFile(filepath.Join(runDir, "migration_results.json"))
	if err != nil {
		return nil, err
	}
	var report orchestrator.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// remainingSelection narrows sel to exclude anything the prior run already
// deployed, so a resumed run does not re-attempt objects SharedMemory (and
// the target database) already consider done. prior.Deployed holds
// "schema.name" fully qualified names (model.Identity.FQName); sel holds
// bare object names, so membership is checked against the schema-qualified
// form.
func remainingSelection(sel orchestrator.Selection, prior *orchestrator.Report) orchestrator.Selection {
	done := make(map[string]bool, len(prior.Deployed))
	for _, fqName := range prior.Deployed {
		done[fqName] = true
	}

	filter := func(names []string) []string {
		out := make([]string, 0, len(names))
		for _, n := range names {
			if !done[cfg.Migration.DefaultSchema+"."+n] {
				out = append(out, n)
			}
		}
		return out
	}

	return orchestrator.Selection{
		Tables:      filter(sel.Tables),
		Views:       filter(sel.Views),
		Sequences:   filter(sel.Sequences),
		Procedures:  filter(sel.Procedures),
		Functions:   filter(sel.Functions),
		Triggers:    filter(sel.Triggers),
		Packages:    filter(sel.Packages),
		IncludeData: sel.IncludeData,
	}
}

func writeTempSelection(sel orchestrator.Selection) string {
	path := filepath.Join(os.TempDir(), fmt.Sprintf("migrator-resume-selection-%d.json", os.Getpid()))
	data, err := json.Marshal(sel)
	if err != nil {
		logger.Warn("failed to marshal resume selection", zap.Error(err))
		return ""
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		logger.Warn("failed to write resume selection", zap.Error(err))
		return ""
	}
	return path
}
