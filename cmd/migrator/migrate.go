package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/oramigrate/oracle-to-mssql/pkg/datacopy"
	"github.com/oramigrate/oracle-to-mssql/pkg/dependency"
	"github.com/oramigrate/oracle-to-mssql/pkg/deploy"
	"github.com/oramigrate/oracle-to-mssql/pkg/fkmanager"
	"github.com/oramigrate/oracle-to-mssql/pkg/metrics"
	"github.com/oramigrate/oracle-to-mssql/pkg/orchestrator"
	"github.com/oramigrate/oracle-to-mssql/pkg/progress"
	"github.com/oramigrate/oracle-to-mssql/pkg/repair"
	"github.com/oramigrate/oracle-to-mssql/pkg/rootcause"
	"github.com/oramigrate/oracle-to-mssql/pkg/sequence"
	"github.com/oramigrate/oracle-to-mssql/pkg/sharedmemory"
	"github.com/oramigrate/oracle-to-mssql/pkg/source"
	"github.com/oramigrate/oracle-to-mssql/pkg/sourcedb"
	"github.com/oramigrate/oracle-to-mssql/pkg/targetdb"
	"github.com/oramigrate/oracle-to-mssql/pkg/translate"
	"github.com/oramigrate/oracle-to-mssql/pkg/translate/llm"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	migrateSelectionPath string
	migrateServe         bool
	migrateListenAddr    string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run the full migration pipeline against the configured selection",
	Long: `migrate connects to both databases, loads the object selection (every
discovered object by default, or the subset named by --selection), and
drives each object through translation, deployment, and repair until the
run reaches a fixpoint.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate(cmd.Context())
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrateSelectionPath, "selection", "", "path to a migration_selection.json restricting which objects run")
	migrateCmd.Flags().BoolVar(&migrateServe, "serve", false, "serve live progress over HTTP while the run executes")
	migrateCmd.Flags().StringVar(&migrateListenAddr, "listen", ":8089", "address the progress server listens on, with --serve")
}

func runMigrate(ctx context.Context) error {
	runID := time.Now().UTC().Format("migration_20060102_150405")
	runDir := filepath.Join(cfg.Output.RunDirRoot, runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return fmt.Errorf("creating run directory: %w", err)
	}
	logger.Info("starting migration run", zap.String("run_id", runID), zap.String("run_dir", runDir))

	srcDriver, err := sourcedb.NewOracleDriver(ctx, sourcedb.OracleConfig{
		Host:     cfg.Source.Host,
		Port:     cfg.Source.Port,
		Service:  cfg.Source.Service,
		User:     cfg.Source.User,
		Password: cfg.Source.Password,
	})
	if err != nil {
		return fmt.Errorf("connecting to oracle: %w", err)
	}
	defer func() { _ = srcDriver.Close() }()

	tgtDriver, err := targetdb.NewMSSQLDriver(ctx, targetdb.Config{
		Host:     cfg.Target.Host,
		Port:     cfg.Target.Port,
		Database: cfg.Target.Database,
		User:     cfg.Target.User,
		Password: cfg.Target.Password,
		Trusted:  cfg.Target.Trusted,
	})
	if err != nil {
		return fmt.Errorf("connecting to sql server: %w", err)
	}
	defer func() { _ = tgtDriver.Close() }()

	reader := source.New(srcDriver, cfg.Migration.DefaultSchema)

	sel, err := resolveSelection(ctx, reader)
	if err != nil {
		return fmt.Errorf("resolving selection: %w", err)
	}
	if err := writeJSONArtifact(filepath.Join(runDir, "migration_selection.json"), sel); err != nil {
		logger.Warn("failed to write migration_selection.json", zap.Error(err))
	}

	memory, err := sharedmemory.Load(cfg.Output.SharedMemoryPath, nil, logger)
	if err != nil {
		return fmt.Errorf("loading shared memory: %w", err)
	}

	fkMgr := fkmanager.New(cfg.Migration.DefaultSchema, logger)
	seqAnalyzer := sequence.New()

	var llmBackend translate.Backend
	var synthesizer rootcause.Synthesizer
	var classifier rootcause.Classifier
	if cfg.Migration.UseLLMRepair != nil && *cfg.Migration.UseLLMRepair && cfg.LLM.APIKey != "" {
		client := llm.New(llm.Config{
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLM.Timeout,
		}, nil, logger)
		llmBackend = translate.NewLLMBackend(client)
		synthesizer = rootcause.NewLLMSynthesizer(client)
		classifier = rootcause.NewLLMClassifier(client)
	}

	useWebSearch := cfg.Migration.UseWebSearch != nil && *cfg.Migration.UseWebSearch
	var webSearch rootcause.WebSearchProvider
	if useWebSearch {
		webSearch, err = rootcause.NewWebSearchProvider()
		if err != nil {
			logger.Warn("web search provider unavailable, continuing without it", zap.Error(err))
			useWebSearch = false
		}
	}

	translator := translate.New(translate.NewRuleBasedBackend(), llmBackend, fkMgr, memory,
		translate.ConflictStrategy(cfg.Migration.ConflictStrategy), logger)
	deployer := deploy.New(tgtDriver, logger)

	reg := prometheus.NewRegistry()
	metricsRegistry := metrics.New(reg)

	publisher := progress.NewPublisher()

	copier := &datacopy.Copier{Source: srcDriver, Target: tgtDriver, Logger: logger}

	pipeline := &orchestrator.Pipeline{
		RunID:            runID,
		Schema:           cfg.Migration.DefaultSchema,
		Reader:           reader,
		Translator:       translator,
		Deployer:         deployer,
		FKManager:        fkMgr,
		Sequences:        seqAnalyzer,
		Copier:           copier,
		Memory:           memory,
		Publisher:        publisher,
		Metrics:          metricsRegistry,
		Target:           tgtDriver,
		PoolSize:         cfg.Concurrency.PoolSize,
		BatchSize:        cfg.Migration.BatchSizeInRange(),
		FKScriptPath:     filepath.Join(runDir, "apply_foreign_keys.sql"),
		SequencePlanPath: filepath.Join(runDir, "sequence_migration_plan.txt"),
		OutputDir:        runDir,
		Logger:           logger,
	}

	pipeline.Repair = &repair.Controller{
		Translator:        translator,
		Deployer:          deployer,
		TargetDriver:      tgtDriver,
		Memory:            memory,
		MemoryWriter:      memory,
		WebSearch:         webSearch,
		Synthesizer:       synthesizer,
		ErrorClassifier:   classifier,
		ConflictStrategy:  repair.ConflictStrategy(cfg.Migration.ConflictStrategy),
		MaxAttempts:       cfg.Migration.MaxRepairAttempts,
		ResolutionTimeout: cfg.Migration.ResolutionTimeout,
		UseWebSearch:      useWebSearch,
		Logger:            logger,
	}

	checker := orchestrator.NewExistenceChecker(memory, tgtDriver)
	pipeline.Dependencies = dependency.New(checker, pipeline, cfg.Migration.MaxDependencyCycles, poolSizeOrDefault(cfg.Concurrency.PoolSize), logger)

	var server *http.Server
	if migrateServe {
		discoveryLookup := func(lookupRunID string) (string, bool) {
			path := filepath.Join(cfg.Output.RunDirRoot, lookupRunID, "discovery_result.json")
			if _, err := os.Stat(path); err != nil {
				return "", false
			}
			return path, true
		}
		mux := http.NewServeMux()
		mux.Handle("/", progress.NewServer(publisher, discoveryLookup, nil, logger).Router())
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		server = &http.Server{Addr: migrateListenAddr, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("progress server stopped", zap.Error(err))
			}
		}()
		defer func() { _ = server.Close() }()
	}

	report, err := pipeline.Run(ctx, sel)
	if err != nil {
		return fmt.Errorf("running migration pipeline: %w", err)
	}

	if err := writeJSONArtifact(filepath.Join(runDir, "migration_results.json"), report); err != nil {
		logger.Warn("failed to write migration_results.json", zap.Error(err))
	}

	logger.Info("migration run complete",
		zap.Int("deployed", len(report.Deployed)),
		zap.Int("failed", len(report.Failed)),
		zap.Int("skipped", len(report.Skipped)),
		zap.Int("still_pending_deps", len(report.StillPendingDeps)),
		zap.Duration("duration", report.Duration),
	)
	return nil
}

func poolSizeOrDefault(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

func writeJSONArtifact(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
