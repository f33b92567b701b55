package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/oramigrate/oracle-to-mssql/pkg/discovery"
	"github.com/oramigrate/oracle-to-mssql/pkg/source"
	"github.com/oramigrate/oracle-to-mssql/pkg/sourcedb"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var discoverOutput string

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Inventory the Oracle schema and write discovery_result.json",
	Long: `discover connects to the Oracle source, enumerates every object in the
configured schema, and writes the result so a later "migrate --selection"
run can choose exactly what to carry over.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDiscover(cmd.Context())
	},
}

func init() {
	discoverCmd.Flags().StringVar(&discoverOutput, "output", "", "path to write discovery_result.json (default: <run-dir-root>/discovery_result.json)")
}

func runDiscover(ctx context.Context) error {
	driver, err := sourcedb.NewOracleDriver(ctx, sourcedb.OracleConfig{
		Host:     cfg.Source.Host,
		Port:     cfg.Source.Port,
		Service:  cfg.Source.Service,
		User:     cfg.Source.User,
		Password: cfg.Source.Password,
	})
	if err != nil {
		return fmt.Errorf("connecting to oracle: %w", err)
	}
	defer func() { _ = driver.Close() }()

	reader := source.New(driver, cfg.Migration.DefaultSchema)

	doc, objects, err := discovery.Discover(ctx, reader)
	if err != nil {
		return fmt.Errorf("discovering schema %s: %w", cfg.Migration.DefaultSchema, err)
	}

	outPath := discoverOutput
	if outPath == "" {
		outPath = filepath.Join(cfg.Output.RunDirRoot, "discovery_result.json")
	}
	if err := discovery.WriteArtifact(doc, outPath); err != nil {
		return fmt.Errorf("writing discovery artifact: %w", err)
	}

	logger.Info("discovery complete",
		zap.Int("objects", len(objects)),
		zap.String("artifact", outPath),
	)
	return nil
}
