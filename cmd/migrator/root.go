package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/oramigrate/oracle-to-mssql/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg        *config.Config
	logger     *zap.Logger
	configPath string

	oracleHost, oraclePort, oracleService, oracleUser, oraclePassword string
	mssqlHost, mssqlPort, mssqlDatabase, mssqlUser, mssqlPassword     string
	mssqlTrusted                                                      bool
)

var rootCmd = &cobra.Command{
	Use:   "migrator",
	Short: "Oracle to SQL Server database migration tool",
	Long: `migrator drives an Oracle schema and its data through translation,
deployment, and repair onto a SQL Server target, coordinating every stage
from discovery through dependency resolution.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		applyCredentialOverrides(loaded)
		cfg = loaded

		logger, err = buildLogger(cfg.Logging)
		if err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "migrator.yaml", "path to the migration config file")

	rootCmd.PersistentFlags().StringVar(&oracleHost, "oracle-host", "", "Oracle host (overrides config)")
	rootCmd.PersistentFlags().StringVar(&oraclePort, "oracle-port", "", "Oracle port (overrides config)")
	rootCmd.PersistentFlags().StringVar(&oracleService, "oracle-service", "", "Oracle service name (overrides config)")
	rootCmd.PersistentFlags().StringVar(&oracleUser, "oracle-user", "", "Oracle user (overrides config)")
	rootCmd.PersistentFlags().StringVar(&oraclePassword, "oracle-password", os.Getenv("ORACLE_PASSWORD"), "Oracle password (or set ORACLE_PASSWORD)")

	rootCmd.PersistentFlags().StringVar(&mssqlHost, "mssql-host", "", "SQL Server host (overrides config)")
	rootCmd.PersistentFlags().StringVar(&mssqlPort, "mssql-port", "", "SQL Server port (overrides config)")
	rootCmd.PersistentFlags().StringVar(&mssqlDatabase, "mssql-database", "", "SQL Server database (overrides config)")
	rootCmd.PersistentFlags().StringVar(&mssqlUser, "mssql-user", "", "SQL Server user (overrides config)")
	rootCmd.PersistentFlags().StringVar(&mssqlPassword, "mssql-password", os.Getenv("MSSQL_PASSWORD"), "SQL Server password (or set MSSQL_PASSWORD)")
	rootCmd.PersistentFlags().BoolVar(&mssqlTrusted, "mssql-trusted", false, "use Windows-integrated auth against SQL Server")

	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(resumeCmd)
}

// applyCredentialOverrides layers flag/env-sourced credentials onto the
// file-loaded config: config.Load never reads Source/Target passwords from
// YAML (see config.SourceConfig.Password), so this is the only place they
// reach the Config.
func applyCredentialOverrides(c *config.Config) {
	c.Source.Host = resolveString(oracleHost, c.Source.Host)
	c.Source.User = resolveString(oracleUser, c.Source.User)
	c.Source.Service = resolveString(oracleService, c.Source.Service)
	c.Source.Password = oraclePassword
	if p, err := strconv.Atoi(oraclePort); err == nil {
		c.Source.Port = p
	}

	c.Target.Host = resolveString(mssqlHost, c.Target.Host)
	c.Target.User = resolveString(mssqlUser, c.Target.User)
	c.Target.Database = resolveString(mssqlDatabase, c.Target.Database)
	c.Target.Password = mssqlPassword
	c.Target.Trusted = resolveBool(mssqlTrusted, c.Target.Trusted)
	if p, err := strconv.Atoi(mssqlPort); err == nil {
		c.Target.Port = p
	}
}

// resolveString returns the first non-empty value, giving flags precedence
// over whatever config.Load already populated.
func resolveString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func resolveBool(values ...bool) bool {
	for _, v := range values {
		if v {
			return true
		}
	}
	return false
}

func buildLogger(lc config.LoggingConfig) (*zap.Logger, error) {
	var zc zap.Config
	if lc.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	level, err := zap.ParseAtomicLevel(lc.Level)
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zc.Level = level
	return zc.Build()
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
