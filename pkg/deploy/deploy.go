// Package deploy implements the Deployer (spec §4.9): submits translated
// T-SQL to the target driver and reports back a plain success/error_text
// pair, preserving the raw target error verbatim for the Root-Cause
// Analyzer rather than wrapping or summarizing it.
package deploy

import (
	"context"
	"strings"

	"github.com/oramigrate/oracle-to-mssql/pkg/shared/logging"
	"github.com/oramigrate/oracle-to-mssql/pkg/targetdb"
	"go.uber.org/zap"
)

// Result is the Deployer's structured outcome for one object.
type Result struct {
	Success bool
	ErrText string
	Batches []targetdb.BatchResult
}

// Deployer submits DDL to the target driver.
type Deployer struct {
	driver targetdb.Driver
	logger *zap.Logger
}

// New constructs a Deployer over the given target driver.
func New(driver targetdb.Driver, logger *zap.Logger) *Deployer {
	return &Deployer{driver: driver, logger: logger}
}

// Deploy executes targetText against the target database. It never
// returns a Go error for a deployment failure: a failed batch is reported
// through Result.Success/ErrText so the caller (Repair Controller) can
// route it through root-cause analysis. A non-nil error return means the
// Deployer itself could not attempt the submission (e.g. a cancelled
// context).
func (d *Deployer) Deploy(ctx context.Context, objectName, targetText string) (Result, error) {
	batches, err := d.driver.ExecuteDDL(ctx, targetText)
	if err != nil {
		d.logger.Error("deploy attempt aborted before completion",
			logging.NewFields().Component("deployer").Operation("deploy").
				Resource("object", objectName).Error(err).KV()...)
		return Result{}, err
	}

	result := Result{Batches: batches, Success: true}
	var failures []string
	for _, b := range batches {
		if !b.Success {
			result.Success = false
			failures = append(failures, b.ErrText)
		}
	}
	if !result.Success {
		result.ErrText = strings.Join(failures, "\n")
		d.logger.Warn("deploy failed",
			logging.NewFields().Component("deployer").Operation("deploy").
				Resource("object", objectName).KV()...)
	} else {
		d.logger.Debug("deploy succeeded",
			logging.NewFields().Component("deployer").Operation("deploy").
				Resource("object", objectName).KV()...)
	}
	return result, nil
}
