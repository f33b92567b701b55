// Package datacopy implements the Data Copier (spec §4.13): streams rows
// from the Oracle source to the SQL Server target table by table,
// respecting IDENTITY_INSERT and the target's authoritative row counts.
package datacopy

import (
	"context"
	"fmt"

	"github.com/oramigrate/oracle-to-mssql/pkg/sequence"
	"github.com/oramigrate/oracle-to-mssql/pkg/shared/logging"
	"github.com/oramigrate/oracle-to-mssql/pkg/sourcedb"
	"github.com/oramigrate/oracle-to-mssql/pkg/targetdb"
	"go.uber.org/zap"
)

const (
	defaultBatchSize = 1000
	minBatchSize     = 100
	maxBatchSize     = 10000
)

// Options configures one table's copy (recognized options, spec §4.13/§6).
type Options struct {
	BatchSize          int
	TruncateBeforeLoad bool
}

// clampBatchSize enforces the 100-10000 recognized range, defaulting to
// 1000 when unset.
func clampBatchSize(n int) int {
	if n == 0 {
		return defaultBatchSize
	}
	if n < minBatchSize {
		return minBatchSize
	}
	if n > maxBatchSize {
		return maxBatchSize
	}
	return n
}

// Result reports one table's copy outcome.
type Result struct {
	RowsCopied      int64
	IdentityWrapped bool
}

// Copier streams rows from the source driver into the target driver.
type Copier struct {
	Source sourcedb.Driver
	Target targetdb.Driver
	Logger *zap.Logger
}

// Copy executes the §4.13 five-step procedure for one table.
func (c *Copier) Copy(ctx context.Context, schema, table string, opts Options) (Result, error) {
	qualified := schema + "." + table
	batchSize := clampBatchSize(opts.BatchSize)

	columns, err := c.Target.GetColumns(ctx, qualified)
	if err != nil {
		return Result{}, fmt.Errorf("failed to query target columns for %s: %w", qualified, err)
	}

	var identityColumns []string
	var columnNames []string
	for _, col := range columns {
		columnNames = append(columnNames, col.Name)
		if col.IsIdentity {
			identityColumns = append(identityColumns, col.Name)
		}
	}

	if opts.TruncateBeforeLoad {
		if err := c.Target.Execute(ctx, "TRUNCATE TABLE "+qualified); err != nil {
			return Result{}, fmt.Errorf("failed to truncate %s before load: %w", qualified, err)
		}
	}

	identityWrapped := len(identityColumns) > 0
	if identityWrapped {
		onStmt, _, _ := sequence.IdentityInsertWrap(qualified, identityColumns[0])
		if err := c.Target.Execute(ctx, onStmt); err != nil {
			return Result{}, fmt.Errorf("failed to enable IDENTITY_INSERT on %s: %w", qualified, err)
		}
	}

	rowsCopied, copyErr := c.streamBatches(ctx, table, qualified, columnNames, identityColumns, batchSize)

	if identityWrapped {
		_, offStmt, reseedStmt := sequence.IdentityInsertWrap(qualified, identityColumns[0])
		// IDENTITY_INSERT OFF must be emitted on every exit path, even when
		// the copy itself failed (spec §4.13 step 3).
		if err := c.Target.Execute(ctx, offStmt); err != nil {
			c.Logger.Error("failed to disable IDENTITY_INSERT, target table left in an inconsistent state",
				logging.NewFields().Component("datacopy").Operation("copy").Resource("table", qualified).Error(err).KV()...)
		}
		// Reseed only after a successful copy that loaded at least one row.
		if copyErr == nil && rowsCopied > 0 {
			if err := c.Target.Execute(ctx, reseedStmt); err != nil {
				c.Logger.Warn("failed to reseed identity after copy",
					logging.NewFields().Component("datacopy").Operation("copy").Resource("table", qualified).Error(err).KV()...)
			}
		}
	}

	if copyErr != nil {
		return Result{RowsCopied: rowsCopied, IdentityWrapped: identityWrapped}, copyErr
	}
	return Result{RowsCopied: rowsCopied, IdentityWrapped: identityWrapped}, nil
}

func (c *Copier) streamBatches(ctx context.Context, table, qualified string, columnNames, identityColumns []string, batchSize int) (int64, error) {
	iter, err := c.Source.StreamRows(ctx, table)
	if err != nil {
		return 0, fmt.Errorf("failed to stream rows from %s: %w", table, err)
	}
	defer iter.Close()

	var total int64
	batch := make([]targetdb.Row, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := c.Target.BulkInsert(ctx, qualified, columnNames, batch, identityColumns)
		total += int64(n)
		batch = batch[:0]
		return err
	}

	for iter.Next(ctx) {
		batch = append(batch, targetdb.Row(iter.Row()))
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return total, fmt.Errorf("bulk insert into %s failed: %w", qualified, err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return total, fmt.Errorf("row stream from %s failed: %w", table, err)
	}
	if err := flush(); err != nil {
		return total, fmt.Errorf("bulk insert into %s failed: %w", qualified, err)
	}
	return total, nil
}
