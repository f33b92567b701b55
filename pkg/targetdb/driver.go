// Package targetdb defines the SQL Server target driver contract (spec §6):
// query/execute plus execute_ddl (GO-batch splitting) and bulk_insert
// (IDENTITY_INSERT toggling, authoritative @@ROWCOUNT).
package targetdb

import (
	"context"
	"regexp"
	"strings"
)

// Row mirrors sourcedb.Row: a fully materialized record.
type Row map[string]interface{}

// ColumnMeta describes a target column, including whether it is IDENTITY.
type ColumnMeta struct {
	Name       string
	DataType   string
	IsIdentity bool
	Nullable   bool
}

// BatchResult is one GO-separated batch's outcome.
type BatchResult struct {
	Batch   string
	Success bool
	ErrText string
}

// Driver is the target database driver contract.
type Driver interface {
	Query(ctx context.Context, sql string, params ...interface{}) ([]Row, error)
	Execute(ctx context.Context, sql string) error
	ExecuteDDL(ctx context.Context, multiBatchSQL string) ([]BatchResult, error)
	BulkInsert(ctx context.Context, table string, columns []string, rows []Row, identityColumns []string) (int, error)
	GetColumns(ctx context.Context, table string) ([]ColumnMeta, error)
	ObjectExists(ctx context.Context, schema, name, kind string) (bool, error)
	Close() error
}

// goSeparator matches a standalone "GO" line, case-insensitive, optional
// surrounding whitespace, per spec §4.9/§6: `^\s*GO\s*$`.
var goSeparator = regexp.MustCompile(`(?im)^[ \t]*GO[ \t]*$`)

// SplitBatches splits T-SQL text on standalone GO lines. It never returns a
// batch that still contains a standalone GO; a caller must treat that as a
// distinct programming-error category (GO_BATCH_SYNTAX, §7/§8).
func SplitBatches(sql string) []string {
	parts := goSeparator.Split(sql, -1)
	var batches []string
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			batches = append(batches, trimmed)
		}
	}
	return batches
}

// ContainsStandaloneGo reports whether the text still has a standalone GO
// line — used to assert the Deployer's invariant before submission.
func ContainsStandaloneGo(sql string) bool {
	return goSeparator.MatchString(sql)
}
