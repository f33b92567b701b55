// Package sourcedb defines the source database driver contract (spec §6)
// and a concrete Oracle implementation over database/sql using the pure-Go
// go-ora driver. The contract never lets a LOB locator escape: every row
// returned by Query/StreamRows has already had CLOB/BLOB columns
// materialized into []byte/string.
package sourcedb

import "context"

// Row is a fully materialized record: column name to Go value, with any
// LOB column already read into memory.
type Row map[string]interface{}

// RowIterator streams rows without ever exposing a locator object. Next
// returns false once exhausted or on error; Err reports which.
type RowIterator interface {
	Next(ctx context.Context) bool
	Row() Row
	Err() error
	Close() error
}

// Column describes one column's metadata as reported by the source.
type Column struct {
	Name     string
	DataType string
	Nullable bool
	IsLOB    bool
}

// Driver is the source database driver contract: query, execute, streamed
// row fetch, and column metadata. External credential handling and
// connection-string assembly are the caller's concern (out of scope, §1);
// Driver only needs an already-validated DSN.
type Driver interface {
	Query(ctx context.Context, sql string, params ...interface{}) ([]Row, error)
	Execute(ctx context.Context, sql string) error
	StreamRows(ctx context.Context, table string) (RowIterator, error)
	GetColumns(ctx context.Context, table string) ([]Column, error)
	Close() error
}
