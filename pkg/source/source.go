// Package source implements the Source Reader (spec §4.1): a catalog-level
// wrapper over pkg/sourcedb.Driver that knows the shape of Oracle's data
// dictionary views, so every other component deals in typed listings and
// DDL/text strings rather than hand-rolled ALL_* queries.
package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/oramigrate/oracle-to-mssql/pkg/sequence"
	"github.com/oramigrate/oracle-to-mssql/pkg/sourcedb"
)

// ObjectRef is one catalog entry: identity plus the lightweight metadata
// Discovery attaches to it (spec §4.2).
type ObjectRef struct {
	Schema   string
	Name     string
	RowCount int64
	ByteSize int64
	Valid    bool

	// CurrentValue is populated for sequences only (spec §4.3 step 1).
	CurrentValue int64
}

// PackageText is the spec/body pair get_package_text() returns (spec §4.1).
type PackageText struct {
	Spec string
	Body string
}

// Reader is the Source Reader: every list/get operation the rest of the
// pipeline needs from Oracle, backed by a single sourcedb.Driver.
type Reader struct {
	driver sourcedb.Driver
	schema string
}

// New constructs a Reader scoped to schema (the owner whose objects are
// enumerated; cross-schema references are resolved by fully qualified name
// elsewhere, not by widening this scope).
func New(driver sourcedb.Driver, schema string) *Reader {
	return &Reader{driver: driver, schema: schema}
}

func (r *Reader) listObjects(ctx context.Context, objectType string) ([]ObjectRef, error) {
	rows, err := r.driver.Query(ctx,
		`SELECT object_name, status FROM all_objects WHERE owner = :1 AND object_type = :2`,
		r.schema, objectType)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s objects for schema %s: %w", objectType, r.schema, err)
	}
	out := make([]ObjectRef, 0, len(rows))
	for _, row := range rows {
		name, _ := row["OBJECT_NAME"].(string)
		status, _ := row["STATUS"].(string)
		out = append(out, ObjectRef{
			Schema: r.schema,
			Name:   name,
			Valid:  strings.EqualFold(status, "VALID"),
		})
	}
	return out, nil
}

// ListTables returns every table owned by the schema, with row/byte
// metadata from ALL_TABLES.
func (r *Reader) ListTables(ctx context.Context) ([]ObjectRef, error) {
	rows, err := r.driver.Query(ctx,
		`SELECT t.table_name, t.num_rows, s.bytes
		 FROM all_tables t
		 LEFT JOIN all_segments s ON s.owner = t.owner AND s.segment_name = t.table_name
		 WHERE t.owner = :1`, r.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables for schema %s: %w", r.schema, err)
	}
	out := make([]ObjectRef, 0, len(rows))
	for _, row := range rows {
		name, _ := row["TABLE_NAME"].(string)
		out = append(out, ObjectRef{
			Schema:   r.schema,
			Name:     name,
			RowCount: asInt64(row["NUM_ROWS"]),
			ByteSize: asInt64(row["BYTES"]),
			Valid:    true,
		})
	}
	return out, nil
}

// ListViews returns every view owned by the schema.
func (r *Reader) ListViews(ctx context.Context) ([]ObjectRef, error) {
	return r.listObjects(ctx, "VIEW")
}

// ListProcedures returns every standalone procedure owned by the schema.
func (r *Reader) ListProcedures(ctx context.Context) ([]ObjectRef, error) {
	return r.listObjects(ctx, "PROCEDURE")
}

// ListFunctions returns every standalone function owned by the schema.
func (r *Reader) ListFunctions(ctx context.Context) ([]ObjectRef, error) {
	return r.listObjects(ctx, "FUNCTION")
}

// ListTriggers returns every trigger owned by the schema.
func (r *Reader) ListTriggers(ctx context.Context) ([]ObjectRef, error) {
	return r.listObjects(ctx, "TRIGGER")
}

// ListPackages returns every package owned by the schema, one entry per
// package name (not per package body/spec pair).
func (r *Reader) ListPackages(ctx context.Context) ([]ObjectRef, error) {
	return r.listObjects(ctx, "PACKAGE")
}

// ListSequences returns every user sequence owned by the schema, filtering
// out Oracle's system-generated identity sequences (spec §4.1, §4.3 step
// 1: "filtering out system sequences whose name matches ISEQ$$_%").
func (r *Reader) ListSequences(ctx context.Context) ([]ObjectRef, error) {
	rows, err := r.driver.Query(ctx,
		`SELECT sequence_name, last_number FROM all_sequences WHERE sequence_owner = :1`, r.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to list sequences for schema %s: %w", r.schema, err)
	}
	out := make([]ObjectRef, 0, len(rows))
	for _, row := range rows {
		name, _ := row["SEQUENCE_NAME"].(string)
		if sequence.IsSystemSequence(name) {
			continue
		}
		out = append(out, ObjectRef{Schema: r.schema, Name: name, Valid: true, CurrentValue: asInt64(row["LAST_NUMBER"])})
	}
	return out, nil
}

// GetDDL fetches the DDL text for one object via DBMS_METADATA, the
// standard Oracle facility for reconstructing a CREATE statement from the
// dictionary (tables, views, sequences all go through this path).
func (r *Reader) GetDDL(ctx context.Context, kind, name string) (string, error) {
	rows, err := r.driver.Query(ctx,
		`SELECT DBMS_METADATA.GET_DDL(:1, :2, :3) AS ddl FROM dual`, kind, name, r.schema)
	if err != nil {
		return "", fmt.Errorf("failed to fetch DDL for %s.%s (%s): %w", r.schema, name, kind, err)
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("no DDL returned for %s.%s (%s)", r.schema, name, kind)
	}
	ddl, _ := rows[0]["DDL"].(string)
	return ddl, nil
}

// GetPackageText fetches a package's spec and body source via
// ALL_SOURCE, concatenated in line order (the dictionary stores PL/SQL
// source one line per row).
func (r *Reader) GetPackageText(ctx context.Context, name string) (PackageText, error) {
	spec, err := r.sourceText(ctx, name, "PACKAGE")
	if err != nil {
		return PackageText{}, err
	}
	body, err := r.sourceText(ctx, name, "PACKAGE BODY")
	if err != nil {
		return PackageText{}, err
	}
	return PackageText{Spec: spec, Body: body}, nil
}

func (r *Reader) sourceText(ctx context.Context, name, objectType string) (string, error) {
	rows, err := r.driver.Query(ctx,
		`SELECT text FROM all_source WHERE owner = :1 AND name = :2 AND type = :3 ORDER BY line`,
		r.schema, name, objectType)
	if err != nil {
		return "", fmt.Errorf("failed to fetch source for %s.%s (%s): %w", r.schema, name, objectType, err)
	}
	var b strings.Builder
	for _, row := range rows {
		if line, ok := row["TEXT"].(string); ok {
			b.WriteString(line)
		}
	}
	return b.String(), nil
}

// FetchRows streams every row of table as materialized {col: value} maps,
// LOBs already resolved to in-memory values by the underlying driver
// (spec §4.1 "locator objects must never leave this component").
func (r *Reader) FetchRows(ctx context.Context, table string) (sourcedb.RowIterator, error) {
	return r.driver.StreamRows(ctx, table)
}

func asInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
