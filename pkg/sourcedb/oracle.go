package sourcedb

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/sijms/go-ora/v2"
	"github.com/jmoiron/sqlx"
)

// OracleConfig is the validated connection configuration the credential
// collaborator (out of scope, §1) hands the core.
type OracleConfig struct {
	Host     string
	Port     int
	Service  string
	User     string
	Password string
}

// DSN builds the go-ora connection string for this config.
func (c OracleConfig) DSN() string {
	return fmt.Sprintf("oracle://%s:%s@%s:%d/%s", c.User, c.Password, c.Host, c.Port, c.Service)
}

// oracleDriver is the concrete Driver over database/sql + go-ora.
type oracleDriver struct {
	db *sqlx.DB
}

// NewOracleDriver opens a pooled connection to Oracle.
func NewOracleDriver(ctx context.Context, cfg OracleConfig) (Driver, error) {
	db, err := sqlx.ConnectContext(ctx, "oracle", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to oracle: %w", err)
	}
	return &oracleDriver{db: db}, nil
}

func (d *oracleDriver) Query(ctx context.Context, query string, params ...interface{}) ([]Row, error) {
	rows, err := d.db.QueryxContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to query oracle: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		m := make(map[string]interface{})
		if err := rows.MapScan(m); err != nil {
			return nil, fmt.Errorf("failed to scan oracle row: %w", err)
		}
		out = append(out, materializeLOBs(m))
	}
	return out, rows.Err()
}

func (d *oracleDriver) Execute(ctx context.Context, query string) error {
	if _, err := d.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to execute on oracle: %w", err)
	}
	return nil
}

func (d *oracleDriver) StreamRows(ctx context.Context, table string) (RowIterator, error) {
	rows, err := d.db.QueryxContext(ctx, fmt.Sprintf("SELECT * FROM %s", table))
	if err != nil {
		return nil, fmt.Errorf("failed to open row stream for %s: %w", table, err)
	}
	return &oracleRowIterator{rows: rows}, nil
}

func (d *oracleDriver) GetColumns(ctx context.Context, table string) ([]Column, error) {
	const q = `
		SELECT column_name, data_type, nullable
		FROM all_tab_columns
		WHERE table_name = :1
		ORDER BY column_id`
	rows, err := d.db.QueryContext(ctx, rebind(q), table)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns for %s: %w", table, err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		cols = append(cols, Column{
			Name:     name,
			DataType: dataType,
			Nullable: nullable == "Y",
			IsLOB:    isLOBType(dataType),
		})
	}
	return cols, rows.Err()
}

func (d *oracleDriver) Close() error {
	return d.db.Close()
}

func rebind(q string) string {
	// go-ora accepts :1, :2 style binds directly; kept for readability at
	// call sites that want positional params.
	return q
}

func isLOBType(dataType string) bool {
	switch dataType {
	case "CLOB", "NCLOB", "BLOB", "BFILE", "LONG", "LONG RAW":
		return true
	default:
		return false
	}
}

// materializeLOBs converts any driver-returned LOB locator type into plain
// []byte/string before the row leaves this package. go-ora already decodes
// CLOB/BLOB into []byte for us; this normalizes other wrapper shapes (e.g.
// sql.RawBytes, sql.NullString) so no locator-like object is ever visible
// to callers (spec §4.1, §8 boundary behaviors).
func materializeLOBs(m map[string]interface{}) Row {
	out := make(Row, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case sql.RawBytes:
			cp := make([]byte, len(val))
			copy(cp, val)
			out[k] = cp
		case sql.NullString:
			if val.Valid {
				out[k] = val.String
			} else {
				out[k] = nil
			}
		default:
			out[k] = v
		}
	}
	return out
}

type oracleRowIterator struct {
	rows *sqlx.Rows
	cur  Row
	err  error
}

func (it *oracleRowIterator) Next(ctx context.Context) bool {
	if !it.rows.Next() {
		return false
	}
	m := make(map[string]interface{})
	if err := it.rows.MapScan(m); err != nil {
		it.err = fmt.Errorf("failed to scan streamed row: %w", err)
		return false
	}
	it.cur = materializeLOBs(m)
	return true
}

func (it *oracleRowIterator) Row() Row { return it.cur }
func (it *oracleRowIterator) Err() error {
	if it.err != nil {
		return it.err
	}
	return it.rows.Err()
}
func (it *oracleRowIterator) Close() error { return it.rows.Close() }
