package targetdb

import (
	"context"
	"fmt"
	"strings"

	_ "github.com/denisenkom/go-mssqldb"
	"github.com/jmoiron/sqlx"
)

// Config is the validated SQL Server connection configuration.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	Trusted  bool
}

// DSN builds the go-mssqldb connection string, using Windows-integrated
// auth when Trusted is set (matching sqldef's adapter/mssql conventions).
func (c Config) DSN() string {
	if c.Trusted {
		return fmt.Sprintf("sqlserver://%s:%d?database=%s&trusted_connection=yes", c.Host, c.Port, c.Database)
	}
	return fmt.Sprintf("sqlserver://%s:%s@%s:%d?database=%s", c.User, c.Password, c.Host, c.Port, c.Database)
}

type mssqlDriver struct {
	db *sqlx.DB
}

// NewMSSQLDriver opens a pooled connection to the target.
func NewMSSQLDriver(ctx context.Context, cfg Config) (Driver, error) {
	db, err := sqlx.ConnectContext(ctx, "sqlserver", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to sql server: %w", err)
	}
	return &mssqlDriver{db: db}, nil
}

func (d *mssqlDriver) Query(ctx context.Context, query string, params ...interface{}) ([]Row, error) {
	rows, err := d.db.QueryxContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sql server: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		m := make(map[string]interface{})
		if err := rows.MapScan(m); err != nil {
			return nil, fmt.Errorf("failed to scan sql server row: %w", err)
		}
		out = append(out, Row(m))
	}
	return out, rows.Err()
}

func (d *mssqlDriver) Execute(ctx context.Context, query string) error {
	if _, err := d.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to execute on sql server: %w", err)
	}
	return nil
}

// ExecuteDDL splits on standalone GO lines and submits each batch
// independently, auto-committed (§4.9, §5 transaction discipline). One
// batch's failure does not abort the rest; each result is reported.
func (d *mssqlDriver) ExecuteDDL(ctx context.Context, multiBatchSQL string) ([]BatchResult, error) {
	batches := SplitBatches(multiBatchSQL)
	results := make([]BatchResult, 0, len(batches))
	for _, batch := range batches {
		if ContainsStandaloneGo(batch) {
			// Programming error: a GO survived splitting. Report it
			// distinctly rather than submitting it (§8).
			results = append(results, BatchResult{Batch: batch, Success: false, ErrText: "GO_BATCH_SYNTAX: standalone GO present in submitted batch"})
			continue
		}
		if _, err := d.db.ExecContext(ctx, batch); err != nil {
			results = append(results, BatchResult{Batch: batch, Success: false, ErrText: err.Error()})
			continue
		}
		results = append(results, BatchResult{Batch: batch, Success: true})
	}
	return results, nil
}

// BulkInsert toggles SET IDENTITY_INSERT around the insert when
// identityColumns is non-empty, and disables it on every exit path
// including panics/errors (§4.13, §6, §8). Row counts come from
// @@ROWCOUNT, never the driver's reported rows-affected (which may be -1).
func (d *mssqlDriver) BulkInsert(ctx context.Context, table string, columns []string, rows []Row, identityColumns []string) (int, error) {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin bulk insert transaction for %s: %w", table, err)
	}

	useIdentityInsert := len(identityColumns) > 0
	if useIdentityInsert {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET IDENTITY_INSERT %s ON", table)); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("failed to enable identity_insert on %s: %w", table, err)
		}
		defer func() {
			if r := recover(); r != nil {
				_, _ = tx.ExecContext(ctx, fmt.Sprintf("SET IDENTITY_INSERT %s OFF", table))
				_ = tx.Rollback()
				panic(r)
			}
		}()
	}

	total := 0
	insertErr := func() error {
		placeholder := make([]string, len(columns))
		for i := range columns {
			placeholder[i] = fmt.Sprintf("@p%d", i+1)
		}
		stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), strings.Join(placeholder, ", "))

		for _, row := range rows {
			args := make([]interface{}, len(columns))
			for i, c := range columns {
				args[i] = row[c]
			}
			if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
				return fmt.Errorf("failed to insert row into %s: %w", table, err)
			}
			var rowCount int
			if err := tx.QueryRowContext(ctx, "SELECT @@ROWCOUNT").Scan(&rowCount); err != nil {
				return fmt.Errorf("failed to read @@ROWCOUNT after insert into %s: %w", table, err)
			}
			total += rowCount
		}
		return nil
	}()

	if useIdentityInsert {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET IDENTITY_INSERT %s OFF", table)); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("failed to disable identity_insert on %s: %w", table, err)
		}
	}

	if insertErr != nil {
		tx.Rollback()
		return 0, insertErr
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit bulk insert for %s: %w", table, err)
	}
	return total, nil
}

// GetColumns reports column metadata including IDENTITY property, using
// COLUMNPROPERTY(...,'IsIdentity') the way sqldef's mssql adapter does.
func (d *mssqlDriver) GetColumns(ctx context.Context, table string) ([]ColumnMeta, error) {
	const q = `
		SELECT c.name,
		       t.name AS data_type,
		       COLUMNPROPERTY(c.object_id, c.name, 'IsIdentity') AS is_identity,
		       c.is_nullable
		FROM sys.columns c
		JOIN sys.types t ON c.user_type_id = t.user_type_id
		WHERE c.object_id = OBJECT_ID(@p1)
		ORDER BY c.column_id`
	rows, err := d.db.QueryContext(ctx, q, table)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns for %s: %w", table, err)
	}
	defer rows.Close()

	var cols []ColumnMeta
	for rows.Next() {
		var name, dataType string
		var isIdentity int
		var nullable bool
		if err := rows.Scan(&name, &dataType, &isIdentity, &nullable); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata for %s: %w", table, err)
		}
		cols = append(cols, ColumnMeta{Name: name, DataType: dataType, IsIdentity: isIdentity == 1, Nullable: nullable})
	}
	return cols, rows.Err()
}

func (d *mssqlDriver) ObjectExists(ctx context.Context, schema, name, kind string) (bool, error) {
	var count int
	fq := schema + "." + name
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sys.objects WHERE object_id = OBJECT_ID(@p1)", fq).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check existence of %s: %w", fq, err)
	}
	return count > 0, nil
}

func (d *mssqlDriver) Close() error {
	return d.db.Close()
}
