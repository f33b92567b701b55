package source

import (
	"context"
	"testing"

	"github.com/oramigrate/oracle-to-mssql/pkg/sourcedb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDriver struct {
	responses map[string][]sourcedb.Row
}

func (d *fakeDriver) Query(ctx context.Context, sql string, params ...interface{}) ([]sourcedb.Row, error) {
	for prefix, rows := range d.responses {
		if len(sql) >= len(prefix) && sql[:len(prefix)] == prefix {
			return rows, nil
		}
	}
	return nil, nil
}
func (d *fakeDriver) Execute(ctx context.Context, sql string) error { return nil }
func (d *fakeDriver) StreamRows(ctx context.Context, table string) (sourcedb.RowIterator, error) {
	return nil, nil
}
func (d *fakeDriver) GetColumns(ctx context.Context, table string) ([]sourcedb.Column, error) {
	return nil, nil
}
func (d *fakeDriver) Close() error { return nil }

func TestListSequences_FiltersSystemSequences(t *testing.T) {
	driver := &fakeDriver{responses: map[string][]sourcedb.Row{
		"SELECT sequence_name": {
			{"SEQUENCE_NAME": "EMP_SEQ", "LAST_NUMBER": int64(100)},
			{"SEQUENCE_NAME": "ISEQ$$_12345", "LAST_NUMBER": int64(1)},
		},
	}}
	r := New(driver, "HR")

	seqs, err := r.ListSequences(context.Background())
	require.NoError(t, err)
	require.Len(t, seqs, 1)
	assert.Equal(t, "EMP_SEQ", seqs[0].Name)
}

func TestListTables_CapturesRowCountAndByteSize(t *testing.T) {
	driver := &fakeDriver{responses: map[string][]sourcedb.Row{
		"SELECT t.table_name": {
			{"TABLE_NAME": "EMPLOYEES", "NUM_ROWS": int64(42), "BYTES": int64(65536)},
		},
	}}
	r := New(driver, "HR")

	tables, err := r.ListTables(context.Background())
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "EMPLOYEES", tables[0].Name)
	assert.Equal(t, int64(42), tables[0].RowCount)
	assert.Equal(t, int64(65536), tables[0].ByteSize)
}

func TestGetPackageText_ConcatenatesSpecAndBodyInLineOrder(t *testing.T) {
	driver := &fakeDriver{responses: map[string][]sourcedb.Row{
		"SELECT text FROM all_source WHERE owner = :1 AND name = :2 AND type = :3 ORDER BY line": {
			{"TEXT": "PACKAGE pkg IS\n"},
			{"TEXT": "END;\n"},
		},
	}}
	r := New(driver, "HR")

	pkg, err := r.GetPackageText(context.Background(), "PKG")
	require.NoError(t, err)
	assert.Contains(t, pkg.Spec, "PACKAGE pkg IS")
	assert.Contains(t, pkg.Body, "PACKAGE pkg IS")
}

func TestListObjects_MarksValidityFromStatus(t *testing.T) {
	driver := &fakeDriver{responses: map[string][]sourcedb.Row{
		"SELECT object_name": {
			{"OBJECT_NAME": "CALC_BONUS", "STATUS": "VALID"},
			{"OBJECT_NAME": "BROKEN_PROC", "STATUS": "INVALID"},
		},
	}}
	r := New(driver, "HR")

	procs, err := r.ListProcedures(context.Background())
	require.NoError(t, err)
	require.Len(t, procs, 2)
	assert.True(t, procs[0].Valid)
	assert.False(t, procs[1].Valid)
}
