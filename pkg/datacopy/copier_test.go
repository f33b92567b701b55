package datacopy

import (
	"context"
	"testing"

	"github.com/oramigrate/oracle-to-mssql/pkg/sourcedb"
	"github.com/oramigrate/oracle-to-mssql/pkg/targetdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeIterator struct {
	rows []sourcedb.Row
	idx  int
}

func (it *fakeIterator) Next(ctx context.Context) bool {
	if it.idx >= len(it.rows) {
		return false
	}
	it.idx++
	return true
}
func (it *fakeIterator) Row() sourcedb.Row { return it.rows[it.idx-1] }
func (it *fakeIterator) Err() error        { return nil }
func (it *fakeIterator) Close() error      { return nil }

type fakeSource struct {
	rows []sourcedb.Row
}

func (s *fakeSource) Query(ctx context.Context, sql string, params ...interface{}) ([]sourcedb.Row, error) {
	return nil, nil
}
func (s *fakeSource) Execute(ctx context.Context, sql string) error { return nil }
func (s *fakeSource) StreamRows(ctx context.Context, table string) (sourcedb.RowIterator, error) {
	return &fakeIterator{rows: s.rows}, nil
}
func (s *fakeSource) GetColumns(ctx context.Context, table string) ([]sourcedb.Column, error) {
	return nil, nil
}
func (s *fakeSource) Close() error { return nil }

type fakeTarget struct {
	columns      []targetdb.ColumnMeta
	executed     []string
	insertedRows int
	insertCalls  int
}

func (t *fakeTarget) Query(ctx context.Context, sql string, params ...interface{}) ([]targetdb.Row, error) {
	return nil, nil
}
func (t *fakeTarget) Execute(ctx context.Context, sql string) error {
	t.executed = append(t.executed, sql)
	return nil
}
func (t *fakeTarget) ExecuteDDL(ctx context.Context, multiBatchSQL string) ([]targetdb.BatchResult, error) {
	return nil, nil
}
func (t *fakeTarget) BulkInsert(ctx context.Context, table string, columns []string, rows []targetdb.Row, identityColumns []string) (int, error) {
	t.insertCalls++
	t.insertedRows += len(rows)
	return len(rows), nil
}
func (t *fakeTarget) GetColumns(ctx context.Context, table string) ([]targetdb.ColumnMeta, error) {
	return t.columns, nil
}
func (t *fakeTarget) ObjectExists(ctx context.Context, schema, name, kind string) (bool, error) {
	return true, nil
}
func (t *fakeTarget) Close() error { return nil }

func rows(n int) []sourcedb.Row {
	out := make([]sourcedb.Row, n)
	for i := range out {
		out[i] = sourcedb.Row{"id": i, "name": "row"}
	}
	return out
}

func TestCopy_BatchesAccordingToBatchSize(t *testing.T) {
	source := &fakeSource{rows: rows(250)}
	target := &fakeTarget{columns: []targetdb.ColumnMeta{{Name: "id"}, {Name: "name"}}}
	c := &Copier{Source: source, Target: target, Logger: zap.NewNop()}

	result, err := c.Copy(context.Background(), "dbo", "STG_DOCS", Options{BatchSize: 100})
	require.NoError(t, err)
	assert.Equal(t, int64(250), result.RowsCopied)
	assert.Equal(t, 3, target.insertCalls) // 100 + 100 + 50
	assert.False(t, result.IdentityWrapped)
}

func TestCopy_WrapsIdentityInsertAndReseeds(t *testing.T) {
	source := &fakeSource{rows: rows(5)}
	target := &fakeTarget{columns: []targetdb.ColumnMeta{{Name: "id", IsIdentity: true}, {Name: "body"}}}
	c := &Copier{Source: source, Target: target, Logger: zap.NewNop()}

	result, err := c.Copy(context.Background(), "dbo", "STG_DOCS", Options{})
	require.NoError(t, err)
	assert.Equal(t, int64(5), result.RowsCopied)
	assert.True(t, result.IdentityWrapped)
	require.Len(t, target.executed, 3)
	assert.Contains(t, target.executed[0], "IDENTITY_INSERT dbo.STG_DOCS ON")
	assert.Contains(t, target.executed[1], "IDENTITY_INSERT dbo.STG_DOCS OFF")
	assert.Contains(t, target.executed[2], "RESEED")
}

func TestCopy_DisablesIdentityInsertWithoutReseedOnEmptyCopy(t *testing.T) {
	source := &fakeSource{rows: rows(0)}
	target := &fakeTarget{columns: []targetdb.ColumnMeta{{Name: "id", IsIdentity: true}}}
	c := &Copier{Source: source, Target: target, Logger: zap.NewNop()}

	_, err := c.Copy(context.Background(), "dbo", "EMPTY", Options{})
	require.NoError(t, err)
	// Even with zero rows (no flush happens), ON then OFF must both fire;
	// no RESEED execute call beyond those two would indicate the reseed
	// step ran even though nothing was copied.
	require.Len(t, target.executed, 2)
	assert.Contains(t, target.executed[1], "IDENTITY_INSERT dbo.EMPTY OFF")
}

func TestCopy_TruncateBeforeLoad(t *testing.T) {
	source := &fakeSource{rows: rows(1)}
	target := &fakeTarget{columns: []targetdb.ColumnMeta{{Name: "id"}}}
	c := &Copier{Source: source, Target: target, Logger: zap.NewNop()}

	_, err := c.Copy(context.Background(), "dbo", "T", Options{TruncateBeforeLoad: true})
	require.NoError(t, err)
	require.NotEmpty(t, target.executed)
	assert.Contains(t, target.executed[0], "TRUNCATE TABLE dbo.T")
}

func TestClampBatchSize_RespectsRecognizedRange(t *testing.T) {
	assert.Equal(t, 1000, clampBatchSize(0))
	assert.Equal(t, 100, clampBatchSize(10))
	assert.Equal(t, 10000, clampBatchSize(50000))
	assert.Equal(t, 500, clampBatchSize(500))
}
