package discovery

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/oramigrate/oracle-to-mssql/pkg/source"
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

func TestDiscover_GroupsObjectsByKindAndBuildsMigratableObjects(t *testing.T) {
	driver := &fakeDriver{responses: map[string][]sourcedb.Row{
		"SELECT t.table_name": {
			{"TABLE_NAME": "EMPLOYEES", "NUM_ROWS": int64(10), "BYTES": int64(1024)},
		},
		"SELECT sequence_name": {
			{"SEQUENCE_NAME": "EMP_SEQ"},
		},
	}}
	reader := source.New(driver, "HR")

	doc, objects, err := Discover(context.Background(), reader)
	require.NoError(t, err)
	require.Len(t, doc.Tables, 1)
	assert.Equal(t, "EMPLOYEES", doc.Tables[0].Name)
	require.Len(t, doc.Sequences, 1)
	assert.Equal(t, "EMP_SEQ", doc.Sequences[0].Name)
	assert.Len(t, objects, 2)
}

func TestWriteArtifact_ProducesValidJSON(t *testing.T) {
	doc := Document{Tables: []Entry{{Schema: "HR", Name: "EMPLOYEES", Kind: "TABLE", Valid: true}}}
	path := filepath.Join(t.TempDir(), "discovery_result.json")

	require.NoError(t, WriteArtifact(doc, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var reloaded Document
	require.NoError(t, json.Unmarshal(data, &reloaded))
	assert.Equal(t, doc, reloaded)
}
