package orchestrator

import (
	"context"
	"testing"

	"github.com/oramigrate/oracle-to-mssql/pkg/datacopy"
	"github.com/oramigrate/oracle-to-mssql/pkg/deploy"
	"github.com/oramigrate/oracle-to-mssql/pkg/dependency"
	"github.com/oramigrate/oracle-to-mssql/pkg/fkmanager"
	"github.com/oramigrate/oracle-to-mssql/pkg/model"
	"github.com/oramigrate/oracle-to-mssql/pkg/repair"
	"github.com/oramigrate/oracle-to-mssql/pkg/rootcause"
	"github.com/oramigrate/oracle-to-mssql/pkg/sequence"
	"github.com/oramigrate/oracle-to-mssql/pkg/sourcedb"
	"github.com/oramigrate/oracle-to-mssql/pkg/source"
	"github.com/oramigrate/oracle-to-mssql/pkg/targetdb"
	"github.com/oramigrate/oracle-to-mssql/pkg/translate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func containsFold(s, substr string) bool {
	return len(s) >= len(substr) && indexFold(s, substr) >= 0
}

func indexFold(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if equalFold(s[i:i+len(substr)], substr) {
			return i
		}
	}
	return -1
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// fakeTargetDriver deploys every DDL text to a fixed, per-object-name
// outcome, so tests can drive one object through a clean deploy and
// another through a persistent dependency failure.
type fakeTargetDriver struct {
	failing map[string]string // objectName -> error text, every attempt
}

func (f *fakeTargetDriver) Query(context.Context, string, ...interface{}) ([]targetdb.Row, error) {
	return nil, nil
}
func (f *fakeTargetDriver) Execute(context.Context, string) error { return nil }
func (f *fakeTargetDriver) ExecuteDDL(_ context.Context, sql string) ([]targetdb.BatchResult, error) {
	for name, errText := range f.failing {
		if containsFold(sql, name) {
			return []targetdb.BatchResult{{Batch: sql, Success: false, ErrText: errText}}, nil
		}
	}
	return []targetdb.BatchResult{{Batch: sql, Success: true}}, nil
}
func (f *fakeTargetDriver) BulkInsert(context.Context, string, []string, []targetdb.Row, []string) (int, error) {
	return 0, nil
}
func (f *fakeTargetDriver) GetColumns(context.Context, string) ([]targetdb.ColumnMeta, error) {
	return nil, nil
}
func (f *fakeTargetDriver) ObjectExists(context.Context, string, string, string) (bool, error) {
	return false, nil
}
func (f *fakeTargetDriver) Close() error { return nil }

// passthroughBackend is the translate.Backend every test wires in as the
// LLM fallback: it hands source text back unchanged so DDL shape stays
// predictable regardless of which table is in play.
type passthroughBackend struct{}

func (passthroughBackend) Translate(_ context.Context, sourceText, _ string, _ model.Kind, _ *translate.RepairContext) (string, error) {
	return sourceText, nil
}
func (passthroughBackend) Name() string { return "passthrough" }

type fakeKnowledgeStore struct {
	schemas          []string
	identityRegister map[string]string
}

func (f *fakeKnowledgeStore) RegisterSchema(name string) { f.schemas = append(f.schemas, name) }
func (f *fakeKnowledgeStore) RegisterIdentityColumn(table, column string, currentValue int64) {
	if f.identityRegister == nil {
		f.identityRegister = make(map[string]string)
	}
	f.identityRegister[table] = column
}

type fakeCopier struct {
	rows    map[string]int64
	gotOpts map[string]datacopy.Options
}

func (f *fakeCopier) Copy(_ context.Context, _, table string, opts datacopy.Options) (datacopy.Result, error) {
	if f.gotOpts == nil {
		f.gotOpts = make(map[string]datacopy.Options)
	}
	f.gotOpts[table] = opts
	return datacopy.Result{RowsCopied: f.rows[table]}, nil
}

func newTestPipeline(t *testing.T, srcDriver sourcedb.Driver, tgtDriver targetdb.Driver, copier dataCopier, deps *dependency.Manager) *Pipeline {
	t.Helper()
	logger := zap.NewNop()
	reader := source.New(srcDriver, "APPOWNER")
	fkMgr := fkmanager.New("dbo", logger)
	translator := translate.New(nil, passthroughBackend{}, fkMgr, nil, "", logger)
	deployer := deploy.New(tgtDriver, logger)
	controller := &repair.Controller{
		Translator:   translator,
		Deployer:     deployer,
		TargetDriver: tgtDriver,
		MaxAttempts:  2,
		Logger:       logger,
	}

	return &Pipeline{
		RunID:        "run-1",
		Schema:       "APPOWNER",
		Reader:       reader,
		Translator:   translator,
		Deployer:     deployer,
		Repair:       controller,
		FKManager:    fkMgr,
		Sequences:    sequence.New(),
		Copier:       copier,
		Dependencies: deps,
		Memory:       &fakeKnowledgeStore{},
		Target:       tgtDriver,
		PoolSize:     2,
		Logger:       logger,
	}
}

func TestDriveKind_DeploysCleanObjectAndRecordsIt(t *testing.T) {
	tgt := &fakeTargetDriver{failing: map[string]string{}}
	// driveObject fetches DDL via Reader.GetDDL, which issues a
	// DBMS_METADATA.GET_DDL query; the fake driver below answers it.
	p := newTestPipeline(t, &fakeDDLDriver{ddl: "CREATE TABLE DEPARTMENTS (ID NUMBER)"}, tgt, nil, nil)

	report := &Report{}
	p.driveKind(context.Background(), model.KindTable, []string{"DEPARTMENTS"}, report)

	assert.Equal(t, []string{"APPOWNER.DEPARTMENTS"}, report.Deployed)
	assert.Empty(t, report.Failed)
}

func TestDriveKind_FailedDependencyIsEnqueuedWithResolvedReference(t *testing.T) {
	tgt := &fakeTargetDriver{failing: map[string]string{
		"ORDERS": "Invalid object name 'dbo.CUSTOMERS'.",
	}}
	deps := dependency.New(alwaysMissingChecker{}, nil, 1, 1, zap.NewNop())
	p := newTestPipeline(t, &fakeDDLDriver{ddl: "CREATE TABLE ORDERS (ID NUMBER)"}, tgt, nil, deps)

	report := &Report{}
	p.driveKind(context.Background(), model.KindTable, []string{"ORDERS"}, report)

	pending := deps.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "APPOWNER.ORDERS", pending[0].Identity.FQName())
	assert.Equal(t, []string{"dbo.CUSTOMERS"}, pending[0].Dependencies)
	assert.Empty(t, report.Failed, "a FAILED_DEPENDENCY outcome is left for the dependency fixpoint phase, not recorded as Failed")
}

type alwaysMissingChecker struct{}

func (alwaysMissingChecker) Exists(context.Context, string) (bool, error) { return false, nil }

// fakeDDLDriver answers every GET_DDL query with the same canned text,
// letting tests focus on the repair/dependency flow rather than catalog
// shape.
type fakeDDLDriver struct{ ddl string }

func (f *fakeDDLDriver) Query(context.Context, string, ...interface{}) ([]sourcedb.Row, error) {
	return []sourcedb.Row{{"DDL": f.ddl}}, nil
}
func (f *fakeDDLDriver) Execute(context.Context, string) error { return nil }
func (f *fakeDDLDriver) StreamRows(context.Context, string) (sourcedb.RowIterator, error) {
	return nil, nil
}
func (f *fakeDDLDriver) GetColumns(context.Context, string) ([]sourcedb.Column, error) {
	return nil, nil
}
func (f *fakeDDLDriver) Close() error { return nil }

func TestUnresolvedReferences_SkipsReportsWhereTargetExists(t *testing.T) {
	outcome := repair.Outcome{Reports: []rootcause.Report{
		{Target: rootcause.TargetMetadata{ReferencedObject: "APPOWNER.DEPARTMENTS", Exists: true}},
	}}
	assert.Empty(t, unresolvedReferences(outcome))
}

func TestInferTriggerTable_ExtractsTableFromOnClause(t *testing.T) {
	ddl := "CREATE TRIGGER trg_emp_bi ON EMPLOYEES FOR EACH ROW BEGIN END;"
	assert.Equal(t, "EMPLOYEES", inferTriggerTable(ddl))
}

func TestInferTriggerTable_EmptyWhenNoOnClause(t *testing.T) {
	assert.Equal(t, "", inferTriggerTable("garbage"))
}

func TestPoolSizeOrDefault(t *testing.T) {
	assert.Equal(t, 1, poolSizeOrDefault(0))
	assert.Equal(t, 1, poolSizeOrDefault(-3))
	assert.Equal(t, 5, poolSizeOrDefault(5))
}

func TestDataCopierInterface_SatisfiedByFakeCopier(t *testing.T) {
	copier := &fakeCopier{rows: map[string]int64{"EMPLOYEES": 42}}
	result, err := copier.Copy(context.Background(), "APPOWNER", "EMPLOYEES", datacopy.Options{})
	require.NoError(t, err)
	assert.Equal(t, int64(42), result.RowsCopied)
}

func TestCopyTableData_ThreadsConfiguredBatchSizeAndTruncate(t *testing.T) {
	copier := &fakeCopier{rows: map[string]int64{"EMPLOYEES": 10}}
	p := &Pipeline{
		Schema:             "APPOWNER",
		Copier:             copier,
		BatchSize:          250,
		TruncateBeforeLoad: true,
		Logger:             zap.NewNop(),
	}
	sel := Selection{Tables: []string{"EMPLOYEES"}, IncludeData: map[string]bool{"EMPLOYEES": true}}

	report := &Report{}
	p.copyTableData(context.Background(), sel, report)

	require.Contains(t, copier.gotOpts, "EMPLOYEES")
	assert.Equal(t, datacopy.Options{BatchSize: 250, TruncateBeforeLoad: true}, copier.gotOpts["EMPLOYEES"])
	assert.Equal(t, int64(10), report.TotalRowsCopied)
}

func TestCopyTableData_SkipsTablesNotFlaggedForData(t *testing.T) {
	copier := &fakeCopier{rows: map[string]int64{"EMPLOYEES": 10}}
	p := &Pipeline{Schema: "APPOWNER", Copier: copier, Logger: zap.NewNop()}
	sel := Selection{Tables: []string{"EMPLOYEES"}, IncludeData: map[string]bool{}}

	report := &Report{}
	p.copyTableData(context.Background(), sel, report)

	assert.NotContains(t, copier.gotOpts, "EMPLOYEES")
	assert.Zero(t, report.TotalRowsCopied)
}

func TestFilterStrippedTriggers_RemovesSimplePKTriggers(t *testing.T) {
	p := &Pipeline{Sequences: sequence.New(), Schema: "APPOWNER", Logger: zap.NewNop()}
	p.Sequences.Register("APPOWNER", "EMP_SEQ", 100)
	p.Sequences.ScanBody("APPOWNER", "APPOWNER.TRG_EMP_BI", "TRIGGER", "EMPLOYEES",
		"BEFORE INSERT ON employees FOR EACH ROW\nBEGIN\n  :NEW.ID := EMP_SEQ.NEXTVAL;\nEND;")

	remaining := p.filterStrippedTriggers([]string{"TRG_EMP_BI", "TRG_OTHER"})

	assert.NotContains(t, remaining, "TRG_EMP_BI")
	assert.Contains(t, remaining, "TRG_OTHER")
}
