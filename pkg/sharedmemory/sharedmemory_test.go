package sharedmemory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/oramigrate/oracle-to-mssql/pkg/review"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func tempMemory(t *testing.T) *Memory {
	t.Helper()
	dir := t.TempDir()
	m, err := Load(filepath.Join(dir, "memory.json"), nil, zap.NewNop())
	require.NoError(t, err)
	return m
}

func TestLoad_CreatesEmptyStoreWhenFileAbsent(t *testing.T) {
	m := tempMemory(t)
	assert.Empty(t, m.records)
	assert.Empty(t, m.RankedSolutions("anything"))
}

func TestLoad_RoundTripsPersistedRecords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "memory.json")

	m, err := Load(path, nil, zap.NewNop())
	require.NoError(t, err)
	m.RegisterSchema("HR")
	m.RegisterIdentityColumn("EMPLOYEES", "EMP_ID", 100)
	m.RecordTableMapping("HR.EMPLOYEES", "dbo.EMPLOYEES")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"schema"`)
	assert.Contains(t, string(data), `"HR"`)

	reloaded, err := Load(path, nil, zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, reloaded.records, 3)
}

func TestRecordErrorSolution_IncrementsSuccessCountOnIdenticalMatch(t *testing.T) {
	m := tempMemory(t)
	m.RecordErrorSolution("Incorrect syntax near 'MINUS'.", "rewrite as EXCEPT")
	m.RecordErrorSolution("Incorrect syntax near 'MINUS'.", "rewrite as EXCEPT")
	m.RecordErrorSolution("Incorrect syntax near 'MINUS'.", "rewrite as EXCEPT")

	var matches int
	for _, r := range m.records {
		if r.Tag == TagErrorSolution {
			matches++
			assert.Equal(t, 3, r.SuccessCount)
		}
	}
	assert.Equal(t, 1, matches, "identical signature+fix should not duplicate")
}

func TestRecordErrorSolution_DistinctFixesForSameSignatureDoNotMerge(t *testing.T) {
	m := tempMemory(t)
	m.RecordErrorSolution("Incorrect syntax near 'MINUS'.", "rewrite as EXCEPT")
	m.RecordErrorSolution("Incorrect syntax near 'MINUS'.", "rewrite manually")

	var count int
	for _, r := range m.records {
		if r.Tag == TagErrorSolution {
			count++
		}
	}
	assert.Equal(t, 2, count)
}

func TestRankedSolutions_OrdersBySimilarityThenSuccessCount(t *testing.T) {
	m := tempMemory(t)
	m.RecordErrorSolution("Incorrect syntax near 'MINUS' in view V_ACTIVE.", "rewrite as EXCEPT")
	m.RecordErrorSolution("Incorrect syntax near 'MINUS' in view V_ACTIVE.", "rewrite as EXCEPT")
	m.RecordErrorSolution("Invalid object name 'dbo.DEPARTMENTS'.", "create dependency first")

	ranked := m.RankedSolutions("Incorrect syntax near 'MINUS' in view V_INACTIVE.")
	require.NotEmpty(t, ranked)
	assert.Equal(t, "rewrite as EXCEPT", ranked[0].FixSummary)
	assert.Equal(t, 2, ranked[0].SuccessCount)
}

func TestRankedSolutions_UnrelatedSignatureNotReturned(t *testing.T) {
	m := tempMemory(t)
	m.RecordErrorSolution("Incorrect syntax near 'MINUS'.", "rewrite as EXCEPT")

	ranked := m.RankedSolutions("Could not find the procedure 'dbo.CALC_BONUS'.")
	assert.Empty(t, ranked)
}

func TestRecordSuccessfulPattern_StoresSnippetsAndQuality(t *testing.T) {
	m := tempMemory(t)
	m.RecordSuccessfulPattern("SELECT SYSDATE FROM DUAL", "SELECT GETDATE()", review.QualityExcellent)

	require.Len(t, m.records, 1)
	assert.Equal(t, TagPattern, m.records[0].Tag)
	assert.Equal(t, string(review.QualityExcellent), m.records[0].Quality)
}

func TestRecordTableMapping_IsIdempotentForSameOracleName(t *testing.T) {
	m := tempMemory(t)
	m.RecordTableMapping("HR.EMPLOYEES", "dbo.EMPLOYEES")
	m.RecordTableMapping("HR.EMPLOYEES", "dbo.EMPLOYEES_RENAMED")

	var count int
	for _, r := range m.records {
		if r.Tag == TagTableMapping {
			count++
			assert.Equal(t, "dbo.EMPLOYEES", r.SQLServerFQName)
		}
	}
	assert.Equal(t, 1, count)
}

func TestIdentityColumn_ReportsRegisteredColumn(t *testing.T) {
	m := tempMemory(t)
	m.RegisterIdentityColumn("EMPLOYEES", "EMP_ID", 107)

	column, currentValue, ok := m.IdentityColumn("HR", "EMPLOYEES")
	assert.True(t, ok)
	assert.Equal(t, "EMP_ID", column)
	assert.Equal(t, int64(107), currentValue)
}

func TestIdentityColumn_UnknownTableReportsNotFound(t *testing.T) {
	m := tempMemory(t)

	_, _, ok := m.IdentityColumn("HR", "DEPARTMENTS")
	assert.False(t, ok)
}

func TestKnownTableMapping_ReportsRecordedMapping(t *testing.T) {
	m := tempMemory(t)
	m.RecordTableMapping("HR.EMPLOYEES", "dbo.EMPLOYEES")

	mapped, ok := m.KnownTableMapping("HR.EMPLOYEES")
	assert.True(t, ok)
	assert.Equal(t, "dbo.EMPLOYEES", mapped)

	_, ok = m.KnownTableMapping("HR.DEPARTMENTS")
	assert.False(t, ok)
}

func TestMemory_RedisBackedCacheServesRepeatedLookups(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})

	dir := t.TempDir()
	m, err := Load(filepath.Join(dir, "memory.json"), client, zap.NewNop())
	require.NoError(t, err)

	m.RecordErrorSolution("Incorrect syntax near 'MINUS'.", "rewrite as EXCEPT")

	first := m.RankedSolutions("Incorrect syntax near 'MINUS'.")
	require.Len(t, first, 1)

	// Drop the in-memory records directly (bypassing the API) to prove the
	// second lookup is served from the cache, not a re-scan.
	m.records = nil
	second := m.RankedSolutions("Incorrect syntax near 'MINUS'.")
	assert.Equal(t, first, second)
}

func TestMemory_RedisCacheInvalidatedOnNewSolution(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})

	dir := t.TempDir()
	m, err := Load(filepath.Join(dir, "memory.json"), client, zap.NewNop())
	require.NoError(t, err)

	m.RecordErrorSolution("Incorrect syntax near 'MINUS'.", "rewrite as EXCEPT")
	first := m.RankedSolutions("Incorrect syntax near 'MINUS'.")
	require.Len(t, first, 1)
	assert.Equal(t, 1, first[0].SuccessCount)

	m.RecordErrorSolution("Incorrect syntax near 'MINUS'.", "rewrite as EXCEPT")
	second := m.RankedSolutions("Incorrect syntax near 'MINUS'.")
	require.Len(t, second, 1)
	assert.Equal(t, 2, second[0].SuccessCount)
}

func TestSimilarityScore_IdenticalNormalizedSignaturesScoreHighest(t *testing.T) {
	a := "Invalid object name 'dbo.DEPARTMENTS123'."
	b := "Invalid object name 'dbo.DEPARTMENTS456'."
	assert.Equal(t, 1.0, similarityScore(a, b))
}

func TestLongestCommonSubstring_FindsSharedRun(t *testing.T) {
	assert.Equal(t, 4, longestCommonSubstring("abcdefg", "xxcdefz"))
	assert.Equal(t, 0, longestCommonSubstring("abc", ""))
}
