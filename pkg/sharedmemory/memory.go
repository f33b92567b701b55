package sharedmemory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/oramigrate/oracle-to-mssql/pkg/review"
	"github.com/oramigrate/oracle-to-mssql/pkg/rootcause"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Memory is the process-wide SharedMemory store (spec §4.14, §3): created
// empty on first run, loaded from disk at startup, and persisted after
// every mutation so a killed run loses nothing already learned.
type Memory struct {
	mu     sync.Mutex
	path   string
	lock   *flock.Flock
	cache  *redis.Client
	logger *zap.Logger

	records []Record
}

// Load opens path, creating an empty store if it does not exist yet. cache
// may be nil; when set it is used as a read-through hot cache in front of
// RankedSolutions so repeated lookups for the same error signature during a
// single run don't re-scan the full record list.
func Load(path string, cache *redis.Client, logger *zap.Logger) (*Memory, error) {
	m := &Memory{
		path:   path,
		lock:   flock.New(path + ".lock"),
		cache:  cache,
		logger: logger,
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		m.records = []Record{}
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read shared memory file %s: %w", path, err)
	}
	if len(data) == 0 {
		m.records = []Record{}
		return m, nil
	}
	if err := json.Unmarshal(data, &m.records); err != nil {
		return nil, fmt.Errorf("failed to parse shared memory file %s: %w", path, err)
	}
	return m, nil
}

// persist serializes the full record list under an exclusive cross-process
// file lock, so concurrent migrator processes sharing a memory file never
// interleave writes.
func (m *Memory) persist() error {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	locked, err := m.lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("failed to acquire shared memory lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("timed out acquiring shared memory lock on %s", m.path)
	}
	defer m.lock.Unlock()

	data, err := json.MarshalIndent(m.records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal shared memory: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write shared memory file %s: %w", m.path, err)
	}
	return nil
}

func (m *Memory) logWarn(msg string, err error) {
	if m.logger != nil {
		m.logger.Warn(msg, zap.Error(err))
	}
}

// RegisterSchema records that schema has been discovered and migrated at
// least once.
func (m *Memory) RegisterSchema(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.Tag == TagSchema && r.SchemaName == name {
			return
		}
	}
	m.records = append(m.records, Record{Tag: TagSchema, SchemaName: name})
	if err := m.persist(); err != nil {
		m.logWarn("failed to persist schema registration", err)
	}
}

// RegisterIdentityColumn records table.column as the converted IDENTITY
// column for table, seeded with currentValue (the Oracle sequence's
// current value at conversion time), so subsequent runs recognize it
// without re-detecting it from the sequence/trigger pair and can still
// compute the correct IDENTITY(start, 1) seed (spec §4.4: start =
// current_value + 1).
func (m *Memory) RegisterIdentityColumn(table, column string, currentValue int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.Tag == TagIdentity && r.Table == table && r.Column == column {
			return
		}
	}
	m.records = append(m.records, Record{Tag: TagIdentity, Table: table, Column: column, CurrentValue: currentValue})
	if err := m.persist(); err != nil {
		m.logWarn("failed to persist identity column registration", err)
	}
}

// RecordErrorSolution associates fixSummary with errorSignature. An
// identical existing signature has its success count incremented instead
// of producing a duplicate entry, so repeated fixes for the same
// recurring error compound into a stronger ranking signal.
func (m *Memory) RecordErrorSolution(errorSignature, fixSummary string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		r := &m.records[i]
		if r.Tag == TagErrorSolution && r.ErrorSignature == errorSignature && r.FixSummary == fixSummary {
			r.SuccessCount++
			if err := m.persist(); err != nil {
				m.logWarn("failed to persist error solution increment", err)
			}
			m.invalidateCache(errorSignature)
			return
		}
	}
	m.records = append(m.records, Record{
		Tag:            TagErrorSolution,
		ErrorSignature: errorSignature,
		FixSummary:     fixSummary,
		SuccessCount:   1,
	})
	if err := m.persist(); err != nil {
		m.logWarn("failed to persist error solution", err)
	}
	m.invalidateCache(errorSignature)
}

// RecordSuccessfulPattern stores a source/target translation pair that
// passed review at quality so future translations of similar source text
// can be guided by what already worked.
func (m *Memory) RecordSuccessfulPattern(sourceSnippet, targetSnippet string, quality review.Quality) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, Record{
		Tag:           TagPattern,
		SourceSnippet: sourceSnippet,
		TargetSnippet: targetSnippet,
		Quality:       string(quality),
	})
	if err := m.persist(); err != nil {
		m.logWarn("failed to persist successful pattern", err)
	}
}

// RecordTableMapping records the Oracle fully-qualified name's
// corresponding SQL Server fully-qualified name, once known.
func (m *Memory) RecordTableMapping(oracleFQName, sqlserverFQName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.Tag == TagTableMapping && r.OracleFQName == oracleFQName {
			return
		}
	}
	m.records = append(m.records, Record{
		Tag:             TagTableMapping,
		OracleFQName:    oracleFQName,
		SQLServerFQName: sqlserverFQName,
	})
	if err := m.persist(); err != nil {
		m.logWarn("failed to persist table mapping", err)
	}
}

// IdentityColumn satisfies translate.IdentityLookup: it reports the column
// already registered as table's converted IDENTITY column, plus the
// Oracle sequence's current value at the time it was registered, if any.
// schema is accepted for interface compatibility but unused, since
// RegisterIdentityColumn itself is schema-unaware (a single run targets
// one schema).
func (m *Memory) IdentityColumn(schema, table string) (column string, currentValue int64, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.Tag == TagIdentity && r.Table == table {
			return r.Column, r.CurrentValue, true
		}
	}
	return "", 0, false
}

// KnownTableMapping reports the SQL Server fully qualified name already
// recorded for oracleFQName, if any, so the Dependency Manager can treat a
// previously mapped reference as satisfied without a live query.
func (m *Memory) KnownTableMapping(oracleFQName string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.Tag == TagTableMapping && r.OracleFQName == oracleFQName {
			return r.SQLServerFQName, true
		}
	}
	return "", false
}

// RankedSolutions satisfies rootcause.KnowledgeStore: it returns every
// stored error→solution record whose normalized signature is similar to
// errorSignature, ordered by similarity score then by success count, so
// frequently-confirmed fixes for near-identical errors surface first.
func (m *Memory) RankedSolutions(errorSignature string) []rootcause.RankedSolution {
	if cached, ok := m.lookupCache(errorSignature); ok {
		return cached
	}

	m.mu.Lock()
	type scored struct {
		sol   rootcause.RankedSolution
		score float64
	}
	var candidates []scored
	for _, r := range m.records {
		if r.Tag != TagErrorSolution {
			continue
		}
		score := similarityScore(errorSignature, r.ErrorSignature)
		if score < similarityThreshold {
			continue
		}
		candidates = append(candidates, scored{
			sol: rootcause.RankedSolution{
				ErrorSignature: r.ErrorSignature,
				FixSummary:     r.FixSummary,
				SuccessCount:   r.SuccessCount,
			},
			score: score,
		})
	}
	m.mu.Unlock()

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].sol.SuccessCount > candidates[j].sol.SuccessCount
	})

	out := make([]rootcause.RankedSolution, len(candidates))
	for i, c := range candidates {
		out[i] = c.sol
	}
	m.storeCache(errorSignature, out)
	return out
}
