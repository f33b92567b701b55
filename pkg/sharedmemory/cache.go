package sharedmemory

import (
	"context"
	"encoding/json"
	"time"

	"github.com/oramigrate/oracle-to-mssql/pkg/rootcause"
)

const cacheTTL = 10 * time.Minute

func cacheKey(errorSignature string) string {
	return "sharedmemory:ranked:" + normalize(errorSignature)
}

// lookupCache returns a cached RankedSolutions result for errorSignature
// when a redis client is configured and holds one, so a Root-Cause
// Analyzer retry loop hammering the same error during one run doesn't
// re-score the full record list each time.
func (m *Memory) lookupCache(errorSignature string) ([]rootcause.RankedSolution, bool) {
	if m.cache == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	raw, err := m.cache.Get(ctx, cacheKey(errorSignature)).Bytes()
	if err != nil {
		return nil, false
	}
	var out []rootcause.RankedSolution
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false
	}
	return out, true
}

func (m *Memory) storeCache(errorSignature string, solutions []rootcause.RankedSolution) {
	if m.cache == nil {
		return
	}
	data, err := json.Marshal(solutions)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	m.cache.Set(ctx, cacheKey(errorSignature), data, cacheTTL)
}

// invalidateCache drops any cached ranking for errorSignature after a new
// or updated solution is recorded for it, so the next lookup re-scores
// against current data instead of serving a stale rank.
func (m *Memory) invalidateCache(errorSignature string) {
	if m.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	m.cache.Del(ctx, cacheKey(errorSignature))
}
