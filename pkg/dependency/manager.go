// Package dependency implements the Dependency Manager (spec §4.12): it
// holds objects that failed deployment with a dependency-category error
// and retries them in bounded cycles as their unresolved references
// become satisfied.
package dependency

import (
	"context"

	"github.com/oramigrate/oracle-to-mssql/pkg/model"
	"github.com/oramigrate/oracle-to-mssql/pkg/shared/logging"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ExistenceChecker answers whether a fully qualified name now exists in
// the target, consulting both SharedMemory (known-good schemas, table
// mappings) and a live query, per §4.12 ("present in the target, according
// to SharedMemory + live query").
type ExistenceChecker interface {
	Exists(ctx context.Context, fqName string) (bool, error)
}

// Redeployer re-attempts deployment of one object once its references are
// satisfied and reports whether this pass deployed it.
type Redeployer interface {
	Redeploy(ctx context.Context, obj *model.MigratableObject) (deployed bool)
}

// pending is one queued object awaiting unresolved references.
type pending struct {
	object         *model.MigratableObject
	unresolvedRefs []string
}

// Manager queues dependency-blocked objects and drives bounded retry
// cycles over them.
type Manager struct {
	checker    ExistenceChecker
	redeployer Redeployer
	maxCycles  int
	poolSize   int
	logger     *zap.Logger
	queue      []pending
	lastCycles int
}

// New constructs a Dependency Manager. poolSize bounds how many queued
// objects are existence-checked concurrently within a single cycle (spec
// §5's small worker pool); the redeploys that follow run one at a time.
// 0 or negative defaults to 1.
func New(checker ExistenceChecker, redeployer Redeployer, maxCycles, poolSize int, logger *zap.Logger) *Manager {
	if poolSize <= 0 {
		poolSize = 1
	}
	return &Manager{checker: checker, redeployer: redeployer, maxCycles: maxCycles, poolSize: poolSize, logger: logger}
}

// Enqueue registers obj as blocked on unresolvedRefs (fully qualified
// schema.name references it could not find at deploy time).
func (m *Manager) Enqueue(obj *model.MigratableObject, unresolvedRefs []string) {
	m.queue = append(m.queue, pending{object: obj, unresolvedRefs: unresolvedRefs})
}

// Pending returns the objects still queued (used by the Orchestrator's
// final report to list what never resolved).
func (m *Manager) Pending() []*model.MigratableObject {
	objs := make([]*model.MigratableObject, 0, len(m.queue))
	for _, p := range m.queue {
		objs = append(objs, p.object)
	}
	return objs
}

// RunCycles drives up to maxCycles retry passes. Each pass: for every
// still-queued object, check whether all its unresolved references are
// now satisfied; if so, redeploy it, and remove it from the queue
// regardless of outcome (a redeploy failure here is final for this run —
// the object already exhausted repair attempts before being queued here).
// The loop stops early once the queue is empty (fixpoint) or no object
// made progress in a pass (would spin without result).
func (m *Manager) RunCycles(ctx context.Context) {
	cycle := 0
	for ; cycle < m.maxCycles && len(m.queue) > 0; cycle++ {
		resolved := m.runOnePass(ctx)
		m.logger.Debug("dependency cycle complete",
			logging.NewFields().Component("dependency").Operation("run_cycle").
				Set("cycle", cycle).Set("resolved", resolved).Set("remaining", len(m.queue)).KV()...)
		if resolved == 0 {
			cycle++
			break
		}
	}
	m.lastCycles = cycle
}

// CyclesRun reports how many retry passes the most recent RunCycles call
// executed, for the Orchestrator's DependencyCycles metric.
func (m *Manager) CyclesRun() int {
	return m.lastCycles
}

func (m *Manager) runOnePass(ctx context.Context) int {
	type verdict struct {
		index int
		ready bool
	}
	verdicts := make([]verdict, len(m.queue))

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, m.poolSize)
	for i, p := range m.queue {
		i, p := i, p
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()
			ready := m.allResolved(gctx, p.unresolvedRefs)
			verdicts[i] = verdict{index: i, ready: ready}
			return nil
		})
	}
	_ = g.Wait()

	var remaining []pending
	resolved := 0
	for i, p := range m.queue {
		if verdicts[i].ready {
			resolved++
			if m.redeployer != nil {
				m.redeployer.Redeploy(ctx, p.object)
			}
			continue
		}
		remaining = append(remaining, p)
	}
	m.queue = remaining
	return resolved
}

func (m *Manager) allResolved(ctx context.Context, refs []string) bool {
	if m.checker == nil {
		return false
	}
	for _, ref := range refs {
		exists, err := m.checker.Exists(ctx, ref)
		if err != nil || !exists {
			return false
		}
	}
	return true
}
