// Package orchestrator implements the Orchestrator (spec §4.15): the
// top-level scheduler that composes every other component (C1-C13) into
// the 8-phase run described there, publishing progress events as it goes.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/oramigrate/oracle-to-mssql/pkg/datacopy"
	"github.com/oramigrate/oracle-to-mssql/pkg/decompose"
	"github.com/oramigrate/oracle-to-mssql/pkg/deploy"
	"github.com/oramigrate/oracle-to-mssql/pkg/dependency"
	"github.com/oramigrate/oracle-to-mssql/pkg/fkmanager"
	"github.com/oramigrate/oracle-to-mssql/pkg/metrics"
	"github.com/oramigrate/oracle-to-mssql/pkg/model"
	"github.com/oramigrate/oracle-to-mssql/pkg/progress"
	"github.com/oramigrate/oracle-to-mssql/pkg/repair"
	"github.com/oramigrate/oracle-to-mssql/pkg/review"
	"github.com/oramigrate/oracle-to-mssql/pkg/sequence"
	"github.com/oramigrate/oracle-to-mssql/pkg/shared/logging"
	"github.com/oramigrate/oracle-to-mssql/pkg/source"
	"github.com/oramigrate/oracle-to-mssql/pkg/targetdb"
	"github.com/oramigrate/oracle-to-mssql/pkg/translate"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Selection is the user's chosen scope for a run (spec §4.15): which
// objects of each kind to migrate, and which tables also carry data.
type Selection struct {
	Tables      []string
	Views       []string
	Sequences   []string
	Procedures  []string
	Functions   []string
	Triggers    []string
	Packages    []string
	IncludeData map[string]bool
}

// knowledgeStore is the narrow slice of sharedmemory.Memory the
// Orchestrator itself touches directly (schema/identity registration);
// the rest flows through the Translator/Repair Controller/Root-Cause
// Analyzer's own narrower interfaces.
type knowledgeStore interface {
	RegisterSchema(name string)
	RegisterIdentityColumn(table, column string, currentValue int64)
}

// Pipeline wires every component together for one run.
type Pipeline struct {
	RunID  string
	Schema string

	Reader       *source.Reader
	Translator   *translate.Translator
	Deployer     *deploy.Deployer
	Repair       *repair.Controller
	FKManager    *fkmanager.Manager
	Sequences    *sequence.Analyzer
	Copier       dataCopier
	Dependencies *dependency.Manager
	Memory       knowledgeStore
	Publisher    *progress.Publisher
	Metrics      *metrics.Registry
	Target       targetdb.Driver

	PoolSize           int
	BatchSize          int
	TruncateBeforeLoad bool
	FKScriptPath       string
	SequencePlanPath   string
	OutputDir          string

	Logger *zap.Logger
}

// dataCopier is the narrow slice of *datacopy.Copier the Orchestrator
// drives, kept as an interface so tests can stub the data-copy phase.
type dataCopier interface {
	Copy(ctx context.Context, schema, table string, opts datacopy.Options) (datacopy.Result, error)
}

// Report is the Orchestrator's final output (spec §4.15 step 8).
type Report struct {
	RunID            string
	Deployed         []string
	Failed           []string
	Skipped          []string
	StillPendingDeps []string
	FKResults        []fkmanager.FKResult
	TotalRowsCopied  int64
	Duration         time.Duration
}

// Run drives the 8-phase pipeline to completion for sel.
func (p *Pipeline) Run(ctx context.Context, sel Selection) (*Report, error) {
	started := time.Now()
	report := &Report{RunID: p.RunID}

	if p.Memory != nil {
		p.Memory.RegisterSchema(p.Schema)
	}

	// Phase 1: sequences and triggers.
	if err := p.analyzeSequencesAndTriggers(ctx, sel); err != nil {
		return nil, fmt.Errorf("phase 1 (sequence analysis) failed: %w", err)
	}

	// Phase 2: tables.
	p.driveKind(ctx, model.KindTable, sel.Tables, report)

	// Phase 3: foreign keys, once every selected table exists.
	fkResults, err := p.FKManager.Apply(ctx, p.Target, p.FKScriptPath)
	if err != nil {
		return nil, fmt.Errorf("phase 3 (FK application) failed: %w", err)
	}
	report.FKResults = fkResults

	// Phase 4: data copy for tables the user asked to include.
	p.copyTableData(ctx, sel, report)

	// Phase 5: packages, decomposed into independent code objects.
	p.drivePackages(ctx, sel.Packages, report)

	// Phase 6: remaining code objects (procedures, functions, triggers,
	// views), skipping triggers the Identity Converter already subsumed.
	remainingTriggers := p.filterStrippedTriggers(sel.Triggers)
	p.driveKind(ctx, model.KindProcedure, sel.Procedures, report)
	p.driveKind(ctx, model.KindFunction, sel.Functions, report)
	p.driveKind(ctx, model.KindTrigger, remainingTriggers, report)
	p.driveKind(ctx, model.KindView, sel.Views, report)

	// Phase 7: dependency-queue fixpoint.
	if p.Dependencies != nil {
		p.Dependencies.RunCycles(ctx)
		pending := p.Dependencies.Pending()
		for _, obj := range pending {
			report.StillPendingDeps = append(report.StillPendingDeps, obj.Identity.FQName())
		}
		if p.Metrics != nil {
			p.Metrics.DependencyCycles.Observe(float64(p.Dependencies.CyclesRun()))
			p.Metrics.DependencyPending.Set(float64(len(pending)))
		}
	}

	// Phase 8: final report (SharedMemory has already been persisted
	// after every mutation throughout the run; there is nothing left to
	// flush here).
	report.Duration = time.Since(started)
	return report, nil
}

// copyTableData runs the Data Copier over every selected table flagged for
// data inclusion, passing the configured batch size and truncate-before-
// load setting through (spec §6, §4.13 step 4) instead of the Copier's
// built-in default.
func (p *Pipeline) copyTableData(ctx context.Context, sel Selection, report *Report) {
	if p.Copier == nil {
		return
	}
	for _, table := range sel.Tables {
		if !sel.IncludeData[table] {
			continue
		}
		result, err := p.Copier.Copy(ctx, p.Schema, table, datacopy.Options{
			BatchSize:          p.BatchSize,
			TruncateBeforeLoad: p.TruncateBeforeLoad,
		})
		if err != nil {
			p.Logger.Error("data copy failed",
				logging.NewFields().Component("orchestrator").Operation("copy").Resource("table", table).Error(err).KV()...)
			continue
		}
		report.TotalRowsCopied += result.RowsCopied
		if p.Metrics != nil {
			p.Metrics.RowsCopied.WithLabelValues(table).Add(float64(result.RowsCopied))
		}
	}
}

func (p *Pipeline) analyzeSequencesAndTriggers(ctx context.Context, sel Selection) error {
	seqs, err := p.Reader.ListSequences(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sequences: %w", err)
	}
	for _, s := range seqs {
		p.Sequences.Register(s.Schema, s.Name, s.CurrentValue)
	}

	for _, name := range sel.Triggers {
		body, err := p.Reader.GetDDL(ctx, "TRIGGER", name)
		if err != nil {
			p.Logger.Warn("failed to fetch trigger body for sequence analysis",
				logging.NewFields().Component("orchestrator").Resource("trigger", name).Error(err).KV()...)
			continue
		}
		table := inferTriggerTable(body)
		p.Sequences.ScanBody(p.Schema, p.Schema+"."+name, "TRIGGER", table, body)
	}
	for _, name := range sel.Procedures {
		body, err := p.Reader.GetDDL(ctx, "PROCEDURE", name)
		if err == nil {
			p.Sequences.ScanBody(p.Schema, p.Schema+"."+name, "PROCEDURE", "", body)
		}
	}
	for _, name := range sel.Functions {
		body, err := p.Reader.GetDDL(ctx, "FUNCTION", name)
		if err == nil {
			p.Sequences.ScanBody(p.Schema, p.Schema+"."+name, "FUNCTION", "", body)
		}
	}

	entries := p.Sequences.Finalize()
	var planEntries []sequence.PlanEntry
	for _, u := range entries {
		if err := u.Validate(); err != nil {
			p.Logger.Warn("skipping sequence with incomplete identity", zap.String("sequence", u.FQName()), zap.Error(err))
			continue
		}
		var detail string
		switch u.Strategy {
		case model.StrategyIdentityColumn:
			for table, col := range u.AssociatedTables {
				p.applyIdentityColumn(table, col, u.CurrentValue)
			}
			detail = "simple-PK trigger replaced with IDENTITY column"
		case model.StrategyManualReview:
			detail = "CURRVAL reference or ambiguous usage requires manual review"
		case model.StrategySharedSequence:
			detail = "used by more than one table, cannot become a single IDENTITY column"
		case model.StrategySQLServerSeq:
			detail = "referenced from procedure/function code, converted to a SQL Server SEQUENCE"
		}
		planEntries = append(planEntries, sequence.PlanEntry{
			Schema:   u.Schema,
			Name:     u.Name,
			Strategy: string(u.Strategy),
			Detail:   detail,
		})
	}
	if p.SequencePlanPath != "" {
		return writeSequencePlan(p.SequencePlanPath, planEntries)
	}
	return nil
}

func (p *Pipeline) applyIdentityColumn(table, column string, currentValue int64) {
	if p.Memory != nil {
		p.Memory.RegisterIdentityColumn(table, column, currentValue)
	}
}

// triggerTablePattern extracts the table a CREATE TRIGGER fires on, so
// sequence usage can be attributed per §4.3 step 2.
var triggerTablePattern = regexp.MustCompile(`(?i)\bON\s+([A-Za-z_][A-Za-z0-9_$#]*(?:\.[A-Za-z_][A-Za-z0-9_$#]*)?)`)

func inferTriggerTable(triggerDDL string) string {
	m := triggerTablePattern.FindStringSubmatch(triggerDDL)
	if m == nil {
		return ""
	}
	return m[1]
}

// writeSequencePlan persists the sequence migration plan report (spec §6's
// sequence_migration_plan.txt artifact).
func writeSequencePlan(path string, entries []sequence.PlanEntry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for sequence plan: %w", err)
	}
	return os.WriteFile(path, []byte(sequence.RenderSequencePlan(entries)), 0o644)
}

// filterStrippedTriggers removes triggers the Sequence Analyzer classified
// as simple-PK and therefore subsumed by an IDENTITY column (spec §4.15
// step 6 parenthetical).
func (p *Pipeline) filterStrippedTriggers(triggers []string) []string {
	stripped := make(map[string]bool)
	for _, u := range p.Sequences.Finalize() {
		if u.Strategy != model.StrategyIdentityColumn {
			continue
		}
		for _, t := range u.Triggers {
			if t.IsSimplePK {
				stripped[t.Name] = true
			}
		}
	}
	out := make([]string, 0, len(triggers))
	for _, t := range triggers {
		if !stripped[p.Schema+"."+t] {
			out = append(out, t)
		}
	}
	return out
}

// driveKind fetches, translates, reviews, and deploys every named object
// of kind, up to PoolSize concurrently (spec §5: "objects of the same kind
// and no interdependency may execute in parallel up to a small pool").
func (p *Pipeline) driveKind(ctx context.Context, kind model.Kind, names []string, report *Report) {
	if len(names) == 0 {
		return
	}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, poolSizeOrDefault(p.PoolSize))

	for _, name := range names {
		name := name
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()
			outcome, obj := p.driveObject(gctx, model.Identity{Schema: p.Schema, Name: name, Kind: kind})

			mu.Lock()
			recordOutcome(report, obj, outcome)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
}

func poolSizeOrDefault(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

// driveObject runs the fetch->translate->review->deploy-via-repair chain
// for a single object, publishing progress events at each step.
func (p *Pipeline) driveObject(ctx context.Context, id model.Identity) (repair.Outcome, *model.MigratableObject) {
	p.publish(id, progress.PhaseStart, "")

	sourceText, err := p.Reader.GetDDL(ctx, string(id.Kind), id.Name)
	if err != nil {
		p.Logger.Error("failed to fetch source text",
			logging.NewFields().Component("orchestrator").Resource(string(id.Kind), id.FQName()).Error(err).KV()...)
		return repair.Outcome{FinalState: repair.StateAbandoned}, model.NewMigratableObject(id, "")
	}

	obj := model.NewMigratableObject(id, sourceText)

	p.publish(id, progress.PhaseConvert, "")
	targetText, err := p.Translator.Translate(ctx, obj, nil)
	if err != nil {
		p.Logger.Error("translation failed",
			logging.NewFields().Component("orchestrator").Resource(string(id.Kind), id.FQName()).Error(err).KV()...)
		obj.Status = model.StatusFailed
		return repair.Outcome{FinalState: repair.StateAbandoned}, obj
	}
	obj.TargetText = targetText
	obj.Status = model.StatusTranslated

	p.publish(id, progress.PhaseReview, "")
	reviewResult := review.Review(obj.TargetText)
	obj.ReviewRequiresChanges = reviewResult.Approval == review.ApprovalRequiresChanges

	p.publish(id, progress.PhaseDeploy, "")
	deployStarted := time.Now()
	outcome := p.Repair.Run(ctx, obj)
	if p.Metrics != nil {
		p.Metrics.ObserveDeploy(string(id.Kind), time.Since(deployStarted).Seconds())
		for _, r := range outcome.Reports {
			p.Metrics.ObserveRepairAttempt(string(id.Kind), string(r.Category))
		}
		p.Metrics.ObserveOutcome(string(id.Kind), string(outcome.FinalState))
	}
	if len(outcome.Reports) > 0 {
		p.publish(id, progress.PhaseRepair, fmt.Sprintf("%d repair attempt(s)", len(outcome.Reports)))
	}

	if outcome.FinalState == repair.StateFailedDependency && p.Dependencies != nil {
		obj.Dependencies = unresolvedReferences(outcome)
		p.Dependencies.Enqueue(obj, obj.Dependencies)
	}

	p.writeAuditArtifact(id, obj.SourceText, obj.TargetText)
	p.publish(id, progress.PhaseDone, string(outcome.FinalState))
	return outcome, obj
}

// writeAuditArtifact persists the side-by-side source/target text for one
// object (spec §6: "oracle/{kind}/{name}.md and sql/{kind}/{name}.md").
// A write failure is logged and otherwise ignored: the audit trail is a
// convenience, never a condition for the object's own terminal state.
func (p *Pipeline) writeAuditArtifact(id model.Identity, sourceText, targetText string) {
	if p.OutputDir == "" {
		return
	}
	kind := strings.ToLower(string(id.Kind))
	if err := writeTextFile(filepath.Join(p.OutputDir, "oracle", kind, id.Name+".md"), sourceText); err != nil {
		p.Logger.Warn("failed to write oracle audit artifact",
			logging.NewFields().Component("orchestrator").Resource(string(id.Kind), id.FQName()).Error(err).KV()...)
	}
	if err := writeTextFile(filepath.Join(p.OutputDir, "sql", kind, id.Name+".md"), targetText); err != nil {
		p.Logger.Warn("failed to write sql audit artifact",
			logging.NewFields().Component("orchestrator").Resource(string(id.Kind), id.FQName()).Error(err).KV()...)
	}
}

func writeTextFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

// unresolvedReferences pulls the fully qualified names of the objects the
// Root-Cause Analyzer found missing across every repair attempt, so the
// Dependency Manager knows what it is waiting on (spec §4.13).
func unresolvedReferences(outcome repair.Outcome) []string {
	seen := make(map[string]bool)
	var refs []string
	for _, r := range outcome.Reports {
		if r.Target.Exists || r.Target.ReferencedObject == "" {
			continue
		}
		if !seen[r.Target.ReferencedObject] {
			seen[r.Target.ReferencedObject] = true
			refs = append(refs, r.Target.ReferencedObject)
		}
	}
	return refs
}

func recordOutcome(report *Report, obj *model.MigratableObject, outcome repair.Outcome) {
	fq := obj.Identity.FQName()
	switch outcome.FinalState {
	case repair.StateDone:
		report.Deployed = append(report.Deployed, fq)
	case repair.StateFailedDependency:
		// left for the dependency fixpoint phase to resolve or report.
	case repair.StateAbandoned:
		if obj.Status == model.StatusSkipped {
			report.Skipped = append(report.Skipped, fq)
		} else {
			report.Failed = append(report.Failed, fq)
		}
	default:
		report.Failed = append(report.Failed, fq)
	}
}

// tableMappingLookup is the narrow slice of *sharedmemory.Memory the
// existence checker below consults before falling back to a live query.
type tableMappingLookup interface {
	KnownTableMapping(oracleFQName string) (string, bool)
}

// existenceChecker implements dependency.ExistenceChecker the way spec
// §4.12 describes it: a fully qualified reference counts as resolved if
// SharedMemory already recorded it as a known table mapping, or failing
// that, if the target driver reports the object now exists.
type existenceChecker struct {
	memory tableMappingLookup
	target targetdb.Driver
}

func (c *existenceChecker) Exists(ctx context.Context, fqName string) (bool, error) {
	if c.memory != nil {
		if _, ok := c.memory.KnownTableMapping(fqName); ok {
			return true, nil
		}
	}
	if c.target == nil {
		return false, nil
	}
	schema, name := splitFQName(fqName)
	return c.target.ObjectExists(ctx, schema, name, "")
}

func splitFQName(fqName string) (schema, name string) {
	for i := 0; i < len(fqName); i++ {
		if fqName[i] == '.' {
			return fqName[:i], fqName[i+1:]
		}
	}
	return "", fqName
}

// Redeploy runs obj back through the Repair Controller's deploy-and-repair
// loop (its current target text is deployed first; it is re-translated only
// after a failed deploy), satisfying dependency.Redeployer; it is how the dependency-queue
// fixpoint (phase 7) gives a previously blocked object another pass once
// its references resolve.
func (p *Pipeline) Redeploy(ctx context.Context, obj *model.MigratableObject) bool {
	outcome := p.Repair.Run(ctx, obj)
	if p.Metrics != nil {
		p.Metrics.ObserveOutcome(string(obj.Identity.Kind), string(outcome.FinalState))
	}
	p.writeAuditArtifact(obj.Identity, obj.SourceText, obj.TargetText)
	return outcome.FinalState == repair.StateDone
}

// NewExistenceChecker builds the dependency.ExistenceChecker a Pipeline's
// Dependency Manager should use, wired against this Pipeline's own target
// driver and (optional) SharedMemory instance.
func NewExistenceChecker(memory tableMappingLookup, target targetdb.Driver) dependency.ExistenceChecker {
	return &existenceChecker{memory: memory, target: target}
}

func (p *Pipeline) publish(id model.Identity, phase progress.Phase, detail string) {
	if p.Publisher == nil {
		return
	}
	p.Publisher.Publish(progress.Event{
		RunID:     p.RunID,
		Schema:    id.Schema,
		Name:      id.Name,
		Kind:      string(id.Kind),
		Phase:     phase,
		Detail:    detail,
		Timestamp: time.Now(),
	})
}

// drivePackages decomposes each selected package and drives every
// resulting PackageUnit through the same fetch-less translate/review/
// deploy chain driveObject uses for fetched objects (spec §4.15 step 5:
// "treat each PackageUnit as an independent code object").
func (p *Pipeline) drivePackages(ctx context.Context, packages []string, report *Report) {
	for _, name := range packages {
		text, err := p.Reader.GetPackageText(ctx, name)
		if err != nil {
			p.Logger.Error("failed to fetch package text",
				logging.NewFields().Component("orchestrator").Resource("package", name).Error(err).KV()...)
			continue
		}
		result := decompose.Decompose(name, text.Spec, text.Body)
		for _, unit := range result.Units {
			id := model.Identity{Schema: p.Schema, Name: unit.TargetName(), Kind: model.KindPackageMember}
			p.publish(id, progress.PhaseStart, "")

			obj := model.NewMigratableObject(id, unit.Body)
			p.publish(id, progress.PhaseConvert, "")
			targetText, err := p.Translator.Translate(ctx, obj, nil)
			if err != nil {
				report.Failed = append(report.Failed, id.FQName())
				continue
			}
			obj.TargetText = targetText
			obj.Status = model.StatusTranslated

			p.publish(id, progress.PhaseReview, "")
			reviewResult := review.Review(obj.TargetText)
			obj.ReviewRequiresChanges = reviewResult.Approval == review.ApprovalRequiresChanges

			p.publish(id, progress.PhaseDeploy, "")
			deployStarted := time.Now()
			outcome := p.Repair.Run(ctx, obj)
			if p.Metrics != nil {
				p.Metrics.ObserveDeploy(string(id.Kind), time.Since(deployStarted).Seconds())
				for _, r := range outcome.Reports {
					p.Metrics.ObserveRepairAttempt(string(id.Kind), string(r.Category))
				}
				p.Metrics.ObserveOutcome(string(id.Kind), string(outcome.FinalState))
			}
			recordOutcome(report, obj, outcome)
			if outcome.FinalState == repair.StateFailedDependency && p.Dependencies != nil {
				obj.Dependencies = unresolvedReferences(outcome)
				p.Dependencies.Enqueue(obj, obj.Dependencies)
			}
			p.writeAuditArtifact(id, obj.SourceText, obj.TargetText)
			p.publish(id, progress.PhaseDone, string(outcome.FinalState))
		}
	}
}
