package repair

import (
	"context"
	"time"

	"github.com/oramigrate/oracle-to-mssql/pkg/deploy"
	"github.com/oramigrate/oracle-to-mssql/pkg/model"
	"github.com/oramigrate/oracle-to-mssql/pkg/review"
	"github.com/oramigrate/oracle-to-mssql/pkg/rootcause"
	"github.com/oramigrate/oracle-to-mssql/pkg/shared/logging"
	"github.com/oramigrate/oracle-to-mssql/pkg/targetdb"
	"github.com/oramigrate/oracle-to-mssql/pkg/translate"
	"go.uber.org/zap"
)

// Resolver answers the OBJECT_EXISTS user-resolution prompt (spec §4.11).
// Implementations must return within timeout; the Controller applies
// DefaultResolution itself if Resolve does not.
type Resolver interface {
	Resolve(ctx context.Context, obj model.Identity, timeout time.Duration) (Resolution, error)
}

// Translator is the narrow slice of *translate.Translator the Controller
// drives; kept as an interface so tests can stub re-translation.
type Translator interface {
	Translate(ctx context.Context, obj *model.MigratableObject, repair *translate.RepairContext) (string, error)
}

// Deployer is the narrow slice of *deploy.Deployer the Controller drives.
type Deployer interface {
	Deploy(ctx context.Context, objectName, targetText string) (deploy.Result, error)
}

// MemoryRecorder is the SharedMemory write surface the Controller touches
// on both success (pattern, mapping) and failure (error→solution), kept as
// an interface to avoid importing pkg/sharedmemory directly.
type MemoryRecorder interface {
	RecordSuccessfulPattern(sourceSnippet, targetSnippet string, quality review.Quality)
	RecordErrorSolution(errorSignature, fixSummary string)
	RecordTableMapping(oracleFQName, sqlserverFQName string)
}

// Controller drives one object through the NEW → DEPLOYING → ... state
// machine until it deploys, is queued for the Dependency Manager, or is
// abandoned.
type Controller struct {
	Translator        Translator
	Deployer          Deployer
	TargetDriver      targetdb.Driver
	Memory            rootcause.KnowledgeStore
	MemoryWriter      MemoryRecorder
	WebSearch         rootcause.WebSearchProvider
	Synthesizer       rootcause.Synthesizer
	ErrorClassifier   rootcause.Classifier
	Resolver          Resolver
	ConflictStrategy  ConflictStrategy
	MaxAttempts       int
	ResolutionTimeout time.Duration
	UseWebSearch      bool
	Logger            *zap.Logger
}

// Outcome is the terminal result of driving one object.
type Outcome struct {
	FinalState State
	Reports    []rootcause.Report
}

// Run drives obj from NEW through the state machine, mutating obj in
// place (TargetText, Status, ErrorHistory) as the spec requires, and
// returns the terminal state.
func (c *Controller) Run(ctx context.Context, obj *model.MigratableObject) Outcome {
	state := StateNew
	var reports []rootcause.Report

	for attempt := 0; ; attempt++ {
		state = c.transition(state, StateDeploying)

		result, err := c.Deployer.Deploy(ctx, obj.Identity.FQName(), obj.TargetText)
		if err != nil {
			// The Deployer itself could not attempt the submission (e.g. a
			// cancelled context); retry the I/O directly rather than
			// re-translating, bounded by the same attempt budget.
			obj.Status = model.StatusFailed
			obj.AppendError(model.ErrorAttempt{
				ID:           model.NewErrorAttemptID(),
				AttemptIndex: attempt,
				ErrorText:    err.Error(),
				Category:     model.CategoryConnection,
				Severity:     model.SeverityHigh,
				Timestamp:    time.Now(),
			})
			state = c.transition(state, StateFailedTransient)
			if attempt+1 >= c.MaxAttempts {
				state = c.transition(state, StateAbandoned)
				return Outcome{FinalState: state, Reports: reports}
			}
			continue
		} else if result.Success {
			obj.Status = model.StatusDeployed
			state = c.transition(state, StateDeployed)
			c.recordSuccess(obj)
			state = c.transition(state, StateMemoryUpdate)
			state = c.transition(state, StateDone)
			return Outcome{FinalState: state, Reports: reports}
		} else {
			state = c.transition(state, StateAnalyzing)
			report := rootcause.Analyze(ctx, rootcause.Input{
				Identity:      obj.Identity,
				SourceText:    obj.SourceText,
				ErrorText:     result.ErrText,
				TargetDriver:  c.TargetDriver,
				Memory:        c.Memory,
				WebSearch:     c.WebSearch,
				Synthesizer:   c.Synthesizer,
				ErrorClassify: c.ErrorClassifier,
				UseWebSearch:  c.UseWebSearch,
			})
			reports = append(reports, report)

			obj.Status = model.StatusFailed
			obj.AppendError(model.ErrorAttempt{
				ID:             model.NewErrorAttemptID(),
				AttemptIndex:   attempt,
				ErrorText:      result.ErrText,
				Category:       report.Category,
				Severity:       report.Severity,
				CodeAttempted:  obj.TargetText,
				Timestamp:      time.Now(),
				ContextSources: contextSources(report),
			})

			if report.Category == model.CategoryObjectExists {
				resolution := c.resolveObjectExists(ctx, obj.Identity)
				switch resolution {
				case ResolutionFail:
					obj.Status = model.StatusFailed
					state = c.transition(state, StateFailedHard)
					state = c.transition(state, StateAbandoned)
					return Outcome{FinalState: state, Reports: reports}
				case ResolutionSkip:
					obj.Status = model.StatusSkipped
					return Outcome{FinalState: StateAbandoned, Reports: reports}
				case ResolutionDrop, ResolutionAlter, ResolutionAppend:
					// Re-translation below is given the resolution via
					// FixStrategy so the Translator can emit the right DDL
					// shape (DROP+CREATE, ALTER, or an additive INSERT).
					report.Synthesis.FixStrategy = string(resolution)
				}
			}

			class := failureClass(report.Category, attempt, c.MaxAttempts)
			switch class {
			case model.FailureDependency:
				state = c.transition(state, StateFailedDependency)
				return Outcome{FinalState: state, Reports: reports}
			case model.FailureHard:
				state = c.transition(state, StateFailedHard)
				state = c.transition(state, StateAbandoned)
				return Outcome{FinalState: state, Reports: reports}
			}

			state = c.transition(state, StateFailedTransient)
			if attempt+1 >= c.MaxAttempts {
				state = c.transition(state, StateFailedHard)
				state = c.transition(state, StateAbandoned)
				return Outcome{FinalState: state, Reports: reports}
			}

			state = c.transition(state, StateTranslating)
			newText, err := c.Translator.Translate(ctx, obj, &translate.RepairContext{
				ErrorHistory: obj.ErrorHistory,
				RootCause:    report.Synthesis.RootCauseText,
				FixStrategy:  report.Synthesis.FixStrategy,
			})
			if err != nil {
				state = c.transition(state, StateFailedHard)
				state = c.transition(state, StateAbandoned)
				return Outcome{FinalState: state, Reports: reports}
			}
			obj.TargetText = newText
			obj.Status = model.StatusTranslated
			continue
		}
	}
}

func (c *Controller) transition(from, to State) State {
	if Regressed(from, to) {
		c.Logger.Error("repair state regression",
			logging.NewFields().Component("repair").Operation("transition").KV()...)
	}
	return to
}

func (c *Controller) recordSuccess(obj *model.MigratableObject) {
	if c.MemoryWriter == nil {
		return
	}
	quality := review.QualityGood
	if obj.ReviewRequiresChanges {
		quality = review.QualityNeedsImprovement
	}
	c.MemoryWriter.RecordSuccessfulPattern(obj.SourceText, obj.TargetText, quality)
	c.MemoryWriter.RecordTableMapping(obj.Identity.FQName(), obj.Identity.FQName())
	if len(obj.ErrorHistory) > 0 {
		last := obj.ErrorHistory[len(obj.ErrorHistory)-1]
		c.MemoryWriter.RecordErrorSolution(last.ErrorText, "retranslated successfully")
	}
}

// resolveObjectExists decides how to handle an OBJECT_EXISTS failure for
// id. A configured ConflictStrategy takes precedence and is applied
// silently, without invoking the Resolver (spec §9); FAIL_ON_CONFLICT in
// particular skips straight to ResolutionFail. Only when no strategy is
// configured does the Resolver/timeout prompt flow run as before.
func (c *Controller) resolveObjectExists(ctx context.Context, id model.Identity) Resolution {
	if resolution, ok := c.ConflictStrategy.resolutionFor(id.Kind); ok {
		return resolution
	}
	if c.Resolver == nil {
		return DefaultResolution(id.Kind)
	}
	timeout := c.ResolutionTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	boundedCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	resolution, err := c.Resolver.Resolve(boundedCtx, id, timeout)
	if err != nil || resolution == "" {
		return DefaultResolution(id.Kind)
	}
	return resolution
}

// failureClass classifies a category into its repair-controller bucket,
// with the one stateful exception the spec calls out: a SYNTAX failure
// that has already exhausted its retry budget becomes HARD
// (INVALID_SYNTAX_AFTER_RETRY_LIMIT, §4.11) instead of being retried
// forever.
func failureClass(category model.ErrorCategory, attempt, maxAttempts int) model.FailureClass {
	if category == model.CategorySyntax && attempt+1 >= maxAttempts {
		return model.FailureHard
	}
	return category.Classify()
}

func contextSources(report rootcause.Report) []string {
	var sources []string
	if report.Target.Exists {
		sources = append(sources, "target_metadata")
	}
	if len(report.Knowledge.PastSolutions) > 0 {
		sources = append(sources, "shared_memory")
	}
	if len(report.Knowledge.WebResults) > 0 {
		sources = append(sources, "web_search")
	}
	if len(report.SourceFeatures) > 0 {
		sources = append(sources, "source_analysis")
	}
	return sources
}
