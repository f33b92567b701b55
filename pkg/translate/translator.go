// Package translate implements the Translator (spec §4.7): converts Oracle
// text to T-SQL via a rule-based backend when available, falling back to an
// LLM backend. It always invokes the FK Manager before returning a table
// DDL, and the Identity Converter when the object is a table with
// SharedMemory-marked IDENTITY columns.
package translate

import (
	"context"
	"regexp"
	"strings"

	"github.com/oramigrate/oracle-to-mssql/pkg/fkmanager"
	"github.com/oramigrate/oracle-to-mssql/pkg/model"
	"github.com/oramigrate/oracle-to-mssql/pkg/sequence"
	"github.com/oramigrate/oracle-to-mssql/pkg/shared/logging"
	"go.uber.org/zap"
)

// RepairContext carries the error history and root-cause synthesis the
// Repair Controller gives the Translator when re-translating (§4.11).
type RepairContext struct {
	ErrorHistory []model.ErrorAttempt
	RootCause    string
	FixStrategy  string
}

// Backend is a translation engine: the rule-based converter or the LLM
// fallback. Both speak the same signature.
type Backend interface {
	Translate(ctx context.Context, sourceText, objectName string, kind model.Kind, repair *RepairContext) (string, error)
	Name() string
}

// IdentityLookup answers whether a table's column was marked IDENTITY in
// SharedMemory (spec §4.7, §4.4).
type IdentityLookup interface {
	IdentityColumn(schema, table string) (column string, currentValue int64, ok bool)
}

// ConflictStrategy mirrors the migration-level conflict_strategy option
// (spec §6) without importing the config package: cmd/migrator converts
// config.ConflictStrategy to this type when constructing the Translator.
// Translate applies it to the CREATE statement of every non-table object,
// whichever backend produced the text, so a redeploy against a target that
// already has the object behaves the way the strategy promises instead of
// always needing a round trip through the Repair Controller (spec §9).
type ConflictStrategy string

const (
	ConflictDropAndCreate  ConflictStrategy = "DROP_AND_CREATE"
	ConflictSkipExisting   ConflictStrategy = "SKIP_EXISTING"
	ConflictCreateOrAlter  ConflictStrategy = "CREATE_OR_ALTER"
	ConflictFailOnConflict ConflictStrategy = "FAIL_ON_CONFLICT"
)

// Translator wires the two backends together with the FK Manager and
// Identity Converter, per §4.7's contract.
type Translator struct {
	rules            Backend
	llm              Backend
	fkMgr            *fkmanager.Manager
	identity         IdentityLookup
	conflictStrategy ConflictStrategy
	logger           *zap.Logger
}

// New constructs a Translator. rules may be nil if no rule-based backend is
// configured for this run, in which case every object falls back to llm.
// conflictStrategy may be empty, in which case CREATE statements are left
// as the backend emitted them and conflicts are resolved downstream by the
// Repair Controller.
func New(rules, llm Backend, fkMgr *fkmanager.Manager, identity IdentityLookup, conflictStrategy ConflictStrategy, logger *zap.Logger) *Translator {
	return &Translator{rules: rules, llm: llm, fkMgr: fkMgr, identity: identity, conflictStrategy: conflictStrategy, logger: logger}
}

// Translate converts sourceText for the named object. The primary path is
// the rule-based backend; if it is unavailable or declines (returns
// ErrUnsupported), the LLM backend is used instead.
func (t *Translator) Translate(ctx context.Context, obj *model.MigratableObject, repair *RepairContext) (string, error) {
	targetText, backendUsed, err := t.runBackends(ctx, obj, repair)
	if err != nil {
		return "", err
	}

	targetText = sanitize(targetText)

	if obj.Identity.Kind == model.KindTable {
		strip := t.fkMgr.Strip(obj.Identity.Schema, obj.Identity.Name, targetText)
		targetText = strip.DDL

		if t.identity != nil {
			if col, cur, ok := t.identity.IdentityColumn(obj.Identity.Schema, obj.Identity.Name); ok {
				targetText = sequence.ApplyIdentity(targetText, col, cur)
			}
		}
	} else {
		targetText = applyConflictStrategy(targetText, obj.Identity.Kind, obj.Identity.FQName(), t.conflictStrategy)
	}

	t.logger.Debug("translated object",
		logging.NewFields().Component("translator").Operation("translate").
			Resource(string(obj.Identity.Kind), obj.Identity.FQName()).KV()...)
	_ = backendUsed

	return targetText, nil
}

func (t *Translator) runBackends(ctx context.Context, obj *model.MigratableObject, repair *RepairContext) (string, string, error) {
	if t.rules != nil {
		text, err := t.rules.Translate(ctx, obj.SourceText, obj.Identity.Name, obj.Identity.Kind, repair)
		if err == nil {
			return text, t.rules.Name(), nil
		}
		if !IsUnsupported(err) {
			return "", "", err
		}
		t.logger.Debug("rule-based translator declined object, falling back to LLM",
			logging.NewFields().Resource(string(obj.Identity.Kind), obj.Identity.FQName()).KV()...)
	}
	text, err := t.llm.Translate(ctx, obj.SourceText, obj.Identity.Name, obj.Identity.Kind, repair)
	if err != nil {
		return "", "", err
	}
	return text, t.llm.Name(), nil
}

// sourceTokens matches Oracle-specific tokens that must never survive into
// T-SQL output (spec §4.7 "sanitize its output").
var sourceTokens = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`(?i)\bVARCHAR2\b`), "VARCHAR"},
	{regexp.MustCompile(`(?i)\bNUMBER\(([0-9]+),\s*0\)`), "DECIMAL($1,0)"},
	{regexp.MustCompile(`(?i)\bNUMBER\b`), "DECIMAL"},
	{regexp.MustCompile(`(?i)\bSYSDATE\b`), "GETDATE()"},
	{regexp.MustCompile(`(?i)\bNVL\s*\(`), "ISNULL("},
	{regexp.MustCompile(`(?i)\bDUAL\b`), "(SELECT 1 AS dummy)"},
	{regexp.MustCompile(`(?i)(\S.*?)\s+MINUS\s+(SELECT)`), "$1 EXCEPT $2"},
	{regexp.MustCompile(`(?i)\bROWNUM\b`), "ROW_NUMBER() OVER (ORDER BY (SELECT NULL))"},
}

// sanitize strips or rewrites source-language-specific tokens that do not
// exist in T-SQL. It is a defensive pass applied to every backend's output
// (rule-based translators are trusted to already emit clean T-SQL, but the
// LLM backend in particular can leak Oracle-isms).
func sanitize(text string) string {
	for _, rule := range sourceTokens {
		text = rule.pattern.ReplaceAllString(text, rule.replacement)
	}
	return text
}

// unsupportedErr is returned by a Backend to signal "I cannot handle this
// object, try the other backend" — not a translation failure.
type unsupportedErr struct{ reason string }

func (e *unsupportedErr) Error() string { return "unsupported: " + e.reason }

// ErrUnsupported constructs the backend-declines sentinel.
func ErrUnsupported(reason string) error { return &unsupportedErr{reason: reason} }

// IsUnsupported reports whether err signals a backend decline rather than a
// real translation failure.
func IsUnsupported(err error) bool {
	_, ok := err.(*unsupportedErr)
	return ok
}

// TrimEmpty normalizes whitespace-only output to empty, used by callers
// deciding whether a backend produced anything at all.
func TrimEmpty(s string) string { return strings.TrimSpace(s) }
