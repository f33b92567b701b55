package rootcause

import (
	"context"
	"regexp"
	"strings"

	"github.com/oramigrate/oracle-to-mssql/pkg/model"
	"github.com/oramigrate/oracle-to-mssql/pkg/targetdb"
)

// Input bundles everything the five steps need: the failing object's
// identity and source, the raw target error text, and the run's
// collaborators. Any collaborator may be nil; the corresponding step
// degrades gracefully (spec §4.10 treats the analyzer as best-effort over
// whatever context is available).
type Input struct {
	Identity      model.Identity
	SourceText    string
	ErrorText     string
	TargetDriver  targetdb.Driver
	Memory        KnowledgeStore
	WebSearch     WebSearchProvider
	Synthesizer   Synthesizer
	ErrorClassify Classifier
	UseWebSearch  bool
}

// Report is the full five-step artifact chain, exposed so the Repair
// Controller and audit trail can see every intermediate step, not just the
// final synthesis.
type Report struct {
	Category       model.ErrorCategory
	Severity       model.Severity
	SourceFeatures []SourceFeature
	Target         TargetMetadata
	Knowledge      Knowledge
	Synthesis      Synthesis
}

// Analyze runs the five-step contract. It is a pure function of its
// inputs and the read-only collaborators it is given: no MigratableObject
// or SharedMemory mutation happens here.
func Analyze(ctx context.Context, in Input) Report {
	category, severity := classify(ctx, in.ErrorText, in.ErrorClassify)
	features := analyzeSource(in.SourceText)
	refSchema, refName, refKind := resolveReferencedObject(in.ErrorText, in.Identity)
	target := queryTargetMetadata(ctx, in.TargetDriver, refSchema, refName, refKind)
	signature := normalizeSignature(in.ErrorText)
	knowledge := retrieveKnowledge(ctx, signature, in.Memory, in.WebSearch, in.UseWebSearch)
	synth := synthesize(ctx, category, severity, features, target, knowledge, in.ErrorText, in.Synthesizer)

	return Report{
		Category:       category,
		Severity:       severity,
		SourceFeatures: features,
		Target:         target,
		Knowledge:      knowledge,
		Synthesis:      synth,
	}
}

var quotedIdentifier = regexp.MustCompile(`'([A-Za-z0-9_.$#]+)'`)

// resolveReferencedObject extracts the object named in a "missing X" error
// (e.g. "Invalid object name 'dbo.DEPARTMENTS'"), falling back to the
// failing object's own identity when the error text names nothing else.
func resolveReferencedObject(errorText string, self model.Identity) (schema, name, kind string) {
	if m := quotedIdentifier.FindStringSubmatch(errorText); m != nil {
		full := m[1]
		if idx := strings.LastIndex(full, "."); idx >= 0 {
			return full[:idx], full[idx+1:], ""
		}
		return self.Schema, full, ""
	}
	return self.Schema, self.Name, string(self.Kind)
}

// normalizeSignature collapses an error message to a stable signature for
// SharedMemory lookup: lowercase, numeric literals and quoted identifiers
// replaced with placeholders, whitespace collapsed (spec §4.14: "similarity
// by normalized error signature, not by exact string").
var (
	signatureNumber = regexp.MustCompile(`\d+`)
	signatureQuoted = regexp.MustCompile(`'[^']*'`)
	signatureSpace  = regexp.MustCompile(`\s+`)
)

func normalizeSignature(errorText string) string {
	s := strings.ToLower(errorText)
	s = signatureQuoted.ReplaceAllString(s, "?")
	s = signatureNumber.ReplaceAllString(s, "#")
	s = signatureSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
