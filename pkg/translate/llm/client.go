// Package llm wraps the Anthropic SDK as the Translator's (and Root-Cause
// Analyzer's) opaque `translate(text)->text` / `classify(text)->tag`
// provider (spec §1 — the LLM API client is a collaborator, not
// re-specified). It is deliberately thin: prompt assembly plus a single
// call. Translate and Synthesize run that call through a circuit breaker so
// a degraded provider fails fast instead of stalling the repair loop;
// Classify calls the provider directly, without the breaker.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/oramigrate/oracle-to-mssql/pkg/model"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Config shapes the Anthropic-backed translation client.
type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// CostSink is the opaque accumulator the Translator and Root-Cause
// Analyzer write token usage to; the core never computes pricing tiers
// (spec §9 open question).
type CostSink interface {
	RecordLLMCall(tokensIn, tokensOut int, model string)
}

// Client is the LLM-backed translation/classification provider.
type Client struct {
	anthropic anthropic.Client
	cfg       Config
	cost      CostSink
	breaker   *gobreaker.CircuitBreaker
	logger    *zap.Logger
}

// New constructs an LLM client. cost may be nil to discard usage tracking.
func New(cfg Config, cost CostSink, logger *zap.Logger) *Client {
	c := anthropic.NewClient(option.WithAPIKey(cfg.APIKey))
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "llm-translate",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &Client{anthropic: c, cfg: cfg, cost: cost, breaker: breaker, logger: logger}
}

func (c *Client) Name() string { return "llm" }

// promptTemplate mirrors the structured system/user/assistant sectioning
// the teacher's SLM client uses for its decision prompts, adapted for
// Oracle-to-T-SQL translation with repair context.
const promptTemplate = `<|system|>
You are a precise Oracle-to-SQL-Server migration assistant. Translate the
given Oracle object into semantically equivalent T-SQL. Output ONLY the
T-SQL statement(s); no markdown fences, no commentary.
<|user|>
Object kind: %s
Object name: %s
Oracle source:
%s
%s
<|assistant|>
`

func buildRepairSection(repair *RepairContextView) string {
	if repair == nil {
		return ""
	}
	section := "\nPrevious attempt failed. Root cause: " + repair.RootCause + "\n"
	section += "Suggested fix strategy: " + repair.FixStrategy + "\n"
	if len(repair.ErrorTexts) > 0 {
		section += "Errors encountered so far:\n"
		for _, e := range repair.ErrorTexts {
			section += "  - " + e + "\n"
		}
	}
	return section
}

// RepairContextView is the subset of translate.RepairContext the prompt
// needs, kept separate to avoid an import cycle between translate and
// translate/llm.
type RepairContextView struct {
	RootCause   string
	FixStrategy string
	ErrorTexts  []string
}

// Translate sends the Oracle object to the model and returns its raw T-SQL
// text. The circuit breaker trips on repeated provider failures so a
// downed endpoint fails every subsequent call instantly instead of
// exhausting the per-call timeout each time (spec §5 suspension/blocking
// points: LLM calls are cancelable, arbitrarily long).
func (c *Client) Translate(ctx context.Context, sourceText, objectName string, kind model.Kind, repair *RepairContextView) (string, error) {
	prompt := fmt.Sprintf(promptTemplate, kind, objectName, sourceText, buildRepairSection(repair))

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		msg, err := c.anthropic.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(c.cfg.Model),
			MaxTokens: 4096,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if err != nil {
			return nil, fmt.Errorf("llm translate call failed: %w", err)
		}
		return msg, nil
	})
	if err != nil {
		return "", err
	}

	msg := result.(*anthropic.Message)
	text := extractText(msg)
	if c.cost != nil && msg.Usage.InputTokens != 0 {
		c.cost.RecordLLMCall(int(msg.Usage.InputTokens), int(msg.Usage.OutputTokens), c.cfg.Model)
	}
	return text, nil
}

func extractText(msg *anthropic.Message) string {
	var out string
	for _, block := range msg.Content {
		if block.Type == "text" {
			out += block.Text
		}
	}
	return out
}

// SynthesisInput bundles the Root-Cause Analyzer's four prior steps into
// the context the synthesis prompt needs.
type SynthesisInput struct {
	ErrorText      string
	Category       string
	Severity       string
	SourceFeatures []string
	TargetExists   bool
	PastFixes      []string
	WebResults     []string
}

// SynthesisOutput is the model's structured verdict.
type SynthesisOutput struct {
	RootCauseText string
	Confidence    string
	FixStrategy   string
}

const synthesisTemplate = `<|system|>
You synthesize a root-cause explanation for a failed SQL Server deployment
migrated from Oracle. Respond with exactly three lines, no extra text:
ROOT_CAUSE: <one sentence>
CONFIDENCE: <low|medium|high>
FIX_STRATEGY: <short label, e.g. rewrite-minus-as-except>
<|user|>
Error: %s
Category: %s (severity: %s)
Oracle source features implicated: %s
Target object already exists: %t
Past fixes for similar errors: %s
Web search findings: %s
<|assistant|>
`

// Synthesize is the Root-Cause Analyzer's step 5 collaborator: given the
// prior steps' artifacts, produce the root-cause text, a confidence label,
// and a fix-strategy label the Translator can condition on.
func (c *Client) Synthesize(ctx context.Context, in SynthesisInput) (SynthesisOutput, error) {
	prompt := fmt.Sprintf(synthesisTemplate, in.ErrorText, in.Category, in.Severity,
		joinOrNone(in.SourceFeatures), in.TargetExists, joinOrNone(in.PastFixes), joinOrNone(in.WebResults))

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		msg, err := c.anthropic.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(c.cfg.Model),
			MaxTokens: 512,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if err != nil {
			return nil, fmt.Errorf("llm synthesize call failed: %w", err)
		}
		return msg, nil
	})
	if err != nil {
		return SynthesisOutput{}, err
	}

	msg := result.(*anthropic.Message)
	if c.cost != nil && msg.Usage.InputTokens != 0 {
		c.cost.RecordLLMCall(int(msg.Usage.InputTokens), int(msg.Usage.OutputTokens), c.cfg.Model)
	}
	return parseSynthesis(extractText(msg)), nil
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	out := ""
	for i, s := range items {
		if i > 0 {
			out += "; "
		}
		out += s
	}
	return out
}

func splitLines(text string) []string { return strings.Split(text, "\n") }

func hasPrefixFold(line, prefix string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(line)), prefix)
}

func trimPrefixFold(line, prefix string) string {
	trimmed := strings.TrimSpace(line)
	return strings.TrimSpace(trimmed[len(prefix):])
}

func parseSynthesis(text string) SynthesisOutput {
	out := SynthesisOutput{Confidence: "low", FixStrategy: "manual-review"}
	for _, line := range splitLines(text) {
		switch {
		case hasPrefixFold(line, "ROOT_CAUSE:"):
			out.RootCauseText = trimPrefixFold(line, "ROOT_CAUSE:")
		case hasPrefixFold(line, "CONFIDENCE:"):
			out.Confidence = trimPrefixFold(line, "CONFIDENCE:")
		case hasPrefixFold(line, "FIX_STRATEGY:"):
			out.FixStrategy = trimPrefixFold(line, "FIX_STRATEGY:")
		}
	}
	return out
}

// Classify sends error text to the model and returns a single category
// tag, used by the Root-Cause Analyzer's classification step when the
// built-in pattern rules (pkg/rootcause) don't confidently match.
func (c *Client) Classify(ctx context.Context, errorText string) (string, error) {
	const classifyTemplate = `<|system|>
You classify SQL Server deployment errors into exactly one of: SYNTAX,
MISSING_TABLE, MISSING_VIEW, MISSING_PROCEDURE, MISSING_FUNCTION,
MISSING_COLUMN, TYPE_MISMATCH, OBJECT_EXISTS, IDENTITY_VIOLATION,
PERMISSION, TIMEOUT, CONNECTION, LOB_PARAMETER, GO_BATCH_SYNTAX,
UNRESOLVABLE. Respond with the category only.
<|user|>
%s
<|assistant|>
`
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	msg, err := c.anthropic.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.cfg.Model),
		MaxTokens: 32,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(fmt.Sprintf(classifyTemplate, errorText))),
		},
	})
	if err != nil {
		return "", fmt.Errorf("llm classify call failed: %w", err)
	}
	return extractText(msg), nil
}
