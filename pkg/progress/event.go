// Package progress implements the Orchestrator's progress-event feed
// (spec §4.15: "publishes progress events (per object: start/convert/
// review/deploy/repair/done) to an external observer channel; the UI
// consumes this feed") plus the small HTTP surface that exposes it and the
// discovery artifact to that UI.
package progress

import "time"

// Phase is one step in an object's lifecycle the Orchestrator reports on.
type Phase string

const (
	PhaseStart   Phase = "start"
	PhaseConvert Phase = "convert"
	PhaseReview  Phase = "review"
	PhaseDeploy  Phase = "deploy"
	PhaseRepair  Phase = "repair"
	PhaseDone    Phase = "done"
)

// Event is one progress notification for a single object.
type Event struct {
	RunID     string    `json:"run_id"`
	Schema    string    `json:"schema"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Phase     Phase     `json:"phase"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
