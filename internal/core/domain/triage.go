package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// StepName identifies one unit of work inside a triage run.
type StepName string

// The five steps of the triage pipeline, in execution order.
const (
	StepFetchTicket   StepName = "fetch-ticket"
	StepAnalyzeTicket StepName = "analyze-ticket"
	StepFindModerator StepName = "find-moderator"
	StepUpdateTicket  StepName = "update-ticket"
	StepSendEmail     StepName = "send-email-notification"
)

// StepOrder is the fixed execution order of the pipeline.
var StepOrder = []StepName{
	StepFetchTicket,
	StepAnalyzeTicket,
	StepFindModerator,
	StepUpdateTicket,
	StepSendEmail,
}

// StepStatus is the tagged outcome of a step execution.
type StepStatus string

const (
	// StepCompleted means the step produced a result that later steps
	// (and resumed runs) may reuse.
	StepCompleted StepStatus = "completed"
	// StepDegraded means a fail-open step exhausted its options; the run
	// continues without the step's result.
	StepDegraded StepStatus = "degraded"
	// StepFailed means a required step gave up; the run fails.
	StepFailed StepStatus = "failed"
)

// StepResult is one ledger entry: the cached outcome of a step.
type StepResult struct {
	Status      StepStatus      `json:"status"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Error       string          `json:"error,omitempty"`
	Attempts    int             `json:"attempts"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

// RunStatus is the lifecycle state of a whole triage run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// TriageRun is the per-run ledger. Its identity is (TicketID, Attempt):
// re-publishing the trigger event for the same ticket bumps the attempt
// and starts a fresh ledger, while resuming after a transient failure
// reuses the existing one so completed steps are not re-executed.
type TriageRun struct {
	ID        uuid.UUID               `json:"id"`
	TicketID  int64                   `json:"ticketId"`
	Attempt   int                     `json:"attempt"`
	Status    RunStatus               `json:"status"`
	Steps     map[StepName]StepResult `json:"steps"`
	CreatedAt time.Time               `json:"createdAt"`
	UpdatedAt *time.Time              `json:"updatedAt,omitempty"`
}

// NewTriageRun starts a fresh ledger for the given run key.
func NewTriageRun(ticketID int64, attempt int) *TriageRun {
	return &TriageRun{
		ID:        uuid.New(),
		TicketID:  ticketID,
		Attempt:   attempt,
		Status:    RunRunning,
		Steps:     make(map[StepName]StepResult),
		CreatedAt: time.Now().UTC(),
	}
}

// CompletedStep returns the cached result of a step if it completed.
func (r *TriageRun) CompletedStep(name StepName) (StepResult, bool) {
	res, ok := r.Steps[name]
	if !ok || res.Status != StepCompleted {
		return StepResult{}, false
	}
	return res, true
}

// RecordStep writes a ledger entry, replacing any previous one.
func (r *TriageRun) RecordStep(name StepName, res StepResult) {
	if r.Steps == nil {
		r.Steps = make(map[StepName]StepResult)
	}
	now := time.Now().UTC()
	if res.CompletedAt == nil {
		res.CompletedAt = &now
	}
	r.Steps[name] = res
	r.UpdatedAt = &now
}

// TriageResult is the orchestrator's outcome contract: the triggering
// system only learns success or failure; causes live in the ledger and
// the logs.
type TriageResult struct {
	Success bool `json:"success"`
}
