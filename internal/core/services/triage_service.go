package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/renholm/ticket-triage-backend/internal/core/domain"
	apperrors "github.com/renholm/ticket-triage-backend/internal/core/errors"
	"github.com/renholm/ticket-triage-backend/internal/core/ports"
)

// errNoClassification marks the classifier's "model answered but the
// output was unusable" case so the analyze step degrades immediately
// instead of burning retries.
var errNoClassification = apperrors.NonRetriable(errors.New("classifier returned no usable result"))

// TriageConfig bounds the orchestrator's retry and timeout behavior.
type TriageConfig struct {
	// MaxStepRetries is the number of additional attempts after the
	// first failure of a step.
	MaxStepRetries  uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// RunTimeout caps a whole run; zero disables the cap.
	RunTimeout time.Duration
}

// DefaultTriageConfig returns the standard bounds: two retries per step
// with exponential backoff and a two minute master deadline.
func DefaultTriageConfig() TriageConfig {
	return TriageConfig{
		MaxStepRetries:  2,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		RunTimeout:      2 * time.Minute,
	}
}

// TriageService orchestrates the five-step triage pipeline. Steps run
// strictly in order; each is retried with backoff on transient errors,
// aborted on non-retriable ones, and ledgered so a resumed run reuses
// completed results instead of re-executing them.
type TriageService struct {
	ticketRepo  ports.TicketRepository
	runRepo     ports.TriageRunRepository
	classifier  ports.Classifier
	matcher     ports.ModeratorMatcher
	updater     ports.TicketService
	notifier    ports.Notifier
	broadcaster ports.EventBroadcaster
	logger      *slog.Logger
	cfg         TriageConfig
}

var _ ports.TriageService = (*TriageService)(nil)

// NewTriageService creates the orchestrator with explicit collaborators.
func NewTriageService(
	ticketRepo ports.TicketRepository,
	runRepo ports.TriageRunRepository,
	classifier ports.Classifier,
	matcher ports.ModeratorMatcher,
	updater ports.TicketService,
	notifier ports.Notifier,
	broadcaster ports.EventBroadcaster,
	logger *slog.Logger,
	cfg TriageConfig,
) *TriageService {
	return &TriageService{
		ticketRepo:  ticketRepo,
		runRepo:     runRepo,
		classifier:  classifier,
		matcher:     matcher,
		updater:     updater,
		notifier:    notifier,
		broadcaster: broadcaster,
		logger:      logger.With("component", "triage"),
		cfg:         cfg,
	}
}

// Run executes the pipeline for one (ticket, attempt) pair. It never
// returns an error: failures are recorded in the ledger and the logs,
// and collapse into the Success flag.
func (s *TriageService) Run(ctx context.Context, ticketID int64, attempt int) domain.TriageResult {
	if s.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer cancel()
	}

	log := s.logger.With("ticket_id", ticketID, "attempt", attempt)

	run, err := s.loadOrCreateRun(ctx, ticketID, attempt)
	if err != nil {
		log.Error("triage ledger unavailable", "error", err)
		return domain.TriageResult{Success: false}
	}
	if run.Status == domain.RunSucceeded {
		log.Info("run already succeeded, nothing to do")
		return domain.TriageResult{Success: true}
	}

	s.broadcast(domain.Event{Type: domain.EventTriageRunStarted, TicketID: ticketID, Attempt: attempt})

	// Step 1: fetch-ticket. Required; a missing ticket aborts the run
	// without consuming retry budget on later steps.
	var ticket domain.Ticket
	err = s.executeStep(ctx, run, domain.StepFetchTicket, &ticket, func(ctx context.Context) (any, error) {
		t, err := s.ticketRepo.GetByID(ctx, ticketID)
		if err != nil {
			if errors.Is(err, apperrors.ErrTicketNotFound) {
				return nil, apperrors.NonRetriable(err)
			}
			return nil, err
		}
		return t, nil
	})
	if err != nil {
		return s.fail(ctx, run, log, domain.StepFetchTicket, err)
	}

	// Step 2: analyze-ticket. Fail-open: retry transport errors, then
	// degrade to a nil classification and keep going.
	var classification *domain.Classification
	err = s.executeStep(ctx, run, domain.StepAnalyzeTicket, &classification, func(ctx context.Context) (any, error) {
		c, err := s.classifier.Classify(ctx, &ticket)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, errNoClassification
		}
		return c, nil
	})
	if err != nil {
		s.degrade(ctx, run, log, domain.StepAnalyzeTicket, err)
		classification = nil
	}

	// Step 3: find-moderator. Required; an unassignable ticket is a
	// valid nil result, only store errors can fail here.
	var assignee *domain.User
	err = s.executeStep(ctx, run, domain.StepFindModerator, &assignee, func(ctx context.Context) (any, error) {
		return s.matcher.FindAssignee(ctx, classification)
	})
	if err != nil {
		return s.fail(ctx, run, log, domain.StepFindModerator, err)
	}

	// Step 4: update-ticket. Required; assignment and classification
	// fields land in one atomic write.
	var applied bool
	err = s.executeStep(ctx, run, domain.StepUpdateTicket, &applied, func(ctx context.Context) (any, error) {
		params := ports.ApplyTriageParams{
			TicketID:       ticket.ID,
			Classification: classification,
		}
		if assignee != nil {
			params.AssigneeID = &assignee.ID
		}
		if err := s.updater.ApplyTriageResult(ctx, params); err != nil {
			return nil, err
		}
		return true, nil
	})
	if err != nil {
		return s.fail(ctx, run, log, domain.StepUpdateTicket, err)
	}

	// Step 5: send-email-notification. Fail-open and best-effort; a
	// no-op without an assignee. The ledger keeps it at-most-once
	// across resumed runs.
	var sent bool
	err = s.executeStep(ctx, run, domain.StepSendEmail, &sent, func(ctx context.Context) (any, error) {
		if assignee == nil {
			return false, nil
		}
		if err := s.notifier.NotifyAssignment(ctx, assignee, &ticket); err != nil {
			return nil, err
		}
		return true, nil
	})
	if err != nil {
		s.degrade(ctx, run, log, domain.StepSendEmail, err)
	}

	s.setRunStatus(ctx, run, domain.RunSucceeded)
	s.broadcast(domain.Event{
		Type:     domain.EventTriageRunFinished,
		TicketID: ticketID,
		Attempt:  attempt,
		Payload:  domain.TriageResult{Success: true},
	})
	log.Info("triage run finished", "success", true, "assigned", assignee != nil, "classified", classification != nil)
	return domain.TriageResult{Success: true}
}

// executeStep runs one retryable unit of work and decodes its result
// into out. A step already completed in this run's ledger is not
// re-executed; its cached payload is decoded instead.
func (s *TriageService) executeStep(
	ctx context.Context,
	run *domain.TriageRun,
	name domain.StepName,
	out any,
	fn func(context.Context) (any, error),
) error {
	if cached, ok := run.CompletedStep(name); ok {
		s.logger.Debug("reusing completed step", "ticket_id", run.TicketID, "attempt", run.Attempt, "step", name)
		if len(cached.Payload) == 0 || out == nil {
			return nil
		}
		return json.Unmarshal(cached.Payload, out)
	}

	attempts := 0
	operation := func() (json.RawMessage, error) {
		attempts++
		value, err := fn(ctx)
		if err != nil {
			if apperrors.IsNonRetriable(err) {
				return nil, backoff.Permanent(err)
			}
			s.logger.Warn("step attempt failed",
				"ticket_id", run.TicketID, "step", name, "step_attempt", attempts, "error", err)
			return nil, err
		}
		payload, err := json.Marshal(value)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		return payload, nil
	}

	payload, err := backoff.RetryWithData(operation, s.stepBackOff(ctx))
	if err != nil {
		return err
	}

	run.RecordStep(name, domain.StepResult{
		Status:   domain.StepCompleted,
		Payload:  payload,
		Attempts: attempts,
	})
	s.persistStep(ctx, run, name)
	s.broadcast(domain.Event{Type: domain.EventTriageStepDone, TicketID: run.TicketID, Attempt: run.Attempt, Step: name})

	if len(payload) == 0 || out == nil {
		return nil
	}
	return json.Unmarshal(payload, out)
}

func (s *TriageService) stepBackOff(ctx context.Context) backoff.BackOffContext {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.cfg.InitialInterval
	bo.MaxInterval = s.cfg.MaxInterval
	bo.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(bo, s.cfg.MaxStepRetries), ctx)
}

// degrade records a fail-open step's exhaustion; the run continues.
func (s *TriageService) degrade(ctx context.Context, run *domain.TriageRun, log *slog.Logger, name domain.StepName, err error) {
	log.Warn("step degraded", "step", name, "error", err)
	run.RecordStep(name, domain.StepResult{Status: domain.StepDegraded, Error: err.Error()})
	s.persistStep(ctx, run, name)
	s.broadcast(domain.Event{Type: domain.EventTriageStepDegraded, TicketID: run.TicketID, Attempt: run.Attempt, Step: name})
}

// fail records a required step's terminal failure and closes the run.
func (s *TriageService) fail(ctx context.Context, run *domain.TriageRun, log *slog.Logger, name domain.StepName, err error) domain.TriageResult {
	log.Error("step failed terminally", "step", name, "error", err)
	run.RecordStep(name, domain.StepResult{Status: domain.StepFailed, Error: err.Error()})
	s.persistStep(ctx, run, name)
	s.setRunStatus(ctx, run, domain.RunFailed)
	s.broadcast(domain.Event{Type: domain.EventTriageStepFailed, TicketID: run.TicketID, Attempt: run.Attempt, Step: name})
	s.broadcast(domain.Event{
		Type:     domain.EventTriageRunFinished,
		TicketID: run.TicketID,
		Attempt:  run.Attempt,
		Payload:  domain.TriageResult{Success: false},
	})
	return domain.TriageResult{Success: false}
}

func (s *TriageService) loadOrCreateRun(ctx context.Context, ticketID int64, attempt int) (*domain.TriageRun, error) {
	run, err := s.runRepo.Get(ctx, ticketID, attempt)
	if err == nil {
		return run, nil
	}
	if !errors.Is(err, apperrors.ErrRunNotFound) {
		return nil, err
	}
	return s.runRepo.Create(ctx, domain.NewTriageRun(ticketID, attempt))
}

// persistStep writes a ledger entry. Ledger durability is best-effort:
// a write failure costs resumability, not the run.
func (s *TriageService) persistStep(ctx context.Context, run *domain.TriageRun, name domain.StepName) {
	if err := s.runRepo.SaveStep(ctx, run.ID, name, run.Steps[name]); err != nil {
		s.logger.Warn("ledger write failed",
			"ticket_id", run.TicketID, "attempt", run.Attempt, "step", name, "error", err)
	}
}

func (s *TriageService) setRunStatus(ctx context.Context, run *domain.TriageRun, status domain.RunStatus) {
	run.Status = status
	if err := s.runRepo.SetStatus(ctx, run.ID, status); err != nil {
		s.logger.Warn("ledger status write failed",
			"ticket_id", run.TicketID, "attempt", run.Attempt, "error", err)
	}
}

func (s *TriageService) broadcast(event domain.Event) {
	if s.broadcaster == nil {
		return
	}
	event.Timestamp = time.Now().UTC()
	_ = s.broadcaster.Broadcast(event)
}
