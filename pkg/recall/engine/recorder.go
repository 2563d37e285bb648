package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"recall-be/internal/entity"
	"recall-be/internal/pkg/logger"
	"recall-be/internal/repository/contract"
	"recall-be/internal/repository/unitofwork"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
)

// Recorder is the write-through log of one session's transcript and outcomes.
// Sequence numbers are assigned in call order and renumbered past the stored
// tail when another writer took them; rows that fail to persist stay buffered
// and are retried, in order, on the next write or Flush. It is safe
// for concurrent use by the session actor and its evaluation tasks.
type Recorder struct {
	mu         sync.Mutex
	sessionID  string
	uowFactory unitofwork.RepositoryFactory
	now        func() time.Time
	logger     logger.ILogger

	messages []*entity.TranscriptMessage
	outcomes map[uuid.UUID]*entity.RecallOutcome
	order    []uuid.UUID

	pendingMessages []*entity.TranscriptMessage
	pendingOutcomes []*entity.RecallOutcome
}

func NewRecorder(sessionID string, uowFactory unitofwork.RepositoryFactory, now func() time.Time, log logger.ILogger) *Recorder {
	return &Recorder{
		sessionID:  sessionID,
		uowFactory: uowFactory,
		now:        now,
		logger:     log,
		outcomes:   make(map[uuid.UUID]*entity.RecallOutcome),
	}
}

// Load replaces the in-memory view with what is already persisted.
func (r *Recorder) Load(ctx context.Context) error {
	uow := r.uowFactory.NewUnitOfWork(ctx)

	messages, err := uow.TranscriptRepository().FindBySession(ctx, r.sessionID)
	if err != nil {
		return fmt.Errorf("load transcript: %w", err)
	}
	outcomes, err := uow.RecallOutcomeRepository().FindBySession(ctx, r.sessionID)
	if err != nil {
		return fmt.Errorf("load outcomes: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = messages
	r.outcomes = make(map[uuid.UUID]*entity.RecallOutcome, len(outcomes))
	r.order = r.order[:0]
	for _, o := range outcomes {
		r.outcomes[o.RecallPointId] = o
		r.order = append(r.order, o.RecallPointId)
	}
	r.pendingMessages = nil
	r.pendingOutcomes = nil
	return nil
}

func (r *Recorder) nextSeqLocked() int {
	if len(r.messages) == 0 {
		return 0
	}
	return r.messages[len(r.messages)-1].Seq + 1
}

// Append adds a message at the next sequence number. The message is part of
// the transcript even when the returned error reports a failed write.
func (r *Recorder) Append(ctx context.Context, role, content string, eval *entity.EvaluationMarker, rh *entity.RabbitholeMarker) (*entity.TranscriptMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg := &entity.TranscriptMessage{
		Id:         uuid.New(),
		SessionId:  r.sessionID,
		Seq:        r.nextSeqLocked(),
		Role:       role,
		Content:    content,
		Timestamp:  r.now(),
		Evaluation: eval,
		Rabbithole: rh,
	}
	r.messages = append(r.messages, msg)
	r.pendingMessages = append(r.pendingMessages, msg)

	return msg, r.flushLocked(ctx)
}

// RecordOutcome stores the first outcome for a recall point and ignores later
// ones. It reports whether o was accepted; an outcome another writer already
// persisted for the same point wins over o.
func (r *Recorder) RecordOutcome(ctx context.Context, o *entity.RecallOutcome) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.outcomes[o.RecallPointId]; exists {
		return false, nil
	}
	if o.Id == uuid.Nil {
		o.Id = uuid.New()
	}
	o.SessionId = r.sessionID
	if o.CreatedAt.IsZero() {
		o.CreatedAt = r.now()
	}
	r.outcomes[o.RecallPointId] = o
	r.order = append(r.order, o.RecallPointId)
	r.pendingOutcomes = append(r.pendingOutcomes, o)

	err := r.flushLocked(ctx)
	return r.outcomes[o.RecallPointId] == o, err
}

// maxResequence bounds how often one flush moves buffered messages past rows
// written by another recorder.
const maxResequence = 3

// flushLocked writes buffered rows in order and stops at the first failure.
// A duplicate-key error is reconciled against the store: rows whose id already
// landed are dropped and the rest are renumbered after the stored tail.
func (r *Recorder) flushLocked(ctx context.Context) error {
	if len(r.pendingMessages) == 0 && len(r.pendingOutcomes) == 0 {
		return nil
	}
	uow := r.uowFactory.NewUnitOfWork(ctx)

	resequenced := 0
	for len(r.pendingMessages) > 0 {
		msg := r.pendingMessages[0]
		err := uow.TranscriptRepository().Append(ctx, msg)
		switch {
		case err == nil:
			r.pendingMessages = r.pendingMessages[1:]
		case errors.Is(err, contract.ErrDuplicate) && resequenced < maxResequence:
			resequenced++
			r.logger.Warn("Recorder", "Transcript sequence taken, renumbering buffered messages", map[string]interface{}{
				"session_id": r.sessionID,
				"seq":        msg.Seq,
			})
			if rerr := r.resequenceLocked(ctx, uow); rerr != nil {
				return rerr
			}
		default:
			return fmt.Errorf("append transcript message %d: %w", msg.Seq, err)
		}
	}
	for len(r.pendingOutcomes) > 0 {
		o := r.pendingOutcomes[0]
		err := uow.RecallOutcomeRepository().Create(ctx, o)
		if errors.Is(err, contract.ErrDuplicate) {
			err = r.adoptStoredOutcomeLocked(ctx, uow, o)
		}
		if err != nil {
			return fmt.Errorf("record outcome: %w", err)
		}
		r.pendingOutcomes = r.pendingOutcomes[1:]
	}
	return nil
}

// resequenceLocked merges the stored transcript into memory and moves the
// buffered messages that have not landed behind it.
func (r *Recorder) resequenceLocked(ctx context.Context, uow unitofwork.UnitOfWork) error {
	stored, err := uow.TranscriptRepository().FindBySession(ctx, r.sessionID)
	if err != nil {
		return fmt.Errorf("reload transcript: %w", err)
	}

	landed := make(map[uuid.UUID]bool, len(stored))
	for _, m := range stored {
		landed[m.Id] = true
	}
	next := 0
	if len(stored) > 0 {
		next = stored[len(stored)-1].Seq + 1
	}

	pending := make([]*entity.TranscriptMessage, 0, len(r.pendingMessages))
	for _, m := range r.pendingMessages {
		if landed[m.Id] {
			continue
		}
		m.Seq = next
		next++
		pending = append(pending, m)
	}
	r.messages = append(stored, pending...)
	r.pendingMessages = pending
	return nil
}

// adoptStoredOutcomeLocked replaces o with the persisted outcome for its point
// when the colliding row is not o itself.
func (r *Recorder) adoptStoredOutcomeLocked(ctx context.Context, uow unitofwork.UnitOfWork, o *entity.RecallOutcome) error {
	stored, err := uow.RecallOutcomeRepository().FindBySession(ctx, r.sessionID)
	if err != nil {
		return err
	}
	for _, s := range stored {
		if s.RecallPointId == o.RecallPointId && s.Id != o.Id {
			r.outcomes[o.RecallPointId] = s
		}
	}
	return nil
}

// Sync merges rows persisted by other writers into the in-memory view, then
// retries anything still buffered.
func (r *Recorder) Sync(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	uow := r.uowFactory.NewUnitOfWork(ctx)
	if err := r.resequenceLocked(ctx, uow); err != nil {
		return err
	}
	outcomes, err := uow.RecallOutcomeRepository().FindBySession(ctx, r.sessionID)
	if err != nil {
		return fmt.Errorf("load outcomes: %w", err)
	}
	for _, o := range outcomes {
		if _, ok := r.outcomes[o.RecallPointId]; !ok {
			r.outcomes[o.RecallPointId] = o
			r.order = append(r.order, o.RecallPointId)
		}
	}
	return r.flushLocked(ctx)
}

// Flush retries buffered writes with exponential backoff until they land,
// the context ends or maxTries is used up.
func (r *Recorder) Flush(ctx context.Context, initial time.Duration, maxTries uint) error {
	b := backoff.NewExponentialBackOff()
	if initial > 0 {
		b.InitialInterval = initial
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		return struct{}{}, r.flushLocked(ctx)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(maxTries))
	if err != nil {
		r.logger.Error("Recorder", "Transcript flush gave up", map[string]interface{}{
			"session_id":       r.sessionID,
			"pending_messages": r.Pending(),
			"error":            err,
		})
	}
	return err
}

// Pending is the number of rows not yet persisted.
func (r *Recorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pendingMessages) + len(r.pendingOutcomes)
}

// Messages returns the transcript with Seq >= fromSeq.
func (r *Recorder) Messages(fromSeq int) []*entity.TranscriptMessage {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*entity.TranscriptMessage, 0)
	for _, m := range r.messages {
		if m.Seq >= fromSeq {
			out = append(out, m)
		}
	}
	return out
}

func (r *Recorder) Outcomes() []*entity.RecallOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*entity.RecallOutcome, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.outcomes[id])
	}
	return out
}

// Outcome returns the outcome recorded for pointId, if any.
func (r *Recorder) Outcome(pointId uuid.UUID) (*entity.RecallOutcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.outcomes[pointId]
	return o, ok
}

func (r *Recorder) Evaluated(pointId uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.outcomes[pointId]
	return ok
}

// OpenEvaluation finds the start marker for pointId that has no end marker yet.
func (r *Recorder) OpenEvaluation(pointId uuid.UUID) (*entity.TranscriptMessage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var open *entity.TranscriptMessage
	for _, m := range r.messages {
		if m.Evaluation == nil || m.Evaluation.RecallPointId != pointId {
			continue
		}
		if m.Evaluation.IsStart {
			open = m
		}
		if m.Evaluation.IsEnd {
			open = nil
		}
	}
	return open, open != nil
}
