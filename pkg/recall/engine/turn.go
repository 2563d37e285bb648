package engine

import (
	"context"
	"fmt"
	"time"

	"recall-be/internal/entity"
	"recall-be/pkg/events"
	"recall-be/pkg/llm"
	"recall-be/pkg/recall/gate"
	"recall-be/pkg/recall/judge"
	"recall-be/pkg/recall/metrics"
	"recall-be/pkg/recall/tangent"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
)

type detectionEvent struct {
	proposal *tangent.Proposal
}

type evaluationEvent struct {
	outcome *entity.RecallOutcome
	// adopted is set when the evaluation was started by an earlier connection.
	adopted bool
}

// initialize loads the durable session and derives the turn position from the
// transcript: the first target without an outcome is current, and it is
// awaiting a response when its start marker has no matching end marker. A
// judge run left behind by an earlier connection is waited for, not repeated.
func (s *Session) initialize() {
	ctx := s.ctx
	uow := s.engine.deps.UowFactory.NewUnitOfWork(ctx)

	sess, err := uow.SessionRepository().FindByID(ctx, s.key)
	if err != nil {
		s.logger.Error("Session", "Failed to load session", map[string]interface{}{"session_id": s.key, "error": err})
		s.fail(CodeSessionUnavailable, "session could not be loaded", CloseSessionUnavailable)
		return
	}
	if sess == nil {
		s.fail(CodeSessionUnavailable, "session does not exist", CloseSessionUnavailable)
		return
	}
	if !sess.IsInProgress() {
		s.fail(CodeSessionUnavailable, fmt.Sprintf("session is %s", sess.Status), CloseSessionUnavailable)
		return
	}
	s.session = sess

	set, err := uow.RecallSetRepository().FindByID(ctx, sess.RecallSetId)
	if err != nil || set == nil {
		s.fail(CodeSessionUnavailable, "recall set could not be loaded", CloseSessionUnavailable)
		return
	}
	s.set = set

	points, err := uow.RecallPointRepository().FindByIDs(ctx, sess.TargetRecallPointIds)
	if err != nil {
		s.fail(CodeSessionUnavailable, "recall points could not be loaded", CloseSessionUnavailable)
		return
	}
	for _, p := range points {
		s.points[p.Id] = p
	}

	// Looked up before the transcript loads: an evaluation that finishes in
	// between is then either seen here or visible in the loaded rows.
	inflight, evaluating := s.engine.evaluationInFlight(s.key)

	s.recorder = NewRecorder(s.key, s.engine.deps.UowFactory, s.engine.deps.Now, s.logger)
	if err := s.recorder.Load(ctx); err != nil {
		s.logger.Error("Session", "Failed to load transcript", map[string]interface{}{"session_id": s.key, "error": err})
		s.fail(CodeSessionUnavailable, "transcript could not be loaded", CloseSessionUnavailable)
		return
	}

	targets := sess.TargetRecallPointIds
	for s.targetIndex < len(targets) && s.recorder.Evaluated(targets[s.targetIndex]) {
		s.targetIndex++
	}

	s.phase = PhasePresenting
	if s.targetIndex < len(targets) {
		if open, ok := s.recorder.OpenEvaluation(targets[s.targetIndex]); ok {
			s.phase = PhaseAwaiting
			s.startSeq = open.Seq
			s.presentedAt = open.Timestamp
		}
		if evaluating && inflight.pointID == targets[s.targetIndex] {
			s.phase = PhaseEvaluating
			s.awaitEvaluation(inflight)
		}
	}

	resetChunks := s.restoreSnapshot()

	s.setState(StateActive)
	s.send(TypeSessionReady, SessionReadyPayload{
		RecallSetName:          set.Name,
		TargetRecallPointCount: len(targets),
		EvaluatedCount:         s.targetIndex,
		CurrentIndex:           s.targetIndex,
		Resumed:                s.id.Kind == gate.Resumed,
		RabbitholeDepth:        len(s.stack),
	})
	if resetChunks > 0 {
		s.send(TypeStreamReset, StreamResetPayload{DiscardedChunks: resetChunks})
	}

	s.logger.Info("Session", "Session attached", map[string]interface{}{
		"session_id":   s.key,
		"kind":         s.id.Kind.String(),
		"target_index": s.targetIndex,
		"phase":        string(s.phase),
	})

	if s.targetIndex >= len(targets) {
		s.complete()
		return
	}
	if s.phase == PhasePresenting {
		s.present()
	}
	s.refreshState()
}

// awaitEvaluation delivers the result of an evaluation started by an earlier
// connection once it has been persisted.
func (s *Session) awaitEvaluation(p *pendingEvaluation) {
	s.logger.Info("Session", "Waiting for evaluation from previous connection", map[string]interface{}{
		"session_id":      s.key,
		"recall_point_id": p.pointID.String(),
	})
	s.spawn(func() {
		select {
		case <-p.done:
			s.post(evaluationEvent{outcome: p.outcome, adopted: true})
		case <-s.ctx.Done():
		}
	})
}

// restoreSnapshot applies the snapshot of a resumed connection and returns how
// many already-delivered chunks of an interrupted stream the client must drop.
// Fresh connections discard any snapshot.
func (s *Session) restoreSnapshot() int {
	snaps := s.engine.deps.Snapshots
	if snaps == nil {
		return 0
	}
	if s.id.Kind == gate.Fresh {
		snaps.Delete(s.key)
		return 0
	}

	snap, ok := snaps.Get(s.key)
	if !ok {
		return 0
	}
	snaps.Delete(s.key)

	reset := 0
	if !snap.StreamComplete {
		reset = snap.ChunkIndex
	}
	if snap.TargetIndex != s.targetIndex || s.phase != PhaseAwaiting {
		return reset
	}

	if snap.StreamComplete {
		s.stream.chunks = append([]string(nil), snap.Chunks...)
		s.stream.index = snap.ChunkIndex
	}
	s.stack = append(s.stack[:0], snap.Stack...)
	if len(s.stack) > 0 {
		s.phase = PhaseExploring
	}
	if snap.Proposal != nil {
		s.proposal = &tangent.Proposal{Topic: snap.Proposal.Topic, Depth: snap.Proposal.Depth}
		s.proposalFromAnswer = len(s.stack) == 0
	}
	return reset
}

func (s *Session) currentPointID() uuid.UUID {
	return s.session.TargetRecallPointIds[s.targetIndex]
}

func (s *Session) currentPoint() *entity.RecallPoint {
	id := s.currentPointID()
	if p, ok := s.points[id]; ok {
		return p
	}
	return &entity.RecallPoint{Id: id, RecallSetId: s.session.RecallSetId}
}

func (s *Session) present() {
	s.phase = PhasePresenting
	set, point := s.set, s.currentPoint()
	tut := s.engine.deps.Tutor

	s.startStream(streamPresentation, func(ctx context.Context, emit llm.ChunkHandler) error {
		return tut.Present(ctx, set, point, emit)
	})
}

func (s *Session) completePresentation() {
	pointID := s.currentPointID()
	content := s.stream.text()

	msg, err := s.recorder.Append(s.ctx, entity.MessageRoleAssistant, content,
		&entity.EvaluationMarker{IsStart: true, RecallPointId: pointID}, nil)
	s.logWriteError("presentation", err)

	s.phase = PhaseAwaiting
	s.startSeq = msg.Seq
	s.presentedAt = msg.Timestamp

	s.send(TypeAssistantComplete, AssistantCompletePayload{
		Content:       content,
		MessageSeq:    msg.Seq,
		ChunkCount:    len(s.stream.chunks),
		RecallPointId: pointID.String(),
	})
}

func (s *Session) logWriteError(what string, err error) {
	if err != nil {
		s.logger.Warn("Session", "Transcript write deferred", map[string]interface{}{
			"session_id": s.key,
			"what":       what,
			"error":      err,
		})
	}
}

func (s *Session) onUserMessage(msg *InboundMessage) *Error {
	if msg.RecallPointId != "" {
		id := uuid.MustParse(msg.RecallPointId)
		idx := s.session.TargetIndex(id)
		if idx < 0 {
			return newError(KindStateConflict, CodePointNotInTarget, "recall point %s is not part of this session", id)
		}
		if idx != s.targetIndex {
			return newError(KindStateConflict, CodePointNotCurrent, "recall point %s is not the current point", id)
		}
	}

	switch s.phase {
	case PhaseAwaiting, PhaseExploring:
	default:
		return newError(KindProtocol, CodeTurnNotExpected, "no user turn expected while %s", s.phase)
	}

	// A new message supersedes an unanswered proposal.
	s.proposal = nil
	s.proposalFromAnswer = false

	_, err := s.recorder.Append(s.ctx, entity.MessageRoleUser, msg.Content, nil, nil)
	s.logWriteError("user message", err)

	s.detect()
	return nil
}

// detect runs the tangent detector on the latest exchange. Detector failures
// count as "no tangent".
func (s *Session) detect() {
	s.phase = PhaseDetecting

	from := s.startSeq
	if len(s.stack) > 0 {
		from = s.stack[len(s.stack)-1].TriggerSeq
	}
	conversation := s.conversation(from)
	depth := len(s.stack)
	det := s.engine.deps.Detector
	cfg := s.engine.cfg
	b := s.engine.retryBackOff()

	s.spawn(func() {
		ctx, cancel := context.WithTimeout(s.ctx, cfg.EvaluationTimeout)
		defer cancel()

		proposal, err := backoff.Retry(ctx, func() (*tangent.Proposal, error) {
			return det.Detect(ctx, conversation, depth)
		}, backoff.WithBackOff(b), backoff.WithMaxTries(2))
		if err != nil {
			s.logger.Warn("Session", "Tangent detection failed", map[string]interface{}{"session_id": s.key, "error": err})
			proposal = nil
		}
		s.post(detectionEvent{proposal: proposal})
	})
}

func (s *Session) onDetection(e detectionEvent) {
	if s.phase != PhaseDetecting {
		return
	}
	exploring := len(s.stack) > 0

	if p := e.proposal; p != nil && p.Depth <= s.engine.cfg.MaxRabbitholeDepth && p.Depth == len(s.stack)+1 {
		s.proposal = p
		s.proposalFromAnswer = !exploring
		if exploring {
			s.phase = PhaseExploring
		} else {
			s.phase = PhaseAwaiting
		}
		s.send(TypeRabbitholeProposed, RabbitholePayload{Topic: p.Topic, Depth: p.Depth})
		return
	}

	if exploring {
		s.phase = PhaseExploring
		s.replyInTangent()
		return
	}
	s.evaluate()
}

// conversation converts transcript messages from seq onwards into collaborator
// input, dropping system markers and keeping at most HistoryWindow entries.
func (s *Session) conversation(fromSeq int) []llm.Message {
	msgs := s.recorder.Messages(fromSeq)
	out := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == entity.MessageRoleSystem {
			continue
		}
		out = append(out, llm.Message{Role: m.Role, Content: m.Content})
	}
	if w := s.engine.cfg.HistoryWindow; w > 0 && len(out) > w {
		out = out[len(out)-w:]
	}
	return out
}

// evaluate judges the current point in the background. The task is detached
// from the connection: once started, its outcome is persisted even if the
// session closes first.
func (s *Session) evaluate() {
	s.phase = PhaseEvaluating

	point := s.currentPoint()
	conversation := s.conversation(s.startSeq)
	startSeq := s.startSeq
	presentedAt := s.presentedAt
	deps := s.engine.deps
	cfg := s.engine.cfg
	b := s.engine.retryBackOff()
	rec := s.recorder
	key := s.key
	recallSetID := s.session.RecallSetId
	inflight := s.engine.beginEvaluation(key, point.Id)

	s.spawn(func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), cfg.EvaluationTimeout)
		defer cancel()

		verdict, err := backoff.Retry(ctx, func() (judge.Verdict, error) {
			return deps.Judge.Evaluate(ctx, point, conversation)
		}, backoff.WithBackOff(b), backoff.WithMaxTries(2))

		indeterminate := false
		if err != nil {
			s.logger.Warn("Session", "Judge failed twice, recording indeterminate outcome", map[string]interface{}{
				"session_id":      key,
				"recall_point_id": point.Id.String(),
				"error":           err,
			})
			indeterminate = true
			verdict = judge.Verdict{
				Success:    false,
				Confidence: 0,
				Rating:     entity.RatingForgot,
				Reasoning:  fmt.Sprintf("evaluation failed: %v", err),
			}
		}

		success, confidence := verdict.Success, verdict.Confidence
		end, werr := rec.Append(ctx, entity.MessageRoleSystem, verdict.Reasoning,
			&entity.EvaluationMarker{IsEnd: true, RecallPointId: point.Id, Success: &success, Confidence: &confidence}, nil)
		if werr != nil {
			s.logger.Warn("Session", "Transcript write deferred", map[string]interface{}{"session_id": key, "error": werr})
		}

		now := deps.Now()
		outcome := &entity.RecallOutcome{
			Id:                uuid.New(),
			SessionId:         key,
			RecallPointId:     point.Id,
			Success:           verdict.Success,
			Confidence:        verdict.Confidence,
			Rating:            verdict.Rating,
			Reasoning:         verdict.Reasoning,
			MessageIndexStart: startSeq,
			MessageIndexEnd:   end.Seq,
			TimeSpentMs:       now.Sub(presentedAt).Milliseconds(),
			Indeterminate:     indeterminate,
			CreatedAt:         now,
		}
		accepted, oerr := rec.RecordOutcome(ctx, outcome)
		if oerr != nil {
			s.logger.Error("Session", "Outcome write deferred", map[string]interface{}{"session_id": key, "error": oerr})
		}

		if !accepted {
			s.logger.Warn("Session", "Outcome already recorded, scheduler left unchanged", map[string]interface{}{
				"session_id":      key,
				"recall_point_id": point.Id.String(),
			})
			if stored, ok := rec.Outcome(point.Id); ok {
				outcome = stored
			}
		} else {
			if _, err := deps.Oracle.RecordOutcome(ctx, point.Id, verdict.Success, verdict.Confidence); err != nil {
				s.logger.Error("Session", "Scheduler update failed", map[string]interface{}{
					"session_id":      key,
					"recall_point_id": point.Id.String(),
					"error":           err,
				})
			}
			_ = deps.Events.Publish(ctx, events.NewSessionEvent(events.RecallOutcomeRecorded, key, map[string]interface{}{
				"recall_set_id":   recallSetID.String(),
				"recall_point_id": point.Id.String(),
				"success":         verdict.Success,
				"confidence":      verdict.Confidence,
				"rating":          verdict.Rating,
				"indeterminate":   indeterminate,
			}))
		}

		s.engine.endEvaluation(key, inflight, outcome)
		s.post(evaluationEvent{outcome: outcome})
	})
}

func (s *Session) onEvaluation(e evaluationEvent) {
	if s.phase != PhaseEvaluating {
		return
	}
	o := e.outcome
	if o.RecallPointId != s.currentPointID() {
		return
	}
	if e.adopted {
		if err := s.recorder.Sync(s.ctx); err != nil {
			s.logger.Warn("Session", "Failed to reload transcript after evaluation", map[string]interface{}{"session_id": s.key, "error": err})
		}
	}
	s.targetIndex++
	total := len(s.session.TargetRecallPointIds)

	s.send(TypeEvaluationResult, EvaluationPayload{
		RecallPointId: o.RecallPointId.String(),
		Success:       o.Success,
		Confidence:    o.Confidence,
		Rating:        o.Rating,
		Reasoning:     o.Reasoning,
		Indeterminate: o.Indeterminate,
		Remaining:     total - s.targetIndex,
	})

	if s.targetIndex >= total {
		s.complete()
		return
	}
	s.present()
}

// complete marks the session completed and closes the connection.
func (s *Session) complete() {
	s.phase = PhaseComplete
	outcomes := s.recorder.Outcomes()
	rate := metrics.RecallRate(outcomes)

	s.finish(entity.SessionStatusCompleted, events.SessionCompleted, map[string]interface{}{"recall_rate": rate})

	s.send(TypeSessionComplete, SessionCompletePayload{
		RecallRate:      rate,
		EvaluatedPoints: len(outcomes),
		TotalPoints:     len(s.session.TargetRecallPointIds),
	})
	s.requestClose(CloseCompleted)
}

func (s *Session) abandon() {
	s.finish(entity.SessionStatusAbandoned, events.SessionAbandoned, nil)
	s.requestClose(CloseAbandoned)
}

// finish moves the stored session out of in_progress. The row is re-read first
// so a status set elsewhere (e.g. an abandon over REST) is not overwritten.
func (s *Session) finish(status, eventType string, extra map[string]interface{}) {
	ctx := context.WithoutCancel(s.ctx)
	uow := s.engine.deps.UowFactory.NewUnitOfWork(ctx)
	repo := uow.SessionRepository()

	current, err := repo.FindByID(ctx, s.key)
	if err != nil || current == nil {
		s.logger.Error("Session", "Failed to reload session before finishing", map[string]interface{}{"session_id": s.key, "error": err})
		return
	}
	if !current.IsInProgress() {
		s.session = current
		return
	}

	now := s.engine.deps.Now()
	current.Status = status
	current.EndedAt = &now
	current.UpdatedAt = &now
	if err := repo.Update(ctx, current); err != nil {
		s.logger.Error("Session", "Failed to update session status", map[string]interface{}{"session_id": s.key, "status": status, "error": err})
		return
	}
	s.session = current

	data := map[string]interface{}{"recall_set_id": current.RecallSetId.String(), "status": status}
	for k, v := range extra {
		data[k] = v
	}
	if err := s.engine.deps.Events.Publish(ctx, events.NewSessionEvent(eventType, s.key, data)); err != nil {
		s.logger.Warn("Session", "Failed to publish session event", map[string]interface{}{"session_id": s.key, "event": eventType, "error": err})
	}

	s.logger.Info("Session", "Session finished", map[string]interface{}{
		"session_id": s.key,
		"status":     status,
		"started_at": current.StartedAt.Format(time.RFC3339),
	})
}
