package engine

import (
	"context"

	"recall-be/internal/entity"
	"recall-be/pkg/events"
	"recall-be/pkg/llm"
	"recall-be/pkg/store"

	"github.com/google/uuid"
)

func (s *Session) topFrame() *store.ResumeFrame {
	if len(s.stack) == 0 {
		return nil
	}
	return &s.stack[len(s.stack)-1]
}

// enterRabbithole accepts the pending proposal. Without a proposal the client
// may still open a tangent by naming a topic explicitly.
func (s *Session) enterRabbithole(topic string) *Error {
	switch s.phase {
	case PhaseAwaiting, PhaseExploring:
	default:
		return newError(KindProtocol, CodeTurnNotExpected, "cannot enter a tangent while %s", s.phase)
	}

	depth := len(s.stack) + 1
	if s.proposal != nil {
		topic = s.proposal.Topic
	} else if topic == "" {
		return errNoTangent
	}
	if depth > s.engine.cfg.MaxRabbitholeDepth {
		return newError(KindProtocol, CodeMaxDepthExceeded, "tangents may nest at most %d deep", s.engine.cfg.MaxRabbitholeDepth)
	}

	marker := &entity.RabbitholeMarker{IsTrigger: true, Topic: topic, Depth: depth}
	msg, err := s.recorder.Append(s.ctx, entity.MessageRoleSystem, "Entered tangent: "+topic, nil, marker)
	s.logWriteError("rabbithole trigger", err)

	s.stack = append(s.stack, store.ResumeFrame{
		Topic:       topic,
		Depth:       depth,
		TriggerSeq:  msg.Seq,
		TargetIndex: s.targetIndex,
		Phase:       string(s.phase),
		StartSeq:    s.startSeq,
		Chunks:      append([]string(nil), s.stream.chunks...),
		ChunkIndex:  s.stream.index,
		EnteredAt:   s.engine.deps.Now(),
	})
	s.proposal = nil
	s.proposalFromAnswer = false
	s.phase = PhaseExploring

	s.recordRabbithole(entity.RabbitholeStatusEntered, events.RabbitholeEntered, topic, depth)
	s.send(TypeRabbitholeEntered, RabbitholePayload{Topic: topic, Depth: depth})

	s.replyInTangent()
	return nil
}

// declineRabbithole drops the proposal. A proposal raised by an answer to the
// current point sends that answer on to the judge.
func (s *Session) declineRabbithole() *Error {
	if s.proposal == nil {
		return errNoTangent
	}
	p := s.proposal
	fromAnswer := s.proposalFromAnswer
	s.proposal = nil
	s.proposalFromAnswer = false

	marker := &entity.RabbitholeMarker{Topic: p.Topic, Depth: p.Depth, Declined: true}
	_, err := s.recorder.Append(s.ctx, entity.MessageRoleSystem, "Declined tangent: "+p.Topic, nil, marker)
	s.logWriteError("rabbithole decline", err)

	s.recordRabbithole(entity.RabbitholeStatusDeclined, events.RabbitholeDeclined, p.Topic, p.Depth)
	s.send(TypeRabbitholeDeclined, RabbitholePayload{Topic: p.Topic, Depth: p.Depth})

	switch {
	case len(s.stack) > 0:
		s.replyInTangent()
	case fromAnswer:
		s.evaluate()
	}
	return nil
}

// exitRabbithole pops one level and puts the turn controller back exactly
// where it was when that level was entered.
func (s *Session) exitRabbithole() *Error {
	frame := s.topFrame()
	if frame == nil {
		return errNotInRabbithole
	}
	switch s.phase {
	case PhaseAwaiting, PhaseExploring:
	default:
		return newError(KindProtocol, CodeTurnNotExpected, "cannot leave a tangent while %s", s.phase)
	}
	f := *frame
	s.stack = s.stack[:len(s.stack)-1]

	marker := &entity.RabbitholeMarker{IsReturn: true, Topic: f.Topic, Depth: f.Depth}
	_, err := s.recorder.Append(s.ctx, entity.MessageRoleSystem, "Returned from tangent: "+f.Topic, nil, marker)
	s.logWriteError("rabbithole return", err)

	s.targetIndex = f.TargetIndex
	s.phase = Phase(f.Phase)
	s.startSeq = f.StartSeq
	s.stream.chunks = append([]string(nil), f.Chunks...)
	s.stream.index = f.ChunkIndex
	s.proposal = nil
	s.proposalFromAnswer = false

	s.recordRabbithole(entity.RabbitholeStatusExited, events.RabbitholeExited, f.Topic, f.Depth)
	idx := s.targetIndex
	s.send(TypeRabbitholeExited, RabbitholePayload{Topic: f.Topic, Depth: f.Depth, TargetIndex: &idx})
	return nil
}

// replyInTangent streams the tutor's answer to the latest tangent message.
func (s *Session) replyInTangent() {
	frame := s.topFrame()
	if frame == nil {
		return
	}
	topic := frame.Topic
	history := s.conversation(frame.TriggerSeq)
	tut := s.engine.deps.Tutor

	s.startStream(streamTangent, func(ctx context.Context, emit llm.ChunkHandler) error {
		return tut.Explore(ctx, topic, history, emit)
	})
}

func (s *Session) completeTangentReply() {
	content := s.stream.text()
	msg, err := s.recorder.Append(s.ctx, entity.MessageRoleAssistant, content, nil, nil)
	s.logWriteError("tangent reply", err)

	topic := ""
	if f := s.topFrame(); f != nil {
		topic = f.Topic
	}
	s.send(TypeAssistantComplete, AssistantCompletePayload{
		Content:    content,
		MessageSeq: msg.Seq,
		ChunkCount: len(s.stream.chunks),
		Topic:      topic,
	})
}

func (s *Session) recordRabbithole(status, eventType, topic string, depth int) {
	ctx := s.ctx
	event := &entity.RabbitholeEvent{
		Id:          uuid.New(),
		SessionId:   s.key,
		Topic:       topic,
		Depth:       depth,
		Status:      status,
		ResumeIndex: s.targetIndex,
		ChunkIndex:  s.stream.index,
		CreatedAt:   s.engine.deps.Now(),
	}
	uow := s.engine.deps.UowFactory.NewUnitOfWork(ctx)
	if err := uow.RabbitholeEventRepository().Create(ctx, event); err != nil {
		s.logger.Warn("Session", "Failed to store rabbithole event", map[string]interface{}{"session_id": s.key, "error": err})
	}
	_ = s.engine.deps.Events.Publish(ctx, events.NewSessionEvent(eventType, s.key, map[string]interface{}{
		"topic": topic,
		"depth": depth,
	}))
}
