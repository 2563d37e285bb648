package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"recall-be/internal/entity"
	"recall-be/internal/pkg/logger"
	"recall-be/pkg/recall/gate"
	"recall-be/pkg/recall/tangent"
	"recall-be/pkg/store"

	"github.com/google/uuid"
)

type State string

const (
	StateAttached  State = "attached"
	StateActive    State = "active"
	StateStreaming State = "streaming"
	StateWaiting   State = "waiting"
	StateClosing   State = "closing"
	StateClosed    State = "closed"
)

// Phase is the turn controller's position.
type Phase string

const (
	PhasePresenting Phase = "presenting"
	PhaseAwaiting   Phase = "awaiting"
	PhaseDetecting  Phase = "detecting"
	PhaseEvaluating Phase = "evaluating"
	PhaseExploring  Phase = "exploring"
	PhaseComplete   Phase = "complete"
)

const closeFlushTimeout = 10 * time.Second

// Session is the actor for one live connection. All fields below the channel
// block are owned by the Run goroutine; background tasks report back through
// the events channel.
type Session struct {
	engine    *Engine
	id        gate.SessionID
	key       string
	transport Transport
	logger    logger.ILogger

	inbox    chan []byte
	events   chan interface{}
	closeReq chan CloseReason
	done     chan struct{}

	startOnce sync.Once
	closeOnce sync.Once
	tasks     sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc

	stateMu sync.RWMutex
	state   State

	finalReason CloseReason

	// actor-owned
	session  *entity.Session
	set      *entity.RecallSet
	points   map[uuid.UUID]*entity.RecallPoint
	recorder *Recorder

	targetIndex int
	phase       Phase
	startSeq    int
	presentedAt time.Time
	stream      streamBuffer

	stack              []store.ResumeFrame
	proposal           *tangent.Proposal
	proposalFromAnswer bool

	budget          errorBudget
	lastMessageTime time.Time
	pongPending     bool
	pongTimer       *time.Timer
	heartbeatSeq    int

	closing     bool
	closeReason CloseReason
}

func newSession(e *Engine, id gate.SessionID, t Transport) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		engine:          e,
		id:              id,
		key:             id.Key(),
		transport:       t,
		logger:          e.deps.Logger,
		inbox:           make(chan []byte, e.cfg.InboxSize),
		events:          make(chan interface{}, 64),
		closeReq:        make(chan CloseReason, 1),
		done:            make(chan struct{}),
		ctx:             ctx,
		cancel:          cancel,
		state:           StateAttached,
		budget:          errorBudget{max: e.cfg.MaxConsecutiveErrors},
		lastMessageTime: e.deps.Now(),
		points:          make(map[uuid.UUID]*entity.RecallPoint),
	}
}

func (s *Session) ID() gate.SessionID { return s.id }

func (s *Session) Key() string { return s.key }

func (s *Session) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.stateMu.Lock()
	s.state = st
	s.stateMu.Unlock()
}

// Done is closed once the session has fully shut down.
func (s *Session) Done() <-chan struct{} { return s.done }

// CloseReason is valid after Done is closed.
func (s *Session) CloseReason() CloseReason {
	<-s.done
	return s.finalReason
}

// Wait blocks until every background task has returned, including evaluations
// that outlive the connection.
func (s *Session) Wait() {
	<-s.done
	s.tasks.Wait()
}

// Deliver queues a raw inbound frame.
func (s *Session) Deliver(raw []byte) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	select {
	case s.inbox <- raw:
		return nil
	case <-s.done:
		return ErrSessionClosed
	}
}

// Close asks the session to shut down. Calling it on a closed session is a no-op.
func (s *Session) Close(reason CloseReason) {
	select {
	case s.closeReq <- reason:
	case <-s.done:
	default:
		// a close is already queued
	}
}

// Disconnect reports that the client went away.
func (s *Session) Disconnect() {
	s.Close(CloseClientDisconnect)
}

// Run drives the session until it closes. It must be called exactly once.
func (s *Session) Run(ctx context.Context) {
	alreadyStarted := true
	s.startOnce.Do(func() { alreadyStarted = false })
	if alreadyStarted {
		return
	}

	cfg := s.engine.cfg
	heartbeat := time.NewTicker(cfg.HeartbeatInterval)
	idle := time.NewTicker(cfg.IdleCheckInterval)
	s.pongTimer = time.NewTimer(cfg.PongTimeout)
	s.pongTimer.Stop()
	defer func() {
		heartbeat.Stop()
		idle.Stop()
		s.pongTimer.Stop()
	}()

	s.initialize()

	for !s.closing {
		var pongC <-chan time.Time
		if s.pongPending {
			pongC = s.pongTimer.C
		}

		select {
		case <-ctx.Done():
			s.requestClose(CloseShutdown)
		case reason := <-s.closeReq:
			s.requestClose(reason)
		case raw := <-s.inbox:
			s.handleInbound(raw)
		case ev := <-s.events:
			s.handleEvent(ev)
		case <-heartbeat.C:
			s.probe()
		case <-pongC:
			s.onPongTimeout()
		case <-idle.C:
			s.checkIdle()
		}
	}

	s.shutdown()
}

func (s *Session) requestClose(reason CloseReason) {
	if s.closing {
		return
	}
	s.closing = true
	s.closeReason = reason
	s.setState(StateClosing)
}

func (s *Session) spawn(fn func()) {
	s.tasks.Add(1)
	go func() {
		defer s.tasks.Done()
		fn()
	}()
}

// post hands a task result to the actor. Results for a closed session are dropped.
func (s *Session) post(ev interface{}) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

func (s *Session) send(typ string, data interface{}) {
	if s.State() == StateClosed {
		return
	}
	err := s.transport.Send(OutboundMessage{Type: typ, SessionID: s.key, Data: data})
	if err != nil {
		s.logger.Warn("Session", "Send failed, closing", map[string]interface{}{
			"session_id": s.key,
			"type":       typ,
			"error":      err,
		})
		s.requestClose(CloseClientDisconnect)
	}
}

// reject reports e to the client and charges the error budget.
func (s *Session) reject(e *Error) {
	s.send(TypeError, ErrorPayload{Code: e.Code, Kind: e.Kind, Message: e.Message})
	if s.budget.fail() {
		s.logger.Warn("Session", "Error budget exhausted", map[string]interface{}{
			"session_id": s.key,
			"last_code":  e.Code,
		})
		s.requestClose(CloseTooManyErrors)
	}
}

func (s *Session) refreshState() {
	if s.closing {
		return
	}
	if s.stream.active {
		s.setState(StateStreaming)
		return
	}
	s.setState(StateWaiting)
}

func (s *Session) handleInbound(raw []byte) {
	defer s.refreshState()

	now := s.engine.deps.Now()
	s.lastMessageTime = now
	msg, perr := parseInbound(s.engine.validate, raw)
	if perr != nil {
		s.reject(perr)
		return
	}

	var err *Error
	switch msg.Type {
	case TypePing:
		s.send(TypePong, HeartbeatPayload{Timestamp: now.UnixMilli()})
	case TypePong:
		s.onPong()
		return
	case TypeAbandon:
		s.abandon()
		return
	case TypeResend:
		err = s.resend(*msg.FromChunk)
	default:
		if s.stream.active {
			err = errStreamInProgress
			break
		}
		switch msg.Type {
		case TypeUserMessage:
			err = s.onUserMessage(msg)
		case TypeEnterRabbithole:
			err = s.enterRabbithole(msg.Topic)
		case TypeDeclineRabbithole:
			err = s.declineRabbithole()
		case TypeExitRabbithole:
			err = s.exitRabbithole()
		}
	}

	if err != nil {
		s.reject(err)
		return
	}
	s.budget.reset()
}

func (s *Session) handleEvent(ev interface{}) {
	defer s.refreshState()

	switch e := ev.(type) {
	case chunkEvent:
		s.onChunk(e)
	case streamDoneEvent:
		s.onStreamDone(e)
	case detectionEvent:
		s.onDetection(e)
	case evaluationEvent:
		s.onEvaluation(e)
	}
}

func (s *Session) probe() {
	if s.pongPending {
		return
	}
	s.heartbeatSeq++
	s.send(TypePing, HeartbeatPayload{Seq: s.heartbeatSeq, Timestamp: s.engine.deps.Now().UnixMilli()})
	s.pongPending = true
	s.pongTimer.Reset(s.engine.cfg.PongTimeout)
}

// onPong settles an outstanding probe. Unsolicited pongs change nothing.
func (s *Session) onPong() {
	if !s.pongPending {
		return
	}
	s.pongTimer.Stop()
	s.pongPending = false
	s.budget.reset()
}

func (s *Session) onPongTimeout() {
	s.pongPending = false
	s.reject(newError(KindResource, CodeHeartbeatTimeout, "no heartbeat reply within %s", s.engine.cfg.PongTimeout))
}

func (s *Session) checkIdle() {
	if s.engine.deps.Now().Sub(s.lastMessageTime) > s.engine.cfg.IdleTimeout {
		s.logger.Info("Session", "Idle timeout", map[string]interface{}{"session_id": s.key})
		s.requestClose(CloseIdle)
	}
}

func (s *Session) resend(from int) *Error {
	if from < 0 || from > s.stream.index {
		return newError(KindValidation, CodeInvalidChunkIndex, "chunk %d is outside [0, %d]", from, s.stream.index)
	}
	for i := from; i < s.stream.index; i++ {
		s.send(TypeAssistantChunk, ChunkPayload{Index: i, Content: s.stream.chunks[i]})
	}
	return nil
}

// fail closes the session after an unrecoverable setup problem.
func (s *Session) fail(code, message string, reason CloseReason) {
	s.send(TypeError, ErrorPayload{Code: code, Kind: KindStateConflict, Message: message})
	s.requestClose(reason)
}

func (s *Session) shutdown() {
	s.cancel()
	reason := s.closeReason

	if reason != CloseClientDisconnect {
		s.send(TypeClosing, ClosingPayload{Reason: reason})
	}
	s.saveSnapshot()

	if s.recorder != nil {
		ctx, cancel := context.WithTimeout(context.Background(), closeFlushTimeout)
		_ = s.recorder.Flush(ctx, s.engine.cfg.RetryInterval, 3)
		cancel()
	}

	if err := s.transport.Close(reason); err != nil && !errors.Is(err, ErrSessionClosed) {
		s.logger.Debug("Session", "Transport close failed", map[string]interface{}{"session_id": s.key, "error": err})
	}

	s.finalReason = reason
	s.setState(StateClosed)
	s.closeOnce.Do(func() { close(s.done) })

	s.logger.Info("Session", "Session closed", map[string]interface{}{
		"session_id": s.key,
		"reason":     string(reason),
	})
}

func (s *Session) saveSnapshot() {
	snaps := s.engine.deps.Snapshots
	if snaps == nil || s.session == nil {
		return
	}
	if !s.session.IsInProgress() || s.phase == PhaseComplete || s.closeReason == CloseAbandoned {
		snaps.Delete(s.key)
		return
	}

	phase := s.phase
	if phase == PhaseDetecting || phase == PhaseEvaluating {
		phase = PhaseAwaiting
	}
	snaps.Save(&store.SessionSnapshot{
		SessionID:      s.key,
		TargetIndex:    s.targetIndex,
		Phase:          string(phase),
		StartSeq:       s.startSeq,
		Chunks:         append([]string(nil), s.stream.chunks...),
		ChunkIndex:     s.stream.index,
		StreamComplete: !s.stream.active,
		Stack:          append([]store.ResumeFrame(nil), s.stack...),
		Proposal:       toStoredProposal(s.proposal),
		SavedAt:        s.engine.deps.Now(),
	})
}

func toStoredProposal(p *tangent.Proposal) *store.TangentProposal {
	if p == nil {
		return nil
	}
	return &store.TangentProposal{Topic: p.Topic, Depth: p.Depth}
}
