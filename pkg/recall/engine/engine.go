// Package engine runs live recall sessions: one actor per connection owning
// heartbeats, streaming, the turn loop and tangents.
package engine

import (
	"errors"
	"sync"
	"time"

	"recall-be/internal/entity"
	"recall-be/internal/pkg/logger"
	"recall-be/internal/repository/unitofwork"
	"recall-be/pkg/events"
	"recall-be/pkg/recall/gate"
	"recall-be/pkg/recall/judge"
	"recall-be/pkg/recall/scheduler"
	"recall-be/pkg/recall/tangent"
	"recall-be/pkg/recall/tutor"
	"recall-be/pkg/store"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Transport is the client side of one connection. Send must not block for long.
type Transport interface {
	Send(msg OutboundMessage) error
	Close(reason CloseReason) error
}

// SnapshotStore keeps connection-bound state between a disconnect and a reconnect.
type SnapshotStore interface {
	Save(snapshot *store.SessionSnapshot)
	Get(sessionID string) (*store.SessionSnapshot, bool)
	Delete(sessionID string)
}

type Dependencies struct {
	UowFactory unitofwork.RepositoryFactory
	Oracle     scheduler.Oracle
	Judge      judge.Judge
	Detector   tangent.Detector
	Tutor      tutor.Tutor
	Snapshots  SnapshotStore
	Events     events.Publisher
	Logger     logger.ILogger
	Now        func() time.Time
}

type Engine struct {
	cfg      Config
	deps     Dependencies
	validate *validator.Validate

	mu          sync.Mutex
	evaluations map[string]*pendingEvaluation
}

// pendingEvaluation is a judge run that may outlive the connection that
// started it. done is closed after the outcome is persisted.
type pendingEvaluation struct {
	pointID uuid.UUID
	done    chan struct{}
	outcome *entity.RecallOutcome
}

func NewEngine(cfg Config, deps Dependencies) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.UowFactory == nil || deps.Oracle == nil || deps.Judge == nil {
		return nil, errors.New("session engine needs a repository factory, an oracle and a judge")
	}
	if deps.Detector == nil {
		deps.Detector = tangent.Disabled{}
	}
	if deps.Tutor == nil {
		deps.Tutor = tutor.NewScripted()
	}
	if deps.Events == nil {
		deps.Events = events.NopPublisher{}
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNopLogger()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &Engine{
		cfg:         cfg,
		deps:        deps,
		validate:    validator.New(),
		evaluations: make(map[string]*pendingEvaluation),
	}, nil
}

func (e *Engine) Config() Config {
	return e.cfg
}

// NewSession allocates connection-bound state for a validated id. Nothing
// happens until Run is called.
func (e *Engine) NewSession(id gate.SessionID, t Transport) *Session {
	return newSession(e, id, t)
}

// retryBackOff is used for the single retry of judge and detector calls.
func (e *Engine) retryBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.cfg.RetryInterval
	if b.InitialInterval <= 0 {
		return &backoff.ZeroBackOff{}
	}
	b.MaxInterval = 10 * e.cfg.RetryInterval
	return b
}

func (e *Engine) beginEvaluation(sessionKey string, pointID uuid.UUID) *pendingEvaluation {
	p := &pendingEvaluation{pointID: pointID, done: make(chan struct{})}
	e.mu.Lock()
	e.evaluations[sessionKey] = p
	e.mu.Unlock()
	return p
}

func (e *Engine) endEvaluation(sessionKey string, p *pendingEvaluation, outcome *entity.RecallOutcome) {
	p.outcome = outcome
	e.mu.Lock()
	if e.evaluations[sessionKey] == p {
		delete(e.evaluations, sessionKey)
	}
	e.mu.Unlock()
	close(p.done)
}

// evaluationInFlight returns the unfinished evaluation of a session, if any.
func (e *Engine) evaluationInFlight(sessionKey string) (*pendingEvaluation, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.evaluations[sessionKey]
	return p, ok
}
