package engine

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"recall-be/internal/entity"
	"recall-be/internal/repository/memory"
	"recall-be/internal/repository/unitofwork"
	"recall-be/pkg/events"
	"recall-be/pkg/llm"
	"recall-be/pkg/recall/gate"
	"recall-be/pkg/recall/judge"
	"recall-be/pkg/recall/tangent"
	"recall-be/pkg/recall/tutor"
	"recall-be/pkg/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 3 * time.Second

type fakeTransport struct {
	mu     sync.Mutex
	sent   []OutboundMessage
	ch     chan OutboundMessage
	closes []CloseReason
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{ch: make(chan OutboundMessage, 4096)}
}

func (f *fakeTransport) Send(msg OutboundMessage) error {
	f.mu.Lock()
	f.sent = append(f.sent, msg)
	f.mu.Unlock()
	select {
	case f.ch <- msg:
	default:
	}
	return nil
}

func (f *fakeTransport) Close(reason CloseReason) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes = append(f.closes, reason)
	return nil
}

func (f *fakeTransport) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.closes)
}

func (f *fakeTransport) countType(typ string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.sent {
		if m.Type == typ {
			n++
		}
	}
	return n
}

// expect skips frames until one of type typ arrives.
func (f *fakeTransport) expect(t *testing.T, typ string) OutboundMessage {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case m := <-f.ch:
			if m.Type == typ {
				return m
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q frame", typ)
			return OutboundMessage{}
		}
	}
}

// expectError skips frames until an error frame with code arrives.
func (f *fakeTransport) expectError(t *testing.T, code string) ErrorPayload {
	t.Helper()
	for {
		m := f.expect(t, TypeError)
		p := m.Data.(ErrorPayload)
		if p.Code == code {
			return p
		}
	}
}

type oracleCall struct {
	pointID    uuid.UUID
	success    bool
	confidence float64
}

type spyOracle struct {
	mu    sync.Mutex
	calls []oracleCall
}

func (o *spyOracle) DueItems(ctx context.Context, recallSetId uuid.UUID) ([]*entity.RecallPoint, error) {
	return nil, nil
}

func (o *spyOracle) RecordOutcome(ctx context.Context, id uuid.UUID, success bool, confidence float64) (*entity.RecallPoint, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, oracleCall{id, success, confidence})
	return &entity.RecallPoint{Id: id}, nil
}

func (o *spyOracle) Calls() []oracleCall {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]oracleCall(nil), o.calls...)
}

type fakeJudge struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
	verdict func(point *entity.RecallPoint) (judge.Verdict, error)
}

func (j *fakeJudge) Evaluate(ctx context.Context, point *entity.RecallPoint, conversation []llm.Message) (judge.Verdict, error) {
	j.mu.Lock()
	j.calls++
	release := j.release
	j.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return judge.Verdict{}, ctx.Err()
		}
	}
	if j.verdict == nil {
		return judge.Verdict{Success: true, Confidence: 0.9, Rating: entity.RatingEasy, Reasoning: "correct"}, nil
	}
	return j.verdict(point)
}

func (j *fakeJudge) Calls() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.calls
}

type fakeDetector struct {
	mu        sync.Mutex
	proposals []*tangent.Proposal
	calls     int
}

func (d *fakeDetector) Detect(ctx context.Context, conversation []llm.Message, currentDepth int) (*tangent.Proposal, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if len(d.proposals) == 0 {
		return nil, nil
	}
	p := d.proposals[0]
	d.proposals = d.proposals[1:]
	return p, nil
}

// blockingTutor emits one chunk and then waits for release.
type blockingTutor struct {
	release chan struct{}
}

func (b *blockingTutor) Present(ctx context.Context, set *entity.RecallSet, point *entity.RecallPoint, emit llm.ChunkHandler) error {
	if err := emit("What do you remember "); err != nil {
		return err
	}
	select {
	case <-b.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return emit("about this?")
}

func (b *blockingTutor) Explore(ctx context.Context, topic string, history []llm.Message, emit llm.ChunkHandler) error {
	return emit("tangent")
}

type fakeSnapshots struct {
	mu    sync.Mutex
	items map[string]*store.SessionSnapshot
}

func newFakeSnapshots() *fakeSnapshots {
	return &fakeSnapshots{items: make(map[string]*store.SessionSnapshot)}
}

func (f *fakeSnapshots) Save(s *store.SessionSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[s.SessionID] = s
}

func (f *fakeSnapshots) Get(id string) (*store.SessionSnapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.items[id]
	return s, ok
}

func (f *fakeSnapshots) Delete(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, id)
}

type fakeEvents struct {
	mu    sync.Mutex
	types []string
}

func (f *fakeEvents) Publish(ctx context.Context, e events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.types = append(f.types, e.EventType())
	return nil
}

func (f *fakeEvents) Types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.types...)
}

type fixture struct {
	db        *memory.Database
	uow       unitofwork.RepositoryFactory
	set       *entity.RecallSet
	points    []*entity.RecallPoint
	session   *entity.Session
	id        gate.SessionID
	oracle    *spyOracle
	judge     *fakeJudge
	detector  *fakeDetector
	snapshots *fakeSnapshots
	events    *fakeEvents
}

func newFixture(t *testing.T, pointCount int) *fixture {
	t.Helper()
	ctx := context.Background()
	db := memory.NewDatabase()
	factory := memory.NewRepositoryFactory(db)
	uow := factory.NewUnitOfWork(ctx)

	set := &entity.RecallSet{Id: uuid.New(), Name: "Cell biology", DiscussionPrompt: "We are reviewing cell biology."}
	require.NoError(t, uow.RecallSetRepository().Create(ctx, set))

	f := &fixture{
		db:        db,
		uow:       factory,
		set:       set,
		oracle:    &spyOracle{},
		judge:     &fakeJudge{},
		detector:  &fakeDetector{},
		snapshots: newFakeSnapshots(),
		events:    &fakeEvents{},
	}

	ids := make([]uuid.UUID, 0, pointCount)
	for i := 0; i < pointCount; i++ {
		p := &entity.RecallPoint{
			Id:          uuid.New(),
			RecallSetId: set.Id,
			Content:     "fact number " + string(rune('A'+i)),
			Context:     "topic " + string(rune('A'+i)),
		}
		require.NoError(t, uow.RecallPointRepository().Create(ctx, p))
		f.points = append(f.points, p)
		ids = append(ids, p.Id)
	}

	f.id = gate.SessionID{Kind: gate.Fresh, Token: uuid.NewString()[:8]}
	f.session = &entity.Session{
		Id:                   f.id.Key(),
		RecallSetId:          set.Id,
		Status:               entity.SessionStatusInProgress,
		TargetRecallPointIds: ids,
		StartedAt:            time.Now(),
	}
	require.NoError(t, uow.SessionRepository().Create(ctx, f.session))
	return f
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryInterval = time.Millisecond
	return cfg
}

func (f *fixture) engine(t *testing.T, cfg Config, mods ...func(*Dependencies)) *Engine {
	t.Helper()
	deps := Dependencies{
		UowFactory: f.uow,
		Oracle:     f.oracle,
		Judge:      f.judge,
		Detector:   f.detector,
		Tutor:      tutor.NewScripted(),
		Snapshots:  f.snapshots,
		Events:     f.events,
	}
	for _, m := range mods {
		m(&deps)
	}
	e, err := NewEngine(cfg, deps)
	require.NoError(t, err)
	return e
}

func (f *fixture) start(t *testing.T, e *Engine, id gate.SessionID) (*Session, *fakeTransport) {
	t.Helper()
	tr := newFakeTransport()
	s := e.NewSession(id, tr)
	go s.Run(context.Background())
	t.Cleanup(func() {
		s.Close(CloseShutdown)
		s.Wait()
	})
	return s, tr
}

func deliver(t *testing.T, s *Session, v interface{}) {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, s.Deliver(raw))
}

func userMessage(content string) map[string]interface{} {
	return map[string]interface{}{"type": TypeUserMessage, "content": content}
}

func waitDone(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(waitTimeout):
		t.Fatal("session did not close")
	}
}

func (f *fixture) storedSession(t *testing.T) *entity.Session {
	t.Helper()
	sess, err := f.uow.NewUnitOfWork(context.Background()).SessionRepository().FindByID(context.Background(), f.id.Key())
	require.NoError(t, err)
	return sess
}

func (f *fixture) transcript(t *testing.T) []*entity.TranscriptMessage {
	t.Helper()
	msgs, err := f.uow.NewUnitOfWork(context.Background()).TranscriptRepository().FindBySession(context.Background(), f.id.Key())
	require.NoError(t, err)
	return msgs
}

func (f *fixture) outcomes(t *testing.T) []*entity.RecallOutcome {
	t.Helper()
	out, err := f.uow.NewUnitOfWork(context.Background()).RecallOutcomeRepository().FindBySession(context.Background(), f.id.Key())
	require.NoError(t, err)
	return out
}

var errJudgeDown = errors.New("judge unavailable")
