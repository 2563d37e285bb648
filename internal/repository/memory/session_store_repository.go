package memory

import (
	"context"
	"sort"

	"recall-be/internal/entity"
	"recall-be/internal/repository/contract"

	"github.com/google/uuid"
)

type sessionRow struct {
	entity.Session
	order int64
}

type outcomeRow struct {
	entity.RecallOutcome
}

type messageRow struct {
	entity.TranscriptMessage
}

type rabbitholeRow struct {
	entity.RabbitholeEvent
}

type metricsRow struct {
	entity.SessionMetrics
}

func copySession(s entity.Session) *entity.Session {
	s.TargetRecallPointIds = append([]uuid.UUID(nil), s.TargetRecallPointIds...)
	return &s
}

type SessionRepository struct {
	db *Database
}

func (r *SessionRepository) Create(ctx context.Context, session *entity.Session) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, exists := r.db.sessions[session.Id]; exists {
		return contract.ErrDuplicate
	}
	r.db.sessions[session.Id] = &sessionRow{Session: *copySession(*session), order: r.db.next()}
	return nil
}

func (r *SessionRepository) Update(ctx context.Context, session *entity.Session) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	row, ok := r.db.sessions[session.Id]
	if !ok {
		r.db.sessions[session.Id] = &sessionRow{Session: *copySession(*session), order: r.db.next()}
		return nil
	}
	row.Session = *copySession(*session)
	return nil
}

func (r *SessionRepository) FindByID(ctx context.Context, id string) (*entity.Session, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	row, ok := r.db.sessions[id]
	if !ok {
		return nil, nil
	}
	return copySession(row.Session), nil
}

func (r *SessionRepository) FindInProgressByRecallSet(ctx context.Context, recallSetId uuid.UUID) (*entity.Session, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var latest *sessionRow
	for _, row := range r.db.sessions {
		if row.RecallSetId != recallSetId || row.Status != entity.SessionStatusInProgress {
			continue
		}
		if latest == nil || row.order > latest.order {
			latest = row
		}
	}
	if latest == nil {
		return nil, nil
	}
	return copySession(latest.Session), nil
}

type RecallOutcomeRepository struct {
	db *Database
}

func (r *RecallOutcomeRepository) Create(ctx context.Context, outcome *entity.RecallOutcome) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if outcome.Id == uuid.Nil {
		outcome.Id = uuid.New()
	}
	for _, row := range r.db.outcomes {
		if row.Id == outcome.Id || (row.SessionId == outcome.SessionId && row.RecallPointId == outcome.RecallPointId) {
			return contract.ErrDuplicate
		}
	}
	r.db.outcomes = append(r.db.outcomes, &outcomeRow{RecallOutcome: *outcome})
	return nil
}

func (r *RecallOutcomeRepository) FindBySession(ctx context.Context, sessionId string) ([]*entity.RecallOutcome, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	res := make([]*entity.RecallOutcome, 0)
	for _, row := range r.db.outcomes {
		if row.SessionId == sessionId {
			o := row.RecallOutcome
			res = append(res, &o)
		}
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].MessageIndexEnd < res[j].MessageIndexEnd })
	return res, nil
}

type TranscriptRepository struct {
	db *Database
}

func (r *TranscriptRepository) Append(ctx context.Context, message *entity.TranscriptMessage) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if message.Id == uuid.Nil {
		message.Id = uuid.New()
	}
	for _, row := range r.db.messages {
		if row.Id == message.Id || (row.SessionId == message.SessionId && row.Seq == message.Seq) {
			return contract.ErrDuplicate
		}
	}
	r.db.messages = append(r.db.messages, &messageRow{TranscriptMessage: *message})
	return nil
}

func (r *TranscriptRepository) FindBySession(ctx context.Context, sessionId string) ([]*entity.TranscriptMessage, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	res := make([]*entity.TranscriptMessage, 0)
	for _, row := range r.db.messages {
		if row.SessionId == sessionId {
			m := row.TranscriptMessage
			res = append(res, &m)
		}
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].Seq < res[j].Seq })
	return res, nil
}

type RabbitholeEventRepository struct {
	db *Database
}

func (r *RabbitholeEventRepository) Create(ctx context.Context, event *entity.RabbitholeEvent) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if event.Id == uuid.Nil {
		event.Id = uuid.New()
	}
	r.db.rabbitholes = append(r.db.rabbitholes, &rabbitholeRow{RabbitholeEvent: *event})
	return nil
}

func (r *RabbitholeEventRepository) FindBySession(ctx context.Context, sessionId string) ([]*entity.RabbitholeEvent, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	res := make([]*entity.RabbitholeEvent, 0)
	for _, row := range r.db.rabbitholes {
		if row.SessionId == sessionId {
			e := row.RabbitholeEvent
			res = append(res, &e)
		}
	}
	return res, nil
}

type SessionMetricsRepository struct {
	db *Database
}

func (r *SessionMetricsRepository) Upsert(ctx context.Context, metrics *entity.SessionMetrics) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.metrics[metrics.SessionId] = &metricsRow{SessionMetrics: *metrics}
	return nil
}

func (r *SessionMetricsRepository) FindBySession(ctx context.Context, sessionId string) (*entity.SessionMetrics, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	row, ok := r.db.metrics[sessionId]
	if !ok {
		return nil, nil
	}
	m := row.SessionMetrics
	return &m, nil
}
