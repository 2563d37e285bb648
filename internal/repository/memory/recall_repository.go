package memory

import (
	"context"
	"sort"
	"time"

	"recall-be/internal/entity"
	"recall-be/internal/repository/contract"

	"github.com/google/uuid"
)

type recallSetRow struct {
	entity.RecallSet
	order int64
}

type pointRow struct {
	entity.RecallPoint
	order int64
}

type RecallSetRepository struct {
	db *Database
}

func (r *RecallSetRepository) Create(ctx context.Context, set *entity.RecallSet) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if set.Id == uuid.Nil {
		set.Id = uuid.New()
	}
	if _, exists := r.db.recallSets[set.Id.String()]; exists {
		return contract.ErrDuplicate
	}
	if set.CreatedAt.IsZero() {
		set.CreatedAt = time.Now()
	}
	if set.Status == "" {
		set.Status = entity.RecallSetStatusActive
	}
	r.db.recallSets[set.Id.String()] = &recallSetRow{RecallSet: *set, order: r.db.next()}
	return nil
}

func (r *RecallSetRepository) Update(ctx context.Context, set *entity.RecallSet) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	row, ok := r.db.recallSets[set.Id.String()]
	if !ok {
		r.db.recallSets[set.Id.String()] = &recallSetRow{RecallSet: *set, order: r.db.next()}
		return nil
	}
	now := time.Now()
	set.UpdatedAt = &now
	row.RecallSet = *set
	return nil
}

func (r *RecallSetRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.RecallSet, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	row, ok := r.db.recallSets[id.String()]
	if !ok {
		return nil, nil
	}
	set := row.RecallSet
	return &set, nil
}

func (r *RecallSetRepository) FindAll(ctx context.Context) ([]*entity.RecallSet, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	rows := make([]*recallSetRow, 0, len(r.db.recallSets))
	for _, row := range r.db.recallSets {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].order < rows[j].order })

	res := make([]*entity.RecallSet, len(rows))
	for i, row := range rows {
		set := row.RecallSet
		res[i] = &set
	}
	return res, nil
}

type RecallPointRepository struct {
	db *Database
}

func (r *RecallPointRepository) Create(ctx context.Context, point *entity.RecallPoint) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if point.Id == uuid.Nil {
		point.Id = uuid.New()
	}
	if _, exists := r.db.points[point.Id.String()]; exists {
		return contract.ErrDuplicate
	}
	if point.CreatedAt.IsZero() {
		point.CreatedAt = time.Now()
	}
	if point.State == "" {
		point.State = entity.RecallPointStateNew
	}
	if point.DueAt.IsZero() {
		point.DueAt = point.CreatedAt
	}
	r.db.points[point.Id.String()] = &pointRow{RecallPoint: *point, order: r.db.next()}
	return nil
}

func (r *RecallPointRepository) Update(ctx context.Context, point *entity.RecallPoint) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	now := time.Now()
	point.UpdatedAt = &now
	row, ok := r.db.points[point.Id.String()]
	if !ok {
		r.db.points[point.Id.String()] = &pointRow{RecallPoint: *point, order: r.db.next()}
		return nil
	}
	row.RecallPoint = *point
	return nil
}

func (r *RecallPointRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.RecallPoint, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	row, ok := r.db.points[id.String()]
	if !ok {
		return nil, nil
	}
	point := row.RecallPoint
	return &point, nil
}

func (r *RecallPointRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.RecallPoint, error) {
	wanted := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	return r.filter(func(p *entity.RecallPoint) bool { return wanted[p.Id] }), nil
}

func (r *RecallPointRepository) FindByRecallSet(ctx context.Context, recallSetId uuid.UUID) ([]*entity.RecallPoint, error) {
	return r.filter(func(p *entity.RecallPoint) bool { return p.RecallSetId == recallSetId }), nil
}

func (r *RecallPointRepository) filter(keep func(*entity.RecallPoint) bool) []*entity.RecallPoint {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	rows := make([]*pointRow, 0)
	for _, row := range r.db.points {
		if keep(&row.RecallPoint) {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].order < rows[j].order })

	res := make([]*entity.RecallPoint, len(rows))
	for i, row := range rows {
		point := row.RecallPoint
		res[i] = &point
	}
	return res
}
