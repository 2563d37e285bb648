package scheduler

import (
	"sort"
	"time"

	"recall-be/internal/entity"
)

type bucket int

const (
	bucketOverdue bucket = iota
	bucketDueToday
	bucketLookahead
	bucketNotDue
)

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func classify(p *entity.RecallPoint, now time.Time, lookahead time.Duration) bucket {
	if p.DueAt.Before(startOfDay(now)) {
		return bucketOverdue
	}
	if p.State == entity.RecallPointStateNew || !p.DueAt.After(now) {
		return bucketDueToday
	}
	if lookahead > 0 && !p.DueAt.After(now.Add(lookahead)) {
		return bucketLookahead
	}
	return bucketNotDue
}

// SelectDue filters points down to the due ones and orders them: overdue first,
// then due today, then lookahead items. New points are always due. Ties fall back
// to dueAt, then creation time, then id.
func SelectDue(points []*entity.RecallPoint, now time.Time, lookahead time.Duration) []*entity.RecallPoint {
	type ranked struct {
		point  *entity.RecallPoint
		bucket bucket
	}

	candidates := make([]ranked, 0, len(points))
	for _, p := range points {
		b := classify(p, now, lookahead)
		if b == bucketNotDue {
			continue
		}
		candidates = append(candidates, ranked{point: p, bucket: b})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.bucket != b.bucket {
			return a.bucket < b.bucket
		}
		if !a.point.DueAt.Equal(b.point.DueAt) {
			return a.point.DueAt.Before(b.point.DueAt)
		}
		if !a.point.CreatedAt.Equal(b.point.CreatedAt) {
			return a.point.CreatedAt.Before(b.point.CreatedAt)
		}
		return a.point.Id.String() < b.point.Id.String()
	})

	due := make([]*entity.RecallPoint, len(candidates))
	for i, c := range candidates {
		due[i] = c.point
	}
	return due
}
