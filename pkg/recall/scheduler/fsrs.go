package scheduler

import (
	"math"
	"time"

	"recall-be/internal/entity"
)

// Grade is the four-button review grade the model works with.
type Grade int

const (
	Again Grade = iota + 1
	Hard
	Good
	Easy
)

// GradeFor maps a judged attempt onto a review grade.
func GradeFor(success bool, confidence float64) Grade {
	switch {
	case !success:
		return Again
	case confidence < 0.5:
		return Hard
	case confidence < 0.85:
		return Good
	default:
		return Easy
	}
}

// Rating is the qualitative bucket stored on a recall outcome.
func (g Grade) Rating() string {
	switch g {
	case Again:
		return entity.RatingForgot
	case Hard:
		return entity.RatingHard
	case Easy:
		return entity.RatingEasy
	default:
		return entity.RatingGood
	}
}

// DefaultWeights are the published FSRS-4.5 defaults.
var DefaultWeights = [17]float64{
	0.4, 0.6, 2.4, 5.8, 4.93, 0.94, 0.86, 0.01, 1.49, 0.14, 0.94, 2.18, 0.05, 0.34, 1.26, 0.29, 2.61,
}

const (
	decay  = -0.5
	factor = 19.0 / 81.0

	minDifficulty = 1.0
	maxDifficulty = 10.0
)

// Short-horizon steps used while a point is not yet in review.
var (
	newAgainStep        = time.Minute
	newHardStep         = 5 * time.Minute
	learningAgainStep   = 5 * time.Minute
	learningHardStep    = 10 * time.Minute
	relearnStep         = 10 * time.Minute
	day                 = 24 * time.Hour
	defaultMaxInterval  = 36500.0
	defaultRetentionPct = 0.9
)

// FSRS is a fixed-parameter FSRS-class model. Parameter fitting is out of scope;
// the weights are taken as given.
type FSRS struct {
	Weights          [17]float64
	RequestRetention float64
	MaximumInterval  float64 // days
}

func NewFSRS() *FSRS {
	return &FSRS{
		Weights:          DefaultWeights,
		RequestRetention: defaultRetentionPct,
		MaximumInterval:  defaultMaxInterval,
	}
}

func (f *FSRS) initStability(g Grade) float64 {
	return math.Max(f.Weights[g-1], 0.1)
}

func (f *FSRS) initDifficulty(g Grade) float64 {
	return clamp(f.Weights[4]-float64(g-3)*f.Weights[5], minDifficulty, maxDifficulty)
}

func (f *FSRS) nextDifficulty(d float64, g Grade) float64 {
	next := d - f.Weights[6]*float64(g-3)
	reverted := f.Weights[7]*f.initDifficulty(Good) + (1-f.Weights[7])*next
	return clamp(reverted, minDifficulty, maxDifficulty)
}

func (f *FSRS) retrievability(elapsedDays, stability float64) float64 {
	return math.Pow(1+factor*elapsedDays/stability, decay)
}

func (f *FSRS) recallStability(d, s, r float64, g Grade) float64 {
	hardPenalty, easyBonus := 1.0, 1.0
	if g == Hard {
		hardPenalty = f.Weights[15]
	}
	if g == Easy {
		easyBonus = f.Weights[16]
	}
	return s * (1 + math.Exp(f.Weights[8])*(11-d)*math.Pow(s, -f.Weights[9])*
		(math.Exp((1-r)*f.Weights[10])-1)*hardPenalty*easyBonus)
}

func (f *FSRS) forgetStability(d, s, r float64) float64 {
	next := f.Weights[11] * math.Pow(d, -f.Weights[12]) * (math.Pow(s+1, f.Weights[13]) - 1) *
		math.Exp((1-r)*f.Weights[14])
	return math.Min(next, s)
}

// intervalDays converts stability into a whole-day interval at the requested retention.
func (f *FSRS) intervalDays(s float64) float64 {
	days := s / factor * (math.Pow(f.RequestRetention, 1/decay) - 1)
	return clamp(math.Round(days), 1, f.MaximumInterval)
}

// Apply moves p to its next state for grade g reviewed at now. DueAt is always
// at or after now, and a passing grade never yields an earlier DueAt than Again
// would have from the same state.
func (f *FSRS) Apply(p *entity.RecallPoint, g Grade, now time.Time) {
	elapsed := 0.0
	if p.LastReviewAt != nil {
		elapsed = math.Max(now.Sub(*p.LastReviewAt).Hours()/24, 0)
	}

	switch p.State {
	case entity.RecallPointStateNew, "":
		p.Stability = f.initStability(g)
		p.Difficulty = f.initDifficulty(g)
		switch g {
		case Again:
			p.State = entity.RecallPointStateLearning
			p.DueAt = now.Add(newAgainStep)
		case Hard:
			p.State = entity.RecallPointStateLearning
			p.DueAt = now.Add(newHardStep)
		default:
			p.State = entity.RecallPointStateReview
			p.DueAt = now.Add(time.Duration(f.intervalDays(p.Stability)) * day)
		}

	case entity.RecallPointStateLearning, entity.RecallPointStateRelearning:
		p.Difficulty = f.nextDifficulty(p.Difficulty, g)
		switch g {
		case Again:
			p.DueAt = now.Add(learningAgainStep)
		case Hard:
			p.DueAt = now.Add(learningHardStep)
		default:
			p.State = entity.RecallPointStateReview
			p.DueAt = now.Add(time.Duration(f.intervalDays(p.Stability)) * day)
		}

	default: // review
		r := f.retrievability(elapsed, math.Max(p.Stability, 0.1))
		if g == Again {
			p.Stability = f.forgetStability(p.Difficulty, math.Max(p.Stability, 0.1), r)
			p.Difficulty = f.nextDifficulty(p.Difficulty, g)
			p.Lapses++
			p.State = entity.RecallPointStateRelearning
			p.DueAt = now.Add(relearnStep)
		} else {
			p.Stability = f.recallStability(p.Difficulty, math.Max(p.Stability, 0.1), r, g)
			p.Difficulty = f.nextDifficulty(p.Difficulty, g)
			p.DueAt = now.Add(time.Duration(f.intervalDays(p.Stability)) * day)
		}
	}

	p.Reps++
	reviewed := now
	p.LastReviewAt = &reviewed
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
