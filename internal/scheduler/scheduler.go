// Package scheduler implements spaced-repetition scheduling for flashcards.
//
// The default algorithm is a modified SM-2: review intervals grow by an ease
// factor on successful recall, the ease factor is adjusted by a quality score
// derived from response time, and any failed recall resets the interval. The
// scheduling step is a pure state-transition function so it can be tested in
// isolation from review counters and persistence.
package scheduler

import (
	"math"
	"time"
)

// Ease factor bounds for the SM-2 variant. The factor starts at MaxEase and
// is clamped into [MinEase, MaxEase] after every review.
const (
	MinEase     = 1.3
	MaxEase     = 2.5
	DefaultEase = MaxEase
)

// Schedule is the per-card scheduling state. Timestamps are nil until the
// card has been reviewed at least once.
type Schedule struct {
	EaseFactor   float64    `json:"easeFactor"`
	Interval     int        `json:"interval"` // days until next review
	LastReviewed *time.Time `json:"lastReviewed,omitempty"`
	NextReview   *time.Time `json:"nextReview,omitempty"`

	// FSRS carries algorithm state when the FSRS planner is in use.
	FSRS *FSRSState `json:"fsrs,omitempty"`
}

// NewSchedule returns the scheduling state of a card that has never been
// reviewed: ease at the ceiling, a one-day interval, no timestamps.
func NewSchedule() Schedule {
	return Schedule{
		EaseFactor: DefaultEase,
		Interval:   1,
	}
}

// Planner maps a card's current schedule and a review outcome to the next
// schedule. Implementations must be pure: no I/O, no retained state between
// calls beyond fixed parameters.
type Planner interface {
	// Review returns the schedule after a review at time now.
	// responseTimeSeconds influences quality scoring on success; a value
	// <= 0 means no timing information was available.
	Review(s Schedule, correct bool, responseTimeSeconds float64, now time.Time) Schedule
}

// SM2Planner is the default modified-SM-2 planner.
type SM2Planner struct{}

// NewSM2Planner returns the default planner.
func NewSM2Planner() SM2Planner { return SM2Planner{} }

// Review implements the Planner interface.
//
// On correct recall the interval graduates 1 -> 6 on the first success and
// multiplies by the ease factor afterwards; the ease factor is then adjusted
// by a quality score in [0, 5] derived from response time (faster is higher,
// 3 when no timing is available). On incorrect recall the interval resets to
// one day and the ease factor drops by 0.2. The ease factor is clamped to
// [MinEase, MaxEase] unconditionally, so the result is always in range.
func (SM2Planner) Review(s Schedule, correct bool, responseTimeSeconds float64, now time.Time) Schedule {
	if s.EaseFactor == 0 {
		s.EaseFactor = DefaultEase
	}
	if s.Interval < 1 {
		s.Interval = 1
	}

	if correct {
		if s.Interval == 1 {
			s.Interval = 6
		} else {
			s.Interval = int(math.Round(float64(s.Interval) * s.EaseFactor))
		}
		q := responseQuality(responseTimeSeconds)
		s.EaseFactor += 0.1 - (5-q)*(0.08+(5-q)*0.02)
	} else {
		s.Interval = 1
		s.EaseFactor -= 0.2
	}

	if s.EaseFactor < MinEase {
		s.EaseFactor = MinEase
	}
	if s.EaseFactor > MaxEase {
		s.EaseFactor = MaxEase
	}
	if s.Interval < 1 {
		s.Interval = 1
	}

	reviewed := now
	next := now.AddDate(0, 0, s.Interval)
	s.LastReviewed = &reviewed
	s.NextReview = &next
	return s
}

// responseQuality converts a response time in seconds to an SM-2 quality
// score, clamp(5 - t/5, 0, 5): instant answers approach 5 and every 5
// seconds of hesitation costs one point. Missing timing defaults to 3.
func responseQuality(responseTimeSeconds float64) float64 {
	if responseTimeSeconds <= 0 || math.IsNaN(responseTimeSeconds) {
		return 3
	}
	q := 5 - responseTimeSeconds/5
	if q < 0 {
		return 0
	}
	if q > 5 {
		return 5
	}
	return q
}
