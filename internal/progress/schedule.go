package progress

import (
	"sort"
	"time"

	"github.com/tgoodwin/studydeck/internal/scheduler"
)

// CardSchedule is the persisted per-card review state: lifetime counters,
// a difficulty estimate in [0, 1], the current correct/incorrect streak, and
// the embedded spaced-repetition schedule.
//
// Invariant: at most one of ConsecutiveCorrect/ConsecutiveIncorrect is
// non-zero; recording a review increments one and resets the other.
type CardSchedule struct {
	TimesReviewed        int     `json:"timesReviewed"`
	TimesCorrect         int     `json:"timesCorrect"`
	Difficulty           float64 `json:"difficulty"`
	ConsecutiveCorrect   int     `json:"consecutiveCorrect"`
	ConsecutiveIncorrect int     `json:"consecutiveIncorrect"`

	scheduler.Schedule
}

// NewCardSchedule returns the state of a card that has never been reviewed:
// middling difficulty, fresh schedule, zeroed counters.
func NewCardSchedule() CardSchedule {
	return CardSchedule{
		Difficulty: 0.5,
		Schedule:   scheduler.NewSchedule(),
	}
}

// RecordReview records one review of cardID into schedules and returns the
// updated state. Counters and difficulty are maintained here; the interval
// and ease portion is delegated to the planner so the two concerns stay
// independently testable.
//
// Difficulty moves down 0.1 (floor 0) once a card reaches three or more
// consecutive correct answers, and up 0.2 (ceiling 1) on any incorrect one.
func RecordReview(schedules map[string]CardSchedule, cardID string, correct bool, responseTimeSeconds float64, now time.Time, planner scheduler.Planner) CardSchedule {
	cs, ok := schedules[cardID]
	if !ok {
		cs = NewCardSchedule()
	}

	cs.TimesReviewed++
	if correct {
		cs.TimesCorrect++
		cs.ConsecutiveCorrect++
		cs.ConsecutiveIncorrect = 0
	} else {
		cs.ConsecutiveIncorrect++
		cs.ConsecutiveCorrect = 0
	}

	cs.Schedule = planner.Review(cs.Schedule, correct, responseTimeSeconds, now)

	if correct {
		if cs.ConsecutiveCorrect >= 3 {
			cs.Difficulty -= 0.1
			if cs.Difficulty < 0 {
				cs.Difficulty = 0
			}
		}
	} else {
		cs.Difficulty += 0.2
		if cs.Difficulty > 1 {
			cs.Difficulty = 1
		}
	}

	schedules[cardID] = cs
	return cs
}

// CardsForReview returns the ids of cards due for review at time now, hardest
// first: descending difficulty, ties broken by ascending last-review time
// with never-reviewed cards sorting as oldest. A card is due when it has no
// scheduled next review or its next review is not in the future. The result
// is computed fresh on every call; limit <= 0 means no limit.
func CardsForReview(schedules map[string]CardSchedule, now time.Time, limit int) []string {
	due := make([]string, 0, len(schedules))
	for id, cs := range schedules {
		if cs.NextReview == nil || !cs.NextReview.After(now) {
			due = append(due, id)
		}
	}

	sort.Slice(due, func(i, j int) bool {
		a, b := schedules[due[i]], schedules[due[j]]
		if a.Difficulty != b.Difficulty {
			return a.Difficulty > b.Difficulty
		}
		switch {
		case a.LastReviewed == nil && b.LastReviewed == nil:
			return due[i] < due[j] // stable order for never-reviewed ties
		case a.LastReviewed == nil:
			return true
		case b.LastReviewed == nil:
			return false
		default:
			if !a.LastReviewed.Equal(*b.LastReviewed) {
				return a.LastReviewed.Before(*b.LastReviewed)
			}
			return due[i] < due[j]
		}
	})

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due
}
