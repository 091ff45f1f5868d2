// Package progress tracks per-user, per-study-set flashcard progress: the
// known/unknown classification of each card, the per-card spaced-repetition
// schedule, and aggregate session statistics.
//
// Sessions never write classifications directly. A completed session yields a
// Classification, the delta engine compares it against the persisted sets to
// produce a minimal Delta, and the reconciler applies that Delta. Restricting
// every write to the cards actually seen in the session keeps concurrent or
// partial sessions from clobbering unrelated historical progress.
package progress

import (
	"encoding/json"
	"time"
)

// Answer is a user's final self-classification of a card within one session.
type Answer string

const (
	Known   Answer = "known"
	Unknown Answer = "unknown"
)

// Classification maps card id to the session's final answer for that card.
// It is ephemeral: produced by the session runtime, consumed by ComputeDelta,
// never persisted.
type Classification map[string]Answer

// StudySetProgress is the persisted flashcard progress for one user and one
// study set. KnownCards and UnknownCards are disjoint; a card absent from
// both is unseen. Schedules holds per-card spaced-repetition state.
type StudySetProgress struct {
	KnownCards   []string                `json:"knownCards"`
	UnknownCards []string                `json:"unknownCards"`
	Schedules    map[string]CardSchedule `json:"schedules,omitempty"`
	LastUpdated  time.Time               `json:"lastUpdated"`
}

// Normalize coerces nil collections to empty ones so callers can index and
// append without nil checks. A missing progress record is the normal state
// for a new user or study set, never an error.
func (p *StudySetProgress) Normalize() {
	if p.KnownCards == nil {
		p.KnownCards = []string{}
	}
	if p.UnknownCards == nil {
		p.UnknownCards = []string{}
	}
	if p.Schedules == nil {
		p.Schedules = map[string]CardSchedule{}
	}
}

// UnmarshalJSON tolerates malformed persisted state: a field of the wrong
// shape (for example knownCards stored as a number by a buggy old client)
// coerces to its empty value instead of failing the whole document.
func (p *StudySetProgress) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		// Not even an object; treat as empty progress.
		*p = StudySetProgress{}
		p.Normalize()
		return nil
	}

	*p = StudySetProgress{}
	if v, ok := raw["knownCards"]; ok {
		_ = json.Unmarshal(v, &p.KnownCards)
	}
	if v, ok := raw["unknownCards"]; ok {
		_ = json.Unmarshal(v, &p.UnknownCards)
	}
	if v, ok := raw["schedules"]; ok {
		_ = json.Unmarshal(v, &p.Schedules)
	}
	if v, ok := raw["lastUpdated"]; ok {
		_ = json.Unmarshal(v, &p.LastUpdated)
	}
	p.Normalize()
	return nil
}
