package scheduler

import (
	"time"

	"github.com/open-spaced-repetition/go-fsrs"
)

// FSRSState is the algorithm state carried on a Schedule when the FSRS
// planner is in use.
type FSRSState = fsrs.Card

// FSRSPlanner schedules reviews with the FSRS algorithm from
// github.com/open-spaced-repetition/go-fsrs instead of SM-2. A binary
// correct/incorrect outcome maps to the Good/Again ratings; the resulting
// due date and scheduled days are projected back onto the Schedule so the
// rest of the system is planner-agnostic.
type FSRSPlanner struct {
	parameters fsrs.Parameters
}

// NewFSRSPlanner returns an FSRS planner with default parameters.
func NewFSRSPlanner() *FSRSPlanner {
	return &FSRSPlanner{parameters: fsrs.DefaultParam()}
}

// NewFSRSPlannerWithParams returns an FSRS planner with custom parameters.
func NewFSRSPlannerWithParams(params fsrs.Parameters) *FSRSPlanner {
	return &FSRSPlanner{parameters: params}
}

// Review implements the Planner interface.
func (p *FSRSPlanner) Review(s Schedule, correct bool, responseTimeSeconds float64, now time.Time) Schedule {
	if s.EaseFactor == 0 {
		s.EaseFactor = DefaultEase
	}

	card := fsrs.Card{Due: now, State: fsrs.New}
	if s.FSRS != nil {
		card = *s.FSRS
	}

	rating := fsrs.Good
	if !correct {
		rating = fsrs.Again
	}

	// Repeat computes scheduling for every rating; pick the one that matches
	// the observed outcome.
	updated := p.parameters.Repeat(card, now)[rating].Card

	s.FSRS = &updated
	s.Interval = int(updated.ScheduledDays)
	if s.Interval < 1 {
		s.Interval = 1
	}
	reviewed := now
	due := updated.Due
	s.LastReviewed = &reviewed
	s.NextReview = &due
	return s
}
