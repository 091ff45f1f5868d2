package storage

import (
	"errors"
	"time"

	"github.com/tgoodwin/studydeck/internal/progress"
)

// UserRecord is one user's full durable state: flashcard progress per study
// set, aggregate statistics, and the session history.
type UserRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`

	FlashcardProgress map[string]progress.StudySetProgress `json:"flashcardProgress"`
	Progress          ProgressSummary                      `json:"progress"`
	Sessions          []SessionLog                         `json:"sessions,omitempty"`
}

// ProgressSummary holds the per-study-set aggregate statistics.
type ProgressSummary struct {
	StudySets []progress.StudySetStats `json:"studySets"`
}

// SessionLog is an append-only record of one completed session.
type SessionLog struct {
	ID             string    `json:"id"`
	StudySetID     string    `json:"study_set_id"`
	Score          float64   `json:"score"`
	TimeSpent      float64   `json:"time_spent"`
	CorrectAnswers int       `json:"correct_answers"`
	TotalQuestions int       `json:"total_questions"`
	CompletedAt    time.Time `json:"completed_at"`
}

// UserStore is the whole-document shape persisted by FileStorage.
type UserStore struct {
	Users       map[string]UserRecord `json:"users"`
	LastUpdated time.Time             `json:"last_updated"`
}

// ErrUserNotFound is returned when a user is not found in the storage.
var ErrUserNotFound = errors.New("user not found")

// Storage is the persistence gateway for user records. Every read hands out
// an independent copy and every write replaces the whole record, so callers
// run plain load-mutate-save cycles and never share references with the
// store.
type Storage interface {
	// CreateUser creates a new user with a generated id.
	CreateUser(name string) (UserRecord, error)
	// GetUser returns a deep copy of the user's record.
	GetUser(id string) (UserRecord, error)
	// PutUser replaces the user's record wholesale.
	PutUser(record UserRecord) error
	// ListUsers returns copies of all user records.
	ListUsers() ([]UserRecord, error)

	// Load initializes the store from its backing medium.
	Load() error
	// Save persists the store to its backing medium.
	Save() error
}

// normalizeRecord coerces nil collections inside a record so loaded data is
// always safe to index, regardless of which client version wrote it.
func normalizeRecord(r *UserRecord) {
	if r.FlashcardProgress == nil {
		r.FlashcardProgress = map[string]progress.StudySetProgress{}
	}
	for setID, sp := range r.FlashcardProgress {
		sp.Normalize()
		r.FlashcardProgress[setID] = sp
	}
	if r.Progress.StudySets == nil {
		r.Progress.StudySets = []progress.StudySetStats{}
	}
}

// cloneRecord deep-copies a record so mutations on the copy cannot reach the
// store's in-memory state.
func cloneRecord(r UserRecord) UserRecord {
	out := r

	out.FlashcardProgress = make(map[string]progress.StudySetProgress, len(r.FlashcardProgress))
	for setID, sp := range r.FlashcardProgress {
		cp := sp
		cp.KnownCards = append([]string{}, sp.KnownCards...)
		cp.UnknownCards = append([]string{}, sp.UnknownCards...)
		cp.Schedules = make(map[string]progress.CardSchedule, len(sp.Schedules))
		for cardID, cs := range sp.Schedules {
			cp.Schedules[cardID] = cloneCardSchedule(cs)
		}
		out.FlashcardProgress[setID] = cp
	}

	out.Progress.StudySets = append([]progress.StudySetStats{}, r.Progress.StudySets...)
	out.Sessions = append([]SessionLog{}, r.Sessions...)
	return out
}

func cloneCardSchedule(cs progress.CardSchedule) progress.CardSchedule {
	out := cs
	if cs.LastReviewed != nil {
		t := *cs.LastReviewed
		out.LastReviewed = &t
	}
	if cs.NextReview != nil {
		t := *cs.NextReview
		out.NextReview = &t
	}
	if cs.FSRS != nil {
		f := *cs.FSRS
		out.FSRS = &f
	}
	return out
}
