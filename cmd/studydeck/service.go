// Package main provides implementation for the studydeck MCP service.
package main

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tgoodwin/studydeck/internal/progress"
	"github.com/tgoodwin/studydeck/internal/scheduler"
	"github.com/tgoodwin/studydeck/internal/storage"
)

// ErrInvalidScore is returned when a session reports a score that is not a
// finite number in [0, 100]. Malformed scores are rejected at the boundary
// so they never reach the stats updater.
var ErrInvalidScore = errors.New("session score must be a finite number between 0 and 100")

// StudyService manages study-session progress on top of the persistence
// gateway. Each operation is one load-mutate-save cycle against a deep copy
// of the user's record; writes for the same user are serialized by a
// per-user mutex so two interleaved sessions cannot lose each other's delta.
type StudyService struct {
	Storage    storage.Storage
	Planner    scheduler.Planner
	Reconciler *progress.Reconciler
	Logger     *zap.Logger

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

// NewStudyService creates a new StudyService with the default SM-2 planner.
func NewStudyService(store storage.Storage) *StudyService {
	return NewStudyServiceWithPlanner(store, scheduler.NewSM2Planner())
}

// NewStudyServiceWithPlanner creates a new StudyService using the given
// spaced-repetition planner.
func NewStudyServiceWithPlanner(store storage.Storage, planner scheduler.Planner) *StudyService {
	logConfig := zap.NewDevelopmentConfig()
	logConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)

	logger, err := logConfig.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		// Fallback if zap fails (shouldn't normally happen)
		fmt.Printf("Error initializing zap logger: %v. Falling back to no-op logger.\n", err)
		logger = zap.NewNop()
	}

	return &StudyService{
		Storage:    store,
		Planner:    planner,
		Reconciler: progress.NewReconciler(logger),
		Logger:     logger,
		userLocks:  make(map[string]*sync.Mutex),
	}
}

// lockUser serializes read-modify-write cycles for one user. Returns the
// unlock function.
func (s *StudyService) lockUser(userID string) func() {
	s.mu.Lock()
	lock, ok := s.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.userLocks[userID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// CreateUser creates a new user record.
func (s *StudyService) CreateUser(name string) (storage.UserRecord, error) {
	s.Logger.Debug("Service CreateUser called", zap.String("name", name))
	record, err := s.Storage.CreateUser(name)
	if err != nil {
		s.Logger.Error("Error creating user in storage", zap.Error(err))
		return storage.UserRecord{}, fmt.Errorf("error creating user in storage: %w", err)
	}
	if err := s.Storage.Save(); err != nil {
		return storage.UserRecord{}, fmt.Errorf("error saving storage after creating user: %w", err)
	}
	return record, nil
}

// ListUsers returns all user records.
func (s *StudyService) ListUsers() ([]storage.UserRecord, error) {
	return s.Storage.ListUsers()
}

// CompleteSession folds a completed study session into the user's durable
// progress: aggregate statistics always, flashcard known/unknown
// reconciliation when the session carried classifications. The whole cycle
// commits in one save; on a save failure nothing the caller can observe has
// been applied, so the session runtime can retry or degrade without the user
// losing the session's local outcome.
func (s *StudyService) CompleteSession(userID, studySetID string, result SessionResult) (progress.StudySetStats, progress.Delta, error) {
	return s.CompleteSessionWithTime(userID, studySetID, result, timeNow())
}

// CompleteSessionWithTime is CompleteSession with an explicit "now", so
// tests can supply a simulated timestamp.
func (s *StudyService) CompleteSessionWithTime(userID, studySetID string, result SessionResult, now time.Time) (progress.StudySetStats, progress.Delta, error) {
	s.Logger.Debug("CompleteSession starting",
		zap.String("user_id", userID),
		zap.String("study_set_id", studySetID),
		zap.Float64("score", result.Score),
		zap.Int("classified_cards", len(result.Classifications)))

	if math.IsNaN(result.Score) || math.IsInf(result.Score, 0) || result.Score < 0 || result.Score > 100 {
		return progress.StudySetStats{}, progress.Delta{}, ErrInvalidScore
	}

	defer s.lockUser(userID)()

	record, err := s.Storage.GetUser(userID)
	if err != nil {
		s.Logger.Error("Error getting user", zap.String("user_id", userID), zap.Error(err))
		return progress.StudySetStats{}, progress.Delta{}, fmt.Errorf("error getting user: %w", err)
	}

	// Aggregate statistics update runs for every completed session.
	stats := s.recordSessionStats(&record, studySetID, result, now)

	// Flashcard reconciliation runs only when the session classified cards.
	var delta progress.Delta
	if len(result.Classifications) > 0 {
		sp := record.FlashcardProgress[studySetID]
		delta = s.Reconciler.Reconcile(studySetID, &sp, result.Classifications, now)
		record.FlashcardProgress[studySetID] = sp
	}

	record.Sessions = append(record.Sessions, storage.SessionLog{
		ID:             uuid.New().String(),
		StudySetID:     studySetID,
		Score:          result.Score,
		TimeSpent:      result.TotalTime,
		CorrectAnswers: result.CorrectAnswers,
		TotalQuestions: result.TotalQuestions,
		CompletedAt:    now,
	})

	if err := s.commit(record); err != nil {
		return progress.StudySetStats{}, progress.Delta{}, err
	}

	s.Logger.Debug("CompleteSession completed",
		zap.String("user_id", userID),
		zap.String("study_set_id", studySetID),
		zap.Int("total_sessions", stats.TotalSessions))
	return stats, delta, nil
}

// SubmitReview records a single flashcard review for a user, updating the
// card's counters, difficulty, and spaced-repetition schedule.
func (s *StudyService) SubmitReview(userID, studySetID, cardID string, correct bool, responseTimeSeconds float64) (progress.CardSchedule, error) {
	return s.SubmitReviewWithTime(userID, studySetID, cardID, correct, responseTimeSeconds, timeNow())
}

// SubmitReviewWithTime is SubmitReview with an explicit "now" for tests.
func (s *StudyService) SubmitReviewWithTime(userID, studySetID, cardID string, correct bool, responseTimeSeconds float64, now time.Time) (progress.CardSchedule, error) {
	s.Logger.Debug("SubmitReview starting",
		zap.String("user_id", userID),
		zap.String("study_set_id", studySetID),
		zap.String("card_id", cardID),
		zap.Bool("correct", correct))

	defer s.lockUser(userID)()

	record, err := s.Storage.GetUser(userID)
	if err != nil {
		return progress.CardSchedule{}, fmt.Errorf("error getting user: %w", err)
	}

	sp := record.FlashcardProgress[studySetID]
	sp.Normalize()
	card := progress.RecordReview(sp.Schedules, cardID, correct, responseTimeSeconds, now, s.Planner)
	sp.LastUpdated = now
	record.FlashcardProgress[studySetID] = sp

	if err := s.commit(record); err != nil {
		return progress.CardSchedule{}, err
	}

	s.Logger.Debug("SubmitReview completed",
		zap.String("card_id", cardID),
		zap.Int("interval_days", card.Interval),
		zap.Float64("ease_factor", card.EaseFactor),
		zap.Float64("difficulty", card.Difficulty))
	return card, nil
}

// DueCards returns the ids of the user's cards due for review in a study
// set, hardest and longest-overdue first. limit <= 0 means no limit.
func (s *StudyService) DueCards(userID, studySetID string, limit int) ([]string, error) {
	return s.DueCardsWithTime(userID, studySetID, limit, timeNow())
}

// DueCardsWithTime is DueCards with an explicit "now" for tests.
func (s *StudyService) DueCardsWithTime(userID, studySetID string, limit int, now time.Time) ([]string, error) {
	record, err := s.Storage.GetUser(userID)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	sp := record.FlashcardProgress[studySetID]
	return progress.CardsForReview(sp.Schedules, now, limit), nil
}

// StudySetOverview returns a study set's aggregate stats together with the
// current classification and review-queue counts.
func (s *StudyService) StudySetOverview(userID, studySetID string) (StudySetOverview, error) {
	record, err := s.Storage.GetUser(userID)
	if err != nil {
		return StudySetOverview{}, fmt.Errorf("error getting user: %w", err)
	}

	overview := StudySetOverview{
		Stats: progress.StudySetStats{StudySetID: studySetID},
	}
	for _, stats := range record.Progress.StudySets {
		if stats.StudySetID == studySetID {
			overview.Stats = stats
			break
		}
	}

	sp := record.FlashcardProgress[studySetID]
	overview.KnownCount = len(sp.KnownCards)
	overview.UnknownCount = len(sp.UnknownCards)
	overview.TrackedCards = len(sp.Schedules)
	overview.DueCount = len(progress.CardsForReview(sp.Schedules, timeNow(), 0))
	return overview, nil
}

// recordSessionStats updates (or creates) the per-study-set aggregate stats
// entry on the record and returns the updated stats.
func (s *StudyService) recordSessionStats(record *storage.UserRecord, studySetID string, result SessionResult, now time.Time) progress.StudySetStats {
	for i, stats := range record.Progress.StudySets {
		if stats.StudySetID == studySetID {
			record.Progress.StudySets[i] = progress.RecordSession(stats, result.Score, result.TotalTime, now)
			return record.Progress.StudySets[i]
		}
	}

	stats := progress.RecordSession(progress.StudySetStats{StudySetID: studySetID}, result.Score, result.TotalTime, now)
	record.Progress.StudySets = append(record.Progress.StudySets, stats)
	return stats
}

// commit writes the mutated record back and persists the store.
func (s *StudyService) commit(record storage.UserRecord) error {
	if err := s.Storage.PutUser(record); err != nil {
		s.Logger.Error("Error updating user in storage", zap.String("user_id", record.ID), zap.Error(err))
		return fmt.Errorf("error updating user: %w", err)
	}
	if err := s.Storage.Save(); err != nil {
		s.Logger.Error("Error saving storage", zap.String("user_id", record.ID), zap.Error(err))
		return fmt.Errorf("error saving storage: %w", err)
	}
	return nil
}

// Variable to allow mocking time.Now in tests
var timeNow = time.Now
