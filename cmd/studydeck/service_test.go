package main

import (
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tgoodwin/studydeck/internal/progress"
	"github.com/tgoodwin/studydeck/internal/scheduler"
	"github.com/tgoodwin/studydeck/internal/storage"
)

var sessionNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// newTestService builds a service on a temp-file store with a quiet logger.
// The file path is returned so tests can reload it through a fresh store.
func newTestService(t *testing.T) (*StudyService, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "studydeck.json")
	logger := zap.NewNop()
	return &StudyService{
		Storage:    storage.NewFileStorage(path),
		Planner:    scheduler.NewSM2Planner(),
		Reconciler: progress.NewReconciler(logger),
		Logger:     logger,
		userLocks:  make(map[string]*sync.Mutex),
	}, path
}

func TestCreateAndListUsers(t *testing.T) {
	svc, _ := newTestService(t)

	user, err := svc.CreateUser("alice")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "alice", user.Name)

	users, err := svc.ListUsers()
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestCompleteSessionAccumulatesStats(t *testing.T) {
	svc, _ := newTestService(t)
	user, err := svc.CreateUser("alice")
	require.NoError(t, err)

	stats, _, err := svc.CompleteSessionWithTime(user.ID, "set-1", SessionResult{Score: 80, TotalTime: 60}, sessionNow)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalSessions)
	assert.Equal(t, 80.0, stats.AverageScore)

	stats, _, err = svc.CompleteSessionWithTime(user.ID, "set-1", SessionResult{Score: 80, TotalTime: 60}, sessionNow)
	require.NoError(t, err)
	assert.Equal(t, 80.0, stats.AverageScore)

	stats, _, err = svc.CompleteSessionWithTime(user.ID, "set-1", SessionResult{Score: 100, TotalTime: 30}, sessionNow)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalSessions)
	assert.Equal(t, 87.0, stats.AverageScore)
	assert.Equal(t, 100.0, stats.BestScore)
	assert.Equal(t, 150.0, stats.TotalTimeSpent)
}

func TestCompleteSessionKeepsStudySetsSeparate(t *testing.T) {
	svc, _ := newTestService(t)
	user, err := svc.CreateUser("alice")
	require.NoError(t, err)

	_, _, err = svc.CompleteSessionWithTime(user.ID, "set-1", SessionResult{Score: 40}, sessionNow)
	require.NoError(t, err)
	stats, _, err := svc.CompleteSessionWithTime(user.ID, "set-2", SessionResult{Score: 90}, sessionNow)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.TotalSessions)
	assert.Equal(t, 90.0, stats.AverageScore)
}

func TestCompleteSessionRejectsInvalidScore(t *testing.T) {
	svc, _ := newTestService(t)
	user, err := svc.CreateUser("alice")
	require.NoError(t, err)

	for _, score := range []float64{-1, 101, math.NaN(), math.Inf(1)} {
		_, _, err := svc.CompleteSessionWithTime(user.ID, "set-1", SessionResult{Score: score}, sessionNow)
		assert.ErrorIs(t, err, ErrInvalidScore, "score %v should be rejected", score)
	}

	// Nothing was recorded.
	record, err := svc.Storage.GetUser(user.ID)
	require.NoError(t, err)
	assert.Empty(t, record.Progress.StudySets)
	assert.Empty(t, record.Sessions)
}

func TestCompleteSessionUnknownUser(t *testing.T) {
	svc, _ := newTestService(t)
	_, _, err := svc.CompleteSessionWithTime("nobody", "set-1", SessionResult{Score: 50}, sessionNow)
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestCompleteSessionReconcilesClassifications(t *testing.T) {
	svc, path := newTestService(t)
	user, err := svc.CreateUser("alice")
	require.NoError(t, err)

	// First session establishes known={A,B}, unknown={C}.
	result := SessionResult{
		Score: 66,
		Classifications: progress.Classification{
			"v2:aaaa": progress.Known,
			"v2:bbbb": progress.Known,
			"v2:cccc": progress.Unknown,
		},
	}
	_, delta, err := svc.CompleteSessionWithTime(user.ID, "set-1", result, sessionNow)
	require.NoError(t, err)
	assert.Equal(t, []string{"v2:aaaa", "v2:bbbb"}, delta.KnownAdd)
	assert.Equal(t, []string{"v2:cccc"}, delta.UnknownAdd)

	// Second session swaps A and C; B goes untouched.
	result = SessionResult{
		Score: 50,
		Classifications: progress.Classification{
			"v2:aaaa": progress.Unknown,
			"v2:cccc": progress.Known,
		},
	}
	_, delta, err = svc.CompleteSessionWithTime(user.ID, "set-1", result, sessionNow)
	require.NoError(t, err)
	assert.Equal(t, []string{"v2:cccc"}, delta.KnownAdd)
	assert.Equal(t, []string{"v2:aaaa"}, delta.KnownRemove)
	assert.Equal(t, []string{"v2:aaaa"}, delta.UnknownAdd)
	assert.Equal(t, []string{"v2:cccc"}, delta.UnknownRemove)

	// The reconciled state survives a cold reload from disk.
	reloaded := storage.NewFileStorage(path)
	require.NoError(t, reloaded.Load())
	record, err := reloaded.GetUser(user.ID)
	require.NoError(t, err)
	sp := record.FlashcardProgress["set-1"]
	assert.ElementsMatch(t, []string{"v2:bbbb", "v2:cccc"}, sp.KnownCards)
	assert.Equal(t, []string{"v2:aaaa"}, sp.UnknownCards)
	assert.True(t, sp.LastUpdated.Equal(sessionNow))
}

func TestCompleteSessionWipesLegacyState(t *testing.T) {
	svc, _ := newTestService(t)
	user, err := svc.CreateUser("alice")
	require.NoError(t, err)

	// Seed pre-migration state keyed by legacy content ids.
	record, err := svc.Storage.GetUser(user.ID)
	require.NoError(t, err)
	record.FlashcardProgress["set-1"] = progress.StudySetProgress{
		KnownCards:   []string{"k3j2h1g4f5d6s7a8"},
		UnknownCards: []string{"a1b2c3d4e5f6a7b8c9d0"},
		Schedules: map[string]progress.CardSchedule{
			"k3j2h1g4f5d6s7a8": progress.NewCardSchedule(),
		},
	}
	require.NoError(t, svc.Storage.PutUser(record))

	result := SessionResult{
		Score:           100,
		Classifications: progress.Classification{"v2:aaaa": progress.Known},
	}
	_, _, err = svc.CompleteSessionWithTime(user.ID, "set-1", result, sessionNow)
	require.NoError(t, err)

	record, err = svc.Storage.GetUser(user.ID)
	require.NoError(t, err)
	sp := record.FlashcardProgress["set-1"]
	assert.Equal(t, []string{"v2:aaaa"}, sp.KnownCards, "legacy known cards are wiped, not migrated")
	assert.Empty(t, sp.UnknownCards)
	assert.NotContains(t, sp.Schedules, "k3j2h1g4f5d6s7a8")
}

func TestCompleteSessionAppendsSessionLog(t *testing.T) {
	svc, _ := newTestService(t)
	user, err := svc.CreateUser("alice")
	require.NoError(t, err)

	_, _, err = svc.CompleteSessionWithTime(user.ID, "set-1", SessionResult{
		Score: 75, TotalTime: 42, CorrectAnswers: 3, TotalQuestions: 4,
	}, sessionNow)
	require.NoError(t, err)

	record, err := svc.Storage.GetUser(user.ID)
	require.NoError(t, err)
	require.Len(t, record.Sessions, 1)
	log := record.Sessions[0]
	assert.NotEmpty(t, log.ID)
	assert.Equal(t, "set-1", log.StudySetID)
	assert.Equal(t, 75.0, log.Score)
	assert.Equal(t, 3, log.CorrectAnswers)
	assert.True(t, log.CompletedAt.Equal(sessionNow))
}

func TestSubmitReviewUpdatesSchedule(t *testing.T) {
	svc, _ := newTestService(t)
	user, err := svc.CreateUser("alice")
	require.NoError(t, err)

	card, err := svc.SubmitReviewWithTime(user.ID, "set-1", "v2:aaaa", true, 2, sessionNow)
	require.NoError(t, err)
	assert.Equal(t, 1, card.TimesReviewed)
	assert.Equal(t, 6, card.Interval)
	require.NotNil(t, card.NextReview)
	assert.True(t, card.NextReview.Equal(sessionNow.AddDate(0, 0, 6)))

	// The schedule is persisted under the study set.
	record, err := svc.Storage.GetUser(user.ID)
	require.NoError(t, err)
	assert.Contains(t, record.FlashcardProgress["set-1"].Schedules, "v2:aaaa")
}

func TestDueCardsOrderingAndLimit(t *testing.T) {
	svc, _ := newTestService(t)
	user, err := svc.CreateUser("alice")
	require.NoError(t, err)

	// "missed" fails repeatedly so its difficulty climbs; "learned" is
	// answered correctly and stops being due.
	for i := 0; i < 2; i++ {
		_, err = svc.SubmitReviewWithTime(user.ID, "set-1", "missed", false, 2, sessionNow)
		require.NoError(t, err)
	}
	_, err = svc.SubmitReviewWithTime(user.ID, "set-1", "learned", true, 2, sessionNow)
	require.NoError(t, err)
	_, err = svc.SubmitReviewWithTime(user.ID, "set-1", "seen-once", false, 2, sessionNow)
	require.NoError(t, err)

	later := sessionNow.AddDate(0, 0, 2)
	due, err := svc.DueCardsWithTime(user.ID, "set-1", 0, later)
	require.NoError(t, err)
	assert.Equal(t, []string{"missed", "seen-once"}, due, "hardest card first, learned card not due")

	due, err = svc.DueCardsWithTime(user.ID, "set-1", 1, later)
	require.NoError(t, err)
	assert.Equal(t, []string{"missed"}, due)
}

func TestStudySetOverview(t *testing.T) {
	svc, _ := newTestService(t)
	user, err := svc.CreateUser("alice")
	require.NoError(t, err)

	result := SessionResult{
		Score: 50,
		Classifications: progress.Classification{
			"v2:aaaa": progress.Known,
			"v2:bbbb": progress.Unknown,
		},
	}
	_, _, err = svc.CompleteSessionWithTime(user.ID, "set-1", result, sessionNow)
	require.NoError(t, err)
	_, err = svc.SubmitReviewWithTime(user.ID, "set-1", "v2:bbbb", false, 2, sessionNow)
	require.NoError(t, err)

	overview, err := svc.StudySetOverview(user.ID, "set-1")
	require.NoError(t, err)
	assert.Equal(t, 1, overview.KnownCount)
	assert.Equal(t, 1, overview.UnknownCount)
	assert.Equal(t, 1, overview.TrackedCards)
	assert.Equal(t, 1, overview.Stats.TotalSessions)
	assert.Equal(t, 50.0, overview.Stats.AverageScore)
}

func TestStudySetOverviewUnknownSet(t *testing.T) {
	svc, _ := newTestService(t)
	user, err := svc.CreateUser("alice")
	require.NoError(t, err)

	overview, err := svc.StudySetOverview(user.ID, "never-studied")
	require.NoError(t, err)
	assert.Equal(t, "never-studied", overview.Stats.StudySetID)
	assert.Equal(t, 0, overview.Stats.TotalSessions)
	assert.Equal(t, 0, overview.KnownCount)
}
