package progress

import (
	"math"
	"time"
)

// StudySetStats aggregates completed-session statistics for one user and one
// study set, independent of per-card flashcard state. The record is created
// on the first completed session and updated in place afterwards.
type StudySetStats struct {
	StudySetID     string    `json:"studySetId"`
	TotalSessions  int       `json:"totalSessions"`
	BestScore      float64   `json:"bestScore"`
	AverageScore   float64   `json:"averageScore"`
	TotalTimeSpent float64   `json:"totalTimeSpent"` // seconds
	LastAttempt    time.Time `json:"lastAttempt"`
}

// RecordSession folds one completed session into the stats and returns the
// result. The average is maintained incrementally,
// round((avg*n + score) / (n+1)), so the full score history never needs to
// be retained. Callers validate that score is a finite number in a sane
// range before getting here.
func RecordSession(s StudySetStats, score, timeSpent float64, now time.Time) StudySetStats {
	s.AverageScore = math.Round((s.AverageScore*float64(s.TotalSessions) + score) / float64(s.TotalSessions+1))
	s.TotalSessions++
	if score > s.BestScore {
		s.BestScore = score
	}
	s.TotalTimeSpent += timeSpent
	s.LastAttempt = now
	return s
}
