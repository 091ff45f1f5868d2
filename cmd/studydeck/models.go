// Package main provides implementation for the studydeck MCP service.
package main

import (
	"github.com/tgoodwin/studydeck/internal/progress"
	"github.com/tgoodwin/studydeck/internal/storage"
)

// SessionResult is what the session runtime hands over when a study session
// completes. Classifications is optional: when absent only the aggregate
// statistics are updated, when present the flashcard known/unknown sets are
// reconciled as well.
type SessionResult struct {
	Score           float64                 `json:"score"`
	TotalTime       float64                 `json:"total_time"`
	CorrectAnswers  int                     `json:"correct_answers"`
	TotalQuestions  int                     `json:"total_questions"`
	Classifications progress.Classification `json:"classifications,omitempty"`
}

// StudySetOverview combines a study set's aggregate statistics with the
// current flashcard classification and review-queue counts.
type StudySetOverview struct {
	Stats        progress.StudySetStats `json:"stats"`
	KnownCount   int                    `json:"known_count"`
	UnknownCount int                    `json:"unknown_count"`
	DueCount     int                    `json:"due_count"`
	TrackedCards int                    `json:"tracked_cards"`
}

// CreateUserResponse represents the response structure for create_user
type CreateUserResponse struct {
	User storage.UserRecord `json:"user"`
}

// ListUsersResponse represents the response structure for list_users
type ListUsersResponse struct {
	Users []storage.UserRecord `json:"users"`
}

// CompleteSessionResponse represents the response structure for complete_session
type CompleteSessionResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Stats   progress.StudySetStats `json:"stats"`
	Delta   progress.Delta         `json:"delta"`
}

// SubmitReviewResponse represents the response structure for submit_review
type SubmitReviewResponse struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Card    progress.CardSchedule `json:"card"`
}

// DueCardsResponse represents the response structure for get_due_cards
type DueCardsResponse struct {
	CardIDs []string `json:"card_ids"`
	Count   int      `json:"count"`
}

// OverviewResponse represents the response structure for get_study_stats
type OverviewResponse struct {
	Overview StudySetOverview `json:"overview"`
}
