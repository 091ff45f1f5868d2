// Package main provides implementation for the studydeck MCP service.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tgoodwin/studydeck/internal/progress"
	"github.com/tgoodwin/studydeck/internal/storage"
)

// serviceFromContext extracts the StudyService placed in the context by main.
func serviceFromContext(ctx context.Context) (*StudyService, bool) {
	s, ok := ctx.Value("service").(*StudyService)
	return s, ok && s != nil
}

// handleCreateUser handles the create_user tool request.
func handleCreateUser(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, ok := serviceFromContext(ctx)
	if !ok {
		return mcp.NewToolResultText("Error: Service not available"), nil
	}

	name, ok := request.Params.Arguments["name"].(string)
	if !ok || name == "" {
		return mcp.NewToolResultText("Missing required parameter: name"), nil
	}

	user, err := s.CreateUser(name)
	if err != nil {
		return mcp.NewToolResultText(fmt.Sprintf(`{"error": "Error creating user: %v"}`, err)), nil
	}

	jsonBytes, err := json.MarshalIndent(CreateUserResponse{User: user}, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// handleListUsers handles the list_users tool request.
func handleListUsers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, ok := serviceFromContext(ctx)
	if !ok {
		return mcp.NewToolResultText("Error: Service not available"), nil
	}

	users, err := s.ListUsers()
	if err != nil {
		return mcp.NewToolResultText(fmt.Sprintf(`{"error": "Error listing users: %v"}`, err)), nil
	}

	jsonBytes, err := json.MarshalIndent(ListUsersResponse{Users: users}, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// handleCompleteSession handles the complete_session tool request. The
// session's known/unknown card id lists are turned into a classification;
// a card id may appear in at most one of the two lists.
func handleCompleteSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, ok := serviceFromContext(ctx)
	if !ok {
		return mcp.NewToolResultText("Error: Service not available"), nil
	}

	userID, ok := request.Params.Arguments["user_id"].(string)
	if !ok {
		return mcp.NewToolResultText("Missing required parameter: user_id"), nil
	}
	studySetID, ok := request.Params.Arguments["study_set_id"].(string)
	if !ok {
		return mcp.NewToolResultText("Missing required parameter: study_set_id"), nil
	}
	score, ok := request.Params.Arguments["score"].(float64)
	if !ok {
		return mcp.NewToolResultText("Missing required parameter: score"), nil
	}

	result := SessionResult{Score: score}
	if totalTime, ok := request.Params.Arguments["total_time"].(float64); ok {
		result.TotalTime = totalTime
	}
	if correctAnswers, ok := request.Params.Arguments["correct_answers"].(float64); ok {
		result.CorrectAnswers = int(correctAnswers)
	}
	if totalQuestions, ok := request.Params.Arguments["total_questions"].(float64); ok {
		result.TotalQuestions = int(totalQuestions)
	}

	knownIDs := stringSliceArg(request, "known_card_ids")
	unknownIDs := stringSliceArg(request, "unknown_card_ids")
	if len(knownIDs) > 0 || len(unknownIDs) > 0 {
		classification := make(progress.Classification, len(knownIDs)+len(unknownIDs))
		for _, id := range knownIDs {
			classification[id] = progress.Known
		}
		for _, id := range unknownIDs {
			if _, dup := classification[id]; dup {
				return mcp.NewToolResultText(fmt.Sprintf("Card id %q appears in both known_card_ids and unknown_card_ids", id)), nil
			}
			classification[id] = progress.Unknown
		}
		result.Classifications = classification
	}

	stats, delta, err := s.CompleteSession(userID, studySetID, result)
	if err != nil {
		if errors.Is(err, ErrInvalidScore) {
			return mcp.NewToolResultText("Score must be a finite number between 0 and 100"), nil
		}
		if errors.Is(err, storage.ErrUserNotFound) {
			return mcp.NewToolResultText(fmt.Sprintf("No user found with id %s", userID)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf(`{"error": "Error completing session: %v"}`, err)), nil
	}

	response := CompleteSessionResponse{
		Success: true,
		Message: fmt.Sprintf("Session recorded for study set %s", studySetID),
		Stats:   stats,
		Delta:   delta,
	}
	jsonBytes, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// handleSubmitReview handles the submit_review tool request.
func handleSubmitReview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, ok := serviceFromContext(ctx)
	if !ok {
		return mcp.NewToolResultText("Error: Service not available"), nil
	}

	userID, ok := request.Params.Arguments["user_id"].(string)
	if !ok {
		return mcp.NewToolResultText("Missing required parameter: user_id"), nil
	}
	studySetID, ok := request.Params.Arguments["study_set_id"].(string)
	if !ok {
		return mcp.NewToolResultText("Missing required parameter: study_set_id"), nil
	}
	cardID, ok := request.Params.Arguments["card_id"].(string)
	if !ok {
		return mcp.NewToolResultText("Missing required parameter: card_id"), nil
	}
	correct, ok := request.Params.Arguments["correct"].(bool)
	if !ok {
		return mcp.NewToolResultText("Missing required parameter: correct"), nil
	}

	// Optional: response time in seconds, used for quality scoring.
	responseTime, _ := request.Params.Arguments["response_time"].(float64)

	card, err := s.SubmitReview(userID, studySetID, cardID, correct, responseTime)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return mcp.NewToolResultText(fmt.Sprintf("No user found with id %s", userID)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf(`{"error": "Error submitting review: %v"}`, err)), nil
	}

	response := SubmitReviewResponse{
		Success: true,
		Message: "Review submitted successfully for card " + cardID,
		Card:    card,
	}
	jsonBytes, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// handleGetDueCards handles the get_due_cards tool request.
func handleGetDueCards(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, ok := serviceFromContext(ctx)
	if !ok {
		return mcp.NewToolResultText("Error: Service not available"), nil
	}

	userID, ok := request.Params.Arguments["user_id"].(string)
	if !ok {
		return mcp.NewToolResultText("Missing required parameter: user_id"), nil
	}
	studySetID, ok := request.Params.Arguments["study_set_id"].(string)
	if !ok {
		return mcp.NewToolResultText("Missing required parameter: study_set_id"), nil
	}

	limit := 0
	if limitFloat, ok := request.Params.Arguments["limit"].(float64); ok {
		limit = int(limitFloat)
	}

	cardIDs, err := s.DueCards(userID, studySetID, limit)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return mcp.NewToolResultText(fmt.Sprintf("No user found with id %s", userID)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf(`{"error": "Error getting due cards: %v"}`, err)), nil
	}

	jsonBytes, err := json.MarshalIndent(DueCardsResponse{CardIDs: cardIDs, Count: len(cardIDs)}, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// handleGetStudyStats handles the get_study_stats tool request.
func handleGetStudyStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, ok := serviceFromContext(ctx)
	if !ok {
		return mcp.NewToolResultText("Error: Service not available"), nil
	}

	userID, ok := request.Params.Arguments["user_id"].(string)
	if !ok {
		return mcp.NewToolResultText("Missing required parameter: user_id"), nil
	}
	studySetID, ok := request.Params.Arguments["study_set_id"].(string)
	if !ok {
		return mcp.NewToolResultText("Missing required parameter: study_set_id"), nil
	}

	overview, err := s.StudySetOverview(userID, studySetID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return mcp.NewToolResultText(fmt.Sprintf("No user found with id %s", userID)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf(`{"error": "Error getting study stats: %v"}`, err)), nil
	}

	jsonBytes, err := json.MarshalIndent(OverviewResponse{Overview: overview}, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// stringSliceArg extracts an optional []string tool argument.
func stringSliceArg(request mcp.CallToolRequest, name string) []string {
	raw, ok := request.Params.Arguments[name].([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
