package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/tgoodwin/studydeck/internal/scheduler"
	"github.com/tgoodwin/studydeck/internal/storage"
)

const studydeckServerInfo = `
This is a spaced repetition study progress server. It tracks, per user and
per study set, which flashcards the user knows, which they don't, each
card's review schedule, and aggregate session statistics.

Workflow:

1. SESSIONS:
   - Run the study session with the user card by card.
   - For each card, call submit_review with whether the answer was correct
     and how many seconds it took; the card's schedule updates immediately.
   - When the session ends, call complete_session once with the score, the
     time spent, and the final known/unknown classification of every card
     seen in the session. Only cards from this session are affected; earlier
     progress on other cards is never touched.

2. REVIEW QUEUE:
   - Call get_due_cards to decide what to study next. Cards come back
     hardest first, then longest overdue. Respect that order.

3. PROGRESS:
   - Call get_study_stats to report best score, average score, and how many
     cards are classified known/unknown before proposing what to study.
`

func main() {
	// Optional .env file for local development; flags take precedence.
	if err := godotenv.Load(); err == nil {
		log.Printf("Loaded configuration from .env")
	}

	filePath := flag.String("file", envOr("STUDYDECK_FILE", "./studydeck.json"), "Path to user database file (file backend)")
	backend := flag.String("backend", envOr("STUDYDECK_BACKEND", "file"), "Storage backend: file, sqlite3, or postgres")
	dsn := flag.String("dsn", envOr("STUDYDECK_DSN", ""), "Database DSN (sqlite3/postgres backends)")
	planner := flag.String("planner", envOr("STUDYDECK_PLANNER", "sm2"), "Spaced repetition planner: sm2 or fsrs")
	flag.Parse()

	store, err := buildStorage(*backend, *filePath, *dsn)
	if err != nil {
		fmt.Printf("Error initializing storage: %v\n", err)
		os.Exit(1)
	}
	if err := store.Load(); err != nil {
		fmt.Printf("Error loading storage: %v\n", err)
		os.Exit(1)
	}

	plan, err := buildPlanner(*planner)
	if err != nil {
		fmt.Printf("Error initializing planner: %v\n", err)
		os.Exit(1)
	}

	studyService := NewStudyServiceWithPlanner(store, plan)

	s := server.NewMCPServer(
		"StudyDeck MCP",
		"1.0.0",
		server.WithInstructions(studydeckServerInfo),
		server.WithToolCapabilities(true),
		server.WithLogging(),
	)

	// Context with the service for tool handlers
	ctx := context.WithValue(context.Background(), "service", studyService)

	createUserTool := mcp.NewTool("create_user",
		mcp.WithDescription("Create a new user whose study progress will be tracked."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Display name for the new user"),
		),
	)

	listUsersTool := mcp.NewTool("list_users",
		mcp.WithDescription("List all users and their study progress records."),
	)

	completeSessionTool := mcp.NewTool("complete_session",
		mcp.WithDescription(
			"Record a completed study session. Always updates the study set's "+
				"aggregate statistics (session count, best score, running average, "+
				"total time). When known_card_ids/unknown_card_ids are provided, "+
				"also reconciles the user's persisted known/unknown card sets: only "+
				"cards listed here are touched, every other card keeps its prior "+
				"classification. A card id must not appear in both lists.",
		),
		mcp.WithString("user_id",
			mcp.Required(),
			mcp.Description("The ID of the user who completed the session"),
		),
		mcp.WithString("study_set_id",
			mcp.Required(),
			mcp.Description("The ID of the study set the session was run against"),
		),
		mcp.WithNumber("score",
			mcp.Required(),
			mcp.Description("Session score, 0-100"),
		),
		mcp.WithNumber("total_time",
			mcp.Description("Total session time in seconds"),
		),
		mcp.WithNumber("correct_answers",
			mcp.Description("Number of correct answers in the session"),
		),
		mcp.WithNumber("total_questions",
			mcp.Description("Number of questions in the session"),
		),
		mcp.WithArray("known_card_ids",
			mcp.Description("Card ids the user classified as known this session"),
		),
		mcp.WithArray("unknown_card_ids",
			mcp.Description("Card ids the user classified as unknown this session"),
		),
	)

	submitReviewTool := mcp.NewTool("submit_review",
		mcp.WithDescription(
			"Record one flashcard review. Updates the card's review counters, "+
				"difficulty, and spaced-repetition schedule (ease factor, interval, "+
				"next review date). Pass response_time in seconds when available: "+
				"faster correct answers raise the ease factor more.",
		),
		mcp.WithString("user_id",
			mcp.Required(),
			mcp.Description("The ID of the reviewing user"),
		),
		mcp.WithString("study_set_id",
			mcp.Required(),
			mcp.Description("The ID of the study set the card belongs to"),
		),
		mcp.WithString("card_id",
			mcp.Required(),
			mcp.Description("The ID of the card being reviewed"),
		),
		mcp.WithBoolean("correct",
			mcp.Required(),
			mcp.Description("Whether the user recalled the card correctly"),
		),
		mcp.WithNumber("response_time",
			mcp.Description("Seconds the user took to answer"),
		),
	)

	getDueCardsTool := mcp.NewTool("get_due_cards",
		mcp.WithDescription(
			"Get the card ids due for review in a study set, ordered hardest "+
				"first and then longest overdue; never-reviewed cards count as "+
				"oldest. Present cards in this order.",
		),
		mcp.WithString("user_id",
			mcp.Required(),
			mcp.Description("The ID of the user"),
		),
		mcp.WithString("study_set_id",
			mcp.Required(),
			mcp.Description("The ID of the study set"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of cards to return (omit for all)"),
		),
	)

	getStudyStatsTool := mcp.NewTool("get_study_stats",
		mcp.WithDescription(
			"Get a study set's aggregate statistics together with the current "+
				"known/unknown classification counts and the size of the review queue.",
		),
		mcp.WithString("user_id",
			mcp.Required(),
			mcp.Description("The ID of the user"),
		),
		mcp.WithString("study_set_id",
			mcp.Required(),
			mcp.Description("The ID of the study set"),
		),
	)

	s.AddTool(createUserTool, func(reqCtx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleCreateUser(ctx, request)
	})
	s.AddTool(listUsersTool, func(reqCtx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleListUsers(ctx, request)
	})
	s.AddTool(completeSessionTool, func(reqCtx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleCompleteSession(ctx, request)
	})
	s.AddTool(submitReviewTool, func(reqCtx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleSubmitReview(ctx, request)
	})
	s.AddTool(getDueCardsTool, func(reqCtx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleGetDueCards(ctx, request)
	})
	s.AddTool(getStudyStatsTool, func(reqCtx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleGetStudyStats(ctx, request)
	})

	if err := server.ServeStdio(s); err != nil {
		log.Fatalf("Error serving MCP server: %v", err)
	}
}

// buildStorage selects the persistence backend.
func buildStorage(backend, filePath, dsn string) (storage.Storage, error) {
	switch backend {
	case "file":
		return storage.NewFileStorage(filePath), nil
	case "sqlite3", "postgres":
		if dsn == "" {
			return nil, fmt.Errorf("backend %q requires -dsn", backend)
		}
		return storage.NewSQLStorage(backend, dsn)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

// buildPlanner selects the spaced-repetition algorithm.
func buildPlanner(name string) (scheduler.Planner, error) {
	switch name {
	case "sm2":
		return scheduler.NewSM2Planner(), nil
	case "fsrs":
		return scheduler.NewFSRSPlanner(), nil
	default:
		return nil, fmt.Errorf("unknown planner %q", name)
	}
}

// envOr returns the environment variable value or a default.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
