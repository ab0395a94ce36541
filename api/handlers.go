/*
handlers.go - HTTP API handlers for the reward engine

PURPOSE:
  Exposes the reward engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Events:
    POST   /api/events                   Submit an activity event

  Users:
    GET    /api/users/{id}/progress      Progress summary
    GET    /api/users/{id}/ledger        Committed ledger entries

  Achievements:
    GET    /api/achievements             Catalog (optionally per-user)

  Scenarios:
    GET    /api/scenarios                List demo scenarios
    POST   /api/scenarios/load           Load a demo scenario

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Engine: Reward computation and ledger semantics
  - Store: Read access for progress and ledger queries
  - Catalog: Achievement definitions

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: User not found
  - 500: Internal errors
  - 503: Retryable storage/contention errors (client should retry)

  Stale events are NOT errors: they return 200 with applied=false so
  clients syncing old offline data can skip them silently.

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/reward-engine/gamify"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine  *gamify.Engine
	Store   gamify.TxStore
	Catalog *gamify.Catalog
	Logger  *zap.Logger

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler.
func NewHandler(engine *gamify.Engine, store gamify.TxStore, catalog *gamify.Catalog, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Engine:  engine,
		Store:   store,
		Catalog: catalog,
		Logger:  logger,
	}
}

// =============================================================================
// EVENT HANDLERS
// =============================================================================

// SubmitEvent applies an activity event through the engine.
func (h *Handler) SubmitEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ts, err := time.Parse(time.RFC3339, req.Timestamp)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid timestamp, expected RFC3339", err)
		return
	}

	event := gamify.ActivityEvent{
		UserID:           gamify.UserID(req.UserID),
		Kind:             gamify.ActivityKind(req.Kind),
		Timestamp:        ts,
		IdempotencyToken: req.IdempotencyToken,
		BaseXP:           req.BaseXP,
		BaseCoins:        req.BaseCoins,
		Premium:          req.Premium,
		Metadata:         req.Metadata,
	}

	result, err := h.Engine.Apply(r.Context(), event)
	if err != nil {
		switch {
		case errors.Is(err, gamify.ErrStaleEvent):
			// Old offline events are skippable, not failures.
			writeJSON(w, http.StatusOK, EventResponse{Applied: false, Reason: "stale_event"})
		case gamify.IsClientError(err):
			writeError(w, http.StatusBadRequest, "Invalid event", err)
		case gamify.IsRetryable(err):
			writeError(w, http.StatusServiceUnavailable, "Temporarily unavailable, retry", err)
		default:
			h.Logger.Error("apply event failed",
				zap.String("user_id", req.UserID),
				zap.String("token", req.IdempotencyToken),
				zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Failed to apply event", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, EventResponse{Applied: true, Result: result})
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// GetProgress returns a user's progress summary.
func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	userID := gamify.UserID(chi.URLParam(r, "id"))

	state, err := h.Store.GetProgress(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load progress", err)
		return
	}
	if state == nil {
		writeError(w, http.StatusNotFound, "User not found", gamify.ErrUserNotFound)
		return
	}

	writeJSON(w, http.StatusOK, h.toProgressDTO(state))
}

// GetLedger returns a user's committed ledger entries in commit order.
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	userID := gamify.UserID(chi.URLParam(r, "id"))

	entries, err := h.Store.Entries(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load ledger", err)
		return
	}

	dtos := make([]LedgerEntryDTO, len(entries))
	for i, e := range entries {
		achievements := make([]string, len(e.Achievements))
		for j, id := range e.Achievements {
			achievements[j] = string(id)
		}
		dtos[i] = LedgerEntryDTO{
			Token:        e.Token,
			ID:           e.ID,
			UserID:       string(e.UserID),
			AppliedXP:    e.AppliedXP,
			AppliedCoins: e.AppliedCoins,
			Achievements: achievements,
			AppliedAt:    e.AppliedAt.Format(time.RFC3339),
		}
	}

	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ACHIEVEMENT HANDLERS
// =============================================================================

// ListAchievements returns the catalog. With ?user={id}, each entry is
// annotated with that user's unlock status.
func (h *Handler) ListAchievements(w http.ResponseWriter, r *http.Request) {
	var state *gamify.UserProgressState
	if userID := r.URL.Query().Get("user"); userID != "" {
		s, err := h.Store.GetProgress(r.Context(), gamify.UserID(userID))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load progress", err)
			return
		}
		state = s
	}

	achievements := h.Catalog.Achievements()
	dtos := make([]AchievementDTO, len(achievements))
	for i, a := range achievements {
		dtos[i] = toAchievementDTO(a, state != nil && state.HasAchievement(a.ID))
	}

	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// DTO CONVERSION
// =============================================================================

func (h *Handler) toProgressDTO(state *gamify.UserProgressState) ProgressDTO {
	streaks := make([]StreakDTO, 0, len(state.Streaks))
	for kind, rec := range state.Streaks {
		s := StreakDTO{
			Activity:           string(kind),
			CurrentLength:      rec.CurrentLength,
			LongestLength:      rec.LongestLength,
			GraceUsedThisCycle: rec.GraceUsedThisCycle,
		}
		if !rec.LastCredited.IsZero() {
			s.LastCredited = rec.LastCredited.String()
		}
		streaks = append(streaks, s)
	}
	sort.Slice(streaks, func(i, j int) bool { return streaks[i].Activity < streaks[j].Activity })

	unlocked := make([]AchievementDTO, 0, len(state.Unlocked))
	for _, a := range h.Catalog.Achievements() {
		if state.HasAchievement(a.ID) {
			unlocked = append(unlocked, toAchievementDTO(a, true))
		}
	}

	counts := make(map[string]int64, len(state.ActivityCounts))
	for kind, n := range state.ActivityCounts {
		counts[string(kind)] = n
	}

	nextXP, err := gamify.XPForNextLevel(state.Level)
	if err != nil {
		nextXP = 0
	}

	return ProgressDTO{
		UserID:         string(state.UserID),
		TotalXP:        state.TotalXP,
		Coins:          state.Coins,
		Level:          state.Level,
		XPForNextLevel: nextXP,
		Timezone:       state.Timezone,
		Streaks:        streaks,
		Unlocked:       unlocked,
		ActivityCounts: counts,
	}
}

func toAchievementDTO(a gamify.Achievement, unlocked bool) AchievementDTO {
	return AchievementDTO{
		ID:          string(a.ID),
		Name:        a.Name,
		Description: a.Description,
		Rarity:      string(a.Rarity),
		RewardXP:    a.RewardXP,
		RewardCoins: a.RewardCoins,
		Unlocked:    unlocked,
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
