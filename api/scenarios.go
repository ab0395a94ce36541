/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	data for testing and demos. Each scenario submits a sequence of
	activity events through the engine, so everything downstream (streaks,
	levels, achievements, the ledger) is produced by the real reward path.

AVAILABLE SCENARIOS:

	new-user:      First day, a handful of starter activities
	streak-week:   Seven consecutive workout days, streak tier bonuses
	grace-save:    A missed day covered by the one-day grace allowance
	power-user:    Weeks of mixed activity, several levels and unlocks

HOW SCENARIOS WORK:
 1. Each scenario owns a distinct demo user id
 2. Events carry deterministic idempotency tokens, so loading a
    scenario twice replays the original results instead of double
    crediting

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "streak-week"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx, h)
 3. Add case to LoadScenario handler

SEE ALSO:
  - handlers.go: LoadScenario, ListScenarios handlers
  - gamify/engine.go: Apply, the path every seeded event takes
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/reward-engine/gamify"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "new-user",
		Name:        "New User",
		Description: "First day: a meal log, a workout, and a check-in",
	},
	{
		ID:          "streak-week",
		Name:        "Streak Week",
		Description: "Seven consecutive workout days with streak tier bonuses",
	},
	{
		ID:          "grace-save",
		Name:        "Grace Save",
		Description: "A missed day covered by the one-day grace allowance",
	},
	{
		ID:          "power-user",
		Name:        "Power User",
		Description: "Weeks of mixed activity: several levels and achievement unlocks",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the most recently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: h.currentScenario, Name: h.currentScenario})
}

// LoadScenario seeds a predefined scenario through the engine.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	var err error
	switch req.ScenarioID {
	case "new-user":
		err = h.loadNewUserScenario(ctx)
	case "streak-week":
		err = h.loadStreakWeekScenario(ctx)
	case "grace-save":
		err = h.loadGraceSaveScenario(ctx)
	case "power-user":
		err = h.loadPowerUserScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario: %s", req.ScenarioID), nil)
		return
	}

	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario_id": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// seedEvent builds a demo event with a deterministic token so reloading a
// scenario replays rather than double-credits.
func seedEvent(user, scenario string, seq int, kind gamify.ActivityKind, day time.Time, xp, coins int64) gamify.ActivityEvent {
	return gamify.ActivityEvent{
		UserID:           gamify.UserID(user),
		Kind:             kind,
		Timestamp:        day,
		IdempotencyToken: fmt.Sprintf("demo-%s-%03d", scenario, seq),
		BaseXP:           xp,
		BaseCoins:        coins,
	}
}

func (h *Handler) applyAll(ctx context.Context, events []gamify.ActivityEvent) error {
	for _, e := range events {
		if _, err := h.Engine.Apply(ctx, e); err != nil {
			return fmt.Errorf("seed event %s: %w", e.IdempotencyToken, err)
		}
	}
	return nil
}

// Demo events use fixed historical weekdays so results are reproducible.
func demoDay(offset int) time.Time {
	// Monday 2026-03-02, 09:00 UTC.
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, offset)
}

func (h *Handler) loadNewUserScenario(ctx context.Context) error {
	const user = "demo-alice"
	day := demoDay(0)
	return h.applyAll(ctx, []gamify.ActivityEvent{
		seedEvent(user, "new-user", 1, gamify.ActivityMealLog, day, 10, 2),
		seedEvent(user, "new-user", 2, gamify.ActivityWorkout, day.Add(2*time.Hour), 30, 5),
		seedEvent(user, "new-user", 3, gamify.ActivityCheckin, day.Add(8*time.Hour), 5, 1),
	})
}

func (h *Handler) loadStreakWeekScenario(ctx context.Context) error {
	const user = "demo-bob"
	events := make([]gamify.ActivityEvent, 0, 7)
	for i := 0; i < 7; i++ {
		events = append(events, seedEvent(user, "streak-week", i+1, gamify.ActivityWorkout, demoDay(i), 30, 5))
	}
	return h.applyAll(ctx, events)
}

func (h *Handler) loadGraceSaveScenario(ctx context.Context) error {
	const user = "demo-carol"
	// Days 0-2 build a streak, day 3 is skipped, day 4 uses grace.
	offsets := []int{0, 1, 2, 4}
	events := make([]gamify.ActivityEvent, 0, len(offsets))
	for i, off := range offsets {
		events = append(events, seedEvent(user, "grace-save", i+1, gamify.ActivityMealLog, demoDay(off), 10, 2))
	}
	return h.applyAll(ctx, events)
}

func (h *Handler) loadPowerUserScenario(ctx context.Context) error {
	const user = "demo-dana"
	events := make([]gamify.ActivityEvent, 0, 90)
	seq := 1
	for i := 0; i < 30; i++ {
		day := demoDay(i)
		events = append(events, seedEvent(user, "power-user", seq, gamify.ActivityWorkout, day, 30, 5))
		seq++
		events = append(events, seedEvent(user, "power-user", seq, gamify.ActivityMealLog, day.Add(time.Hour), 10, 2))
		seq++
		if i%3 == 0 {
			events = append(events, seedEvent(user, "power-user", seq, gamify.ActivitySocialHelp, day.Add(5*time.Hour), 15, 3))
			seq++
		}
	}
	return h.applyAll(ctx, events)
}
