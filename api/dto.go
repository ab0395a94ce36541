/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Events:
    EventRequest, EventResponse

  Progress:
    ProgressDTO, StreakDTO

  Ledger:
    LedgerEntryDTO

  Achievements:
    AchievementDTO (wraps gamify.Achievement with unlock status)

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Validation is done in handlers and the engine, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - gamify/types.go: Domain model these types project
*/
package api

import (
	"github.com/warp/reward-engine/gamify"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// EventRequest is the request to submit an activity event.
type EventRequest struct {
	UserID           string            `json:"user_id"`
	Kind             string            `json:"kind"`
	Timestamp        string            `json:"timestamp"` // RFC3339
	IdempotencyToken string            `json:"idempotency_token"`
	BaseXP           int64             `json:"base_xp"`
	BaseCoins        int64             `json:"base_coins"`
	Premium          bool              `json:"premium,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// EventResponse is the outcome of an event submission. Applied is false
// for stale events, which are not an error from the client's perspective.
type EventResponse struct {
	Applied bool                 `json:"applied"`
	Reason  string               `json:"reason,omitempty"`
	Result  *gamify.RewardResult `json:"result,omitempty"`
}

// StreakDTO represents one activity streak in API responses.
type StreakDTO struct {
	Activity           string `json:"activity"`
	CurrentLength      int    `json:"current_length"`
	LongestLength      int    `json:"longest_length"`
	LastCredited       string `json:"last_credited,omitempty"`
	GraceUsedThisCycle bool   `json:"grace_used_this_cycle"`
}

// ProgressDTO represents a user's progress in API responses.
type ProgressDTO struct {
	UserID         string           `json:"user_id"`
	TotalXP        int64            `json:"total_xp"`
	Coins          int64            `json:"coins"`
	Level          int              `json:"level"`
	XPForNextLevel int64            `json:"xp_for_next_level"`
	Timezone       string           `json:"timezone"`
	Streaks        []StreakDTO      `json:"streaks"`
	Unlocked       []AchievementDTO `json:"unlocked"`
	ActivityCounts map[string]int64 `json:"activity_counts"`
}

// LedgerEntryDTO represents one committed ledger entry.
type LedgerEntryDTO struct {
	Token        string   `json:"token"`
	ID           string   `json:"id"`
	UserID       string   `json:"user_id"`
	AppliedXP    int64    `json:"applied_xp"`
	AppliedCoins int64    `json:"applied_coins"`
	Achievements []string `json:"achievements,omitempty"`
	AppliedAt    string   `json:"applied_at"`
}

// AchievementDTO represents a catalog achievement in API responses.
type AchievementDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Rarity      string `json:"rarity"`
	RewardXP    int64  `json:"reward_xp"`
	RewardCoins int64  `json:"reward_coins"`
	Unlocked    bool   `json:"unlocked,omitempty"`
}

// ScenarioDTO describes a loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
