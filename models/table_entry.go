package models

import "time"

// TableEntry is one participant's standing within a (league, season).
// Rows are owned by the calculation service: every recalculation replaces
// the full set for its scope.
type TableEntry struct {
	ID                int             `json:"id"`
	LeagueID          int             `json:"league_id"`
	SeasonID          int             `json:"season_id"`
	ParticipantKind   ParticipantKind `json:"participant_kind"`
	ParticipantID     int             `json:"participant_id"`
	TeamName          string          `json:"team_name"` // denormalized display name
	Rank              int             `json:"rank"`
	GamesPlayed       int             `json:"games_played"`
	Wins              int             `json:"wins"`
	Draws             int             `json:"draws"`
	Losses            int             `json:"losses"`
	GoalsFor          int             `json:"goals_for"`
	GoalsAgainst      int             `json:"goals_against"`
	GoalDifference    int             `json:"goal_difference"`
	Points            int             `json:"points"`
	Form              string          `json:"form,omitempty"` // last 5 results, S/U/N, most recent last
	AutoCalculated    bool            `json:"auto_calculated"`
	CalculationSource string          `json:"calculation_source,omitempty"`
	UpdatedAt         time.Time       `json:"updated_at"`
}
