package models

import "time"

type MatchStatus string

const (
	MatchStatusScheduled MatchStatus = "scheduled"
	MatchStatusFinished  MatchStatus = "finished"
	MatchStatusCancelled MatchStatus = "cancelled"
	MatchStatusPostponed MatchStatus = "postponed"
)

type CalculationState string

const (
	CalculationPending    CalculationState = "pending"
	CalculationProcessing CalculationState = "processing"
	CalculationCompleted  CalculationState = "completed"
	CalculationFailed     CalculationState = "failed"
)

// Match carries both participant representations: the legacy team pair and
// the current club pair. During migration both may be set at once; the club
// pair takes precedence for calculation.
type Match struct {
	ID       int         `json:"id"`
	LeagueID int         `json:"league_id"`
	SeasonID int         `json:"season_id"`
	Matchday int         `json:"matchday"`
	Date     time.Time   `json:"date"`
	Status   MatchStatus `json:"status"`

	HomeScore *int `json:"home_score,omitempty"`
	AwayScore *int `json:"away_score,omitempty"`

	HomeTeamID *int `json:"home_team_id,omitempty"`
	AwayTeamID *int `json:"away_team_id,omitempty"`
	HomeClubID *int `json:"home_club_id,omitempty"`
	AwayClubID *int `json:"away_club_id,omitempty"`

	Notes *string `json:"notes,omitempty"`

	LastCalculatedAt *time.Time       `json:"last_calculated_at,omitempty"`
	CalculationState CalculationState `json:"calculation_state,omitempty"`
	CalculationError *string          `json:"calculation_error,omitempty"`
}

// Scored reports whether the match is finished with both scores present,
// i.e. eligible to affect standings.
func (m *Match) Scored() bool {
	return m != nil && m.Status == MatchStatusFinished && m.HomeScore != nil && m.AwayScore != nil
}

// HasClubData reports whether both club references are set.
func (m *Match) HasClubData() bool {
	return m != nil && m.HomeClubID != nil && m.AwayClubID != nil
}

// HasTeamData reports whether both legacy team references are set.
func (m *Match) HasTeamData() bool {
	return m != nil && m.HomeTeamID != nil && m.AwayTeamID != nil
}
