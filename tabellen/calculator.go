package tabellen

import (
	"sort"
	"time"

	"github.com/liga-hub/tabellen-service/models"
)

const formLength = 5

// Form codes: S = win (Sieg), U = draw (Unentschieden), N = loss (Niederlage).
const (
	FormWin  = 'S'
	FormDraw = 'U'
	FormLoss = 'N'
)

// ResolvedMatch is a finished, scored match whose participants have already
// been looked up. Unresolvable matches never reach the calculator.
type ResolvedMatch struct {
	MatchID   int
	Date      time.Time
	Matchday  int
	Home      *models.Participant
	Away      *models.Participant
	HomeGoals int
	AwayGoals int
	Source    string // "club" or "team", carried into the entry's source tag
}

type aggregate struct {
	participant  *models.Participant
	games        int
	wins         int
	draws        int
	losses       int
	goalsFor     int
	goalsAgainst int
	form         []byte
	source       string
}

// BuildTable folds the matches into one table entry per participant and
// returns the entries ranked. Every member gets a row, including members
// with zero games. Matches are processed in chronological order regardless
// of input order so the form string stays stable.
func BuildTable(leagueID, seasonID int, matches []ResolvedMatch, members []*models.Participant) []*models.TableEntry {
	byKey := make(map[models.ParticipantKey]*aggregate)
	getOrInit := func(p *models.Participant) *aggregate {
		key := p.Key()
		if agg, ok := byKey[key]; ok {
			return agg
		}
		agg := &aggregate{participant: p}
		byKey[key] = agg
		return agg
	}

	for _, member := range members {
		getOrInit(member)
	}

	ordered := make([]ResolvedMatch, len(matches))
	copy(ordered, matches)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].Date.Equal(ordered[j].Date) {
			return ordered[i].Date.Before(ordered[j].Date)
		}
		if ordered[i].Matchday != ordered[j].Matchday {
			return ordered[i].Matchday < ordered[j].Matchday
		}
		return ordered[i].MatchID < ordered[j].MatchID
	})

	for _, match := range ordered {
		home := getOrInit(match.Home)
		away := getOrInit(match.Away)

		home.games++
		away.games++
		home.goalsFor += match.HomeGoals
		home.goalsAgainst += match.AwayGoals
		away.goalsFor += match.AwayGoals
		away.goalsAgainst += match.HomeGoals

		switch {
		case match.HomeGoals > match.AwayGoals:
			home.wins++
			away.losses++
			home.form = append(home.form, FormWin)
			away.form = append(away.form, FormLoss)
		case match.HomeGoals < match.AwayGoals:
			away.wins++
			home.losses++
			away.form = append(away.form, FormWin)
			home.form = append(home.form, FormLoss)
		default:
			home.draws++
			away.draws++
			home.form = append(home.form, FormDraw)
			away.form = append(away.form, FormDraw)
		}

		if match.Source != "" {
			home.source = match.Source
			away.source = match.Source
		}
	}

	now := time.Now()
	entries := make([]*models.TableEntry, 0, len(byKey))
	for _, agg := range byKey {
		entries = append(entries, &models.TableEntry{
			LeagueID:          leagueID,
			SeasonID:          seasonID,
			ParticipantKind:   agg.participant.Kind,
			ParticipantID:     agg.participant.ID,
			TeamName:          agg.participant.Name,
			GamesPlayed:       agg.games,
			Wins:              agg.wins,
			Draws:             agg.draws,
			Losses:            agg.losses,
			GoalsFor:          agg.goalsFor,
			GoalsAgainst:      agg.goalsAgainst,
			GoalDifference:    agg.goalsFor - agg.goalsAgainst,
			Points:            agg.wins*3 + agg.draws,
			Form:              truncateForm(agg.form),
			AutoCalculated:    true,
			CalculationSource: agg.source,
			UpdatedAt:         now,
		})
	}

	SortEntries(entries)
	for i, entry := range entries {
		entry.Rank = i + 1
	}
	return entries
}

// SortEntries orders entries by the ranking total order: points desc, goal
// difference desc, goals for desc, name asc. Equal names fall back to the
// participant key so the order is fully deterministic.
func SortEntries(entries []*models.TableEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.GoalDifference != b.GoalDifference {
			return a.GoalDifference > b.GoalDifference
		}
		if a.GoalsFor != b.GoalsFor {
			return a.GoalsFor > b.GoalsFor
		}
		if a.TeamName != b.TeamName {
			return a.TeamName < b.TeamName
		}
		if a.ParticipantKind != b.ParticipantKind {
			return a.ParticipantKind < b.ParticipantKind
		}
		return a.ParticipantID < b.ParticipantID
	})
}

// truncateForm keeps the last formLength results, most recent last.
func truncateForm(form []byte) string {
	if len(form) > formLength {
		form = form[len(form)-formLength:]
	}
	return string(form)
}
