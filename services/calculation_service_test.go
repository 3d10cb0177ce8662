package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liga-hub/tabellen-service/models"
)

type calcFixture struct {
	matches *fakeMatchRepo
	clubs   *fakeClubRepo
	teams   *fakeTeamRepo
	seasons *fakeSeasonRepo
	table   *fakeTableRepo
}

func newCalcFixture() *calcFixture {
	return &calcFixture{
		matches: &fakeMatchRepo{},
		clubs: &fakeClubRepo{clubs: map[int]*models.Participant{
			1: {Kind: models.ParticipantClub, ID: 1, Name: "FC Eins", Active: true, LeagueIDs: []int{5}},
			2: {Kind: models.ParticipantClub, ID: 2, Name: "FC Zwei", Active: true, LeagueIDs: []int{5}},
			3: {Kind: models.ParticipantClub, ID: 3, Name: "FC Drei", Active: true, LeagueIDs: []int{5}},
		}},
		teams: &fakeTeamRepo{teams: map[int]*models.Participant{
			11: {Kind: models.ParticipantTeam, ID: 11, Name: "Erste", Active: false, LeagueIDs: []int{5}},
			12: {Kind: models.ParticipantTeam, ID: 12, Name: "Zweite", Active: false, LeagueIDs: []int{5}},
		}},
		seasons: &fakeSeasonRepo{seasons: map[int]*models.Season{
			100: {ID: 100, Name: "2025/26", Active: true},
		}},
		table: &fakeTableRepo{},
	}
}

// service wires a real validation service over the fixture's fakes, so the
// calculation path is tested with the same rules production runs.
func (f *calcFixture) service(snapshots SnapshotService) CalculationService {
	validator := NewValidationService(f.clubs, f.teams, f.seasons, testLogger())
	return NewCalculationService(f.matches, f.clubs, f.teams, f.table, validator, snapshots, nil, testLogger())
}

func finishedMatch(id, day, homeClub, awayClub, homeGoals, awayGoals int) *models.Match {
	return &models.Match{
		ID:         id,
		LeagueID:   5,
		SeasonID:   100,
		Matchday:   day,
		Date:       time.Date(2026, 4, day, 15, 0, 0, 0, time.UTC),
		Status:     models.MatchStatusFinished,
		HomeScore:  &homeGoals,
		AwayScore:  &awayGoals,
		HomeClubID: &homeClub,
		AwayClubID: &awayClub,
	}
}

func TestCalculateTable_FullFlow(t *testing.T) {
	f := newCalcFixture()
	f.matches.matches = []*models.Match{
		finishedMatch(1, 1, 1, 2, 3, 1),
		finishedMatch(2, 2, 2, 3, 1, 1),
		finishedMatch(3, 3, 3, 1, 0, 2),
	}
	svc := f.service(nil)

	entries, err := svc.CalculateTable(context.Background(), 5, 100)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "FC Eins", entries[0].TeamName)
	assert.Equal(t, 6, entries[0].Points)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, "club", entries[0].CalculationSource)
	assert.True(t, entries[0].AutoCalculated)

	// Persisted rows match the returned rows.
	assert.Equal(t, 1, f.table.replaces)
	stored, err := svc.GetTable(context.Background(), 5, 100)
	require.NoError(t, err)
	assert.Equal(t, entries, stored)

	// Every aggregated match was marked calculated.
	require.Len(t, f.matches.states, 3)
	for id, state := range f.matches.states {
		assert.Equal(t, models.CalculationCompleted, state, "match %d", id)
	}
}

func TestCalculateTable_LegacyTeamMatches(t *testing.T) {
	f := newCalcFixture()
	match := finishedMatch(1, 1, 0, 0, 2, 2)
	match.HomeClubID, match.AwayClubID = nil, nil
	match.HomeTeamID, match.AwayTeamID = intPtr(11), intPtr(12)
	f.matches.matches = []*models.Match{match}
	svc := f.service(nil)

	entries, err := svc.CalculateTable(context.Background(), 5, 100)
	require.NoError(t, err)

	// Active clubs get zero-game rows; the inactive legacy teams appear
	// because they played.
	require.Len(t, entries, 5)
	byName := map[string]*models.TableEntry{}
	for _, e := range entries {
		byName[e.TeamName] = e
	}
	require.Contains(t, byName, "Erste")
	assert.Equal(t, 1, byName["Erste"].Draws)
	assert.Equal(t, "team", byName["Erste"].CalculationSource)
}

func TestCalculateTable_ClubDataTakesPrecedence(t *testing.T) {
	f := newCalcFixture()
	match := finishedMatch(1, 1, 1, 2, 1, 0)
	match.HomeTeamID, match.AwayTeamID = intPtr(11), intPtr(12)
	f.matches.matches = []*models.Match{match}
	svc := f.service(nil)

	entries, err := svc.CalculateTable(context.Background(), 5, 100)
	require.NoError(t, err)

	byName := map[string]*models.TableEntry{}
	for _, e := range entries {
		byName[e.TeamName] = e
	}
	assert.Equal(t, 1, byName["FC Eins"].Wins)
	// The team pair contributed nothing.
	assert.NotContains(t, byName, "Erste")
}

func TestCalculateTable_MissingParticipantExcludesMatch(t *testing.T) {
	f := newCalcFixture()
	f.matches.matches = []*models.Match{
		finishedMatch(1, 1, 1, 2, 2, 0),
		finishedMatch(2, 2, 1, 999, 4, 0), // away club does not exist
	}
	svc := f.service(nil)

	entries, err := svc.CalculateTable(context.Background(), 5, 100)
	require.NoError(t, err)

	byName := map[string]*models.TableEntry{}
	for _, e := range entries {
		byName[e.TeamName] = e
	}
	// Only the resolvable match counted.
	assert.Equal(t, 1, byName["FC Eins"].GamesPlayed)
	assert.Equal(t, 3, byName["FC Eins"].Points)

	// The excluded match was not marked calculated.
	require.Len(t, f.matches.states, 1)
	assert.Contains(t, f.matches.states, 1)
}

func TestCalculateTable_EmptyScopeStillReplaces(t *testing.T) {
	f := newCalcFixture()
	svc := f.service(nil)

	entries, err := svc.CalculateTable(context.Background(), 5, 100)
	require.NoError(t, err)
	require.Len(t, entries, 3) // zero-game rows for the active clubs
	for _, e := range entries {
		assert.Zero(t, e.GamesPlayed)
		assert.Zero(t, e.Points)
	}
	assert.Equal(t, 1, f.table.replaces)
}

func TestCalculateTable_LoadFailure(t *testing.T) {
	f := newCalcFixture()
	f.matches.listErr = errors.New("connection refused")
	svc := f.service(nil)

	_, err := svc.CalculateTable(context.Background(), 5, 100)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCalculationFailed)
	assert.Zero(t, f.table.replaces)
}

func TestCalculateTable_ReplaceFailure(t *testing.T) {
	f := newCalcFixture()
	f.matches.matches = []*models.Match{finishedMatch(1, 1, 1, 2, 1, 0)}
	f.table.replaceErr = errors.New("deadlock detected")
	svc := f.service(nil)

	_, err := svc.CalculateTable(context.Background(), 5, 100)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCalculationFailed)
	// No bookkeeping when the replace never landed.
	assert.Empty(t, f.matches.states)
}

func TestCalculateTable_MarkerFailureIsBestEffort(t *testing.T) {
	f := newCalcFixture()
	f.matches.matches = []*models.Match{finishedMatch(1, 1, 1, 2, 1, 0)}
	f.matches.stateErr = errors.New("row locked")
	svc := f.service(nil)

	entries, err := svc.CalculateTable(context.Background(), 5, 100)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
	assert.Equal(t, 1, f.table.replaces)
}

func TestCalculateTable_SnapshotsPreviousRows(t *testing.T) {
	f := newCalcFixture()
	f.matches.matches = []*models.Match{finishedMatch(1, 1, 1, 2, 1, 0)}
	f.table.rows = map[tableScope][]*models.TableEntry{
		{leagueID: 5, seasonID: 100}: {{TeamName: "FC Eins", Rank: 1}},
	}
	snapshots := &fakeSnapshotter{}
	svc := f.service(snapshots)

	_, err := svc.CalculateTable(context.Background(), 5, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, snapshots.calls)
}

func TestCalculateTable_SnapshotSkippedWhenNoPreviousRows(t *testing.T) {
	f := newCalcFixture()
	f.matches.matches = []*models.Match{finishedMatch(1, 1, 1, 2, 1, 0)}
	snapshots := &fakeSnapshotter{}
	svc := f.service(snapshots)

	_, err := svc.CalculateTable(context.Background(), 5, 100)
	require.NoError(t, err)
	assert.Zero(t, snapshots.calls)
}

// TestCalculateTable_SelfMatchExcluded covers a critically invalid row
// sitting in the store: a finished match where one club plays itself must
// not contribute games, goals, or points.
func TestCalculateTable_SelfMatchExcluded(t *testing.T) {
	f := newCalcFixture()
	f.matches.matches = []*models.Match{finishedMatch(1, 1, 1, 1, 2, 2)}
	svc := f.service(nil)

	entries, err := svc.CalculateTable(context.Background(), 5, 100)
	require.NoError(t, err)

	byName := map[string]*models.TableEntry{}
	for _, e := range entries {
		byName[e.TeamName] = e
	}
	require.Contains(t, byName, "FC Eins")
	assert.Zero(t, byName["FC Eins"].GamesPlayed)
	assert.Zero(t, byName["FC Eins"].Points)
	assert.Zero(t, byName["FC Eins"].GoalsFor)

	// The excluded match kept its calculation state untouched.
	assert.Empty(t, f.matches.states)
}

func TestCalculateTable_ParticipantNotInLeagueExcluded(t *testing.T) {
	f := newCalcFixture()
	f.clubs.clubs[4] = &models.Participant{Kind: models.ParticipantClub, ID: 4, Name: "FC Fremd", Active: true, LeagueIDs: []int{9}}
	f.matches.matches = []*models.Match{
		finishedMatch(1, 1, 1, 2, 2, 0),
		finishedMatch(2, 2, 1, 4, 3, 0), // away club belongs to another league
	}
	svc := f.service(nil)

	entries, err := svc.CalculateTable(context.Background(), 5, 100)
	require.NoError(t, err)

	byName := map[string]*models.TableEntry{}
	for _, e := range entries {
		byName[e.TeamName] = e
	}
	assert.Equal(t, 1, byName["FC Eins"].GamesPlayed)
	assert.Equal(t, 3, byName["FC Eins"].Points)
	assert.NotContains(t, byName, "FC Fremd")
}

// TestCalculateTable_InvalidClubPairFallsBackToTeamData mirrors the
// lifecycle trigger's fallback: a dual-representation match whose club pair
// fails validation is aggregated through its legacy team pair.
func TestCalculateTable_InvalidClubPairFallsBackToTeamData(t *testing.T) {
	f := newCalcFixture()
	match := finishedMatch(1, 1, 1, 999, 2, 1) // away club does not exist
	match.HomeTeamID, match.AwayTeamID = intPtr(11), intPtr(12)
	f.matches.matches = []*models.Match{match}
	svc := f.service(nil)

	entries, err := svc.CalculateTable(context.Background(), 5, 100)
	require.NoError(t, err)

	byName := map[string]*models.TableEntry{}
	for _, e := range entries {
		byName[e.TeamName] = e
	}
	require.Contains(t, byName, "Erste")
	assert.Equal(t, 1, byName["Erste"].Wins)
	assert.Equal(t, "team", byName["Erste"].CalculationSource)
}

func TestCalculateTable_ValidatorFailureFailsJob(t *testing.T) {
	f := newCalcFixture()
	f.matches.matches = []*models.Match{finishedMatch(1, 1, 1, 2, 1, 0)}
	f.seasons.err = errors.New("connection reset")
	svc := f.service(nil)

	_, err := svc.CalculateTable(context.Background(), 5, 100)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCalculationFailed)
	assert.Zero(t, f.table.replaces)
}

func TestCalculateTable_SnapshotFailureDoesNotBlock(t *testing.T) {
	f := newCalcFixture()
	f.matches.matches = []*models.Match{finishedMatch(1, 1, 1, 2, 1, 0)}
	f.table.rows = map[tableScope][]*models.TableEntry{
		{leagueID: 5, seasonID: 100}: {{TeamName: "FC Eins", Rank: 1}},
	}
	snapshots := &fakeSnapshotter{err: errors.New("bucket unavailable")}
	svc := f.service(snapshots)

	_, err := svc.CalculateTable(context.Background(), 5, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, snapshots.calls)
	assert.Equal(t, 1, f.table.replaces)
}
