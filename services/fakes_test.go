package services

import (
	"context"
	"io"
	"log/slog"

	"github.com/liga-hub/tabellen-service/models"
	"github.com/liga-hub/tabellen-service/repositories"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func intPtr(v int) *int { return &v }

type fakeClubRepo struct {
	clubs   map[int]*models.Participant
	listErr error
}

func (f *fakeClubRepo) GetByID(ctx context.Context, id int) (*models.Participant, error) {
	club, ok := f.clubs[id]
	if !ok {
		return nil, repositories.ErrClubNotFound
	}
	return club, nil
}

func (f *fakeClubRepo) ListByLeague(ctx context.Context, leagueID int) ([]*models.Participant, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*models.Participant
	for _, club := range f.clubs {
		if club.MemberOf(leagueID) {
			out = append(out, club)
		}
	}
	return out, nil
}

type fakeTeamRepo struct {
	teams   map[int]*models.Participant
	listErr error
}

func (f *fakeTeamRepo) GetByID(ctx context.Context, id int) (*models.Participant, error) {
	team, ok := f.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	return team, nil
}

func (f *fakeTeamRepo) ListByLeague(ctx context.Context, leagueID int) ([]*models.Participant, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*models.Participant
	for _, team := range f.teams {
		if team.MemberOf(leagueID) {
			out = append(out, team)
		}
	}
	return out, nil
}

type fakeSeasonRepo struct {
	seasons map[int]*models.Season
	err     error
}

func (f *fakeSeasonRepo) GetByID(ctx context.Context, id int) (*models.Season, error) {
	if f.err != nil {
		return nil, f.err
	}
	season, ok := f.seasons[id]
	if !ok {
		return nil, repositories.ErrSeasonNotFound
	}
	return season, nil
}

func (f *fakeSeasonRepo) GetActive(ctx context.Context) (*models.Season, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, season := range f.seasons {
		if season.Active {
			return season, nil
		}
	}
	return nil, repositories.ErrNoActiveSeason
}

type fakeMatchRepo struct {
	matches  []*models.Match
	listErr  error
	stateErr error
	states   map[int]models.CalculationState
}

func (f *fakeMatchRepo) GetByID(ctx context.Context, id int) (*models.Match, error) {
	for _, m := range f.matches {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, repositories.ErrMatchNotFound
}

func (f *fakeMatchRepo) ListByScope(ctx context.Context, leagueID, seasonID int, statusFilter *models.MatchStatus) ([]*models.Match, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*models.Match
	for _, m := range f.matches {
		if m.LeagueID != leagueID || m.SeasonID != seasonID {
			continue
		}
		if statusFilter != nil && m.Status != *statusFilter {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeMatchRepo) ListFinished(ctx context.Context, leagueID, seasonID int) ([]*models.Match, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*models.Match
	for _, m := range f.matches {
		if m.LeagueID == leagueID && m.SeasonID == seasonID && m.Scored() {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMatchRepo) UpdateCalculationState(ctx context.Context, exec repositories.SQLExecutor, id int, state models.CalculationState, calcError *string) error {
	if f.stateErr != nil {
		return f.stateErr
	}
	if f.states == nil {
		f.states = make(map[int]models.CalculationState)
	}
	f.states[id] = state
	return nil
}

type tableScope struct {
	leagueID int
	seasonID int
}

type fakeTableRepo struct {
	rows       map[tableScope][]*models.TableEntry
	replaceErr error
	replaces   int
}

func (f *fakeTableRepo) ListByScope(ctx context.Context, exec repositories.SQLExecutor, leagueID, seasonID int) ([]*models.TableEntry, error) {
	return f.rows[tableScope{leagueID: leagueID, seasonID: seasonID}], nil
}

func (f *fakeTableRepo) ReplaceForScope(ctx context.Context, leagueID, seasonID int, entries []*models.TableEntry) error {
	if f.replaceErr != nil {
		return f.replaceErr
	}
	if f.rows == nil {
		f.rows = make(map[tableScope][]*models.TableEntry)
	}
	f.rows[tableScope{leagueID: leagueID, seasonID: seasonID}] = entries
	f.replaces++
	return nil
}

type enqueueCall struct {
	leagueID int
	seasonID int
	priority models.JobPriority
}

type fakeEnqueuer struct {
	calls []enqueueCall
}

func (f *fakeEnqueuer) Enqueue(leagueID, seasonID int, priority models.JobPriority) string {
	f.calls = append(f.calls, enqueueCall{leagueID: leagueID, seasonID: seasonID, priority: priority})
	return "job-test"
}

// fakeValidator delegates to fn when set and accepts everything otherwise.
type fakeValidator struct {
	fn    func(match *models.Match) ([]ValidationError, error)
	calls int
}

func (f *fakeValidator) ValidateResult(ctx context.Context, match *models.Match) ([]ValidationError, error) {
	f.calls++
	if f.fn != nil {
		return f.fn(match)
	}
	return nil, nil
}

type fakeSnapshotter struct {
	err   error
	calls int
}

func (f *fakeSnapshotter) Snapshot(ctx context.Context, leagueID, seasonID int, entries []*models.TableEntry) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "snapshots/test.json", nil
}
