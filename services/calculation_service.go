package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/liga-hub/tabellen-service/models"
	"github.com/liga-hub/tabellen-service/repositories"
	"github.com/liga-hub/tabellen-service/tabellen"
)

// CalculationService recomputes and persists the full table of one
// (league, season) scope. CalculateTable is idempotent: the persisted rows
// are always a full replace of the previous set.
type CalculationService interface {
	CalculateTable(ctx context.Context, leagueID, seasonID int) ([]*models.TableEntry, error)
	GetTable(ctx context.Context, leagueID, seasonID int) ([]*models.TableEntry, error)
}

type calculationService struct {
	matchRepo repositories.MatchRepository
	clubRepo  repositories.ClubRepository
	teamRepo  repositories.TeamRepository
	tableRepo repositories.TableEntryRepository
	validator ValidationService
	snapshots SnapshotService // optional
	hub       *tabellen.Hub   // optional
	logger    *slog.Logger
}

func NewCalculationService(
	matchRepo repositories.MatchRepository,
	clubRepo repositories.ClubRepository,
	teamRepo repositories.TeamRepository,
	tableRepo repositories.TableEntryRepository,
	validator ValidationService,
	snapshots SnapshotService,
	hub *tabellen.Hub,
	logger *slog.Logger,
) CalculationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &calculationService{
		matchRepo: matchRepo,
		clubRepo:  clubRepo,
		teamRepo:  teamRepo,
		tableRepo: tableRepo,
		validator: validator,
		snapshots: snapshots,
		hub:       hub,
		logger:    logger,
	}
}

func (s *calculationService) GetTable(ctx context.Context, leagueID, seasonID int) ([]*models.TableEntry, error) {
	return s.tableRepo.ListByScope(ctx, nil, leagueID, seasonID)
}

func (s *calculationService) CalculateTable(ctx context.Context, leagueID, seasonID int) ([]*models.TableEntry, error) {
	var (
		matches []*models.Match
		clubs   []*models.Participant
		teams   []*models.Participant
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		matches, err = s.matchRepo.ListFinished(gCtx, leagueID, seasonID)
		if err != nil {
			return fmt.Errorf("failed to load finished matches: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		clubs, err = s.clubRepo.ListByLeague(gCtx, leagueID)
		if err != nil {
			return fmt.Errorf("failed to load league clubs: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		teams, err = s.teamRepo.ListByLeague(gCtx, leagueID)
		if err != nil {
			return fmt.Errorf("failed to load league teams: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: league %d season %d: %w", ErrCalculationFailed, leagueID, seasonID, err)
	}

	cache := make(map[models.ParticipantKey]*models.Participant, len(clubs)+len(teams))
	for _, club := range clubs {
		cache[club.Key()] = club
	}
	for _, team := range teams {
		cache[team.Key()] = team
	}

	resolved := make([]tabellen.ResolvedMatch, 0, len(matches))
	included := make([]*models.Match, 0, len(matches))
	for _, match := range matches {
		admitted, ok, err := s.admit(ctx, match)
		if err != nil {
			return nil, fmt.Errorf("%w: league %d season %d: %w", ErrCalculationFailed, leagueID, seasonID, err)
		}
		if !ok {
			continue
		}
		rm, ok := s.resolveMatch(ctx, admitted, cache)
		if !ok {
			continue
		}
		resolved = append(resolved, rm)
		included = append(included, match)
	}

	// Zero-game rows exist for every active league member; participants that
	// actually played are added by the fold regardless of activity.
	members := make([]*models.Participant, 0, len(clubs)+len(teams))
	for _, club := range clubs {
		if club.Active {
			members = append(members, club)
		}
	}
	for _, team := range teams {
		if team.Active {
			members = append(members, team)
		}
	}

	entries := tabellen.BuildTable(leagueID, seasonID, resolved, members)

	if err := s.persist(ctx, leagueID, seasonID, entries, included); err != nil {
		return nil, err
	}

	if s.hub != nil {
		s.hub.BroadcastToRoom(tabellen.LeagueRoom(leagueID), tabellen.TableMessage{
			Type:    tabellen.MessageTableUpdated,
			Payload: entries,
			RoomID:  tabellen.LeagueRoom(leagueID),
		})
	}

	s.logger.Info("table recalculated",
		slog.Int("league_id", leagueID),
		slog.Int("season_id", seasonID),
		slog.Int("matches", len(resolved)),
		slog.Int("rows", len(entries)))
	return entries, nil
}

// admit applies the result rules to one stored match. Matches with critical
// violations are excluded from aggregation so a bad row in the store never
// leaks into the published table. A critically invalid club pair on a match
// that also carries a legacy team pair is retried as the team view, the same
// fallback the lifecycle trigger uses.
func (s *calculationService) admit(ctx context.Context, match *models.Match) (*models.Match, bool, error) {
	violations, err := s.validator.ValidateResult(ctx, match)
	if err != nil {
		return nil, false, fmt.Errorf("failed to validate match %d: %w", match.ID, err)
	}
	if !HasCritical(violations) {
		return match, true, nil
	}

	if match.HasClubData() && match.HasTeamData() {
		teamView := *match
		teamView.HomeClubID = nil
		teamView.AwayClubID = nil
		fallbackViolations, fbErr := s.validator.ValidateResult(ctx, &teamView)
		if fbErr != nil {
			return nil, false, fmt.Errorf("failed to validate match %d team view: %w", match.ID, fbErr)
		}
		if !HasCritical(fallbackViolations) {
			s.logger.Warn("club data failed validation, aggregating legacy team data",
				slog.Int("match_id", match.ID))
			return &teamView, true, nil
		}
	}

	s.logger.Warn("match excluded by critical validation errors",
		slog.Int("match_id", match.ID), slog.Any("violations", violations))
	return nil, false, nil
}

// resolveMatch looks both participants up, preferring club data over the
// legacy team pair. A match whose participants cannot be resolved is
// excluded from aggregation instead of aborting the whole calculation.
func (s *calculationService) resolveMatch(ctx context.Context, match *models.Match, cache map[models.ParticipantKey]*models.Participant) (tabellen.ResolvedMatch, bool) {
	var homeKey, awayKey models.ParticipantKey
	source := ""

	switch {
	case match.HasClubData():
		homeKey = models.ParticipantKey{Kind: models.ParticipantClub, ID: *match.HomeClubID}
		awayKey = models.ParticipantKey{Kind: models.ParticipantClub, ID: *match.AwayClubID}
		source = "club"
		if match.HasTeamData() {
			// Dual representation is a migration signal, not an error.
			s.logger.Warn("match carries both club and team data, using club data",
				slog.Int("match_id", match.ID),
				slog.Int("league_id", match.LeagueID))
		}
	case match.HasTeamData():
		homeKey = models.ParticipantKey{Kind: models.ParticipantTeam, ID: *match.HomeTeamID}
		awayKey = models.ParticipantKey{Kind: models.ParticipantTeam, ID: *match.AwayTeamID}
		source = "team"
	default:
		s.logger.Warn("match has no complete participant pair, excluded from aggregation",
			slog.Int("match_id", match.ID))
		return tabellen.ResolvedMatch{}, false
	}

	home := s.lookup(ctx, homeKey, cache)
	away := s.lookup(ctx, awayKey, cache)
	if home == nil || away == nil {
		s.logger.Warn("match references a missing participant, excluded from aggregation",
			slog.Int("match_id", match.ID),
			slog.String("home", homeKey.String()),
			slog.String("away", awayKey.String()))
		return tabellen.ResolvedMatch{}, false
	}

	return tabellen.ResolvedMatch{
		MatchID:   match.ID,
		Date:      match.Date,
		Matchday:  match.Matchday,
		Home:      home,
		Away:      away,
		HomeGoals: *match.HomeScore,
		AwayGoals: *match.AwayScore,
		Source:    source,
	}, true
}

func (s *calculationService) lookup(ctx context.Context, key models.ParticipantKey, cache map[models.ParticipantKey]*models.Participant) *models.Participant {
	if p, ok := cache[key]; ok {
		return p
	}

	var (
		p   *models.Participant
		err error
	)
	if key.Kind == models.ParticipantClub {
		p, err = s.clubRepo.GetByID(ctx, key.ID)
	} else {
		p, err = s.teamRepo.GetByID(ctx, key.ID)
	}
	if err != nil {
		cache[key] = nil
		return nil
	}
	cache[key] = p
	return p
}

// persist snapshots the previous rows, then runs the atomic full replace.
// A failed replace leaves the previous table untouched; the retrying job
// supersedes any abandoned attempt.
func (s *calculationService) persist(ctx context.Context, leagueID, seasonID int, entries []*models.TableEntry, included []*models.Match) error {
	if s.snapshots != nil {
		previous, err := s.tableRepo.ListByScope(ctx, nil, leagueID, seasonID)
		if err != nil {
			s.logger.Warn("failed to load previous table for snapshot",
				slog.Int("league_id", leagueID), slog.Any("error", err))
		} else if len(previous) > 0 {
			if _, err := s.snapshots.Snapshot(ctx, leagueID, seasonID, previous); err != nil {
				// Snapshot failure never blocks the replace.
				s.logger.Warn("table snapshot failed",
					slog.Int("league_id", leagueID), slog.Any("error", err))
			}
		}
	}

	if err := s.tableRepo.ReplaceForScope(ctx, leagueID, seasonID, entries); err != nil {
		return fmt.Errorf("%w: %w", ErrCalculationFailed, err)
	}

	// Calculation bookkeeping on the matches is best-effort: the table is
	// already consistent, so a failed marker update only costs observability.
	now := time.Now()
	for _, match := range included {
		if err := s.matchRepo.UpdateCalculationState(ctx, nil, match.ID, models.CalculationCompleted, nil); err != nil {
			s.logger.Warn("failed to mark match calculated",
				slog.Int("match_id", match.ID), slog.Any("error", err))
			continue
		}
		match.CalculationState = models.CalculationCompleted
		match.LastCalculatedAt = &now
	}
	return nil
}
