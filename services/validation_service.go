package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/liga-hub/tabellen-service/models"
	"github.com/liga-hub/tabellen-service/repositories"
)

type Severity string

const (
	SeverityCritical Severity = "critical" // blocks the match from affecting the table
	SeverityAdvisory Severity = "advisory" // logged only
)

type ValidationError struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s (%s): %s", e.Rule, e.Severity, e.Message)
}

// HasCritical reports whether any violation in the list is critical.
func HasCritical(violations []ValidationError) bool {
	for _, v := range violations {
		if v.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// ValidationService checks a match result's internal consistency before it
// may affect standings. All violated rules are returned, not just the first.
// The returned error is reserved for collaborator failures (lookups), never
// for rule violations.
type ValidationService interface {
	ValidateResult(ctx context.Context, match *models.Match) ([]ValidationError, error)
}

type validationService struct {
	clubRepo   repositories.ClubRepository
	teamRepo   repositories.TeamRepository
	seasonRepo repositories.SeasonRepository
	logger     *slog.Logger
}

func NewValidationService(
	clubRepo repositories.ClubRepository,
	teamRepo repositories.TeamRepository,
	seasonRepo repositories.SeasonRepository,
	logger *slog.Logger,
) ValidationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &validationService{
		clubRepo:   clubRepo,
		teamRepo:   teamRepo,
		seasonRepo: seasonRepo,
		logger:     logger,
	}
}

func (s *validationService) ValidateResult(ctx context.Context, match *models.Match) ([]ValidationError, error) {
	violations := make([]ValidationError, 0)

	if match.HomeScore == nil || match.AwayScore == nil {
		violations = append(violations, ValidationError{
			Rule:     "scores-present",
			Severity: SeverityCritical,
			Message:  "both home and away scores must be set",
		})
	} else if *match.HomeScore < 0 || *match.AwayScore < 0 {
		violations = append(violations, ValidationError{
			Rule:     "scores-non-negative",
			Severity: SeverityCritical,
			Message:  fmt.Sprintf("scores must be non-negative, got %d:%d", *match.HomeScore, *match.AwayScore),
		})
	}

	if match.Status != models.MatchStatusFinished {
		violations = append(violations, ValidationError{
			Rule:     "status-finished",
			Severity: SeverityCritical,
			Message:  fmt.Sprintf("only finished matches affect standings, status is %q", match.Status),
		})
	}

	if match.HasClubData() && *match.HomeClubID == *match.AwayClubID {
		violations = append(violations, ValidationError{
			Rule:     "self-match",
			Severity: SeverityCritical,
			Message:  fmt.Sprintf("home and away club are the same (id %d)", *match.HomeClubID),
		})
	}
	if match.HasTeamData() && *match.HomeTeamID == *match.AwayTeamID {
		violations = append(violations, ValidationError{
			Rule:     "self-match",
			Severity: SeverityCritical,
			Message:  fmt.Sprintf("home and away team are the same (id %d)", *match.HomeTeamID),
		})
	}

	participantViolations, err := s.checkParticipants(ctx, match)
	if err != nil {
		return nil, err
	}
	violations = append(violations, participantViolations...)

	seasonViolations, err := s.checkSeason(ctx, match)
	if err != nil {
		return nil, err
	}
	violations = append(violations, seasonViolations...)

	return violations, nil
}

func (s *validationService) checkParticipants(ctx context.Context, match *models.Match) ([]ValidationError, error) {
	type side struct {
		label string
		key   *models.ParticipantKey
	}
	sides := make([]side, 0, 2)

	// Club data takes precedence over the legacy team pair.
	switch {
	case match.HasClubData():
		sides = append(sides,
			side{label: "home", key: &models.ParticipantKey{Kind: models.ParticipantClub, ID: *match.HomeClubID}},
			side{label: "away", key: &models.ParticipantKey{Kind: models.ParticipantClub, ID: *match.AwayClubID}},
		)
	case match.HasTeamData():
		sides = append(sides,
			side{label: "home", key: &models.ParticipantKey{Kind: models.ParticipantTeam, ID: *match.HomeTeamID}},
			side{label: "away", key: &models.ParticipantKey{Kind: models.ParticipantTeam, ID: *match.AwayTeamID}},
		)
	default:
		return []ValidationError{{
			Rule:     "participants-present",
			Severity: SeverityCritical,
			Message:  "match has neither a complete club pair nor a complete team pair",
		}}, nil
	}

	violations := make([]ValidationError, 0)
	for _, sd := range sides {
		participant, err := s.resolve(ctx, *sd.key)
		if err != nil {
			if errors.Is(err, repositories.ErrClubNotFound) || errors.Is(err, repositories.ErrTeamNotFound) {
				violations = append(violations, ValidationError{
					Rule:     "participant-exists",
					Severity: SeverityCritical,
					Message:  fmt.Sprintf("%s participant %s not found", sd.label, sd.key),
				})
				continue
			}
			return nil, fmt.Errorf("failed to resolve %s participant %s: %w", sd.label, sd.key, err)
		}

		// Inactive participants stay valid for historical results.
		if !participant.Active {
			violations = append(violations, ValidationError{
				Rule:     "participant-active",
				Severity: SeverityAdvisory,
				Message:  fmt.Sprintf("%s participant %q is inactive", sd.label, participant.Name),
			})
		}
		if !participant.MemberOf(match.LeagueID) {
			violations = append(violations, ValidationError{
				Rule:     "participant-in-league",
				Severity: SeverityCritical,
				Message:  fmt.Sprintf("%s participant %q does not belong to league %d", sd.label, participant.Name, match.LeagueID),
			})
		}
	}
	return violations, nil
}

func (s *validationService) checkSeason(ctx context.Context, match *models.Match) ([]ValidationError, error) {
	season, err := s.seasonRepo.GetByID(ctx, match.SeasonID)
	if err != nil {
		if errors.Is(err, repositories.ErrSeasonNotFound) {
			return []ValidationError{{
				Rule:     "season-exists",
				Severity: SeverityCritical,
				Message:  fmt.Sprintf("season %d not found", match.SeasonID),
			}}, nil
		}
		return nil, fmt.Errorf("failed to load season %d: %w", match.SeasonID, err)
	}
	if !season.Active {
		return []ValidationError{{
			Rule:     "season-active",
			Severity: SeverityAdvisory,
			Message:  fmt.Sprintf("season %q is not active", season.Name),
		}}, nil
	}
	return nil, nil
}

func (s *validationService) resolve(ctx context.Context, key models.ParticipantKey) (*models.Participant, error) {
	if key.Kind == models.ParticipantClub {
		return s.clubRepo.GetByID(ctx, key.ID)
	}
	return s.teamRepo.GetByID(ctx, key.ID)
}
