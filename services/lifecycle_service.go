package services

import (
	"context"
	"log/slog"

	"github.com/liga-hub/tabellen-service/models"
)

// Enqueuer is the queue-side contract the lifecycle trigger needs.
type Enqueuer interface {
	Enqueue(leagueID, seasonID int, priority models.JobPriority) string
}

// TriggerPriorities configures the enqueue priority per trigger type.
type TriggerPriorities struct {
	Create    models.JobPriority
	Update    models.JobPriority
	Delete    models.JobPriority
	Migration models.JobPriority
}

func DefaultTriggerPriorities() TriggerPriorities {
	return TriggerPriorities{
		Create:    models.PriorityNormal,
		Update:    models.PriorityNormal,
		Delete:    models.PriorityHigh,
		Migration: models.PriorityHigh,
	}
}

type LifecycleConfig struct {
	AutomationEnabled bool
	Priorities        TriggerPriorities
}

// LifecycleService reacts to match create/update/delete notifications from
// the host system and decides whether a recalculation job is warranted.
// Nothing here ever propagates an error back to the write that raised the
// event: failures are logged and swallowed.
type LifecycleService interface {
	OnMatchCreated(ctx context.Context, match *models.Match)
	OnMatchUpdated(ctx context.Context, oldMatch, newMatch *models.Match)
	OnMatchDeleted(ctx context.Context, match *models.Match)
}

type lifecycleService struct {
	cfg       LifecycleConfig
	queue     Enqueuer
	validator ValidationService
	logger    *slog.Logger
}

func NewLifecycleService(cfg LifecycleConfig, queue Enqueuer, validator ValidationService, logger *slog.Logger) LifecycleService {
	if logger == nil {
		logger = slog.Default()
	}
	return &lifecycleService{
		cfg:       cfg,
		queue:     queue,
		validator: validator,
		logger:    logger,
	}
}

// participantShape classifies which participant representation a match
// carries. The migration runs team-only -> both -> club-only.
type participantShape int

const (
	shapeNeither participantShape = iota
	shapeTeamOnly
	shapeClubOnly
	shapeBoth
)

func (s participantShape) String() string {
	switch s {
	case shapeTeamOnly:
		return "team-only"
	case shapeClubOnly:
		return "club-only"
	case shapeBoth:
		return "both"
	default:
		return "neither"
	}
}

func shapeOf(match *models.Match) participantShape {
	hasClub := match.HasClubData()
	hasTeam := match.HasTeamData()
	switch {
	case hasClub && hasTeam:
		return shapeBoth
	case hasClub:
		return shapeClubOnly
	case hasTeam:
		return shapeTeamOnly
	default:
		return shapeNeither
	}
}

type triggerAction int

const (
	actionProceed  triggerAction = iota // use the representation as-is
	actionFallback                      // use club data, fall back to team data if club validation fails
	actionSkip                          // incomplete data, no-op
)

// decideAction is the single synchronous decision point over the participant
// shape. Callers act on the returned action sequentially; no branching on
// raw field presence happens anywhere else.
func decideAction(shape participantShape) triggerAction {
	switch shape {
	case shapeClubOnly, shapeTeamOnly:
		return actionProceed
	case shapeBoth:
		return actionFallback
	default:
		return actionSkip
	}
}

func (s *lifecycleService) OnMatchCreated(ctx context.Context, match *models.Match) {
	if !s.automated("create", match) {
		return
	}
	if !match.Scored() {
		return
	}

	shape := shapeOf(match)
	action := decideAction(shape)
	if action == actionSkip {
		s.logger.Warn("match created without participant data, skipping recalculation",
			slog.Int("match_id", match.ID), slog.String("shape", shape.String()))
		return
	}

	if !s.admissible(ctx, match, action) {
		return
	}

	priority := s.cfg.Priorities.Create
	if shape == shapeBoth {
		// Dual representation signals an in-flight migration.
		priority = maxPriority(priority, s.cfg.Priorities.Migration)
	}
	jobID := s.queue.Enqueue(match.LeagueID, match.SeasonID, priority)
	s.logger.Info("recalculation enqueued for created match",
		slog.Int("match_id", match.ID), slog.String("job_id", jobID))
}

func (s *lifecycleService) OnMatchUpdated(ctx context.Context, oldMatch, newMatch *models.Match) {
	if !s.automated("update", newMatch) {
		return
	}

	changes := relevantChanges(oldMatch, newMatch)
	if len(changes) == 0 {
		return
	}
	if !oldMatch.Scored() && !newMatch.Scored() {
		// Neither version affects standings.
		return
	}

	shape := shapeOf(newMatch)
	action := decideAction(shape)
	migration := migrationTransition(oldMatch, newMatch)

	if action == actionSkip {
		if oldMatch.Scored() {
			// Result data was stripped; the published table must shrink.
			jobID := s.queue.Enqueue(oldMatch.LeagueID, oldMatch.SeasonID, s.cfg.Priorities.Delete)
			s.logger.Info("compensating recalculation enqueued for emptied match",
				slog.Int("match_id", newMatch.ID), slog.String("job_id", jobID))
			return
		}
		s.logger.Warn("match updated without participant data, skipping recalculation",
			slog.Int("match_id", newMatch.ID))
		return
	}

	if newMatch.Scored() && !s.admissible(ctx, newMatch, action) {
		if oldMatch.Scored() {
			// The old version's contribution is already published; a
			// recalculation excludes the now-invalid match.
			jobID := s.queue.Enqueue(oldMatch.LeagueID, oldMatch.SeasonID, s.cfg.Priorities.Delete)
			s.logger.Info("compensating recalculation enqueued for invalidated match",
				slog.Int("match_id", newMatch.ID), slog.String("job_id", jobID))
		}
		return
	}

	priority := s.cfg.Priorities.Update
	if migration {
		priority = maxPriority(priority, s.cfg.Priorities.Migration)
	}
	if oldMatch.Scored() && !newMatch.Scored() {
		// A retracted result corrects already-published standings.
		priority = maxPriority(priority, s.cfg.Priorities.Delete)
	}

	jobID := s.queue.Enqueue(newMatch.LeagueID, newMatch.SeasonID, priority)
	s.logger.Info("recalculation enqueued for updated match",
		slog.Int("match_id", newMatch.ID),
		slog.String("job_id", jobID),
		slog.Any("changes", changes),
		slog.Bool("migration", migration))

	// A scope move leaves stale rows behind in the old scope.
	if oldMatch.Scored() && (oldMatch.LeagueID != newMatch.LeagueID || oldMatch.SeasonID != newMatch.SeasonID) {
		staleJobID := s.queue.Enqueue(oldMatch.LeagueID, oldMatch.SeasonID, s.cfg.Priorities.Delete)
		s.logger.Info("compensating recalculation enqueued for previous scope",
			slog.Int("match_id", newMatch.ID), slog.String("job_id", staleJobID))
	}
}

func (s *lifecycleService) OnMatchDeleted(ctx context.Context, match *models.Match) {
	if !s.automated("delete", match) {
		return
	}
	if !match.Scored() {
		return
	}

	// The deletion is not patched incrementally; a full recompute over the
	// now-smaller match set corrects the published table.
	jobID := s.queue.Enqueue(match.LeagueID, match.SeasonID, s.cfg.Priorities.Delete)
	s.logger.Info("compensating recalculation enqueued for deleted match",
		slog.Int("match_id", match.ID), slog.String("job_id", jobID))
}

func (s *lifecycleService) automated(trigger string, match *models.Match) bool {
	if s.cfg.AutomationEnabled {
		return true
	}
	s.logger.Info("automation disabled, ignoring match event",
		slog.String("trigger", trigger), slog.Int("match_id", match.ID))
	return false
}

// admissible validates the match result; critical violations block the
// enqueue. With actionFallback a failed club validation is retried against
// the legacy team representation before giving up.
func (s *lifecycleService) admissible(ctx context.Context, match *models.Match, action triggerAction) bool {
	violations, err := s.validator.ValidateResult(ctx, match)
	if err != nil {
		s.logger.Error("match validation errored, skipping recalculation",
			slog.Int("match_id", match.ID), slog.Any("error", err))
		return false
	}
	for _, v := range violations {
		if v.Severity == SeverityAdvisory {
			s.logger.Warn("advisory validation finding",
				slog.Int("match_id", match.ID), slog.String("rule", v.Rule), slog.String("message", v.Message))
		}
	}
	if !HasCritical(violations) {
		return true
	}

	if action == actionFallback {
		teamView := *match
		teamView.HomeClubID = nil
		teamView.AwayClubID = nil
		fallbackViolations, fbErr := s.validator.ValidateResult(ctx, &teamView)
		if fbErr == nil && !HasCritical(fallbackViolations) {
			s.logger.Warn("club validation failed, falling back to legacy team data",
				slog.Int("match_id", match.ID))
			return true
		}
	}

	s.logger.Warn("match result blocked by critical validation errors",
		slog.Int("match_id", match.ID), slog.Any("violations", violations))
	return false
}

// relevantChanges lists the changed fields that can affect standings.
// Changes limited to other fields (notes, calculation bookkeeping) are
// no-ops for the trigger.
func relevantChanges(oldMatch, newMatch *models.Match) []string {
	changes := make([]string, 0, 4)
	if oldMatch.Status != newMatch.Status {
		changes = append(changes, "status")
	}
	if !intPtrEqual(oldMatch.HomeScore, newMatch.HomeScore) {
		changes = append(changes, "home_score")
	}
	if !intPtrEqual(oldMatch.AwayScore, newMatch.AwayScore) {
		changes = append(changes, "away_score")
	}
	if !intPtrEqual(oldMatch.HomeTeamID, newMatch.HomeTeamID) || !intPtrEqual(oldMatch.AwayTeamID, newMatch.AwayTeamID) {
		changes = append(changes, "team_refs")
	}
	if !intPtrEqual(oldMatch.HomeClubID, newMatch.HomeClubID) || !intPtrEqual(oldMatch.AwayClubID, newMatch.AwayClubID) {
		changes = append(changes, "club_refs")
	}
	if oldMatch.LeagueID != newMatch.LeagueID {
		changes = append(changes, "league")
	}
	if oldMatch.SeasonID != newMatch.SeasonID {
		changes = append(changes, "season")
	}
	if migrationTransition(oldMatch, newMatch) {
		changes = append(changes, "migration")
	}
	return changes
}

// migrationTransition reports a representation switch between the legacy
// team model and the club model, in either direction.
func migrationTransition(oldMatch, newMatch *models.Match) bool {
	oldShape := shapeOf(oldMatch)
	newShape := shapeOf(newMatch)
	if oldShape == newShape {
		return false
	}
	switch {
	case oldShape == shapeTeamOnly && (newShape == shapeClubOnly || newShape == shapeBoth):
		return true
	case (oldShape == shapeClubOnly || oldShape == shapeBoth) && newShape == shapeTeamOnly:
		return true
	case oldShape == shapeBoth && newShape == shapeClubOnly:
		return true
	default:
		return false
	}
}

func maxPriority(a, b models.JobPriority) models.JobPriority {
	if a > b {
		return a
	}
	return b
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
