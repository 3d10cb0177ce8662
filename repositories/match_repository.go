package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/liga-hub/tabellen-service/models"
)

var (
	ErrMatchNotFound      = errors.New("match not found")
	ErrMatchLeagueInvalid = errors.New("match league conflict or invalid")
	ErrMatchSeasonInvalid = errors.New("match season conflict or invalid")
)

type MatchRepository interface {
	GetByID(ctx context.Context, id int) (*models.Match, error)
	ListByScope(ctx context.Context, leagueID, seasonID int, statusFilter *models.MatchStatus) ([]*models.Match, error)
	ListFinished(ctx context.Context, leagueID, seasonID int) ([]*models.Match, error)
	UpdateCalculationState(ctx context.Context, exec SQLExecutor, id int, state models.CalculationState, calcError *string) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `id, league_id, season_id, matchday, date, status,
	       home_score, away_score, home_team_id, away_team_id, home_club_id, away_club_id,
	       notes, last_calculated_at, calculation_state, calculation_error`

func (r *postgresMatchRepository) scanMatch(rowScanner interface{ Scan(...interface{}) error }) (*models.Match, error) {
	var m models.Match
	var calcState sql.NullString
	err := rowScanner.Scan(
		&m.ID, &m.LeagueID, &m.SeasonID, &m.Matchday, &m.Date, &m.Status,
		&m.HomeScore, &m.AwayScore, &m.HomeTeamID, &m.AwayTeamID, &m.HomeClubID, &m.AwayClubID,
		&m.Notes, &m.LastCalculatedAt, &calcState, &m.CalculationError,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	if calcState.Valid {
		m.CalculationState = models.CalculationState(calcState.String)
	}
	return &m, nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	match, err := r.scanMatch(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, ErrMatchNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan match by id %d: %w", id, err)
	}
	return match, nil
}

func (r *postgresMatchRepository) ListByScope(ctx context.Context, leagueID, seasonID int, statusFilter *models.MatchStatus) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + matchColumns + ` FROM matches WHERE league_id = $1 AND season_id = $2`)

	args := []interface{}{leagueID, seasonID}
	placeholderIndex := 3

	if statusFilter != nil {
		queryBuilder.WriteString(" AND status = $")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, *statusFilter)
	}

	queryBuilder.WriteString(" ORDER BY date ASC, matchday ASC, id ASC")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for league %d season %d: %w", leagueID, seasonID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		match, scanErr := r.scanMatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, match)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

// ListFinished returns only matches eligible for aggregation: status finished
// with both scores present, ordered chronologically.
func (r *postgresMatchRepository) ListFinished(ctx context.Context, leagueID, seasonID int) ([]*models.Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE league_id = $1 AND season_id = $2 AND status = $3
		  AND home_score IS NOT NULL AND away_score IS NOT NULL
		ORDER BY date ASC, matchday ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, leagueID, seasonID, models.MatchStatusFinished)
	if err != nil {
		return nil, fmt.Errorf("failed to query finished matches for league %d season %d: %w", leagueID, seasonID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		match, scanErr := r.scanMatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan finished match row: %w", scanErr)
		}
		matches = append(matches, match)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during finished match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) UpdateCalculationState(ctx context.Context, exec SQLExecutor, id int, state models.CalculationState, calcError *string) error {
	executor := SQLExecutor(r.db)
	if exec != nil {
		executor = exec
	}
	query := `
		UPDATE matches
		SET calculation_state = $1, calculation_error = $2, last_calculated_at = NOW()
		WHERE id = $3`
	result, err := executor.ExecContext(ctx, query, state, calcError, id)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Constraint {
		case "matches_league_id_fkey":
			return ErrMatchLeagueInvalid
		case "matches_season_id_fkey":
			return ErrMatchSeasonInvalid
		}
	}
	return err
}
