package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/liga-hub/tabellen-service/models"
)

var ErrTeamNotFound = errors.New("team not found")

// TeamRepository serves the legacy team model. It stays read-only: new
// matches reference clubs, teams only back historical aggregation.
type TeamRepository interface {
	GetByID(ctx context.Context, id int) (*models.Participant, error)
	ListByLeague(ctx context.Context, leagueID int) ([]*models.Participant, error)
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, id int) (*models.Participant, error) {
	query := `
		SELECT t.id, t.name, t.short_name, t.active,
		       COALESCE(array_agg(tl.league_id) FILTER (WHERE tl.league_id IS NOT NULL), '{}')
		FROM teams t
		LEFT JOIN team_leagues tl ON tl.team_id = t.id
		WHERE t.id = $1
		GROUP BY t.id`

	team, err := scanTeam(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to scan team by id %d: %w", id, err)
	}
	return team, nil
}

func (r *postgresTeamRepository) ListByLeague(ctx context.Context, leagueID int) ([]*models.Participant, error) {
	query := `
		SELECT t.id, t.name, t.short_name, t.active,
		       COALESCE(array_agg(tl2.league_id) FILTER (WHERE tl2.league_id IS NOT NULL), '{}')
		FROM teams t
		JOIN team_leagues tl ON tl.team_id = t.id AND tl.league_id = $1
		LEFT JOIN team_leagues tl2 ON tl2.team_id = t.id
		GROUP BY t.id
		ORDER BY t.name ASC`

	rows, err := r.db.QueryContext(ctx, query, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to query teams for league %d: %w", leagueID, err)
	}
	defer rows.Close()

	teams := make([]*models.Participant, 0)
	for rows.Next() {
		team, scanErr := scanTeam(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan team row: %w", scanErr)
		}
		teams = append(teams, team)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during team rows iteration: %w", err)
	}
	return teams, nil
}

func scanTeam(rowScanner interface{ Scan(...interface{}) error }) (*models.Participant, error) {
	var p models.Participant
	var shortName sql.NullString
	var leagueIDs pq.Int64Array
	err := rowScanner.Scan(&p.ID, &p.Name, &shortName, &p.Active, &leagueIDs)
	if err != nil {
		return nil, err
	}
	p.Kind = models.ParticipantTeam
	if shortName.Valid {
		p.ShortName = shortName.String
	}
	p.LeagueIDs = make([]int, 0, len(leagueIDs))
	for _, id := range leagueIDs {
		p.LeagueIDs = append(p.LeagueIDs, int(id))
	}
	return &p, nil
}
