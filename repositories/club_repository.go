package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/liga-hub/tabellen-service/models"
)

var ErrClubNotFound = errors.New("club not found")

type ClubRepository interface {
	GetByID(ctx context.Context, id int) (*models.Participant, error)
	ListByLeague(ctx context.Context, leagueID int) ([]*models.Participant, error)
}

type postgresClubRepository struct {
	db *sql.DB
}

func NewPostgresClubRepository(db *sql.DB) ClubRepository {
	return &postgresClubRepository{db: db}
}

func (r *postgresClubRepository) GetByID(ctx context.Context, id int) (*models.Participant, error) {
	query := `
		SELECT c.id, c.name, c.short_name, c.active, c.club_type, c.squad_slot,
		       COALESCE(array_agg(cl.league_id) FILTER (WHERE cl.league_id IS NOT NULL), '{}')
		FROM clubs c
		LEFT JOIN club_leagues cl ON cl.club_id = c.id
		WHERE c.id = $1
		GROUP BY c.id`

	club, err := scanClub(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClubNotFound
		}
		return nil, fmt.Errorf("failed to scan club by id %d: %w", id, err)
	}
	return club, nil
}

func (r *postgresClubRepository) ListByLeague(ctx context.Context, leagueID int) ([]*models.Participant, error) {
	query := `
		SELECT c.id, c.name, c.short_name, c.active, c.club_type, c.squad_slot,
		       COALESCE(array_agg(cl2.league_id) FILTER (WHERE cl2.league_id IS NOT NULL), '{}')
		FROM clubs c
		JOIN club_leagues cl ON cl.club_id = c.id AND cl.league_id = $1
		LEFT JOIN club_leagues cl2 ON cl2.club_id = c.id
		GROUP BY c.id
		ORDER BY c.name ASC`

	rows, err := r.db.QueryContext(ctx, query, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to query clubs for league %d: %w", leagueID, err)
	}
	defer rows.Close()

	clubs := make([]*models.Participant, 0)
	for rows.Next() {
		club, scanErr := scanClub(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan club row: %w", scanErr)
		}
		clubs = append(clubs, club)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during club rows iteration: %w", err)
	}
	return clubs, nil
}

func scanClub(rowScanner interface{ Scan(...interface{}) error }) (*models.Participant, error) {
	var p models.Participant
	var shortName sql.NullString
	var clubType sql.NullString
	var leagueIDs pq.Int64Array
	err := rowScanner.Scan(&p.ID, &p.Name, &shortName, &p.Active, &clubType, &p.SquadSlot, &leagueIDs)
	if err != nil {
		return nil, err
	}
	p.Kind = models.ParticipantClub
	if shortName.Valid {
		p.ShortName = shortName.String
	}
	if clubType.Valid {
		ct := models.ClubType(clubType.String)
		p.ClubType = &ct
	}
	p.LeagueIDs = make([]int, 0, len(leagueIDs))
	for _, id := range leagueIDs {
		p.LeagueIDs = append(p.LeagueIDs, int(id))
	}
	return &p, nil
}
