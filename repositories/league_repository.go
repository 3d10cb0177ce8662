package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/liga-hub/tabellen-service/models"
)

var ErrLeagueNotFound = errors.New("league not found")

type LeagueRepository interface {
	GetByID(ctx context.Context, id int) (*models.League, error)
	List(ctx context.Context) ([]*models.League, error)
}

type postgresLeagueRepository struct {
	db *sql.DB
}

func NewPostgresLeagueRepository(db *sql.DB) LeagueRepository {
	return &postgresLeagueRepository{db: db}
}

func (r *postgresLeagueRepository) GetByID(ctx context.Context, id int) (*models.League, error) {
	query := `SELECT id, name, short_name, created_at FROM leagues WHERE id = $1`
	var l models.League
	var shortName sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(&l.ID, &l.Name, &shortName, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLeagueNotFound
		}
		return nil, fmt.Errorf("failed to scan league by id %d: %w", id, err)
	}
	if shortName.Valid {
		l.ShortName = shortName.String
	}
	return &l, nil
}

func (r *postgresLeagueRepository) List(ctx context.Context) ([]*models.League, error) {
	query := `SELECT id, name, short_name, created_at FROM leagues ORDER BY name ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query leagues: %w", err)
	}
	defer rows.Close()

	leagues := make([]*models.League, 0)
	for rows.Next() {
		var l models.League
		var shortName sql.NullString
		if scanErr := rows.Scan(&l.ID, &l.Name, &shortName, &l.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan league row: %w", scanErr)
		}
		if shortName.Valid {
			l.ShortName = shortName.String
		}
		leagues = append(leagues, &l)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during league rows iteration: %w", err)
	}
	return leagues, nil
}
