package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/liga-hub/tabellen-service/models"
)

var (
	ErrSeasonNotFound = errors.New("season not found")
	ErrNoActiveSeason = errors.New("no active season")
)

type SeasonRepository interface {
	GetByID(ctx context.Context, id int) (*models.Season, error)
	GetActive(ctx context.Context) (*models.Season, error)
}

type postgresSeasonRepository struct {
	db *sql.DB
}

func NewPostgresSeasonRepository(db *sql.DB) SeasonRepository {
	return &postgresSeasonRepository{db: db}
}

func (r *postgresSeasonRepository) GetByID(ctx context.Context, id int) (*models.Season, error) {
	query := `SELECT id, name, start_date, end_date, active FROM seasons WHERE id = $1`
	return r.scanSeason(r.db.QueryRowContext(ctx, query, id), ErrSeasonNotFound)
}

// GetActive returns the single active season. Uniqueness of the active flag
// is enforced outside this service; if several are active the newest wins.
func (r *postgresSeasonRepository) GetActive(ctx context.Context) (*models.Season, error) {
	query := `SELECT id, name, start_date, end_date, active FROM seasons WHERE active = TRUE ORDER BY start_date DESC LIMIT 1`
	return r.scanSeason(r.db.QueryRowContext(ctx, query), ErrNoActiveSeason)
}

func (r *postgresSeasonRepository) scanSeason(row *sql.Row, notFound error) (*models.Season, error) {
	var s models.Season
	err := row.Scan(&s.ID, &s.Name, &s.StartDate, &s.EndDate, &s.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound
		}
		return nil, fmt.Errorf("failed to scan season: %w", err)
	}
	return &s, nil
}
