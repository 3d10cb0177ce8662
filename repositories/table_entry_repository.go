package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/liga-hub/tabellen-service/models"
)

var ErrTableEntryNotFound = errors.New("table entry not found")

type TableEntryRepository interface {
	ListByScope(ctx context.Context, exec SQLExecutor, leagueID, seasonID int) ([]*models.TableEntry, error)
	// ReplaceForScope deletes all rows of the scope and inserts the given
	// set as one atomic full replace, so readers never observe a
	// half-replaced table.
	ReplaceForScope(ctx context.Context, leagueID, seasonID int, entries []*models.TableEntry) error
}

type postgresTableEntryRepository struct {
	db *sql.DB
}

func NewPostgresTableEntryRepository(db *sql.DB) TableEntryRepository {
	return &postgresTableEntryRepository{db: db}
}

func (r *postgresTableEntryRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTableEntryRepository) ListByScope(ctx context.Context, exec SQLExecutor, leagueID, seasonID int) ([]*models.TableEntry, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, league_id, season_id, participant_kind, participant_id, team_name,
		       rank, games_played, wins, draws, losses, goals_for, goals_against,
		       goal_difference, points, form, auto_calculated, calculation_source, updated_at
		FROM table_entries
		WHERE league_id = $1 AND season_id = $2
		ORDER BY rank ASC`

	rows, err := executor.QueryContext(ctx, query, leagueID, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to query table entries for league %d season %d: %w", leagueID, seasonID, err)
	}
	defer rows.Close()

	entries := make([]*models.TableEntry, 0)
	for rows.Next() {
		var e models.TableEntry
		var form, source sql.NullString
		if scanErr := rows.Scan(
			&e.ID, &e.LeagueID, &e.SeasonID, &e.ParticipantKind, &e.ParticipantID, &e.TeamName,
			&e.Rank, &e.GamesPlayed, &e.Wins, &e.Draws, &e.Losses, &e.GoalsFor, &e.GoalsAgainst,
			&e.GoalDifference, &e.Points, &form, &e.AutoCalculated, &source, &e.UpdatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan table entry row: %w", scanErr)
		}
		if form.Valid {
			e.Form = form.String
		}
		if source.Valid {
			e.CalculationSource = source.String
		}
		entries = append(entries, &e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during table entry rows iteration: %w", err)
	}
	return entries, nil
}

func (r *postgresTableEntryRepository) ReplaceForScope(ctx context.Context, leagueID, seasonID int, entries []*models.TableEntry) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ReplaceForScope failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM table_entries WHERE league_id = $1 AND season_id = $2`, leagueID, seasonID); err != nil {
		return fmt.Errorf("ReplaceForScope failed to delete old entries for league %d season %d: %w", leagueID, seasonID, err)
	}

	if len(entries) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO table_entries
		    (league_id, season_id, participant_kind, participant_id, team_name,
		     rank, games_played, wins, draws, losses, goals_for, goals_against,
		     goal_difference, points, form, auto_calculated, calculation_source, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id`)
	if err != nil {
		return fmt.Errorf("ReplaceForScope failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, entry := range entries {
		if entry.UpdatedAt.IsZero() {
			entry.UpdatedAt = time.Now()
		}
		err = stmt.QueryRowContext(ctx,
			entry.LeagueID, entry.SeasonID, entry.ParticipantKind, entry.ParticipantID, entry.TeamName,
			entry.Rank, entry.GamesPlayed, entry.Wins, entry.Draws, entry.Losses, entry.GoalsFor, entry.GoalsAgainst,
			entry.GoalDifference, entry.Points, entry.Form, entry.AutoCalculated, entry.CalculationSource, entry.UpdatedAt,
		).Scan(&entry.ID)
		if err != nil {
			return fmt.Errorf("ReplaceForScope failed for participant %s:%d: %w", entry.ParticipantKind, entry.ParticipantID, err)
		}
	}
	return nil
}
