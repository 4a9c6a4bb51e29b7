package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/tournify/models"
	"github.com/lib/pq"
)

var ErrPlayerTournamentInvalid = errors.New("player tournament reference is invalid")

type PlayerRepository interface {
	Create(ctx context.Context, exec SQLExecutor, player *models.Player) error
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Player, error)
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

func (r *postgresPlayerRepository) Create(ctx context.Context, exec SQLExecutor, p *models.Player) error {
	query := `
		INSERT INTO players (name, tournament_id)
		VALUES ($1, $2)
		RETURNING id`

	err := getExecutor(r.db, exec).QueryRowContext(ctx, query, p.Name, p.TournamentID).Scan(&p.ID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Constraint == "players_tournament_id_fkey" {
			return ErrPlayerTournamentInvalid
		}
		return fmt.Errorf("failed to insert player %q: %w", p.Name, err)
	}
	return nil
}

// ListByTournament returns players in creation order.
func (r *postgresPlayerRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Player, error) {
	query := `
		SELECT id, name, tournament_id
		FROM players
		WHERE tournament_id = $1
		ORDER BY id ASC`

	rows, err := getExecutor(r.db, exec).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query players for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	players := make([]*models.Player, 0)
	for rows.Next() {
		var p models.Player
		if scanErr := rows.Scan(&p.ID, &p.Name, &p.TournamentID); scanErr != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", scanErr)
		}
		players = append(players, &p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during player rows iteration: %w", err)
	}
	return players, nil
}
