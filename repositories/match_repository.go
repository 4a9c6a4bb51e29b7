package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Dosada05/tournify/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound            = errors.New("match not found")
	ErrMatchAlreadyDecided      = errors.New("match already decided")
	ErrMatchSlotTaken           = errors.New("match with this round and number already exists")
	ErrMatchTournamentInvalid   = errors.New("match tournament conflict or invalid")
	ErrMatchPlayerInvalid       = errors.New("match player conflict or invalid")
	ErrMatchWinnerPlayerInvalid = errors.New("match winner player conflict or invalid")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	// ListByTournament returns matches ordered by round, then match number.
	// A nil round returns the whole bracket.
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, round *int) ([]*models.Match, error)
	// SetWinner decides an undecided match.
	SetWinner(ctx context.Context, exec SQLExecutor, id int, winnerID int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `id, tournament_id, round_number, match_number, player1_id, player2_id, winner_id, is_completed`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMatch(row rowScanner, m *models.Match) error {
	var p1, p2, winner sql.NullInt64
	if err := row.Scan(&m.ID, &m.TournamentID, &m.RoundNumber, &m.MatchNumber, &p1, &p2, &winner, &m.IsCompleted); err != nil {
		return err
	}
	m.Player1ID = nullIntPtr(p1)
	m.Player2ID = nullIntPtr(p2)
	m.WinnerID = nullIntPtr(winner)
	return nil
}

func nullIntPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	query := `
		INSERT INTO matches
			(tournament_id, round_number, match_number, player1_id, player2_id, winner_id, is_completed)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := getExecutor(r.db, exec).QueryRowContext(ctx, query,
		m.TournamentID,
		m.RoundNumber,
		m.MatchNumber,
		m.Player1ID,
		m.Player2ID,
		m.WinnerID,
		m.IsCompleted,
	).Scan(&m.ID)

	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`

	m := &models.Match{}
	if err := scanMatch(getExecutor(r.db, exec).QueryRowContext(ctx, query, id), m); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match by id %d: %w", id, err)
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, round *int) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = $1`)

	args := []interface{}{tournamentID}
	if round != nil {
		queryBuilder.WriteString(" AND round_number = $")
		queryBuilder.WriteString(strconv.Itoa(len(args) + 1))
		args = append(args, *round)
	}
	queryBuilder.WriteString(" ORDER BY round_number ASC, match_number ASC")

	rows, err := getExecutor(r.db, exec).QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		var m models.Match
		if scanErr := scanMatch(rows, &m); scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, &m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) SetWinner(ctx context.Context, exec SQLExecutor, id int, winnerID int) error {
	query := `
		UPDATE matches
		SET winner_id = $1, is_completed = TRUE
		WHERE id = $2 AND is_completed = FALSE`

	result, err := getExecutor(r.db, exec).ExecContext(ctx, query, winnerID, id)
	if err != nil {
		return r.handleMatchError(err)
	}
	if err := checkAffectedRows(result, ErrMatchAlreadyDecided); err != nil {
		if !errors.Is(err, ErrMatchAlreadyDecided) {
			return err
		}
		if _, getErr := r.GetByID(ctx, exec, id); getErr != nil {
			return getErr
		}
		return fmt.Errorf("%w: match %d", ErrMatchAlreadyDecided, id)
	}
	return nil
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		// "23503": foreign_key_violation
		// "23505": unique_violation
		switch pqErr.Constraint {
		case "matches_tournament_id_fkey":
			return ErrMatchTournamentInvalid
		case "matches_player1_id_fkey", "matches_player2_id_fkey":
			return ErrMatchPlayerInvalid
		case "matches_winner_id_fkey":
			return ErrMatchWinnerPlayerInvalid
		case "matches_tournament_round_match_key":
			return ErrMatchSlotTaken
		}
	}
	return err
}
