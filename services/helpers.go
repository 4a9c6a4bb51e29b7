// File: tournify/services/helpers.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/tournify/models"
	"github.com/Dosada05/tournify/repositories"
)

// BracketNotifier pushes bracket changes to live viewers. *brackets.Hub
// satisfies it.
type BracketNotifier interface {
	BroadcastToRoom(roomID string, message interface{})
}

type PlayerView struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	IsBye bool   `json:"is_bye"`
}

type MatchView struct {
	ID          int         `json:"id"`
	RoundNumber int         `json:"round_number"`
	MatchNumber int         `json:"match_number"`
	Player1     *PlayerView `json:"player1"`
	Player2     *PlayerView `json:"player2"`
	Winner      *PlayerView `json:"winner"`
	IsCompleted bool        `json:"is_completed"`
}

type TournamentView struct {
	ID        int                     `json:"id"`
	Name      string                  `json:"name"`
	Status    models.TournamentStatus `json:"status"`
	CreatedAt time.Time               `json:"created_at"`
	Players   []PlayerView            `json:"players"`
	Matches   []MatchView             `json:"matches"`
	Champion  *PlayerView             `json:"champion,omitempty"`
}

// handleRepositoryError переводит ошибки репозиториев в ошибки сервисов.
func handleRepositoryError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return fmt.Errorf("%w: %w", ErrTournamentNotFound, err)
	case errors.Is(err, repositories.ErrMatchNotFound):
		return fmt.Errorf("%w: %w", ErrMatchNotFound, err)
	case errors.Is(err, repositories.ErrMatchAlreadyDecided):
		return fmt.Errorf("%w: %w", ErrMatchAlreadyCompleted, err)
	case errors.Is(err, repositories.ErrTournamentStatusConflict):
		return fmt.Errorf("%w: %w", ErrTournamentInvalidStatusTransition, err)
	}
	return err
}

func toPlayerView(p *models.Player) PlayerView {
	return PlayerView{ID: p.ID, Name: p.Name, IsBye: p.IsBye()}
}

func lookupPlayer(players map[int]PlayerView, id *int) *PlayerView {
	if id == nil {
		return nil
	}
	if view, ok := players[*id]; ok {
		return &view
	}
	return &PlayerView{ID: *id, Name: fmt.Sprintf("Player %d (Details Missing)", *id)}
}

func toMatchView(m *models.Match, players map[int]PlayerView) MatchView {
	return MatchView{
		ID:          m.ID,
		RoundNumber: m.RoundNumber,
		MatchNumber: m.MatchNumber,
		Player1:     lookupPlayer(players, m.Player1ID),
		Player2:     lookupPlayer(players, m.Player2ID),
		Winner:      lookupPlayer(players, m.WinnerID),
		IsCompleted: m.IsCompleted,
	}
}

func buildTournamentView(t *models.Tournament, players []*models.Player, matches []*models.Match) *TournamentView {
	view := &TournamentView{
		ID:        t.ID,
		Name:      t.Name,
		Status:    t.Status,
		CreatedAt: t.CreatedAt,
		Players:   make([]PlayerView, 0, len(players)),
		Matches:   make([]MatchView, 0, len(matches)),
	}

	byID := make(map[int]PlayerView, len(players))
	for _, p := range players {
		pv := toPlayerView(p)
		byID[p.ID] = pv
		view.Players = append(view.Players, pv)
	}

	full := *t
	full.Matches = make([]models.Match, 0, len(matches))
	for _, m := range matches {
		view.Matches = append(view.Matches, toMatchView(m, byID))
		full.Matches = append(full.Matches, *m)
	}

	if championID, ok := full.Champion(); ok {
		view.Champion = lookupPlayer(byID, &championID)
	}
	return view
}

// bracketReader loads a tournament together with its players and matches.
type bracketReader struct {
	tournamentRepo repositories.TournamentRepository
	playerRepo     repositories.PlayerRepository
	matchRepo      repositories.MatchRepository
}

func (r bracketReader) loadView(ctx context.Context, tournamentID int) (*TournamentView, error) {
	tournament, err := r.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return r.populateView(ctx, tournament)
}

func (r bracketReader) populateView(ctx context.Context, tournament *models.Tournament) (*TournamentView, error) {
	var (
		players []*models.Player
		matches []*models.Match
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		players, err = r.playerRepo.ListByTournament(gCtx, nil, tournament.ID)
		if err != nil {
			return fmt.Errorf("failed to load players for tournament %d: %w", tournament.ID, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		matches, err = r.matchRepo.ListByTournament(gCtx, nil, tournament.ID, nil)
		if err != nil {
			return fmt.Errorf("failed to load matches for tournament %d: %w", tournament.ID, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return buildTournamentView(tournament, players, matches), nil
}
