package models

import (
	"errors"
	"fmt"
)

var (
	ErrWinnerNotInMatch      = errors.New("winner is not one of the match players")
	ErrMatchAlreadyCompleted = errors.New("match already has a winner")
)

type Match struct {
	ID           int  `json:"id" db:"id"`
	TournamentID int  `json:"tournament_id" db:"tournament_id"`
	RoundNumber  int  `json:"round_number" db:"round_number"`
	MatchNumber  int  `json:"match_number" db:"match_number"`
	Player1ID    *int `json:"player1_id,omitempty" db:"player1_id"`
	Player2ID    *int `json:"player2_id,omitempty" db:"player2_id"`
	WinnerID     *int `json:"winner_id,omitempty" db:"winner_id"`
	IsCompleted  bool `json:"is_completed" db:"is_completed"`
}

// HasPlayer reports whether playerID occupies one of the two slots.
func (m *Match) HasPlayer(playerID int) bool {
	return (m.Player1ID != nil && *m.Player1ID == playerID) ||
		(m.Player2ID != nil && *m.Player2ID == playerID)
}

// SetWinner decides the match. The winner must be one of the assigned
// players and a decided match cannot be changed.
func (m *Match) SetWinner(playerID int) error {
	if m.IsCompleted {
		return fmt.Errorf("%w: match %d", ErrMatchAlreadyCompleted, m.ID)
	}
	if !m.HasPlayer(playerID) {
		return fmt.Errorf("%w: player %d in match %d", ErrWinnerNotInMatch, playerID, m.ID)
	}
	winner := playerID
	m.WinnerID = &winner
	m.IsCompleted = true
	return nil
}
