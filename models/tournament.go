package models

import "time"

// TournamentStatus представляет статусы турнира, соответствующие ENUM в БД.
type TournamentStatus string

const (
	StatusSetup      TournamentStatus = "setup"
	StatusInProgress TournamentStatus = "in_progress"
	StatusCompleted  TournamentStatus = "completed"
)

// IsValid reports whether s is one of the known statuses.
func (s TournamentStatus) IsValid() bool {
	switch s {
	case StatusSetup, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// CanTransitionTo reports whether a tournament may move from s to next.
// Status only moves forward: setup -> in_progress -> completed.
func (s TournamentStatus) CanTransitionTo(next TournamentStatus) bool {
	if s == next {
		return true
	}
	allowedTransitions := map[TournamentStatus]TournamentStatus{
		StatusSetup:      StatusInProgress,
		StatusInProgress: StatusCompleted,
	}
	allowed, ok := allowedTransitions[s]
	return ok && allowed == next
}

// Tournament представляет турнир.
type Tournament struct {
	ID        int              `json:"id" db:"id"`
	Name      string           `json:"name" db:"name"`
	Status    TournamentStatus `json:"status" db:"status"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`

	Players []Player `json:"players,omitempty" db:"-"`
	Matches []Match  `json:"matches,omitempty" db:"-"`
}

// Champion returns the winner of the last decided round once the
// tournament is completed.
func (t *Tournament) Champion() (int, bool) {
	if t.Status != StatusCompleted {
		return 0, false
	}
	lastRound := 0
	for _, m := range t.Matches {
		if m.RoundNumber > lastRound {
			lastRound = m.RoundNumber
		}
	}
	for _, m := range t.Matches {
		if m.RoundNumber == lastRound && m.IsCompleted && m.WinnerID != nil {
			return *m.WinnerID, true
		}
	}
	return 0, false
}
