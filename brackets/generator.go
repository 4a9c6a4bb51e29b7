package brackets

import (
	"errors"

	"github.com/Dosada05/tournify/models"
)

var (
	ErrNoEntrants       = errors.New("cannot generate bracket with zero players")
	ErrByeCountMismatch = errors.New("bye count does not pad the field to a power of two")
	ErrByeAgainstBye    = errors.New("two bye placeholders paired in one match")
	ErrUnbalancedRound  = errors.New("odd number of winners cannot be paired into the next round")
)

// NextRoundParams describes a round whose outcome should be evaluated.
type NextRoundParams struct {
	TournamentID int
	Round        int
	Matches      []*models.Match
	// ByePlayerIDs are never counted as winners.
	ByePlayerIDs map[int]struct{}
}

// BracketGenerator builds the first round of a bracket and derives each
// following round from the decided one.
type BracketGenerator interface {
	// Arrange orders real players and bye placeholders into pairing order.
	Arrange(players []*models.Player, byes []*models.Player) ([]*models.Player, error)
	FirstRound(tournamentID int, entrants []*models.Player) ([]*models.Match, error)
	NextRound(params NextRoundParams) (*RoundOutcome, error)

	GetName() string
}
