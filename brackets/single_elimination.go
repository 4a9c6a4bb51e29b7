// tournify/brackets/single_elimination.go
package brackets

import (
	"fmt"
	"math"
	"sort"

	"github.com/Dosada05/tournify/models"
)

// RoundState is the result of evaluating one round of a bracket.
type RoundState int

const (
	// RoundPending means at least one match in the round is undecided.
	RoundPending RoundState = iota
	// RoundEmpty means the round has no matches at all.
	RoundEmpty
	// RoundAdvanced means the next round's matches were produced.
	RoundAdvanced
	// RoundFinal means the round produced the champion.
	RoundFinal
)

func (s RoundState) String() string {
	switch s {
	case RoundPending:
		return "pending"
	case RoundEmpty:
		return "empty"
	case RoundAdvanced:
		return "advanced"
	case RoundFinal:
		return "final"
	}
	return fmt.Sprintf("RoundState(%d)", int(s))
}

type RoundOutcome struct {
	State RoundState
	// Winners in ascending match-number order.
	Winners     []int
	ChampionID  *int
	NextMatches []*models.Match
}

// BracketSize returns the smallest power of two that fits n entrants.
func BracketSize(n int) int {
	if n <= 1 {
		return 1
	}
	numRounds := int(math.Ceil(math.Log2(float64(n))))
	return 1 << uint(numRounds)
}

type SingleEliminationGenerator struct {
	shuffler Shuffler
}

func NewSingleEliminationGenerator(shuffler Shuffler) *SingleEliminationGenerator {
	if shuffler == nil {
		shuffler = NewRandomShuffler()
	}
	return &SingleEliminationGenerator{shuffler: shuffler}
}

func (g *SingleEliminationGenerator) GetName() string {
	return "SingleElimination"
}

// Arrange shuffles the real players and appends the byes after them.
// Byes take no part in the shuffle; each one is paired with the real
// player directly before it, so the last len(byes) pairs are player
// vs bye and a bye never meets another bye.
func (g *SingleEliminationGenerator) Arrange(players []*models.Player, byes []*models.Player) ([]*models.Player, error) {
	n := len(players)
	if n == 0 {
		return nil, ErrNoEntrants
	}
	sizeOfFullBracket := BracketSize(n)
	if len(byes) != sizeOfFullBracket-n {
		return nil, fmt.Errorf("%w: %d players need %d byes, got %d", ErrByeCountMismatch, n, sizeOfFullBracket-n, len(byes))
	}

	shuffled := make([]*models.Player, n)
	copy(shuffled, players)
	g.shuffler.Shuffle(n, func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	headToHead := n - len(byes)
	entrants := make([]*models.Player, 0, sizeOfFullBracket)
	entrants = append(entrants, shuffled[:headToHead]...)
	for i, bye := range byes {
		entrants = append(entrants, shuffled[headToHead+i], bye)
	}
	return entrants, nil
}

// FirstRound pairs consecutive entrants into round 1. A match against a
// bye is decided on creation in favour of the real player.
func (g *SingleEliminationGenerator) FirstRound(tournamentID int, entrants []*models.Player) ([]*models.Match, error) {
	matches := make([]*models.Match, 0, len(entrants)/2)
	for k := 0; k+1 < len(entrants); k += 2 {
		p1, p2 := entrants[k], entrants[k+1]
		p1ID, p2ID := p1.ID, p2.ID

		m := &models.Match{
			TournamentID: tournamentID,
			RoundNumber:  1,
			MatchNumber:  k/2 + 1,
			Player1ID:    &p1ID,
			Player2ID:    &p2ID,
		}

		switch {
		case p1.IsBye() && p2.IsBye():
			return nil, fmt.Errorf("%w: match %d (%s vs %s)", ErrByeAgainstBye, m.MatchNumber, p1.Name, p2.Name)
		case p1.IsBye():
			m.WinnerID = &p2ID
			m.IsCompleted = true
		case p2.IsBye():
			m.WinnerID = &p1ID
			m.IsCompleted = true
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// NextRound evaluates a round. Nothing is produced until every match of
// the round is decided; winners of matches 2k-1 and 2k meet in match k of
// the following round.
func (g *SingleEliminationGenerator) NextRound(params NextRoundParams) (*RoundOutcome, error) {
	if len(params.Matches) == 0 {
		return &RoundOutcome{State: RoundEmpty}, nil
	}

	ordered := make([]*models.Match, len(params.Matches))
	copy(ordered, params.Matches)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].MatchNumber < ordered[j].MatchNumber
	})

	for _, m := range ordered {
		if !m.IsCompleted {
			return &RoundOutcome{State: RoundPending}, nil
		}
	}

	winners := make([]int, 0, len(ordered))
	for _, m := range ordered {
		if m.WinnerID == nil {
			continue
		}
		if _, isBye := params.ByePlayerIDs[*m.WinnerID]; isBye {
			continue
		}
		winners = append(winners, *m.WinnerID)
	}

	if len(winners) <= 1 {
		outcome := &RoundOutcome{State: RoundFinal, Winners: winners}
		if len(winners) == 1 {
			champion := winners[0]
			outcome.ChampionID = &champion
		}
		return outcome, nil
	}

	if len(winners)%2 != 0 {
		return nil, fmt.Errorf("%w: round %d of tournament %d has %d winners", ErrUnbalancedRound, params.Round, params.TournamentID, len(winners))
	}

	next := make([]*models.Match, 0, len(winners)/2)
	for i := 0; i < len(winners); i += 2 {
		p1ID, p2ID := winners[i], winners[i+1]
		next = append(next, &models.Match{
			TournamentID: params.TournamentID,
			RoundNumber:  params.Round + 1,
			MatchNumber:  i/2 + 1,
			Player1ID:    &p1ID,
			Player2ID:    &p2ID,
		})
	}

	return &RoundOutcome{State: RoundAdvanced, Winners: winners, NextMatches: next}, nil
}
