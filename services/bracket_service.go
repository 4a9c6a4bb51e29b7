package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/tournify/brackets"
	"github.com/Dosada05/tournify/models"
	"github.com/Dosada05/tournify/repositories"
)

var ErrBracketAlreadyBuilt = errors.New("bracket has already been generated for this tournament")

// BracketService builds brackets and advances rounds. Every method runs
// inside the caller's transaction (exec).
type BracketService interface {
	BuildBracket(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, names []string) error
	AdvanceRound(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, round int) (*brackets.RoundOutcome, error)
	// AdvanceFrom advances round after round, starting at round, while
	// rounds keep completing. It returns the outcome of the last round that
	// changed the bracket, or of round itself when nothing changed.
	AdvanceFrom(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, round int) (*brackets.RoundOutcome, error)
}

type bracketService struct {
	tournamentRepo repositories.TournamentRepository
	playerRepo     repositories.PlayerRepository
	matchRepo      repositories.MatchRepository
	generator      brackets.BracketGenerator
	logger         *slog.Logger
}

func NewBracketService(
	tournamentRepo repositories.TournamentRepository,
	playerRepo repositories.PlayerRepository,
	matchRepo repositories.MatchRepository,
	generator brackets.BracketGenerator,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
		tournamentRepo: tournamentRepo,
		playerRepo:     playerRepo,
		matchRepo:      matchRepo,
		generator:      generator,
		logger:         logger,
	}
}

func (s *bracketService) BuildBracket(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, names []string) error {
	if tournament.Status != models.StatusSetup {
		return fmt.Errorf("%w: tournament %d is %s", ErrBracketAlreadyBuilt, tournament.ID, tournament.Status)
	}
	if len(names) < 2 {
		return ErrNotEnoughPlayers
	}

	players := make([]*models.Player, 0, len(names))
	for _, name := range names {
		p := &models.Player{Name: name, TournamentID: tournament.ID}
		if err := s.playerRepo.Create(ctx, exec, p); err != nil {
			return fmt.Errorf("failed to create player %q: %w", name, err)
		}
		players = append(players, p)
	}

	byeCount := brackets.BracketSize(len(players)) - len(players)
	byes := make([]*models.Player, 0, byeCount)
	for i := 1; i <= byeCount; i++ {
		bye := &models.Player{Name: models.ByeName(i), TournamentID: tournament.ID}
		if err := s.playerRepo.Create(ctx, exec, bye); err != nil {
			return fmt.Errorf("failed to create bye placeholder %d: %w", i, err)
		}
		byes = append(byes, bye)
	}

	entrants, err := s.generator.Arrange(players, byes)
	if err != nil {
		return fmt.Errorf("failed to arrange entrants for tournament %d: %w", tournament.ID, err)
	}
	firstRound, err := s.generator.FirstRound(tournament.ID, entrants)
	if err != nil {
		return fmt.Errorf("failed to generate first round for tournament %d: %w", tournament.ID, err)
	}
	for _, m := range firstRound {
		if err := s.matchRepo.Create(ctx, exec, m); err != nil {
			return fmt.Errorf("failed to create round 1 match %d: %w", m.MatchNumber, err)
		}
	}

	if err := s.transition(ctx, exec, tournament.ID, models.StatusSetup, models.StatusInProgress); err != nil {
		return err
	}
	tournament.Status = models.StatusInProgress

	s.logger.InfoContext(ctx, "bracket generated",
		slog.Int("tournament_id", tournament.ID),
		slog.String("generator", s.generator.GetName()),
		slog.Int("players", len(players)),
		slog.Int("byes", len(byes)),
		slog.Int("first_round_matches", len(firstRound)),
	)

	if _, err := s.AdvanceFrom(ctx, exec, tournament.ID, 1); err != nil {
		return err
	}
	return nil
}

func (s *bracketService) AdvanceFrom(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, round int) (*brackets.RoundOutcome, error) {
	var last *brackets.RoundOutcome
	for {
		outcome, err := s.AdvanceRound(ctx, exec, tournamentID, round)
		if err != nil {
			return nil, err
		}
		if outcome.State != brackets.RoundAdvanced {
			if last != nil && outcome.State != brackets.RoundFinal {
				return last, nil
			}
			return outcome, nil
		}
		last = outcome
		round++
	}
}

func (s *bracketService) AdvanceRound(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, round int) (*brackets.RoundOutcome, error) {
	matches, err := s.matchRepo.ListByTournament(ctx, exec, tournamentID, &round)
	if err != nil {
		return nil, fmt.Errorf("failed to load round %d of tournament %d: %w", round, tournamentID, err)
	}

	players, err := s.playerRepo.ListByTournament(ctx, exec, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load players of tournament %d: %w", tournamentID, err)
	}
	byeIDs := make(map[int]struct{})
	for _, p := range players {
		if p.IsBye() {
			byeIDs[p.ID] = struct{}{}
		}
	}

	outcome, err := s.generator.NextRound(brackets.NextRoundParams{
		TournamentID: tournamentID,
		Round:        round,
		Matches:      matches,
		ByePlayerIDs: byeIDs,
	})
	if err != nil {
		return nil, err
	}

	switch outcome.State {
	case brackets.RoundPending, brackets.RoundEmpty:
		return outcome, nil

	case brackets.RoundFinal:
		tournament, err := s.tournamentRepo.GetByID(ctx, exec, tournamentID)
		if err != nil {
			return nil, handleRepositoryError(err)
		}
		if tournament.Status == models.StatusCompleted {
			return outcome, nil
		}
		if err := s.transition(ctx, exec, tournamentID, tournament.Status, models.StatusCompleted); err != nil {
			return nil, err
		}
		s.logger.InfoContext(ctx, "tournament completed",
			slog.Int("tournament_id", tournamentID),
			slog.Int("final_round", round),
			slog.Any("champion_id", outcome.ChampionID),
		)
		return outcome, nil
	}

	nextRound := round + 1
	existing, err := s.matchRepo.ListByTournament(ctx, exec, tournamentID, &nextRound)
	if err != nil {
		return nil, fmt.Errorf("failed to check round %d of tournament %d: %w", nextRound, tournamentID, err)
	}
	if len(existing) > 0 {
		// Раунд уже создан: повторный вызов ничего не меняет.
		outcome.NextMatches = existing
		return outcome, nil
	}

	for _, m := range outcome.NextMatches {
		if err := s.matchRepo.Create(ctx, exec, m); err != nil {
			return nil, fmt.Errorf("failed to create round %d match %d: %w", nextRound, m.MatchNumber, err)
		}
	}
	s.logger.InfoContext(ctx, "round advanced",
		slog.Int("tournament_id", tournamentID),
		slog.Int("round", round),
		slog.Int("next_round_matches", len(outcome.NextMatches)),
	)
	return outcome, nil
}

func (s *bracketService) transition(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, from, to models.TournamentStatus) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrTournamentInvalidStatusTransition, from, to)
	}
	if err := s.tournamentRepo.UpdateStatus(ctx, exec, tournamentID, from, to); err != nil {
		return handleRepositoryError(err)
	}
	return nil
}
