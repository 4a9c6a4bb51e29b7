package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/tournify/models"
	"github.com/Dosada05/tournify/repositories"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	listConcurrency  = 4
)

type CreateTournamentInput struct {
	Name    string   `json:"name"`
	Players []string `json:"players"`
}

type ListTournamentsFilter struct {
	Status *models.TournamentStatus
	Limit  int
	Offset int
}

type TournamentService interface {
	CreateTournament(ctx context.Context, input CreateTournamentInput) (*TournamentView, error)
	GetTournament(ctx context.Context, id int) (*TournamentView, error)
	ListTournaments(ctx context.Context, filter ListTournamentsFilter) ([]*TournamentView, error)
}

type tournamentService struct {
	bracketReader
	txManager      repositories.TxManager
	bracketService BracketService
	logger         *slog.Logger
}

func NewTournamentService(
	txManager repositories.TxManager,
	tournamentRepo repositories.TournamentRepository,
	playerRepo repositories.PlayerRepository,
	matchRepo repositories.MatchRepository,
	bracketService BracketService,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		bracketReader: bracketReader{
			tournamentRepo: tournamentRepo,
			playerRepo:     playerRepo,
			matchRepo:      matchRepo,
		},
		txManager:      txManager,
		bracketService: bracketService,
		logger:         logger,
	}
}

func validateCreateInput(input CreateTournamentInput) (string, []string, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return "", nil, ErrTournamentNameRequired
	}
	if len(input.Players) < 2 {
		return "", nil, ErrNotEnoughPlayers
	}
	players := make([]string, 0, len(input.Players))
	for _, raw := range input.Players {
		player := strings.TrimSpace(raw)
		if player == "" {
			return "", nil, ErrPlayerNameRequired
		}
		if strings.HasPrefix(player, models.ByePrefix) {
			return "", nil, fmt.Errorf("%w: %q", ErrReservedPlayerName, player)
		}
		players = append(players, player)
	}
	return name, players, nil
}

func (s *tournamentService) CreateTournament(ctx context.Context, input CreateTournamentInput) (*TournamentView, error) {
	name, players, err := validateCreateInput(input)
	if err != nil {
		return nil, err
	}

	tournament := &models.Tournament{Name: name, Status: models.StatusSetup}
	err = s.txManager.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.tournamentRepo.Create(ctx, exec, tournament); err != nil {
			return fmt.Errorf("failed to create tournament: %w", err)
		}
		return s.bracketService.BuildBracket(ctx, exec, tournament, players)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "tournament creation failed", slog.String("name", name), slog.Any("error", err))
		return nil, err
	}

	s.logger.InfoContext(ctx, "tournament created",
		slog.Int("tournament_id", tournament.ID),
		slog.String("name", tournament.Name),
		slog.Int("players", len(players)),
	)
	return s.loadView(ctx, tournament.ID)
}

func (s *tournamentService) GetTournament(ctx context.Context, id int) (*TournamentView, error) {
	return s.loadView(ctx, id)
}

func (s *tournamentService) ListTournaments(ctx context.Context, filter ListTournamentsFilter) ([]*TournamentView, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidationFailed, *filter.Status)
	}
	if filter.Offset < 0 {
		return nil, fmt.Errorf("%w: offset must not be negative", ErrValidationFailed)
	}
	limit := filter.Limit
	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}

	tournaments, err := s.tournamentRepo.List(ctx, repositories.ListTournamentsFilter{
		Status: filter.Status,
		Limit:  limit,
		Offset: filter.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}

	views := make([]*TournamentView, len(tournaments))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(listConcurrency)
	for i := range tournaments {
		i := i
		g.Go(func() error {
			view, err := s.populateView(gCtx, &tournaments[i])
			if err != nil {
				return err
			}
			views[i] = view
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return views, nil
}
