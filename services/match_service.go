package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/tournify/brackets"
	"github.com/Dosada05/tournify/models"
	"github.com/Dosada05/tournify/repositories"
	"github.com/Dosada05/tournify/storage"
)

// ErrMatchesListFailed - общая ошибка для листинга матчей
var ErrMatchesListFailed = errors.New("failed to list matches")

type MatchService interface {
	RecordWinner(ctx context.Context, matchID int, winnerID int) (*MatchView, error)
	ListMatches(ctx context.Context, tournamentID int) ([]MatchView, error)
}

type matchService struct {
	bracketReader
	txManager      repositories.TxManager
	bracketService BracketService
	notifier       BracketNotifier
	uploader       storage.FileUploader
	logger         *slog.Logger
}

// NewMatchService wires the result recorder. notifier and uploader may be
// nil: live updates and archiving are then skipped.
func NewMatchService(
	txManager repositories.TxManager,
	tournamentRepo repositories.TournamentRepository,
	playerRepo repositories.PlayerRepository,
	matchRepo repositories.MatchRepository,
	bracketService BracketService,
	notifier BracketNotifier,
	uploader storage.FileUploader,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		bracketReader: bracketReader{
			tournamentRepo: tournamentRepo,
			playerRepo:     playerRepo,
			matchRepo:      matchRepo,
		},
		txManager:      txManager,
		bracketService: bracketService,
		notifier:       notifier,
		uploader:       uploader,
		logger:         logger,
	}
}

func (s *matchService) RecordWinner(ctx context.Context, matchID int, winnerID int) (*MatchView, error) {
	var (
		tournamentID int
		outcome      *brackets.RoundOutcome
	)

	err := s.txManager.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		match, err := s.matchRepo.GetByID(ctx, exec, matchID)
		if err != nil {
			return handleRepositoryError(err)
		}
		tournamentID = match.TournamentID

		if err := s.tournamentRepo.LockForUpdate(ctx, exec, tournamentID); err != nil {
			return handleRepositoryError(err)
		}
		// Перечитываем матч под блокировкой турнира.
		match, err = s.matchRepo.GetByID(ctx, exec, matchID)
		if err != nil {
			return handleRepositoryError(err)
		}

		if err := match.SetWinner(winnerID); err != nil {
			switch {
			case errors.Is(err, models.ErrMatchAlreadyCompleted):
				return fmt.Errorf("%w: %w", ErrMatchAlreadyCompleted, err)
			case errors.Is(err, models.ErrWinnerNotInMatch):
				return fmt.Errorf("%w: %w", ErrInvalidWinner, err)
			}
			return err
		}
		if err := s.matchRepo.SetWinner(ctx, exec, match.ID, winnerID); err != nil {
			return handleRepositoryError(err)
		}

		outcome, err = s.bracketService.AdvanceFrom(ctx, exec, tournamentID, match.RoundNumber)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "match result recorded",
		slog.Int("match_id", matchID),
		slog.Int("tournament_id", tournamentID),
		slog.Int("winner_id", winnerID),
		slog.String("round_state", outcome.State.String()),
	)

	view, err := s.loadView(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	var updated *MatchView
	for i := range view.Matches {
		if view.Matches[i].ID == matchID {
			updated = &view.Matches[i]
			break
		}
	}
	if updated == nil {
		return nil, fmt.Errorf("%w: match %d vanished after update", ErrMatchNotFound, matchID)
	}

	s.publish(ctx, view, updated, outcome)
	return updated, nil
}

func (s *matchService) publish(ctx context.Context, view *TournamentView, match *MatchView, outcome *brackets.RoundOutcome) {
	room := brackets.RoomForTournament(view.ID)
	if s.notifier != nil {
		s.notifier.BroadcastToRoom(room, brackets.WebSocketMessage{
			Type:    brackets.MessageMatchUpdated,
			Payload: match,
			RoomID:  room,
		})
		if outcome.State == brackets.RoundAdvanced {
			s.notifier.BroadcastToRoom(room, brackets.WebSocketMessage{
				Type:    brackets.MessageBracketUpdated,
				Payload: view,
				RoomID:  room,
			})
		}
		if outcome.State == brackets.RoundFinal {
			s.notifier.BroadcastToRoom(room, brackets.WebSocketMessage{
				Type:    brackets.MessageTournamentCompleted,
				Payload: view,
				RoomID:  room,
			})
		}
	}

	if outcome.State == brackets.RoundFinal {
		s.archive(ctx, view)
	}
}

// archive uploads the finished bracket. Failures are logged only: the
// result is already committed.
func (s *matchService) archive(ctx context.Context, view *TournamentView) {
	if s.uploader == nil {
		return
	}
	body, err := json.Marshal(view)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to encode bracket archive", slog.Int("tournament_id", view.ID), slog.Any("error", err))
		return
	}
	result, err := s.uploader.Upload(ctx, storage.BracketArchiveKey(view.ID), "application/json", bytes.NewReader(body))
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to archive bracket", slog.Int("tournament_id", view.ID), slog.Any("error", err))
		return
	}
	s.logger.InfoContext(ctx, "bracket archived",
		slog.Int("tournament_id", view.ID),
		slog.String("key", result.Key),
		slog.String("url", s.uploader.GetPublicURL(result.Key)),
	)
}

func (s *matchService) ListMatches(ctx context.Context, tournamentID int) ([]MatchView, error) {
	view, err := s.loadView(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, ErrTournamentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: tournament %d: %w", ErrMatchesListFailed, tournamentID, err)
	}
	return view.Matches, nil
}
