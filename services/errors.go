package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	ErrNotFound = errors.New("requested resource not found")

	ErrTournamentNotFound = errors.New("tournament not found")
	ErrMatchNotFound      = errors.New("match not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed       = errors.New("validation failed")
	ErrTournamentNameRequired = errors.New("tournament name is required")
	ErrNotEnoughPlayers       = errors.New("tournament must have at least 2 players")
	ErrPlayerNameRequired     = errors.New("player names must not be empty")
	ErrReservedPlayerName     = errors.New("player name uses the reserved BYE_ prefix")

	// Ошибки записи результатов
	ErrInvalidWinner         = errors.New("winner must be one of the match players")
	ErrMatchAlreadyCompleted = errors.New("match result already recorded")
	ErrTournamentCompleted   = errors.New("tournament is already completed")

	ErrTournamentInvalidStatusTransition = errors.New("invalid tournament status transition")
)
