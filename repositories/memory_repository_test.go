package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/tournify/models"
)

func seedTournament(t *testing.T, s *MemoryStore, players ...string) (*models.Tournament, []*models.Player) {
	t.Helper()
	ctx := context.Background()
	tournament := &models.Tournament{Name: "Spring Cup"}
	require.NoError(t, s.Tournaments().Create(ctx, nil, tournament))

	created := make([]*models.Player, 0, len(players))
	for _, name := range players {
		p := &models.Player{Name: name, TournamentID: tournament.ID}
		require.NoError(t, s.Players().Create(ctx, nil, p))
		created = append(created, p)
	}
	return tournament, created
}

func TestMemoryStore_TournamentLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	tournament, _ := seedTournament(t, s)
	assert.NotZero(t, tournament.ID)
	assert.Equal(t, models.StatusSetup, tournament.Status)
	assert.False(t, tournament.CreatedAt.IsZero())

	require.NoError(t, s.Tournaments().UpdateStatus(ctx, nil, tournament.ID, models.StatusSetup, models.StatusInProgress))

	err := s.Tournaments().UpdateStatus(ctx, nil, tournament.ID, models.StatusSetup, models.StatusInProgress)
	assert.ErrorIs(t, err, ErrTournamentStatusConflict)

	got, err := s.Tournaments().GetByID(ctx, nil, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, got.Status)

	_, err = s.Tournaments().GetByID(ctx, nil, 999)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
	assert.ErrorIs(t, s.Tournaments().LockForUpdate(ctx, nil, 999), ErrTournamentNotFound)
}

func TestMemoryStore_ListTournaments(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for i := 0; i < 5; i++ {
		seedTournament(t, s)
	}
	first, _ := s.Tournaments().List(ctx, ListTournamentsFilter{})
	require.Len(t, first, 5)
	require.NoError(t, s.Tournaments().UpdateStatus(ctx, nil, first[0].ID, models.StatusSetup, models.StatusInProgress))

	page, err := s.Tournaments().List(ctx, ListTournamentsFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, first[1].ID, page[0].ID)
	assert.Equal(t, first[2].ID, page[1].ID)

	status := models.StatusInProgress
	filtered, err := s.Tournaments().List(ctx, ListTournamentsFilter{Status: &status})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, first[0].ID, filtered[0].ID)

	empty, err := s.Tournaments().List(ctx, ListTournamentsFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryStore_Matches(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	tournament, players := seedTournament(t, s, "A", "B", "C", "D")

	newMatch := func(round, number int, p1, p2 *models.Player) *models.Match {
		return &models.Match{TournamentID: tournament.ID, RoundNumber: round, MatchNumber: number, Player1ID: &p1.ID, Player2ID: &p2.ID}
	}

	second := newMatch(1, 2, players[2], players[3])
	first := newMatch(1, 1, players[0], players[1])
	require.NoError(t, s.Matches().Create(ctx, nil, second))
	require.NoError(t, s.Matches().Create(ctx, nil, first))

	err := s.Matches().Create(ctx, nil, newMatch(1, 1, players[0], players[2]))
	assert.ErrorIs(t, err, ErrMatchSlotTaken)

	round := 1
	listed, err := s.Matches().ListByTournament(ctx, nil, tournament.ID, &round)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, 1, listed[0].MatchNumber)
	assert.Equal(t, 2, listed[1].MatchNumber)

	require.NoError(t, s.Matches().SetWinner(ctx, nil, first.ID, players[1].ID))
	got, err := s.Matches().GetByID(ctx, nil, first.ID)
	require.NoError(t, err)
	assert.True(t, got.IsCompleted)
	assert.Equal(t, players[1].ID, *got.WinnerID)

	err = s.Matches().SetWinner(ctx, nil, first.ID, players[0].ID)
	assert.ErrorIs(t, err, ErrMatchAlreadyDecided)

	_, err = s.Matches().GetByID(ctx, nil, 12345)
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestMemoryStore_MatchRejectsForeignPlayers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	tournament, _ := seedTournament(t, s, "A")
	_, others := seedTournament(t, s, "X", "Y")

	err := s.Matches().Create(ctx, nil, &models.Match{
		TournamentID: tournament.ID, RoundNumber: 1, MatchNumber: 1,
		Player1ID: &others[0].ID, Player2ID: &others[1].ID,
	})
	assert.ErrorIs(t, err, ErrMatchPlayerInvalid)
}

func TestMemoryStore_RunInTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	boom := errors.New("boom")

	err := s.RunInTx(ctx, func(exec SQLExecutor) error {
		require.NoError(t, s.Tournaments().Create(ctx, exec, &models.Tournament{Name: "ghost"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	all, err := s.Tournaments().List(ctx, ListTournamentsFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)

	require.NoError(t, s.RunInTx(ctx, func(exec SQLExecutor) error {
		return s.Tournaments().Create(ctx, exec, &models.Tournament{Name: "kept"})
	}))
	all, err = s.Tournaments().List(ctx, ListTournamentsFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "kept", all[0].Name)
}

func TestMemoryStore_ReturnedMatchesAreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	tournament, players := seedTournament(t, s, "A", "B")

	m := &models.Match{TournamentID: tournament.ID, RoundNumber: 1, MatchNumber: 1, Player1ID: &players[0].ID, Player2ID: &players[1].ID}
	require.NoError(t, s.Matches().Create(ctx, nil, m))

	got, err := s.Matches().GetByID(ctx, nil, m.ID)
	require.NoError(t, err)
	*got.Player1ID = 999
	got.IsCompleted = true

	again, err := s.Matches().GetByID(ctx, nil, m.ID)
	require.NoError(t, err)
	assert.Equal(t, players[0].ID, *again.Player1ID)
	assert.False(t, again.IsCompleted)
}
