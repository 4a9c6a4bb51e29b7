package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/tournify/models"
)

// MemoryStore keeps tournaments, players and matches in process memory.
// Transactions are serialized and rolled back by restoring a snapshot, so
// the store satisfies the same contract as the Postgres repositories for
// local runs and tests.
type MemoryStore struct {
	txMu sync.Mutex

	mu          sync.RWMutex
	tournaments map[int]models.Tournament
	players     map[int]models.Player
	matches     map[int]models.Match
	nextID      int
	now         func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tournaments: make(map[int]models.Tournament),
		players:     make(map[int]models.Player),
		matches:     make(map[int]models.Match),
		now:         time.Now,
	}
}

func (s *MemoryStore) Tournaments() TournamentRepository { return memoryTournamentRepository{s} }
func (s *MemoryStore) Players() PlayerRepository         { return memoryPlayerRepository{s} }
func (s *MemoryStore) Matches() MatchRepository          { return memoryMatchRepository{s} }

type memorySnapshot struct {
	tournaments map[int]models.Tournament
	players     map[int]models.Player
	matches     map[int]models.Match
	nextID      int
}

func (s *MemoryStore) snapshot() memorySnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := memorySnapshot{
		tournaments: make(map[int]models.Tournament, len(s.tournaments)),
		players:     make(map[int]models.Player, len(s.players)),
		matches:     make(map[int]models.Match, len(s.matches)),
		nextID:      s.nextID,
	}
	for k, v := range s.tournaments {
		snap.tournaments[k] = v
	}
	for k, v := range s.players {
		snap.players[k] = v
	}
	for k, v := range s.matches {
		snap.matches[k] = v
	}
	return snap
}

func (s *MemoryStore) restore(snap memorySnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tournaments = snap.tournaments
	s.players = snap.players
	s.matches = snap.matches
	s.nextID = snap.nextID
}

// RunInTx runs fn while holding the store-wide transaction lock. The exec
// handed to fn is nil; memory repositories ignore it.
func (s *MemoryStore) RunInTx(ctx context.Context, fn func(exec SQLExecutor) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	snap := s.snapshot()
	if err := fn(nil); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *MemoryStore) newID() int {
	s.nextID++
	return s.nextID
}

func cloneIntPtr(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneMatch(m models.Match) *models.Match {
	m.Player1ID = cloneIntPtr(m.Player1ID)
	m.Player2ID = cloneIntPtr(m.Player2ID)
	m.WinnerID = cloneIntPtr(m.WinnerID)
	return &m
}

type memoryTournamentRepository struct{ s *MemoryStore }

func (r memoryTournamentRepository) Create(_ context.Context, _ SQLExecutor, t *models.Tournament) error {
	if t.Status == "" {
		t.Status = models.StatusSetup
	}
	if !t.Status.IsValid() {
		return ErrTournamentInvalidStatus
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t.ID = r.s.newID()
	t.CreatedAt = r.s.now().UTC()
	stored := *t
	stored.Players, stored.Matches = nil, nil
	r.s.tournaments[t.ID] = stored
	return nil
}

func (r memoryTournamentRepository) GetByID(_ context.Context, _ SQLExecutor, id int) (*models.Tournament, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.tournaments[id]
	if !ok {
		return nil, ErrTournamentNotFound
	}
	return &t, nil
}

func (r memoryTournamentRepository) List(_ context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	tournaments := make([]models.Tournament, 0, len(r.s.tournaments))
	for _, t := range r.s.tournaments {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		tournaments = append(tournaments, t)
	}
	sort.Slice(tournaments, func(i, j int) bool { return tournaments[i].ID < tournaments[j].ID })

	if filter.Offset > 0 {
		if filter.Offset >= len(tournaments) {
			return []models.Tournament{}, nil
		}
		tournaments = tournaments[filter.Offset:]
	}
	if filter.Limit > 0 && len(tournaments) > filter.Limit {
		tournaments = tournaments[:filter.Limit]
	}
	return tournaments, nil
}

func (r memoryTournamentRepository) UpdateStatus(_ context.Context, _ SQLExecutor, id int, from, to models.TournamentStatus) error {
	if !to.IsValid() {
		return ErrTournamentInvalidStatus
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok {
		return ErrTournamentNotFound
	}
	if t.Status != from {
		return fmt.Errorf("%w: tournament %d is not %s", ErrTournamentStatusConflict, id, from)
	}
	t.Status = to
	r.s.tournaments[id] = t
	return nil
}

func (r memoryTournamentRepository) LockForUpdate(_ context.Context, _ SQLExecutor, id int) error {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if _, ok := r.s.tournaments[id]; !ok {
		return ErrTournamentNotFound
	}
	return nil
}

type memoryPlayerRepository struct{ s *MemoryStore }

func (r memoryPlayerRepository) Create(_ context.Context, _ SQLExecutor, p *models.Player) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tournaments[p.TournamentID]; !ok {
		return ErrPlayerTournamentInvalid
	}
	p.ID = r.s.newID()
	r.s.players[p.ID] = *p
	return nil
}

func (r memoryPlayerRepository) ListByTournament(_ context.Context, _ SQLExecutor, tournamentID int) ([]*models.Player, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	players := make([]*models.Player, 0)
	for _, p := range r.s.players {
		if p.TournamentID == tournamentID {
			p := p
			players = append(players, &p)
		}
	}
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })
	return players, nil
}

type memoryMatchRepository struct{ s *MemoryStore }

func (r memoryMatchRepository) Create(_ context.Context, _ SQLExecutor, m *models.Match) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tournaments[m.TournamentID]; !ok {
		return ErrMatchTournamentInvalid
	}
	for _, slot := range []*int{m.Player1ID, m.Player2ID} {
		if slot == nil {
			continue
		}
		if p, ok := r.s.players[*slot]; !ok || p.TournamentID != m.TournamentID {
			return ErrMatchPlayerInvalid
		}
	}
	if m.WinnerID != nil {
		if _, ok := r.s.players[*m.WinnerID]; !ok {
			return ErrMatchWinnerPlayerInvalid
		}
	}
	for _, existing := range r.s.matches {
		if existing.TournamentID == m.TournamentID && existing.RoundNumber == m.RoundNumber && existing.MatchNumber == m.MatchNumber {
			return ErrMatchSlotTaken
		}
	}
	m.ID = r.s.newID()
	r.s.matches[m.ID] = *cloneMatch(*m)
	return nil
}

func (r memoryMatchRepository) GetByID(_ context.Context, _ SQLExecutor, id int) (*models.Match, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.matches[id]
	if !ok {
		return nil, ErrMatchNotFound
	}
	return cloneMatch(m), nil
}

func (r memoryMatchRepository) ListByTournament(_ context.Context, _ SQLExecutor, tournamentID int, round *int) ([]*models.Match, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	matches := make([]*models.Match, 0)
	for _, m := range r.s.matches {
		if m.TournamentID != tournamentID {
			continue
		}
		if round != nil && m.RoundNumber != *round {
			continue
		}
		matches = append(matches, cloneMatch(m))
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].RoundNumber != matches[j].RoundNumber {
			return matches[i].RoundNumber < matches[j].RoundNumber
		}
		return matches[i].MatchNumber < matches[j].MatchNumber
	})
	return matches, nil
}

func (r memoryMatchRepository) SetWinner(_ context.Context, _ SQLExecutor, id int, winnerID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[id]
	if !ok {
		return ErrMatchNotFound
	}
	if m.IsCompleted {
		return fmt.Errorf("%w: match %d", ErrMatchAlreadyDecided, id)
	}
	if _, ok := r.s.players[winnerID]; !ok {
		return ErrMatchWinnerPlayerInvalid
	}
	m.WinnerID = &winnerID
	m.IsCompleted = true
	r.s.matches[id] = m
	return nil
}
