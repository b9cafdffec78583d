package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mcoot/chiptourney/internal/model"
	"github.com/mcoot/chiptourney/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	tournaments map[model.TournamentID]*tournamentData
}

// tournamentData holds every row belonging to one tournament
type tournamentData struct {
	tournament *model.Tournament
	players    map[model.PlayerID]*model.Player
	matches    map[model.MatchID]*model.Match
	history    model.PairingHistory
	awards     []*model.ChipAward
}

func newTournamentData() *tournamentData {
	return &tournamentData{
		players: make(map[model.PlayerID]*model.Player),
		matches: make(map[model.MatchID]*model.Match),
		history: make(model.PairingHistory),
	}
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		tournaments: make(map[model.TournamentID]*tournamentData),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// get returns the data for a tournament that exists. Caller must hold mu.
func (s *Storage) get(tid model.TournamentID) (*tournamentData, error) {
	td, ok := s.tournaments[tid]
	if !ok || td.tournament == nil {
		return nil, model.ErrTournamentNotFound
	}
	return td, nil
}

// Tournament operations

func (s *Storage) GetTournament(ctx context.Context, id model.TournamentID) (*model.Tournament, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	td, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return td.tournament.Clone(), nil
}

func (s *Storage) ListTournaments(ctx context.Context) ([]*model.Tournament, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*model.Tournament, 0, len(s.tournaments))
	for _, td := range s.tournaments {
		if td.tournament != nil {
			result = append(result, td.tournament.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Player operations

func (s *Storage) GetPlayer(ctx context.Context, tid model.TournamentID, id model.PlayerID) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	td, err := s.get(tid)
	if err != nil {
		return nil, err
	}
	player, ok := td.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return player.Clone(), nil
}

func (s *Storage) ListPlayers(ctx context.Context, tid model.TournamentID) ([]*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	td, err := s.get(tid)
	if err != nil {
		return nil, err
	}
	return td.listPlayers(), nil
}

func (td *tournamentData) listPlayers() []*model.Player {
	result := make([]*model.Player, 0, len(td.players))
	for _, p := range td.players {
		result = append(result, p.Clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Match operations

func (s *Storage) GetMatch(ctx context.Context, tid model.TournamentID, id model.MatchID) (*model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	td, err := s.get(tid)
	if err != nil {
		return nil, err
	}
	match, ok := td.matches[id]
	if !ok {
		return nil, model.ErrMatchNotFound
	}
	return match.Clone(), nil
}

func (s *Storage) ListMatches(ctx context.Context, tid model.TournamentID) ([]*model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	td, err := s.get(tid)
	if err != nil {
		return nil, err
	}
	return td.listMatches(), nil
}

func (td *tournamentData) listMatches() []*model.Match {
	result := make([]*model.Match, 0, len(td.matches))
	for _, m := range td.matches {
		result = append(result, m.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// Ledger and history operations

func (s *Storage) GetPairingHistory(ctx context.Context, tid model.TournamentID) (model.PairingHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	td, err := s.get(tid)
	if err != nil {
		return nil, err
	}
	return td.copyHistory(), nil
}

func (td *tournamentData) copyHistory() model.PairingHistory {
	history := make(model.PairingHistory, len(td.history))
	for k := range td.history {
		history[k] = struct{}{}
	}
	return history
}

func (s *Storage) ListAwards(ctx context.Context, tid model.TournamentID, playerID model.PlayerID) ([]*model.ChipAward, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	td, err := s.get(tid)
	if err != nil {
		return nil, err
	}
	result := make([]*model.ChipAward, 0)
	for _, a := range td.awards {
		if playerID == "" || a.PlayerID == playerID {
			award := *a
			result = append(result, &award)
		}
	}
	return result, nil
}

func (s *Storage) Snapshot(ctx context.Context, tid model.TournamentID) (*storage.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	td, err := s.get(tid)
	if err != nil {
		return nil, err
	}
	return &storage.Snapshot{
		Tournament: td.tournament.Clone(),
		Players:    td.listPlayers(),
		Matches:    td.listMatches(),
		History:    td.copyHistory(),
	}, nil
}

// Commit checks every version under the write lock, then applies all writes
func (s *Storage) Commit(ctx context.Context, tid model.TournamentID, c storage.Commit) error {
	if err := c.Validate(tid); err != nil {
		return err
	}
	if c.IsEmpty() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	td, ok := s.tournaments[tid]
	if !ok {
		td = newTournamentData()
	}

	// Only a commit creating the tournament may target a missing one
	if td.tournament == nil && (c.Tournament == nil || c.Tournament.Version != 0) {
		return model.ErrTournamentNotFound
	}

	if c.Tournament != nil && tournamentVersion(td.tournament) != c.Tournament.Version {
		return model.ErrConcurrencyConflict
	}
	for _, p := range c.Players {
		if playerVersion(td.players[p.ID]) != p.Version {
			return model.ErrConcurrencyConflict
		}
	}
	for _, m := range c.Matches {
		if matchVersion(td.matches[m.ID]) != m.Version {
			return model.ErrConcurrencyConflict
		}
	}

	if c.Tournament != nil {
		c.Tournament.Version++
		td.tournament = c.Tournament.Clone()
	}
	for _, p := range c.Players {
		p.Version++
		td.players[p.ID] = p.Clone()
	}
	for _, m := range c.Matches {
		m.Version++
		td.matches[m.ID] = m.Clone()
	}
	for _, a := range c.Awards {
		award := *a
		td.awards = append(td.awards, &award)
	}
	for _, k := range c.Pairs {
		td.history[k] = struct{}{}
	}
	s.tournaments[tid] = td
	return nil
}

func tournamentVersion(t *model.Tournament) int64 {
	if t == nil {
		return 0
	}
	return t.Version
}

func playerVersion(p *model.Player) int64 {
	if p == nil {
		return 0
	}
	return p.Version
}

func matchVersion(m *model.Match) int64 {
	if m == nil {
		return 0
	}
	return m.Version
}
