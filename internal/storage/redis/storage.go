package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/chiptourney/internal/model"
	"github.com/mcoot/chiptourney/internal/storage"
)

// maxSnapshotAttempts bounds retries when players or matches are created mid-snapshot
const maxSnapshotAttempts = 5

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
	keys   keys
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultConfig().KeyPrefix
	}
	return &Storage{
		client: client,
		cfg:    cfg,
		keys:   keys{prefix: cfg.KeyPrefix},
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ratings returns a rating store sharing this storage's connection
func (s *Storage) Ratings() *Ratings {
	return &Ratings{client: s.client, keys: s.keys}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Tournament operations

func (s *Storage) GetTournament(ctx context.Context, id model.TournamentID) (*model.Tournament, error) {
	return getJSON[model.Tournament](ctx, s.client, s.keys.tournament(id), model.ErrTournamentNotFound)
}

func (s *Storage) ListTournaments(ctx context.Context) ([]*model.Tournament, error) {
	ids, err := s.client.SMembers(ctx, s.keys.tournamentIndex()).Result()
	if err != nil {
		return nil, err
	}
	tournamentKeys := make([]string, len(ids))
	for i, id := range ids {
		tournamentKeys[i] = s.keys.tournament(model.TournamentID(id))
	}
	tournaments, err := mgetJSON[model.Tournament](ctx, s.client, tournamentKeys)
	if err != nil {
		return nil, err
	}
	sort.Slice(tournaments, func(i, j int) bool { return tournaments[i].ID < tournaments[j].ID })
	return tournaments, nil
}

// Player operations

func (s *Storage) GetPlayer(ctx context.Context, tid model.TournamentID, id model.PlayerID) (*model.Player, error) {
	if err := s.requireTournament(ctx, tid); err != nil {
		return nil, err
	}
	return getJSON[model.Player](ctx, s.client, s.keys.player(tid, id), model.ErrPlayerNotFound)
}

func (s *Storage) ListPlayers(ctx context.Context, tid model.TournamentID) ([]*model.Player, error) {
	if err := s.requireTournament(ctx, tid); err != nil {
		return nil, err
	}
	playerKeys, err := s.client.SMembers(ctx, s.keys.playerIndex(tid)).Result()
	if err != nil {
		return nil, err
	}

	// A single MGET reads every total at the same instant
	players, err := mgetJSON[model.Player](ctx, s.client, playerKeys)
	if err != nil {
		return nil, err
	}
	sortPlayers(players)
	return players, nil
}

// Match operations

func (s *Storage) GetMatch(ctx context.Context, tid model.TournamentID, id model.MatchID) (*model.Match, error) {
	if err := s.requireTournament(ctx, tid); err != nil {
		return nil, err
	}
	return getJSON[model.Match](ctx, s.client, s.keys.match(tid, id), model.ErrMatchNotFound)
}

func (s *Storage) ListMatches(ctx context.Context, tid model.TournamentID) ([]*model.Match, error) {
	if err := s.requireTournament(ctx, tid); err != nil {
		return nil, err
	}
	matchKeys, err := s.client.SMembers(ctx, s.keys.matchIndex(tid)).Result()
	if err != nil {
		return nil, err
	}
	matches, err := mgetJSON[model.Match](ctx, s.client, matchKeys)
	if err != nil {
		return nil, err
	}
	sortMatches(matches)
	return matches, nil
}

// Ledger and history operations

func (s *Storage) GetPairingHistory(ctx context.Context, tid model.TournamentID) (model.PairingHistory, error) {
	if err := s.requireTournament(ctx, tid); err != nil {
		return nil, err
	}
	members, err := s.client.SMembers(ctx, s.keys.history(tid)).Result()
	if err != nil {
		return nil, err
	}
	return decodeHistory(members)
}

func (s *Storage) ListAwards(ctx context.Context, tid model.TournamentID, playerID model.PlayerID) ([]*model.ChipAward, error) {
	if err := s.requireTournament(ctx, tid); err != nil {
		return nil, err
	}
	entries, err := s.client.LRange(ctx, s.keys.awards(tid), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	awards := make([]*model.ChipAward, 0, len(entries))
	for _, entry := range entries {
		var award model.ChipAward
		if err := json.Unmarshal([]byte(entry), &award); err != nil {
			return nil, err
		}
		if playerID == "" || award.PlayerID == playerID {
			awards = append(awards, &award)
		}
	}
	return awards, nil
}

// Snapshot reads everything inside one MULTI/EXEC. The player and match
// indexes are watched so a row created between listing the keys and reading
// them forces a retry.
func (s *Storage) Snapshot(ctx context.Context, tid model.TournamentID) (*storage.Snapshot, error) {
	for attempt := 0; attempt < maxSnapshotAttempts; attempt++ {
		snap, err := s.trySnapshot(ctx, tid)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return snap, err
	}
	return nil, model.ErrConcurrencyConflict
}

func (s *Storage) trySnapshot(ctx context.Context, tid model.TournamentID) (*storage.Snapshot, error) {
	var snap *storage.Snapshot

	txf := func(tx *redis.Tx) error {
		playerKeys, err := tx.SMembers(ctx, s.keys.playerIndex(tid)).Result()
		if err != nil {
			return err
		}
		matchKeys, err := tx.SMembers(ctx, s.keys.matchIndex(tid)).Result()
		if err != nil {
			return err
		}

		var (
			tournamentCmd *redis.StringCmd
			historyCmd    *redis.StringSliceCmd
			playersCmd    *redis.SliceCmd
			matchesCmd    *redis.SliceCmd
		)
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			tournamentCmd = pipe.Get(ctx, s.keys.tournament(tid))
			historyCmd = pipe.SMembers(ctx, s.keys.history(tid))
			if len(playerKeys) > 0 {
				playersCmd = pipe.MGet(ctx, playerKeys...)
			}
			if len(matchKeys) > 0 {
				matchesCmd = pipe.MGet(ctx, matchKeys...)
			}
			return nil
		})
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return model.ErrTournamentNotFound
			}
			return err
		}

		var tournament model.Tournament
		if err := json.Unmarshal([]byte(tournamentCmd.Val()), &tournament); err != nil {
			return err
		}
		history, err := decodeHistory(historyCmd.Val())
		if err != nil {
			return err
		}
		players, err := decodeValues[model.Player](playersCmd)
		if err != nil {
			return err
		}
		matches, err := decodeValues[model.Match](matchesCmd)
		if err != nil {
			return err
		}
		sortPlayers(players)
		sortMatches(matches)

		snap = &storage.Snapshot{
			Tournament: &tournament,
			Players:    players,
			Matches:    matches,
			History:    history,
		}
		return nil
	}

	err := s.client.Watch(ctx, txf, s.keys.playerIndex(tid), s.keys.matchIndex(tid))
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Commit watches every versioned row, checks the stored versions, then
// writes all rows, awards and pairs in one MULTI/EXEC. A concurrent write to
// any watched row aborts the transaction.
func (s *Storage) Commit(ctx context.Context, tid model.TournamentID, c storage.Commit) error {
	if err := c.Validate(tid); err != nil {
		return err
	}
	if c.IsEmpty() {
		return nil
	}

	rows := s.versionedRows(tid, c)
	watched := make([]string, len(rows))
	for i, row := range rows {
		watched[i] = row.key
	}

	creatingTournament := c.Tournament != nil && c.Tournament.Version == 0

	txf := func(tx *redis.Tx) error {
		if !creatingTournament {
			if err := s.requireTournamentTx(ctx, tx, tid); err != nil {
				return err
			}
		}

		if len(watched) > 0 {
			current, err := tx.MGet(ctx, watched...).Result()
			if err != nil {
				return err
			}
			for i, val := range current {
				version, err := storedVersion(val)
				if err != nil {
					return err
				}
				if version != rows[i].expected {
					return model.ErrConcurrencyConflict
				}
			}
		}

		payloads := make([][]byte, len(rows))
		for i, row := range rows {
			data, err := row.marshal()
			if err != nil {
				return err
			}
			payloads[i] = data
		}
		awards := make([]any, len(c.Awards))
		for i, award := range c.Awards {
			data, err := json.Marshal(award)
			if err != nil {
				return err
			}
			awards[i] = data
		}
		pairs := make([]any, len(c.Pairs))
		for i, pair := range c.Pairs {
			data, err := json.Marshal(pair)
			if err != nil {
				return err
			}
			pairs[i] = data
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for i, row := range rows {
				pipe.Set(ctx, row.key, payloads[i], 0)
				// Index only new rows so existing index keys stay untouched
				if row.expected == 0 {
					pipe.SAdd(ctx, row.indexKey, row.indexMember)
				}
			}
			if len(awards) > 0 {
				pipe.RPush(ctx, s.keys.awards(tid), awards...)
			}
			if len(pairs) > 0 {
				pipe.SAdd(ctx, s.keys.history(tid), pairs...)
			}
			return nil
		})
		return err
	}

	err := s.client.Watch(ctx, txf, watched...)
	if errors.Is(err, redis.TxFailedErr) {
		return model.ErrConcurrencyConflict
	}
	if err != nil {
		return err
	}

	for _, row := range rows {
		row.bump()
	}
	return nil
}

// versionedRow is one compare-and-swap write within a commit
type versionedRow struct {
	key         string
	indexKey    string
	indexMember string
	expected    int64
	marshal     func() ([]byte, error)
	bump        func()
}

func (s *Storage) versionedRows(tid model.TournamentID, c storage.Commit) []versionedRow {
	rows := make([]versionedRow, 0, 1+len(c.Players)+len(c.Matches))
	if t := c.Tournament; t != nil {
		rows = append(rows, versionedRow{
			key:         s.keys.tournament(tid),
			indexKey:    s.keys.tournamentIndex(),
			indexMember: string(tid),
			expected:    t.Version,
			marshal: func() ([]byte, error) {
				next := t.Clone()
				next.Version++
				return json.Marshal(next)
			},
			bump: func() { t.Version++ },
		})
	}
	for _, p := range c.Players {
		key := s.keys.player(tid, p.ID)
		rows = append(rows, versionedRow{
			key:         key,
			indexKey:    s.keys.playerIndex(tid),
			indexMember: key,
			expected:    p.Version,
			marshal: func() ([]byte, error) {
				next := p.Clone()
				next.Version++
				return json.Marshal(next)
			},
			bump: func() { p.Version++ },
		})
	}
	for _, m := range c.Matches {
		key := s.keys.match(tid, m.ID)
		rows = append(rows, versionedRow{
			key:         key,
			indexKey:    s.keys.matchIndex(tid),
			indexMember: key,
			expected:    m.Version,
			marshal: func() ([]byte, error) {
				next := m.Clone()
				next.Version++
				return json.Marshal(next)
			},
			bump: func() { m.Version++ },
		})
	}
	return rows
}

func (s *Storage) requireTournament(ctx context.Context, tid model.TournamentID) error {
	exists, err := s.client.Exists(ctx, s.keys.tournament(tid)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return model.ErrTournamentNotFound
	}
	return nil
}

func (s *Storage) requireTournamentTx(ctx context.Context, tx *redis.Tx, tid model.TournamentID) error {
	exists, err := tx.Exists(ctx, s.keys.tournament(tid)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return model.ErrTournamentNotFound
	}
	return nil
}

// storedVersion extracts the Version field from a raw MGET value
func storedVersion(val any) (int64, error) {
	if val == nil {
		return 0, nil
	}
	str, ok := val.(string)
	if !ok {
		return 0, errors.New("unexpected value type from redis")
	}
	var row struct{ Version int64 }
	if err := json.Unmarshal([]byte(str), &row); err != nil {
		return 0, err
	}
	return row.Version, nil
}

func getJSON[T any](ctx context.Context, client *redis.Client, key string, notFound error) (*T, error) {
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, notFound
		}
		return nil, err
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, err
	}
	return &value, nil
}

func mgetJSON[T any](ctx context.Context, client *redis.Client, keys []string) ([]*T, error) {
	if len(keys) == 0 {
		return []*T{}, nil
	}
	return decodeValues[T](client.MGet(ctx, keys...))
}

// decodeValues unmarshals MGET results, skipping missing keys. A nil command
// decodes to an empty slice.
func decodeValues[T any](cmd *redis.SliceCmd) ([]*T, error) {
	if cmd == nil {
		return []*T{}, nil
	}
	values, err := cmd.Result()
	if err != nil {
		return nil, err
	}
	result := make([]*T, 0, len(values))
	for _, val := range values {
		if val == nil {
			continue
		}
		str, ok := val.(string)
		if !ok {
			return nil, errors.New("unexpected value type from redis")
		}
		var value T
		if err := json.Unmarshal([]byte(str), &value); err != nil {
			return nil, err
		}
		result = append(result, &value)
	}
	return result, nil
}

func decodeHistory(members []string) (model.PairingHistory, error) {
	history := make(model.PairingHistory, len(members))
	for _, member := range members {
		var key model.PairKey
		if err := json.Unmarshal([]byte(member), &key); err != nil {
			return nil, err
		}
		history[key] = struct{}{}
	}
	return history, nil
}

func sortPlayers(players []*model.Player) {
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })
}

func sortMatches(matches []*model.Match) {
	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.Before(matches[j].CreatedAt)
		}
		return matches[i].ID < matches[j].ID
	})
}
