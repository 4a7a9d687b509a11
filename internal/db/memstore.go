package db

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/MTRieg/mrieg-com/internal/engine"
	"github.com/MTRieg/mrieg-com/internal/physics"
)

// MemStore is an in-memory engine.Store for tests and single-process runs
// without Postgres. It reproduces the transactional semantics of the real
// store: resolves mutate a deep copy of the game and swap it in only on
// success, and per-game locks are acquired with a bounded wait.
type MemStore struct {
	mu          sync.Mutex
	games       map[string]*memGame
	lockTimeout time.Duration
}

type memMember struct {
	playerID      string
	name          string
	color         string
	token         string
	submittedTurn *int
	joinedAt      time.Time
}

type memGame struct {
	gameID    string
	creator   string
	startTime time.Time
	createdAt time.Time
	settings  engine.Settings
	state     engine.State
	hasNext   bool
	members   []memMember
	pieces    []physics.Piece
	piecesOld []physics.Piece

	// lock is a 1-buffered channel: holding the token is holding the lock.
	lock chan struct{}
}

func NewMemStore(lockTimeout time.Duration) *MemStore {
	if lockTimeout <= 0 {
		lockTimeout = 15 * time.Second
	}
	return &MemStore{games: make(map[string]*memGame), lockTimeout: lockTimeout}
}

func (m *MemStore) game(gameID string) (*memGame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[gameID]
	if !ok {
		return nil, engine.ErrUnknownGame
	}
	return g, nil
}

func (m *MemStore) acquire(ctx context.Context, g *memGame) (release func(), err error) {
	timer := time.NewTimer(m.lockTimeout)
	defer timer.Stop()
	select {
	case g.lock <- struct{}{}:
		return func() { <-g.lock }, nil
	case <-timer.C:
		return nil, engine.ErrLockTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// memResolveTx operates on a scratch copy; the copy replaces the live game
// only if the resolve callback returns nil.
type memResolveTx struct {
	scratch *memGame
}

func (m *MemStore) InResolveTx(ctx context.Context, gameID string, fn func(engine.ResolveTx) error) error {
	g, err := m.game(gameID)
	if err != nil {
		return err
	}
	release, err := m.acquire(ctx, g)
	if err != nil {
		return err
	}
	defer release()

	scratch := g.clone()
	if err := fn(&memResolveTx{scratch: scratch}); err != nil {
		return err
	}
	// Commit: copy the scratch back into the live struct. Waiters hold a
	// pointer to g, so the struct itself must carry the new state; m.mu
	// guards readers that skip the per-game lock, like DueGames.
	m.mu.Lock()
	g.state = scratch.state
	g.hasNext = scratch.hasNext
	g.members = scratch.members
	g.pieces = scratch.pieces
	g.piecesOld = scratch.piecesOld
	m.mu.Unlock()
	return nil
}

func (g *memGame) clone() *memGame {
	c := *g
	c.members = make([]memMember, len(g.members))
	for i, mem := range g.members {
		c.members[i] = mem
		if mem.submittedTurn != nil {
			v := *mem.submittedTurn
			c.members[i].submittedTurn = &v
		}
	}
	c.pieces = clonePieces(g.pieces)
	c.piecesOld = clonePieces(g.piecesOld)
	return &c
}

func clonePieces(src []physics.Piece) []physics.Piece {
	dst := make([]physics.Piece, len(src))
	for i, p := range src {
		dst[i] = p
		dst[i].X = cloneFloat(p.X)
		dst[i].Y = cloneFloat(p.Y)
		dst[i].VX = cloneFloat(p.VX)
		dst[i].VY = cloneFloat(p.VY)
	}
	return dst
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func (t *memResolveTx) Settings() (engine.Settings, error) { return t.scratch.settings, nil }

func (t *memResolveTx) CurrentPieces() ([]physics.Piece, error) {
	return clonePieces(t.scratch.pieces), nil
}

func (t *memResolveTx) AdvanceTurn(expected int) (bool, error) {
	if t.scratch.state.TurnNumber != expected {
		return false, nil
	}
	t.scratch.state.TurnNumber = expected + 1
	return true, nil
}

func (t *memResolveTx) SnapshotPieces() error {
	t.scratch.piecesOld = clonePieces(t.scratch.pieces)
	return nil
}

func (t *memResolveTx) ReplacePieces(pieces []physics.Piece) error {
	next := clonePieces(pieces)
	sort.Slice(next, func(i, j int) bool { return next[i].ID < next[j].ID })
	t.scratch.pieces = next
	return nil
}

func (t *memResolveTx) ResetSubmissions() error {
	for i := range t.scratch.members {
		t.scratch.members[i].submittedTurn = nil
	}
	return nil
}

func (t *memResolveTx) SetTurnTimes(last, next time.Time) error {
	t.scratch.state.LastTurnTime = last
	t.scratch.state.NextTurnTime = next
	t.scratch.hasNext = true
	return nil
}

func (m *MemStore) RecordSubmission(ctx context.Context, gameID, playerID string, turn int, actions []engine.Action) (bool, error) {
	g, err := m.game(gameID)
	if err != nil {
		return false, err
	}
	release, err := m.acquire(ctx, g)
	if err != nil {
		return false, err
	}
	defer release()

	if g.state.TurnNumber != turn {
		return false, fmt.Errorf("%w: submitted for turn %d, current turn is %d",
			engine.ErrStaleTurn, turn, g.state.TurnNumber)
	}
	if len(g.pieces) == 0 {
		return false, engine.ErrNotStarted
	}
	member := g.member(playerID)
	if member == nil {
		return false, engine.ErrUnknownPlayer
	}

	// Validate every action before touching any piece so a bad one leaves
	// the game untouched, matching transactional rollback.
	targets := make(map[int]int, len(actions))
	for _, a := range actions {
		found := -1
		for i := range g.pieces {
			p := &g.pieces[i]
			if p.ID == a.PieceID && p.Owner == playerID && p.Status == physics.StatusIn {
				found = i
				break
			}
		}
		if found < 0 {
			return false, fmt.Errorf("%w: piece %d is not yours or not in play",
				engine.ErrInvalidMoveInput, a.PieceID)
		}
		targets[a.PieceID] = found
	}
	for _, a := range actions {
		p := &g.pieces[targets[a.PieceID]]
		p.VX = physics.Float(a.VX)
		p.VY = physics.Float(a.VY)
	}

	v := turn
	member.submittedTurn = &v
	for _, mem := range g.members {
		if mem.submittedTurn == nil || *mem.submittedTurn != turn {
			return false, nil
		}
	}
	return true, nil
}

func (g *memGame) member(playerID string) *memMember {
	for i := range g.members {
		if g.members[i].playerID == playerID {
			return &g.members[i]
		}
	}
	return nil
}

func (m *MemStore) View(ctx context.Context, gameID string) (*engine.GameView, error) {
	g, err := m.game(gameID)
	if err != nil {
		return nil, err
	}
	release, err := m.acquire(ctx, g)
	if err != nil {
		return nil, err
	}
	defer release()

	view := &engine.GameView{
		GameID:    g.gameID,
		Creator:   g.creator,
		StartTime: g.startTime,
		Settings:  g.settings,
		State:     g.state,
		Pieces:    clonePieces(g.pieces),
		PiecesOld: clonePieces(g.piecesOld),
	}
	for _, mem := range g.members {
		view.Members = append(view.Members, engine.Member{
			PlayerID:  mem.playerID,
			Name:      mem.name,
			Color:     mem.color,
			Submitted: mem.submittedTurn != nil && *mem.submittedTurn == g.state.TurnNumber,
		})
	}
	return view, nil
}

func (m *MemStore) DueGames(ctx context.Context, now time.Time, limit int) ([]engine.DueGame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []engine.DueGame
	for _, g := range m.games {
		if !g.hasNext || g.state.NextTurnTime.After(now) {
			continue
		}
		due = append(due, engine.DueGame{
			GameID:       g.gameID,
			TurnNumber:   g.state.TurnNumber,
			NextTurnTime: g.state.NextTurnTime,
			Seeded:       len(g.pieces) > 0,
		})
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NextTurnTime.Before(due[j].NextTurnTime) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (m *MemStore) CreateGame(ctx context.Context, gameID, creator string, settings engine.Settings, startTime time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[gameID]; ok {
		return engine.ErrGameExists
	}
	m.games[gameID] = &memGame{
		gameID:    gameID,
		creator:   creator,
		startTime: startTime,
		createdAt: time.Now().UTC(),
		settings:  settings,
		state:     engine.State{NextTurnTime: startTime},
		hasNext:   true,
		lock:      make(chan struct{}, 1),
	}
	return nil
}

func (m *MemStore) DeleteGame(ctx context.Context, gameID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[gameID]; !ok {
		return engine.ErrUnknownGame
	}
	delete(m.games, gameID)
	return nil
}

func (m *MemStore) AddPlayer(ctx context.Context, gameID, playerID, name, color, token string) error {
	g, err := m.game(gameID)
	if err != nil {
		return err
	}
	release, err := m.acquire(ctx, g)
	if err != nil {
		return err
	}
	defer release()

	if len(g.pieces) > 0 {
		return engine.ErrStarted
	}
	if g.member(playerID) != nil {
		return engine.ErrAlreadyJoined
	}
	if g.settings.MaxPlayers > 0 && len(g.members) >= g.settings.MaxPlayers {
		return engine.ErrGameFull
	}
	g.members = append(g.members, memMember{
		playerID: playerID,
		name:     name,
		color:    color,
		token:    token,
		joinedAt: time.Now().UTC(),
	})
	return nil
}

func (m *MemStore) RemovePlayer(ctx context.Context, gameID, playerID string) error {
	g, err := m.game(gameID)
	if err != nil {
		return err
	}
	release, err := m.acquire(ctx, g)
	if err != nil {
		return err
	}
	defer release()

	idx := -1
	for i := range g.members {
		if g.members[i].playerID == playerID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return engine.ErrUnknownPlayer
	}
	g.members = append(g.members[:idx], g.members[idx+1:]...)
	for i := range g.pieces {
		if g.pieces[i].Owner == playerID {
			g.pieces[i].Status = physics.StatusOut
			g.pieces[i].X, g.pieces[i].Y = nil, nil
			g.pieces[i].VX, g.pieces[i].VY = nil, nil
		}
	}
	if len(g.members) == 0 {
		m.mu.Lock()
		delete(m.games, gameID)
		m.mu.Unlock()
		return nil
	}
	if g.creator == playerID {
		g.creator = g.members[0].playerID
	}
	return nil
}

func (m *MemStore) MemberToken(ctx context.Context, gameID, playerID string) (string, error) {
	g, err := m.game(gameID)
	if err != nil {
		return "", err
	}
	release, err := m.acquire(ctx, g)
	if err != nil {
		return "", err
	}
	defer release()
	member := g.member(playerID)
	if member == nil {
		return "", engine.ErrUnknownPlayer
	}
	return member.token, nil
}

func (m *MemStore) SeedGame(ctx context.Context, gameID string, pieces []physics.Piece, colors map[string]string, next time.Time) error {
	g, err := m.game(gameID)
	if err != nil {
		return err
	}
	release, err := m.acquire(ctx, g)
	if err != nil {
		return err
	}
	defer release()

	if len(g.pieces) > 0 {
		return engine.ErrStarted
	}
	g.pieces = clonePieces(pieces)
	sort.Slice(g.pieces, func(i, j int) bool { return g.pieces[i].ID < g.pieces[j].ID })
	for i := range g.members {
		if color, ok := colors[g.members[i].playerID]; ok {
			g.members[i].color = color
		}
	}
	g.state.NextTurnTime = next
	g.hasNext = true
	return nil
}

func (m *MemStore) DeleteStaleGames(ctx context.Context, olderThan time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, g := range m.games {
		if g.createdAt.Before(olderThan) && !g.state.LastTurnTime.IsZero() && g.state.LastTurnTime.Before(olderThan) {
			delete(m.games, id)
			n++
		}
	}
	return n, nil
}

func (m *MemStore) DeleteStalePlayers(ctx context.Context, olderThan time.Time) (int64, error) {
	// Players exist only as memberships in memory; nothing to prune.
	return 0, nil
}
