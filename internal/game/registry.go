package game

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/awale-live/awale/internal/board"
	"github.com/awale-live/awale/internal/player"
)

// ErrUnknownGame is returned when the game id is not registered.
var ErrUnknownGame = errors.New("no such game")

// Registry is the process-wide directory of active games, keyed by a
// monotonically allocated id. Its lock is held only for map operations,
// never across game logic or network sends.
type Registry struct {
	mu     sync.Mutex
	games  map[int64]*Game
	nextID int64

	log *logrus.Logger

	// OnResult, when set, is installed on every created game and
	// invoked once per finished game.
	OnResult func(Result)
}

// NewRegistry creates an empty game registry.
func NewRegistry(log *logrus.Logger) *Registry {
	return &Registry{
		games:  make(map[int64]*Game),
		nextID: 1,
		log:    log,
	}
}

// Create builds a new in-progress game, challenger moving first, and
// registers it on both players and in the directory. Either player
// being at their game limit fails the whole creation.
func (r *Registry) Create(challenger, challengee *player.Player) (*Game, error) {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.mu.Unlock()

	g := &Game{
		ID:       id,
		players:  [2]*player.Player{challenger, challengee},
		board:    board.New(),
		turn:     board.First,
		status:   InProgress,
		reg:      r,
		log:      r.log.WithField("game", id),
		OnResult: r.OnResult,
	}

	if err := challenger.AddGame(id); err != nil {
		return nil, err
	}
	if err := challengee.AddGame(id); err != nil {
		challenger.RemoveGame(id)
		return nil, err
	}

	r.mu.Lock()
	r.games[id] = g
	r.mu.Unlock()
	return g, nil
}

// Lookup returns the game for the id.
func (r *Registry) Lookup(id int64) (*Game, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[id]
	return g, ok
}

// GameFor returns the game only if p participates in it, so a lookup
// and the membership check cannot straddle a removal.
func (r *Registry) GameFor(p *player.Player, id int64) (*Game, error) {
	r.mu.Lock()
	g, ok := r.games[id]
	r.mu.Unlock()
	if !ok || !g.HasPlayer(p) {
		return nil, ErrUnknownGame
	}
	return g, nil
}

// GamesFor returns the registered games the player participates in.
func (r *Registry) GamesFor(p *player.Player) []*Game {
	ids := p.Games()
	out := make([]*Game, 0, len(ids))
	r.mu.Lock()
	for _, id := range ids {
		if g, ok := r.games[id]; ok {
			out = append(out, g)
		}
	}
	r.mu.Unlock()
	return out
}

// Count returns the number of active games.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.games)
}

func (r *Registry) remove(id int64) {
	r.mu.Lock()
	delete(r.games, id)
	r.mu.Unlock()
}
