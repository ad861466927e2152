package player

import (
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/awale-live/awale/internal/transport"
)

var (
	// ErrPseudoConnected is returned when the pseudo is already in use by
	// a live connection.
	ErrPseudoConnected = errors.New("pseudo already connected")
	// ErrRegistryFull is returned when the registry is at capacity.
	ErrRegistryFull = errors.New("player registry is full")
)

// Registry is the process-wide directory of players, keyed by pseudo.
// Players stay registered after disconnecting so their identity, stats
// and in-flight games survive until they come back.
type Registry struct {
	mu       sync.Mutex
	players  map[string]*Player
	capacity int
	maxGames int
}

// NewRegistry creates an empty registry. capacity bounds the number of
// registered players, maxGames the simultaneous games per player; zero
// disables either bound.
func NewRegistry(capacity, maxGames int) *Registry {
	return &Registry{
		players:  make(map[string]*Player),
		capacity: capacity,
		maxGames: maxGames,
	}
}

// Admit binds an authenticated connection to a Player. An unknown pseudo
// gets a fresh record; a registered-but-disconnected one is reconnected,
// reusing its identity. A pseudo with a live connection is rejected.
// The reported bool is true for a reconnection.
func (r *Registry) Admit(pseudo string, conn transport.Conn, session uuid.UUID) (*Player, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.players[pseudo]; ok {
		if !existing.Reconnect(conn, session) {
			return nil, false, ErrPseudoConnected
		}
		return existing, true, nil
	}

	if r.capacity > 0 && len(r.players) >= r.capacity {
		return nil, false, ErrRegistryFull
	}
	p := New(pseudo, conn, session, r.maxGames)
	r.players[pseudo] = p
	return p, false, nil
}

// Lookup returns the registered player for the pseudo, connected or not.
func (r *Registry) Lookup(pseudo string) (*Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[pseudo]
	return p, ok
}

// LookupConnected returns the player only if it currently has a live
// connection.
func (r *Registry) LookupConnected(pseudo string) (*Player, bool) {
	r.mu.Lock()
	p, ok := r.players[pseudo]
	r.mu.Unlock()
	if !ok || !p.Connected() {
		return nil, false
	}
	return p, true
}

// ConnectedPlayers returns a snapshot of all live players, sorted by
// pseudo for stable listings.
func (r *Registry) ConnectedPlayers() []*Player {
	r.mu.Lock()
	all := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		all = append(all, p)
	}
	r.mu.Unlock()

	out := all[:0]
	for _, p := range all {
		if p.Connected() {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pseudo < out[j].Pseudo })
	return out
}

// Count returns the number of registered players.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}
