// Package player holds the per-connection identity of a logged-in user:
// stats, game membership, the outstanding-challenge relation and the
// live connection handle. A Player outlives its connections; the same
// record is reused across reconnections so identity and stats persist.
package player

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/awale-live/awale/internal/transport"
)

var (
	// ErrTooManyGames is returned when a player is at their simultaneous
	// game limit.
	ErrTooManyGames = errors.New("too many simultaneous games")
)

// Player is one registered user. All mutable state is guarded by mu;
// network writes never happen while mu is held.
type Player struct {
	Pseudo string

	mu        sync.Mutex
	conn      transport.Conn
	session   uuid.UUID
	connected bool

	wins   int
	losses int
	draws  int

	games    []int64
	maxGames int

	// outstanding challenge, at most one of the two set
	sentTo       string
	receivedFrom string
}

// New creates a connected player bound to the given connection. The
// session id identifies this particular connection so that a stale
// disconnect cannot tear down a newer one.
func New(pseudo string, conn transport.Conn, session uuid.UUID, maxGames int) *Player {
	return &Player{
		Pseudo:    pseudo,
		conn:      conn,
		session:   session,
		connected: true,
		maxGames:  maxGames,
	}
}

// Send writes one line to the player's current connection. The handle is
// read under the lock but the write happens outside it, so a slow peer
// never stalls state transitions. Disconnected players drop the line.
func (p *Player) Send(line string) error {
	p.mu.Lock()
	conn := p.conn
	ok := p.connected
	p.mu.Unlock()
	if !ok || conn == nil {
		return nil
	}
	return conn.WriteLine(line)
}

// Connected reports whether the player currently has a live connection.
func (p *Player) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// Session returns the id of the player's current connection.
func (p *Player) Session() uuid.UUID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

// MarkDisconnected transitions the player to disconnected, but only if
// the given session is still the current one. Returns false when the
// disconnect was already processed or belongs to a replaced connection,
// making the disconnect sequence idempotent.
func (p *Player) MarkDisconnected(session uuid.UUID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected || p.session != session {
		return false
	}
	p.connected = false
	p.conn = nil
	return true
}

// Reconnect installs a new connection on a disconnected player. Returns
// false if the player is already connected (the pseudo is in use).
func (p *Player) Reconnect(conn transport.Conn, session uuid.UUID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.connected {
		return false
	}
	p.conn = conn
	p.session = session
	p.connected = true
	return true
}

// Stats returns the player's win/loss/draw counters.
func (p *Player) Stats() (wins, losses, draws int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.wins, p.losses, p.draws
}

// RecordWin increments the win counter.
func (p *Player) RecordWin() {
	p.mu.Lock()
	p.wins++
	p.mu.Unlock()
}

// RecordLoss increments the loss counter.
func (p *Player) RecordLoss() {
	p.mu.Lock()
	p.losses++
	p.mu.Unlock()
}

// RecordDraw increments the draw counter.
func (p *Player) RecordDraw() {
	p.mu.Lock()
	p.draws++
	p.mu.Unlock()
}

// AddGame registers a game id on the player, enforcing the simultaneous
// game bound.
func (p *Player) AddGame(id int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.maxGames > 0 && len(p.games) >= p.maxGames {
		return ErrTooManyGames
	}
	p.games = append(p.games, id)
	return nil
}

// RemoveGame drops a game id from the player's list. Unknown ids are
// ignored.
func (p *Player) RemoveGame(id int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, g := range p.games {
		if g == id {
			p.games = append(p.games[:i], p.games[i+1:]...)
			return
		}
	}
}

// Games returns a snapshot of the player's game ids.
func (p *Player) Games() []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]int64, len(p.games))
	copy(out, p.games)
	return out
}

// InGame reports whether the player participates in the game.
func (p *Player) InGame(id int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, g := range p.games {
		if g == id {
			return true
		}
	}
	return false
}

// GameCapacityLeft reports whether the player can join another game.
func (p *Player) GameCapacityLeft() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxGames <= 0 || len(p.games) < p.maxGames
}

// LockPair acquires both players' locks in pseudo order, the canonical
// order for every call path that must hold two player locks at once.
// The returned function releases both.
func LockPair(a, b *Player) func() {
	first, second := a, b
	if b.Pseudo < a.Pseudo {
		first, second = b, a
	}
	first.mu.Lock()
	second.mu.Lock()
	return func() {
		second.mu.Unlock()
		first.mu.Unlock()
	}
}

// Lock acquires the player's lock directly, for callers that pair it
// with the Locked accessors below.
func (p *Player) Lock()   { p.mu.Lock() }
func (p *Player) Unlock() { p.mu.Unlock() }

// ConnectedLocked reports the live-connection flag. Caller holds the
// lock.
func (p *Player) ConnectedLocked() bool { return p.connected }

// HasChallengeLocked reports whether any challenge relation is set.
// Caller holds the lock.
func (p *Player) HasChallengeLocked() bool {
	return p.sentTo != "" || p.receivedFrom != ""
}

// SentToLocked returns the pseudo this player has challenged, if any.
func (p *Player) SentToLocked() string { return p.sentTo }

// ReceivedFromLocked returns the pseudo of the pending challenger, if any.
func (p *Player) ReceivedFromLocked() string { return p.receivedFrom }

// SetSentLocked marks a challenge sent to the target pseudo.
func (p *Player) SetSentLocked(target string) { p.sentTo = target }

// SetReceivedLocked marks a challenge received from the given pseudo.
func (p *Player) SetReceivedLocked(from string) { p.receivedFrom = from }

// ClearChallengeLocked clears both sides of the relation on this player.
func (p *Player) ClearChallengeLocked() {
	p.sentTo = ""
	p.receivedFrom = ""
}

// ChallengeState returns both relation fields under the player's lock.
func (p *Player) ChallengeState() (sentTo, receivedFrom string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sentTo, p.receivedFrom
}
