package game

import (
	"fmt"
	"time"

	"github.com/awale-live/awale/internal/player"
)

// BeginReconnectWait opens the grace window after discon dropped: the
// opponent is told how long the game will be held, and a watchdog
// goroutine forfeits the game if the window closes first. Returns false
// without side effects when the game is already over, a window is
// already open, or the player already has a live connection again, so a
// repeated disconnect never spawns a second watchdog and a reconnection
// racing the teardown never gets a watchdog at all. The liveness check
// happens under the game lock, the same lock Resume takes.
func (g *Game) BeginReconnectWait(discon *player.Player, grace time.Duration) bool {
	g.mu.Lock()
	if g.status != InProgress || !g.HasPlayer(discon) || discon.Connected() {
		g.mu.Unlock()
		return false
	}
	g.status = WaitingReconnect
	ch := make(chan struct{})
	g.resume = ch

	opponent := g.Opponent(discon)
	msgs := []message{{opponent, fmt.Sprintf(
		"Your opponent %s disconnected. Waiting %d seconds for them to reconnect...",
		discon.Pseudo, int(grace/time.Second))}}
	g.mu.Unlock()

	g.log.WithField("player", discon.Pseudo).Info("reconnect window opened")
	go g.watch(discon, ch, grace)
	g.deliver(msgs)
	return true
}

// watch is the per-(player, game) watchdog. It is cancelled by the
// resume channel; on timeout it re-checks the window under the game
// lock before forfeiting, so a reconnection racing the timer can never
// produce a second credit.
func (g *Game) watch(discon *player.Player, ch chan struct{}, grace time.Duration) {
	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-ch:
		return
	case <-timer.C:
	}

	g.mu.Lock()
	if g.status != WaitingReconnect || g.resume != ch {
		g.mu.Unlock()
		return
	}
	if discon.Connected() {
		// The player came back but nothing closed the window. Revive
		// the game instead of forfeiting a live player.
		g.mu.Unlock()
		g.Resume(discon)
		return
	}
	g.resume = nil

	role, _ := g.roleOf(discon)
	winner := g.players[role.Opponent()]
	msgs := []message{{winner, fmt.Sprintf(
		"%s did not reconnect. You win game %d!", discon.Pseudo, g.ID)}}
	msgs = append(msgs, g.finishLocked(finishForfeit, role.Opponent())...)
	g.mu.Unlock()

	g.log.WithField("player", discon.Pseudo).Info("reconnect window expired, game forfeited")
	g.deliver(msgs)
}

// Resume closes the grace window after discon came back: the board is
// re-delivered to both sides and the unchanged turn re-announced.
// Returns false when no window was open (nothing to resume).
func (g *Game) Resume(discon *player.Player) bool {
	g.mu.Lock()
	if g.status != WaitingReconnect || !g.HasPlayer(discon) {
		g.mu.Unlock()
		return false
	}
	g.status = InProgress
	if g.resume != nil {
		close(g.resume)
		g.resume = nil
	}

	opponent := g.Opponent(discon)
	msgs := []message{{opponent, fmt.Sprintf(
		"%s reconnected. Game %d resumes.", discon.Pseudo, g.ID)}}
	msgs = append(msgs, g.boardMessagesLocked()...)
	next := g.players[g.turn]
	msgs = append(msgs, message{next, fmt.Sprintf("[game %d] It is your turn.", g.ID)})
	g.mu.Unlock()

	g.log.WithField("player", discon.Pseudo).Info("reconnect window closed, game resumed")
	g.deliver(msgs)
	return true
}
