// Package game owns the state of one Awale match between two players:
// the board, whose turn it is, both scores and the lifecycle of the
// session, including the reconnection grace window. All mutation goes
// through the game's own lock; network delivery always happens after
// the lock is released.
package game

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/awale-live/awale/internal/board"
	"github.com/awale-live/awale/internal/player"
)

// Status is the lifecycle state of a game session.
type Status int

const (
	// InProgress means moves are being played.
	InProgress Status = iota
	// WaitingReconnect means a participant disconnected and the grace
	// window is open.
	WaitingReconnect
	// Over is terminal; the session is removed from the registries the
	// moment it is reached.
	Over
)

var (
	// ErrGameOver is returned for operations on a finished game.
	ErrGameOver = errors.New("game is over")
	// ErrNotYourTurn is returned when the mover is not the player to act.
	ErrNotYourTurn = errors.New("not your turn")
	// ErrInvalidPit is returned when the pit selection is not in 0-5.
	ErrInvalidPit = errors.New("pit must be between 0 and 5")
	// ErrNotInGame is returned when the player is not a participant.
	ErrNotInGame = errors.New("not a participant in this game")
)

// Result describes a finished game, for the optional result relay.
type Result struct {
	GameID   int64     `json:"game_id"`
	Players  [2]string `json:"players"`
	Scores   [2]int    `json:"scores"`
	Winner   string    `json:"winner,omitempty"`
	Draw     bool      `json:"draw"`
	Forfeit  bool      `json:"forfeit"`
	Finished time.Time `json:"finished"`
}

// message is one line queued for delivery after the game lock drops.
type message struct {
	to   *player.Player
	text string
}

// Game is a single match. The participant array is fixed at creation;
// everything else is guarded by mu.
type Game struct {
	ID int64

	mu      sync.Mutex
	players [2]*player.Player // index 0 = first mover (the challenger)
	board   board.Board
	turn    board.Role
	scores  [2]int
	status  Status

	// resume is non-nil exactly while a reconnect watchdog is running;
	// closing it cancels the watchdog's timeout path.
	resume chan struct{}

	reg *Registry
	log *logrus.Entry

	// OnResult, when set, is invoked once with the final outcome after
	// the game reaches Over.
	OnResult func(Result)
}

// HasPlayer reports whether p participates in this game. The array is
// immutable after creation, so no lock is needed.
func (g *Game) HasPlayer(p *player.Player) bool {
	return g.players[0] == p || g.players[1] == p
}

// Opponent returns the other participant, or nil if p is not in the game.
func (g *Game) Opponent(p *player.Player) *player.Player {
	switch p {
	case g.players[0]:
		return g.players[1]
	case g.players[1]:
		return g.players[0]
	}
	return nil
}

func (g *Game) roleOf(p *player.Player) (board.Role, bool) {
	switch p {
	case g.players[0]:
		return board.First, true
	case g.players[1]:
		return board.Second, true
	}
	return 0, false
}

// Status returns the session's lifecycle state.
func (g *Game) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// Scores returns both scores, first mover first.
func (g *Game) Scores() (int, int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.scores[0], g.scores[1]
}

// Turn returns the role to move.
func (g *Game) Turn() board.Role {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.turn
}

// Board returns a copy of the board.
func (g *Game) Board() board.Board {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.board
}

// deliver writes queued lines, outside any lock.
func (g *Game) deliver(msgs []message) {
	for _, m := range msgs {
		if err := m.to.Send(m.text); err != nil {
			g.log.WithField("to", m.to.Pseudo).Warnf("send failed: %v", err)
		}
	}
}

// ApplyMove plays pit (0-5, relative to the mover's own row) for p.
// Rejections leave the game untouched and are reported to the caller;
// a successful move notifies both participants and, if it empties a
// row, runs the end-of-game sequence.
func (g *Game) ApplyMove(p *player.Player, pit int) error {
	g.mu.Lock()
	role, ok := g.roleOf(p)
	if !ok {
		g.mu.Unlock()
		return ErrNotInGame
	}
	if g.status == Over {
		g.mu.Unlock()
		return ErrGameOver
	}
	if role != g.turn {
		g.mu.Unlock()
		return ErrNotYourTurn
	}
	if pit < 0 || pit >= board.PitsPerSide {
		g.mu.Unlock()
		return ErrInvalidPit
	}

	absPit := pit
	if role == board.Second {
		absPit += board.PitsPerSide
	}
	captured, err := g.board.Move(role, absPit)
	if err != nil {
		g.mu.Unlock()
		return err
	}
	g.scores[role] += captured

	opponent := g.players[role.Opponent()]
	msgs := []message{
		{opponent, fmt.Sprintf("[game %d] %s played pit %d.", g.ID, p.Pseudo, pit)},
	}
	msgs = append(msgs, g.boardMessagesLocked()...)

	if g.board.Ended() {
		msgs = append(msgs, g.finishLocked(finishPlayed, 0)...)
		g.mu.Unlock()
		g.deliver(msgs)
		return nil
	}

	g.turn = g.turn.Opponent()
	next := g.players[g.turn]
	msgs = append(msgs, message{next, fmt.Sprintf("[game %d] It is your turn.", g.ID)})
	g.mu.Unlock()
	g.deliver(msgs)
	return nil
}

// AnnounceOpening delivers the initial board to both participants and
// tells the first mover to play. Called once, right after creation.
func (g *Game) AnnounceOpening() {
	g.mu.Lock()
	msgs := g.boardMessagesLocked()
	msgs = append(msgs, message{g.players[0], fmt.Sprintf("[game %d] It is your turn.", g.ID)})
	g.mu.Unlock()
	g.deliver(msgs)
}

// Abandon forfeits the game on behalf of p: a loss for p, a win for the
// opponent, and the session is destroyed.
func (g *Game) Abandon(p *player.Player) error {
	g.mu.Lock()
	role, ok := g.roleOf(p)
	if !ok {
		g.mu.Unlock()
		return ErrNotInGame
	}
	if g.status == Over {
		g.mu.Unlock()
		return ErrGameOver
	}
	msgs := []message{
		{g.players[role.Opponent()], fmt.Sprintf("%s abandoned game %d. You win the game!", p.Pseudo, g.ID)},
		{p, fmt.Sprintf("You abandoned game %d.", g.ID)},
	}
	msgs = append(msgs, g.finishLocked(finishForfeit, role.Opponent())...)
	g.mu.Unlock()
	g.deliver(msgs)
	return nil
}

type finishKind int

const (
	finishPlayed finishKind = iota
	finishForfeit
)

// finishLocked runs the end-of-game sequence and returns the lines to
// deliver. Caller holds the game lock. For finishPlayed the remaining
// seeds are swept into their owners' scores and the winner is whoever
// ends up strictly ahead; for finishForfeit the given role wins
// outright. Player locks are only ever taken while the game lock is
// held, never the other way around.
func (g *Game) finishLocked(kind finishKind, forfeitWinner board.Role) []message {
	g.status = Over
	if g.resume != nil {
		close(g.resume)
		g.resume = nil
	}

	p1, p2 := g.players[0], g.players[1]
	var msgs []message
	res := Result{
		GameID:   g.ID,
		Players:  [2]string{p1.Pseudo, p2.Pseudo},
		Finished: time.Now(),
	}

	switch kind {
	case finishPlayed:
		s1, s2 := g.board.Sweep()
		g.scores[0] += s1
		g.scores[1] += s2
		msgs = append(msgs, g.boardMessagesLocked()...)
		msgs = append(msgs,
			message{p1, fmt.Sprintf("Game %d is over!", g.ID)},
			message{p2, fmt.Sprintf("Game %d is over!", g.ID)},
		)
		switch {
		case g.scores[0] > g.scores[1]:
			line := fmt.Sprintf("[game %d] %s wins with %d points!", g.ID, p1.Pseudo, g.scores[0])
			msgs = append(msgs, message{p1, line}, message{p2, line})
			p1.RecordWin()
			p2.RecordLoss()
			res.Winner = p1.Pseudo
		case g.scores[1] > g.scores[0]:
			line := fmt.Sprintf("[game %d] %s wins with %d points!", g.ID, p2.Pseudo, g.scores[1])
			msgs = append(msgs, message{p1, line}, message{p2, line})
			p2.RecordWin()
			p1.RecordLoss()
			res.Winner = p2.Pseudo
		default:
			line := fmt.Sprintf("[game %d] Draw! Both players have %d points.", g.ID, g.scores[0])
			msgs = append(msgs, message{p1, line}, message{p2, line})
			p1.RecordDraw()
			p2.RecordDraw()
			res.Draw = true
		}

	case finishForfeit:
		winner := g.players[forfeitWinner]
		loser := g.players[forfeitWinner.Opponent()]
		winner.RecordWin()
		loser.RecordLoss()
		res.Winner = winner.Pseudo
		res.Forfeit = true
	}

	res.Scores = g.scores

	p1.RemoveGame(g.ID)
	p2.RemoveGame(g.ID)
	g.reg.remove(g.ID)

	g.log.WithFields(logrus.Fields{
		"winner":  res.Winner,
		"draw":    res.Draw,
		"forfeit": res.Forfeit,
	}).Info("game finished")

	if g.OnResult != nil {
		go g.OnResult(res)
	}
	return msgs
}
