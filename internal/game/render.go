package game

import (
	"fmt"
	"strings"

	"github.com/awale-live/awale/internal/board"
	"github.com/awale-live/awale/internal/player"
)

const pitSeparator = "   +-----+-----+-----+-----+-----+-----+"

// renderForLocked draws the board from one seat's perspective: the
// opponent's row on top (reversed so play direction reads naturally),
// the player's own row at the bottom above its pit indices. Caller
// holds the game lock.
func (g *Game) renderForLocked(role board.Role) string {
	me := g.players[role]
	opp := g.players[role.Opponent()]

	var sb strings.Builder
	fmt.Fprintf(&sb, "[game %d] Opponent (%s): %d points\n", g.ID, opp.Pseudo, g.scores[role.Opponent()])
	sb.WriteString(pitSeparator + "\n")

	sb.WriteString("   |")
	oppFirst, oppLast := oppRowBounds(role)
	for i := oppLast; i >= oppFirst; i-- {
		fmt.Fprintf(&sb, " %3d |", g.board[i])
	}
	sb.WriteString("\n" + pitSeparator + "\n")

	sb.WriteString("   |")
	ownFirst := 0
	if role == board.Second {
		ownFirst = board.PitsPerSide
	}
	for i := ownFirst; i < ownFirst+board.PitsPerSide; i++ {
		fmt.Fprintf(&sb, " %3d |", g.board[i])
	}
	sb.WriteString("\n" + pitSeparator + "\n")
	sb.WriteString("    [0]   [1]   [2]   [3]   [4]   [5]\n")
	fmt.Fprintf(&sb, "You (%s): %d points", me.Pseudo, g.scores[role])
	return sb.String()
}

func oppRowBounds(role board.Role) (first, last int) {
	if role == board.First {
		return board.PitsPerSide, board.Size - 1
	}
	return 0, board.PitsPerSide - 1
}

// boardMessagesLocked queues a rendered board for each participant.
func (g *Game) boardMessagesLocked() []message {
	return []message{
		{g.players[0], g.renderForLocked(board.First)},
		{g.players[1], g.renderForLocked(board.Second)},
	}
}

// RenderFor returns the board as seen by p, for redisplay on demand.
func (g *Game) RenderFor(p *player.Player) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	role, ok := g.roleOf(p)
	if !ok {
		return "", ErrNotInGame
	}
	return g.renderForLocked(role), nil
}
