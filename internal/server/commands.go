package server

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/awale-live/awale/internal/board"
	"github.com/awale-live/awale/internal/challenge"
	"github.com/awale-live/awale/internal/game"
	"github.com/awale-live/awale/internal/player"
)

const helpText = `Available commands:
  /defier <pseudo>           Challenge a player
  /accepter                  Accept the pending challenge
  /refuser                   Refuse the pending challenge
  /joueurs                   List connected players and their records
  /global <message>          Send a message to everyone
  /mp <pseudo> <message>     Send a private message
  /chat <game> <message>     Send a message to your opponent in a game
  /play <game>               Show the board of a game
  /play <game> <0-5>         Play the given pit in a game
  /abandon <game>            Forfeit a game
  /quit                      Leave the server
  /help                      Show this help`

// dispatch routes one slash command. It returns true when the player
// asked to quit.
func (s *Server) dispatch(p *player.Player, line string) bool {
	cmd, args := splitCommand(line)
	switch cmd {
	case "/defier":
		s.cmdChallenge(p, args)
	case "/accepter":
		s.cmdAccept(p)
	case "/refuser":
		s.cmdRefuse(p)
	case "/joueurs":
		s.cmdPlayers(p)
	case "/global":
		s.cmdGlobal(p, args)
	case "/mp":
		s.cmdPrivate(p, args)
	case "/chat":
		s.cmdChat(p, args)
	case "/play":
		s.cmdPlay(p, args)
	case "/abandon":
		s.cmdAbandon(p, args)
	case "/help":
		p.Send(helpText)
	case "/quit":
		return true
	default:
		p.Send("Unknown command. Type /help for the list of commands.")
	}
	return false
}

// splitCommand separates the command word from its argument string.
func splitCommand(line string) (cmd, args string) {
	cmd, args, _ = strings.Cut(line, " ")
	return cmd, strings.TrimSpace(args)
}

func (s *Server) cmdChallenge(p *player.Player, args string) {
	if args == "" || strings.ContainsAny(args, " \t") {
		p.Send("Usage: /defier <pseudo>")
		return
	}
	switch err := s.coord.Send(p, args); {
	case err == nil:
	case errors.Is(err, challenge.ErrTargetOffline):
		p.Send(fmt.Sprintf("%s is not connected.", args))
	case errors.Is(err, challenge.ErrSelfChallenge):
		p.Send("You cannot challenge yourself.")
	case errors.Is(err, challenge.ErrChallengePending):
		p.Send("You already have a pending challenge. Settle it first.")
	case errors.Is(err, challenge.ErrTargetBusy):
		p.Send(fmt.Sprintf("%s already has a pending challenge.", args))
	case errors.Is(err, player.ErrTooManyGames):
		p.Send("One of you is already playing the maximum number of games.")
	default:
		p.Send("The challenge could not be sent.")
	}
}

func (s *Server) cmdAccept(p *player.Player) {
	_, err := s.coord.Accept(p)
	switch {
	case err == nil:
	case errors.Is(err, challenge.ErrNoChallenge):
		p.Send("Nobody has challenged you.")
	case errors.Is(err, player.ErrTooManyGames):
		p.Send("One of you is already playing the maximum number of games.")
	default:
		p.Send("The game could not be started.")
	}
}

func (s *Server) cmdRefuse(p *player.Player) {
	if err := s.coord.Refuse(p); errors.Is(err, challenge.ErrNoChallenge) {
		p.Send("Nobody has challenged you.")
	}
}

func (s *Server) cmdPlayers(p *player.Player) {
	connected := s.players.ConnectedPlayers()
	lines := make([]string, 0, len(connected)+1)
	lines = append(lines, fmt.Sprintf("Connected players (%d):", len(connected)))
	for _, other := range connected {
		wins, losses, draws := other.Stats()
		marker := ""
		if other == p {
			marker = " (you)"
		}
		lines = append(lines, fmt.Sprintf("  %s%s - W: %d | L: %d | D: %d",
			other.Pseudo, marker, wins, losses, draws))
	}
	p.Send(strings.Join(lines, "\n"))
}

func (s *Server) cmdGlobal(p *player.Player, args string) {
	if args == "" {
		p.Send("Usage: /global <message>")
		return
	}
	s.broadcast(fmt.Sprintf("[global] %s: %s", p.Pseudo, args), p)
}

func (s *Server) cmdPrivate(p *player.Player, args string) {
	target, msg, ok := strings.Cut(args, " ")
	msg = strings.TrimSpace(msg)
	if !ok || target == "" || msg == "" {
		p.Send("Usage: /mp <pseudo> <message>")
		return
	}
	to, found := s.players.LookupConnected(target)
	if !found {
		p.Send(fmt.Sprintf("%s is not connected.", target))
		return
	}
	to.Send(fmt.Sprintf("[mp from %s] %s", p.Pseudo, msg))
	p.Send(fmt.Sprintf("[mp to %s] %s", target, msg))
}

func (s *Server) cmdChat(p *player.Player, args string) {
	idStr, msg, ok := strings.Cut(args, " ")
	msg = strings.TrimSpace(msg)
	id, err := strconv.ParseInt(idStr, 10, 64)
	if !ok || err != nil || msg == "" {
		p.Send("Usage: /chat <game> <message>")
		return
	}
	g, err := s.games.GameFor(p, id)
	if err != nil {
		p.Send(fmt.Sprintf("You are not playing game %d.", id))
		return
	}
	g.Opponent(p).Send(fmt.Sprintf("[game %d] %s: %s", id, p.Pseudo, msg))
}

// cmdPlay covers both forms: with a game id alone it redisplays the
// board, with a pit number it plays the move.
func (s *Server) cmdPlay(p *player.Player, args string) {
	fields := strings.Fields(args)
	if len(fields) != 1 && len(fields) != 2 {
		p.Send("Usage: /play <game> [0-5]")
		return
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		p.Send("Usage: /play <game> [0-5]")
		return
	}
	g, err := s.games.GameFor(p, id)
	if err != nil {
		p.Send(fmt.Sprintf("You are not playing game %d.", id))
		return
	}

	if len(fields) == 1 {
		view, err := g.RenderFor(p)
		if err != nil {
			p.Send(fmt.Sprintf("You are not playing game %d.", id))
			return
		}
		p.Send(view)
		return
	}

	pit, err := strconv.Atoi(fields[1])
	if err != nil {
		p.Send("The pit must be a number between 0 and 5.")
		return
	}
	switch err := g.ApplyMove(p, pit); {
	case err == nil:
	case errors.Is(err, game.ErrGameOver):
		p.Send(fmt.Sprintf("Game %d is already over.", id))
	case errors.Is(err, game.ErrNotYourTurn):
		p.Send(fmt.Sprintf("It is not your turn in game %d.", id))
	case errors.Is(err, game.ErrInvalidPit):
		p.Send("The pit must be a number between 0 and 5.")
	case errors.Is(err, board.ErrInvalidMove):
		p.Send("That pit is empty. Pick another one.")
	default:
		p.Send("The move could not be played.")
	}
}

func (s *Server) cmdAbandon(p *player.Player, args string) {
	id, err := strconv.ParseInt(args, 10, 64)
	if err != nil {
		p.Send("Usage: /abandon <game>")
		return
	}
	g, err := s.games.GameFor(p, id)
	if err != nil {
		p.Send(fmt.Sprintf("You are not playing game %d.", id))
		return
	}
	if err := g.Abandon(p); errors.Is(err, game.ErrGameOver) {
		p.Send(fmt.Sprintf("Game %d is already over.", id))
	}
}
