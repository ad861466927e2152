package server

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/awale-live/awale/internal/player"
	"github.com/awale-live/awale/internal/transport"
	"github.com/awale-live/awale/internal/userstore"
)

const maxPseudoLen = 31

// HandleConn owns one client connection from handshake to teardown.
// It runs the registration or login exchange, admits the player into
// the registry and then pumps commands until the connection drops.
func (s *Server) HandleConn(ctx context.Context, conn transport.Conn) {
	defer conn.Close()
	log := s.log.WithField("remote", conn.RemoteAddr())

	pseudo, ok := s.handshake(ctx, conn)
	if !ok {
		return
	}

	session := uuid.New()
	p, reconnected, err := s.players.Admit(pseudo, conn, session)
	if err != nil {
		switch {
		case errors.Is(err, player.ErrPseudoConnected):
			conn.WriteLine(fmt.Sprintf("%s is already connected. Try again later.", pseudo))
		case errors.Is(err, player.ErrRegistryFull):
			conn.WriteLine("The server is full. Try again later.")
		default:
			log.Errorf("admit %s: %v", pseudo, err)
		}
		return
	}
	log = log.WithField("pseudo", pseudo)

	if reconnected {
		log.Info("player reconnected")
		p.Send("Welcome back! Your games resume where you left them.")
		s.broadcast(fmt.Sprintf("%s is back online.", pseudo), p)
		s.resumeGames(p)
	} else {
		log.Info("player joined")
		p.Send(fmt.Sprintf("Welcome %s! Type /help for the list of commands.", pseudo))
		s.broadcast(fmt.Sprintf("%s joined the server.", pseudo), p)
	}

	s.commandLoop(ctx, conn, p)
	s.teardown(p, session, log)
}

// handshake runs the pre-session exchange: the first line is the
// pseudo, then either a registration (password twice) or a login
// (password once) depending on whether the pseudo is known. Any
// failure ends the connection.
func (s *Server) handshake(ctx context.Context, conn transport.Conn) (string, bool) {
	conn.WriteLine("Enter your pseudo:")
	pseudo, err := conn.ReadLine(ctx)
	if err != nil {
		return "", false
	}
	pseudo = strings.TrimSpace(pseudo)
	if pseudo == "" || strings.ContainsAny(pseudo, " \t") || len(pseudo) > maxPseudoLen {
		conn.WriteLine("Invalid pseudo. It must be a single word of at most 31 characters.")
		return "", false
	}

	if !s.users.Exists(pseudo) {
		return pseudo, s.register(ctx, conn, pseudo)
	}
	return pseudo, s.login(ctx, conn, pseudo)
}

func (s *Server) register(ctx context.Context, conn transport.Conn, pseudo string) bool {
	conn.WriteLine(fmt.Sprintf("Welcome %s! This pseudo is new, let's register it.", pseudo))
	conn.WriteLine("Choose a password:")
	password, err := conn.ReadLine(ctx)
	if err != nil {
		return false
	}
	conn.WriteLine("Confirm the password:")
	confirm, err := conn.ReadLine(ctx)
	if err != nil {
		return false
	}
	if password != confirm {
		conn.WriteLine("The passwords do not match. Reconnect to try again.")
		return false
	}
	if password == "" {
		conn.WriteLine("The password cannot be empty. Reconnect to try again.")
		return false
	}

	switch err := s.users.Register(pseudo, password); {
	case err == nil:
		conn.WriteLine("Registration complete. You are now logged in!")
		return true
	case errors.Is(err, userstore.ErrStoreFull):
		conn.WriteLine("The server cannot accept new accounts right now.")
	case errors.Is(err, userstore.ErrDuplicateUser):
		// Someone registered the pseudo between Exists and Register.
		conn.WriteLine("This pseudo was just taken. Reconnect and log in or pick another.")
	case errors.Is(err, userstore.ErrFieldTooLong):
		conn.WriteLine("The password is too long.")
	default:
		s.log.Errorf("register %s: %v", pseudo, err)
		conn.WriteLine("Registration failed. Try again later.")
	}
	return false
}

func (s *Server) login(ctx context.Context, conn transport.Conn, pseudo string) bool {
	conn.WriteLine("Pseudo recognized. Enter your password:")
	password, err := conn.ReadLine(ctx)
	if err != nil {
		return false
	}
	ok, err := s.users.Verify(pseudo, password)
	if err != nil {
		s.log.Errorf("verify %s: %v", pseudo, err)
		conn.WriteLine("Login failed. Try again later.")
		return false
	}
	if !ok {
		conn.WriteLine("Incorrect password. Connection closed.")
		return false
	}
	conn.WriteLine("Login successful!")
	return true
}

// resumeGames wakes every game that was waiting on this player. When
// the other side dropped in the meantime the wait is reopened against
// them, so a game never sits in limbo with one player present.
func (s *Server) resumeGames(p *player.Player) {
	for _, g := range s.games.GamesFor(p) {
		g.Resume(p)
		if opp := g.Opponent(p); opp != nil && !opp.Connected() {
			g.BeginReconnectWait(opp, s.cfg.ReconnectGrace)
		}
	}
}

// commandLoop reads lines until the connection fails or the player
// quits. Replies go through the player so a concurrent reconnect
// cannot race the write path.
func (s *Server) commandLoop(ctx context.Context, conn transport.Conn, p *player.Player) {
	for {
		line, err := conn.ReadLine(ctx)
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "/") {
			p.Send("Unrecognized input. Commands start with '/', see /help.")
			continue
		}
		if quit := s.dispatch(p, line); quit {
			p.Send("Goodbye!")
			return
		}
	}
}

// teardown runs the disconnect sequence exactly once per session. A
// stale session id (the player already reconnected on a fresh
// connection) makes this a no-op.
func (s *Server) teardown(p *player.Player, session uuid.UUID, log *logrus.Entry) {
	if !p.MarkDisconnected(session) {
		return
	}
	log.Info("player disconnected")

	s.broadcast(fmt.Sprintf("%s disconnected.", p.Pseudo), p)
	s.coord.CancelOnDisconnect(p)
	for _, g := range s.games.GamesFor(p) {
		g.BeginReconnectWait(p, s.cfg.ReconnectGrace)
	}
}
