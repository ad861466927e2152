// Package server accepts client connections, runs the session
// handshake against the credential store and drives the per-connection
// command loop over the registries, the challenge coordinator and the
// game sessions.
package server

import (
	"context"
	"net"
	"net/http"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/awale-live/awale/internal/challenge"
	"github.com/awale-live/awale/internal/config"
	"github.com/awale-live/awale/internal/game"
	"github.com/awale-live/awale/internal/middleware"
	"github.com/awale-live/awale/internal/player"
	"github.com/awale-live/awale/internal/transport"
	"github.com/awale-live/awale/internal/userstore"
)

// Server ties the long-lived pieces together. One instance per process.
type Server struct {
	cfg     config.Config
	log     *logrus.Logger
	users   *userstore.Store
	players *player.Registry
	games   *game.Registry
	coord   *challenge.Coordinator
}

// New assembles a server around an opened credential store. onResult,
// when non-nil, is installed on every created game (the Redis relay
// plugs in here).
func New(cfg config.Config, log *logrus.Logger, users *userstore.Store, onResult func(game.Result)) *Server {
	players := player.NewRegistry(cfg.MaxPlayers, cfg.MaxGamesPerPlayer)
	games := game.NewRegistry(log)
	games.OnResult = onResult
	return &Server{
		cfg:     cfg,
		log:     log,
		users:   users,
		players: players,
		games:   games,
		coord:   challenge.NewCoordinator(players, games, log),
	}
}

// Run listens for TCP clients (and websocket ones when configured)
// until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	s.log.Infof("listening on %s", s.cfg.ListenAddr)

	if s.cfg.WSAddr != "" {
		go s.serveWS(ctx)
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Warnf("accept: %v", err)
			continue
		}
		go s.HandleConn(ctx, transport.NewTCP(conn))
	}
}

// serveWS runs the websocket listener: every accepted socket speaks the
// same line protocol, one text message per line.
func (s *Server) serveWS(ctx context.Context) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"awale"},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			s.log.Warnf("websocket accept from %s: %v", r.RemoteAddr, err)
			return
		}
		s.HandleConn(ctx, transport.NewWS(c, r.RemoteAddr))
	})

	srv := &http.Server{Addr: s.cfg.WSAddr, Handler: middleware.LogMiddleware(s.log)(mux)}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	s.log.Infof("websocket listener on %s", s.cfg.WSAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.log.Errorf("websocket listener: %v", err)
	}
}

// broadcast sends one line to every connected player except the sender.
// The registry lock is never held across the writes.
func (s *Server) broadcast(line string, except *player.Player) {
	for _, p := range s.players.ConnectedPlayers() {
		if p == except {
			continue
		}
		if err := p.Send(line); err != nil {
			s.log.WithField("to", p.Pseudo).Debugf("broadcast send failed: %v", err)
		}
	}
}
