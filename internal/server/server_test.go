package server

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awale-live/awale/internal/config"
	"github.com/awale-live/awale/internal/game"
	"github.com/awale-live/awale/internal/player"
	"github.com/awale-live/awale/internal/userstore"
)

// scriptConn plays a fixed sequence of input lines and records every
// line written back.
type scriptConn struct {
	in chan string

	mu  sync.Mutex
	out []string
}

func newScriptConn(lines ...string) *scriptConn {
	c := &scriptConn{in: make(chan string, len(lines)+1)}
	for _, l := range lines {
		c.in <- l
	}
	close(c.in)
	return c
}

func (c *scriptConn) ReadLine(ctx context.Context) (string, error) {
	select {
	case line, ok := <-c.in:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *scriptConn) WriteLine(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.out = append(c.out, line)
	return nil
}

func (c *scriptConn) Close() error       { return nil }
func (c *scriptConn) RemoteAddr() string { return "script" }

func (c *scriptConn) received(substr string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, l := range c.out {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := config.Config{
		ListenAddr:        ":0",
		UsersFile:         filepath.Join(t.TempDir(), "users.dat"),
		ReconnectGrace:    20 * time.Millisecond,
		MaxPlayers:        10,
		MaxGamesPerPlayer: 5,
		MaxUsers:          10,
	}
	users, err := userstore.Open(cfg.UsersFile, cfg.MaxUsers)
	require.NoError(t, err)
	return New(cfg, log, users, nil)
}

// admit skips the handshake and puts a player straight into the
// registry, with a recorder conn.
func admit(t *testing.T, s *Server, pseudo string) (*player.Player, *scriptConn) {
	t.Helper()
	conn := newScriptConn()
	p, _, err := s.players.Admit(pseudo, conn, uuid.New())
	require.NoError(t, err)
	return p, conn
}

func TestHandshakeRegistersNewPseudo(t *testing.T) {
	s := newTestServer(t)
	conn := newScriptConn("alice", "secret", "secret")

	pseudo, ok := s.handshake(context.Background(), conn)
	assert.True(t, ok)
	assert.Equal(t, "alice", pseudo)
	assert.True(t, s.users.Exists("alice"))
	assert.True(t, conn.received("Registration complete"))
}

func TestHandshakeRejectsPasswordMismatch(t *testing.T) {
	s := newTestServer(t)
	conn := newScriptConn("alice", "secret", "other")

	_, ok := s.handshake(context.Background(), conn)
	assert.False(t, ok)
	assert.False(t, s.users.Exists("alice"))
	assert.True(t, conn.received("do not match"))
}

func TestHandshakeLogin(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.users.Register("alice", "secret"))

	conn := newScriptConn("alice", "secret")
	pseudo, ok := s.handshake(context.Background(), conn)
	assert.True(t, ok)
	assert.Equal(t, "alice", pseudo)
	assert.True(t, conn.received("Login successful"))

	conn = newScriptConn("alice", "wrong")
	_, ok = s.handshake(context.Background(), conn)
	assert.False(t, ok)
	assert.True(t, conn.received("Incorrect password"))
}

func TestHandshakeRejectsBadPseudo(t *testing.T) {
	s := newTestServer(t)
	for _, pseudo := range []string{"", "two words", strings.Repeat("x", 40)} {
		conn := newScriptConn(pseudo)
		_, ok := s.handshake(context.Background(), conn)
		assert.False(t, ok, "pseudo %q", pseudo)
	}
}

func TestChallengeToGameFlow(t *testing.T) {
	s := newTestServer(t)
	alice, ca := admit(t, s, "alice")
	bob, cb := admit(t, s, "bob")

	s.dispatch(alice, "/defier bob")
	assert.True(t, cb.received("alice challenged you"))

	s.dispatch(bob, "/accepter")
	assert.Equal(t, 1, s.games.Count())
	assert.True(t, ca.received("Game 1 begins"))
	assert.True(t, ca.received("It is your turn"), "the challenger moves first")

	s.dispatch(alice, "/play 1 2")
	assert.True(t, cb.received("alice played pit 2"))
	assert.True(t, cb.received("It is your turn"))

	s.dispatch(alice, "/play 1 3")
	assert.True(t, ca.received("It is not your turn in game 1"))
}

func TestChallengeErrorsReachTheUser(t *testing.T) {
	s := newTestServer(t)
	alice, ca := admit(t, s, "alice")

	s.dispatch(alice, "/defier alice")
	assert.True(t, ca.received("cannot challenge yourself"))

	s.dispatch(alice, "/defier ghost")
	assert.True(t, ca.received("ghost is not connected"))

	s.dispatch(alice, "/defier")
	assert.True(t, ca.received("Usage: /defier"))

	s.dispatch(alice, "/accepter")
	assert.True(t, ca.received("Nobody has challenged you"))
}

func TestPlayersListing(t *testing.T) {
	s := newTestServer(t)
	alice, ca := admit(t, s, "alice")
	bob, _ := admit(t, s, "bob")
	bob.RecordWin()
	bob.RecordDraw()

	s.dispatch(alice, "/joueurs")
	assert.True(t, ca.received("Connected players (2)"))
	assert.True(t, ca.received("alice (you)"))
	assert.True(t, ca.received("bob - W: 1 | L: 0 | D: 1"))
}

func TestGlobalChat(t *testing.T) {
	s := newTestServer(t)
	alice, ca := admit(t, s, "alice")
	_, cb := admit(t, s, "bob")

	s.dispatch(alice, "/global hello all")
	assert.True(t, cb.received("[global] alice: hello all"))
	assert.False(t, ca.received("[global]"), "the sender is not echoed")
}

func TestPrivateMessage(t *testing.T) {
	s := newTestServer(t)
	alice, ca := admit(t, s, "alice")
	_, cb := admit(t, s, "bob")

	s.dispatch(alice, "/mp bob hi there")
	assert.True(t, cb.received("[mp from alice] hi there"))
	assert.True(t, ca.received("[mp to bob] hi there"))

	s.dispatch(alice, "/mp ghost hello")
	assert.True(t, ca.received("ghost is not connected"))

	s.dispatch(alice, "/mp bob")
	assert.True(t, ca.received("Usage: /mp"))
}

func TestGameChat(t *testing.T) {
	s := newTestServer(t)
	alice, ca := admit(t, s, "alice")
	bob, cb := admit(t, s, "bob")
	_, err := s.games.Create(alice, bob)
	require.NoError(t, err)

	s.dispatch(alice, "/chat 1 good luck")
	assert.True(t, cb.received("[game 1] alice: good luck"))

	s.dispatch(alice, "/chat 99 hello")
	assert.True(t, ca.received("You are not playing game 99"))
}

func TestPlayRedisplayAndErrors(t *testing.T) {
	s := newTestServer(t)
	alice, ca := admit(t, s, "alice")
	bob, _ := admit(t, s, "bob")
	_, err := s.games.Create(alice, bob)
	require.NoError(t, err)

	s.dispatch(alice, "/play 1")
	assert.True(t, ca.received("Opponent (bob)"))

	s.dispatch(alice, "/play 1 9")
	assert.True(t, ca.received("between 0 and 5"))

	s.dispatch(alice, "/play")
	assert.True(t, ca.received("Usage: /play"))

	s.dispatch(alice, "/play 7 0")
	assert.True(t, ca.received("You are not playing game 7"))
}

func TestAbandon(t *testing.T) {
	s := newTestServer(t)
	alice, ca := admit(t, s, "alice")
	bob, cb := admit(t, s, "bob")
	_, err := s.games.Create(alice, bob)
	require.NoError(t, err)

	s.dispatch(alice, "/abandon 1")
	assert.True(t, cb.received("alice abandoned game 1"))
	assert.Equal(t, 0, s.games.Count())

	s.dispatch(alice, "/abandon 1")
	assert.True(t, ca.received("You are not playing game 1"))
}

func TestUnknownAndMalformedInput(t *testing.T) {
	s := newTestServer(t)
	alice, ca := admit(t, s, "alice")

	s.dispatch(alice, "/frobnicate")
	assert.True(t, ca.received("Unknown command"))

	assert.True(t, s.dispatch(alice, "/quit"))
	assert.False(t, s.dispatch(alice, "/help"))
	assert.True(t, ca.received("Available commands"))
}

func TestCommandLoopRejectsBareText(t *testing.T) {
	s := newTestServer(t)
	alice, ca := admit(t, s, "alice")

	conn := newScriptConn("hello?", "  ", "/help")
	s.commandLoop(context.Background(), conn, alice)
	assert.True(t, ca.received("Commands start with '/'"))
	assert.True(t, ca.received("Available commands"))
}

func TestTeardownCancelsChallengeAndOpensGrace(t *testing.T) {
	s := newTestServer(t)
	alice, _ := admit(t, s, "alice")
	_, cb := admit(t, s, "bob")
	carol, cc := admit(t, s, "carol")

	s.dispatch(alice, "/defier bob")
	g, err := s.games.Create(alice, carol)
	require.NoError(t, err)

	s.teardown(alice, alice.Session(), s.log.WithField("test", t.Name()))

	assert.True(t, cb.received("The challenge is cancelled"))
	assert.True(t, cc.received("alice disconnected"))
	assert.True(t, cc.received("Waiting"))
	assert.Equal(t, game.WaitingReconnect, g.Status())

	// The stale session's teardown after a reconnect must be a no-op.
	require.True(t, alice.Reconnect(newScriptConn(), uuid.New()))
	s.resumeGames(alice)
	assert.Equal(t, game.InProgress, g.Status())
	s.teardown(alice, uuid.New(), s.log.WithField("test", t.Name()))
	assert.Equal(t, game.InProgress, g.Status(), "stale teardown left the game alone")
}

func TestGraceTimeoutForfeits(t *testing.T) {
	s := newTestServer(t)
	alice, _ := admit(t, s, "alice")
	bob, cb := admit(t, s, "bob")
	_, err := s.games.Create(alice, bob)
	require.NoError(t, err)

	s.teardown(alice, alice.Session(), s.log.WithField("test", t.Name()))

	require.Eventually(t, func() bool {
		return s.games.Count() == 0
	}, time.Second, 5*time.Millisecond)

	wins, _, _ := bob.Stats()
	assert.Equal(t, 1, wins)
	assert.True(t, cb.received("You win game 1"))
}
