package player

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubConn struct {
	mu    sync.Mutex
	lines []string
}

func (c *stubConn) ReadLine(ctx context.Context) (string, error) { return "", io.EOF }

func (c *stubConn) WriteLine(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, line)
	return nil
}

func (c *stubConn) Close() error       { return nil }
func (c *stubConn) RemoteAddr() string { return "stub" }

func TestSendGoesToCurrentConn(t *testing.T) {
	c1 := &stubConn{}
	p := New("alice", c1, uuid.New(), 5)

	require.NoError(t, p.Send("hello"))
	assert.Equal(t, []string{"hello"}, c1.lines)

	require.True(t, p.MarkDisconnected(p.Session()))
	assert.NoError(t, p.Send("lost"), "lines to a disconnected player are dropped")

	c2 := &stubConn{}
	require.True(t, p.Reconnect(c2, uuid.New()))
	require.NoError(t, p.Send("back"))
	assert.Equal(t, []string{"back"}, c2.lines)
	assert.Equal(t, []string{"hello"}, c1.lines, "the old conn sees nothing")
}

func TestMarkDisconnectedIsSessionScoped(t *testing.T) {
	p := New("alice", &stubConn{}, uuid.New(), 5)
	stale := uuid.New()

	assert.False(t, p.MarkDisconnected(stale), "a stale session id is a no-op")
	assert.True(t, p.Connected())

	require.True(t, p.MarkDisconnected(p.Session()))
	assert.False(t, p.Connected())
	assert.False(t, p.MarkDisconnected(p.Session()), "already disconnected")
}

func TestReconnectRequiresDisconnect(t *testing.T) {
	p := New("alice", &stubConn{}, uuid.New(), 5)
	assert.False(t, p.Reconnect(&stubConn{}, uuid.New()), "still connected")

	session := p.Session()
	require.True(t, p.MarkDisconnected(session))

	fresh := uuid.New()
	require.True(t, p.Reconnect(&stubConn{}, fresh))
	assert.Equal(t, fresh, p.Session())
	assert.False(t, p.MarkDisconnected(session),
		"the old connection's teardown cannot touch the new session")
}

func TestStats(t *testing.T) {
	p := New("alice", &stubConn{}, uuid.New(), 5)
	p.RecordWin()
	p.RecordWin()
	p.RecordLoss()
	p.RecordDraw()

	wins, losses, draws := p.Stats()
	assert.Equal(t, 2, wins)
	assert.Equal(t, 1, losses)
	assert.Equal(t, 1, draws)
}

func TestGameMembership(t *testing.T) {
	p := New("alice", &stubConn{}, uuid.New(), 2)

	require.NoError(t, p.AddGame(1))
	require.NoError(t, p.AddGame(2))
	assert.ErrorIs(t, p.AddGame(3), ErrTooManyGames)

	assert.True(t, p.InGame(1))
	assert.False(t, p.InGame(3))
	assert.ElementsMatch(t, []int64{1, 2}, p.Games())

	p.RemoveGame(1)
	assert.False(t, p.InGame(1))
	require.NoError(t, p.AddGame(3))
}

func TestLockPairOrdersByPseudo(t *testing.T) {
	a := New("alice", &stubConn{}, uuid.New(), 5)
	b := New("bob", &stubConn{}, uuid.New(), 5)

	// Opposite argument orders must not deadlock.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			unlock := LockPair(a, b)
			unlock()
		}
		done <- struct{}{}
	}()
	go func() {
		for i := 0; i < 200; i++ {
			unlock := LockPair(b, a)
			unlock()
		}
		done <- struct{}{}
	}()
	<-done
	<-done
}

func TestRegistryAdmit(t *testing.T) {
	r := NewRegistry(2, 5)

	alice, reconnected, err := r.Admit("alice", &stubConn{}, uuid.New())
	require.NoError(t, err)
	assert.False(t, reconnected)

	_, _, err = r.Admit("alice", &stubConn{}, uuid.New())
	assert.ErrorIs(t, err, ErrPseudoConnected)

	_, _, err = r.Admit("bob", &stubConn{}, uuid.New())
	require.NoError(t, err)

	_, _, err = r.Admit("carol", &stubConn{}, uuid.New())
	assert.ErrorIs(t, err, ErrRegistryFull)

	require.True(t, alice.MarkDisconnected(alice.Session()))
	back, reconnected, err := r.Admit("alice", &stubConn{}, uuid.New())
	require.NoError(t, err)
	assert.True(t, reconnected)
	assert.Same(t, alice, back, "stats and games survive the reconnect")
}

func TestRegistryLookups(t *testing.T) {
	r := NewRegistry(0, 5)

	for _, pseudo := range []string{"carol", "alice", "bob"} {
		_, _, err := r.Admit(pseudo, &stubConn{}, uuid.New())
		require.NoError(t, err)
	}
	assert.Equal(t, 3, r.Count())

	p, ok := r.LookupConnected("bob")
	require.True(t, ok)
	assert.Equal(t, "bob", p.Pseudo)

	require.True(t, p.MarkDisconnected(p.Session()))
	_, ok = r.LookupConnected("bob")
	assert.False(t, ok, "disconnected players are invisible to LookupConnected")
	_, ok = r.Lookup("bob")
	assert.True(t, ok, "but still registered")

	var pseudos []string
	for _, cp := range r.ConnectedPlayers() {
		pseudos = append(pseudos, cp.Pseudo)
	}
	assert.Equal(t, []string{"alice", "carol"}, pseudos, "sorted by pseudo")
}
