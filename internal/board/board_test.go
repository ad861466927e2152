package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBoard(t *testing.T) {
	b := New()
	for i := 0; i < Size; i++ {
		assert.Equal(t, InitialSeeds, b[i], "pit %d", i)
	}
	assert.Equal(t, Size*InitialSeeds, b.Total())
	assert.Equal(t, PitsPerSide*InitialSeeds, b.SideSum(First))
	assert.Equal(t, PitsPerSide*InitialSeeds, b.SideSum(Second))
}

func TestRoleOwnership(t *testing.T) {
	assert.True(t, First.Owns(0))
	assert.True(t, First.Owns(5))
	assert.False(t, First.Owns(6))
	assert.True(t, Second.Owns(6))
	assert.True(t, Second.Owns(11))
	assert.False(t, Second.Owns(0))
	assert.Equal(t, Second, First.Opponent())
	assert.Equal(t, First, Second.Opponent())
}

func TestMoveRejectsBadPit(t *testing.T) {
	b := New()
	_, err := b.Move(First, -1)
	assert.ErrorIs(t, err, ErrInvalidMove)
	_, err = b.Move(First, Size)
	assert.ErrorIs(t, err, ErrInvalidMove)

	b[3] = 0
	_, err = b.Move(First, 3)
	assert.ErrorIs(t, err, ErrInvalidMove)
	_, err = b.Move(First, 8)
	assert.ErrorIs(t, err, ErrInvalidMove, "cannot sow from the opponent's side")
}

func TestMoveSowsForward(t *testing.T) {
	b := New()
	captured, err := b.Move(First, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, captured)

	assert.Equal(t, 0, b[2])
	for _, pit := range []int{3, 4, 5, 6} {
		assert.Equal(t, InitialSeeds+1, b[pit], "pit %d", pit)
	}
	assert.Equal(t, InitialSeeds, b[7])
	assert.Equal(t, Size*InitialSeeds, b.Total(), "seeds are conserved")
}

func TestMoveWrapsAround(t *testing.T) {
	b := Board{}
	b[11] = 3
	b[0] = 5
	_, err := b.Move(Second, 11)
	require.NoError(t, err)
	assert.Equal(t, 0, b[11])
	assert.Equal(t, 6, b[0])
	assert.Equal(t, 1, b[1])
	assert.Equal(t, 1, b[2])
}

func TestMoveCapturesBackwardRun(t *testing.T) {
	// First sows 3 seeds from pit 5 into pits 6, 7, 8 whose counts
	// become 2, 3, 2. All three fall in the opponent's half, so the
	// whole backward run from the last pit is captured.
	b := Board{}
	b[5] = 3
	b[6] = 1
	b[7] = 2
	b[8] = 1
	b[9] = 5

	captured, err := b.Move(First, 5)
	require.NoError(t, err)
	assert.Equal(t, 7, captured)
	assert.Equal(t, 0, b[6])
	assert.Equal(t, 0, b[7])
	assert.Equal(t, 0, b[8])
	assert.Equal(t, 5, b[9], "run stops at the first pit outside 2..3")
}

func TestCaptureStopsAtOwnSide(t *testing.T) {
	// The last seed lands on the mover's own side: nothing is captured
	// even though the landing pit holds 2.
	b := Board{}
	b[0] = 2
	b[1] = 1
	b[2] = 1

	captured, err := b.Move(First, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, captured)
	assert.Equal(t, 2, b[1])
	assert.Equal(t, 2, b[2])
}

func TestCaptureBackwardWalkStopsAtOne(t *testing.T) {
	// Sowing two seeds from pit 5 lands on pit 7, making it 3: pit 7
	// is captured. Pit 6 was incremented to 1, which ends the walk.
	b := Board{}
	b[5] = 2
	b[7] = 2

	captured, err := b.Move(First, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, captured)
	assert.Equal(t, 0, b[7])
	assert.Equal(t, 1, b[6])
}

func TestCaptureStopsAtFourOrMore(t *testing.T) {
	b := Board{}
	b[5] = 2
	b[6] = 4
	b[7] = 1

	captured, err := b.Move(First, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, captured, "only the landing pit qualifies")
	assert.Equal(t, 0, b[7])
	assert.Equal(t, 5, b[6], "a pit reaching 4+ breaks the run")
}

func TestEndedWhenASideIsEmpty(t *testing.T) {
	b := Board{}
	assert.True(t, b.Ended())

	b[0] = 1
	assert.True(t, b.Ended(), "second half empty")

	b[7] = 1
	assert.False(t, b.Ended())

	b[0] = 0
	assert.True(t, b.Ended(), "first half empty")
}

func TestSweep(t *testing.T) {
	b := Board{}
	b[1] = 3
	b[4] = 2
	b[8] = 7

	first, second := b.Sweep()
	assert.Equal(t, 5, first)
	assert.Equal(t, 7, second)
	assert.Equal(t, 0, b.Total())
}
