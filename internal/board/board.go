// Package board implements the Awale rules: sowing, capture, end
// detection and final scoring. It is purely computational; callers are
// responsible for locking and turn order.
package board

import "errors"

const (
	// Size is the total number of pits on the board.
	Size = 12
	// PitsPerSide is the number of pits owned by each player.
	PitsPerSide = 6
	// InitialSeeds is the seed count in every pit at the start of a game.
	InitialSeeds = 4
)

// Role identifies one of the two seats in a game. First moves first and
// owns pits 0-5; Second owns pits 6-11.
type Role int

const (
	First Role = iota
	Second
)

// Opponent returns the other seat.
func (r Role) Opponent() Role {
	if r == First {
		return Second
	}
	return First
}

// ErrInvalidMove is returned when the chosen pit is outside the mover's
// row or empty. The board is left unchanged.
var ErrInvalidMove = errors.New("invalid move")

// Board holds the seed count of each pit.
type Board [Size]int

// New returns a board with every pit at its initial seed count.
func New() Board {
	var b Board
	for i := range b {
		b[i] = InitialSeeds
	}
	return b
}

// lowest absolute pit index owned by the role
func (r Role) firstPit() int {
	if r == First {
		return 0
	}
	return PitsPerSide
}

// Owns reports whether the absolute pit index lies in the role's row.
func (r Role) Owns(pit int) bool {
	return pit >= r.firstPit() && pit < r.firstPit()+PitsPerSide
}

// SideSum returns the number of seeds remaining in the role's row.
func (b *Board) SideSum(r Role) int {
	sum := 0
	for i := r.firstPit(); i < r.firstPit()+PitsPerSide; i++ {
		sum += b[i]
	}
	return sum
}

// Total returns the number of seeds on the board.
func (b *Board) Total() int {
	sum := 0
	for _, n := range b {
		sum += n
	}
	return sum
}

// Move sows the seeds of the mover's pit (absolute index) forward with
// wraparound, then resolves captures walking backward from the landing
// pit through the opponent's row. It returns the number of captured
// seeds. On ErrInvalidMove the board is untouched.
func (b *Board) Move(r Role, pit int) (int, error) {
	if !r.Owns(pit) {
		return 0, ErrInvalidMove
	}
	seeds := b[pit]
	if seeds == 0 {
		return 0, ErrInvalidMove
	}

	b[pit] = 0
	cur := pit
	for seeds > 0 {
		cur = (cur + 1) % Size
		b[cur]++
		seeds--
	}

	// Capture is a contiguous backward run from the landing pit: each
	// opponent pit holding exactly 2 or 3 seeds is emptied, stopping at
	// the first pit that does not qualify or on leaving their row.
	captured := 0
	opp := r.Opponent()
	for opp.Owns(cur) && (b[cur] == 2 || b[cur] == 3) {
		captured += b[cur]
		b[cur] = 0
		cur--
		if cur < 0 {
			cur = Size - 1
		}
	}
	return captured, nil
}

// Ended reports whether either row is out of seeds.
func (b *Board) Ended() bool {
	return b.SideSum(First) == 0 || b.SideSum(Second) == 0
}

// Sweep empties both rows and returns the seeds each side keeps: every
// remaining seed is credited to the owner of the pit it sits in.
func (b *Board) Sweep() (first, second int) {
	first = b.SideSum(First)
	second = b.SideSum(Second)
	for i := range b {
		b[i] = 0
	}
	return first, second
}
