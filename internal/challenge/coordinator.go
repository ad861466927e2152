// Package challenge mediates duel invitations between connected
// players. A player holds at most one outstanding challenge at a time,
// and the relation is always mirrored on both Player records or on
// neither. Whenever two player locks are needed they are taken in
// pseudo order via player.LockPair, the same canonical order every
// other call path uses.
package challenge

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/awale-live/awale/internal/game"
	"github.com/awale-live/awale/internal/player"
)

var (
	// ErrTargetOffline is returned when the challenged pseudo has no
	// live connection.
	ErrTargetOffline = errors.New("target player is not connected")
	// ErrSelfChallenge is returned when a player challenges themselves.
	ErrSelfChallenge = errors.New("cannot challenge yourself")
	// ErrChallengePending is returned when the challenger already has an
	// outstanding challenge.
	ErrChallengePending = errors.New("you already have a pending challenge")
	// ErrTargetBusy is returned when the target already has one.
	ErrTargetBusy = errors.New("target already has a pending challenge")
	// ErrNoChallenge is returned when there is nothing to accept or
	// refuse.
	ErrNoChallenge = errors.New("no pending challenge")
)

// Coordinator runs the challenge state machine over the two registries.
type Coordinator struct {
	players *player.Registry
	games   *game.Registry
	log     *logrus.Logger
}

// NewCoordinator wires a coordinator to the registries.
func NewCoordinator(players *player.Registry, games *game.Registry, log *logrus.Logger) *Coordinator {
	return &Coordinator{players: players, games: games, log: log}
}

// Send records a challenge from challenger to the target pseudo and
// notifies both sides. Failures leave both records untouched.
func (c *Coordinator) Send(challenger *player.Player, targetPseudo string) error {
	target, ok := c.players.LookupConnected(targetPseudo)
	if !ok {
		return ErrTargetOffline
	}
	if target == challenger {
		return ErrSelfChallenge
	}

	unlock := player.LockPair(challenger, target)
	// The target may have dropped since the lookup, with their
	// disconnect cleanup already done. Re-check under the pair lock so
	// a challenge is never pinned to a disconnected player.
	if !target.ConnectedLocked() {
		unlock()
		return ErrTargetOffline
	}
	if challenger.HasChallengeLocked() {
		unlock()
		return ErrChallengePending
	}
	if target.HasChallengeLocked() {
		unlock()
		return ErrTargetBusy
	}
	challenger.SetSentLocked(target.Pseudo)
	target.SetReceivedLocked(challenger.Pseudo)
	unlock()

	c.log.WithFields(logrus.Fields{"from": challenger.Pseudo, "to": target.Pseudo}).Info("challenge sent")
	target.Send(fmt.Sprintf("%s challenged you to a duel! Type /accepter to accept or /refuser to refuse.", challenger.Pseudo))
	challenger.Send(fmt.Sprintf("Challenge sent to %s.", target.Pseudo))
	return nil
}

// counterpart resolves the challenger behind challengee's pending
// challenge and clears the relation on both sides atomically. It fails
// with ErrNoChallenge if there is none or the relation is no longer
// mirrored (the other side raced us).
func (c *Coordinator) counterpart(challengee *player.Player) (*player.Player, error) {
	_, from := challengee.ChallengeState()
	if from == "" {
		return nil, ErrNoChallenge
	}
	challenger, ok := c.players.Lookup(from)
	if !ok {
		return nil, ErrNoChallenge
	}

	unlock := player.LockPair(challengee, challenger)
	defer unlock()
	if challengee.ReceivedFromLocked() != challenger.Pseudo ||
		challenger.SentToLocked() != challengee.Pseudo {
		return nil, ErrNoChallenge
	}
	challengee.ClearChallengeLocked()
	challenger.ClearChallengeLocked()
	return challenger, nil
}

// Accept resolves challengee's pending challenge into a new game, the
// challenger moving first. The initial board goes to both sides.
func (c *Coordinator) Accept(challengee *player.Player) (*game.Game, error) {
	challenger, err := c.counterpart(challengee)
	if err != nil {
		return nil, err
	}

	g, err := c.games.Create(challenger, challengee)
	if err != nil {
		challenger.Send(fmt.Sprintf("Could not start the game with %s: %v", challengee.Pseudo, err))
		return nil, err
	}

	c.log.WithFields(logrus.Fields{
		"game":       g.ID,
		"challenger": challenger.Pseudo,
		"challengee": challengee.Pseudo,
	}).Info("challenge accepted")

	opening := fmt.Sprintf("Challenge accepted. Game %d begins!", g.ID)
	challenger.Send(opening)
	challengee.Send(opening)
	g.AnnounceOpening()
	return g, nil
}

// Refuse declines challengee's pending challenge and tells the
// challenger.
func (c *Coordinator) Refuse(challengee *player.Player) error {
	challenger, err := c.counterpart(challengee)
	if err != nil {
		return err
	}
	c.log.WithFields(logrus.Fields{"from": challenger.Pseudo, "to": challengee.Pseudo}).Info("challenge refused")
	challenger.Send(fmt.Sprintf("%s refused your challenge.", challengee.Pseudo))
	challengee.Send(fmt.Sprintf("You refused the challenge from %s.", challenger.Pseudo))
	return nil
}

// CancelOnDisconnect clears whatever challenge p holds, in either
// direction, and notifies the counterpart. Safe to call when p holds
// none.
func (c *Coordinator) CancelOnDisconnect(p *player.Player) {
	sent, received := p.ChallengeState()
	otherPseudo := sent
	if otherPseudo == "" {
		otherPseudo = received
	}
	if otherPseudo == "" {
		return
	}
	other, ok := c.players.Lookup(otherPseudo)
	if !ok {
		p.Lock()
		p.ClearChallengeLocked()
		p.Unlock()
		return
	}

	unlock := player.LockPair(p, other)
	p.ClearChallengeLocked()
	// only clear the counterpart's side if it still points at p
	if other.SentToLocked() == p.Pseudo || other.ReceivedFromLocked() == p.Pseudo {
		other.ClearChallengeLocked()
		unlock()
		other.Send(fmt.Sprintf("%s disconnected. The challenge is cancelled.", p.Pseudo))
		return
	}
	unlock()
}
