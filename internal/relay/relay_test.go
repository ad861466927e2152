package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/awale-live/awale/internal/game"
)

func TestNilRelayIsInert(t *testing.T) {
	var r *Relay
	assert.NotPanics(t, func() {
		r.PublishResult(game.Result{GameID: 1})
	})
	assert.NoError(t, r.Close())
}
