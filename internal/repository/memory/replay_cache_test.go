package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReplayCache(t *testing.T) {
	c := NewReplayCache(time.Minute)

	assert.False(t, c.Seen("midtrans", "tx-1:settlement"))
	c.MarkProcessed("midtrans", "tx-1:settlement")
	assert.True(t, c.Seen("midtrans", "tx-1:settlement"))
	assert.False(t, c.Seen("sandbox", "tx-1:settlement"), "keys are scoped per provider")

	c.Forget("midtrans", "tx-1:settlement")
	assert.False(t, c.Seen("midtrans", "tx-1:settlement"))
}

func TestReplayCacheExpires(t *testing.T) {
	c := NewReplayCache(20 * time.Millisecond)
	c.MarkProcessed("midtrans", "e1")

	assert.Eventually(t, func() bool {
		return !c.Seen("midtrans", "e1")
	}, time.Second, 10*time.Millisecond)
}
