package sinks

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestClient_EnqueueOldestDropPolicy exercises the queue-drop-count
// invariant directly against the client's bounded queue: pushing N
// messages past capacity drops exactly N-capacity, always the oldest,
// and retains the newest.
func TestClient_EnqueueOldestDropPolicy(t *testing.T) {
	const cap = 4
	const total = 10
	c := &client{queue: make(chan []byte, cap)}

	var drops int
	for i := 0; i < total; i++ {
		if c.enqueue([]byte(fmt.Sprintf("msg-%d", i))) {
			drops++
		}
	}

	require.Equal(t, total-cap, drops)
	assert.Equal(t, cap, len(c.queue))

	var got []string
	for len(c.queue) > 0 {
		got = append(got, string(<-c.queue))
	}
	assert.Equal(t, []string{"msg-6", "msg-7", "msg-8", "msg-9"}, got)
}

func TestClient_EnqueueUnderCapacityNeverDrops(t *testing.T) {
	c := &client{queue: make(chan []byte, 8)}
	for i := 0; i < 5; i++ {
		assert.False(t, c.enqueue([]byte("x")))
	}
	assert.Equal(t, 5, len(c.queue))
}
