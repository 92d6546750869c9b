package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryPublishConsume(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	q := NewInMemory(4)
	msgs, err := q.Consume(ctx)
	require.NoError(t, err)

	want := Message{Type: "consolidate", Body: []byte("emp-1|2026-03-02")}
	require.NoError(t, q.Publish(ctx, want))

	got := <-msgs
	assert.Equal(t, want.Type, got.Type)
	assert.Equal(t, want.Body, got.Body)
}

func TestSerializeRoundTrip(t *testing.T) {
	msg := Message{Type: "consolidate", Body: []byte("emp-1|2026-03-02")}
	out, err := deserialize(serialize(msg))
	require.NoError(t, err)
	assert.Equal(t, msg.Type, out.Type)
	// Body may itself contain the separator; only the first one splits.
	assert.Equal(t, msg.Body, out.Body)
}

func TestPublishCancelledContext(t *testing.T) {
	q := NewInMemory(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := q.Publish(ctx, Message{Type: "consolidate"})
	assert.Error(t, err)
}
