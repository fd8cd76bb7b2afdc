package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelQueueEnqueueAndDrain(t *testing.T) {
	q := NewChannelQueue(2)
	require.NoError(t, q.Enqueue(Point{Name: "a", Value: 1}))

	p := <-q.Points()
	assert.Equal(t, "a", p.Name)
	assert.Equal(t, 1.0, p.Value)
}

func TestChannelQueueDropsWhenFull(t *testing.T) {
	q := NewChannelQueue(1)
	require.NoError(t, q.Enqueue(Point{Name: "a"}))

	err := q.Enqueue(Point{Name: "b"})
	assert.ErrorIs(t, err, ErrFull)
	assert.Equal(t, uint64(1), q.Dropped())
}
