package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisherStoresMessages(t *testing.T) {
	t.Parallel()

	pub := New()
	id1, err := pub.Publish(context.Background(), "audit.completed", map[string]string{"k": "v"})
	require.NoError(t, err)
	assert.Equal(t, "memory-1", id1)
	id2, err := pub.Publish(context.Background(), "search.completed", "payload")
	require.NoError(t, err)
	assert.Equal(t, "memory-2", id2)

	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	assert.Len(t, pub.Messages("audit.completed"), 1)

	msgs[0].Topic = "modified"
	assert.Equal(t, "audit.completed", pub.Messages()[0].Topic)
}

func TestPublisherFailure(t *testing.T) {
	t.Parallel()

	pub := New()
	pub.FailWith(errors.New("unavailable"))
	_, err := pub.Publish(context.Background(), "audit.completed", nil)
	require.Error(t, err)
	assert.Empty(t, pub.Messages())
}
