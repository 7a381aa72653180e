package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishWithoutClientFails(t *testing.T) {
	t.Parallel()

	_, err := New(nil, "").Publish(context.Background(), "audit.completed", map[string]int{"score": 1})
	require.Error(t, err)

	_, err = Open(context.Background(), "", "")
	require.Error(t, err)
}

func TestTopicNameAndCarrier(t *testing.T) {
	t.Parallel()

	p := New(nil, "prospect-")
	assert.Equal(t, "prospect-audit.completed", p.TopicName("audit.completed"))

	c := carrier{}
	c.Set("traceparent", "00-abc")
	assert.Equal(t, "00-abc", c.Get("traceparent"))
	assert.Equal(t, []string{"traceparent"}, c.Keys())
}
