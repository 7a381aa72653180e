// Package pubsub publishes completion events to Google Cloud Pub/Sub.
package pubsub

import (
	"context"
	"encoding/json"
	"sync"

	"cloud.google.com/go/pubsub"
	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel"
)

// Publisher publishes JSON payloads to Pub/Sub topics, creating topic
// handles lazily.
type Publisher struct {
	client *pubsub.Client
	prefix string

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
}

// New wraps client. Topic names are prefixed with prefix when it is set.
func New(client *pubsub.Client, prefix string) *Publisher {
	return &Publisher{client: client, prefix: prefix, topics: make(map[string]*pubsub.Topic)}
}

// Open creates a client for projectID.
func Open(ctx context.Context, projectID, prefix string) (*Publisher, error) {
	if projectID == "" {
		return nil, eris.New("pubsub: project id is required")
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, eris.Wrap(err, "pubsub: create client")
	}
	return New(client, prefix), nil
}

// TopicName applies the configured prefix.
func (p *Publisher) TopicName(topic string) string {
	return p.prefix + topic
}

func (p *Publisher) topic(name string) *pubsub.Topic {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.topics[name]
	if !ok {
		t = p.client.Topic(name)
		p.topics[name] = t
	}
	return t
}

// Publish marshals payload to JSON and waits for the server id.
func (p *Publisher) Publish(ctx context.Context, topic string, payload any) (string, error) {
	if p == nil || p.client == nil {
		return "", eris.New("pubsub: publisher is not configured")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", eris.Wrap(err, "pubsub: marshal payload")
	}

	msg := &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"event_type": topic, "content_type": "application/json"},
	}
	otel.GetTextMapPropagator().Inject(ctx, carrier(msg.Attributes))

	id, err := p.topic(p.TopicName(topic)).Publish(ctx, msg).Get(ctx)
	if err != nil {
		return "", eris.Wrapf(err, "pubsub: publish to %s", topic)
	}
	return id, nil
}

// Close flushes pending messages and closes the client.
func (p *Publisher) Close() error {
	p.mu.Lock()
	for _, t := range p.topics {
		t.Stop()
	}
	p.mu.Unlock()
	return eris.Wrap(p.client.Close(), "pubsub: close client")
}

// carrier adapts message attributes to propagation.TextMapCarrier.
type carrier map[string]string

func (c carrier) Get(key string) string { return c[key] }

func (c carrier) Set(key, value string) { c[key] = value }

func (c carrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}
