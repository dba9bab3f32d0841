// Package events publishes completed weather lookups to Google Cloud
// Pub/Sub.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/weatherlens/weatherlens/internal/app"
)

// TypeLookupCompleted is the event type of a committed lookup.
const TypeLookupCompleted = "lookup.completed"

// LookupCompleted is the message body published for each committed lookup.
type LookupCompleted struct {
	Type    string    `json:"type"`
	Place   string    `json:"place"`
	Country string    `json:"country"`
	Source  string    `json:"source"`
	At      time.Time `json:"at"`
}

// SendFunc delivers one encoded message and waits for the broker's
// acknowledgement.
type SendFunc func(ctx context.Context, data []byte, attrs map[string]string) error

// PublisherConfig holds configuration for the Pub/Sub publisher.
type PublisherConfig struct {
	ProjectID string
	Topic     string
	Timeout   time.Duration // per publish, default 5s
	Logger    zerolog.Logger
}

// Publisher sends lookup events in the background. Publish failures are
// logged and never affect the lookup that produced them.
type Publisher struct {
	send    SendFunc
	close   func() error
	timeout time.Duration
	logger  zerolog.Logger

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// NewPublisher creates a Pub/Sub client and a publisher for the topic.
func NewPublisher(ctx context.Context, cfg PublisherConfig) (*Publisher, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	topic := client.Publisher(cfg.Topic)
	send := func(ctx context.Context, data []byte, attrs map[string]string) error {
		_, err := topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs}).Get(ctx)
		return err
	}
	closeFn := func() error {
		topic.Stop()
		return client.Close()
	}

	p := NewPublisherWithSender(send, cfg)
	p.close = closeFn
	return p, nil
}

// NewPublisherWithSender creates a publisher that delivers through send.
func NewPublisherWithSender(send SendFunc, cfg PublisherConfig) *Publisher {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Publisher{
		send:    send,
		close:   func() error { return nil },
		timeout: timeout,
		logger:  cfg.Logger.With().Str("component", "events").Str("topic", cfg.Topic).Logger(),
	}
}

// LookupCompleted implements app.Listener.
func (p *Publisher) LookupCompleted(ctx context.Context, c app.Completion) {
	event := LookupCompleted{
		Type:    TypeLookupCompleted,
		Place:   c.Result.Current.Place,
		Country: c.Result.Current.Country,
		Source:  string(c.Source),
		At:      c.At.UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to encode event")
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.logger.Debug().Str("place", event.Place).Msg("publisher closed, dropping lookup event")
		return
	}

	// The request context may end as soon as the page is written.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		defer cancel()
		p.deliver(ctx, event.Place, data)
	}()
}

func (p *Publisher) deliver(ctx context.Context, place string, data []byte) {
	if err := p.send(ctx, data, map[string]string{"type": TypeLookupCompleted}); err != nil {
		p.logger.Warn().Err(err).Str("place", place).Msg("failed to publish lookup event")
		return
	}
	p.logger.Debug().Str("place", place).Msg("published lookup event")
}

// Close stops accepting events, waits for in-flight publishes and closes
// the client.
func (p *Publisher) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.inflight.Wait()
	return p.close()
}

var _ app.Listener = (*Publisher)(nil)
