// Package kafka publishes security audit events to a Kafka topic so SIEM
// consumers can subscribe independently of the gateway's lifecycle.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "eventgate/pkg/platform/audit"
)

// DefaultTopic is where gate audit events land unless overridden.
const DefaultTopic = "eventgate.security-audit"

// Publisher emits audit events as JSON records keyed by site ID, so a
// partition preserves per-site ordering.
type Publisher struct {
	client *kgo.Client
	topic  string
}

type Option func(*Publisher)

func WithTopic(topic string) Option {
	return func(p *Publisher) {
		p.topic = topic
	}
}

// New connects to the brokers and ensures the audit topic exists.
func New(ctx context.Context, brokers []string, opts ...Option) (*Publisher, error) {
	p := &Publisher{topic: DefaultTopic}
	for _, opt := range opts {
		opt(p)
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(p.topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	p.client = client

	if err := p.ensureTopic(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return p, nil
}

// ensureTopic creates the audit topic if missing. Already-exists responses
// are not errors: multiple gateway instances race here at startup.
func (p *Publisher) ensureTopic(ctx context.Context) error {
	adm := kadm.NewClient(p.client)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	topics, err := adm.ListTopics(ctx)
	if err != nil {
		return fmt.Errorf("list kafka topics: %w", err)
	}
	if topics.Has(p.topic) {
		return nil
	}

	_, err = adm.CreateTopic(ctx, 3, 1, nil, p.topic)
	if err != nil {
		return fmt.Errorf("create audit topic %q: %w", p.topic, err)
	}
	return nil
}

// Emit produces the event synchronously. Callers that must not block wrap
// this publisher with the async buffered publisher.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	record := &kgo.Record{
		Key:   []byte(event.SiteID),
		Value: payload,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// Close flushes outstanding records and releases the client.
func (p *Publisher) Close() {
	p.client.Close()
}
