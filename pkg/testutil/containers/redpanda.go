//go:build integration

package containers

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	tcredpanda "github.com/testcontainers/testcontainers-go/modules/redpanda"
)

// RedpandaContainer wraps a testcontainers Redpanda instance, used as a
// Kafka-compatible broker in integration tests.
type RedpandaContainer struct {
	Container testcontainers.Container
	Broker    string
}

// NewRedpandaContainer starts a Redpanda broker. Ryuk reaps the container
// after the test process exits.
func NewRedpandaContainer(t *testing.T) *RedpandaContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcredpanda.Run(ctx, "docker.redpanda.com/redpandadata/redpanda:v24.1.2")
	if err != nil {
		t.Fatalf("failed to start redpanda container: %v", err)
	}

	broker, err := container.KafkaSeedBroker(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get redpanda seed broker: %v", err)
	}

	return &RedpandaContainer{
		Container: container,
		Broker:    broker,
	}
}
