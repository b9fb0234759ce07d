package events

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/batchflow/internal/domain/scenario"
	logginginfra "github.com/alexisbeaulieu97/batchflow/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/batchflow/internal/ports"
)

func TestLoggingPublisherIncludesCorrelationID(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	logger, err := logginginfra.New(logginginfra.Options{
		Writer:    buf,
		Level:     "info",
		Layer:     "test",
		Component: "publisher",
	})
	require.NoError(t, err)

	publisher := NewLoggingPublisher(logger)

	ctx := logginginfra.WithCorrelationID(context.Background(), "abc-123")
	err = publisher.Publish(ctx, scenario.StepStarted{StepID: "load_orders"})
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "engine event", entry["message"])
	require.Equal(t, scenario.EventStepStarted, entry["event_type"])
	require.Equal(t, "abc-123", entry["correlation_id"])
	require.Equal(t, "load_orders", entry["step_id"])
}

func TestLoggingPublisherInvokesSubscribers(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	logger, err := logginginfra.New(logginginfra.Options{
		Writer:    buf,
		Level:     "info",
		Layer:     "test",
		Component: "publisher",
	})
	require.NoError(t, err)

	publisher := NewLoggingPublisher(logger)

	var handled, wildcard int
	_, err = publisher.Subscribe(scenario.EventScenarioFinished, func(ctx context.Context, event ports.DomainEvent) error {
		handled++
		return nil
	})
	require.NoError(t, err)
	sub, err := publisher.Subscribe(ports.AllEvents, func(ctx context.Context, event ports.DomainEvent) error {
		wildcard++
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, publisher.Publish(context.Background(), scenario.StepLog{StepID: "a", Line: "hello"}))
	require.NoError(t, publisher.Publish(context.Background(), scenario.ScenarioFinished{RunID: "run"}))
	require.Equal(t, 1, handled, "typed subscriber should be invoked once")
	require.Equal(t, 2, wildcard, "wildcard subscriber should see every event")

	sub.Unsubscribe()
	require.NoError(t, publisher.Publish(context.Background(), scenario.ScenarioFinished{RunID: "run"}))
	require.Equal(t, 2, wildcard)
}

func TestLoggingPublisherQuietTypesLogAtDebug(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	logger, err := logginginfra.New(logginginfra.Options{Writer: buf, Level: "info"})
	require.NoError(t, err)

	publisher := NewLoggingPublisher(logger, scenario.EventStepLog)
	require.NoError(t, publisher.Publish(context.Background(), scenario.StepLog{StepID: "a", Line: "noisy"}))
	require.Zero(t, buf.Len())

	require.NoError(t, publisher.Publish(context.Background(), sampleEvent{eventType: "custom", payload: "raw"}))
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "raw", entry["payload"])
}

type sampleEvent struct {
	eventType string
	payload   interface{}
}

func (e sampleEvent) EventType() string    { return e.eventType }
func (e sampleEvent) Payload() interface{} { return e.payload }
