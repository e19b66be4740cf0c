package mq

import (
	"context"
	"testing"

	"github.com/bookx-exchange/apiserver/config"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBackend struct {
	published []Message
	closed    bool
}

func (b *recordingBackend) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	b.published = append(b.published, Message{ID: channel, Data: data, Attributes: attrs})
	return "id-1", nil
}

func (b *recordingBackend) Subscribe(ctx context.Context, channel string, handler Handler) error {
	for _, msg := range b.published {
		if err := handler(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (b *recordingBackend) Close() error {
	b.closed = true
	return nil
}

func TestOpenSelectsBackend(t *testing.T) {
	_, err := Open(context.Background(), config.MQConfig{Backend: "none"})
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = Open(context.Background(), config.MQConfig{})
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = Open(context.Background(), config.MQConfig{Backend: "kafka"})
	assert.ErrorContains(t, err, "unknown mq backend")

	_, err = Open(context.Background(), config.MQConfig{Backend: "RabbitMQ"})
	assert.ErrorContains(t, err, "rabbitmq url is required")

	_, err = Open(context.Background(), config.MQConfig{Backend: "pubsub"})
	assert.ErrorContains(t, err, "pubsub project id is required")
}

func TestMQRequiresChannel(t *testing.T) {
	backend := &recordingBackend{}
	queue := New("test", backend)

	_, err := queue.Publish(context.Background(), " ", []byte("{}"), nil)
	assert.Error(t, err)
	assert.Empty(t, backend.published)

	id, err := queue.Publish(context.Background(), "bookx.activity", []byte(`{"id":1}`), map[string]string{"action_type": "BOOK_CREATED"})
	require.NoError(t, err)
	assert.Equal(t, "id-1", id)

	var received []Message
	err = queue.Subscribe(context.Background(), "bookx.activity", func(ctx context.Context, msg Message) error {
		received = append(received, msg)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, "BOOK_CREATED", received[0].Attributes["action_type"])

	require.NoError(t, queue.Close())
	assert.True(t, backend.closed)
	assert.Equal(t, "test", queue.Name())
}

func TestHeadersToAttributes(t *testing.T) {
	assert.Nil(t, headersToAttributes(nil))

	attrs := headersToAttributes(amqp.Table{
		"action_type": "BOOK_BORROWED",
		"target_type": []byte("BOOK"),
		"attempt":     int32(2),
	})
	assert.Equal(t, map[string]string{
		"action_type": "BOOK_BORROWED",
		"target_type": "BOOK",
		"attempt":     "2",
	}, attrs)
}

func TestSubscriptionName(t *testing.T) {
	assert.Equal(t, "bookx.activity-sub", subscriptionName("bookx.activity", ""))
	assert.Equal(t, "bookx.activity-audit", subscriptionName("bookx.activity", "-audit"))
}
