package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bookx-exchange/apiserver/internal/mq"
	"github.com/bookx-exchange/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type replayBackend struct {
	messages []mq.Message
	channel  string
}

func (b *replayBackend) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	return "", nil
}

func (b *replayBackend) Subscribe(ctx context.Context, channel string, handler mq.Handler) error {
	b.channel = channel
	for _, msg := range b.messages {
		if err := handler(ctx, msg); err != nil {
			return err
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

func (b *replayBackend) Close() error { return nil }

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchActivityLogsEntries(t *testing.T) {
	entry := types.UserActionLog{
		ID:          7,
		UserName:    "Alice Johnson",
		ActionType:  types.ActionBookCreated,
		Description: "Created book: Dune",
		TargetID:    3,
		TargetType:  types.TargetBook,
	}
	data, err := json.Marshal(entry)
	require.NoError(t, err)

	backend := &replayBackend{messages: []mq.Message{
		{ID: "m-1", Data: data},
		{ID: "m-2", Data: []byte("{not json")},
	}}
	logs := &lockedBuffer{}
	logger := slog.New(slog.NewTextHandler(logs, nil))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- WatchActivity(ctx, mq.New("replay", backend), "bookx.activity", logger)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(logs.String(), "dropping malformed activity message")
	}, time.Second, 10*time.Millisecond)
	cancel()

	assert.NoError(t, <-done)
	assert.Equal(t, "bookx.activity", backend.channel)
	assert.Contains(t, logs.String(), "action_type=BOOK_CREATED")
	assert.Contains(t, logs.String(), `description="Created book: Dune"`)
	assert.Contains(t, logs.String(), "message_id=m-2")
}
