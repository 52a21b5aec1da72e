package poller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeClearer struct {
	m       sync.Mutex
	cleared []string
	err     error
}

func (f *fakeClearer) ClearCart(_ context.Context, userID string) error {
	f.m.Lock()
	defer f.m.Unlock()
	if f.err != nil {
		return f.err
	}
	f.cleared = append(f.cleared, userID)
	return nil
}

func (f *fakeClearer) users() []string {
	f.m.Lock()
	defer f.m.Unlock()
	return append([]string(nil), f.cleared...)
}

// fakeReader hands out queued messages, then blocks until ctx is done.
type fakeReader struct {
	messages chan kafka.Message
	closed   bool
}

func (f *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-f.messages:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

func TestHandleMessage(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
		cleared []string
	}{
		{"valid event", `{"checkout_id":"ch1","user_id":"u1","total_amount":"10"}`, false, []string{"u1"}},
		{"malformed json", `{"user_id":`, true, nil},
		{"missing user", `{"checkout_id":"ch1"}`, true, nil},
		{"numeric user", `{"user_id":123}`, true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearer := &fakeClearer{}
			p := NewPollerWithReader(clearer, &fakeReader{}, discardLogger())

			err := p.handleMessage(context.Background(), []byte(tt.payload))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.cleared, clearer.users())
		})
	}
}

func TestHandleMessage_ClearError(t *testing.T) {
	clearer := &fakeClearer{err: errors.New("mongo down")}
	p := NewPollerWithReader(clearer, &fakeReader{}, discardLogger())

	err := p.handleMessage(context.Background(), []byte(`{"user_id":"u1"}`))
	assert.ErrorContains(t, err, "mongo down")
}

func TestRun_SkipsBadMessagesAndStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	clearer := &fakeClearer{}
	reader := &fakeReader{messages: make(chan kafka.Message, 3)}
	reader.messages <- kafka.Message{Value: []byte(`not json`)}
	reader.messages <- kafka.Message{Value: []byte(`{"user_id":"u1"}`)}
	reader.messages <- kafka.Message{Value: []byte(`{"user_id":"u2"}`)}

	p := NewPollerWithReader(clearer, reader, discardLogger())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return len(clearer.users()) == 2
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"u1", "u2"}, clearer.users())

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancel")
	}

	p.Close()
	assert.True(t, reader.closed)
}
