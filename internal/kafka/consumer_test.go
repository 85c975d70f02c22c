package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

type fakeReader struct {
	mu      sync.Mutex
	pending []kafka.Message
	commits []int64
	closed  bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.pending) > 0 {
		m := r.pending[0]
		r.pending = r.pending[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.commits = append(r.commits, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) committed() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.commits...)
}

func newTestConsumer(t *testing.T, r reader, workers int) *Consumer {
	c := newConsumer(r, workers, zaptest.NewLogger(t))
	c.retryInitial = time.Millisecond
	c.retryMax = 5 * time.Millisecond
	return c
}

func TestConsumer_RetriesBeforeCommittingLaterOffsets(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := &fakeReader{pending: []kafka.Message{
		{Partition: 0, Offset: 10},
		{Partition: 0, Offset: 11},
	}}
	c := newTestConsumer(t, r, 2)

	var mu sync.Mutex
	var handled []int64
	failures := 2
	h := func(_ context.Context, m kafka.Message) error {
		mu.Lock()
		defer mu.Unlock()
		handled = append(handled, m.Offset)
		if m.Offset == 10 && failures > 0 {
			failures--
			return errors.New("connection refused")
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx, h) }()

	require.Eventually(t, func() bool { return len(r.committed()) == 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []int64{10, 11}, r.committed())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int64{10, 10, 10, 11}, handled, "11 waits until 10 succeeds")
	assert.True(t, r.closed)
}

func TestConsumer_PartitionsProgressIndependently(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := &fakeReader{pending: []kafka.Message{
		{Partition: 0, Offset: 1},
		{Partition: 1, Offset: 7},
	}}
	c := newTestConsumer(t, r, 2)

	h := func(_ context.Context, m kafka.Message) error {
		if m.Partition == 0 {
			return errors.New("stuck")
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx, h) }()

	require.Eventually(t, func() bool { return len(r.committed()) == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, []int64{7}, r.committed())
}

func TestConsumer_CancelMidRetryCommitsNothing(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := &fakeReader{pending: []kafka.Message{{Offset: 1}, {Offset: 2}}}
	c := newTestConsumer(t, r, 1)

	attempts := make(chan struct{}, 64)
	h := func(context.Context, kafka.Message) error {
		select {
		case attempts <- struct{}{}:
		default:
		}
		return errors.New("always")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx, h) }()

	<-attempts
	<-attempts
	cancel()
	require.NoError(t, <-done)
	assert.Empty(t, r.committed())
}
