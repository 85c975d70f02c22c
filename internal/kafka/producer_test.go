package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestProducer_CloseWithoutTraffic(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := NewProducer([]string{"127.0.0.1:1"}, orders.TopicOrderPlaced, 8, zaptest.NewLogger(t))
	p.Start()
	p.Close()
	p.Close()

	err := p.Publish(context.Background(), []byte("k"), []byte("v"))
	assert.ErrorIs(t, err, ErrProducerClosed)
}

func TestProducer_PublishHonorsContextWhenFull(t *testing.T) {
	p := NewProducer([]string{"127.0.0.1:1"}, orders.TopicOrderPlaced, 0, zaptest.NewLogger(t))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Publish(ctx, []byte("k"), []byte("v"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEnvelopeRoundTrip(t *testing.T) {
	payload := orders.ProductRestockedPayload{ProductID: 3, Quantity: 10}
	env := orders.NewEnvelope(orders.EventProductRestocked, "test", "", "3", MustMarshal(payload))

	got, err := UnmarshalEnvelope(MustMarshal(env))
	require.NoError(t, err)
	assert.Equal(t, env.EventID, got.EventID)
	assert.Equal(t, orders.EventProductRestocked, got.EventType)

	p, err := UnwrapPayload[orders.ProductRestockedPayload](got.Payload)
	require.NoError(t, err)
	assert.Equal(t, payload, p)

	h := EnvelopeHeaders(env)
	require.Len(t, h, 2)
	assert.Equal(t, HeaderEventType, h[0].Key)
	assert.Equal(t, "1", string(h[1].Value))
}

func TestUnmarshalEnvelope_Garbage(t *testing.T) {
	_, err := UnmarshalEnvelope([]byte("{not json"))
	assert.Error(t, err)
}
