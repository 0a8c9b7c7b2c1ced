package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockNATSClient_PublishFansOut(t *testing.T) {
	client := NewMockNATSClient()
	ctx := context.Background()

	var first, second [][]byte
	require.NoError(t, client.Subscribe(ctx, "sonto.events", func(_ context.Context, data []byte) {
		first = append(first, data)
	}))
	require.NoError(t, client.Subscribe(ctx, "sonto.events", func(_ context.Context, data []byte) {
		second = append(second, data)
		// Subscribing from a handler must not change the current delivery.
		_ = client.Subscribe(ctx, "sonto.events", func(context.Context, []byte) {})
	}))

	require.NoError(t, client.Publish(ctx, "sonto.events", []byte("exon")))
	assert.Equal(t, [][]byte{[]byte("exon")}, first)
	assert.Equal(t, [][]byte{[]byte("exon")}, second)
	assert.Equal(t, 1, client.GetMessageCount("sonto.events"))

	require.NoError(t, client.Close())
	assert.ErrorIs(t, client.Publish(ctx, "sonto.events", nil), ErrMockClosed)
}
