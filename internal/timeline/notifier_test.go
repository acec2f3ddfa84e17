package timeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisNotifier_PublishesJSONEvent(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithTimeout(f.ctx, 5*time.Second)
	defer cancel()

	sub := f.rdb.Subscribe(ctx, Channel(7))
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	n := NewRedisNotifier(f.rdb)
	queuedAt := time.UnixMilli(1700000000000)
	require.NoError(t, n.Notify(ctx, []Delivery{{AccountID: 7, Event: newEvent(EventUpdate, 42, queuedAt)}}))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "timeline:7", msg.Channel)
	assert.JSONEq(t, `{"event":"update","payload":"42","queued_at":1700000000000}`, msg.Payload)
}
