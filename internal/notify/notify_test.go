package notify

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	foundationerrors "git.home.luguber.info/inful/sitepress/internal/foundation/errors"
)

func TestConnectFailureIsNetworkError(t *testing.T) {
	_, err := Connect("nats://127.0.0.1:1", "builds")
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryNetwork))
}

func TestConnectRequiresSubject(t *testing.T) {
	_, err := Connect("nats://127.0.0.1:4222", "")
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryConfig))
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	require.NoError(t, p.Publish(context.Background(), &Event{}))
	require.NoError(t, p.Close())
}

// TestNATSPublisher needs a running server, e.g. SITEPRESS_TEST_NATS=nats://127.0.0.1:4222.
func TestNATSPublisher(t *testing.T) {
	url := os.Getenv("SITEPRESS_TEST_NATS")
	if url == "" {
		t.Skip("SITEPRESS_TEST_NATS not set")
	}
	sub, err := nats.Connect(url)
	require.NoError(t, err)
	defer sub.Close()
	ch := make(chan *nats.Msg, 1)
	s, err := sub.ChanSubscribe("sitepress.test", ch)
	require.NoError(t, err)
	defer func() { _ = s.Unsubscribe() }()
	require.NoError(t, sub.Flush())

	p, err := Connect(url, "sitepress.test")
	require.NoError(t, err)
	defer func() { _ = p.Close() }()
	require.NoError(t, p.Publish(context.Background(), &Event{BuildID: "b1", Outcome: "success", Pages: 3}))

	select {
	case msg := <-ch:
		var ev Event
		require.NoError(t, json.Unmarshal(msg.Data, &ev))
		assert.Equal(t, "b1", ev.BuildID)
		assert.Equal(t, 3, ev.Pages)
	case <-time.After(5 * time.Second):
		t.Fatal("no event received")
	}
}
