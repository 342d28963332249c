package events

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	msgs   []*Message
	err    error
	closed bool
}

func (r *recordingPublisher) Publish(msg *Message) error {
	r.msgs = append(r.msgs, msg)
	return r.err
}

func (r *recordingPublisher) Close() error {
	r.closed = true
	return nil
}

func TestMultiPublishesToAll(t *testing.T) {
	failing := &recordingPublisher{err: errors.New("down")}
	ok := &recordingPublisher{}
	m := Multi{failing, ok}

	err := m.Publish(&Message{Name: "VouchCreated"})
	assert.ErrorContains(t, err, "down")
	assert.Len(t, failing.msgs, 1)
	assert.Len(t, ok.msgs, 1)

	require.NoError(t, m.Close())
	assert.True(t, failing.closed)
	assert.True(t, ok.closed)
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop.Publish(&Message{}))
	assert.NoError(t, Nop.Close())
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "oracle.events.DisputeResolved", subject("oracle.events", "DisputeResolved"))
}

func TestHubStreamsMessages(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	sent := &Message{TxID: "tx-1", Name: "AgentRegistered", Payload: json.RawMessage(`{"authority":"alice"}`)}
	require.NoError(t, hub.Publish(sent))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Message
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "tx-1", got.TxID)
	assert.Equal(t, "AgentRegistered", got.Name)
	assert.JSONEq(t, `{"authority":"alice"}`, string(got.Payload))

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	require.Eventually(t, func() bool { return hub.Subscribers() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHubCloseDisconnectsSubscribers(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Close())
	assert.Zero(t, hub.Subscribers())

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
	assert.NoError(t, hub.Publish(&Message{Name: "late"}))
}
