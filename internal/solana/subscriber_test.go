package solana

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// startNode runs serve on every websocket connection it accepts.
func startNode(t *testing.T, serve func(t *testing.T, c *websocket.Conn)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		serve(t, c)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func drain(_ *testing.T, c *websocket.Conn) {
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}

// confirmingNode acks signatureSubscribe with subID and then notifies once.
func confirmingNode(subID int64, txErr interface{}) func(*testing.T, *websocket.Conn) {
	return func(t *testing.T, c *websocket.Conn) {
		var req subscribeRequest
		if err := c.ReadJSON(&req); err != nil {
			return
		}
		assert.Equal(t, "signatureSubscribe", req.Method)
		assert.Len(t, req.Params, 2)

		if err := c.WriteJSON(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": subID}); err != nil {
			return
		}
		_ = c.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0",
			"method":  "signatureNotification",
			"params": map[string]interface{}{
				"subscription": subID,
				"result": map[string]interface{}{
					"context": map[string]interface{}{"slot": 100},
					"value":   map[string]interface{}{"err": txErr},
				},
			},
		})
		drain(t, c)
	}
}

func newSubscriber(t *testing.T, url string, cfg *SubscriberConfig) *SignatureSubscriber {
	t.Helper()
	s, err := NewSignatureSubscriber(context.Background(), url, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSignatureSubscriber_Notification(t *testing.T) {
	s := newSubscriber(t, startNode(t, confirmingNode(12345, nil)), nil)

	sig := Signature{42}
	ch, err := s.SubscribeSignature(context.Background(), sig, CommitmentConfirmed)
	require.NoError(t, err)

	select {
	case n, ok := <-ch:
		require.True(t, ok, "channel closed without notification")
		assert.Equal(t, sig, n.Signature)
		assert.Equal(t, int64(100), n.Slot)
		assert.Nil(t, n.Err)
	case <-time.After(2 * time.Second):
		t.Fatal("no notification")
	}

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel must close after the notification")
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
}

func TestSignatureSubscriber_TransactionErrorAndZeroID(t *testing.T) {
	txErr := map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}
	s := newSubscriber(t, startNode(t, confirmingNode(0, txErr)), nil)

	ch, err := s.SubscribeSignature(context.Background(), Signature{1}, CommitmentFinalized)
	require.NoError(t, err)

	select {
	case n := <-ch:
		assert.NotNil(t, n.Err)
	case <-time.After(2 * time.Second):
		t.Fatal("no notification")
	}
}

func TestSignatureSubscriber_RequestCarriesCommitment(t *testing.T) {
	got := make(chan subscribeRequest, 1)
	url := startNode(t, func(t *testing.T, c *websocket.Conn) {
		var req subscribeRequest
		if err := c.ReadJSON(&req); err == nil {
			got <- req
		}
		drain(t, c)
	})
	s := newSubscriber(t, url, &SubscriberConfig{AckDeadline: 50 * time.Millisecond})

	sig := Signature{7}
	_, err := s.SubscribeSignature(context.Background(), sig, CommitmentFinalized)
	require.Error(t, err, "no ack is sent, so subscribe must time out")

	req := <-got
	assert.Equal(t, sig.String(), req.Params[0])
	opts, ok := req.Params[1].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "finalized", opts["commitment"])
}

func TestSignatureSubscriber_ErrorReplyFailsSubscribe(t *testing.T) {
	var logs strings.Builder
	url := startNode(t, func(t *testing.T, c *websocket.Conn) {
		var req subscribeRequest
		if err := c.ReadJSON(&req); err != nil {
			return
		}
		_ = c.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   map[string]interface{}{"code": -32602, "message": "Invalid params"},
		})
		drain(t, c)
	})
	s := newSubscriber(t, url, &SubscriberConfig{
		AckDeadline: 10 * time.Second,
		Logger:      newBufferLogger(&logs),
	})

	start := time.Now()
	_, err := s.SubscribeSignature(context.Background(), Signature{3}, CommitmentConfirmed)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second, "error reply must end the wait")

	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32602, rpcErr.Code)

	s.Close()
	assert.Contains(t, logs.String(), "Invalid params")
}

func TestSignatureSubscriber_ReleaseOnContextEnd(t *testing.T) {
	unsub := make(chan subscribeRequest, 1)
	url := startNode(t, func(t *testing.T, c *websocket.Conn) {
		var req subscribeRequest
		if err := c.ReadJSON(&req); err != nil {
			return
		}
		if err := c.WriteJSON(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": 7}); err != nil {
			return
		}
		for {
			var next subscribeRequest
			if err := c.ReadJSON(&next); err != nil {
				return
			}
			if next.Method == "signatureUnsubscribe" {
				unsub <- next
			}
		}
	})
	s := newSubscriber(t, url, nil)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := s.SubscribeSignature(ctx, Signature{5}, CommitmentConfirmed)
	require.NoError(t, err)
	assert.Equal(t, 1, s.activeCount())

	cancel()

	select {
	case req := <-unsub:
		require.Len(t, req.Params, 1)
		assert.Equal(t, float64(7), req.Params[0])
	case <-time.After(2 * time.Second):
		t.Fatal("no signatureUnsubscribe after context end")
	}
	assert.Equal(t, 0, s.activeCount())
}

func TestSignatureSubscriber_Close(t *testing.T) {
	s := newSubscriber(t, startNode(t, drain), nil)

	require.NoError(t, s.Close())
	assert.True(t, s.closed.Load())
	assert.NoError(t, s.Close(), "second Close is a no-op")

	_, err := s.SubscribeSignature(context.Background(), Signature{}, CommitmentConfirmed)
	assert.ErrorIs(t, err, ErrSubscriberClosed)
}

func TestSignatureSubscriber_ContextCancel(t *testing.T) {
	s := newSubscriber(t, startNode(t, drain), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := s.SubscribeSignature(ctx, Signature{2}, CommitmentConfirmed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Empty(t, s.waiting)
}

func TestSignatureSubscriber_DialFailure(t *testing.T) {
	_, err := NewSignatureSubscriber(context.Background(), "ws://127.0.0.1:1", nil)
	assert.Error(t, err)
}

func TestSubscriberConfig_Normalize(t *testing.T) {
	c := SubscriberConfig{KeepAlive: 5 * time.Second}.normalize()
	def := DefaultSubscriberConfig()

	assert.Equal(t, 5*time.Second, c.KeepAlive)
	assert.Equal(t, def.AckDeadline, c.AckDeadline)
	assert.Equal(t, def.MaxBackoff, c.MaxBackoff)
	assert.NotNil(t, c.Logger)
}

func TestInboundFrame_Decode(t *testing.T) {
	var f inboundFrame
	raw := `{"jsonrpc":"2.0","method":"signatureNotification","params":{"subscription":9,"result":{"context":{"slot":5},"value":{"err":null}}}}`
	require.NoError(t, json.Unmarshal([]byte(raw), &f))

	var p signatureParams
	require.NoError(t, json.Unmarshal(f.Params, &p))
	assert.Equal(t, int64(9), p.Subscription)
	require.NotNil(t, p.Result.Context)
	assert.Equal(t, int64(5), p.Result.Context.Slot)
	assert.Nil(t, p.Result.Value.Err)
}

func newBufferLogger(w io.Writer) *log.Logger {
	return log.New(w, "", 0)
}
