package solana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ErrSubscriberClosed is returned by a SignatureSubscriber after Close.
var ErrSubscriberClosed = errors.New("signature subscriber closed")

// SubscriberConfig tunes a SignatureSubscriber. Zero fields take defaults.
type SubscriberConfig struct {
	// Backoff bounds for redialing a dropped connection.
	MinBackoff time.Duration
	MaxBackoff time.Duration

	KeepAlive   time.Duration
	ReadIdle    time.Duration
	WriteLimit  time.Duration
	AckDeadline time.Duration

	// Logger receives node error replies and redial events.
	Logger *log.Logger
}

// DefaultSubscriberConfig returns the settings used when none are given.
func DefaultSubscriberConfig() SubscriberConfig {
	return SubscriberConfig{
		MinBackoff:  time.Second,
		MaxBackoff:  30 * time.Second,
		KeepAlive:   30 * time.Second,
		ReadIdle:    60 * time.Second,
		WriteLimit:  10 * time.Second,
		AckDeadline: 30 * time.Second,
	}
}

func (c SubscriberConfig) normalize() SubscriberConfig {
	def := DefaultSubscriberConfig()
	pick := func(v, d time.Duration) time.Duration {
		if v > 0 {
			return v
		}
		return d
	}
	c.MinBackoff = pick(c.MinBackoff, def.MinBackoff)
	c.MaxBackoff = pick(c.MaxBackoff, def.MaxBackoff)
	c.KeepAlive = pick(c.KeepAlive, def.KeepAlive)
	c.ReadIdle = pick(c.ReadIdle, def.ReadIdle)
	c.WriteLimit = pick(c.WriteLimit, def.WriteLimit)
	c.AckDeadline = pick(c.AckDeadline, def.AckDeadline)
	if c.Logger == nil {
		c.Logger = log.New(io.Discard, "", 0)
	}
	return c
}

// watch is one signature a caller is waiting on. It survives redials.
// done closes once the watch leaves active, by delivery or by release.
type watch struct {
	sig        Signature
	commitment Commitment
	out        chan SignatureNotification
	done       chan struct{}
	released   bool // guarded by SignatureSubscriber.mu
}

// ackResult is the node's answer to a subscribe request.
type ackResult struct {
	subID int64
	err   error
}

// ack pairs an unacknowledged subscribe request with its watch.
type ack struct {
	w      *watch
	result chan ackResult
}

// SignatureSubscriber delivers signatureNotification events over one
// gorilla/websocket connection. A dropped connection is redialed and
// outstanding signatures are subscribed again.
type SignatureSubscriber struct {
	endpoint string
	cfg      SubscriberConfig

	writeMu sync.Mutex
	conn    *websocket.Conn

	mu      sync.Mutex
	active  map[int64]*watch // keyed by node subscription ID
	waiting map[uint64]*ack  // keyed by request ID

	nextID    atomic.Uint64
	closed    atomic.Bool
	redialing atomic.Bool
	quit      chan struct{}
	loops     sync.WaitGroup
}

var _ SignatureWatcher = (*SignatureSubscriber)(nil)

// NewSignatureSubscriber dials endpoint and starts the read and keepalive loops.
func NewSignatureSubscriber(ctx context.Context, endpoint string, cfg *SubscriberConfig) (*SignatureSubscriber, error) {
	var c SubscriberConfig
	if cfg != nil {
		c = *cfg
	}
	s := &SignatureSubscriber{
		endpoint: endpoint,
		cfg:      c.normalize(),
		active:   make(map[int64]*watch),
		waiting:  make(map[uint64]*ack),
		quit:     make(chan struct{}),
	}
	if err := s.dial(ctx); err != nil {
		return nil, err
	}
	s.loops.Add(2)
	go s.readLoop()
	go s.keepAlive()
	return s, nil
}

func (s *SignatureSubscriber) dial(ctx context.Context) error {
	d := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := d.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial %s: %w", s.endpoint, err)
	}
	s.writeMu.Lock()
	s.conn = conn
	s.writeMu.Unlock()
	return nil
}

func (s *SignatureSubscriber) current() *websocket.Conn {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn
}

// write runs fn under the writer lock; gorilla allows one concurrent writer.
func (s *SignatureSubscriber) write(fn func(*websocket.Conn) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.conn == nil {
		return errors.New("websocket not connected")
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteLimit))
	return fn(s.conn)
}

// SubscribeSignature returns a channel that receives exactly one
// notification for sig and is then closed. When ctx ends first the
// subscription is dropped on the node and the channel is never written.
func (s *SignatureSubscriber) SubscribeSignature(ctx context.Context, sig Signature, commitment Commitment) (<-chan SignatureNotification, error) {
	w := &watch{
		sig:        sig,
		commitment: commitment,
		out:        make(chan SignatureNotification, 1),
		done:       make(chan struct{}),
	}
	if _, err := s.register(ctx, w); err != nil {
		return nil, err
	}
	go func() {
		select {
		case <-ctx.Done():
			s.release(w)
		case <-w.done:
		case <-s.quit:
		}
	}()
	return w.out, nil
}

// release retires w if it is still active and sends signatureUnsubscribe.
func (s *SignatureSubscriber) release(w *watch) {
	subID, found := int64(0), false
	s.mu.Lock()
	w.released = true
	for id, cur := range s.active {
		if cur == w {
			subID, found = id, true
			delete(s.active, id)
			close(w.done)
			break
		}
	}
	s.mu.Unlock()
	if !found {
		return
	}

	req := subscribeRequest{
		JSONRPC: "2.0",
		ID:      s.nextID.Add(1),
		Method:  "signatureUnsubscribe",
		Params:  []interface{}{subID},
	}
	if err := s.write(func(c *websocket.Conn) error { return c.WriteJSON(req) }); err != nil {
		s.cfg.Logger.Printf("[ws] unsubscribe %s: %v", w.sig, err)
	}
}

// activeCount reports how many signatures await a notification.
func (s *SignatureSubscriber) activeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// register sends signatureSubscribe for w and blocks until the node acks.
// The reader files w under its subscription ID before releasing the ack,
// so a notification arriving right after the ack finds it.
func (s *SignatureSubscriber) register(ctx context.Context, w *watch) (int64, error) {
	if s.closed.Load() {
		return 0, ErrSubscriberClosed
	}

	reqID := s.nextID.Add(1)
	a := &ack{w: w, result: make(chan ackResult, 1)}
	s.mu.Lock()
	s.waiting[reqID] = a
	s.mu.Unlock()

	forget := func() {
		s.mu.Lock()
		delete(s.waiting, reqID)
		s.mu.Unlock()
	}

	req := subscribeRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "signatureSubscribe",
		Params: []interface{}{
			w.sig.String(),
			map[string]string{"commitment": string(w.commitment)},
		},
	}
	if err := s.write(func(c *websocket.Conn) error { return c.WriteJSON(req) }); err != nil {
		forget()
		return 0, fmt.Errorf("signatureSubscribe: %w", err)
	}

	timer := time.NewTimer(s.cfg.AckDeadline)
	defer timer.Stop()

	select {
	case res, ok := <-a.result:
		if !ok {
			return 0, ErrSubscriberClosed
		}
		if res.err != nil {
			return 0, fmt.Errorf("signatureSubscribe: %w", res.err)
		}
		return res.subID, nil
	case <-timer.C:
		forget()
		return 0, fmt.Errorf("signatureSubscribe: no ack within %s", s.cfg.AckDeadline)
	case <-ctx.Done():
		forget()
		return 0, ctx.Err()
	case <-s.quit:
		return 0, ErrSubscriberClosed
	}
}

// Close stops the loops and closes every outstanding notification channel.
func (s *SignatureSubscriber) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	close(s.quit)

	_ = s.write(func(c *websocket.Conn) error {
		_ = c.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		return c.Close()
	})
	s.loops.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, w := range s.active {
		close(w.out)
		delete(s.active, id)
	}
	for id, a := range s.waiting {
		close(a.result)
		delete(s.waiting, id)
	}
	return nil
}

func (s *SignatureSubscriber) readLoop() {
	defer s.loops.Done()

	backoff := s.cfg.MinBackoff
	for !s.closed.Load() {
		conn := s.current()
		if conn == nil {
			if !s.sleep(100 * time.Millisecond) {
				return
			}
			continue
		}

		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadIdle))
		_, frame, err := conn.ReadMessage()
		if err == nil {
			backoff = s.cfg.MinBackoff
			s.dispatch(frame)
			continue
		}
		if s.closed.Load() {
			return
		}

		if !s.redialing.Swap(true) {
			go s.redial(backoff)
		}
		if backoff *= 2; backoff > s.cfg.MaxBackoff {
			backoff = s.cfg.MaxBackoff
		}
		if !s.sleep(100 * time.Millisecond) {
			return
		}
	}
}

// sleep waits d and reports false if the subscriber was closed meanwhile.
func (s *SignatureSubscriber) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-s.quit:
		return false
	case <-t.C:
		return true
	}
}

// redial replaces the connection and registers every active watch again.
// Subscription IDs are scoped to a connection, so active is rebuilt.
func (s *SignatureSubscriber) redial(delay time.Duration) {
	defer s.redialing.Store(false)

	if !s.sleep(delay) {
		return
	}

	s.writeMu.Lock()
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.writeMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err := s.dial(ctx)
	cancel()
	if err != nil {
		s.cfg.Logger.Printf("[ws] redial failed: %v", err)
		return
	}

	s.mu.Lock()
	stale := s.active
	s.active = make(map[int64]*watch, len(stale))
	s.mu.Unlock()

	for _, w := range stale {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_, err := s.register(ctx, w)
		cancel()
		if err != nil {
			// The confirmer's own deadline ends the wait.
			s.cfg.Logger.Printf("[ws] resubscribe %s: %v", w.sig, err)
		}
	}
}

// dispatch routes a frame to an ack or to a notification.
func (s *SignatureSubscriber) dispatch(frame []byte) {
	var msg inboundFrame
	if err := json.Unmarshal(frame, &msg); err != nil {
		return
	}

	switch {
	case msg.Method == "signatureNotification":
		var n signatureParams
		if json.Unmarshal(msg.Params, &n) == nil {
			s.deliver(&n)
		}
	case msg.Error != nil:
		s.cfg.Logger.Printf("[ws] error response: id=%d code=%d msg=%s", msg.ID, msg.Error.Code, msg.Error.Message)
		s.reject(msg.ID, msg.Error)
	case len(msg.Result) > 0:
		var subID int64
		if json.Unmarshal(msg.Result, &subID) == nil {
			s.acknowledge(msg.ID, subID)
		}
	}
}

func (s *SignatureSubscriber) acknowledge(reqID uint64, subID int64) {
	s.mu.Lock()
	a, ok := s.waiting[reqID]
	if ok {
		delete(s.waiting, reqID)
		// A watch released during a redial is not revived.
		if !a.w.released {
			s.active[subID] = a.w
		}
	}
	s.mu.Unlock()

	if ok {
		a.result <- ackResult{subID: subID}
	}
}

// reject fails the subscribe request reqID with the node's error.
func (s *SignatureSubscriber) reject(reqID uint64, rpcErr *RPCError) {
	s.mu.Lock()
	a, ok := s.waiting[reqID]
	delete(s.waiting, reqID)
	s.mu.Unlock()

	if ok {
		a.result <- ackResult{err: rpcErr}
	}
}

// deliver sends the one notification a signature subscription produces.
// The node drops the subscription after it, so the watch is retired too.
func (s *SignatureSubscriber) deliver(n *signatureParams) {
	s.mu.Lock()
	w, ok := s.active[n.Subscription]
	if ok {
		delete(s.active, n.Subscription)
		close(w.done)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	out := SignatureNotification{Signature: w.sig, Err: n.Result.Value.Err}
	if n.Result.Context != nil {
		out.Slot = n.Result.Context.Slot
	}
	w.out <- out
	close(w.out)
}

func (s *SignatureSubscriber) keepAlive() {
	defer s.loops.Done()

	tick := time.NewTicker(s.cfg.KeepAlive)
	defer tick.Stop()
	for {
		select {
		case <-s.quit:
			return
		case <-tick.C:
			// Failures surface as read errors and trigger a redial.
			_ = s.write(func(c *websocket.Conn) error {
				return c.WriteMessage(websocket.PingMessage, nil)
			})
		}
	}
}

type subscribeRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// inboundFrame is either a reply (ID plus Result or Error) or a
// notification (Method plus Params).
type inboundFrame struct {
	ID     uint64          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

type signatureParams struct {
	Subscription int64           `json:"subscription"`
	Result       signatureResult `json:"result"`
}

type signatureResult struct {
	Context *slotContext `json:"context"`
	Value   struct {
		Err interface{} `json:"err"`
	} `json:"value"`
}

type slotContext struct {
	Slot int64 `json:"slot"`
}
