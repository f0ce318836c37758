package solana

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrConfirmTimeout is returned when a transaction is not confirmed in time.
var ErrConfirmTimeout = errors.New("transaction not confirmed before timeout")

// TransactionError wraps an on-chain execution error reported for a signature.
type TransactionError struct {
	Signature Signature
	Err       interface{}
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction %s failed: %v", e.Signature, e.Err)
}

// Confirmer waits until a submitted transaction reaches a commitment level.
type Confirmer interface {
	Confirm(ctx context.Context, sig Signature, commitment Commitment) error
}

// PollingConfirmer confirms by polling getSignatureStatuses.
type PollingConfirmer struct {
	rpc      RPCClient
	interval time.Duration
	timeout  time.Duration
}

// Compile-time interface check.
var _ Confirmer = (*PollingConfirmer)(nil)

// DefaultPollInterval is the delay between getSignatureStatuses calls.
const DefaultPollInterval = 500 * time.Millisecond

// NewPollingConfirmer creates a polling confirmer. A zero timeout relies on ctx alone.
func NewPollingConfirmer(rpc RPCClient, interval, timeout time.Duration) *PollingConfirmer {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &PollingConfirmer{rpc: rpc, interval: interval, timeout: timeout}
}

// Confirm polls until the signature reaches commitment, fails, or times out.
func (p *PollingConfirmer) Confirm(ctx context.Context, sig Signature, commitment Commitment) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		statuses, err := p.rpc.GetSignatureStatuses(ctx, sig)
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("get signature status: %w", err)
		}
		if err == nil && len(statuses) > 0 && statuses[0] != nil {
			st := statuses[0]
			if st.Err != nil {
				return &TransactionError{Signature: sig, Err: st.Err}
			}
			if st.ConfirmationStatus.Satisfies(commitment) {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrConfirmTimeout
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// WSConfirmer confirms through a signatureSubscribe notification.
type WSConfirmer struct {
	ws      SignatureWatcher
	timeout time.Duration
}

// Compile-time interface check.
var _ Confirmer = (*WSConfirmer)(nil)

// NewWSConfirmer creates a confirmer backed by a WebSocket client.
func NewWSConfirmer(ws SignatureWatcher, timeout time.Duration) *WSConfirmer {
	return &WSConfirmer{ws: ws, timeout: timeout}
}

// Close closes the underlying WebSocket connection.
func (w *WSConfirmer) Close() error {
	return w.ws.Close()
}

// Confirm subscribes to the signature and waits for its notification.
func (w *WSConfirmer) Confirm(ctx context.Context, sig Signature, commitment Commitment) error {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	ch, err := w.ws.SubscribeSignature(ctx, sig, commitment)
	if err != nil {
		return fmt.Errorf("subscribe signature: %w", err)
	}

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrConfirmTimeout
		}
		return ctx.Err()
	case n, ok := <-ch:
		if !ok {
			return errors.New("signature subscription closed")
		}
		if n.Err != nil {
			return &TransactionError{Signature: sig, Err: n.Err}
		}
		return nil
	}
}
