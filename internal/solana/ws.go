package solana

import "context"

// SignatureWatcher is the push side of confirmation: a node connection
// that notifies once a transaction reaches a commitment level.
type SignatureWatcher interface {
	// SubscribeSignature yields one notification for sig, then closes.
	SubscribeSignature(ctx context.Context, sig Signature, commitment Commitment) (<-chan SignatureNotification, error)

	Close() error
}

// SignatureNotification reports that a transaction reached the requested
// commitment. Err is the transaction error, nil on success.
type SignatureNotification struct {
	Signature Signature
	Slot      int64
	Err       interface{}
}
