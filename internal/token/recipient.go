package token

import "sss-shared/internal/solana"

// Recipient selects the owner of minted tokens. The zero value is the payer.
type Recipient struct {
	owner *solana.PublicKey
}

// DefaultPayer mints to the payer's own associated token account.
func DefaultPayer() Recipient {
	return Recipient{}
}

// To mints to owner's associated token account.
func To(owner solana.PublicKey) Recipient {
	return Recipient{owner: &owner}
}

// IsDefault reports whether no explicit owner was given.
func (r Recipient) IsDefault() bool {
	return r.owner == nil
}

// resolve returns the explicit owner or payer.
func (r Recipient) resolve(payer solana.PublicKey) solana.PublicKey {
	if r.owner == nil {
		return payer
	}
	return *r.owner
}
