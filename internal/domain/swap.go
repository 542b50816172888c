package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

type TradeType string

const (
	TradeExactIn  TradeType = "ExactIn"
	TradeExactOut TradeType = "ExactOut"
)

// Canonical chain identifiers. Solana uses the deBridge internal chain id;
// EVM chains use their native chain ids (1 = Ethereum, 56 = BNB, ...).
const (
	ChainSolana   uint64 = 7565164
	ChainEthereum uint64 = 1
	ChainBNB      uint64 = 56
	ChainPolygon  uint64 = 137
	ChainBase     uint64 = 8453
	ChainArbitrum uint64 = 42161
)

func IsSolanaChain(id uint64) bool {
	return id == ChainSolana
}

// IsEVMChain reports whether the chain uses an EVM-style address space.
// Everything that is not the Solana reference chain is treated as EVM.
func IsEVMChain(id uint64) bool {
	return !IsSolanaChain(id)
}

// Fingerprint identifies one exact set of swap parameters. Async results
// carry the fingerprint they were dispatched for and are dropped whenever it
// no longer matches the current one.
type Fingerprint string

// SwapParams is an immutable value describing one swap request. A new value
// is created on every user edit; nothing mutates it after construction.
type SwapParams struct {
	OriginChainID      uint64 `json:"originChainId" binding:"required"`
	OriginToken        string `json:"originToken" binding:"required"`
	DestinationChainID uint64 `json:"destinationChainId" binding:"required"`
	DestinationToken   string `json:"destinationToken" binding:"required"`

	// Amount in base units, decimal string. Never a float.
	Amount    string    `json:"amount" binding:"required"`
	TradeType TradeType `json:"tradeType" binding:"required"`

	UserAddress string `json:"userAddress" binding:"required"`

	// RecipientAddress is required when the destination chain's address
	// format differs from the origin's (EVM destinations).
	RecipientAddress string `json:"recipientAddress,omitempty"`

	// DestinationTokenDecimals drives display formatting of quoted output
	// amounts. Supplied by the caller's token metadata; 0 leaves amounts raw.
	DestinationTokenDecimals uint8 `json:"destinationTokenDecimals,omitempty"`
}

func (p SwapParams) Validate() error {
	if p.OriginToken == "" || p.DestinationToken == "" {
		return errors.New("origin and destination tokens are required")
	}
	if p.UserAddress == "" {
		return errors.New("user address is required")
	}
	amount, ok := new(big.Int).SetString(p.Amount, 10)
	if !ok || amount.Sign() <= 0 {
		return errors.New("amount must be a positive base-unit integer string")
	}
	if p.TradeType != TradeExactIn && p.TradeType != TradeExactOut {
		return fmt.Errorf("invalid trade type %q", p.TradeType)
	}
	if IsEVMChain(p.DestinationChainID) && p.RecipientAddress == "" {
		return errors.New("recipientAddress required for EVM destination")
	}
	return nil
}

func (p SwapParams) SameChain() bool {
	return p.OriginChainID == p.DestinationChainID
}

// Fingerprint derives the request identity used for stale-result discard.
// Display-only fields (decimals) are deliberately part of the hash: any edit
// produces a new fingerprint and invalidates in-flight work.
func (p SwapParams) Fingerprint() Fingerprint {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d|%s|%d|%s|%s|%s|%s|%s|%d",
		p.OriginChainID, p.OriginToken,
		p.DestinationChainID, p.DestinationToken,
		p.Amount, p.TradeType,
		p.UserAddress, p.RecipientAddress,
		p.DestinationTokenDecimals,
	)
	sum := sha256.Sum256([]byte(sb.String()))
	return Fingerprint(hex.EncodeToString(sum[:16]))
}
