package domain

import "time"

type ExecutionPhase string

const (
	PhaseIdle              ExecutionPhase = "idle"
	PhaseAwaitingSignature ExecutionPhase = "awaiting_signature"
	PhaseSubmitting        ExecutionPhase = "submitting"
	PhaseConfirming        ExecutionPhase = "confirming"
	PhaseSettled           ExecutionPhase = "settled"
	PhaseFailed            ExecutionPhase = "failed"
)

// Terminal reports whether the phase requires an explicit reset before a new
// execution can begin.
func (p ExecutionPhase) Terminal() bool {
	return p == PhaseSettled || p == PhaseFailed
}

// ExecutionState is owned exclusively by the execution controller; everyone
// else reads a copy.
type ExecutionState struct {
	Phase     ExecutionPhase `json:"phase"`
	Provider  Provider       `json:"provider,omitempty"`
	Signature string         `json:"signature,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

type TxStatus string

const (
	TxStatusPending   TxStatus = "pending"
	TxStatusConfirmed TxStatus = "confirmed"
	TxStatusFinalized TxStatus = "finalized"
	TxStatusFailed    TxStatus = "failed"
)

// TransactionStatusResult is the terminal outcome of confirmation polling.
type TransactionStatusResult struct {
	Status TxStatus `json:"status"`
	Slot   uint64   `json:"slot,omitempty"`

	// ErrPayload carries the opaque on-chain error, when the ledger reported
	// one. TimedOut distinguishes "confirmation never arrived within the
	// polling bound" from an on-chain rejection.
	ErrPayload interface{} `json:"error,omitempty"`
	TimedOut   bool        `json:"timedOut,omitempty"`
}

// Settled reports whether the status is sufficient for user-facing success.
// Confirmed counts; the system does not wait for finalization.
func (r TransactionStatusResult) Settled() bool {
	return r.Status == TxStatusConfirmed || r.Status == TxStatusFinalized
}

// TokenFeeInfo describes transfer-fee metadata derived from raw mint bytes.
// Derived read-only, never persisted.
type TokenFeeInfo struct {
	IsToken2022     bool   `json:"isToken2022"`
	HasTransferFees bool   `json:"hasTransferFees"`
	TransferFeeBps  uint16 `json:"transferFeeBps,omitempty"`
}

// BalanceSnapshot holds the balances for one address/token context. Empty
// strings mean unknown/unfetched. Snapshots are replaced wholesale on each
// successful fetch, never partially merged.
type BalanceSnapshot struct {
	Address            string    `json:"address"`
	Token              string    `json:"token"`
	NativeBalance      string    `json:"nativeBalance,omitempty"`
	OriginTokenBalance string    `json:"originTokenBalance,omitempty"`
	UpdatedAt          time.Time `json:"updatedAt,omitempty"`
}
