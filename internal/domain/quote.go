package domain

import (
	"encoding/json"
	"time"
)

type Provider string

const (
	ProviderJupiter  Provider = "jupiter"
	ProviderDeBridge Provider = "debridge"
	ProviderRelay    Provider = "relay"
)

// Priority breaks ties between quotes with equal net output. Lower wins.
func (p Provider) Priority() int {
	switch p {
	case ProviderJupiter:
		return 0
	case ProviderDeBridge:
		return 1
	case ProviderRelay:
		return 2
	}
	return 99
}

type FeePayer string

const (
	FeePayerUser    FeePayer = "user"
	FeePayerSponsor FeePayer = "sponsor"
)

// QuoteValidityWindow is the system-wide quote lifetime. Adapters stamp
// ExpiryAt with it regardless of any expiry hint the provider returns.
const QuoteValidityWindow = 30 * time.Second

// NormalizedQuote is the common shape every provider response is reduced to.
// Downstream code never looks at provider raw fields outside the adapter
// that produced this value; Raw is kept for audit only.
type NormalizedQuote struct {
	Provider Provider `json:"provider"`

	// ExpectedOut is the quoted output amount in destination base units.
	ExpectedOut          string `json:"expectedOut"`
	ExpectedOutFormatted string `json:"expectedOutFormatted"`

	// OutCurrency is the destination token the output is denominated in.
	OutCurrency string `json:"outCurrency"`

	// Fees is a non-negative base-unit integer in FeeCurrency units.
	Fees        string   `json:"fees"`
	FeeCurrency string   `json:"feeCurrency"`
	FeePayer    FeePayer `json:"feePayer"`

	SponsorCost      string `json:"sponsorCost,omitempty"`
	SolanaCostToUser string `json:"solanaCostToUser,omitempty"`

	// TxPayload is the provider's unsigned transaction payload; RequestID is
	// the identifier the provider's execute endpoint expects alongside the
	// signed transaction.
	TxPayload string `json:"txPayload,omitempty"`
	RequestID string `json:"requestId,omitempty"`

	FetchedAt time.Time `json:"fetchedAt"`
	ExpiryAt  time.Time `json:"expiryAt"`

	// Raw provider payload, opaque. Never parsed downstream.
	Raw json.RawMessage `json:"-"`
}

// Expired reports whether the quote is past its hard validity window.
// Expired quotes must not be executed.
func (q *NormalizedQuote) Expired(now time.Time) bool {
	return now.After(q.ExpiryAt)
}
