package common

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind is the closed set of failure categories. Errors are matched
// structurally on Kind, never by concrete type of an underlying cause.
type ErrorKind int

const (
	// KindNetwork covers transient transport failures; retryable.
	KindNetwork ErrorKind = iota
	// KindValidation covers malformed or missing required input.
	KindValidation
	// KindProviderRejection covers provider-side refusals: no viable route,
	// amount below minimum, provider-internal errors.
	KindProviderRejection
	// KindExecutionRejection is a 4xx from the execute endpoint; terminal.
	KindExecutionRejection
	// KindPollingTimeout means confirmation never arrived within the bound.
	KindPollingTimeout
	// KindOnChainFailure means the ledger explicitly reported a tx error.
	KindOnChainFailure
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindValidation:
		return "validation"
	case KindProviderRejection:
		return "provider_rejection"
	case KindExecutionRejection:
		return "execution_rejection"
	case KindPollingTimeout:
		return "polling_timeout"
	case KindOnChainFailure:
		return "onchain_failure"
	}
	return "unknown"
}

// SwapError is the tagged error variant carried through the engine.
type SwapError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *SwapError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *SwapError) Unwrap() error {
	return e.Cause
}

// Error constructors

func NetworkError(msg string, cause error) *SwapError {
	return &SwapError{Kind: KindNetwork, Message: msg, Cause: cause}
}

func ValidationError(msg string) *SwapError {
	return &SwapError{Kind: KindValidation, Message: msg}
}

func ProviderRejection(msg string) *SwapError {
	return &SwapError{Kind: KindProviderRejection, Message: msg}
}

func ExecutionRejection(msg string) *SwapError {
	return &SwapError{Kind: KindExecutionRejection, Message: msg}
}

func PollingTimeout(msg string) *SwapError {
	return &SwapError{Kind: KindPollingTimeout, Message: msg}
}

func OnChainFailure(msg string) *SwapError {
	return &SwapError{Kind: KindOnChainFailure, Message: msg}
}

// KindOf extracts the category from any error in the chain.
func KindOf(err error) (ErrorKind, bool) {
	var se *SwapError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return 0, false
}

// User-facing messages, priority ordered. The first matching rule wins.

const (
	MsgInsufficientFunds = "Insufficient balance for this swap."
	MsgNetwork           = "Network error. Check your connection and try again."
	MsgCancelled         = "Transaction was cancelled."
	MsgNoRoute           = "No route available for this pair. Try a different amount or token."
	MsgInvalidInput      = "Invalid input. Check the swap details and try again."
)

var userMessageRules = []struct {
	keywords []string
	message  string
}{
	{[]string{"insufficient", "balance"}, MsgInsufficientFunds},
	{[]string{"network", "fetch", "timeout", "timed out", "connection"}, MsgNetwork},
	{[]string{"user rejected", "user-rejected", "cancelled", "canceled"}, MsgCancelled},
	{[]string{"quote", "no route", "no-route"}, MsgNoRoute},
	{[]string{"invalid", "validation", "required"}, MsgInvalidInput},
}

// UserMessage maps an internal error to the message shown to the user.
// Unmatched errors surface their original message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	var se *SwapError
	if errors.As(err, &se) {
		msg = se.Message
	}
	lower := strings.ToLower(msg)
	for _, rule := range userMessageRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.message
			}
		}
	}
	return msg
}
