// Package providers contains the swap/bridge provider adapters. Each adapter
// reduces its provider's wire format to a NormalizedQuote; nothing outside
// this package touches provider-raw fields.
package providers

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/hxuan190/bridge-engine/internal/common"
	"github.com/hxuan190/bridge-engine/internal/domain"
)

// RequestTimeout bounds every provider call; a slow provider is aborted and
// treated as failed without blocking the rest of the fan-out.
const RequestTimeout = 20 * time.Second

// Transient provider failures are retried once before giving up; the quote
// validity window leaves no room for the full default backoff schedule.
const (
	quoteRetryAttempts = 2
	quoteRetryDelay    = 500 * time.Millisecond
)

// Known provider error codes map to specific user-facing messages before
// falling back to a generic templated one.
const (
	msgAmountTooSmall   = "Amount too small for this route. Try a larger amount."
	msgRouteUnavailable = "This route is unavailable right now. Try different tokens or a different amount."
)

type Adapter interface {
	Name() domain.Provider
	// Quote converts the provider's response for params into the common
	// quote shape. Fails with a tagged error on network failure, provider
	// rejection, or absence of a viable route.
	Quote(ctx context.Context, params domain.SwapParams) (*domain.NormalizedQuote, error)
}

// destinationAddress selects the destination-facing address field. EVM-style
// destinations need an explicit recipient; on the reference chain the
// sender's own address is reused.
func destinationAddress(p domain.SwapParams) (string, error) {
	if domain.IsEVMChain(p.DestinationChainID) {
		if p.RecipientAddress == "" {
			return "", common.ValidationError("recipientAddress required")
		}
		return p.RecipientAddress, nil
	}
	return p.UserAddress, nil
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: RequestTimeout}
}

// doRequest executes the call and hands back body + status. Transport errors
// (including the client timeout) come back as tagged network errors; non-2xx
// statuses are returned to the adapter for provider-specific mapping.
func doRequest(client *http.Client, req *http.Request) ([]byte, int, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, common.NetworkError("provider request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, common.NetworkError("failed to read provider response", err)
	}
	return body, resp.StatusCode, nil
}

func genericQuoteMessage(provider domain.Provider, status int) string {
	return fmt.Sprintf("%s quote failed (status %d)", provider, status)
}

func containsAny(s string, subs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}

// feeFromBps computes amount * bps / 10000 over base-unit strings.
func feeFromBps(amount string, bps int64) string {
	x, ok := new(big.Int).SetString(amount, 10)
	if !ok || bps <= 0 {
		return "0"
	}
	fee := new(big.Int).Mul(x, big.NewInt(bps))
	fee.Div(fee, big.NewInt(10000))
	return fee.String()
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
