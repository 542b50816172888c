package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/bridge-engine/internal/common"
	"github.com/hxuan190/bridge-engine/internal/domain"
)

// Relay uses its own chain-id space for Solana; EVM chains keep their
// native ids.
const relaySolanaChainID uint64 = 792703809

// RelayAdapter quotes swaps and bridges via the Relay quote API.
type RelayAdapter struct {
	baseURL string
	client  *http.Client
}

func NewRelayAdapter(baseURL string) *RelayAdapter {
	return &RelayAdapter{
		baseURL: baseURL,
		client:  newHTTPClient(),
	}
}

func (a *RelayAdapter) Name() domain.Provider {
	return domain.ProviderRelay
}

func relayChainID(id uint64) uint64 {
	if domain.IsSolanaChain(id) {
		return relaySolanaChainID
	}
	return id
}

type relayQuoteRequest struct {
	User                 string `json:"user"`
	Recipient            string `json:"recipient"`
	OriginChainID        uint64 `json:"originChainId"`
	DestinationChainID   uint64 `json:"destinationChainId"`
	OriginCurrency       string `json:"originCurrency"`
	DestinationCurrency  string `json:"destinationCurrency"`
	Amount               string `json:"amount"`
	TradeType            string `json:"tradeType"`
	UseExternalLiquidity bool   `json:"useExternalLiquidity"`
}

type relayFee struct {
	Amount   string `json:"amount"`
	Currency struct {
		Symbol   string `json:"symbol"`
		Decimals uint8  `json:"decimals"`
	} `json:"currency"`
}

type relayQuoteResponse struct {
	Steps []struct {
		RequestID string `json:"requestId"`
		Items     []struct {
			Data json.RawMessage `json:"data"`
		} `json:"items"`
	} `json:"steps"`
	Fees struct {
		Gas     relayFee `json:"gas"`
		Relayer relayFee `json:"relayer"`
	} `json:"fees"`
	Details struct {
		CurrencyOut struct {
			Amount          string `json:"amount"`
			AmountFormatted string `json:"amountFormatted"`
		} `json:"currencyOut"`
	} `json:"details"`
}

type relayErrorResponse struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
}

func (a *RelayAdapter) Quote(ctx context.Context, p domain.SwapParams) (*domain.NormalizedQuote, error) {
	destAddr, err := destinationAddress(p)
	if err != nil {
		return nil, err
	}

	tradeType := "EXACT_INPUT"
	if p.TradeType == domain.TradeExactOut {
		tradeType = "EXACT_OUTPUT"
	}

	reqBody := relayQuoteRequest{
		User:                p.UserAddress,
		Recipient:           destAddr,
		OriginChainID:       relayChainID(p.OriginChainID),
		DestinationChainID:  relayChainID(p.DestinationChainID),
		OriginCurrency:      p.OriginToken,
		DestinationCurrency: p.DestinationToken,
		Amount:              p.Amount,
		TradeType:           tradeType,
	}
	payload, err := sonic.Marshal(reqBody)
	if err != nil {
		return nil, common.ValidationError("invalid relay quote request: " + err.Error())
	}

	var quote *domain.NormalizedQuote
	err = common.WithRetry(ctx, func(ctx context.Context) error {
		var fetchErr error
		quote, fetchErr = a.fetchQuote(ctx, payload, p)
		return fetchErr
	}, quoteRetryAttempts, quoteRetryDelay)
	return quote, err
}

func (a *RelayAdapter) fetchQuote(ctx context.Context, payload []byte, p domain.SwapParams) (*domain.NormalizedQuote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/quote", bytes.NewReader(payload))
	if err != nil {
		return nil, common.ValidationError("invalid relay quote request: " + err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	body, status, err := doRequest(a.client, req)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, a.mapError(body, status)
	}

	var quote relayQuoteResponse
	if err := sonic.Unmarshal(body, &quote); err != nil {
		return nil, common.NetworkError("malformed relay quote response", err)
	}

	out := quote.Details.CurrencyOut.Amount
	if out == "" {
		out = "0"
	}
	formatted := quote.Details.CurrencyOut.AmountFormatted
	if formatted == "" {
		formatted = common.FormatRawAmountWithDecimals(out, p.DestinationTokenDecimals)
	}

	// Relayer service fee plus gas fee; non-numeric gas falls back to the
	// relayer fee alone.
	fees := common.AddAmounts(quote.Fees.Relayer.Amount, quote.Fees.Gas.Amount)
	if fees == "" {
		fees = "0"
	}

	var requestID, txPayload string
	if len(quote.Steps) > 0 {
		requestID = quote.Steps[0].RequestID
		if len(quote.Steps[0].Items) > 0 {
			txPayload = string(quote.Steps[0].Items[0].Data)
		}
	}

	fetched := nowUTC()
	nq := &domain.NormalizedQuote{
		Provider:             domain.ProviderRelay,
		ExpectedOut:          out,
		ExpectedOutFormatted: formatted,
		OutCurrency:          p.DestinationToken,
		Fees:                 fees,
		FeeCurrency:          quote.Fees.Relayer.Currency.Symbol,
		FeePayer:             domain.FeePayerUser,
		TxPayload:            txPayload,
		RequestID:            requestID,
		FetchedAt:            fetched,
		ExpiryAt:             fetched.Add(domain.QuoteValidityWindow),
		Raw:                  body,
	}

	log.Debug().
		Str("provider", string(domain.ProviderRelay)).
		Str("outAmount", out).
		Str("requestId", requestID).
		Msg("[RelayAdapter] quote normalized")

	return nq, nil
}

func (a *RelayAdapter) mapError(body []byte, status int) error {
	var errResp relayErrorResponse
	_ = sonic.Unmarshal(body, &errResp)

	switch errResp.ErrorCode {
	case "AMOUNT_TOO_LOW":
		return common.ProviderRejection(msgAmountTooSmall)
	case "NO_SWAP_ROUTES_FOUND", "UNSUPPORTED_ROUTE", "SWAP_IMPOSSIBLE":
		return common.ProviderRejection(msgRouteUnavailable)
	}
	if status >= 500 {
		return common.NetworkError(fmt.Sprintf("relay upstream failure (status %d)", status), nil)
	}
	if errResp.Message != "" {
		return common.ProviderRejection(errResp.Message)
	}
	return common.ProviderRejection(genericQuoteMessage(domain.ProviderRelay, status))
}
