package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/bridge-engine/internal/common"
	"github.com/hxuan190/bridge-engine/internal/domain"
)

// JupiterAdapter quotes same-chain Solana swaps via the Jupiter Ultra order
// API. Cross-chain requests are rejected without a network call.
type JupiterAdapter struct {
	baseURL string
	client  *http.Client
}

func NewJupiterAdapter(baseURL string) *JupiterAdapter {
	return &JupiterAdapter{
		baseURL: baseURL,
		client:  newHTTPClient(),
	}
}

func (a *JupiterAdapter) Name() domain.Provider {
	return domain.ProviderJupiter
}

type jupiterOrderResponse struct {
	InAmount                  string `json:"inAmount"`
	OutAmount                 string `json:"outAmount"`
	FeeBps                    int64  `json:"feeBps"`
	Transaction               string `json:"transaction"`
	RequestID                 string `json:"requestId"`
	Gasless                   bool   `json:"gasless"`
	PrioritizationFeeLamports int64  `json:"prioritizationFeeLamports"`
	SignatureFeeLamports      int64  `json:"signatureFeeLamports"`
	ErrorMessage              string `json:"errorMessage"`
	ErrorCode                 int64  `json:"errorCode"`
}

type jupiterErrorResponse struct {
	Error        string `json:"error"`
	ErrorMessage string `json:"errorMessage"`
}

func (a *JupiterAdapter) Quote(ctx context.Context, p domain.SwapParams) (*domain.NormalizedQuote, error) {
	if !domain.IsSolanaChain(p.OriginChainID) || !domain.IsSolanaChain(p.DestinationChainID) {
		return nil, common.ProviderRejection(msgRouteUnavailable)
	}
	if _, err := destinationAddress(p); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("inputMint", p.OriginToken)
	q.Set("outputMint", p.DestinationToken)
	q.Set("amount", p.Amount)
	q.Set("taker", p.UserAddress)
	q.Set("swapMode", string(p.TradeType))
	reqURL := a.baseURL + "/order?" + q.Encode()

	var quote *domain.NormalizedQuote
	err := common.WithRetry(ctx, func(ctx context.Context) error {
		var fetchErr error
		quote, fetchErr = a.fetchOrder(ctx, reqURL, p)
		return fetchErr
	}, quoteRetryAttempts, quoteRetryDelay)
	return quote, err
}

func (a *JupiterAdapter) fetchOrder(ctx context.Context, reqURL string, p domain.SwapParams) (*domain.NormalizedQuote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, common.ValidationError("invalid jupiter order request: " + err.Error())
	}

	body, status, err := doRequest(a.client, req)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, a.mapError(body, status)
	}

	var order jupiterOrderResponse
	if err := sonic.Unmarshal(body, &order); err != nil {
		return nil, common.NetworkError("malformed jupiter order response", err)
	}
	if order.ErrorMessage != "" {
		return nil, a.mapError(body, status)
	}

	out := order.OutAmount
	if out == "" {
		// Degrade to a placeholder rather than failing on a missing field.
		out = "0"
	}

	// Platform fee is quoted in the output token; network costs in lamports.
	fees := "0"
	if order.FeeBps > 0 {
		fees = feeFromBps(out, order.FeeBps)
	}
	networkCost := common.AddAmounts(
		strconv.FormatInt(order.SignatureFeeLamports, 10),
		strconv.FormatInt(order.PrioritizationFeeLamports, 10),
	)

	feePayer := domain.FeePayerUser
	sponsorCost := ""
	if order.Gasless {
		feePayer = domain.FeePayerSponsor
		sponsorCost = strconv.FormatInt(order.SignatureFeeLamports, 10)
	}

	fetched := nowUTC()
	nq := &domain.NormalizedQuote{
		Provider:             domain.ProviderJupiter,
		ExpectedOut:          out,
		ExpectedOutFormatted: common.FormatRawAmountWithDecimals(out, p.DestinationTokenDecimals),
		OutCurrency:          p.DestinationToken,
		Fees:                 fees,
		FeeCurrency:          p.DestinationToken,
		FeePayer:             feePayer,
		SponsorCost:          sponsorCost,
		SolanaCostToUser:     networkCost,
		TxPayload:            order.Transaction,
		RequestID:            order.RequestID,
		FetchedAt:            fetched,
		ExpiryAt:             fetched.Add(domain.QuoteValidityWindow),
		Raw:                  body,
	}

	log.Debug().
		Str("provider", string(domain.ProviderJupiter)).
		Str("outAmount", out).
		Str("requestId", order.RequestID).
		Msg("[JupiterAdapter] quote normalized")

	return nq, nil
}

func (a *JupiterAdapter) mapError(body []byte, status int) error {
	var errResp jupiterErrorResponse
	_ = sonic.Unmarshal(body, &errResp)
	msg := errResp.Error
	if msg == "" {
		msg = errResp.ErrorMessage
	}

	switch {
	case containsAny(msg, "minimum", "too small", "amount too low"):
		return common.ProviderRejection(msgAmountTooSmall)
	case containsAny(msg, "no route", "route not found", "could not find any route"):
		return common.ProviderRejection(msgRouteUnavailable)
	case status >= 500:
		return common.NetworkError(fmt.Sprintf("jupiter upstream failure (status %d)", status), nil)
	case msg != "":
		return common.ProviderRejection(msg)
	default:
		return common.ProviderRejection(genericQuoteMessage(domain.ProviderJupiter, status))
	}
}
