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

// DeBridgeAdapter quotes cross-chain orders via the deBridge DLN create-tx
// API.
type DeBridgeAdapter struct {
	baseURL string
	client  *http.Client
}

func NewDeBridgeAdapter(baseURL string) *DeBridgeAdapter {
	return &DeBridgeAdapter{
		baseURL: baseURL,
		client:  newHTTPClient(),
	}
}

func (a *DeBridgeAdapter) Name() domain.Provider {
	return domain.ProviderDeBridge
}

type deBridgeTokenAmount struct {
	Amount                      string `json:"amount"`
	RecommendedAmount           string `json:"recommendedAmount"`
	ApproximateOperatingExpense string `json:"approximateOperatingExpense"`
	Decimals                    uint8  `json:"decimals"`
}

type deBridgeCreateTxResponse struct {
	Estimation struct {
		SrcChainTokenIn  deBridgeTokenAmount `json:"srcChainTokenIn"`
		DstChainTokenOut deBridgeTokenAmount `json:"dstChainTokenOut"`
	} `json:"estimation"`
	Tx struct {
		Data string `json:"data"`
	} `json:"tx"`
	OrderID string `json:"orderId"`
	FixFee  string `json:"fixFee"`
}

type deBridgeErrorResponse struct {
	ErrorCode    int64  `json:"errorCode"`
	ErrorID      string `json:"errorId"`
	ErrorMessage string `json:"errorMessage"`
}

func (a *DeBridgeAdapter) Quote(ctx context.Context, p domain.SwapParams) (*domain.NormalizedQuote, error) {
	destAddr, err := destinationAddress(p)
	if err != nil {
		return nil, err
	}

	// Amount goes on the trade-direction side; the opposite side is "auto".
	inAmount, outAmount := p.Amount, "auto"
	if p.TradeType == domain.TradeExactOut {
		inAmount, outAmount = "auto", p.Amount
	}

	q := url.Values{}
	q.Set("srcChainId", strconv.FormatUint(p.OriginChainID, 10))
	q.Set("srcChainTokenIn", p.OriginToken)
	q.Set("srcChainTokenInAmount", inAmount)
	q.Set("dstChainId", strconv.FormatUint(p.DestinationChainID, 10))
	q.Set("dstChainTokenOut", p.DestinationToken)
	q.Set("dstChainTokenOutAmount", outAmount)
	q.Set("dstChainTokenOutRecipient", destAddr)
	q.Set("srcChainOrderAuthorityAddress", p.UserAddress)
	q.Set("dstChainOrderAuthorityAddress", destAddr)
	q.Set("senderAddress", p.UserAddress)
	q.Set("prependOperatingExpenses", "true")
	reqURL := a.baseURL + "/v1.0/dln/order/create-tx?" + q.Encode()

	var quote *domain.NormalizedQuote
	err = common.WithRetry(ctx, func(ctx context.Context) error {
		var fetchErr error
		quote, fetchErr = a.fetchOrder(ctx, reqURL, p)
		return fetchErr
	}, quoteRetryAttempts, quoteRetryDelay)
	return quote, err
}

func (a *DeBridgeAdapter) fetchOrder(ctx context.Context, reqURL string, p domain.SwapParams) (*domain.NormalizedQuote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, common.ValidationError("invalid debridge order request: " + err.Error())
	}

	body, status, err := doRequest(a.client, req)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, a.mapError(body, status)
	}

	var order deBridgeCreateTxResponse
	if err := sonic.Unmarshal(body, &order); err != nil {
		return nil, common.NetworkError("malformed debridge order response", err)
	}

	out := order.Estimation.DstChainTokenOut.RecommendedAmount
	if out == "" {
		out = order.Estimation.DstChainTokenOut.Amount
	}
	if out == "" {
		out = "0"
	}

	decimals := p.DestinationTokenDecimals
	if decimals == 0 {
		decimals = order.Estimation.DstChainTokenOut.Decimals
	}

	// Total fee is the fixed protocol fee plus the operating expense, both in
	// origin-chain native units; a non-numeric addend falls back to the fix
	// fee alone.
	fees := common.AddAmounts(order.FixFee, order.Estimation.SrcChainTokenIn.ApproximateOperatingExpense)
	if fees == "" {
		fees = "0"
	}

	feeCurrency := "native"
	solanaCost := ""
	if domain.IsSolanaChain(p.OriginChainID) {
		feeCurrency = "SOL"
		solanaCost = order.FixFee
	}

	fetched := nowUTC()
	nq := &domain.NormalizedQuote{
		Provider:             domain.ProviderDeBridge,
		ExpectedOut:          out,
		ExpectedOutFormatted: common.FormatRawAmountWithDecimals(out, decimals),
		OutCurrency:          p.DestinationToken,
		Fees:                 fees,
		FeeCurrency:          feeCurrency,
		FeePayer:             domain.FeePayerUser,
		SolanaCostToUser:     solanaCost,
		TxPayload:            order.Tx.Data,
		RequestID:            order.OrderID,
		FetchedAt:            fetched,
		ExpiryAt:             fetched.Add(domain.QuoteValidityWindow),
		Raw:                  body,
	}

	log.Debug().
		Str("provider", string(domain.ProviderDeBridge)).
		Str("outAmount", out).
		Str("orderId", order.OrderID).
		Msg("[DeBridgeAdapter] quote normalized")

	return nq, nil
}

func (a *DeBridgeAdapter) mapError(body []byte, status int) error {
	var errResp deBridgeErrorResponse
	_ = sonic.Unmarshal(body, &errResp)

	switch errResp.ErrorID {
	case "ERROR_LOW_GIVE_AMOUNT", "AMOUNT_TOO_SMALL":
		return common.ProviderRejection(msgAmountTooSmall)
	case "INTERNAL_SERVER_ERROR", "INTERNAL_SALES_ERROR", "UNSUPPORTED_ROUTE":
		return common.ProviderRejection(msgRouteUnavailable)
	}
	if status >= 500 {
		return common.NetworkError(fmt.Sprintf("debridge upstream failure (status %d)", status), nil)
	}
	if errResp.ErrorMessage != "" {
		return common.ProviderRejection(errResp.ErrorMessage)
	}
	return common.ProviderRejection(genericQuoteMessage(domain.ProviderDeBridge, status))
}
