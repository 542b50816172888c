// Package execution drives a signed transaction through submission and
// bounded on-chain confirmation.
package execution

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/mr-tron/base58"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/bridge-engine/internal/common"
	"github.com/hxuan190/bridge-engine/internal/domain"
)

const submitTimeout = 20 * time.Second

// Submitter posts a signed transaction to a provider's execute endpoint and
// returns the on-chain signature it reports.
type Submitter struct {
	executeURLs map[domain.Provider]string
	client      *http.Client
}

func NewSubmitter(executeURLs map[domain.Provider]string) *Submitter {
	return &Submitter{
		executeURLs: executeURLs,
		client:      &http.Client{Timeout: submitTimeout},
	}
}

type executeRequest struct {
	SignedTransaction string `json:"signedTransaction"`
	RequestID         string `json:"requestId"`
}

type executeResponse struct {
	Signature string `json:"signature"`
	Status    string `json:"status"`
	Error     string `json:"error"`
}

// Submit sends the signed transaction for the quote's provider. Both the
// transaction and the provider request id are mandatory; a missing field is
// rejected before any network call.
func (s *Submitter) Submit(ctx context.Context, quote *domain.NormalizedQuote, signedTx string) (string, error) {
	if signedTx == "" {
		return "", common.ValidationError("signedTransaction is required")
	}
	if quote.RequestID == "" {
		return "", common.ValidationError("selected quote carries no request id")
	}
	url, ok := s.executeURLs[quote.Provider]
	if !ok || url == "" {
		return "", common.ValidationError(fmt.Sprintf("no execute endpoint configured for provider %s", quote.Provider))
	}

	payload, err := sonic.Marshal(executeRequest{
		SignedTransaction: signedTx,
		RequestID:         quote.RequestID,
	})
	if err != nil {
		return "", common.ValidationError("invalid execute request: " + err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", common.ValidationError("invalid execute request: " + err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", common.NetworkError("execute request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", common.NetworkError("reading execute response failed", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return parseSignature(quote.Provider, body)
	}

	var execResp executeResponse
	_ = sonic.Unmarshal(body, &execResp)
	msg := execResp.Error
	if msg == "" {
		msg = fmt.Sprintf("provider %s rejected execution (status %d)", quote.Provider, resp.StatusCode)
	}

	// 4xx means the provider evaluated and refused the payload; retrying the
	// same bytes cannot succeed.
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return "", common.ExecutionRejection(msg)
	}
	return "", common.NetworkError(msg, nil)
}

// parseSignature validates that the provider returned a plausible Solana
// signature: base58, 64 bytes decoded.
func parseSignature(provider domain.Provider, body []byte) (string, error) {
	var execResp executeResponse
	if err := sonic.Unmarshal(body, &execResp); err != nil {
		return "", common.NetworkError("malformed execute response", err)
	}
	if execResp.Signature == "" {
		return "", common.ExecutionRejection(fmt.Sprintf("provider %s returned no signature", provider))
	}
	raw, err := base58.Decode(execResp.Signature)
	if err != nil || len(raw) != 64 {
		return "", common.ExecutionRejection(fmt.Sprintf("provider %s returned an invalid signature", provider))
	}

	log.Info().
		Str("provider", string(provider)).
		Str("signature", execResp.Signature).
		Msg("[Submitter] transaction accepted")
	return execResp.Signature, nil
}
