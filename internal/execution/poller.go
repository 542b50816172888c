package execution

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/bridge-engine/internal/common"
	"github.com/hxuan190/bridge-engine/internal/domain"
	"github.com/hxuan190/bridge-engine/internal/metrics"
)

const (
	// DefaultPollAttempts caps confirmation polling; combined with the
	// interval this bounds the wait to roughly 30 seconds.
	DefaultPollAttempts = 30
	DefaultPollInterval = time.Second
)

// StatusClient is the signature status lookup the poller depends on.
type StatusClient interface {
	GetSignatureStatuses(ctx context.Context, searchHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

// Poller waits for a submitted transaction to reach a settled commitment.
// Polling is strictly bounded; exhaustion is a distinct timeout outcome, not
// a confirmed failure.
type Poller struct {
	client   StatusClient
	attempts int
	interval time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewPoller(client StatusClient) *Poller {
	return &Poller{
		client:   client,
		attempts: DefaultPollAttempts,
		interval: DefaultPollInterval,
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Poll checks the signature once per interval until it settles, fails
// on-chain, or the attempt budget runs out. Transient RPC errors consume
// attempts rather than aborting.
func (p *Poller) Poll(ctx context.Context, signature string) (domain.TransactionStatusResult, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return domain.TransactionStatusResult{}, common.ValidationError("invalid transaction signature")
	}

	for attempt := 1; attempt <= p.attempts; attempt++ {
		res, err := p.client.GetSignatureStatuses(ctx, true, sig)
		if err != nil {
			log.Debug().
				Err(err).
				Int("attempt", attempt).
				Msg("[Poller] status lookup failed, will retry")
		} else if len(res.Value) > 0 && res.Value[0] != nil {
			status := res.Value[0]
			if status.Err != nil {
				metrics.PollingAttempts.Observe(float64(attempt))
				return domain.TransactionStatusResult{
					Status:     domain.TxStatusFailed,
					Slot:       uint64(status.Slot),
					ErrPayload: status.Err,
				}, nil
			}
			switch status.ConfirmationStatus {
			case rpc.ConfirmationStatusConfirmed:
				metrics.PollingAttempts.Observe(float64(attempt))
				return domain.TransactionStatusResult{
					Status: domain.TxStatusConfirmed,
					Slot:   uint64(status.Slot),
				}, nil
			case rpc.ConfirmationStatusFinalized:
				metrics.PollingAttempts.Observe(float64(attempt))
				return domain.TransactionStatusResult{
					Status: domain.TxStatusFinalized,
					Slot:   uint64(status.Slot),
				}, nil
			}
		}

		if attempt == p.attempts {
			break
		}
		if err := p.sleep(ctx, p.interval); err != nil {
			return domain.TransactionStatusResult{}, err
		}
	}

	metrics.PollingAttempts.Observe(float64(p.attempts))
	log.Warn().
		Str("signature", signature).
		Int("attempts", p.attempts).
		Msg("[Poller] confirmation window exhausted")
	return domain.TransactionStatusResult{
		Status:   domain.TxStatusPending,
		TimedOut: true,
	}, common.PollingTimeout("transaction not confirmed within the polling window")
}

// CheckOnce returns the current status of a signature without waiting.
func (p *Poller) CheckOnce(ctx context.Context, signature string) (domain.TransactionStatusResult, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return domain.TransactionStatusResult{}, common.ValidationError("invalid transaction signature")
	}
	res, err := p.client.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return domain.TransactionStatusResult{}, common.NetworkError("status lookup failed", err)
	}
	if len(res.Value) == 0 || res.Value[0] == nil {
		return domain.TransactionStatusResult{Status: domain.TxStatusPending}, nil
	}
	status := res.Value[0]
	out := domain.TransactionStatusResult{Slot: uint64(status.Slot)}
	switch {
	case status.Err != nil:
		out.Status = domain.TxStatusFailed
		out.ErrPayload = status.Err
	case status.ConfirmationStatus == rpc.ConfirmationStatusFinalized:
		out.Status = domain.TxStatusFinalized
	case status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed:
		out.Status = domain.TxStatusConfirmed
	default:
		out.Status = domain.TxStatusPending
	}
	return out, nil
}
