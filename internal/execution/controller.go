package execution

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hxuan190/bridge-engine/internal/common"
	"github.com/hxuan190/bridge-engine/internal/domain"
	"github.com/hxuan190/bridge-engine/internal/metrics"
)

// submitter and poller are narrowed for test doubles.
type submitter interface {
	Submit(ctx context.Context, quote *domain.NormalizedQuote, signedTx string) (string, error)
}

type statusPoller interface {
	Poll(ctx context.Context, signature string) (domain.TransactionStatusResult, error)
}

// Controller is the execution state machine for one session. Phases only
// move forward until a terminal phase; Reset is the single way back to idle.
type Controller struct {
	mu sync.Mutex

	submitter submitter
	poller    statusPoller
	now       func() time.Time

	phase     domain.ExecutionPhase
	quote     *domain.NormalizedQuote
	signature string
	reason    string
	updatedAt time.Time

	// onSettled fires after a successful settle, outside the lock.
	onSettled func()
}

func NewController(sub submitter, poll statusPoller, onSettled func()) *Controller {
	return &Controller{
		submitter: sub,
		poller:    poll,
		now:       time.Now,
		phase:     domain.PhaseIdle,
		onSettled: onSettled,
	}
}

// Begin pins the quote for signing and moves to awaiting_signature. An
// expired quote fails the execution immediately; expiry is checked again at
// submission because prices move while the user signs.
func (c *Controller) Begin(quote *domain.NormalizedQuote) (domain.ExecutionState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != domain.PhaseIdle {
		return c.stateLocked(), common.ValidationError("execution already in progress, reset first")
	}
	if quote == nil {
		return c.stateLocked(), common.ValidationError("no quote selected")
	}
	if quote.Expired(c.now()) {
		pinned := *quote
		c.quote = &pinned
		c.setPhaseLocked(domain.PhaseFailed, "quote expired before signing")
		metrics.ExecutionResults.WithLabelValues("expired").Inc()
		return c.stateLocked(), common.ValidationError("quote expired, re-fetch required")
	}

	pinned := *quote
	c.quote = &pinned
	c.setPhaseLocked(domain.PhaseAwaitingSignature, "")
	log.Info().
		Str("provider", string(quote.Provider)).
		Msg("[Controller] execution started, awaiting signature")
	return c.stateLocked(), nil
}

// Execute submits the signed transaction and drives it to a terminal phase.
// It blocks through submission and confirmation polling.
func (c *Controller) Execute(ctx context.Context, signedTx string) (domain.ExecutionState, error) {
	c.mu.Lock()
	if c.phase != domain.PhaseAwaitingSignature {
		state := c.stateLocked()
		c.mu.Unlock()
		return state, common.ValidationError("no execution awaiting signature")
	}
	quote := c.quote
	if quote.Expired(c.now()) {
		c.setPhaseLocked(domain.PhaseFailed, "quote expired before submission")
		state := c.stateLocked()
		c.mu.Unlock()
		metrics.ExecutionResults.WithLabelValues("expired").Inc()
		return state, common.ValidationError("quote expired, re-fetch required")
	}
	c.setPhaseLocked(domain.PhaseSubmitting, "")
	c.mu.Unlock()

	// The transaction is signed; from here it must reach a genuine terminal
	// outcome even if the caller disconnects. The poller's attempt bound
	// caps how long the detached work can run.
	ctx = context.WithoutCancel(ctx)

	var signature string
	err := common.WithRetry(ctx, func(ctx context.Context) error {
		sig, submitErr := c.submitter.Submit(ctx, quote, signedTx)
		if submitErr != nil {
			if common.IsRetryable(submitErr) {
				metrics.SubmitRetries.Inc()
			}
			return submitErr
		}
		signature = sig
		return nil
	}, common.DefaultMaxAttempts, common.DefaultInitialDelay)
	if err != nil {
		c.fail("submission failed: " + common.UserMessage(err))
		metrics.ExecutionResults.WithLabelValues("submit_failed").Inc()
		return c.State(), err
	}

	c.mu.Lock()
	c.signature = signature
	c.setPhaseLocked(domain.PhaseConfirming, "")
	c.mu.Unlock()

	result, pollErr := c.poller.Poll(ctx, signature)
	switch {
	case result.Settled():
		c.mu.Lock()
		c.setPhaseLocked(domain.PhaseSettled, "")
		c.mu.Unlock()
		metrics.ExecutionResults.WithLabelValues("settled").Inc()
		log.Info().
			Str("signature", signature).
			Str("status", string(result.Status)).
			Msg("[Controller] transaction settled")
		if c.onSettled != nil {
			c.onSettled()
		}
		return c.State(), nil
	case result.TimedOut:
		c.fail("confirmation timed out, check the transaction manually")
		metrics.ExecutionResults.WithLabelValues("timeout").Inc()
		return c.State(), pollErr
	case result.Status == domain.TxStatusFailed:
		c.fail("transaction failed on chain")
		metrics.ExecutionResults.WithLabelValues("onchain_failed").Inc()
		return c.State(), common.OnChainFailure("transaction failed on chain")
	default:
		if pollErr == nil {
			pollErr = common.PollingTimeout("transaction status unresolved")
		}
		c.fail(common.UserMessage(pollErr))
		metrics.ExecutionResults.WithLabelValues("poll_failed").Inc()
		return c.State(), pollErr
	}
}

// Reset returns the machine to idle. Only terminal phases can be reset; an
// in-flight execution must run to an outcome first.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != domain.PhaseIdle && !c.phase.Terminal() {
		return common.ValidationError("execution in progress cannot be reset")
	}
	c.quote = nil
	c.signature = ""
	c.setPhaseLocked(domain.PhaseIdle, "")
	return nil
}

func (c *Controller) State() domain.ExecutionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) fail(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setPhaseLocked(domain.PhaseFailed, reason)
	log.Warn().Str("reason", reason).Msg("[Controller] execution failed")
}

func (c *Controller) setPhaseLocked(phase domain.ExecutionPhase, reason string) {
	c.phase = phase
	c.reason = reason
	c.updatedAt = c.now()
}

func (c *Controller) stateLocked() domain.ExecutionState {
	state := domain.ExecutionState{
		Phase:     c.phase,
		Signature: c.signature,
		Reason:    c.reason,
		UpdatedAt: c.updatedAt,
	}
	if c.quote != nil {
		state.Provider = c.quote.Provider
	}
	return state
}
