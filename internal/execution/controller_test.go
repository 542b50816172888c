package execution

import (
	"context"
	"testing"
	"time"

	"github.com/hxuan190/bridge-engine/internal/common"
	"github.com/hxuan190/bridge-engine/internal/domain"
)

type fakeSubmitter struct {
	calls     int
	failUntil int
	err       error
	sig       string

	// onSubmit fires after a successful submission, before returning.
	onSubmit func()
}

func (f *fakeSubmitter) Submit(ctx context.Context, quote *domain.NormalizedQuote, signedTx string) (string, error) {
	f.calls++
	if f.err != nil && f.calls <= f.failUntil {
		return "", f.err
	}
	if f.err != nil && f.failUntil == 0 {
		return "", f.err
	}
	if f.onSubmit != nil {
		f.onSubmit()
	}
	return f.sig, nil
}

type fakePoller struct {
	result domain.TransactionStatusResult
	err    error
}

func (f *fakePoller) Poll(ctx context.Context, signature string) (domain.TransactionStatusResult, error) {
	return f.result, f.err
}

func validQuote() *domain.NormalizedQuote {
	now := time.Now().UTC()
	return &domain.NormalizedQuote{
		Provider:  domain.ProviderJupiter,
		RequestID: "req-1",
		FetchedAt: now,
		ExpiryAt:  now.Add(domain.QuoteValidityWindow),
	}
}

func expiredQuote() *domain.NormalizedQuote {
	q := validQuote()
	q.ExpiryAt = time.Now().Add(-time.Second)
	return q
}

func TestExecutionHappyPath(t *testing.T) {
	settled := false
	sub := &fakeSubmitter{sig: testSignature}
	poll := &fakePoller{result: domain.TransactionStatusResult{Status: domain.TxStatusConfirmed, Slot: 10}}
	c := NewController(sub, poll, func() { settled = true })

	state, err := c.Begin(validQuote())
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if state.Phase != domain.PhaseAwaitingSignature {
		t.Errorf("phase = %v, want awaiting_signature", state.Phase)
	}

	state, err = c.Execute(context.Background(), "signed-tx-bytes")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if state.Phase != domain.PhaseSettled {
		t.Errorf("phase = %v, want settled", state.Phase)
	}
	if state.Signature != testSignature {
		t.Errorf("signature = %q", state.Signature)
	}
	if !settled {
		t.Error("onSettled callback should fire")
	}
	if sub.calls != 1 {
		t.Errorf("submit calls = %d, want 1", sub.calls)
	}
}

func TestBeginExpiredQuoteFailsImmediately(t *testing.T) {
	c := NewController(&fakeSubmitter{}, &fakePoller{}, nil)
	if _, err := c.Begin(expiredQuote()); err == nil {
		t.Fatal("expired quote must not start an execution")
	}
	if c.State().Phase != domain.PhaseFailed {
		t.Errorf("phase = %v, want failed", c.State().Phase)
	}
	if err := c.Reset(); err != nil {
		t.Fatalf("reset after expired-quote failure: %v", err)
	}
	if _, err := c.Begin(validQuote()); err != nil {
		t.Errorf("Begin after reset: %v", err)
	}
}

// cancelSensitivePoller mimics a poller whose sleeps and RPC calls abort as
// soon as its context is cancelled.
type cancelSensitivePoller struct{}

func (p *cancelSensitivePoller) Poll(ctx context.Context, signature string) (domain.TransactionStatusResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.TransactionStatusResult{Status: domain.TxStatusPending}, common.NetworkError("status poll interrupted", err)
	}
	return domain.TransactionStatusResult{Status: domain.TxStatusConfirmed, Slot: 7}, nil
}

func TestExecuteSurvivesCallerDisconnectAfterSubmit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	settled := false
	sub := &fakeSubmitter{sig: testSignature, onSubmit: cancel}
	c := NewController(sub, &cancelSensitivePoller{}, func() { settled = true })

	if _, err := c.Begin(validQuote()); err != nil {
		t.Fatal(err)
	}

	// The caller's context dies the moment the transaction is submitted.
	// Confirmation must still run to a real outcome; a submitted swap
	// cannot be cancelled.
	state, err := c.Execute(ctx, "signed")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if state.Phase != domain.PhaseSettled {
		t.Errorf("phase = %v, want settled", state.Phase)
	}
	if !settled {
		t.Error("onSettled must fire even when the caller disconnected")
	}
	if sub.calls != 1 {
		t.Errorf("submit calls = %d, want 1", sub.calls)
	}
}

func TestBeginRejectsWhileInProgress(t *testing.T) {
	c := NewController(&fakeSubmitter{}, &fakePoller{}, nil)
	if _, err := c.Begin(validQuote()); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Begin(validQuote()); err == nil {
		t.Error("second Begin without reset should fail")
	}
}

func TestExecuteRejectionIsTerminalWithoutRetry(t *testing.T) {
	sub := &fakeSubmitter{err: common.ExecutionRejection("provider rejected execution")}
	c := NewController(sub, &fakePoller{}, nil)

	if _, err := c.Begin(validQuote()); err != nil {
		t.Fatal(err)
	}
	state, err := c.Execute(context.Background(), "signed")
	if err == nil {
		t.Fatal("expected rejection error")
	}
	if state.Phase != domain.PhaseFailed {
		t.Errorf("phase = %v, want failed", state.Phase)
	}
	if sub.calls != 1 {
		t.Errorf("4xx rejection retried: calls = %d, want 1", sub.calls)
	}
}

func TestExecuteRetriesTransientSubmitFailures(t *testing.T) {
	sub := &fakeSubmitter{
		err:       common.NetworkError("502 from provider", nil),
		failUntil: 2,
		sig:       testSignature,
	}
	poll := &fakePoller{result: domain.TransactionStatusResult{Status: domain.TxStatusFinalized}}
	c := NewController(sub, poll, nil)

	if _, err := c.Begin(validQuote()); err != nil {
		t.Fatal(err)
	}

	// Real backoff sleeps 1s+2s here; acceptable for this test.
	state, err := c.Execute(context.Background(), "signed")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if state.Phase != domain.PhaseSettled {
		t.Errorf("phase = %v, want settled", state.Phase)
	}
	if sub.calls != 3 {
		t.Errorf("submit calls = %d, want 3", sub.calls)
	}
}

func TestExecuteOnChainFailure(t *testing.T) {
	sub := &fakeSubmitter{sig: testSignature}
	poll := &fakePoller{result: domain.TransactionStatusResult{
		Status:     domain.TxStatusFailed,
		ErrPayload: "InstructionError",
	}}
	c := NewController(sub, poll, nil)

	if _, err := c.Begin(validQuote()); err != nil {
		t.Fatal(err)
	}
	state, err := c.Execute(context.Background(), "signed")
	if err == nil {
		t.Fatal("expected on-chain failure")
	}
	if kind, _ := common.KindOf(err); kind != common.KindOnChainFailure {
		t.Errorf("error kind = %v, want on-chain failure", kind)
	}
	if state.Phase != domain.PhaseFailed {
		t.Errorf("phase = %v, want failed", state.Phase)
	}
}

func TestExecuteConfirmationTimeout(t *testing.T) {
	sub := &fakeSubmitter{sig: testSignature}
	poll := &fakePoller{
		result: domain.TransactionStatusResult{Status: domain.TxStatusPending, TimedOut: true},
		err:    common.PollingTimeout("transaction not confirmed within the polling window"),
	}
	c := NewController(sub, poll, nil)

	if _, err := c.Begin(validQuote()); err != nil {
		t.Fatal(err)
	}
	state, err := c.Execute(context.Background(), "signed")
	if kind, _ := common.KindOf(err); kind != common.KindPollingTimeout {
		t.Errorf("error kind = %v, want polling timeout", kind)
	}
	if state.Phase != domain.PhaseFailed {
		t.Errorf("phase = %v, want failed", state.Phase)
	}
}

func TestExecuteExpiredQuoteBeforeSubmit(t *testing.T) {
	sub := &fakeSubmitter{sig: testSignature}
	c := NewController(sub, &fakePoller{}, nil)

	q := validQuote()
	q.ExpiryAt = time.Now().Add(20 * time.Millisecond)
	if _, err := c.Begin(q); err != nil {
		t.Fatal(err)
	}
	time.Sleep(30 * time.Millisecond)

	state, err := c.Execute(context.Background(), "signed")
	if err == nil {
		t.Fatal("expired quote must not submit")
	}
	if state.Phase != domain.PhaseFailed {
		t.Errorf("phase = %v, want failed", state.Phase)
	}
	if sub.calls != 0 {
		t.Errorf("submit calls = %d, want 0", sub.calls)
	}
}

func TestResetOnlyFromTerminal(t *testing.T) {
	c := NewController(&fakeSubmitter{}, &fakePoller{}, nil)

	if err := c.Reset(); err != nil {
		t.Errorf("reset from idle should be a no-op, got %v", err)
	}

	if _, err := c.Begin(validQuote()); err != nil {
		t.Fatal(err)
	}
	if err := c.Reset(); err == nil {
		t.Error("reset while awaiting signature should fail")
	}

	// Drive to a terminal phase, then reset.
	sub := &fakeSubmitter{err: common.ExecutionRejection("rejected")}
	c2 := NewController(sub, &fakePoller{}, nil)
	if _, err := c2.Begin(validQuote()); err != nil {
		t.Fatal(err)
	}
	if _, err := c2.Execute(context.Background(), "signed"); err == nil {
		t.Fatal("expected failure")
	}
	if err := c2.Reset(); err != nil {
		t.Fatalf("reset from failed: %v", err)
	}
	if c2.State().Phase != domain.PhaseIdle {
		t.Errorf("phase after reset = %v, want idle", c2.State().Phase)
	}
}

func TestExecuteRequiresAwaitingSignature(t *testing.T) {
	c := NewController(&fakeSubmitter{}, &fakePoller{}, nil)
	if _, err := c.Execute(context.Background(), "signed"); err == nil {
		t.Error("Execute without Begin should fail")
	}
}
