package execution

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/hxuan190/bridge-engine/internal/common"
	"github.com/hxuan190/bridge-engine/internal/domain"
)

var testSignature = solana.Signature{}.String()

type scriptedStatusClient struct {
	// one entry per poll; nil entry means "not yet visible"
	script []*rpc.SignatureStatusesResult
	errs   []error
	calls  int
}

func (s *scriptedStatusClient) GetSignatureStatuses(ctx context.Context, searchHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	idx := s.calls
	s.calls++
	if idx < len(s.errs) && s.errs[idx] != nil {
		return nil, s.errs[idx]
	}
	var value *rpc.SignatureStatusesResult
	if idx < len(s.script) {
		value = s.script[idx]
	}
	return &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{value}}, nil
}

func newTestPoller(client StatusClient, attempts int) *Poller {
	p := NewPoller(client)
	p.attempts = attempts
	p.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return p
}

func TestPollConfirmedStopsEarly(t *testing.T) {
	client := &scriptedStatusClient{script: []*rpc.SignatureStatusesResult{
		nil,
		{Slot: 100, ConfirmationStatus: rpc.ConfirmationStatusConfirmed},
	}}
	p := newTestPoller(client, 30)

	res, err := p.Poll(context.Background(), testSignature)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != domain.TxStatusConfirmed {
		t.Errorf("status = %v, want confirmed", res.Status)
	}
	if !res.Settled() {
		t.Error("confirmed result should count as settled")
	}
	if client.calls != 2 {
		t.Errorf("calls = %d, want 2", client.calls)
	}
}

func TestPollFinalizedSettles(t *testing.T) {
	client := &scriptedStatusClient{script: []*rpc.SignatureStatusesResult{
		{Slot: 90, ConfirmationStatus: rpc.ConfirmationStatusFinalized},
	}}
	p := newTestPoller(client, 30)

	res, err := p.Poll(context.Background(), testSignature)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != domain.TxStatusFinalized || !res.Settled() {
		t.Errorf("result = %+v, want finalized settled", res)
	}
}

func TestPollOnChainErrorImmediate(t *testing.T) {
	client := &scriptedStatusClient{script: []*rpc.SignatureStatusesResult{
		{Slot: 50, Err: map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}},
	}}
	p := newTestPoller(client, 30)

	res, err := p.Poll(context.Background(), testSignature)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != domain.TxStatusFailed {
		t.Errorf("status = %v, want failed", res.Status)
	}
	if res.Settled() {
		t.Error("on-chain failure is not settled")
	}
	if res.ErrPayload == nil {
		t.Error("error payload should be carried through")
	}
	if client.calls != 1 {
		t.Errorf("calls = %d, want 1", client.calls)
	}
}

func TestPollExhaustsAttemptBudget(t *testing.T) {
	client := &scriptedStatusClient{}
	p := newTestPoller(client, 5)

	res, err := p.Poll(context.Background(), testSignature)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if kind, _ := common.KindOf(err); kind != common.KindPollingTimeout {
		t.Errorf("error kind = %v, want polling timeout", kind)
	}
	if !res.TimedOut || res.Status != domain.TxStatusPending {
		t.Errorf("result = %+v, want pending timeout", res)
	}
	if client.calls != 5 {
		t.Errorf("calls = %d, want exactly 5", client.calls)
	}
}

func TestPollTransientErrorsConsumeAttempts(t *testing.T) {
	client := &scriptedStatusClient{
		errs: []error{errors.New("rpc busy"), errors.New("rpc busy")},
		script: []*rpc.SignatureStatusesResult{
			nil, nil,
			{Slot: 10, ConfirmationStatus: rpc.ConfirmationStatusConfirmed},
		},
	}
	p := newTestPoller(client, 30)

	res, err := p.Poll(context.Background(), testSignature)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != domain.TxStatusConfirmed {
		t.Errorf("status = %v, want confirmed after transient errors", res.Status)
	}
	if client.calls != 3 {
		t.Errorf("calls = %d, want 3", client.calls)
	}
}

func TestPollInvalidSignature(t *testing.T) {
	p := newTestPoller(&scriptedStatusClient{}, 30)
	_, err := p.Poll(context.Background(), "not-base58!")
	if kind, _ := common.KindOf(err); kind != common.KindValidation {
		t.Errorf("error kind = %v, want validation", kind)
	}
}

func TestCheckOnce(t *testing.T) {
	client := &scriptedStatusClient{script: []*rpc.SignatureStatusesResult{
		{Slot: 7, ConfirmationStatus: rpc.ConfirmationStatusProcessed},
	}}
	p := newTestPoller(client, 30)

	res, err := p.CheckOnce(context.Background(), testSignature)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != domain.TxStatusPending {
		t.Errorf("processed should report pending, got %v", res.Status)
	}
	if client.calls != 1 {
		t.Errorf("calls = %d, want 1", client.calls)
	}
}
