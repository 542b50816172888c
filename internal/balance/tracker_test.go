package balance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

const (
	ownerA   = "So11111111111111111111111111111111111111112"
	ownerB   = "11111111111111111111111111111111"
	usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

type stubLedger struct {
	mu          sync.Mutex
	calls       int
	natives     map[string]uint64
	nativeErr   error
	tokenAmount string
	tokenErr    error

	// blockOwner gates every native lookup for that owner; blockCall gates
	// the n-th native lookup. The value is read before blocking so a gated
	// refresh resolves with the balance current at dispatch.
	blockOwner string
	blockCall  int
	gate       chan struct{}
}

func (s *stubLedger) GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error) {
	s.mu.Lock()
	s.calls++
	n := s.calls
	val := s.natives[account.String()]
	err := s.nativeErr
	s.mu.Unlock()

	if s.gate != nil && (account.String() == s.blockOwner || n == s.blockCall) {
		<-s.gate
	}
	if err != nil {
		return nil, err
	}
	return &rpc.GetBalanceResult{Value: val}, nil
}

func (s *stubLedger) nativeCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubLedger) GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error) {
	if s.tokenErr != nil {
		return nil, s.tokenErr
	}
	return &rpc.GetTokenAccountBalanceResult{
		Value: &rpc.UiTokenAmount{Amount: s.tokenAmount},
	}, nil
}

func newTestTracker(client LedgerClient) *Tracker {
	tr := NewTracker(client)
	tr.settleDelay = time.Millisecond
	return tr
}

func TestSetContextFetchesBothBalances(t *testing.T) {
	ledger := &stubLedger{
		natives:     map[string]uint64{ownerA: 5_000_000_000},
		tokenAmount: "123456",
	}
	tr := newTestTracker(ledger)

	tr.SetContext(ownerA, usdcMint)
	tr.Wait()

	snap := tr.Snapshot()
	if snap.NativeBalance != "5000000000" {
		t.Errorf("native = %q, want 5000000000", snap.NativeBalance)
	}
	if snap.OriginTokenBalance != "123456" {
		t.Errorf("token = %q, want 123456", snap.OriginTokenBalance)
	}
	if snap.Address != ownerA || snap.Token != usdcMint {
		t.Errorf("snapshot context = %q/%q", snap.Address, snap.Token)
	}
}

func TestNativeFailureKeepsPreviousSnapshot(t *testing.T) {
	ledger := &stubLedger{
		natives:     map[string]uint64{ownerA: 1000},
		tokenAmount: "42",
	}
	tr := newTestTracker(ledger)
	tr.SetContext(ownerA, usdcMint)
	tr.Wait()
	before := tr.Snapshot()

	// A failing refresh must not half-apply: both fields stay at the
	// previous epoch.
	ledger.nativeErr = errors.New("rpc unavailable")
	tr.Refresh()
	tr.Wait()

	after := tr.Snapshot()
	if after.NativeBalance != before.NativeBalance || after.OriginTokenBalance != before.OriginTokenBalance {
		t.Errorf("failed refresh mutated snapshot: %+v -> %+v", before, after)
	}
}

func TestSupersededRefreshDiscarded(t *testing.T) {
	gate := make(chan struct{})
	ledger := &stubLedger{
		natives: map[string]uint64{
			ownerA: 111,
			ownerB: 222,
		},
		tokenAmount: "9",
		blockOwner:  ownerA,
		gate:        gate,
	}
	tr := newTestTracker(ledger)

	tr.SetContext(ownerA, usdcMint)
	// Supersede before the first refresh can resolve.
	tr.SetContext(ownerB, usdcMint)
	close(gate)
	tr.Wait()

	snap := tr.Snapshot()
	if snap.Address != ownerB {
		t.Fatalf("snapshot address = %q, want %q", snap.Address, ownerB)
	}
	if snap.NativeBalance != "222" {
		t.Errorf("native = %q, want the superseding context's balance", snap.NativeBalance)
	}
}

func TestMissingTokenAccountIsZero(t *testing.T) {
	ledger := &stubLedger{
		natives:  map[string]uint64{ownerA: 1000},
		tokenErr: errors.New("could not find account"),
	}
	tr := newTestTracker(ledger)
	tr.SetContext(ownerA, usdcMint)
	tr.Wait()

	if got := tr.Snapshot().OriginTokenBalance; got != "0" {
		t.Errorf("token balance = %q, want 0 for missing account", got)
	}
}

func TestNonSolanaTokenSkipsTokenLookup(t *testing.T) {
	ledger := &stubLedger{natives: map[string]uint64{ownerA: 1000}}
	tr := newTestTracker(ledger)
	tr.SetContext(ownerA, "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	tr.Wait()

	snap := tr.Snapshot()
	if snap.NativeBalance != "1000" {
		t.Errorf("native = %q, want 1000", snap.NativeBalance)
	}
	if snap.OriginTokenBalance != "" {
		t.Errorf("token = %q, want unknown for non-Solana mint", snap.OriginTokenBalance)
	}
}

func TestNewerSettleRefreshSupersedesOlder(t *testing.T) {
	gate := make(chan struct{})
	ledger := &stubLedger{
		natives:     map[string]uint64{ownerA: 100},
		tokenAmount: "1",
		gate:        gate,
		blockCall:   2,
	}
	tr := newTestTracker(ledger)
	tr.SetContext(ownerA, usdcMint)
	tr.Wait()

	// First settle refresh reads the pre-settle balance and stalls mid-fetch.
	tr.InvalidateAfterSettle()
	deadline := time.Now().Add(2 * time.Second)
	for ledger.nativeCalls() < 2 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	if ledger.nativeCalls() < 2 {
		t.Fatal("first settle refresh never reached the ledger")
	}

	// A second settlement lands while the first refresh is still in flight.
	ledger.mu.Lock()
	ledger.natives[ownerA] = 500
	ledger.mu.Unlock()
	tr.InvalidateAfterSettle()

	deadline = time.Now().Add(2 * time.Second)
	for tr.Snapshot().NativeBalance != "500" && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}

	// Releasing the older refresh must not roll the snapshot back.
	close(gate)
	tr.Wait()

	if got := tr.Snapshot().NativeBalance; got != "500" {
		t.Errorf("native = %q, want the newer settle refresh to win", got)
	}
}

func TestInvalidateAfterSettleRefreshes(t *testing.T) {
	ledger := &stubLedger{
		natives:     map[string]uint64{ownerA: 1000},
		tokenAmount: "50",
	}
	tr := newTestTracker(ledger)
	tr.SetContext(ownerA, usdcMint)
	tr.Wait()

	ledger.mu.Lock()
	ledger.natives[ownerA] = 900
	ledger.mu.Unlock()
	ledger.tokenAmount = "75"

	tr.InvalidateAfterSettle()
	tr.Wait()

	snap := tr.Snapshot()
	if snap.NativeBalance != "900" || snap.OriginTokenBalance != "75" {
		t.Errorf("post-settle snapshot = %+v, want refreshed balances", snap)
	}
}
