// Package balance keeps a best-effort snapshot of the user's native and
// origin-token balances, refreshed on context changes and after settlement.
package balance

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/bridge-engine/internal/common"
	"github.com/hxuan190/bridge-engine/internal/domain"
	"github.com/hxuan190/bridge-engine/internal/metrics"
)

// SettleDelay gives RPC nodes time to index the settled transaction before
// the post-settlement refresh reads balances.
const SettleDelay = 1500 * time.Millisecond

const refreshTimeout = 10 * time.Second

// LedgerClient is the balance lookup surface the tracker depends on.
type LedgerClient interface {
	GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error)
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error)
}

// Tracker refreshes balances asynchronously. Every dispatch bumps the
// generation and tags the refresh with it; a refresh that resolves after a
// newer dispatch (context change, settle, or manual) is discarded whole. A
// refresh applies both balances or neither.
type Tracker struct {
	mu sync.Mutex

	client      LedgerClient
	settleDelay time.Duration
	sleep       func(ctx context.Context, d time.Duration) error

	generation uint64
	owner      string
	mint       string
	snapshot   domain.BalanceSnapshot

	wg sync.WaitGroup
}

func NewTracker(client LedgerClient) *Tracker {
	return &Tracker{
		client:      client,
		settleDelay: SettleDelay,
		sleep:       sleepCtx,
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

// SetContext switches the tracked owner and origin token and kicks off an
// immediate refresh. Any in-flight refresh for the previous context is
// superseded by the generation bump.
func (t *Tracker) SetContext(owner, mint string) {
	t.mu.Lock()
	if t.owner == owner && t.mint == mint {
		t.mu.Unlock()
		return
	}
	t.generation++
	gen := t.generation
	t.owner = owner
	t.mint = mint
	t.snapshot = domain.BalanceSnapshot{Address: owner, Token: mint}
	t.mu.Unlock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.refresh(gen, owner, mint, "context_change", 0)
	}()
}

// InvalidateAfterSettle schedules a refresh after the settle delay so the
// ledger reflects the executed swap. The generation bump supersedes any
// refresh still in flight for the same context.
func (t *Tracker) InvalidateAfterSettle() {
	t.dispatch("settle", t.settleDelay)
}

// Refresh re-reads balances for the current context immediately.
func (t *Tracker) Refresh() {
	t.dispatch("manual", 0)
}

func (t *Tracker) dispatch(trigger string, delay time.Duration) {
	t.mu.Lock()
	if t.owner == "" {
		t.mu.Unlock()
		return
	}
	t.generation++
	gen := t.generation
	owner := t.owner
	mint := t.mint
	t.mu.Unlock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.refresh(gen, owner, mint, trigger, delay)
	}()
}

func (t *Tracker) Snapshot() domain.BalanceSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot
}

// Wait blocks until in-flight refreshes finish. Test hook.
func (t *Tracker) Wait() {
	t.wg.Wait()
}

func (t *Tracker) refresh(gen uint64, owner, mint, trigger string, delay time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), delay+refreshTimeout)
	defer cancel()

	if delay > 0 {
		if err := t.sleep(ctx, delay); err != nil {
			return
		}
	}

	ownerPK, err := solana.PublicKeyFromBase58(owner)
	if err != nil {
		log.Debug().Str("owner", owner).Msg("[BalanceTracker] owner is not a Solana address, skipping refresh")
		return
	}

	native, token, err := t.fetchBoth(ctx, ownerPK, mint)
	if err != nil {
		log.Warn().Err(err).Str("trigger", trigger).Msg("[BalanceTracker] refresh failed, keeping previous snapshot")
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.generation {
		log.Debug().Str("trigger", trigger).Msg("[BalanceTracker] discarding refresh for superseded context")
		return
	}
	t.snapshot = domain.BalanceSnapshot{
		Address:            owner,
		Token:              mint,
		NativeBalance:      native,
		OriginTokenBalance: token,
		UpdatedAt:          time.Now().UTC(),
	}
	metrics.BalanceRefreshes.WithLabelValues(trigger).Inc()
}

// fetchBoth reads native and token balances in parallel; either failure
// fails the whole refresh so the snapshot never mixes epochs.
func (t *Tracker) fetchBoth(ctx context.Context, owner solana.PublicKey, mint string) (string, string, error) {
	var (
		wg        sync.WaitGroup
		native    string
		nativeErr error
		token     string
		tokenErr  error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		res, err := t.client.GetBalance(ctx, owner, rpc.CommitmentConfirmed)
		if err != nil {
			nativeErr = common.NetworkError("native balance lookup failed", err)
			return
		}
		native = strconv.FormatUint(res.Value, 10)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		token, tokenErr = t.fetchTokenBalance(ctx, owner, mint)
	}()

	wg.Wait()
	if nativeErr != nil {
		return "", "", nativeErr
	}
	if tokenErr != nil {
		return "", "", tokenErr
	}
	return native, token, nil
}

func (t *Tracker) fetchTokenBalance(ctx context.Context, owner solana.PublicKey, mint string) (string, error) {
	mintPK, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		// Non-Solana origin token (EVM address); only native is tracked.
		return "", nil
	}
	if mintPK.Equals(common.NativeMint) {
		// Wrapped SOL swaps spend from the native balance directly.
		return "", nil
	}

	ata, _, err := solana.FindAssociatedTokenAddress(owner, mintPK)
	if err != nil {
		return "", common.ValidationError("deriving associated token address failed: " + err.Error())
	}

	res, err := t.client.GetTokenAccountBalance(ctx, ata, rpc.CommitmentConfirmed)
	if err != nil {
		// A missing token account is a zero balance, not an error.
		return "0", nil
	}
	if res == nil || res.Value == nil {
		return "0", nil
	}
	return res.Value.Amount, nil
}
