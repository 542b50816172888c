// Package orchestrator fans quote requests out to every provider adapter,
// discards results that resolve for superseded parameters, and tracks the
// freshness of the selected quote.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hxuan190/bridge-engine/internal/common"
	"github.com/hxuan190/bridge-engine/internal/domain"
	"github.com/hxuan190/bridge-engine/internal/metrics"
	"github.com/hxuan190/bridge-engine/internal/providers"
)

type State string

const (
	StateIdle       State = "idle"
	StateDebouncing State = "debouncing"
	StateFetching   State = "fetching"
	StateQuoteReady State = "quote_ready"
	StateAllFailed  State = "all_failed"
)

const (
	// DebounceDelay must elapse with no further param change before a fetch
	// starts (trailing edge).
	DebounceDelay = 600 * time.Millisecond

	// StaleAfter is a soft UX signal. ExpireAfter is hard: execution is
	// blocked and a re-fetch forced.
	StaleAfter  = 20 * time.Second
	ExpireAfter = 30 * time.Second

	tickInterval = time.Second
)

// feeInspector is the slice of the token inspector the orchestrator needs.
type feeInspector interface {
	Inspect(ctx context.Context, mint string) domain.TokenFeeInfo
}

type outcome struct {
	quote *domain.NormalizedQuote
	err   error
}

// ProviderResult is one adapter's resolved outcome, as exposed in snapshots.
type ProviderResult struct {
	Provider domain.Provider         `json:"provider"`
	Quote    *domain.NormalizedQuote `json:"quote,omitempty"`
	Error    string                  `json:"error,omitempty"`
}

// Snapshot is a read-only view of the orchestrator state.
type Snapshot struct {
	State       State                   `json:"state"`
	Fingerprint domain.Fingerprint      `json:"fingerprint,omitempty"`
	Best        *domain.NormalizedQuote `json:"best,omitempty"`
	Results     []ProviderResult        `json:"results,omitempty"`
	Stale       bool                    `json:"stale"`
	Expired     bool                    `json:"expired"`
	FetchedAt   time.Time               `json:"fetchedAt,omitempty"`
	LastError   string                  `json:"lastError,omitempty"`
}

// Options override the production timing defaults, mainly for tests.
type Options struct {
	Debounce    time.Duration
	StaleAfter  time.Duration
	ExpireAfter time.Duration
	Now         func() time.Time
}

// Orchestrator owns the parameter fingerprint and the selected quote. All
// mutation happens under one mutex; async results re-check the fingerprint
// at resolution time and are dropped unconditionally on mismatch.
type Orchestrator struct {
	mu sync.Mutex

	adapters  []providers.Adapter
	inspector feeInspector

	debounce    time.Duration
	staleAfter  time.Duration
	expireAfter time.Duration
	now         func() time.Time

	state       State
	params      domain.SwapParams
	fingerprint domain.Fingerprint
	timer       *time.Timer

	// epoch counts fetch dispatches. A forced refresh keeps the fingerprint
	// but starts a new epoch, so deliveries from the older fetch cannot
	// count against the new one.
	epoch     uint64
	pending   int
	results   map[domain.Provider]outcome
	best      *domain.NormalizedQuote
	lastErr   error
	fetchedAt time.Time
	stale     bool
	expired   bool

	done chan struct{}
	wg   sync.WaitGroup
}

func New(adapters []providers.Adapter, inspector feeInspector, opts Options) *Orchestrator {
	o := &Orchestrator{
		adapters:    adapters,
		inspector:   inspector,
		debounce:    DebounceDelay,
		staleAfter:  StaleAfter,
		expireAfter: ExpireAfter,
		now:         time.Now,
		state:       StateIdle,
		results:     make(map[domain.Provider]outcome),
		done:        make(chan struct{}),
	}
	if opts.Debounce > 0 {
		o.debounce = opts.Debounce
	}
	if opts.StaleAfter > 0 {
		o.staleAfter = opts.StaleAfter
	}
	if opts.ExpireAfter > 0 {
		o.expireAfter = opts.ExpireAfter
	}
	if opts.Now != nil {
		o.now = opts.Now
	}
	return o
}

// Start launches the freshness tick loop.
func (o *Orchestrator) Start() {
	o.wg.Add(1)
	go o.tickLoop()
}

func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	o.mu.Unlock()
	close(o.done)
	o.wg.Wait()
}

// SetParams records a new parameter set and (re)starts the trailing-edge
// debounce. Identical params are a no-op; every change supersedes all
// in-flight work via the new fingerprint.
func (o *Orchestrator) SetParams(p domain.SwapParams) error {
	if err := p.Validate(); err != nil {
		return common.ValidationError(err.Error())
	}
	fp := p.Fingerprint()

	o.mu.Lock()
	defer o.mu.Unlock()

	if fp == o.fingerprint && o.state != StateIdle {
		return nil
	}

	o.params = p
	o.fingerprint = fp
	o.state = StateDebouncing
	if o.timer != nil {
		o.timer.Stop()
	}
	o.timer = time.AfterFunc(o.debounce, func() {
		o.beginFetch(fp)
	})

	log.Debug().
		Str("fingerprint", string(fp)).
		Msg("[Orchestrator] params updated, debouncing")
	return nil
}

// Refresh re-dispatches the current params immediately, skipping debounce.
// The new fetch starts a fresh epoch; anything still in flight is superseded.
func (o *Orchestrator) Refresh() {
	o.mu.Lock()
	fp := o.fingerprint
	o.mu.Unlock()
	if fp == "" {
		return
	}
	o.beginFetch(fp)
}

func (o *Orchestrator) beginFetch(fp domain.Fingerprint) {
	o.mu.Lock()
	if fp != o.fingerprint {
		o.mu.Unlock()
		return
	}
	o.state = StateFetching
	o.epoch++
	ep := o.epoch
	o.results = make(map[domain.Provider]outcome, len(o.adapters))
	o.pending = len(o.adapters)
	params := o.params
	o.mu.Unlock()

	metrics.QuoteFanouts.Inc()

	o.wg.Add(1)
	go o.fanOut(fp, ep, params)
}

// fanOut dispatches every adapter concurrently. A slow provider never blocks
// the others; each result is reconciled individually as it arrives.
func (o *Orchestrator) fanOut(fp domain.Fingerprint, ep uint64, params domain.SwapParams) {
	defer o.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), providers.RequestTimeout+5*time.Second)
	defer cancel()

	dispatch := params
	if o.inspector != nil && params.TradeType == domain.TradeExactIn {
		if fi := o.inspector.Inspect(ctx, params.OriginToken); fi.HasTransferFees {
			dispatch.Amount = common.ApplyTransferFee(params.Amount, fi.TransferFeeBps)
			log.Debug().
				Uint16("feeBps", fi.TransferFeeBps).
				Str("adjustedAmount", dispatch.Amount).
				Msg("[Orchestrator] amount adjusted for transfer fee")
		}
	}

	var wg sync.WaitGroup
	for _, a := range o.adapters {
		wg.Add(1)
		go func(a providers.Adapter) {
			defer wg.Done()
			start := time.Now()
			quote, err := a.Quote(ctx, dispatch)
			metrics.ProviderQuoteDuration.WithLabelValues(string(a.Name())).Observe(time.Since(start).Seconds())
			status := "success"
			if err != nil {
				status = "error"
			}
			metrics.ProviderQuotes.WithLabelValues(string(a.Name()), status).Inc()
			o.deliver(fp, ep, a.Name(), quote, err)
		}(a)
	}
	wg.Wait()
}

// deliver reconciles one adapter result. The fingerprint and epoch
// comparison is the cancellation mechanism: a call dispatched for superseded
// params or an older fetch may still complete, and its result must be
// checked and discarded, never applied.
func (o *Orchestrator) deliver(fp domain.Fingerprint, ep uint64, provider domain.Provider, quote *domain.NormalizedQuote, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if fp != o.fingerprint || ep != o.epoch {
		metrics.StaleResultsDiscarded.Inc()
		log.Debug().
			Str("provider", string(provider)).
			Msg("[Orchestrator] discarding result for superseded fetch")
		return
	}
	if o.state != StateFetching {
		// A result landing after finalize is simply late.
		metrics.StaleResultsDiscarded.Inc()
		return
	}

	o.results[provider] = outcome{quote: quote, err: err}
	o.pending--
	if o.pending > 0 {
		return
	}

	o.finalize()
}

// finalize runs with the lock held once every adapter for the live
// fingerprint has resolved.
func (o *Orchestrator) finalize() {
	best := selectBest(o.adapters, o.results)
	if best != nil {
		o.best = best
		o.lastErr = nil
		o.fetchedAt = best.FetchedAt
		o.stale = false
		o.expired = false
		o.state = StateQuoteReady
		log.Info().
			Str("provider", string(best.Provider)).
			Str("expectedOut", best.ExpectedOut).
			Msg("[Orchestrator] best quote selected")
		return
	}

	o.best = nil
	o.lastErr = representativeError(o.adapters, o.results)
	o.state = StateAllFailed
	log.Warn().Err(o.lastErr).Msg("[Orchestrator] all providers failed")
}

func (o *Orchestrator) tickLoop() {
	defer o.wg.Done()
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-o.done:
			return
		case <-ticker.C:
			o.tick()
		}
	}
}

// tick recomputes the derived freshness flags and forces a re-fetch when the
// selected quote crosses the hard expiry window.
func (o *Orchestrator) tick() {
	o.mu.Lock()
	if o.state != StateQuoteReady || o.best == nil {
		o.mu.Unlock()
		return
	}
	elapsed := o.now().Sub(o.fetchedAt)
	o.stale = elapsed > o.staleAfter
	wasExpired := o.expired
	o.expired = elapsed > o.expireAfter
	refetch := o.expired && !wasExpired
	fp := o.fingerprint
	o.mu.Unlock()

	if refetch {
		metrics.QuotesExpired.Inc()
		log.Info().Msg("[Orchestrator] selected quote expired, forcing re-fetch")
		o.beginFetch(fp)
	}
}

// SelectedQuote returns the current best quote if it is executable.
func (o *Orchestrator) SelectedQuote() (*domain.NormalizedQuote, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.best == nil || o.state == StateAllFailed {
		return nil, common.ValidationError("no quote selected")
	}
	if o.best.Expired(o.now()) {
		return nil, common.ValidationError("quote expired, re-fetch required")
	}
	quote := *o.best
	return &quote, nil
}

// Params returns the current parameter set.
func (o *Orchestrator) Params() domain.SwapParams {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.params
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	snap := Snapshot{
		State:       o.state,
		Fingerprint: o.fingerprint,
		Stale:       o.stale,
		Expired:     o.expired,
		FetchedAt:   o.fetchedAt,
	}
	if o.best != nil {
		quote := *o.best
		snap.Best = &quote
	}
	if o.lastErr != nil {
		snap.LastError = common.UserMessage(o.lastErr)
	}
	for _, a := range o.adapters {
		res, ok := o.results[a.Name()]
		if !ok {
			continue
		}
		pr := ProviderResult{Provider: a.Name(), Quote: res.quote}
		if res.err != nil {
			pr.Error = common.UserMessage(res.err)
		}
		snap.Results = append(snap.Results, pr)
	}
	return snap
}
