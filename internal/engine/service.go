// Package engine owns the per-session wiring: each client session gets its
// own quote orchestrator, execution controller, and balance tracker.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/bridge-engine/internal/balance"
	"github.com/hxuan190/bridge-engine/internal/common"
	"github.com/hxuan190/bridge-engine/internal/config"
	"github.com/hxuan190/bridge-engine/internal/domain"
	"github.com/hxuan190/bridge-engine/internal/execution"
	"github.com/hxuan190/bridge-engine/internal/metrics"
	"github.com/hxuan190/bridge-engine/internal/orchestrator"
	"github.com/hxuan190/bridge-engine/internal/providers"
	"github.com/hxuan190/bridge-engine/internal/token"
)

const ENGINE_SERVICE = "engine-service"

const janitorInterval = time.Minute

// Session bundles the per-client state machines. A session is created on
// first use and evicted after the configured idle TTL.
type Session struct {
	Orchestrator *orchestrator.Orchestrator
	Controller   *execution.Controller
	Tracker      *balance.Tracker

	lastSeen time.Time
}

type Service struct {
	container.BaseDIInstance
	logger *common.ServiceLogger

	rpcClient *rpc.Client
	inspector *token.Inspector
	adapters  []providers.Adapter
	submitter *execution.Submitter
	poller    *execution.Poller

	sessionTTL time.Duration

	mu       sync.Mutex
	sessions map[string]*Session

	done chan struct{}
	wg   sync.WaitGroup
}

func (svc *Service) ID() string {
	return ENGINE_SERVICE
}

func (svc *Service) Configure(c container.IContainer) error {
	svc.logger = common.NewServiceLogger(svc)
	rpcConfig := c.GetConfig(config.RPC_CONFIG_KEY).(*config.RPCConfig)
	providerConfig := c.GetConfig(config.PROVIDER_CONFIG_KEY).(*config.ProviderConfig)

	svc.rpcClient = rpc.New(rpcConfig.RPCUrl)
	svc.inspector = token.NewInspector(svc.rpcClient)

	// Ordered by selection priority; ties in quote scoring resolve to the
	// earliest adapter.
	svc.adapters = []providers.Adapter{
		providers.NewJupiterAdapter(providerConfig.JupiterBaseURL),
		providers.NewDeBridgeAdapter(providerConfig.DeBridgeBaseURL),
		providers.NewRelayAdapter(providerConfig.RelayBaseURL),
	}

	svc.submitter = execution.NewSubmitter(map[domain.Provider]string{
		domain.ProviderJupiter:  providerConfig.JupiterExecuteURL,
		domain.ProviderDeBridge: providerConfig.DeBridgeExecuteURL,
		domain.ProviderRelay:    providerConfig.RelayExecuteURL,
	})
	svc.poller = execution.NewPoller(svc.rpcClient)

	svc.sessionTTL = time.Duration(providerConfig.SessionTTLSeconds) * time.Second
	svc.sessions = make(map[string]*Session)
	svc.done = make(chan struct{})
	return nil
}

func (svc *Service) Start() error {
	svc.wg.Add(1)
	go svc.janitor()
	svc.logger.Info().Msg("engine started")
	return nil
}

func (svc *Service) Stop() error {
	close(svc.done)
	svc.wg.Wait()

	svc.mu.Lock()
	defer svc.mu.Unlock()
	for id, sess := range svc.sessions {
		sess.Orchestrator.Stop()
		delete(svc.sessions, id)
	}
	metrics.ActiveSessions.Set(0)
	svc.logger.Info().Msg("engine stopped")
	return nil
}

// Session returns the session for the given id, creating it on first use.
func (svc *Service) Session(id string) (*Session, error) {
	if id == "" {
		return nil, common.ValidationError("sessionId is required")
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	if sess, ok := svc.sessions[id]; ok {
		sess.lastSeen = time.Now()
		return sess, nil
	}

	sess := &Session{
		Orchestrator: orchestrator.New(svc.adapters, svc.inspector, orchestrator.Options{}),
		Tracker:      balance.NewTracker(svc.rpcClient),
		lastSeen:     time.Now(),
	}
	sess.Controller = execution.NewController(svc.submitter, svc.poller, sess.Tracker.InvalidateAfterSettle)
	sess.Orchestrator.Start()

	svc.sessions[id] = sess
	metrics.ActiveSessions.Set(float64(len(svc.sessions)))
	svc.logger.Info().Str("sessionId", id).Msg("session created")
	return sess, nil
}

// UpsertParams routes a parameter change into the session's orchestrator and
// points the balance tracker at the new context.
func (svc *Service) UpsertParams(id string, params domain.SwapParams) (*Session, error) {
	sess, err := svc.Session(id)
	if err != nil {
		return nil, err
	}
	if err := sess.Orchestrator.SetParams(params); err != nil {
		return nil, err
	}
	sess.Tracker.SetContext(params.UserAddress, params.OriginToken)
	return sess, nil
}

// PollStatus reads the current on-chain status of a signature with a single
// lookup, without entering the bounded polling loop.
func (svc *Service) PollStatus(ctx context.Context, signature string) (domain.TransactionStatusResult, error) {
	return svc.poller.CheckOnce(ctx, signature)
}

// InspectToken reports Token-2022 transfer-fee metadata for a mint.
func (svc *Service) InspectToken(ctx context.Context, mint string) domain.TokenFeeInfo {
	return svc.inspector.Inspect(ctx, mint)
}

// janitor evicts sessions idle past the TTL.
func (svc *Service) janitor() {
	defer svc.wg.Done()
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-svc.done:
			return
		case <-ticker.C:
			svc.evictIdle()
		}
	}
}

func (svc *Service) evictIdle() {
	cutoff := time.Now().Add(-svc.sessionTTL)

	svc.mu.Lock()
	var evicted []*Session
	for id, sess := range svc.sessions {
		if sess.lastSeen.Before(cutoff) {
			evicted = append(evicted, sess)
			delete(svc.sessions, id)
			svc.logger.Info().Str("sessionId", id).Msg("session evicted")
		}
	}
	metrics.ActiveSessions.Set(float64(len(svc.sessions)))
	svc.mu.Unlock()

	for _, sess := range evicted {
		sess.Orchestrator.Stop()
	}
}
