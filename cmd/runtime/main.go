package main

import (
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/bridge-engine/internal/common"
	"github.com/hxuan190/bridge-engine/internal/config"
	"github.com/hxuan190/bridge-engine/internal/engine"
	"github.com/hxuan190/bridge-engine/internal/http"
)

// @title Bridge Engine API
// @version 1.0
// @description Cross-chain swap engine: aggregates quotes from Jupiter Ultra, deBridge DLN, and Relay, then drives signed transactions through submission and confirmation.
// @description
// @description ## - Features
// @description - **Quote Aggregation**: Concurrent fan-out to all providers with best-quote selection
// @description - **Debounced Updates**: Parameter changes coalesce before any provider is called
// @description - **Execution Tracking**: Submission, bounded confirmation polling, terminal states
// @description - **Token-2022 Aware**: Transfer-fee mints are detected and quoted on the post-fee amount
// @description
// @description ## - Usage Tips
// @description - Amounts are in smallest token units (lamports for SOL, base units for SPL tokens)
// @description - Quotes go stale after 20 seconds and expire after 30; expired quotes cannot be executed
// @description - One sessionId per active swap form; sessions are evicted after idle TTL
// @BasePath /
// @schemes https http
// @tag.name session
// @tag.description Set swap parameters and read aggregated quote state
// @tag.name execute
// @tag.description Prepare, submit, and reset swap executions
// @tag.name status
// @tag.description On-chain transaction status lookups
// @tag.name balance
// @tag.description Tracked user balances
// @tag.name token
// @tag.description Token-2022 transfer-fee metadata

func main() {
	// load env
	err := godotenv.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load env")
		return
	}

	// Logging level must be known before any service logs; the container
	// reloads configs itself, Load reads the same env either way.
	general := &config.GeneralConfig{}
	if err := general.Load(); err != nil {
		log.Error().Err(err).Msg("failed to load general config")
		return
	}
	common.InitLogger(general.LogLevel)

	// di container config
	conf := container.NewConf(
		general,
		&config.RPCConfig{},
		&config.ProviderConfig{},
	)

	// di container
	dic, err := container.New(
		// config
		conf,

		// services
		&engine.Service{},
		&http.HTTPService{},
	)
	if err != nil {
		log.Error().Err(err).Msg("failed to create di container")
		return
	}

	if err := dic.Run(); err != nil {
		log.Error().Err(err).Msg("failed to run di container")
		return
	}

	// Run() doesn't call Stop(), we must do it manually
	log.Info().Msg("Shutting down services...")
	if err := dic.Stop(); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	log.Info().Msg("Shutdown complete")
}
