package config

import (
	"errors"

	"github.com/andrew-solarstorm/go-packages/common"
)

// ProviderConfig carries the base URLs for each quote provider plus the
// execute endpoints used for transaction submission.
type ProviderConfig struct {
	JupiterBaseURL  string
	DeBridgeBaseURL string
	RelayBaseURL    string

	JupiterExecuteURL  string
	DeBridgeExecuteURL string
	RelayExecuteURL    string

	// SessionTTLSeconds is how long an idle quote session survives before
	// the janitor evicts it.
	SessionTTLSeconds int
}

func (c *ProviderConfig) Key() string {
	return PROVIDER_CONFIG_KEY
}

func (c *ProviderConfig) Load() error {
	c.JupiterBaseURL = common.GetEnvOrDefault("JUPITER_BASE_URL", "https://lite-api.jup.ag/ultra")
	c.DeBridgeBaseURL = common.GetEnvOrDefault("DEBRIDGE_BASE_URL", "https://dln.debridge.finance")
	c.RelayBaseURL = common.GetEnvOrDefault("RELAY_BASE_URL", "https://api.relay.link")

	c.JupiterExecuteURL = common.GetEnvOrDefault("JUPITER_EXECUTE_URL", c.JupiterBaseURL+"/execute")
	c.DeBridgeExecuteURL = common.GetEnvOrDefault("DEBRIDGE_EXECUTE_URL", c.DeBridgeBaseURL+"/v1.0/dln/order/execute")
	c.RelayExecuteURL = common.GetEnvOrDefault("RELAY_EXECUTE_URL", c.RelayBaseURL+"/execute")

	c.SessionTTLSeconds = common.GetEnvOrDefaultInt("SESSION_TTL_SECONDS", 1800)
	return c.Validate()
}

func (c *ProviderConfig) Validate() error {
	if c.JupiterBaseURL == "" || c.DeBridgeBaseURL == "" || c.RelayBaseURL == "" {
		return errors.New("invalid provider config")
	}
	if c.SessionTTLSeconds <= 0 {
		return errors.New("invalid session ttl")
	}
	return nil
}
