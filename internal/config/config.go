package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all runtime configuration for the agent.
// Values are read from environment variables, with .env support in main.
type Config struct {
	// NEAR account used for reads and response transactions
	AccountID  string
	PrivateKey string

	// Network identifier ( mainnet or testnet )
	NetworkID string

	// NEAR JSON-RPC endpoint
	RPCURL string

	// Gas limit for response function calls
	GasLimit uint64

	// Default polling cadence for new subscriptions
	DefaultCronExpression string

	// Default contract method that receives agent responses
	DefaultResponseMethod string

	// Sampling provider
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	// HTTP API port
	APIPort int

	// Logging
	LogLevel string
}

// DefaultGas is 300 TGas, enough for a typical response method call.
const DefaultGas = uint64(300_000_000_000_000)

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		AccountID:             os.Getenv("NEAR_ACCOUNT_ID"),
		PrivateKey:            os.Getenv("NEAR_PRIVATE_KEY"),
		NetworkID:             getEnv("NEAR_NETWORK_ID", "testnet"),
		RPCURL:                getEnv("NEAR_RPC_URL", ""),
		GasLimit:              getEnvAsUint64("NEAR_GAS_LIMIT", DefaultGas),
		DefaultCronExpression: getEnv("DEFAULT_CRON_EXPRESSION", "*/10 * * * * *"),
		DefaultResponseMethod: getEnv("DEFAULT_RESPONSE_METHOD", "agent_response"),
		OpenAIAPIKey:          os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:           getEnv("OPENAI_MODEL", "gpt-4o"),
		OpenAIBaseURL:         os.Getenv("OPENAI_BASE_URL"),
		APIPort:               getEnvAsInt("API_PORT", 8080),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
	}
}

// RPCEndpoint returns the configured RPC URL, falling back to the public
// endpoint for the configured network.
func (c *Config) RPCEndpoint() string {
	if c.RPCURL != "" {
		return c.RPCURL
	}
	if c.NetworkID == "mainnet" {
		return "https://rpc.mainnet.near.org"
	}
	return "https://rpc.testnet.near.org"
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.AccountID == "" {
		return fmt.Errorf("NEAR_ACCOUNT_ID is required")
	}
	if c.PrivateKey == "" {
		return fmt.Errorf("NEAR_PRIVATE_KEY is required")
	}
	if c.NetworkID != "mainnet" && c.NetworkID != "testnet" {
		return fmt.Errorf("NEAR_NETWORK_ID must be mainnet or testnet, got %q", c.NetworkID)
	}
	if c.GasLimit == 0 {
		return fmt.Errorf("NEAR_GAS_LIMIT must be greater than zero")
	}
	return nil
}

// Helper: get string from env with default
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// Helper: get int from env
func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return defaultVal
	}
	return val
}

// Helper: get uint64 from env
func getEnvAsUint64(key string, defaultVal uint64) uint64 {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseUint(valStr, 10, 64)
	if err != nil {
		return defaultVal
	}
	return val
}
