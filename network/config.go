package network

import "fmt"

// Environment variables consulted by ResolveConfig.
const (
	EnvRPCURL  = "REVSPLIT_RPC_URL"
	EnvRPCUser = "REVSPLIT_RPC_USER"
	EnvRPCPass = "REVSPLIT_RPC_PASS"
)

// RPCConfig holds the connection parameters for a BSV node's JSON-RPC interface.
type RPCConfig struct {
	URL      string `json:"url"`
	User     string `json:"user"`
	Password string `json:"password"`
	Network  string `json:"network"`
}

// NetworkPresets contains default RPC configurations for known networks.
// Mainnet is intentionally omitted to require explicit configuration.
var NetworkPresets = map[string]RPCConfig{
	"regtest": {URL: "http://localhost:18332", User: "revsplit", Password: "revsplit"},
	"testnet": {URL: "http://localhost:18333", User: "revsplit", Password: "revsplit"},
}

// ResolveConfig merges RPC configuration from three sources with decreasing priority:
//  1. CLI flags (highest priority)
//  2. Environment variables (REVSPLIT_RPC_URL, REVSPLIT_RPC_USER, REVSPLIT_RPC_PASS)
//  3. Network presets (lowest priority, regtest/testnet only)
//
// For mainnet, explicit configuration is required -- there is no preset.
func ResolveConfig(flags *RPCConfig, env map[string]string, network string) (*RPCConfig, error) {
	result := RPCConfig{Network: network}

	if preset, ok := NetworkPresets[network]; ok {
		result = preset
		result.Network = network
	}

	if env != nil {
		if v := env[EnvRPCURL]; v != "" {
			result.URL = v
		}
		if v := env[EnvRPCUser]; v != "" {
			result.User = v
		}
		if v := env[EnvRPCPass]; v != "" {
			result.Password = v
		}
	}

	if flags != nil {
		if flags.URL != "" {
			result.URL = flags.URL
		}
		if flags.User != "" {
			result.User = flags.User
		}
		if flags.Password != "" {
			result.Password = flags.Password
		}
	}

	if result.URL == "" {
		return nil, fmt.Errorf("%w: %s requires explicit RPC configuration (set --rpc-url, %s, or config file)",
			ErrNotConfigured, network, EnvRPCURL)
	}

	return &result, nil
}
