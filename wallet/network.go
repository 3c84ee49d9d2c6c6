package wallet

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"sigs.k8s.io/yaml"
)

// CustomNetworkPrefix selects a network described by a file, as in
// "custom:/etc/revsplit/stn.yaml".
const CustomNetworkPrefix = "custom:"

// Address version bytes. The holding address and BIP32 extended keys use the
// mainnet encoding only when AddressVersion is MainnetAddressVersion.
const (
	MainnetAddressVersion = byte(0x00)
	TestnetAddressVersion = byte(0x6f)
)

// NetworkConfig describes the network a data directory settles on.
type NetworkConfig struct {
	Name           string `json:"name"`
	AddressVersion byte   `json:"address_version"`
	RPCHost        string `json:"rpc_host,omitempty"`
	RPCPort        uint16 `json:"rpc_port,omitempty"`
}

// Predefined network configurations.
var (
	MainNet = NetworkConfig{Name: "mainnet", AddressVersion: MainnetAddressVersion, RPCPort: 8332}
	TestNet = NetworkConfig{Name: "testnet", AddressVersion: TestnetAddressVersion, RPCPort: 18332}
	RegTest = NetworkConfig{Name: "regtest", AddressVersion: TestnetAddressVersion, RPCPort: 18443}
)

var predefined = map[string]*NetworkConfig{
	"mainnet": &MainNet,
	"testnet": &TestNet,
	"regtest": &RegTest,
}

// GetNetwork returns a predefined network by name.
func GetNetwork(name string) (*NetworkConfig, error) {
	if net, ok := predefined[name]; ok {
		return net, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidNetwork, name)
}

// ResolveNetwork returns the network named by a config value: a predefined
// name, or CustomNetworkPrefix followed by the path of a network file.
func ResolveNetwork(name string) (*NetworkConfig, error) {
	if path, ok := strings.CutPrefix(name, CustomNetworkPrefix); ok {
		if path == "" {
			return nil, fmt.Errorf("%w: %q has no file", ErrInvalidNetwork, name)
		}
		return LoadCustomNetwork(path)
	}
	return GetNetwork(name)
}

// IsMainnet reports whether addresses and extended keys use mainnet versions.
func (n *NetworkConfig) IsMainnet() bool {
	return n.AddressVersion == MainnetAddressVersion
}

// RPCURL returns the node JSON-RPC URL implied by RPCHost and RPCPort, or ""
// when the network names no port.
func (n *NetworkConfig) RPCURL() string {
	if n.RPCPort == 0 {
		return ""
	}
	host := n.RPCHost
	if host == "" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(int(n.RPCPort)))
}

// LoadCustomNetwork loads a NetworkConfig from a YAML or JSON file.
func LoadCustomNetwork(path string) (*NetworkConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("wallet: failed to read network config: %w", err)
	}

	var config NetworkConfig
	if err := yaml.UnmarshalStrict(data, &config); err != nil {
		return nil, fmt.Errorf("wallet: failed to parse network config: %w", err)
	}

	if config.Name == "" {
		return nil, fmt.Errorf("wallet: network config must have a name")
	}
	if _, ok := predefined[config.Name]; ok {
		return nil, fmt.Errorf("%w: custom network may not be named %q", ErrInvalidNetwork, config.Name)
	}
	if config.AddressVersion != MainnetAddressVersion && config.AddressVersion != TestnetAddressVersion {
		return nil, fmt.Errorf("%w: unsupported address version 0x%02x", ErrInvalidNetwork, config.AddressVersion)
	}

	return &config, nil
}
