/*
Package config provides the typed configuration surface (C8): the set of
startup options a node reads from a YAML file and may override with CLI
flags, covering every key in spec.md §6's configuration table.
*/
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// NodeType selects which role this process runs as.
type NodeType string

const (
	NodeTypeManager NodeType = "manager"
	NodeTypeWorker  NodeType = "worker"
)

// StorageConfig selects and configures the C4 storage backend.
type StorageConfig struct {
	Backend  string `yaml:"backend"` // "filesystem" or "ipfs"
	Root     string `yaml:"root"`    // filesystem backend root directory
	IPFSURL  string `yaml:"ipfs_url"`
	MaxBytes uint64 `yaml:"max_bytes"`
}

// ChainConfig configures the C6 chain adapter.
type ChainConfig struct {
	RPCEndpoint     string        `yaml:"rpc_endpoint"`
	ContractAddress string        `yaml:"contract_address"`
	AccountKeyFile  string        `yaml:"account_key_file"`
	ChainID         uint64        `yaml:"chain_id"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	CheckpointPath  string        `yaml:"checkpoint_path"` // bbolt file for the restartable checkpoint
}

// WasmConfig optionally runs a single local test job instead of observing
// the chain, useful for exercising C5 without a live chain adapter.
type WasmConfig struct {
	ProgramBytesAddr string `yaml:"program_bytes_addr"`
	ArgumentBytes    string `yaml:"argument_bytes"`
}

// WorkerSpecsConfig is the declared capability vector a Worker advertises
// on its ManagerRequest (spec.md §3 "WorkerSpecs").
type WorkerSpecsConfig struct {
	CPUCount        uint64 `yaml:"cpu_count"`
	Memory          uint64 `yaml:"memory_kb"`
	NetworkSpeed    uint64 `yaml:"network_speed_kbps"`
	PricePerSecond  uint64 `yaml:"price_per_second"`
	PricePerKilobit uint64 `yaml:"price_per_kilobit"`
}

// Config is the fully resolved, typed view of a node's startup options.
type Config struct {
	NodeType              NodeType      `yaml:"node_type"`
	ListenAddr            string        `yaml:"listen_addr"`
	BootstrapPeers        []string      `yaml:"bootstrap_peers"`
	ManagerCheckInterval  time.Duration `yaml:"manager_check_interval"`
	ManagerTimeout        time.Duration `yaml:"manager_timeout"`
	KeepAliveTimeout      time.Duration `yaml:"keep_alive_timeout"`
	ManagerWorkerCapacity int           `yaml:"manager_worker_capacity"`
	ManagerMaxFailures    int           `yaml:"manager_max_failures"` // per-job retry budget, spec.md §9
	TaskDispatchTimeout   time.Duration `yaml:"task_dispatch_timeout"`

	WorkerSpecs WorkerSpecsConfig `yaml:"worker_specs"` // Worker-only: advertised on ManagerRequest

	Storage StorageConfig `yaml:"storage"`
	Chain   ChainConfig   `yaml:"chain"`
	Wasm    *WasmConfig   `yaml:"wasm"`

	LogLevel    string `yaml:"log_level"`
	LogJSON     bool   `yaml:"log_json"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// Defaults returns a Config populated with spec.md §4/§5's stated defaults.
func Defaults() Config {
	return Config{
		NodeType:              NodeTypeWorker,
		ListenAddr:            "/ip4/0.0.0.0/tcp/4001",
		ManagerCheckInterval:  30 * time.Second,
		ManagerTimeout:        10 * time.Second,
		KeepAliveTimeout:      10 * time.Second,
		ManagerWorkerCapacity: 16,
		ManagerMaxFailures:    3,
		TaskDispatchTimeout:   30 * time.Second,
		WorkerSpecs: WorkerSpecsConfig{
			CPUCount:     1,
			Memory:       1 << 20, // 1GB in KB
			NetworkSpeed: 10_000,  // 10 Mbps
		},
		Storage: StorageConfig{
			Backend:  "filesystem",
			Root:     "./data/storage",
			MaxBytes: 256 << 20,
		},
		Chain: ChainConfig{
			ChainID:        1337,
			PollInterval:   5 * time.Second,
			CheckpointPath: "./data/chain-checkpoint.db",
		},
		LogLevel:    "info",
		MetricsAddr: "127.0.0.1:9090",
	}
}

// Load reads a YAML configuration file, merging it over Defaults().
func Load(path string) (Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks invariants that would otherwise surface as confusing
// failures deep in pkg/swarmnet or pkg/chain.
func (c Config) Validate() error {
	switch c.NodeType {
	case NodeTypeManager, NodeTypeWorker:
	default:
		return fmt.Errorf("config: node_type must be %q or %q, got %q", NodeTypeManager, NodeTypeWorker, c.NodeType)
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("config: listen_addr is required")
	}
	switch c.Storage.Backend {
	case "filesystem", "ipfs":
	default:
		return fmt.Errorf("config: storage.backend must be %q or %q, got %q", "filesystem", "ipfs", c.Storage.Backend)
	}
	if c.NodeType == NodeTypeManager {
		if c.Chain.RPCEndpoint == "" {
			return fmt.Errorf("config: chain.rpc_endpoint is required for a manager node")
		}
		if c.Chain.ContractAddress == "" {
			return fmt.Errorf("config: chain.contract_address is required for a manager node")
		}
		if c.Chain.AccountKeyFile == "" {
			return fmt.Errorf("config: chain.account_key_file is required for a manager node")
		}
	}
	return nil
}
