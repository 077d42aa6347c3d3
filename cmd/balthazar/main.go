package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cuemby/balthazar/pkg/chain"
	"github.com/cuemby/balthazar/pkg/config"
	"github.com/cuemby/balthazar/pkg/events"
	"github.com/cuemby/balthazar/pkg/log"
	"github.com/cuemby/balthazar/pkg/node"
	"github.com/cuemby/balthazar/pkg/storage"
	"github.com/cuemby/balthazar/pkg/swarmnet"
	"github.com/cuemby/balthazar/pkg/types"
	"github.com/cuemby/balthazar/pkg/wasmrun"
	"github.com/multiformats/go-multiaddr"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "balthazar",
	Short: "Balthazar - decentralized P2P compute platform",
	Long: `Balthazar lets peers publish sandboxed WASM jobs on a blockchain and
have Manager/Worker nodes discover each other over libp2p, pair up, and
execute them.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"balthazar version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(nodeCmd)
	rootCmd.AddCommand(cephaloCmd)
	rootCmd.AddCommand(podeCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Run a Balthazar node (Manager or Worker, per config)",
}

var nodeStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a node using the given configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return runNode(cfg)
	},
}

func init() {
	nodeStartCmd.Flags().String("config", "./balthazar.yaml", "Path to the node configuration file")
	nodeCmd.AddCommand(nodeStartCmd)
}

// runNode wires C2 through C8 for the node type named in cfg, runs the
// orchestrator until an interrupt, and shuts everything down in reverse
// order.
func runNode(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	swarmEvents := make(chan swarmnet.Event, channelSize)

	var ownNodeType types.NodeType
	var acceptPolicy swarmnet.ManagerAcceptPolicy
	switch cfg.NodeType {
	case config.NodeTypeManager:
		ownNodeType = types.ManagerNodeType()
		acceptPolicy = swarmnet.DefaultManagerAcceptPolicy(cfg.ManagerWorkerCapacity)
	case config.NodeTypeWorker:
		ownNodeType = types.WorkerNodeType(types.WorkerSpecs{
			CPUCount:        cfg.WorkerSpecs.CPUCount,
			Memory:          cfg.WorkerSpecs.Memory,
			NetworkSpeed:    cfg.WorkerSpecs.NetworkSpeed,
			PricePerSecond:  cfg.WorkerSpecs.PricePerSecond,
			PricePerKilobit: cfg.WorkerSpecs.PricePerKilobit,
		})
	}

	host, err := swarmnet.NewHost(cfg.ListenAddr, cfg.KeepAliveTimeout, ownNodeType, acceptPolicy, swarmEvents)
	if err != nil {
		return fmt.Errorf("start swarm host: %w", err)
	}
	defer host.Close()

	for _, addr := range cfg.BootstrapPeers {
		maddr, err := multiaddr.NewMultiaddr(addr)
		if err != nil {
			log.Warn(fmt.Sprintf("node: skip malformed bootstrap peer %q: %v", addr, err))
			continue
		}
		if err := host.Dial(ctx, maddr); err != nil {
			log.Warn(fmt.Sprintf("node: dial bootstrap peer %q: %v", addr, err))
		}
	}

	log.Info(fmt.Sprintf("node: listening as %s on %s", host.ID(), cfg.ListenAddr))

	startMetricsServer(ctx, cfg, host)

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()
	go logEvents(ctx, broker)

	switch cfg.NodeType {
	case config.NodeTypeManager:
		return runManager(ctx, cfg, host, swarmEvents, broker)
	case config.NodeTypeWorker:
		return runWorker(ctx, cfg, host, swarmEvents, broker)
	default:
		return fmt.Errorf("node: unreachable node type %q", cfg.NodeType)
	}
}

// logEvents subscribes to the node's local event broker and forwards
// every occurrence to the structured logger, until ctx is cancelled.
func logEvents(ctx context.Context, broker *events.Broker) {
	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			log.Info(fmt.Sprintf("event: %s: %s", ev.Type, ev.Message))
		}
	}
}

const channelSize = 1024

func runManager(ctx context.Context, cfg config.Config, host *swarmnet.Host, swarmEvents chan swarmnet.Event, broker *events.Broker) error {
	cp, err := chain.OpenCheckpoint(cfg.Chain.CheckpointPath)
	if err != nil {
		return fmt.Errorf("open chain checkpoint: %w", err)
	}
	defer cp.Close()

	keyHex, err := os.ReadFile(cfg.Chain.AccountKeyFile)
	if err != nil {
		return fmt.Errorf("read account key file: %w", err)
	}
	signer, err := chain.LoadSigner(strings.TrimSpace(string(keyHex)), new(big.Int).SetUint64(cfg.Chain.ChainID))
	if err != nil {
		return fmt.Errorf("load chain signer: %w", err)
	}

	adapter, err := chain.DialEthAdapter(ctx, cfg.Chain.RPCEndpoint, cfg.Chain.ContractAddress, signer, cp)
	if err != nil {
		return fmt.Errorf("dial chain adapter: %w", err)
	}
	defer adapter.Close()

	orch := node.New(config.NodeTypeManager, host, adapter, nil, nil, cfg.ManagerMaxFailures, cfg.TaskDispatchTimeout)
	orch.SetEventBroker(broker)

	chainEvents, chainErrs := adapter.Subscribe(ctx, 0)

	log.Info("node: manager ready, observing chain and swarm")
	err = orch.Run(ctx, swarmEvents, chainEvents, chainErrs, cfg.ManagerCheckInterval)
	if err != nil && ctx.Err() != nil {
		log.Info("node: manager shutting down")
		return nil
	}
	return err
}

func runWorker(ctx context.Context, cfg config.Config, host *swarmnet.Host, swarmEvents chan swarmnet.Event, broker *events.Broker) error {
	var store storage.Store
	var err error
	switch cfg.Storage.Backend {
	case "ipfs":
		store = storage.NewIPFSStore(cfg.Storage.IPFSURL)
	default:
		store, err = storage.NewFilesystemStore(cfg.Storage.Root)
		if err != nil {
			return fmt.Errorf("open filesystem store: %w", err)
		}
	}
	defer store.Close()

	runner, err := wasmrun.New(ctx)
	if err != nil {
		return fmt.Errorf("start wasm runtime: %w", err)
	}
	defer runner.Close(ctx)

	orch := node.New(config.NodeTypeWorker, host, nil, store, runner, cfg.ManagerMaxFailures, cfg.TaskDispatchTimeout)
	orch.SetEventBroker(broker)

	specs := types.WorkerSpecs{
		CPUCount:        cfg.WorkerSpecs.CPUCount,
		Memory:          cfg.WorkerSpecs.Memory,
		NetworkSpeed:    cfg.WorkerSpecs.NetworkSpeed,
		PricePerSecond:  cfg.WorkerSpecs.PricePerSecond,
		PricePerKilobit: cfg.WorkerSpecs.PricePerKilobit,
	}
	paired := host.RunManagerDiscovery(ctx, specs, cfg.ManagerCheckInterval, cfg.ManagerTimeout)
	go func() {
		for id := range paired {
			orch.SetCurrentManager(id)
		}
	}()

	log.Info("node: worker ready, awaiting a manager pairing")
	err = orch.Run(ctx, swarmEvents, nil, nil, cfg.ManagerCheckInterval)
	if err != nil && ctx.Err() != nil {
		log.Info("node: worker shutting down")
		return nil
	}
	return err
}
