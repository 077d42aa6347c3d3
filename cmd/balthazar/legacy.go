package main

import (
	"fmt"
	"net"
	"sync/atomic"

	"github.com/cuemby/balthazar/pkg/legacy"
	"github.com/cuemby/balthazar/pkg/log"
	"github.com/spf13/cobra"
)

// cephaloCmd and podeCmd speak the direct-TCP legacy Connection-control
// protocol (pkg/legacy) for interop with pre-swarm deployments. They are
// wire-compatibility shims, not a second orchestrator: once paired, a
// connection only exchanges keep-alive Ping/Pong until it closes.
var cephaloCmd = &cobra.Command{
	Use:   "cephalo",
	Short: "Run the legacy manager-side connection listener",
}

var cephaloListenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Accept legacy worker connections on a TCP address",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("listen-addr")
		return runCephaloListener(addr)
	},
}

func init() {
	cephaloListenCmd.Flags().String("listen-addr", ":7654", "TCP address to accept legacy worker connections on")
	cephaloCmd.AddCommand(cephaloListenCmd)
}

var podeCmd = &cobra.Command{
	Use:   "pode",
	Short: "Run the legacy worker-side connection dialer",
}

var podeConnectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Dial a legacy manager and complete the connection handshake",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("manager-addr")
		freeSlots, _ := cmd.Flags().GetUint32("free-slots")
		return runPodeConnect(addr, freeSlots)
	},
}

func init() {
	podeConnectCmd.Flags().String("manager-addr", "127.0.0.1:7654", "TCP address of the legacy manager to dial")
	podeConnectCmd.Flags().Uint32("free-slots", 1, "Number of execution slots advertised on connect")
	podeCmd.AddCommand(podeConnectCmd)
}

var nextLegacyPeerID uint64

func runCephaloListener(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("legacy: listen on %s: %w", addr, err)
	}
	defer ln.Close()

	logger := log.WithSubsystem(log.SubsystemManager)
	logger.Info().Str("addr", addr).Msg("legacy: cephalo listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			return fmt.Errorf("legacy: accept: %w", err)
		}
		go handleLegacyWorker(conn)
	}
}

func handleLegacyWorker(conn net.Conn) {
	defer conn.Close()
	logger := log.WithSubsystem(log.SubsystemManager)

	id := atomic.AddUint64(&nextLegacyPeerID, 1)
	if err := legacy.Accept(conn, id); err != nil {
		logger.Warn().Err(err).Msg("legacy: handshake failed")
		return
	}
	logger.Info().Uint64("peer_id", id).Msg("legacy: worker connected")

	reader := legacy.NewReader(conn)
	for {
		msg, err := reader.Next()
		if err != nil {
			logger.Info().Uint64("peer_id", id).Err(err).Msg("legacy: worker disconnected")
			return
		}
		switch msg.Kind {
		case legacy.KindIdle:
			logger.Debug().Uint64("peer_id", id).Uint32("idle", msg.Idle).Msg("legacy: idle report")
		case legacy.KindPing:
			if err := legacy.Send(conn, legacy.Pong()); err != nil {
				logger.Warn().Err(err).Msg("legacy: send pong")
				return
			}
		case legacy.KindDisconnect:
			logger.Info().Uint64("peer_id", id).Msg("legacy: worker requested disconnect")
			return
		default:
			logger.Debug().Uint64("peer_id", id).Str("message", msg.String()).Msg("legacy: received")
		}
	}
}

func runPodeConnect(addr string, freeSlots uint32) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("legacy: dial %s: %w", addr, err)
	}
	defer conn.Close()

	logger := log.WithSubsystem(log.SubsystemWorker)

	id, err := legacy.Dial(conn, freeSlots)
	if err != nil {
		return fmt.Errorf("legacy: handshake: %w", err)
	}
	logger.Info().Uint64("peer_id", id).Msg("legacy: connected to manager")

	reader := legacy.NewReader(conn)
	for {
		msg, err := reader.Next()
		if err != nil {
			logger.Info().Err(err).Msg("legacy: manager disconnected")
			return nil
		}
		if msg.Kind == legacy.KindPing {
			if err := legacy.Send(conn, legacy.Pong()); err != nil {
				return fmt.Errorf("legacy: send pong: %w", err)
			}
		}
	}
}
