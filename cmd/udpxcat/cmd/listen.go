package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/udpx/udpx"
	"github.com/udpx/udpx/config"
)

var listenCmd = &cobra.Command{
	Use:   "listen <bind-addr>",
	Short: "Accept a session from a peer and echo received payloads to stdout",
	Args:  cobra.ExactArgs(1),
	RunE:  runListen,
}

func runListen(cmd *cobra.Command, args []string) error {
	logger := log.With().Str("com", "udpxcat-listen").Logger()

	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
	}
	applyConfigLogLevel(cfg.LogLevel)

	disconnected := make(chan struct{})
	accepted := make(chan struct{})

	lst, err := udpx.Listen(args[0], func(conn *udpx.Conn) {
		select {
		case <-accepted:
			// Only the first peer to complete a handshake is served;
			// udpxcat is a one-shot netcat-style tool, not a fan-in server.
			conn.Disconnect()
			return
		default:
			close(accepted)
		}

		connLogger := logger.With().Stringer("peer", conn.Peer()).Logger()
		connLogger.Info().Msg("session accepted")

		conn.SetKeepAlive(cfg.KeepAlive)
		conn.SetTimeout(cfg.Timeout)
		conn.SetOnDisconnected(func(explicit bool) {
			connLogger.Info().Bool("explicit", explicit).Msg("session ended")
			close(disconnected)
		})
		conn.SetOnReceivedOrdered(func(payload []byte) {
			os.Stdout.Write(payload)
			os.Stdout.Write([]byte("\n"))
		})

		go pipeStdinToConn(conn, connLogger)
	})
	if err != nil {
		return fmt.Errorf("listen on %s: %w", args[0], err)
	}
	defer lst.Close()

	logger.Info().Stringer("addr", lst.LocalAddr()).Msg("waiting for a peer")
	<-disconnected
	return nil
}
