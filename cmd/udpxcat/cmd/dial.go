package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/udpx/udpx"
	"github.com/udpx/udpx/config"
)

var dialCmd = &cobra.Command{
	Use:   "dial <host:port>",
	Short: "Open a reliable-ordered session to a peer and pipe stdin/stdout over it",
	Args:  cobra.ExactArgs(1),
	RunE:  runDial,
}

func runDial(cmd *cobra.Command, args []string) error {
	logger := log.With().Str("com", "udpxcat-dial").Logger()

	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
	}
	applyConfigLogLevel(cfg.LogLevel)

	conn, err := udpx.Dial(args[0])
	if err != nil {
		return fmt.Errorf("dial %s: %w", args[0], err)
	}
	logger.Info().Stringer("peer", conn.Peer()).Msg("session established")

	conn.SetKeepAlive(cfg.KeepAlive)
	conn.SetTimeout(cfg.Timeout)

	disconnected := make(chan struct{})
	conn.SetOnDisconnected(func(explicit bool) {
		logger.Info().Bool("explicit", explicit).Msg("session ended")
		close(disconnected)
	})
	conn.SetOnReceivedOrdered(func(payload []byte) {
		os.Stdout.Write(payload)
		os.Stdout.Write([]byte("\n"))
	})

	go pipeStdinToConn(conn, logger)

	<-disconnected
	return nil
}

// pipeStdinToConn scans stdin line by line and forwards each line as a
// reliable-ordered payload, disconnecting once stdin is exhausted.
func pipeStdinToConn(conn *udpx.Conn, logger zerolog.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if err := conn.Send(scanner.Bytes()); err != nil {
			logger.Error().Err(err).Msg("send failed")
		}
	}
	conn.Disconnect()
}
