// Command udpxcat is a small netcat-style CLI over UDPX: "dial" opens
// a reliable-ordered session to a peer and pipes stdin to it while
// printing whatever arrives, "listen" serves a single session (the first
// peer to complete a handshake), printing whatever arrives and piping
// stdin to that peer. It exists purely as the thin external
// interface §1 of the design calls "peripheral plumbing" around the
// reliability engine.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/udpx/udpx/cmd/udpxcat/cmd"
)

func init() {
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: zerolog.TimeFormatUnix,
		NoColor:    false,
	})
}

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
