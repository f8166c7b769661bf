// Command delayserver runs a TCP server that answers each request after the
// delay encoded in its path, e.g. GET /delay/2000/url/http://delay.com.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joeycumines/go-tinypoll/internal/delayserver"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newCommand(os.Stderr).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newCommand(logOutput io.Writer) *cobra.Command {
	var (
		addr     string
		workers  int
		maxDelay time.Duration
		rate     int
		logLevel string
	)

	cmd := &cobra.Command{
		Use:   "delayserver",
		Short: "Serve responses after a requested delay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := parseLevel(logLevel)
			if err != nil {
				return err
			}

			logger := stumpy.L.New(
				stumpy.L.WithStumpy(stumpy.WithWriter(logOutput)),
				stumpy.L.WithLevel(level),
			).Logger()

			config := delayserver.Config{
				Logger:   logger,
				Workers:  workers,
				MaxDelay: maxDelay,
			}
			if rate > 0 {
				config.Rates = map[time.Duration]int{time.Second: rate}
			}

			srv, err := delayserver.Listen(addr, config)
			if err != nil {
				return err
			}
			return srv.Serve(cmd.Context())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&addr, "addr", delayserver.DefaultAddr, "address to listen on")
	flags.IntVar(&workers, "workers", delayserver.DefaultWorkers, "number of connections served concurrently")
	flags.DurationVar(&maxDelay, "max-delay", 0, "cap on the requested delay, 0 for no cap")
	flags.IntVar(&rate, "rate", 0, "connections per second, per client IP, 0 for unlimited")
	flags.StringVar(&logLevel, "log-level", logiface.LevelInformational.String(), "minimum log level, e.g. debug, info, err, or disabled")

	return cmd
}

// parseLevel accepts the short keywords used by logiface.Level.String, plus
// a few common aliases.
func parseLevel(s string) (logiface.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "disabled", "off", "none":
		return logiface.LevelDisabled, nil
	case "emerg", "emergency", "panic":
		return logiface.LevelEmergency, nil
	case "alert":
		return logiface.LevelAlert, nil
	case "crit", "critical":
		return logiface.LevelCritical, nil
	case "err", "error":
		return logiface.LevelError, nil
	case "warning", "warn":
		return logiface.LevelWarning, nil
	case "notice":
		return logiface.LevelNotice, nil
	case "info", "informational":
		return logiface.LevelInformational, nil
	case "debug":
		return logiface.LevelDebug, nil
	case "trace":
		return logiface.LevelTrace, nil
	}
	return logiface.LevelDisabled, fmt.Errorf("delayserver: unknown log level %q", s)
}
