//go:build linux || darwin

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Zereker/framed"
	"github.com/Zereker/framed/codec"
)

var (
	// Global flags
	cfgFile  string
	logLevel string

	// Per-command overrides
	listenAddr string
	modeName   string
	codecName  string

	// Shared state set during PersistentPreRunE
	cfg    Config
	logger framed.Logger
)

var rootCmd = &cobra.Command{
	Use:   "udpecho",
	Short: "Framed UDP echo server and client",
	Long: `udpecho exchanges codec-framed datagrams over UDP.
"serve" echoes every decoded frame back to its sender, "send" sends
frames to a server and prints the replies.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig(cfgFile)
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		if flags.Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if flags.Changed("listen") {
			cfg.Listen = listenAddr
		}
		if flags.Changed("mode") {
			cfg.Mode = modeName
		}
		if flags.Changed("codec") {
			cfg.Codec = codecName
		}

		if err := cfg.Validate(); err != nil {
			return errors.Wrap(err, "invalid configuration")
		}

		logger, err = newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a TOML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&modeName, "mode", "repeat", "decode mode (single or repeat)")
	rootCmd.PersistentFlags().StringVar(&codecName, "codec", codecLines, "frame codec (lines, length or raw)")

	rootCmd.AddCommand(serveCmd, sendCmd)
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// withCodec dispatches on the configured codec name. Lines frames are
// strings, the other codecs carry raw payloads.
func withCodec(
	name string,
	lines func(framed.Codec[string]) error,
	bytes func(framed.Codec[[]byte]) error,
) error {
	switch name {
	case codecLines:
		return lines(codec.Lines{MaxLength: framed.MaxDatagramSize})
	case codecLength:
		return bytes(codec.LengthPrefixed{})
	case codecRaw:
		return bytes(codec.Raw{})
	default:
		return errors.Errorf("unknown codec %q", name)
	}
}
