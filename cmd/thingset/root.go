package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"thingset/pkg/client"
	"thingset/pkg/config"
	"thingset/pkg/observability"
)

// GlobalFlags are shared by every subcommand. Zero values leave the config untouched.
type GlobalFlags struct {
	ConfigPath string
	Backend    string
	Port       string
	Baud       int
	Address    string
	Timeout    time.Duration
	NoPaths    bool
	Metrics    bool
	Verbose    bool
}

var (
	globalFlags GlobalFlags
	cfg         *config.Config
	logger      *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "thingset",
	Short: "ThingSet protocol client",
	Long: `Talk to a ThingSet node.

The serial backend speaks the text encoding to the node's shell, the socket
backend speaks the binary encoding on TCP port 9001. IDs are numbers (0x300,
768) or paths (Measurements/Battery_V).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(globalFlags.ConfigPath)
		if err != nil {
			return err
		}
		applyFlags(cmd, cfg)
		if err := cfg.Client.Validate(); err != nil {
			return err
		}
		logger, err = observability.NewLogger(cfg.Log)
		if err != nil {
			return fmt.Errorf("setup logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&globalFlags.ConfigPath, "config", "", "path to YAML config file")
	pf.StringVar(&globalFlags.Backend, "backend", "", "serial or socket")
	pf.StringVar(&globalFlags.Port, "port", "", "serial port (default /dev/pts/5)")
	pf.IntVar(&globalFlags.Baud, "baud", 0, "serial baud rate (default 115200)")
	pf.StringVar(&globalFlags.Address, "address", "", "node host or host:port for the socket backend")
	pf.DurationVar(&globalFlags.Timeout, "timeout", 0, "response timeout (default 500ms)")
	pf.BoolVar(&globalFlags.NoPaths, "no-paths", false, "do not resolve numeric IDs to paths")
	pf.BoolVar(&globalFlags.Metrics, "metrics", false, "print client metrics to stderr after the call")
	pf.BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "log raw frames")

	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(execCmd)
}

// applyFlags copies explicitly set flags over the loaded config.
func applyFlags(cmd *cobra.Command, c *config.Config) {
	f := cmd.Flags()
	if f.Changed("backend") {
		c.Client.Backend = globalFlags.Backend
		// let Validate pick the encoding that matches the new backend
		c.Client.Encoding = ""
	}
	if f.Changed("port") {
		c.Client.Serial.Port = globalFlags.Port
	}
	if f.Changed("baud") {
		c.Client.Serial.Baud = globalFlags.Baud
	}
	if f.Changed("address") {
		c.Client.Socket.Address = globalFlags.Address
		if host, port, err := net.SplitHostPort(globalFlags.Address); err == nil {
			if p, err := strconv.Atoi(port); err == nil {
				c.Client.Socket.Address, c.Client.Socket.Port = host, p
			}
		}
	}
	if f.Changed("timeout") {
		c.Client.TimeoutMS = int(globalFlags.Timeout / time.Millisecond)
	}
	if f.Changed("no-paths") {
		c.Client.GetPaths = !globalFlags.NoPaths
	}
	if f.Changed("metrics") {
		c.Metrics.Enable = globalFlags.Metrics
	}
	if globalFlags.Verbose {
		c.Log.Level = "debug"
	}
}

// dial opens a client from the loaded config. The caller disconnects it.
func dial(ctx context.Context) (*client.Client, error) {
	opts := []client.Option{client.WithLogger(logger)}
	if cfg.Metrics.Enable {
		opts = append(opts, client.WithMetrics())
	}
	c, err := client.Dial(ctx, cfg.Client, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Client.Backend, err)
	}
	return c, nil
}
