package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sonirico/talespin"
	"github.com/sonirico/talespin/internal/config"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

// app carries what every subcommand needs once flags and config are resolved.
type app struct {
	cfg    config.Config
	zap    *zap.Logger
	logger talespin.Logger
}

type rootFlags struct {
	configPath string
	envFile    string
	host       string
	secure     bool
	logLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	var missing errRoomMissing
	switch {
	case err == nil:
	case errors.As(err, &missing):
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "talespin",
		Short: "Client for the talespin storytelling card game",
		Long: `talespin talks to a talespin game server.

It can create rooms, check whether a room exists, show server
statistics and join a room as a player from the terminal. The
connection survives network hiccups: commands typed while offline
are sent as soon as the server is reachable again.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd, flags)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.zap != nil {
				_ = a.zap.Sync()
			}
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "TOML config file")
	pf.StringVar(&flags.envFile, "env-file", "", "dotenv file to load (default ./.env when present)")
	pf.StringVarP(&flags.host, "host", "H", "", "game server host[:port]")
	pf.BoolVar(&flags.secure, "secure", false, "use wss:// and https://")
	pf.StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error")

	rootCmd.AddCommand(
		createCmd(a),
		existsCmd(a),
		statsCmd(a),
		playCmd(a),
		devServerCmd(a),
		versionCmd(),
	)
	return rootCmd
}

func (a *app) init(cmd *cobra.Command, flags *rootFlags) error {
	var dotenv []string
	if flags.envFile != "" {
		dotenv = append(dotenv, flags.envFile)
	}
	if err := config.LoadDotEnv(dotenv...); err != nil {
		return err
	}

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}

	// explicit flags win over file and environment
	if cmd.Flags().Changed("host") {
		cfg.Host = flags.host
	}
	if cmd.Flags().Changed("secure") {
		cfg.Secure = flags.secure
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	z, err := newZapLogger(cfg)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.zap = z
	a.logger = talespin.NewZapLogger(z)
	return nil
}

func newZapLogger(cfg config.Config) (*zap.Logger, error) {
	lvl, err := cfg.ZapLevel()
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.DisableStacktrace = true
	return zcfg.Build()
}

func (a *app) lobby() *talespin.LobbyClient {
	return talespin.NewLobbyClient(a.cfg.Endpoints(), a.cfg.LobbyTimeout, a.logger)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "talespin %s (%s)\n", version, commit)
		},
	}
}
