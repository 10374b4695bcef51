/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind          string
	maxMembers    int
	metrics       bool
	playerTimeout time.Duration
	port          int
	prefix        string
	profile       bool
	rateBurst     int
	rateLimit     float64
	roomTimeout   time.Duration
	sweepInterval time.Duration
	tcpPort       int
	tlsCert       string
	tlsKey        string
	verbose       bool
	version       bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.tcpPort < 0 || c.tcpPort > 65535 {
		return fmt.Errorf("invalid tcp port (must be between 0-65535 inclusive): %d", c.tcpPort)
	}
	if c.tcpPort != 0 && c.tcpPort == c.port {
		return fmt.Errorf("--tcp-port and --port must differ: %d", c.port)
	}
	if c.playerTimeout <= 0 || c.roomTimeout <= 0 || c.sweepInterval <= 0 {
		return errors.New("--player-timeout, --room-timeout and --sweep-interval must be positive")
	}
	if c.maxMembers < 2 {
		return fmt.Errorf("invalid max members (must be at least 2): %d", c.maxMembers)
	}
	if c.rateLimit <= 0 || c.rateBurst < 1 {
		return errors.New("--rate-limit must be positive and --rate-burst at least 1")
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("IMPOSTERBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "imposterbox",
		Short:         "A room server for social deduction party games.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: IMPOSTERBOX_BIND)")
	fs.IntVar(&cfg.maxMembers, "max-members", 16, "maximum members per room (env: IMPOSTERBOX_MAX_MEMBERS)")
	fs.BoolVar(&cfg.metrics, "metrics", false, "expose prometheus metrics at /metrics (env: IMPOSTERBOX_METRICS)")
	fs.DurationVar(&cfg.playerTimeout, "player-timeout", 10*time.Minute, "time before idle player sessions expire (env: IMPOSTERBOX_PLAYER_TIMEOUT)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: IMPOSTERBOX_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: IMPOSTERBOX_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: IMPOSTERBOX_PROFILE)")
	fs.IntVar(&cfg.rateBurst, "rate-burst", 20, "inbound messages a connection may send in a burst (env: IMPOSTERBOX_RATE_BURST)")
	fs.Float64Var(&cfg.rateLimit, "rate-limit", 10, "inbound messages per second allowed per connection (env: IMPOSTERBOX_RATE_LIMIT)")
	fs.DurationVar(&cfg.roomTimeout, "room-timeout", 60*time.Minute, "time before idle rooms are closed (env: IMPOSTERBOX_ROOM_TIMEOUT)")
	fs.DurationVar(&cfg.sweepInterval, "sweep-interval", time.Minute, "how often idle sessions and rooms are swept (env: IMPOSTERBOX_SWEEP_INTERVAL)")
	fs.IntVar(&cfg.tcpPort, "tcp-port", 0, "port for the newline-delimited JSON listener, 0 to disable (env: IMPOSTERBOX_TCP_PORT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: IMPOSTERBOX_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: IMPOSTERBOX_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: IMPOSTERBOX_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: IMPOSTERBOX_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("imposterbox v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
