package tailtui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/tbraaten/notefeed/internal/config"
	"github.com/tbraaten/notefeed/internal/feed"
	"github.com/tbraaten/notefeed/internal/feedcache"
	"github.com/tbraaten/notefeed/internal/logging"
	"github.com/tbraaten/notefeed/internal/transport"
)

// Options are the command-line overrides layered on top of the config file.
type Options struct {
	ConfigFile string
	Server     string
	Token      string
	Variant    string
	NoCache    bool
}

func Execute(version string) error {
	return newRootCmd(version).Execute()
}

func newRootCmd(version string) *cobra.Command {
	opts := Options{}
	cmd := &cobra.Command{
		Use:           "notefeed-tail",
		Short:         "live feed column in the terminal",
		Long:          "Connects one feed column and tails it: live arrivals, pagination, reactions.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(opts)
		},
	}
	cmd.Flags().StringVar(&opts.ConfigFile, "config", "", "config file path")
	cmd.Flags().StringVar(&opts.Server, "server", "", "server base URL, e.g. https://example.social")
	cmd.Flags().StringVar(&opts.Token, "token", "", "API token")
	cmd.Flags().StringVar(&opts.Variant, "variant", "", "feed variant: home|local|social|global")
	cmd.Flags().BoolVar(&opts.NoCache, "no-cache", false, "skip the cold-start cache")
	return cmd
}

// Run loads configuration, wires the column, and blocks in the TUI until quit.
func Run(opts Options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	log := logging.Component("tail")

	client, err := transport.NewClient(transport.Config{
		BaseURL: cfg.Server.BaseURL,
		Token:   cfg.Server.Token,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	var cache feed.CacheStore
	if cfg.Cache.Enabled && !opts.NoCache {
		store, err := feedcache.Open(feedcache.Config{Path: cfg.Cache.Path})
		if err != nil {
			log.Warn().Err(err).Msg("cache unavailable, starting cold")
		} else {
			defer store.Close()
			cache = store
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	localUserID := ""
	if acct, err := client.Me(ctx); err == nil {
		localUserID = acct.ID
	} else {
		log.Warn().Err(err).Msg("could not resolve local user, echo suppression off")
	}

	variant := feed.Variant(cfg.Column.Variant)
	ctrl := feed.New(feed.Config{
		Variant:       variant,
		LocalUserID:   localUserID,
		MaxItems:      cfg.Column.MaxItems,
		FetchLimit:    cfg.Column.FetchLimit,
		FlushInterval: cfg.Column.FlushInterval(),
	}, client, cache, client.PermittedVariants)

	if err := ctrl.Connect(ctx, cache != nil); err != nil {
		return fmt.Errorf("connect %s: %w", variant, err)
	}
	defer ctrl.Disconnect()

	program := tea.NewProgram(New(ctrl, variant), tea.WithAltScreen())
	_, err = program.Run()
	return err
}

func loadConfig(opts Options) (*config.Config, error) {
	loader := config.NewLoader()
	if opts.ConfigFile != "" {
		loader.SetConfigFile(opts.ConfigFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if opts.Server != "" {
		cfg.Server.BaseURL = opts.Server
	}
	if opts.Token != "" {
		cfg.Server.Token = opts.Token
	}
	if opts.Variant != "" {
		cfg.Column.Variant = opts.Variant
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
