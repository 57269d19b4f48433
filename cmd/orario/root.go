package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"orario/config"
	"orario/internal/cache"
	"orario/internal/httpclient"
	"orario/internal/logging"
	"orario/internal/lookup"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "orario",
		Short:        "School timetable lookup",
		Long:         `Look up the lesson in progress for a class, teacher or room from a school's published timetable.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (default: ./config.yaml or ./config/config.yaml)")

	root.AddCommand(newServeCmd(&configPath), newLookupCmd(&configPath))
	return root
}

// app is the wiring shared by every subcommand.
type app struct {
	cfg     *config.Config
	cache   *cache.MemoryCache
	service *lookup.Service
}

// newApp loads configuration, installs the default logger writing to logOut
// and builds the lookup service.
func newApp(configPath string, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log, logOut)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	loc, err := cfg.Source.Location()
	if err != nil {
		return nil, err
	}

	clientCfg := httpclient.DefaultConfig()
	clientCfg.Timeout = cfg.HTTP.Timeout()
	client := httpclient.NewHTTPClient(&clientCfg)

	fetcher := httpclient.NewFetcher(client, cfg.HTTP.UserAgent, cfg.HTTP.MaxBodyBytes)
	index := cache.NewMemoryCache(cfg.Source.IndexURL, cfg.Cache.TTL(), cache.FetchLoader(fetcher))

	service := lookup.NewService(index, fetcher, lookup.Options{
		Schools:       cfg.Source.Schools,
		Location:      loc,
		MaxLength:     cfg.Query.MaxLength,
		MaxCandidates: cfg.Query.MaxCandidates,
	})

	return &app{cfg: cfg, cache: index, service: service}, nil
}
