// Command reelproxy runs the media proxy server: it resolves
// Instagram post URLs to direct media, streams or saves the media and
// crops it on request.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"reelproxy/pkg/config"
	"reelproxy/pkg/fetch"
	"reelproxy/pkg/instagram"
	"reelproxy/pkg/logger"
	"reelproxy/pkg/metrics"
	"reelproxy/pkg/ratelimit"
	"reelproxy/pkg/server"
	"reelproxy/pkg/storage"
	"reelproxy/pkg/transform"
)

// Set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	var (
		configPath  = flag.String("config", "", "path to config file")
		port        = flag.Int("port", 0, "listen port (overrides config)")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("reelproxy %s\n", version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	log := logger.GetLogger()

	metrics.Init()

	store, err := storage.NewManager(cfg.Storage.BaseDirectory, log)
	if err != nil {
		log.WithError(err).Fatal("could not prepare storage directories")
	}

	pageClient := instagram.NewPageClient(cfg.Fetcher.ProbeTimeout, cfg.Fetcher.UserAgent, log)
	resolver := instagram.NewResolver(
		instagram.NewCommandExtractor(cfg.Resolver.ExtractorPath, cfg.Resolver.ExtractTimeout, log),
		instagram.NewEmbedExtractor(pageClient, log),
		instagram.NewProfileProber(pageClient, log),
		ratelimit.PerMinute(cfg.Resolver.RequestsPerMinute),
		cfg.Resolver,
		log,
	)

	fetcher := fetch.NewFetcher(cfg.Fetcher.ProbeTimeout, cfg.Fetcher.StreamTimeout, cfg.Fetcher.UserAgent, log)
	transcoder := transform.NewTranscoder(cfg.Transform.FFmpegPath, cfg.Transform.FFprobePath, cfg.Transform.Timeout, log)

	srv := server.New(cfg, resolver, fetcher, transcoder, store, version, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		log.WithError(err).Fatal("server exited with error")
	}
	log.Info("server stopped")
}
