package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/amani-finance/amani-go/backend"
	"github.com/amani-finance/amani-go/contents"
	"github.com/amani-finance/amani-go/internal/config"
	"github.com/amani-finance/amani-go/sitemap"
)

func main() {
	if err := run(); err != nil {
		log.Error().Err(err).Msg("sitemap generation failed")
		os.Exit(1)
	}
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.Errorf("panic recovered: %v", r)
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "load config")
	}

	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	displayAppName("Amani Sitemap")

	clientOptions := []backend.Option{backend.WithLogger(log.Logger)}
	if cfg.SessionFile != "" {
		// A persisted session lets the generator read rows the anonymous
		// role cannot see.
		clientOptions = append(clientOptions, backend.WithSessionStore(backend.NewFileSessionStore(cfg.SessionFile)))
	}

	client, err := backend.New(cfg.BackendURL, cfg.BackendAnonKey, clientOptions...)
	if err != nil {
		return errors.Wrap(err, "create backend client")
	}

	generator, err := sitemap.NewGenerator(contents.NewRestRepo(client), cfg.SiteBaseURL, sitemap.WithLogger(log.Logger))
	if err != nil {
		return errors.Wrap(err, "create generator")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	count, err := generator.WriteFile(ctx, cfg.SitemapPath)
	if err != nil {
		return errors.Wrap(err, "write sitemap")
	}

	log.Info().Int("urls", count).Str("path", cfg.SitemapPath).Msg("sitemap generation complete")
	return nil
}

func displayAppName(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
