package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

// Config holds the environment-derived settings shared by the SDK and the
// batch tools. The backend URL and anonymous key identify the hosted service;
// everything else has a sensible default.
type Config struct {
	BackendURL     string `env:"AMANI_BACKEND_URL,required"`
	BackendAnonKey string `env:"AMANI_BACKEND_ANON_KEY,required"`
	SiteBaseURL    string `env:"AMANI_SITE_URL" envDefault:"https://amani-finance.vercel.app"`
	SitemapPath    string `env:"AMANI_SITEMAP_PATH" envDefault:"public/sitemap.xml"`
	SessionFile    string `env:"AMANI_SESSION_FILE"`
	Environment    string `env:"ENV" envDefault:"DEV"`
}

// Load parses the configuration from environment variables.
func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, errors.Wrap(err, "[config.Load] parse env")
	}
	return c, nil
}

func (c Config) IsProduction() bool {
	return c.Environment == "PROD"
}
