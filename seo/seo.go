package seo

import (
	"io"

	"github.com/pkg/errors"
	"golang.org/x/net/html"

	"github.com/amani-finance/amani-go/internal/utils"
)

// Page types understood by the publisher.
const (
	TypeWebsite = "website"
	TypeArticle = "article"
	TypeProfile = "profile"
)

const (
	robotsIndex   = "index, follow, max-image-preview:large, max-snippet:-1, max-video-preview:-1"
	robotsNoIndex = "noindex, nofollow"

	twitterCard = "summary_large_image"
)

// Config declares a page's head metadata. Zero fields fall back to the
// publisher's defaults.
type Config struct {
	Title         string `yaml:"title"`
	Description   string `yaml:"description"`
	Keywords      string `yaml:"keywords,omitempty"`
	Image         string `yaml:"image,omitempty"`
	Type          string `yaml:"type,omitempty"`
	Author        string `yaml:"author,omitempty"`
	PublishedTime string `yaml:"published_time,omitempty"`
	ModifiedTime  string `yaml:"modified_time,omitempty"`
	Canonical     string `yaml:"canonical,omitempty"`
	NoIndex       bool   `yaml:"noindex,omitempty"`
}

// Publisher synchronizes document head metadata with per-page
// configurations.
type Publisher struct {
	BaseURL      string
	SiteName     string
	Locale       string
	DefaultImage string
	Defaults     Config
}

// NewPublisher returns a Publisher carrying the site's defaults.
func NewPublisher(baseURL string) *Publisher {
	return &Publisher{
		BaseURL:      baseURL,
		SiteName:     "Amani Finance",
		Locale:       "fr_FR",
		DefaultImage: baseURL + "/og-image.jpg",
		Defaults: Config{
			Title:       "Amani Finance - Actualités Économiques et Marchés Africains",
			Description: "Plateforme d'information financière pour l'Afrique. Suivez les indices BRVM, taux de change, analyses économiques et actualités des marchés africains.",
			Type:        TypeWebsite,
		},
	}
}

// Apply overwrites the document's head metadata for the page at path. Tags
// are located by attribute match and created when absent, so applying the
// same configuration twice leaves exactly one tag of each kind.
func (p *Publisher) Apply(doc *html.Node, path string, cfg Config) {
	cfg = p.withDefaults(cfg)
	pageURL := utils.FirstNonEmpty(cfg.Canonical, p.BaseURL+path)
	image := utils.FirstNonEmpty(cfg.Image, p.DefaultImage)
	head := findOrCreateHead(doc)

	setTitle(head, cfg.Title)

	upsertMeta(head, "name", "title", cfg.Title)
	upsertMeta(head, "name", "description", cfg.Description)
	if cfg.Keywords != "" {
		upsertMeta(head, "name", "keywords", cfg.Keywords)
	}
	if cfg.Author != "" {
		upsertMeta(head, "name", "author", cfg.Author)
	}

	robots := robotsIndex
	if cfg.NoIndex {
		robots = robotsNoIndex
	}
	upsertMeta(head, "name", "robots", robots)

	upsertMeta(head, "property", "og:type", cfg.Type)
	upsertMeta(head, "property", "og:url", pageURL)
	upsertMeta(head, "property", "og:title", cfg.Title)
	upsertMeta(head, "property", "og:description", cfg.Description)
	upsertMeta(head, "property", "og:image", image)
	upsertMeta(head, "property", "og:site_name", p.SiteName)
	upsertMeta(head, "property", "og:locale", p.Locale)

	if cfg.Type == TypeArticle {
		if cfg.PublishedTime != "" {
			upsertMeta(head, "property", "article:published_time", cfg.PublishedTime)
		}
		if cfg.ModifiedTime != "" {
			upsertMeta(head, "property", "article:modified_time", cfg.ModifiedTime)
		}
		if cfg.Author != "" {
			upsertMeta(head, "property", "article:author", cfg.Author)
		}
	}

	upsertMeta(head, "property", "twitter:card", twitterCard)
	upsertMeta(head, "property", "twitter:url", pageURL)
	upsertMeta(head, "property", "twitter:title", cfg.Title)
	upsertMeta(head, "property", "twitter:description", cfg.Description)
	upsertMeta(head, "property", "twitter:image", image)

	upsertCanonical(head, pageURL)
}

func (p *Publisher) withDefaults(cfg Config) Config {
	cfg.Title = utils.FirstNonEmpty(cfg.Title, p.Defaults.Title)
	cfg.Description = utils.FirstNonEmpty(cfg.Description, p.Defaults.Description)
	cfg.Type = utils.FirstNonEmpty(cfg.Type, p.Defaults.Type)
	return cfg
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*html.Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, errors.Wrap(err, "[seo.Parse] parse document")
	}
	return doc, nil
}

// Render writes the document back out.
func Render(w io.Writer, doc *html.Node) error {
	if err := html.Render(w, doc); err != nil {
		return errors.Wrap(err, "[seo.Render] render document")
	}
	return nil
}
