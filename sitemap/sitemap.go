package sitemap

import (
	"context"
	"encoding/xml"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/amani-finance/amani-go/contents"
)

// ChangeFreq is the sitemaps.org change-frequency hint.
type ChangeFreq string

const (
	Always  ChangeFreq = "always"
	Hourly  ChangeFreq = "hourly"
	Daily   ChangeFreq = "daily"
	Weekly  ChangeFreq = "weekly"
	Monthly ChangeFreq = "monthly"
	Yearly  ChangeFreq = "yearly"
	Never   ChangeFreq = "never"
)

// URL is one sitemap entry.
type URL struct {
	Loc        string     `xml:"loc"`
	LastMod    string     `xml:"lastmod"`
	ChangeFreq ChangeFreq `xml:"changefreq"`
	Priority   float64    `xml:"priority"`
}

type urlSet struct {
	XMLName   xml.Name `xml:"urlset"`
	Namespace string   `xml:"xmlns,attr"`
	NewsNS    string   `xml:"xmlns:news,attr"`
	ImageNS   string   `xml:"xmlns:image,attr"`
	URLs      []URL    `xml:"url"`
}

const dateLayout = "2006-01-02"

type staticPage struct {
	path     string
	freq     ChangeFreq
	priority float64
}

// The site's fixed page list, ordered by priority.
var staticPages = []staticPage{
	{"/", Daily, 1.0},
	{"/actualites", Daily, 0.9},
	{"/marche", Hourly, 0.9},
	{"/economie", Daily, 0.8},
	{"/indices", Hourly, 0.9},
	{"/investissement", Weekly, 0.8},
	{"/insights", Weekly, 0.8},
	{"/tech", Weekly, 0.7},
	{"/industrie", Weekly, 0.7},
	{"/podcast", Weekly, 0.7},
	{"/guide-debutant", Monthly, 0.7},
	{"/calculateur", Monthly, 0.6},
	{"/newsletter", Monthly, 0.6},
	{"/about", Monthly, 0.5},
	{"/contact", Monthly, 0.5},
}

// Generator assembles the sitemap from the static page list plus the
// published content rows.
type Generator struct {
	contents contents.Repo
	baseURL  string
	log      zerolog.Logger
	nowTime  func() time.Time
}

// Option modifies a Generator during construction.
type Option func(*Generator)

// WithLogger sets the generator logger.
func WithLogger(log zerolog.Logger) Option {
	return func(g *Generator) {
		g.log = log
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(g *Generator) {
		g.nowTime = nowFunc
	}
}

func NewGenerator(repo contents.Repo, baseURL string, options ...Option) (*Generator, error) {
	if repo == nil {
		return nil, errors.New("[NewGenerator] contents repo is required")
	}
	if baseURL == "" {
		return nil, errors.New("[NewGenerator] baseURL is required")
	}
	g := &Generator{
		contents: repo,
		baseURL:  baseURL,
		log:      zerolog.Nop(),
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(g)
	}
	return g, nil
}

// Build assembles the URL set. A query failure for one content kind is
// logged and contributes zero rows; it never aborts the run.
func (g *Generator) Build(ctx context.Context) []URL {
	today := g.nowTime().Format(dateLayout)

	urls := make([]URL, 0, len(staticPages))
	for _, page := range staticPages {
		urls = append(urls, URL{
			Loc:        g.baseURL + page.path,
			LastMod:    today,
			ChangeFreq: page.freq,
			Priority:   page.priority,
		})
	}

	urls = append(urls, g.contentURLs(ctx, contents.KindArticle, "/article/", Weekly, 0.8)...)
	urls = append(urls, g.contentURLs(ctx, contents.KindPodcast, "/podcast/", Monthly, 0.7)...)
	return urls
}

func (g *Generator) contentURLs(ctx context.Context, kind contents.Kind, prefix string, freq ChangeFreq, priority float64) []URL {
	rows, err := g.contents.ListPublished(ctx, kind)
	if err != nil {
		g.log.Warn().Err(err).Str("kind", string(kind)).
			Msg("content query failed, emitting no entries for this kind")
		return nil
	}

	urls := make([]URL, 0, len(rows))
	for _, row := range rows {
		urls = append(urls, URL{
			Loc:        g.baseURL + prefix + row.Slug,
			LastMod:    row.UpdatedAt.Format(dateLayout),
			ChangeFreq: freq,
			Priority:   priority,
		})
	}
	g.log.Info().Int("count", len(urls)).Str("kind", string(kind)).Msg("content entries added")
	return urls
}

// Marshal serializes the URL set as a sitemap document.
func Marshal(urls []URL) ([]byte, error) {
	set := urlSet{
		Namespace: "http://www.sitemaps.org/schemas/sitemap/0.9",
		NewsNS:    "http://www.google.com/schemas/sitemap-news/0.9",
		ImageNS:   "http://www.google.com/schemas/sitemap-image/1.1",
		URLs:      urls,
	}
	body, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "[sitemap.Marshal] encode urlset")
	}
	return append([]byte(xml.Header), body...), nil
}

// WriteFile builds, serializes and writes the sitemap, returning the number
// of entries written.
func (g *Generator) WriteFile(ctx context.Context, path string) (int, error) {
	urls := g.Build(ctx)
	data, err := Marshal(urls)
	if err != nil {
		return 0, errors.Wrap(err, "[Generator.WriteFile]")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, errors.Wrap(err, "[Generator.WriteFile] write sitemap")
	}
	g.log.Info().Int("urls", len(urls)).Str("path", path).Msg("sitemap written")
	return len(urls), nil
}
