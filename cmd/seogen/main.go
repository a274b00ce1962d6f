package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"

	"github.com/common-nighthawk/go-figure"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/amani-finance/amani-go/internal/utils"
	"github.com/amani-finance/amani-go/seo"
)

const defaultBaseURL = "https://amani-finance.vercel.app"

type pageEntry struct {
	Path       string `yaml:"path"`
	seo.Config `yaml:",inline"`
}

type pagesFile struct {
	BaseURL string      `yaml:"base_url,omitempty"`
	Pages   []pageEntry `yaml:"pages"`
}

func main() {
	if err := run(); err != nil {
		log.Error().Err(err).Msg("seo generation failed")
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

	pagesPath := flag.String("pages", "pages.yaml", "YAML file declaring per-page metadata")
	templatePath := flag.String("template", "index.html", "HTML shell to inject metadata into")
	outDir := flag.String("out", "dist", "output directory")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	displayAppName("Amani SEO")

	data, err := os.ReadFile(*pagesPath)
	if err != nil {
		return errors.Wrap(err, "read pages file")
	}
	var pages pagesFile
	if err := yaml.Unmarshal(data, &pages); err != nil {
		return errors.Wrap(err, "decode pages file")
	}

	publisher := seo.NewPublisher(utils.FirstNonEmpty(pages.BaseURL, defaultBaseURL))

	for _, page := range pages.Pages {
		if err := writePage(publisher, *templatePath, *outDir, page); err != nil {
			return errors.Wrapf(err, "page %s", page.Path)
		}
	}

	log.Info().Int("pages", len(pages.Pages)).Str("out", *outDir).Msg("seo generation complete")
	return nil
}

func writePage(publisher *seo.Publisher, templatePath, outDir string, page pageEntry) error {
	shell, err := os.Open(templatePath)
	if err != nil {
		return errors.Wrap(err, "open template")
	}
	defer shell.Close()

	doc, err := seo.Parse(shell)
	if err != nil {
		return err
	}
	publisher.Apply(doc, page.Path, page.Config)

	dest := filepath.Join(outDir, outputName(page.Path))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errors.Wrap(err, "create output directory")
	}

	out, err := os.Create(dest)
	if err != nil {
		return errors.Wrap(err, "create output file")
	}
	defer out.Close()

	if err := seo.Render(out, doc); err != nil {
		return err
	}
	log.Info().Str("path", page.Path).Str("file", dest).Msg("page written")
	return nil
}

func outputName(path string) string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return "index.html"
	}
	return trimmed + ".html"
}

func displayAppName(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
