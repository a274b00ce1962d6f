package seo

import (
	"encoding/json"

	"github.com/pkg/errors"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/amani-finance/amani-go/internal/utils"
)

// structuredDataAttr marks the JSON-LD script block owned by the publisher.
const structuredDataAttr = "data-structured-data"

// InjectStructuredData replaces the document's structured-data block with a
// JSON-LD serialization of v. Any prior block carrying the marker attribute
// is removed first, so at most one is ever present.
func InjectStructuredData(doc *html.Node, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "[InjectStructuredData] encode document")
	}

	head := findOrCreateHead(doc)
	for {
		existing := findElement(head, "script", func(n *html.Node) bool {
			return attr(n, structuredDataAttr) != ""
		})
		if existing == nil {
			break
		}
		existing.Parent.RemoveChild(existing)
	}

	script := &html.Node{
		Type:     html.ElementNode,
		Data:     "script",
		DataAtom: atom.Script,
		Attr: []html.Attribute{
			{Key: "type", Val: "application/ld+json"},
			{Key: structuredDataAttr, Val: "true"},
		},
	}
	script.AppendChild(&html.Node{Type: html.TextNode, Data: string(payload)})
	head.AppendChild(script)
	return nil
}

// Article describes a published article for the structured-data block.
type Article struct {
	Title         string
	Description   string
	Image         string
	Author        string
	PublishedTime string
	ModifiedTime  string
	URL           string
}

// ArticleStructuredData builds the schema.org NewsArticle document for a.
func (p *Publisher) ArticleStructuredData(a Article) map[string]any {
	return map[string]any{
		"@context":      "https://schema.org",
		"@type":         "NewsArticle",
		"headline":      a.Title,
		"description":   a.Description,
		"image":         a.Image,
		"datePublished": a.PublishedTime,
		"dateModified":  utils.FirstNonEmpty(a.ModifiedTime, a.PublishedTime),
		"author": map[string]any{
			"@type": "Person",
			"name":  a.Author,
		},
		"publisher": map[string]any{
			"@type": "Organization",
			"name":  p.SiteName,
			"logo": map[string]any{
				"@type": "ImageObject",
				"url":   p.BaseURL + "/logo.png",
			},
		},
		"mainEntityOfPage": map[string]any{
			"@type": "WebPage",
			"@id":   a.URL,
		},
	}
}
