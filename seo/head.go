package seo

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func findOrCreateHead(doc *html.Node) *html.Node {
	if head := findElement(doc, "head", nil); head != nil {
		return head
	}
	// html.Parse always synthesizes a head for full documents; this covers
	// hand-built fragments.
	head := &html.Node{Type: html.ElementNode, Data: "head", DataAtom: atom.Head}
	if root := findElement(doc, "html", nil); root != nil {
		root.InsertBefore(head, root.FirstChild)
	} else {
		doc.AppendChild(head)
	}
	return head
}

// findElement returns the first element named tag for which match holds.
// A nil match accepts any element of that name.
func findElement(n *html.Node, tag string, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag && (match == nil || match(n)) {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findElement(child, tag, match); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, value string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: value})
}

func setTitle(head *html.Node, title string) {
	node := findElement(head, "title", nil)
	if node == nil {
		node = &html.Node{Type: html.ElementNode, Data: "title", DataAtom: atom.Title}
		head.AppendChild(node)
	}
	for node.FirstChild != nil {
		node.RemoveChild(node.FirstChild)
	}
	node.AppendChild(&html.Node{Type: html.TextNode, Data: title})
}

// upsertMeta locates the meta tag whose attrKey attribute equals name and
// sets its content, creating the tag when absent.
func upsertMeta(head *html.Node, attrKey, name, content string) {
	meta := findElement(head, "meta", func(n *html.Node) bool {
		return attr(n, attrKey) == name
	})
	if meta == nil {
		meta = &html.Node{
			Type:     html.ElementNode,
			Data:     "meta",
			DataAtom: atom.Meta,
			Attr:     []html.Attribute{{Key: attrKey, Val: name}},
		}
		head.AppendChild(meta)
	}
	setAttr(meta, "content", content)
}

func upsertCanonical(head *html.Node, href string) {
	link := findElement(head, "link", func(n *html.Node) bool {
		return attr(n, "rel") == "canonical"
	})
	if link == nil {
		link = &html.Node{
			Type:     html.ElementNode,
			Data:     "link",
			DataAtom: atom.Link,
			Attr:     []html.Attribute{{Key: "rel", Val: "canonical"}},
		}
		head.AppendChild(link)
	}
	setAttr(link, "href", href)
}
