package browser

import (
	"strings"

	"golang.org/x/net/html"
)

// elements whose text is never user-visible
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
	"svg":      true,
	"head":     true,
	"template": true,
}

// VisibleText extracts the human-visible text of an HTML document. Text from
// script/style/head and similar elements is dropped, and runs of whitespace
// collapse to single spaces with one line per text node group.
func VisibleText(rawHTML string) (string, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	collectText(doc, &builder)
	return strings.TrimSpace(builder.String()), nil
}

func collectText(n *html.Node, builder *strings.Builder) {
	if n.Type == html.CommentNode {
		return
	}
	if n.Type == html.ElementNode && skippedElements[strings.ToLower(n.Data)] {
		return
	}

	if n.Type == html.TextNode {
		text := strings.Join(strings.Fields(n.Data), " ")
		if text != "" {
			builder.WriteString(text)
			builder.WriteString("\n")
		}
		return
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, builder)
	}
}
