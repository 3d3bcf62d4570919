package amplifi

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// tokenPattern matches the assignment the router's info page embeds in its
// inline script, e.g. `var token='5f1c...';`.
var tokenPattern = regexp.MustCompile(`token='([^']+)'`)

// ExtractToken returns the session token embedded in an HTML page body.
//
// Only inline scripts (no src attribute) are searched, in document order; the
// first one matching token='...' wins. ErrTokenNotFound is returned when no
// inline script exists or none of them match.
func ExtractToken(body string) (string, error) {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: parse html: %v", ErrTokenNotFound, err)
	}
	return tokenFromDocument(doc)
}

func tokenFromDocument(doc *html.Node) (string, error) {
	for _, script := range inlineScripts(doc) {
		if m := tokenPattern.FindStringSubmatch(script); m != nil {
			return m[1], nil
		}
	}
	return "", ErrTokenNotFound
}

// inlineScripts returns the text content of every <script> element that has
// no src attribute.
func inlineScripts(doc *html.Node) []string {
	var out []string
	walk(doc, func(n *html.Node) {
		if n.DataAtom != atom.Script {
			return
		}
		if _, external := attr(n, "src"); external {
			return
		}
		out = append(out, textContent(n))
	})
	return out
}

// walk visits n and all of its descendants in document order.
func walk(n *html.Node, visit func(*html.Node)) {
	if n.Type == html.ElementNode {
		visit(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}
