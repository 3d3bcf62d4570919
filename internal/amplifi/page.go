package amplifi

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// page is one parsed HTML response from the management interface.
type page struct {
	url *url.URL // final request URL, used to resolve relative links
	doc *html.Node
}

// loginForm is the first <form> on a page with its default field values.
type loginForm struct {
	method string
	action *url.URL
	fields url.Values
	// passwordField is the input that receives the configured password.
	passwordField string
}

// form returns the first form on the page, or false when the page has none.
// A page without a form is what the router serves to an already
// authenticated session.
func (p *page) form() (*loginForm, bool) {
	var node *html.Node
	walk(p.doc, func(n *html.Node) {
		if node == nil && n.DataAtom == atom.Form {
			node = n
		}
	})
	if node == nil {
		return nil, false
	}

	f := &loginForm{
		method: strings.ToUpper(attrOr(node, "method", "GET")),
		action: p.url,
		fields: url.Values{},
	}
	if action, ok := attr(node, "action"); ok && action != "" {
		if u, err := p.url.Parse(action); err == nil {
			f.action = u
		}
	}

	walk(node, func(n *html.Node) {
		if n.DataAtom != atom.Input {
			return
		}
		name, ok := attr(n, "name")
		if !ok || name == "" {
			return
		}
		typ := strings.ToLower(attrOr(n, "type", "text"))
		switch typ {
		case "submit", "button", "reset", "image":
			return
		case "checkbox", "radio":
			if _, checked := attr(n, "checked"); !checked {
				return
			}
		case "password":
			if f.passwordField == "" {
				f.passwordField = name
			}
		}
		f.fields.Set(name, attrOr(n, "value", ""))
	})
	if _, ok := f.fields["password"]; ok {
		f.passwordField = "password"
	}
	if f.passwordField == "" {
		f.passwordField = "password"
	}
	return f, true
}

// metaRefresh returns the target of a <meta http-equiv="refresh"> tag.
// Refreshes without a url= part are ignored.
func (p *page) metaRefresh() (*url.URL, bool) {
	var target *url.URL
	walk(p.doc, func(n *html.Node) {
		if target != nil || n.DataAtom != atom.Meta {
			return
		}
		if equiv, _ := attr(n, "http-equiv"); !strings.EqualFold(equiv, "refresh") {
			return
		}
		content, _ := attr(n, "content")
		ref := refreshURL(content)
		if ref == "" {
			return
		}
		if u, err := p.url.Parse(ref); err == nil {
			target = u
		}
	})
	return target, target != nil
}

// refreshURL extracts the url part of a refresh content value such as
// "0; url=/info.php" or "1;URL='info.php'".
func refreshURL(content string) string {
	for _, part := range strings.Split(content, ";") {
		part = strings.TrimSpace(part)
		if len(part) < 4 || !strings.EqualFold(part[:4], "url=") {
			continue
		}
		return strings.Trim(strings.TrimSpace(part[4:]), `'"`)
	}
	return ""
}

func attrOr(n *html.Node, key, def string) string {
	if v, ok := attr(n, key); ok {
		return v
	}
	return def
}
