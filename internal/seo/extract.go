package seo

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Extracted is what ExtractHTML finds in a document body.
type Extracted struct {
	Images   []Image
	Links    []Link
	Headings int
	H1       int
	Text     string
}

// blockElements get a line break around their text so sentences and words
// from adjacent blocks do not run together.
var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true, atom.Section: true, atom.Article: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Tr: true, atom.Td: true, atom.Blockquote: true, atom.Header: true, atom.Footer: true,
}

// PlainText strips markup from an HTML fragment. Text without markup is
// returned unchanged.
func PlainText(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return fragment
	}
	return ExtractHTML(fragment, "").Text
}

// ExtractHTML walks an HTML fragment or document. Links are internal when
// relative or when their host matches siteURL's host.
func ExtractHTML(doc, siteURL string) Extracted {
	var site *url.URL
	if siteURL != "" {
		site, _ = url.Parse(siteURL)
	}

	var (
		out      Extracted
		text     strings.Builder
		skip     int
		inLink   bool
		linkText strings.Builder
		link     Link
	)
	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or malformed input: keep what was read so far
			out.Text = strings.TrimSpace(collapseSpace(text.String()))
			return out
		case html.TextToken:
			if skip > 0 {
				continue
			}
			t := string(z.Text())
			text.WriteString(t)
			if inLink {
				linkText.WriteString(t)
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				if tt == html.StartTagToken {
					skip++
				}
			case atom.Img:
				out.Images = append(out.Images, Image{Src: attr(tok, "src"), Alt: attr(tok, "alt")})
			case atom.A:
				href := attr(tok, "href")
				if href != "" && tt == html.StartTagToken {
					inLink = true
					linkText.Reset()
					link = Link{Href: href, IsInternal: isInternal(href, site)}
				}
			case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
				out.Headings++
				if tok.DataAtom == atom.H1 {
					out.H1++
				}
			}
			if blockElements[tok.DataAtom] {
				text.WriteString("\n")
			}
		case html.EndTagToken:
			tok := z.Token()
			switch tok.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				if skip > 0 {
					skip--
				}
			case atom.A:
				if inLink {
					link.Text = strings.TrimSpace(linkText.String())
					out.Links = append(out.Links, link)
					inLink = false
				}
			}
			if blockElements[tok.DataAtom] {
				text.WriteString("\n")
			}
		}
	}
}

func attr(tok html.Token, name string) string {
	for _, a := range tok.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func isInternal(href string, site *url.URL) bool {
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	if u.Scheme == "mailto" || u.Scheme == "tel" {
		return false
	}
	if u.Host == "" {
		return true
	}
	return site != nil && strings.EqualFold(u.Hostname(), site.Hostname())
}

func collapseSpace(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.Join(strings.Fields(l), " "); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
