package seo

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// AnalyzePage analyzes a complete rendered HTML page. The main article text
// and title come from readability extraction; the meta description, images,
// links and headings come from the page markup.
func AnalyzePage(page []byte, pageURL, focusKeyword, lang string) (Result, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return Result{}, fmt.Errorf("seo: parse page url: %w", err)
	}
	article, err := readability.FromReader(bytes.NewReader(page), u)
	if err != nil {
		return Result{}, fmt.Errorf("seo: extract article: %w", err)
	}

	head := pageHead(page)
	site := u.Scheme + "://" + u.Host
	body := ExtractHTML(string(page), site)

	title := head.title
	if title == "" {
		title = article.Title
	}
	return Analyze(ContentData{
		Title:           title,
		Content:         article.TextContent,
		Outline:         &Outline{Headings: body.Headings, H1: body.H1},
		MetaDescription: head.description,
		FocusKeyword:    focusKeyword,
		URL:             pageURL,
		Images:          body.Images,
		Links:           body.Links,
		Language:        lang,
	}), nil
}

type headInfo struct {
	title       string
	description string
}

func pageHead(page []byte) headInfo {
	var info headInfo
	z := html.NewTokenizer(bytes.NewReader(page))
	inTitle := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			return info
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.DataAtom {
			case atom.Title:
				inTitle = true
			case atom.Meta:
				if strings.EqualFold(attr(tok, "name"), "description") {
					info.description = strings.TrimSpace(attr(tok, "content"))
				}
			case atom.Body:
				return info
			}
		case html.TextToken:
			if inTitle {
				info.title += string(z.Text())
			}
		case html.EndTagToken:
			if z.Token().DataAtom == atom.Title {
				inTitle = false
				info.title = strings.TrimSpace(info.title)
			}
		}
	}
}
