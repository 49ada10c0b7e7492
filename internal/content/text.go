package content

import (
	"html"
	"strings"

	"github.com/parisxmas/oxisite/internal/models"
	"github.com/parisxmas/oxisite/internal/seo"
)

// HTML joins the item's body with the text of every layout block, in
// layout order, as one HTML document for analysis.
func HTML(item *models.ContentItem) string {
	var b strings.Builder
	for _, blk := range item.Layout {
		switch v := blk.(type) {
		case models.HeroBlock:
			heading(&b, "h1", strings.TrimSpace(v.Heading+" "+v.HighlightText))
			para(&b, v.Subheading)
			para(&b, v.Description)
		case models.FeaturesBlock:
			heading(&b, "h2", v.Title)
			para(&b, v.Subtitle)
			for _, f := range v.Features {
				heading(&b, "h3", f.Title)
				para(&b, f.Description)
			}
		case models.SocialProofBlock:
			heading(&b, "h2", v.Title)
		case models.ContentBlock:
			b.WriteString(v.Content)
			b.WriteByte('\n')
		}
	}
	b.WriteString(item.Content)
	return b.String()
}

func heading(b *strings.Builder, tag, text string) {
	if text == "" {
		return
	}
	b.WriteString("<" + tag + ">" + html.EscapeString(text) + "</" + tag + ">\n")
}

func para(b *strings.Builder, text string) {
	if text == "" {
		return
	}
	b.WriteString("<p>" + html.EscapeString(text) + "</p>\n")
}

// Text is the plain text of HTML(item).
func Text(item *models.ContentItem) string {
	return strings.TrimSpace(seo.PlainText(HTML(item)))
}

// RewriteBlocks applies fn to the HTML of every content block and to the
// item body, returning how many pieces changed.
func RewriteBlocks(item *models.ContentItem, fn func(string) string) int {
	changed := 0
	for i, blk := range item.Layout {
		cb, ok := blk.(models.ContentBlock)
		if !ok || strings.TrimSpace(cb.Content) == "" {
			continue
		}
		if out := fn(cb.Content); out != cb.Content {
			item.Layout[i] = models.ContentBlock{Content: out}
			changed++
		}
	}
	if strings.TrimSpace(item.Content) != "" {
		if out := fn(item.Content); out != item.Content {
			item.Content = out
			changed++
		}
	}
	return changed
}

// Analysis builds the SEO analyzer input for an item published at pageURL.
func Analysis(item *models.ContentItem, rec *models.SEORecord, pageURL, siteURL string) seo.ContentData {
	doc := HTML(item)
	ex := seo.ExtractHTML(doc, siteURL)
	data := seo.ContentData{
		Title:           item.Title,
		Content:         doc,
		MetaTitle:       item.Meta.Title,
		MetaDescription: item.Meta.Description,
		FocusKeyword:    item.Meta.FocusKeyword,
		URL:             pageURL,
		Images:          ex.Images,
		Links:           ex.Links,
		Language:        item.Language,
		Outline:         &seo.Outline{Headings: ex.Headings, H1: ex.H1},
	}
	if rec != nil {
		if rec.BasicSEO.MetaTitle != "" {
			data.MetaTitle = rec.BasicSEO.MetaTitle
		}
		if rec.BasicSEO.MetaDescription != "" {
			data.MetaDescription = rec.BasicSEO.MetaDescription
		}
		if rec.BasicSEO.FocusKeyword != "" {
			data.FocusKeyword = rec.BasicSEO.FocusKeyword
		}
	}
	return data
}

// Path is the public path of an item.
func Path(kind models.ContentKind, slug string) string {
	switch kind {
	case models.KindPost:
		return "/blog/" + slug
	case models.KindProduct:
		return "/products/" + slug
	}
	if slug == "home" {
		return "/"
	}
	return "/" + slug
}

// SuggestionIssues turns AI suggestions into stored SEO issues.
func SuggestionIssues(suggestions []models.SEOSuggestion) []models.SEOIssue {
	out := make([]models.SEOIssue, 0, len(suggestions))
	for _, s := range suggestions {
		sev := models.SeverityInfo
		switch s.Priority {
		case "high":
			sev = models.SeverityError
		case "medium":
			sev = models.SeverityWarning
		}
		out = append(out, models.SEOIssue{
			Severity:   sev,
			Category:   category(s.Type),
			Message:    s.Suggestion,
			Suggestion: s.Suggestion,
		})
	}
	return out
}

func category(t string) models.IssueCategory {
	switch c := models.IssueCategory(t); c {
	case models.CategoryTitle, models.CategoryDescription, models.CategoryContent,
		models.CategoryKeywords, models.CategoryImages, models.CategoryLinks, models.CategoryTechnical:
		return c
	}
	return models.CategoryContent
}
