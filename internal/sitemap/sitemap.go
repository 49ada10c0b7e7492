// Package sitemap renders sitemap.xml and robots.txt for the public site.
package sitemap

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/parisxmas/oxisite/internal/models"
)

// Entry is one <url> of the sitemap.
type Entry struct {
	Loc        string
	LastMod    *time.Time
	ChangeFreq string
	Priority   float64
}

// Source lists published content and its SEO overrides.
type Source interface {
	Published(ctx context.Context, kind models.ContentKind) ([]models.ContentItem, error)
	SEOFor(ctx context.Context, kind models.ContentKind, ids []string) (map[string]models.SEORecord, error)
}

type section struct {
	kind       models.ContentKind
	prefix     string
	changeFreq string
	priority   float64
}

var sections = []section{
	{models.KindPage, "/", "weekly", 0.8},
	{models.KindPost, "/blog/", "monthly", 0.6},
	{models.KindProduct, "/products/", "weekly", 0.7},
}

// Generator builds sitemaps for one site.
type Generator struct {
	baseURL string
	src     Source
	log     *zap.Logger
}

func NewGenerator(baseURL string, src Source, log *zap.Logger) *Generator {
	return &Generator{baseURL: strings.TrimRight(baseURL, "/"), src: src, log: log.Named("sitemap")}
}

// Entries returns the root entry followed by every listable item. A kind
// that fails to load is logged and left out.
func (g *Generator) Entries(ctx context.Context) []Entry {
	entries := []Entry{{Loc: g.baseURL, ChangeFreq: "daily", Priority: 1.0}}
	for _, s := range sections {
		items, err := g.src.Published(ctx, s.kind)
		if err != nil {
			g.log.Warn("skipping content kind", zap.String("kind", string(s.kind)), zap.Error(err))
			continue
		}
		ids := make([]string, 0, len(items))
		for _, it := range items {
			ids = append(ids, it.ID)
		}
		overrides, err := g.src.SEOFor(ctx, s.kind, ids)
		if err != nil {
			g.log.Warn("seo overrides unavailable", zap.String("kind", string(s.kind)), zap.Error(err))
			overrides = nil
		}
		for _, it := range items {
			if s.kind == models.KindPage && it.Slug == "home" {
				continue
			}
			e := Entry{
				Loc:        g.baseURL + s.prefix + it.Slug,
				ChangeFreq: s.changeFreq,
				Priority:   s.priority,
			}
			if !it.UpdatedAt.IsZero() {
				mod := it.UpdatedAt
				e.LastMod = &mod
			}
			if rec, ok := overrides[it.ID]; ok {
				if !rec.TechnicalSEO.InSitemap() {
					continue
				}
				if rec.TechnicalSEO.ChangeFrequency != "" {
					e.ChangeFreq = rec.TechnicalSEO.ChangeFrequency
				}
				if rec.TechnicalSEO.Priority != nil {
					e.Priority = *rec.TechnicalSEO.Priority
				}
			}
			entries = append(entries, e)
		}
	}
	return entries
}

// Build renders the sitemap document.
func (g *Generator) Build(ctx context.Context) []byte {
	return Render(g.Entries(ctx))
}

// Render writes entries as a sitemaps.org 0.9 urlset.
func Render(entries []Entry) []byte {
	var b bytes.Buffer
	b.WriteString(xml.Header[:len(xml.Header)-1])
	b.WriteString("\n<urlset xmlns=\"http://www.sitemaps.org/schemas/sitemap/0.9\">\n")
	for _, e := range entries {
		b.WriteString("  <url>\n    <loc>")
		xml.EscapeText(&b, []byte(e.Loc))
		b.WriteString("</loc>\n")
		if e.LastMod != nil {
			fmt.Fprintf(&b, "    <lastmod>%s</lastmod>\n", e.LastMod.UTC().Format("2006-01-02"))
		}
		if e.ChangeFreq != "" {
			b.WriteString("    <changefreq>")
			xml.EscapeText(&b, []byte(e.ChangeFreq))
			b.WriteString("</changefreq>\n")
		}
		fmt.Fprintf(&b, "    <priority>%.1f</priority>\n", e.Priority)
		b.WriteString("  </url>\n")
	}
	b.WriteString("</urlset>")
	return b.Bytes()
}
