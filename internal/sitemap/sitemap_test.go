package sitemap

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/parisxmas/oxisite/internal/models"
)

type fakeSource struct {
	items map[models.ContentKind][]models.ContentItem
	seo   map[string]models.SEORecord
	fail  map[models.ContentKind]bool
}

func (f *fakeSource) Published(_ context.Context, kind models.ContentKind) ([]models.ContentItem, error) {
	if f.fail[kind] {
		return nil, errors.New("collection offline")
	}
	return f.items[kind], nil
}

func (f *fakeSource) SEOFor(_ context.Context, _ models.ContentKind, ids []string) (map[string]models.SEORecord, error) {
	out := map[string]models.SEORecord{}
	for _, id := range ids {
		if rec, ok := f.seo[id]; ok {
			out[id] = rec
		}
	}
	return out, nil
}

func TestEntries(t *testing.T) {
	mod := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)
	no := false
	prio := 0.9
	src := &fakeSource{
		items: map[models.ContentKind][]models.ContentItem{
			models.KindPage: {
				{ID: "1", Slug: "home", UpdatedAt: mod},
				{ID: "2", Slug: "pricing", UpdatedAt: mod},
				{ID: "3", Slug: "legal"},
			},
			models.KindPost:    {{ID: "4", Slug: "launch", UpdatedAt: mod}},
			models.KindProduct: {{ID: "5", Slug: "crm"}},
		},
		seo: map[string]models.SEORecord{
			"3": {TechnicalSEO: models.TechnicalSEO{Sitemap: &no}},
			"4": {TechnicalSEO: models.TechnicalSEO{Priority: &prio, ChangeFrequency: "daily"}},
		},
	}
	g := NewGenerator("https://site.test/", src, zap.NewNop())
	entries := g.Entries(context.Background())

	require.Len(t, entries, 4)
	assert.Equal(t, Entry{Loc: "https://site.test", ChangeFreq: "daily", Priority: 1.0}, entries[0])
	assert.Equal(t, "https://site.test/pricing", entries[1].Loc)
	assert.Equal(t, 0.8, entries[1].Priority)
	assert.Equal(t, "https://site.test/blog/launch", entries[2].Loc)
	assert.Equal(t, "daily", entries[2].ChangeFreq)
	assert.Equal(t, 0.9, entries[2].Priority)
	assert.Equal(t, "https://site.test/products/crm", entries[3].Loc)
	assert.Nil(t, entries[3].LastMod)
}

func TestEntriesSkipsFailingKind(t *testing.T) {
	src := &fakeSource{
		items: map[models.ContentKind][]models.ContentItem{models.KindProduct: {{ID: "5", Slug: "crm"}}},
		fail:  map[models.ContentKind]bool{models.KindPage: true},
	}
	entries := NewGenerator("https://site.test", src, zap.NewNop()).Entries(context.Background())
	require.Len(t, entries, 2)
	assert.Equal(t, "https://site.test/products/crm", entries[1].Loc)
}

func TestRender(t *testing.T) {
	mod := time.Date(2026, 2, 3, 23, 30, 0, 0, time.UTC)
	out := string(Render([]Entry{
		{Loc: "https://site.test", ChangeFreq: "daily", Priority: 1},
		{Loc: "https://site.test/a?x=1&y=2", LastMod: &mod, ChangeFreq: "weekly", Priority: 0.75},
	}))
	want := strings.Join([]string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`,
		`  <url>`,
		`    <loc>https://site.test</loc>`,
		`    <changefreq>daily</changefreq>`,
		`    <priority>1.0</priority>`,
		`  </url>`,
		`  <url>`,
		`    <loc>https://site.test/a?x=1&amp;y=2</loc>`,
		`    <lastmod>2026-02-03</lastmod>`,
		`    <changefreq>weekly</changefreq>`,
		`    <priority>0.8</priority>`,
		`  </url>`,
		`</urlset>`,
	}, "\n")
	assert.Equal(t, want, out)
}

func TestRobots(t *testing.T) {
	assert.Equal(t, `User-agent: *
Allow: /

# Disallow admin and API routes
Disallow: /admin/
Disallow: /api/

# Sitemap
Sitemap: https://site.test/sitemap.xml
`, Robots("https://site.test/", RobotsOptions{}))

	out := Robots("https://site.test", RobotsOptions{Disallow: []string{"/drafts/"}, CrawlDelay: 2})
	assert.Contains(t, out, "Disallow: /drafts/\n")
	assert.True(t, strings.HasSuffix(out, "Crawl-delay: 2\n"))
}
