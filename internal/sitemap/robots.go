package sitemap

import (
	"fmt"
	"strings"
)

// RobotsOptions extends the default rules.
type RobotsOptions struct {
	SitemapURL string
	Disallow   []string
	CrawlDelay int
}

// Robots renders robots.txt: everything is crawlable except the admin and
// API prefixes, and the sitemap is advertised.
func Robots(baseURL string, opts RobotsOptions) string {
	base := strings.TrimRight(baseURL, "/")
	sitemapURL := opts.SitemapURL
	if sitemapURL == "" {
		sitemapURL = base + "/sitemap.xml"
	}
	lines := []string{
		"User-agent: *",
		"Allow: /",
		"",
		"# Disallow admin and API routes",
		"Disallow: /admin/",
		"Disallow: /api/",
	}
	for _, p := range opts.Disallow {
		lines = append(lines, "Disallow: "+p)
	}
	lines = append(lines, "", "# Sitemap", "Sitemap: "+sitemapURL)
	if opts.CrawlDelay > 0 {
		lines = append(lines, "", fmt.Sprintf("Crawl-delay: %d", opts.CrawlDelay))
	}
	return strings.Join(lines, "\n") + "\n"
}
