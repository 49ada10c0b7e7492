package seo

import (
	"time"

	"github.com/parisxmas/oxisite/internal/models"
)

// DefaultSchemaType picks the schema.org type for a content kind.
func DefaultSchemaType(kind models.ContentKind) string {
	switch kind {
	case models.KindPost:
		return "BlogPosting"
	case models.KindPage:
		return "WebPage"
	case models.KindProduct:
		return "Product"
	}
	return "WebPage"
}

// Organization identifies the publisher in generated JSON-LD.
type Organization struct {
	Name string
	URL  string
	Logo string
}

// StructuredData renders schema.org JSON-LD for an item. rec may be nil.
func StructuredData(item *models.ContentItem, rec *models.SEORecord, pageURL string, org Organization) map[string]any {
	schemaType := DefaultSchemaType(item.Kind)
	title, desc := item.Title, item.Meta.Description
	if rec != nil {
		if rec.StructuredData.SchemaType != "" {
			schemaType = rec.StructuredData.SchemaType
		}
		if rec.BasicSEO.MetaTitle != "" {
			title = rec.BasicSEO.MetaTitle
		}
		if rec.BasicSEO.MetaDescription != "" {
			desc = rec.BasicSEO.MetaDescription
		}
	}

	data := map[string]any{
		"@context": "https://schema.org",
		"@type":    schemaType,
	}
	switch schemaType {
	case "Article", "BlogPosting":
		data["headline"] = title
		data["description"] = desc
		data["url"] = pageURL
		published := item.CreatedAt
		if item.PublishedAt != nil {
			published = *item.PublishedAt
		}
		data["datePublished"] = published.UTC().Format(time.RFC3339)
		data["dateModified"] = item.UpdatedAt.UTC().Format(time.RFC3339)
		publisher := map[string]any{"@type": "Organization", "name": org.Name, "url": org.URL}
		if org.Logo != "" {
			publisher["logo"] = map[string]any{"@type": "ImageObject", "url": org.Logo}
		}
		author := map[string]any{"@type": "Organization", "name": org.Name}
		if item.Author != "" {
			author = map[string]any{"@type": "Person", "name": item.Author}
		}
		data["author"] = author
		data["publisher"] = publisher
	case "WebPage":
		data["name"] = title
		data["description"] = desc
		data["url"] = pageURL
	default:
		data["name"] = title
		if desc != "" {
			data["description"] = desc
		}
		data["url"] = pageURL
	}
	return data
}
