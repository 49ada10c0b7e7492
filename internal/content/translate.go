package content

import (
	"strings"
	"time"

	"github.com/parisxmas/oxisite/internal/models"
)

// TranslationCopy builds the draft copy of item in lang. translate is
// applied to the body and to every content block; it may return its input
// unchanged.
func TranslationCopy(item *models.ContentItem, lang string, translate func(string) string, now time.Time) *models.ContentItem {
	cp := *item
	cp.ID = ""
	cp.Layout = append(models.Layout(nil), item.Layout...)
	cp.Slug = item.Slug + "-" + lang
	cp.Title = item.Title + " (" + strings.ToUpper(lang) + ")"
	cp.Status = models.StatusDraft
	cp.Language = lang
	cp.OriginalID = item.ID
	cp.PublishDate = nil
	cp.PublishedAt = nil
	cp.Translation = models.Translation{}
	cp.AIImprovement = models.AIImprovement{}
	cp.CreatedAt = now
	cp.UpdatedAt = now
	if translate != nil {
		RewriteBlocks(&cp, translate)
	}
	return &cp
}
