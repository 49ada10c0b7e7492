package seo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parisxmas/oxisite/internal/models"
)

func wellOptimized() ContentData {
	para := "<p>Scoring matters. " + strings.Repeat("alpha beta gamma delta. ", 25) + "</p>"
	return ContentData{
		Title:           "Lead scoring guide for modern B2B marketing teams in 2026",
		MetaDescription: "Learn how lead scoring ranks every inbound form submission so sales teams call the hottest prospects first, with rules, grades and practical examples.",
		Content:         "<h1>Scoring guide</h1>" + para + para + para,
		FocusKeyword:    "scoring",
		URL:             "https://site.test/blog/lead-scoring",
		Images:          []Image{{Src: "/chart.png", Alt: "Lead scoring chart"}},
		Links: []Link{
			{Href: "/pricing", Text: "Pricing", IsInternal: true},
			{Href: "https://example.org/research", Text: "Research"},
		},
	}
}

func messages(issues []models.SEOIssue) []string {
	var out []string
	for _, is := range issues {
		out = append(out, is.Message)
	}
	return out
}

func TestAnalyzeWellOptimizedContent(t *testing.T) {
	res := Analyze(wellOptimized())
	assert.Empty(t, messages(res.Issues))
	assert.Equal(t, 100, res.Score)
	assert.Empty(t, res.Recommendations)
	assert.Greater(t, res.ReadabilityScore, 0)
}

func TestAnalyzeEmptyInput(t *testing.T) {
	res := Analyze(ContentData{})
	assert.Equal(t, []string{
		"Missing title tag",
		"Missing meta description",
		"No content found",
		"No focus keyword set",
		"No images found",
		"No links found",
		"No URL provided for analysis",
	}, messages(res.Issues))
	assert.Equal(t, 43, res.Score)
	assert.Equal(t, 43, res.RawScore)
	assert.Equal(t, 0, res.ReadabilityScore)
	assert.Len(t, res.Recommendations, 6)
}

func TestAnalyzeTitleChecks(t *testing.T) {
	d := wellOptimized()
	d.MetaTitle = "Best best best tools"
	res := Analyze(d)
	assert.Equal(t, []string{
		"Title is too short (20 characters)",
		"Focus keyword not found in title",
		"Possible keyword stuffing in title",
	}, messages(res.Issues))
	assert.Equal(t, 100-24, res.Score)

	d.MetaTitle = strings.Repeat("scoring x ", 7)
	res = Analyze(d)
	assert.Contains(t, messages(res.Issues), "Title is too long (70 characters)")
}

func TestAnalyzeDescriptionBounds(t *testing.T) {
	d := wellOptimized()
	d.MetaDescription = strings.Repeat("s", 161)
	res := Analyze(d)
	assert.Equal(t, []string{
		"Meta description is too long (161 characters)",
		"Focus keyword not found in meta description",
	}, messages(res.Issues))
	assert.Equal(t, models.SeverityInfo, res.Issues[1].Severity)
}

func TestAnalyzeContentStructure(t *testing.T) {
	d := wellOptimized()
	d.Content = "<h1>A</h1><h1>B</h1><p>scoring " + strings.Repeat("word ", 160) + "</p>"
	res := Analyze(d)
	msgs := messages(res.Issues)
	assert.Contains(t, msgs, "Content is too short (163 words)")
	assert.Contains(t, msgs, "Multiple H1 headings found (2)")
	assert.Contains(t, msgs, "Some paragraphs are too long")

	d.Content = "<p>scoring " + strings.Repeat("alpha. ", 400) + "</p>"
	msgs = messages(Analyze(d).Issues)
	assert.Contains(t, msgs, "No headings found in content")
	assert.Contains(t, msgs, "No H1 heading found")
}

func TestAnalyzeKeywordDensity(t *testing.T) {
	d := wellOptimized()
	d.FocusKeyword = "gamma"
	// 75 of 308 words are "gamma."
	assert.Contains(t, messages(Analyze(d).Issues), "Keyword density is too high (24.4%)")

	d.FocusKeyword = "omega"
	msgs := messages(Analyze(d).Issues)
	assert.Contains(t, msgs, "Keyword density is too low (0.0%)")
	assert.Contains(t, msgs, "Focus keyword not found in first paragraph")
}

func TestAnalyzeImagesAndLinks(t *testing.T) {
	d := wellOptimized()
	d.Images = []Image{{Src: "/a.png"}, {Src: "/b.png", Alt: " "}, {Src: "/c.png", Alt: "team photo"}}
	d.Links = []Link{{Href: "https://a.example", Text: ""}}
	res := Analyze(d)
	assert.Equal(t, []string{
		"2 images missing alt text",
		"Focus keyword not found in image alt text",
		"No internal links found",
		"1 links have empty anchor text",
	}, messages(res.Issues))
	assert.Equal(t, models.SeverityError, res.Issues[0].Severity)
}

func TestAnalyzeURLChecks(t *testing.T) {
	d := wellOptimized()
	d.URL = "https://site.test/a/b/c/d_e/" + strings.Repeat("x", 80)
	assert.Equal(t, []string{
		"URL is too long",
		"Focus keyword not found in URL",
		"URL structure is too deep",
		"URL contains underscores",
	}, messages(Analyze(d).Issues))
}

func TestAnalyzeURLKeywordIsVerbatim(t *testing.T) {
	d := wellOptimized()
	d.FocusKeyword = "lead scoring"
	d.Title = "Lead scoring guide for modern B2B marketing teams in 2026"
	assert.Contains(t, messages(Analyze(d).Issues), "Focus keyword not found in URL")

	d.FocusKeyword = "Lead-Scoring"
	assert.NotContains(t, messages(Analyze(d).Issues), "Focus keyword not found in URL")
}

func TestAnalyzeScoreClampsAtZero(t *testing.T) {
	d := ContentData{
		Title:           "spam spam spam",
		MetaDescription: "short",
		Content:         "<h1>a</h1><h1>b</h1><p>" + strings.Repeat("gamma ", 200) + "</p>",
		FocusKeyword:    "omega",
		Images:          []Image{{Src: "/a.png"}},
		Links:           []Link{{Href: "https://x.example"}},
		URL:             "https://site.test/a/b/c/d/e_f/" + strings.Repeat("y", 90),
	}
	res := Analyze(d)
	require.Less(t, res.RawScore, 0)
	assert.Equal(t, 0, res.Score)
	assert.Equal(t, 100-PenaltyOf(res.Issues), res.RawScore)
}

func TestReadability(t *testing.T) {
	assert.Equal(t, 0, Readability("", 3))
	assert.Equal(t, 0, Readability("   ...  ", 0))
	assert.Equal(t, 100, Readability("The cat sat. The dog ran.", 0))
	// 30 words in one sentence: 100 - (30-20)*2 = 80, plus 2 headings = 84
	assert.Equal(t, 84, Readability(strings.Repeat("cat ", 29)+"cat.", 2))
	// average word length 10: 100 - (10-6)*5 = 80
	assert.Equal(t, 80, Readability("abcdefghij abcdefghi.", 0))
	assert.Equal(t, 100, Readability("Short words here.", 50))
}

func TestWordsJapanese(t *testing.T) {
	words := Words("私は猫が好きです。", "ja")
	assert.Equal(t, []string{"私", "は", "猫", "が", "好き", "です"}, words)
	assert.Len(t, Words("one two  three", "en"), 3)
}
