// Package seo scores page content against on-page SEO heuristics.
//
// Analyze runs a fixed set of independent checks. Each emits zero or more
// issues, and the score is 100 minus a per-severity penalty for every issue.
package seo

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/parisxmas/oxisite/internal/models"
)

const (
	TitleMin       = 50
	TitleMax       = 60
	DescriptionMin = 150
	DescriptionMax = 160
	MinWords       = 300
	MaxParagraph   = 150
	DensityMin     = 0.5
	DensityMax     = 3.0
	MaxURLLength   = 100
	MaxURLParts    = 6
)

// Penalty is the score deduction per issue of a severity.
var Penalty = map[models.Severity]int{
	models.SeverityError:   15,
	models.SeverityWarning: 8,
	models.SeverityInfo:    3,
}

type Image struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}

type Link struct {
	Href       string `json:"href"`
	Text       string `json:"text"`
	IsInternal bool   `json:"isInternal"`
}

// ContentData is the input of Analyze. Content may be HTML.
type ContentData struct {
	Title           string  `json:"title"`
	Content         string  `json:"content"`
	MetaTitle       string  `json:"metaTitle,omitempty"`
	MetaDescription string  `json:"metaDescription,omitempty"`
	FocusKeyword    string  `json:"focusKeyword,omitempty"`
	URL             string  `json:"url,omitempty"`
	Images          []Image `json:"images,omitempty"`
	Links           []Link  `json:"links,omitempty"`
	Language        string  `json:"language,omitempty"`
	// Outline, when set, replaces heading detection on Content.
	Outline *Outline `json:"outline,omitempty"`
}

// Outline counts the headings of a document.
type Outline struct {
	Headings int `json:"headings"`
	H1       int `json:"h1"`
}

type Result struct {
	Score            int               `json:"score"`
	RawScore         int               `json:"rawScore"`
	ReadabilityScore int               `json:"readabilityScore"`
	Issues           []models.SEOIssue `json:"issues"`
	Recommendations  []string          `json:"recommendations"`
}

var (
	headingRe   = regexp.MustCompile(`(?i)<h[1-6][^>]*>`)
	h1Re        = regexp.MustCompile(`(?i)<h1[^>]*>`)
	paragraphRe = regexp.MustCompile(`(?i)</p>|<br\s*/?>|\n\s*\n`)
)

type analysis struct {
	data    ContentData
	keyword string
	issues  []models.SEOIssue
}

func (a *analysis) add(sev models.Severity, cat models.IssueCategory, msg, suggestion string) {
	a.issues = append(a.issues, models.SEOIssue{Severity: sev, Category: cat, Message: msg, Suggestion: suggestion})
}

// Analyze scores data. It never fails; missing inputs become issues.
func Analyze(data ContentData) Result {
	a := &analysis{data: data, keyword: strings.ToLower(strings.TrimSpace(data.FocusKeyword))}
	plain := PlainText(data.Content)

	a.checkTitle()
	a.checkDescription()
	a.checkContent(plain)
	a.checkKeywords(plain)
	a.checkImages()
	a.checkLinks()
	a.checkURL()

	raw := 100 - PenaltyOf(a.issues)
	res := Result{
		Score:            clamp(raw),
		RawScore:         raw,
		ReadabilityScore: Readability(plain, a.outline().Headings),
		Issues:           a.issues,
		Recommendations:  make([]string, 0, len(a.issues)),
	}
	if res.Issues == nil {
		res.Issues = []models.SEOIssue{}
	}
	for _, is := range a.issues {
		if is.Suggestion != "" {
			res.Recommendations = append(res.Recommendations, is.Suggestion)
		}
	}
	return res
}

// PenaltyOf sums the severity penalties of issues.
func PenaltyOf(issues []models.SEOIssue) int {
	total := 0
	for _, is := range issues {
		total += Penalty[is.Severity]
	}
	return total
}

func (a *analysis) checkTitle() {
	title := a.data.MetaTitle
	if title == "" {
		title = a.data.Title
	}
	if strings.TrimSpace(title) == "" {
		a.add(models.SeverityError, models.CategoryTitle, "Missing title tag",
			"Add a descriptive title tag (50-60 characters)")
		return
	}
	n := utf8.RuneCountInString(title)
	if n < TitleMin {
		a.add(models.SeverityWarning, models.CategoryTitle, fmt.Sprintf("Title is too short (%d characters)", n),
			"Expand the title to 50-60 characters")
	} else if n > TitleMax {
		a.add(models.SeverityWarning, models.CategoryTitle, fmt.Sprintf("Title is too long (%d characters)", n),
			"Shorten the title to 60 characters or fewer so it is not truncated in search results")
	}
	if a.keyword != "" && !strings.Contains(strings.ToLower(title), a.keyword) {
		a.add(models.SeverityWarning, models.CategoryTitle, "Focus keyword not found in title",
			fmt.Sprintf("Include the focus keyword %q in the title", a.data.FocusKeyword))
	}
	counts := map[string]int{}
	for _, w := range strings.Fields(strings.ToLower(title)) {
		if utf8.RuneCountInString(w) > 3 {
			counts[w]++
		}
	}
	for _, c := range counts {
		if c > 2 {
			a.add(models.SeverityWarning, models.CategoryTitle, "Possible keyword stuffing in title",
				"Avoid repeating the same word in the title")
			break
		}
	}
}

func (a *analysis) checkDescription() {
	desc := a.data.MetaDescription
	if strings.TrimSpace(desc) == "" {
		a.add(models.SeverityError, models.CategoryDescription, "Missing meta description",
			"Add a meta description (150-160 characters)")
		return
	}
	n := utf8.RuneCountInString(desc)
	if n < DescriptionMin {
		a.add(models.SeverityWarning, models.CategoryDescription, fmt.Sprintf("Meta description is too short (%d characters)", n),
			"Expand the meta description to 150-160 characters")
	} else if n > DescriptionMax {
		a.add(models.SeverityWarning, models.CategoryDescription, fmt.Sprintf("Meta description is too long (%d characters)", n),
			"Shorten the meta description to 160 characters or fewer")
	}
	if a.keyword != "" && !strings.Contains(strings.ToLower(desc), a.keyword) {
		a.add(models.SeverityInfo, models.CategoryDescription, "Focus keyword not found in meta description",
			"Include the focus keyword in the meta description")
	}
}

func (a *analysis) checkContent(plain string) {
	if strings.TrimSpace(plain) == "" {
		a.add(models.SeverityError, models.CategoryContent, "No content found",
			"Add meaningful content to the page")
		return
	}
	if n := len(Words(plain, a.data.Language)); n < MinWords {
		a.add(models.SeverityWarning, models.CategoryContent, fmt.Sprintf("Content is too short (%d words)", n),
			"Aim for at least 300 words of content")
	}
	outline := a.outline()
	if outline.Headings == 0 {
		a.add(models.SeverityWarning, models.CategoryContent, "No headings found in content",
			"Use headings (H1-H6) to structure the content")
	}
	switch h1 := outline.H1; {
	case h1 == 0:
		a.add(models.SeverityWarning, models.CategoryContent, "No H1 heading found",
			"Add exactly one H1 heading")
	case h1 > 1:
		a.add(models.SeverityWarning, models.CategoryContent, fmt.Sprintf("Multiple H1 headings found (%d)", h1),
			"Use only one H1 heading per page")
	}
	for _, p := range paragraphRe.Split(a.data.Content, -1) {
		if len(Words(PlainText(p), a.data.Language)) > MaxParagraph {
			a.add(models.SeverityInfo, models.CategoryContent, "Some paragraphs are too long",
				"Break paragraphs longer than 150 words into shorter ones")
			break
		}
	}
}

func (a *analysis) outline() Outline {
	if a.data.Outline != nil {
		return *a.data.Outline
	}
	return Outline{
		Headings: len(headingRe.FindAllString(a.data.Content, -1)),
		H1:       len(h1Re.FindAllString(a.data.Content, -1)),
	}
}

func (a *analysis) checkKeywords(plain string) {
	if a.keyword == "" {
		a.add(models.SeverityInfo, models.CategoryKeywords, "No focus keyword set",
			"Set a focus keyword to optimize the content for")
		return
	}
	density := Density(plain, a.keyword, a.data.Language)
	if density < DensityMin {
		a.add(models.SeverityWarning, models.CategoryKeywords, fmt.Sprintf("Keyword density is too low (%.1f%%)", density),
			"Use the focus keyword more often (0.5-3% density)")
	} else if density > DensityMax {
		a.add(models.SeverityWarning, models.CategoryKeywords, fmt.Sprintf("Keyword density is too high (%.1f%%)", density),
			"Use the focus keyword less often to avoid over-optimization")
	}
	lead := []rune(strings.ToLower(plain))
	if len(lead) > 200 {
		lead = lead[:200]
	}
	if !strings.Contains(string(lead), a.keyword) {
		a.add(models.SeverityInfo, models.CategoryKeywords, "Focus keyword not found in first paragraph",
			"Use the focus keyword early in the content")
	}
}

// Density is the percentage of words that contain the keyword or are
// contained in it.
func Density(plain, keyword, lang string) float64 {
	words := Words(strings.ToLower(plain), lang)
	if len(words) == 0 || keyword == "" {
		return 0
	}
	kw := strings.ToLower(keyword)
	n := 0
	for _, w := range words {
		if strings.Contains(w, kw) || strings.Contains(kw, w) {
			n++
		}
	}
	return float64(n) / float64(len(words)) * 100
}

func (a *analysis) checkImages() {
	if len(a.data.Images) == 0 {
		a.add(models.SeverityInfo, models.CategoryImages, "No images found",
			"Add relevant images to support the content")
		return
	}
	missing, withKeyword := 0, false
	for _, img := range a.data.Images {
		alt := strings.TrimSpace(img.Alt)
		if alt == "" {
			missing++
		}
		if a.keyword != "" && strings.Contains(strings.ToLower(alt), a.keyword) {
			withKeyword = true
		}
	}
	if missing > 0 {
		a.add(models.SeverityError, models.CategoryImages, fmt.Sprintf("%d images missing alt text", missing),
			"Add descriptive alt text to every image")
	}
	if a.keyword != "" && !withKeyword {
		a.add(models.SeverityInfo, models.CategoryImages, "Focus keyword not found in image alt text",
			"Use the focus keyword in at least one image alt text")
	}
}

func (a *analysis) checkLinks() {
	if len(a.data.Links) == 0 {
		a.add(models.SeverityInfo, models.CategoryLinks, "No links found",
			"Add internal and external links")
		return
	}
	internal, external, empty := 0, 0, 0
	for _, l := range a.data.Links {
		if l.IsInternal {
			internal++
		} else {
			external++
		}
		if strings.TrimSpace(l.Text) == "" {
			empty++
		}
	}
	if internal == 0 {
		a.add(models.SeverityWarning, models.CategoryLinks, "No internal links found",
			"Link to other pages of the site")
	}
	if external == 0 {
		a.add(models.SeverityInfo, models.CategoryLinks, "No external links found",
			"Consider linking to authoritative external sources")
	}
	if empty > 0 {
		a.add(models.SeverityWarning, models.CategoryLinks, fmt.Sprintf("%d links have empty anchor text", empty),
			"Use descriptive anchor text for every link")
	}
}

func (a *analysis) checkURL() {
	u := a.data.URL
	if u == "" {
		a.add(models.SeverityInfo, models.CategoryTechnical, "No URL provided for analysis", "")
		return
	}
	if len(u) > MaxURLLength {
		a.add(models.SeverityWarning, models.CategoryTechnical, "URL is too long",
			"Keep URLs under 100 characters")
	}
	// the keyword must appear verbatim; a multi-word keyword never matches
	// its hyphenated slug
	if a.keyword != "" && !strings.Contains(strings.ToLower(u), a.keyword) {
		a.add(models.SeverityInfo, models.CategoryTechnical, "Focus keyword not found in URL",
			"Include the focus keyword in the URL slug")
	}
	if len(strings.Split(u, "/")) > MaxURLParts {
		a.add(models.SeverityInfo, models.CategoryTechnical, "URL structure is too deep",
			"Use a flatter URL structure")
	}
	if strings.Contains(u, "_") {
		a.add(models.SeverityInfo, models.CategoryTechnical, "URL contains underscores",
			"Use hyphens instead of underscores in URLs")
	}
}

func clamp(score int) int {
	return int(math.Max(0, math.Min(100, float64(score))))
}
