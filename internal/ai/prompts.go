package ai

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// LanguageName returns the English name of a language code, or "English"
// when the code is unknown.
func LanguageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return "English"
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return "English"
}

// SystemPrompt renders the writer instructions for a generation request.
func SystemPrompt(r GenerationRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a professional content writer specializing in %s. ", strings.Replace(string(r.Type), "_", " ", 1))
	if r.Tone != "" {
		fmt.Fprintf(&b, "Write in a %s tone. ", r.Tone)
	}
	if r.TargetAudience != "" {
		fmt.Fprintf(&b, "Target audience: %s. ", r.TargetAudience)
	}
	if r.Language != "" && r.Language != "en" {
		fmt.Fprintf(&b, "Write in %s. ", LanguageName(r.Language))
	}
	if len(r.Keywords) > 0 {
		fmt.Fprintf(&b, "Include these keywords naturally: %s. ", strings.Join(r.Keywords, ", "))
	}
	if r.FocusKeyword != "" {
		fmt.Fprintf(&b, "Focus keyword for SEO: %q. Use it naturally throughout the content. ", r.FocusKeyword)
	}
	if r.WordCount > 0 {
		fmt.Fprintf(&b, "Target word count: approximately %d words. ", r.WordCount)
	}
	b.WriteString("Create high-quality, engaging, and original content. Use proper formatting with headings, paragraphs, and lists where appropriate.")
	if r.SystemPrompt != "" {
		fmt.Fprintf(&b, "\n\nAdditional instructions: %s", r.SystemPrompt)
	}
	return b.String()
}

// ImprovementType selects the rewrite instructions for Improve.
type ImprovementType string

const (
	ImproveSEO         ImprovementType = "seo"
	ImproveReadability ImprovementType = "readability"
	ImproveEngagement  ImprovementType = "engagement"
	ImproveGrammar     ImprovementType = "grammar"
)

func improvementPrompt(t ImprovementType, focusKeyword string) string {
	switch t {
	case ImproveSEO:
		focus := ""
		if focusKeyword != "" {
			focus = fmt.Sprintf("Focus on the keyword %q.", focusKeyword)
		}
		return "You are an SEO expert. Improve the provided content for better search engine optimization. " +
			focus + " Maintain the original meaning and structure while optimizing for SEO."
	case ImproveReadability:
		return "You are a content editor focused on readability. Improve the provided content to make it more readable and accessible. Use shorter sentences, simpler words where appropriate, and better paragraph structure."
	case ImproveEngagement:
		return "You are a content strategist focused on engagement. Improve the provided content to make it more engaging and compelling. Add hooks, improve flow, and make it more interesting to read."
	case ImproveGrammar:
		return "You are a professional editor. Improve the grammar, spelling, and overall writing quality of the provided content. Maintain the original tone and meaning."
	}
	return "Improve the provided content for better quality and effectiveness."
}

func translationPrompt(lang string, preserveFormatting bool) string {
	mode := "Focus on natural, fluent translation."
	if preserveFormatting {
		mode = "Preserve all HTML formatting, links, and structure."
	}
	return fmt.Sprintf("You are a professional translator. Translate the following content to %s. %s Maintain the original tone and style.", lang, mode)
}

func metadataPrompts(content, focusKeyword, lang string) (system, user string) {
	langNote := ""
	if lang != "" {
		langNote = fmt.Sprintf("Language: %s.", LanguageName(lang))
	}
	system = fmt.Sprintf("You are an SEO expert. Generate optimized meta title and description for the provided content. Focus keyword: %q. %s Return response in JSON format.", focusKeyword, langNote)
	user = fmt.Sprintf(`
Content: %s...
Focus Keyword: %s

Generate SEO metadata in this JSON format:
{
  "metaTitle": "SEO-optimized title (50-60 characters)",
  "metaDescription": "SEO-optimized description (150-160 characters)",
  "suggestions": [
    {
      "type": "meta",
      "suggestion": "Specific suggestion",
      "priority": "high|medium|low"
    }
  ]
}
`, truncate(content, 1000), focusKeyword)
	return system, user
}

func suggestionPrompts(content, focusKeyword, title, description string) (system, user string) {
	if title == "" {
		title = "Not provided"
	}
	if description == "" {
		description = "Not provided"
	}
	system = fmt.Sprintf("You are an SEO expert. Analyze the provided content and generate specific, actionable SEO improvement suggestions. Focus on the keyword %q. Return suggestions in JSON format with type, suggestion, and priority (high/medium/low).", focusKeyword)
	user = fmt.Sprintf(`
Content: %s
Focus Keyword: %s
Current Title: %s
Current Description: %s

Provide SEO suggestions in this JSON format:
[
  {
    "type": "keyword|readability|structure|meta",
    "suggestion": "Specific actionable suggestion",
    "priority": "high|medium|low"
  }
]
`, content, focusKeyword, title, description)
	return system, user
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
