package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutRoundTrip(t *testing.T) {
	item := ContentItem{
		Kind:  KindPage,
		Title: "Pricing",
		Layout: Layout{
			HeroBlock{Heading: "Ship faster", PrimaryCTA: &CTA{Text: "Start", URL: "/signup"}},
			FeaturesBlock{Features: []Feature{{Title: "Fast"}}},
			SocialProofBlock{Companies: []CompanyLogo{{Name: "Acme"}}},
			ContentBlock{Content: "<p>Hello</p>"},
		},
	}
	raw, err := json.Marshal(item)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"blockType":"hero"`)
	assert.Contains(t, string(raw), `"blockType":"socialProof"`)

	var back ContentItem
	require.NoError(t, json.Unmarshal(raw, &back))
	require.Len(t, back.Layout, 4)
	hero, ok := back.Layout[0].(HeroBlock)
	require.True(t, ok)
	assert.Equal(t, "Ship faster", hero.Heading)
	assert.Equal(t, "/signup", hero.PrimaryCTA.URL)
	assert.Equal(t, BlockContent, back.Layout[3].BlockType())
}

func TestLayoutRejectsUnknownBlock(t *testing.T) {
	var l Layout
	err := json.Unmarshal([]byte(`[{"blockType":"carousel"}]`), &l)
	assert.ErrorContains(t, err, "unknown blockType")
}

func TestThresholdDefault(t *testing.T) {
	assert.Equal(t, 50, LeadScoring{}.Threshold())
	n := 70
	assert.Equal(t, 70, LeadScoring{QualificationThreshold: &n}.Threshold())
}

func TestInSitemap(t *testing.T) {
	no := false
	assert.True(t, TechnicalSEO{}.InSitemap())
	assert.False(t, TechnicalSEO{Sitemap: &no}.InSitemap())
}
