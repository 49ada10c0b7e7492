package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type ContentKind string

const (
	KindPage    ContentKind = "page"
	KindPost    ContentKind = "post"
	KindProduct ContentKind = "product"
)

// Valid reports whether k names a content collection.
func (k ContentKind) Valid() bool {
	return k == KindPage || k == KindPost || k == KindProduct
}

type ContentStatus string

const (
	StatusDraft        ContentStatus = "draft"
	StatusInReview     ContentStatus = "in-review"
	StatusNeedsChanges ContentStatus = "needs-changes"
	StatusApproved     ContentStatus = "approved"
	StatusPublished    ContentStatus = "published"
	StatusScheduled    ContentStatus = "scheduled"
	StatusArchived     ContentStatus = "archived"
)

type ContentMeta struct {
	Title        string `json:"title,omitempty"`
	Description  string `json:"description,omitempty"`
	FocusKeyword string `json:"focusKeyword,omitempty"`
}

type AIImprovement struct {
	Enabled bool   `json:"enabled"`
	Type    string `json:"type,omitempty"`
}

type Translation struct {
	Enabled   bool     `json:"enabled"`
	Languages []string `json:"languages,omitempty"`
}

// ContentItem is a page, post or product.
type ContentItem struct {
	ID            string        `json:"_id,omitempty"`
	Kind          ContentKind   `json:"kind"`
	Title         string        `json:"title"`
	Slug          string        `json:"slug"`
	Status        ContentStatus `json:"status"`
	PublishDate   *time.Time    `json:"publishDate,omitempty"`
	PublishedAt   *time.Time    `json:"publishedAt,omitempty"`
	Layout        Layout        `json:"layout,omitempty"`
	Content       string        `json:"content,omitempty"`
	Meta          ContentMeta   `json:"meta"`
	Language      string        `json:"language,omitempty"`
	AIImprovement AIImprovement `json:"aiImprovement"`
	Translation   Translation   `json:"translation"`
	OriginalID    string        `json:"originalId,omitempty"`
	Author        string        `json:"author,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

type BlockType string

const (
	BlockHero        BlockType = "hero"
	BlockFeatures    BlockType = "features"
	BlockSocialProof BlockType = "socialProof"
	BlockContent     BlockType = "content"
)

// Block is one layout section. The concrete types are HeroBlock,
// FeaturesBlock, SocialProofBlock and ContentBlock.
type Block interface {
	BlockType() BlockType
}

type CTA struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

type HeroBlock struct {
	Heading         string `json:"heading"`
	HighlightText   string `json:"highlightText,omitempty"`
	Subheading      string `json:"subheading,omitempty"`
	Description     string `json:"description,omitempty"`
	PrimaryCTA      *CTA   `json:"primaryCta,omitempty"`
	SecondaryCTA    *CTA   `json:"secondaryCta,omitempty"`
	Disclaimer      string `json:"disclaimer,omitempty"`
	HeroImage       string `json:"heroImage,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
}

type Feature struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
	Highlight   bool   `json:"highlight,omitempty"`
}

type FeaturesBlock struct {
	Title           string    `json:"title,omitempty"`
	Subtitle        string    `json:"subtitle,omitempty"`
	Features        []Feature `json:"features"`
	Layout          string    `json:"layout,omitempty"`
	BackgroundColor string    `json:"backgroundColor,omitempty"`
}

type CompanyLogo struct {
	Name string `json:"name"`
	Logo string `json:"logo,omitempty"`
	URL  string `json:"url,omitempty"`
}

type SocialProofBlock struct {
	Title           string        `json:"title,omitempty"`
	Companies       []CompanyLogo `json:"companies"`
	BackgroundColor string        `json:"backgroundColor,omitempty"`
}

// ContentBlock is a rich-text section holding HTML.
type ContentBlock struct {
	Content string `json:"content"`
}

func (HeroBlock) BlockType() BlockType        { return BlockHero }
func (FeaturesBlock) BlockType() BlockType    { return BlockFeatures }
func (SocialProofBlock) BlockType() BlockType { return BlockSocialProof }
func (ContentBlock) BlockType() BlockType     { return BlockContent }

// Layout is an ordered list of blocks. On the wire each block is an object
// carrying its kind in "blockType".
type Layout []Block

func (l Layout) MarshalJSON() ([]byte, error) {
	out := make([]json.RawMessage, 0, len(l))
	for _, b := range l {
		raw, err := json.Marshal(b)
		if err != nil {
			return nil, err
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, err
		}
		fields["blockType"], _ = json.Marshal(b.BlockType())
		raw, err = json.Marshal(fields)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return json.Marshal(out)
}

func (l *Layout) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	blocks := make(Layout, 0, len(raws))
	for i, raw := range raws {
		var head struct {
			BlockType BlockType `json:"blockType"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			return fmt.Errorf("layout block %d: %w", i, err)
		}
		var b Block
		switch head.BlockType {
		case BlockHero:
			var v HeroBlock
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("layout block %d: %w", i, err)
			}
			b = v
		case BlockFeatures:
			var v FeaturesBlock
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("layout block %d: %w", i, err)
			}
			b = v
		case BlockSocialProof:
			var v SocialProofBlock
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("layout block %d: %w", i, err)
			}
			b = v
		case BlockContent:
			var v ContentBlock
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("layout block %d: %w", i, err)
			}
			b = v
		default:
			return fmt.Errorf("layout block %d: unknown blockType %q", i, head.BlockType)
		}
		blocks = append(blocks, b)
	}
	*l = blocks
	return nil
}
