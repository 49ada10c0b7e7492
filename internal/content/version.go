// Package content holds the editorial rules around pages, posts and
// products: version numbering and field diffs, workflow permissions,
// scheduled publishing, translation copies and text extraction.
//
// Everything here is pure; service.ContentService runs the stages in order
// against the repositories.
package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/gowebpki/jcs"

	"github.com/parisxmas/oxisite/internal/models"
	"github.com/parisxmas/oxisite/internal/seo"
)

// FirstVersion is the number given to the first snapshot of an item.
const FirstVersion = "1.0"

// skipFields never produce a change entry.
var skipFields = map[string]bool{"_id": true, "createdAt": true, "updatedAt": true}

// NextVersion returns the highest of existing with its minor part bumped.
// Numbers that do not parse are ignored.
func NextVersion(existing []string) string {
	raw := latest(existing)
	if raw == "" {
		return FirstVersion
	}
	v := semver.MustParse(raw)
	return fmt.Sprintf("%d.%d", v.Major(), v.Minor()+1)
}

// Diff compares two items field by field. Values are compared as RFC 8785
// canonical JSON so key order and number formatting never count as a
// change. Changes come back sorted by field name.
func Diff(prev, next *models.ContentItem) ([]models.FieldChange, error) {
	before, err := fields(prev)
	if err != nil {
		return nil, err
	}
	after, err := fields(next)
	if err != nil {
		return nil, err
	}

	var changes []models.FieldChange
	for name, nv := range after {
		if skipFields[name] {
			continue
		}
		ov, had := before[name]
		if !had {
			changes = append(changes, models.FieldChange{
				Field:      name,
				ChangeType: models.ChangeAdded,
				NewValue:   display(nv),
			})
			continue
		}
		if !bytes.Equal(ov, nv) {
			changes = append(changes, models.FieldChange{
				Field:      name,
				ChangeType: models.ChangeModified,
				OldValue:   display(ov),
				NewValue:   display(nv),
			})
		}
	}
	for name, ov := range before {
		if skipFields[name] {
			continue
		}
		if _, ok := after[name]; !ok {
			changes = append(changes, models.FieldChange{
				Field:      name,
				ChangeType: models.ChangeDeleted,
				OldValue:   display(ov),
			})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Field < changes[j].Field })
	return changes, nil
}

// fields splits an item into canonical JSON per top-level field. The item
// is canonicalized as a whole; every member of a canonical object is
// canonical itself.
func fields(item *models.ContentItem) (map[string][]byte, error) {
	out := map[string][]byte{}
	if item == nil {
		return out, nil
	}
	raw, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("content: marshal item: %w", err)
	}
	canon, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("content: canonicalize item: %w", err)
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(canon, &top); err != nil {
		return nil, fmt.Errorf("content: split item: %w", err)
	}
	for k, v := range top {
		out[k] = v
	}
	return out, nil
}

// display renders a canonical value for a change entry: strings bare,
// everything else as JSON.
func display(v []byte) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	if string(v) == "null" {
		return ""
	}
	return string(v)
}

// ChangeLog summarises a change set.
func ChangeLog(changes []models.FieldChange) string {
	return fmt.Sprintf("Updated %d field(s)", len(changes))
}

// Metrics counts words, characters, images and links across the item's
// body and layout.
func Metrics(item *models.ContentItem) models.VersionMetrics {
	ex := seo.ExtractHTML(HTML(item), "")
	text := strings.TrimSpace(ex.Text)
	return models.VersionMetrics{
		WordCount:      len(strings.Fields(text)),
		CharacterCount: len([]rune(text)),
		ImageCount:     len(ex.Images),
		LinkCount:      len(ex.Links),
	}
}

// NewVersion builds the snapshot recorded after next was saved over prev.
// versions are the numbers already stored for the item.
func NewVersion(prev, next *models.ContentItem, versions []string, author string, now time.Time) (*models.ContentVersion, error) {
	changes, err := Diff(prev, next)
	if err != nil {
		return nil, err
	}
	number := NextVersion(versions)
	v := &models.ContentVersion{
		Title:            fmt.Sprintf("%s - v%s", next.Title, number),
		ContentType:      next.Kind,
		ContentID:        next.ID,
		Version:          number,
		VersionType:      models.VersionMinor,
		Author:           author,
		Snapshot:         *next,
		Changes:          changes,
		ChangeLog:        ChangeLog(changes),
		Status:           next.Status,
		IsCurrentVersion: true,
		Metrics:          Metrics(next),
		CreatedAt:        now,
	}
	if len(versions) > 0 {
		v.ParentVersion = latest(versions)
	}
	if v.Status == "" {
		v.Status = models.StatusDraft
	}
	return v, nil
}

// latest returns the highest parsable number in versions, or "".
func latest(versions []string) string {
	var best *semver.Version
	var raw string
	for _, s := range versions {
		v, err := semver.NewVersion(s)
		if err != nil {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best, raw = v, s
		}
	}
	return raw
}

// Restore returns the snapshot of v prepared to be saved over current.
// Identity and creation time stay those of current.
func Restore(v *models.ContentVersion, current *models.ContentItem, now time.Time) *models.ContentItem {
	item := v.Snapshot
	item.ID = current.ID
	item.Kind = current.Kind
	item.CreatedAt = current.CreatedAt
	item.UpdatedAt = now
	return &item
}
