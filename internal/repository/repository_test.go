package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/parisxmas/oxisite/internal/db"
	"github.com/parisxmas/oxisite/internal/lead"
	"github.com/parisxmas/oxisite/internal/models"
	"github.com/parisxmas/oxisite/internal/oxidb/oxidbtest"
)

func newPool(t *testing.T) (*db.Pool, *oxidbtest.Server) {
	t.Helper()
	srv := oxidbtest.NewServer(t)
	p, err := db.NewPool(context.Background(), db.Options{Host: srv.Host(), Port: srv.Port(), Size: 2, TxSize: 1}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p, srv
}

func TestFormRepo(t *testing.T) {
	p, _ := newPool(t)
	ctx := context.Background()
	r := NewFormRepo(p, 3)
	require.NoError(t, r.EnsureIndexes(ctx))

	id, err := r.Create(ctx, &models.Form{Name: "Contact", Slug: "contact", Status: models.FormActive})
	require.NoError(t, err)

	f, err := r.FindByIDOrSlug(ctx, "contact")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, id, f.ID)

	f, err = r.FindByIDOrSlug(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Contact", f.Name)

	_, err = r.Create(ctx, &models.Form{Name: "Dup", Slug: "contact"})
	assert.Error(t, err)

	missing, err := r.FindByID(ctx, "999")
	require.NoError(t, err)
	assert.Nil(t, missing)

	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestFormRepoUpdateKeepsAnalytics(t *testing.T) {
	p, _ := newPool(t)
	ctx := context.Background()
	r := NewFormRepo(p, 3)

	id, err := r.Create(ctx, &models.Form{Name: "Contact", Slug: "contact"})
	require.NoError(t, err)

	_, err = r.UpdateAnalytics(ctx, id, func(a *models.FormAnalytics) { a.Views += 4 })
	require.NoError(t, err)

	require.NoError(t, r.Update(ctx, id, &models.Form{Name: "Contact us", Slug: "contact"}))
	f, err := r.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Contact us", f.Name)
	assert.Equal(t, int64(4), f.Analytics.Views)
}

func TestFormRepoUpdateAnalyticsConcurrent(t *testing.T) {
	p, _ := newPool(t)
	ctx := context.Background()
	r := NewFormRepo(p, 3)
	id, err := r.Create(ctx, &models.Form{Name: "Contact", Slug: "contact"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.UpdateAnalytics(ctx, id, func(a *models.FormAnalytics) { a.Submissions++ })
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	f, err := r.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(20), f.Analytics.Submissions)

	_, err = r.UpdateAnalytics(ctx, "404", func(*models.FormAnalytics) {})
	assert.Error(t, err)
}

func TestSubmissionRepoPaging(t *testing.T) {
	p, _ := newPool(t)
	ctx := context.Background()
	r := NewSubmissionRepo(p)
	require.NoError(t, r.EnsureIndexes(ctx))

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := r.Create(ctx, &models.Submission{
			FormID:    "1",
			Reference: string(rune('a' + i)),
			Data:      map[string]any{"email": "x@y.com"},
			Status:    models.SubmissionProcessed,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}
	_, err := r.Create(ctx, &models.Submission{FormID: "2", Reference: "z", Status: models.SubmissionSpam, CreatedAt: base})
	require.NoError(t, err)

	subs, total, err := r.FindByFormID(ctx, "1", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, subs, 2)
	assert.Equal(t, "d", subs[0].Reference)
	assert.Equal(t, "c", subs[1].Reference)

	n, err := r.Count(ctx, models.SubmissionSpam)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	found, err := r.TextSearch(ctx, "x@y.com", 10)
	require.NoError(t, err)
	assert.Len(t, found, 5)
}

func TestLeadRepoUpsertMerges(t *testing.T) {
	p, _ := newPool(t)
	ctx := context.Background()
	r := NewLeadRepo(p, 3)
	require.NoError(t, r.EnsureIndexes(ctx))

	first, err := r.Upsert(ctx, &models.Lead{Email: " Ann@Example.com", Name: "Ann", Scoring: models.LeadScoringState{Score: 30}}, "Contact")
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", first.Email)
	assert.Equal(t, models.LeadNew, first.Status)
	require.NotEmpty(t, first.ID)

	second, err := r.Upsert(ctx, &models.Lead{Email: "ann@example.com", Phone: "555", Scoring: models.LeadScoringState{Score: 60}}, "Demo")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	got, err := r.FindByEmail(ctx, "ANN@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.Name)
	assert.Equal(t, "555", got.Phone)
	assert.Equal(t, 60, got.Scoring.Score)
	require.Len(t, got.Scoring.History, 2)
	assert.Equal(t, 30, got.Scoring.History[1].PreviousScore)

	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLeadRepoConcurrentUpserts(t *testing.T) {
	p, _ := newPool(t)
	ctx := context.Background()
	r := NewLeadRepo(p, 3)
	require.NoError(t, r.EnsureIndexes(ctx))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Upsert(ctx, &models.Lead{Email: "same@example.com", Scoring: models.LeadScoringState{Score: 10}}, "Contact")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	leads, total, err := r.List(ctx, lead.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, leads, 1)
	assert.Len(t, leads[0].Scoring.History, 8)
}

func TestLeadRepoUpdate(t *testing.T) {
	p, _ := newPool(t)
	ctx := context.Background()
	r := NewLeadRepo(p, 3)

	l, err := r.Upsert(ctx, &models.Lead{Email: "bo@example.com"}, "Contact")
	require.NoError(t, err)

	status := models.LeadContacted
	updated, err := r.Update(ctx, l.ID, lead.Patch{Status: &status, Tags: []string{"vip", "vip"}, Note: "called"})
	require.NoError(t, err)
	assert.Equal(t, models.LeadContacted, updated.Status)
	assert.Equal(t, []string{"vip"}, updated.Tags)

	_, err = r.Update(ctx, "404", lead.Patch{})
	assert.ErrorIs(t, err, lead.ErrNotFound)
	_, err = r.FindByID(ctx, "404")
	assert.ErrorIs(t, err, lead.ErrNotFound)

	_, err = r.Upsert(ctx, &models.Lead{}, "Contact")
	assert.Error(t, err)
}

func TestContentRepoDueScheduled(t *testing.T) {
	p, _ := newPool(t)
	ctx := context.Background()
	r := NewContentRepo(p)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	past, future := now.Add(-time.Minute), now.Add(time.Hour)

	for _, item := range []models.ContentItem{
		{Kind: models.KindPost, Title: "Due", Slug: "due", Status: models.StatusScheduled, PublishDate: &past},
		{Kind: models.KindPost, Title: "Later", Slug: "later", Status: models.StatusScheduled, PublishDate: &future},
		{Kind: models.KindPost, Title: "Live", Slug: "live", Status: models.StatusPublished},
	} {
		item := item
		_, err := r.Create(ctx, &item)
		require.NoError(t, err)
	}

	due, err := r.DueScheduled(ctx, models.KindPost, now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "due", due[0].Slug)

	pub, err := r.Published(ctx, models.KindPost)
	require.NoError(t, err)
	require.Len(t, pub, 1)
	assert.Equal(t, "live", pub[0].Slug)

	pages, err := r.Published(ctx, models.KindPage)
	require.NoError(t, err)
	assert.Empty(t, pages)

	_, err = r.Create(ctx, &models.ContentItem{Kind: "banner"})
	assert.Error(t, err)
}

func TestSEORepoUpsertAndForKind(t *testing.T) {
	p, _ := newPool(t)
	ctx := context.Background()
	r := NewSEORepo(p, 3)

	rec, err := r.Upsert(ctx, &models.SEORecord{ContentType: models.KindPage, ContentID: "7", URL: "/a"})
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)

	again, err := r.Upsert(ctx, &models.SEORecord{ContentType: models.KindPage, ContentID: "7", URL: "/b"})
	require.NoError(t, err)
	assert.Equal(t, rec.ID, again.ID)

	_, err = r.Upsert(ctx, &models.SEORecord{ContentType: models.KindPost, ContentID: "7"})
	require.NoError(t, err)

	byID, err := r.ForKind(ctx, models.KindPage, []string{"7", "8"})
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, "/b", byID["7"].URL)
}

func TestVersionRepoSingleCurrent(t *testing.T) {
	p, _ := newPool(t)
	ctx := context.Background()
	r := NewVersionRepo(p, 3)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, v := range []string{"1.0", "1.1", "1.2"} {
		_, err := r.Append(ctx, &models.ContentVersion{
			ContentType: models.KindPage, ContentID: "3", Version: v,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
	_, err := r.Append(ctx, &models.ContentVersion{ContentType: models.KindPage, ContentID: "4", Version: "1.0", CreatedAt: base})
	require.NoError(t, err)

	versions, err := r.ListFor(ctx, models.KindPage, "3")
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, "1.2", versions[0].Version)
	current := 0
	for _, v := range versions {
		if v.IsCurrentVersion {
			current++
			assert.Equal(t, "1.2", v.Version)
		}
	}
	assert.Equal(t, 1, current)

	other, err := r.ListFor(ctx, models.KindPage, "4")
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.True(t, other[0].IsCurrentVersion)

	require.NoError(t, r.SetRollback(ctx, versions[2].ID, models.Rollback{Reason: "typo", RolledBackBy: "7"}))
	v, err := r.FindByID(ctx, versions[2].ID)
	require.NoError(t, err)
	assert.Equal(t, "typo", v.Rollback.Reason)
}

func TestVersionRepoAppendReturnsCommittedID(t *testing.T) {
	p, _ := newPool(t)
	ctx := context.Background()
	r := NewVersionRepo(p, 3)

	var ids []string
	for _, v := range []string{"1.0", "1.1"} {
		cv := &models.ContentVersion{ContentType: models.KindPost, ContentID: "5", Version: v, Title: "T " + v}
		id, err := r.Append(ctx, cv)
		require.NoError(t, err)
		require.NotEmpty(t, id)
		assert.Equal(t, id, cv.ID)
		ids = append(ids, id)
	}
	assert.NotEqual(t, ids[0], ids[1])

	got, err := r.FindByID(ctx, ids[0])
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "1.0", got.Version)
	assert.False(t, got.IsCurrentVersion)
}

func TestWorkflowRepoSync(t *testing.T) {
	p, _ := newPool(t)
	ctx := context.Background()
	r := NewWorkflowRepo(p, 3)

	w := &models.Workflow{ContentType: models.KindPost, ContentID: "9", Title: "A", Status: models.StatusDraft, Author: "1", IsActive: true}
	require.NoError(t, r.Sync(ctx, w))
	require.NotEmpty(t, w.ID)
	require.NoError(t, r.Sync(ctx, &models.Workflow{ContentType: models.KindPost, ContentID: "9", Title: "B", Status: models.StatusInReview, IsActive: true}))

	got, err := r.FindFor(ctx, models.KindPost, "9")
	require.NoError(t, err)
	assert.Equal(t, w.ID, got.ID)
	assert.Equal(t, "B", got.Title)
	assert.Equal(t, models.StatusInReview, got.Status)
	assert.Equal(t, "1", got.Author)
}

func TestAIContentRepo(t *testing.T) {
	p, _ := newPool(t)
	ctx := context.Background()
	r := NewAIContentRepo(p)

	id, err := r.Create(ctx, &models.AIContent{Title: "Draft", Type: models.AIBlogPost, GeneratedContent: "hi"})
	require.NoError(t, err)

	rec, err := r.FindByID(ctx, id)
	require.NoError(t, err)
	rec.Usage.RegenerationCount++
	require.NoError(t, r.Update(ctx, rec))

	list, total, err := r.List(ctx, models.AIBlogPost, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, list[0].Usage.RegenerationCount)
}
