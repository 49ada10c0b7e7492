package sqlstore

import (
	"context"
	"regexp"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parisxmas/oxisite/internal/lead"
	"github.com/parisxmas/oxisite/internal/models"
)

func TestRebind(t *testing.T) {
	assert.Equal(t, "a = $1 AND b = $2", Postgres.rebind("a = ? AND b = ?"))
	assert.Equal(t, "a = ?", SQLite.rebind("a = ?"))

	_, err := DialectFor("mysql")
	assert.Error(t, err)
}

func openSQLite(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), SQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteUpsertMerges(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()

	first, err := s.Upsert(ctx, &models.Lead{Email: "Ann@Example.com", Name: "Ann", Scoring: models.LeadScoringState{Score: 20}}, "Contact")
	require.NoError(t, err)
	assert.Equal(t, "1", first.ID)

	second, err := s.Upsert(ctx, &models.Lead{Email: "ann@example.com", JobTitle: "CTO", Scoring: models.LeadScoringState{Score: 70, Grade: "hot"}}, "Demo")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	got, err := s.FindByEmail(ctx, " ANN@example.com ")
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.Name)
	assert.Equal(t, "CTO", got.JobTitle)
	assert.Equal(t, 70, got.Scoring.Score)
	assert.Len(t, got.Scoring.History, 2)
	assert.Len(t, got.Activities, 2)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteConcurrentUpserts(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Upsert(ctx, &models.Lead{Email: "same@example.com"}, "Contact")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	leads, total, err := s.List(ctx, lead.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, leads, 1)
	assert.Len(t, leads[0].Scoring.History, 6)
}

func TestSQLiteListAndUpdate(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()
	for _, e := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		_, err := s.Upsert(ctx, &models.Lead{Email: e}, "Contact")
		require.NoError(t, err)
	}

	status := models.LeadQualified
	l, err := s.Update(ctx, "2", lead.Patch{Status: &status, Note: "good fit"})
	require.NoError(t, err)
	assert.Equal(t, models.LeadQualified, l.Status)
	require.Len(t, l.Activities, 2)
	assert.Equal(t, "good fit", l.Activities[1].Subject)

	qualified, total, err := s.List(ctx, lead.ListOptions{Status: models.LeadQualified})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "b@x.com", qualified[0].Email)

	page, total, err := s.List(ctx, lead.ListOptions{Skip: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 1)
	assert.Equal(t, "b@x.com", page[0].Email)

	_, err = s.FindByID(ctx, "99")
	assert.ErrorIs(t, err, lead.ErrNotFound)
	_, err = s.Update(ctx, "nope", lead.Patch{})
	assert.ErrorIs(t, err, lead.ErrNotFound)
	_, err = s.Upsert(ctx, &models.Lead{}, "Contact")
	assert.Error(t, err)
}

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, Postgres), mock
}

const (
	selectForUpdate = "SELECT id, doc FROM leads WHERE email = $1 FOR UPDATE"
	insertLead      = "INSERT INTO leads (email, status, score, doc) VALUES ($1, $2, $3, $4) ON CONFLICT (email) DO NOTHING RETURNING id"
	updateLead      = "UPDATE leads SET status = $1, score = $2, doc = $3 WHERE id = $4"
)

func TestPostgresUpsertInserts(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectForUpdate)).
		WithArgs("ann@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "doc"}))
	mock.ExpectQuery(regexp.QuoteMeta(insertLead)).
		WithArgs("ann@example.com", "new", int64(40), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectCommit()

	l, err := s.Upsert(context.Background(), &models.Lead{Email: "ann@example.com", Scoring: models.LeadScoringState{Score: 40}}, "Contact")
	require.NoError(t, err)
	assert.Equal(t, "7", l.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertRetriesLostInsert(t *testing.T) {
	s, mock := newMock(t)
	stored := `{"email":"ann@example.com","status":"contacted","scoring":{"score":10,"grade":"cold","qualification":{},"scoringHistory":[{"date":"2026-01-01T00:00:00Z","previousScore":0,"newScore":10,"reason":"x","action":"created"}]},"company":{},"source":{"type":"website"},"createdAt":"2026-01-01T00:00:00Z","updatedAt":"2026-01-01T00:00:00Z"}`

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectForUpdate)).
		WithArgs("ann@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "doc"}))
	mock.ExpectQuery(regexp.QuoteMeta(insertLead)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectForUpdate)).
		WithArgs("ann@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "doc"}).AddRow(int64(3), stored))
	mock.ExpectExec(regexp.QuoteMeta(updateLead)).
		WithArgs("contacted", int64(55), sqlmock.AnyArg(), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	l, err := s.Upsert(context.Background(), &models.Lead{Email: "ann@example.com", Scoring: models.LeadScoringState{Score: 55}}, "Demo")
	require.NoError(t, err)
	assert.Equal(t, "3", l.ID)
	assert.Equal(t, models.LeadContacted, l.Status)
	assert.Len(t, l.Scoring.History, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}
