package analytics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/parisxmas/oxisite/internal/db"
	"github.com/parisxmas/oxisite/internal/models"
	"github.com/parisxmas/oxisite/internal/oxidb/oxidbtest"
	"github.com/parisxmas/oxisite/internal/repository"
)

func TestRate(t *testing.T) {
	assert.Equal(t, 0.0, Rate(5, 0))
	assert.Equal(t, 0.25, Rate(1, 4))
}

// exercise runs the same scenario against any backend.
func exercise(t *testing.T, c Counter, formID string) {
	t.Helper()
	ctx := context.Background()
	at := time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)

	a, err := c.RecordSubmission(ctx, formID, at)
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.Submissions)
	assert.Equal(t, 0.0, a.ConversionRate)
	require.NotNil(t, a.LastSubmission)
	assert.True(t, at.Equal(*a.LastSubmission))

	for i := 0; i < 4; i++ {
		a, err = c.RecordView(ctx, formID)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(4), a.Views)
	assert.Equal(t, 0.25, a.ConversionRate)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.RecordSubmission(ctx, formID, at)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	a, err = c.Get(ctx, formID)
	require.NoError(t, err)
	assert.Equal(t, int64(11), a.Submissions)
	assert.Equal(t, int64(4), a.Views)
	assert.InDelta(t, 2.75, a.ConversionRate, 1e-9)
}

func TestMemory(t *testing.T) {
	exercise(t, NewMemory(), "f1")
}

func TestOxiDB(t *testing.T) {
	srv := oxidbtest.NewServer(t)
	pool, err := db.NewPool(context.Background(), db.Options{Host: srv.Host(), Port: srv.Port(), Size: 2, TxSize: 1}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	forms := repository.NewFormRepo(pool, 5)
	id, err := forms.Create(context.Background(), &models.Form{Name: "Contact", Slug: "contact"})
	require.NoError(t, err)

	exercise(t, NewOxiDB(forms), id)

	_, err = NewOxiDB(forms).Get(context.Background(), "404")
	assert.Error(t, err)
}

func TestRedis(t *testing.T) {
	client := NewRedisClient("localhost:6379", "", 0)
	t.Cleanup(func() { client.Close() })
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("redis not available")
	}
	formID := "test-" + uuid.NewString()
	t.Cleanup(func() { client.Del(ctx, "oxisite:form:"+formID) })

	exercise(t, NewRedis(client), formID)
}
