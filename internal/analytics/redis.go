package analytics

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/parisxmas/oxisite/internal/models"
)

// recordScript increments one counter field and returns the full state.
// KEYS[1] = form hash
// ARGV[1] = field to increment ("submissions" or "views")
// ARGV[2] = last submission unix millis, or "" to leave it
var recordScript = redis.NewScript(`
local key = KEYS[1]
redis.call("HINCRBY", key, ARGV[1], 1)
if ARGV[2] ~= "" then
    redis.call("HSET", key, "last_submission", ARGV[2])
end
local state = redis.call("HMGET", key, "submissions", "views", "last_submission")
return {tonumber(state[1]) or 0, tonumber(state[2]) or 0, state[3] or ""}
`)

// Redis keeps counters in one hash per form.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client, prefix: "oxisite:form:"}
}

// NewRedisClient dials a single Redis node.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func (r *Redis) key(formID string) string { return r.prefix + formID }

func (r *Redis) RecordSubmission(ctx context.Context, formID string, at time.Time) (models.FormAnalytics, error) {
	return r.run(ctx, formID, "submissions", strconv.FormatInt(at.UnixMilli(), 10))
}

func (r *Redis) RecordView(ctx context.Context, formID string) (models.FormAnalytics, error) {
	return r.run(ctx, formID, "views", "")
}

func (r *Redis) run(ctx context.Context, formID, field, last string) (models.FormAnalytics, error) {
	res, err := recordScript.Run(ctx, r.client, []string{r.key(formID)}, field, last).Result()
	if err != nil {
		return models.FormAnalytics{}, fmt.Errorf("analytics: redis record: %w", err)
	}
	vals, ok := res.([]any)
	if !ok || len(vals) != 3 {
		return models.FormAnalytics{}, fmt.Errorf("analytics: unexpected script reply %T", res)
	}
	subs, _ := vals[0].(int64)
	views, _ := vals[1].(int64)
	lastStr, _ := vals[2].(string)
	return snapshot(subs, views, lastStr), nil
}

func (r *Redis) Get(ctx context.Context, formID string) (models.FormAnalytics, error) {
	vals, err := r.client.HMGet(ctx, r.key(formID), "submissions", "views", "last_submission").Result()
	if err != nil {
		return models.FormAnalytics{}, fmt.Errorf("analytics: redis get: %w", err)
	}
	subs, _ := strconv.ParseInt(asString(vals[0]), 10, 64)
	views, _ := strconv.ParseInt(asString(vals[1]), 10, 64)
	return snapshot(subs, views, asString(vals[2])), nil
}

func snapshot(subs, views int64, lastMillis string) models.FormAnalytics {
	a := models.FormAnalytics{
		Submissions:    subs,
		Views:          views,
		ConversionRate: Rate(subs, views),
	}
	if ms, err := strconv.ParseInt(lastMillis, 10, 64); err == nil {
		t := time.UnixMilli(ms).UTC()
		a.LastSubmission = &t
	}
	return a
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
