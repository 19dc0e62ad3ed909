package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type summary struct {
	ID   int64  `json:"id,string"`
	Name string `json:"name"`
}

func setupRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = Close() })
	return mr
}

func TestAside_FetchesOnceThenHits(t *testing.T) {
	mr := setupRedis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *summary) func() error {
		return func() error {
			calls++
			*dest = summary{ID: 42, Name: "Ada"}
			return nil
		}
	}

	var first summary
	require.NoError(t, Aside(ctx, UserSummaryKey(42), &first, UserSummaryTTL, fetch(&first)))
	var second summary
	require.NoError(t, Aside(ctx, UserSummaryKey(42), &second, UserSummaryTTL, fetch(&second)))

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
	assert.True(t, mr.Exists("user:summary:42"))

	mr.FastForward(UserSummaryTTL + time.Second)
	assert.False(t, mr.Exists("user:summary:42"))
}

func TestAside_PropagatesFetchError(t *testing.T) {
	setupRedis(t)
	var dest summary
	err := Aside(context.Background(), "k", &dest, time.Minute, func() error { return errors.New("boom") })
	assert.EqualError(t, err, "boom")
}

func TestAside_WithoutClientFallsThrough(t *testing.T) {
	SetClient(nil)
	var dest summary
	calls := 0
	require.NoError(t, Aside(context.Background(), "k", &dest, time.Minute, func() error {
		calls++
		return nil
	}))
	assert.Equal(t, 1, calls)
}

func TestMGetJSON_ReturnsHitsByIndex(t *testing.T) {
	mr := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, SetManyJSON(ctx, map[string]summary{
		UserSummaryKey(1): {ID: 1, Name: "one"},
		UserSummaryKey(3): {ID: 3, Name: "three"},
	}, time.Minute))
	require.NoError(t, mr.Set(UserSummaryKey(4), "not-json"))

	hits, err := MGetJSON[summary](ctx, []string{UserSummaryKey(1), UserSummaryKey(2), UserSummaryKey(3), UserSummaryKey(4)})
	require.NoError(t, err)
	assert.Len(t, hits, 2)
	assert.Equal(t, "one", hits[0].Name)
	assert.Equal(t, "three", hits[2].Name)
}

func TestInvalidateUser_RemovesSummaryAndRecord(t *testing.T) {
	mr := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, UserSummaryKey(9), summary{ID: 9}, time.Minute))
	require.NoError(t, SetJSON(ctx, UserByUsernameKey("nine"), summary{ID: 9}, time.Minute))

	InvalidateUser(ctx, 9, "nine")

	assert.False(t, mr.Exists(UserSummaryKey(9)))
	assert.False(t, mr.Exists(UserByUsernameKey("nine")))
}
