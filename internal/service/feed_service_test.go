package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"pulse/internal/idgen"
	"pulse/internal/models"
	"pulse/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postIDs(views []*models.PostView) []int64 {
	ids := make([]int64, len(views))
	for i, v := range views {
		ids[i] = v.ID
	}
	return ids
}

func TestFeedService_GetFeed_WorkedExample(t *testing.T) {
	env := newTestEnv(t)
	svc := env.feed(FeedOptions{})
	ctx := context.Background()

	v := testutil.CreateUser(t, env.db, "v")
	a := testutil.CreateUser(t, env.db, "a")
	b := testutil.CreateUser(t, env.db, "b")
	c := testutil.CreateUser(t, env.db, "c")
	testutil.Follow(t, env.db, v, a)
	testutil.Follow(t, env.db, v, b)

	base := time.Now().Add(-time.Hour)
	postA := testutil.CreatePost(t, env.db, a, "from a", base)
	postB := testutil.CreatePost(t, env.db, b, "from b", base.Add(time.Minute))
	testutil.CreatePost(t, env.db, c, "from c", base.Add(2*time.Minute))
	postV := testutil.CreatePost(t, env.db, v, "from v", base.Add(3*time.Minute))

	page, err := svc.GetFeed(ctx, FeedQuery{ViewerID: v.ID, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []int64{postV.ID, postB.ID}, postIDs(page.Posts))
	assert.True(t, page.HasMore)
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, idgen.Format(postB.ID), *page.NextCursor)

	assert.Equal(t, "v", page.Posts[0].Author.Username)
	assert.Equal(t, "b", page.Posts[1].Author.Username)

	page, err = svc.GetFeed(ctx, FeedQuery{ViewerID: v.ID, Limit: 2, Cursor: *page.NextCursor})
	require.NoError(t, err)
	assert.Equal(t, []int64{postA.ID}, postIDs(page.Posts))
	assert.False(t, page.HasMore)
	assert.Nil(t, page.NextCursor)
}

func TestFeedService_GetFeed_PaginationCoversEverything(t *testing.T) {
	env := newTestEnv(t)
	svc := env.feed(FeedOptions{})
	ctx := context.Background()

	viewer := testutil.CreateUser(t, env.db, "viewer")
	friend := testutil.CreateUser(t, env.db, "friend")
	stranger := testutil.CreateUser(t, env.db, "stranger")
	testutil.Follow(t, env.db, viewer, friend)

	base := time.Now().Add(-24 * time.Hour)
	var want []int64
	for i := 0; i < 23; i++ {
		author := []*models.User{viewer, friend, stranger}[i%3]
		p := testutil.CreatePost(t, env.db, author, fmt.Sprintf("post %d", i), base.Add(time.Duration(i)*time.Minute))
		if author != stranger {
			want = append([]int64{p.ID}, want...)
		}
	}

	var got []int64
	cursor := ""
	for pages := 0; pages < 10; pages++ {
		page, err := svc.GetFeed(ctx, FeedQuery{ViewerID: viewer.ID, Cursor: cursor, Limit: 4})
		require.NoError(t, err)
		assert.LessOrEqual(t, len(page.Posts), 4)
		got = append(got, postIDs(page.Posts)...)
		if !page.HasMore {
			assert.Nil(t, page.NextCursor)
			break
		}
		cursor = *page.NextCursor
	}
	assert.Equal(t, want, got, "every visible post exactly once, newest first")
}

func TestFeedService_GetFeed_StableUnderInsertion(t *testing.T) {
	env := newTestEnv(t)
	svc := env.feed(FeedOptions{})
	ctx := context.Background()

	viewer := testutil.CreateUser(t, env.db, "viewer")
	base := time.Now().Add(-time.Hour)
	var posts []*models.Post
	for i := 0; i < 4; i++ {
		posts = append(posts, testutil.CreatePost(t, env.db, viewer, fmt.Sprintf("post %d", i), base.Add(time.Duration(i)*time.Minute)))
	}

	first, err := svc.GetFeed(ctx, FeedQuery{ViewerID: viewer.ID, Limit: 2})
	require.NoError(t, err)
	require.True(t, first.HasMore)

	testutil.CreatePost(t, env.db, viewer, "late arrival", time.Now())

	second, err := svc.GetFeed(ctx, FeedQuery{ViewerID: viewer.ID, Limit: 2, Cursor: *first.NextCursor})
	require.NoError(t, err)
	assert.Equal(t, []int64{posts[1].ID, posts[0].ID}, postIDs(second.Posts))
	assert.False(t, second.HasMore)
}

func TestFeedService_GetFeed_CursorAndLimits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	viewer := testutil.CreateUser(t, env.db, "viewer")
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 12; i++ {
		testutil.CreatePost(t, env.db, viewer, fmt.Sprintf("post %d", i), base.Add(time.Duration(i)*time.Second))
	}

	svc := env.feed(FeedOptions{DefaultLimit: 10, MaxLimit: 5})

	tests := []struct {
		name     string
		cursor   string
		limit    int
		wantSize int
	}{
		{"default limit capped by max", "", 0, 5},
		{"negative limit uses default", "", -3, 5},
		{"oversized limit capped", "", 500, 5},
		{"explicit small limit", "", 3, 3},
		{"malformed cursor ignored", "not-a-cursor", 3, 3},
		{"unknown post cursor ignored", idgen.Format(idgen.Next()), 3, 3},
	}

	newest, err := svc.GetFeed(ctx, FeedQuery{ViewerID: viewer.ID, Limit: 1})
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := svc.GetFeed(ctx, FeedQuery{ViewerID: viewer.ID, Cursor: tt.cursor, Limit: tt.limit})
			require.NoError(t, err)
			assert.Len(t, page.Posts, tt.wantSize)
			assert.True(t, page.HasMore)
			assert.Equal(t, newest.Posts[0].ID, page.Posts[0].ID, "starts at the first page")
		})
	}
}

func TestFeedService_GetFeed_Enrichment(t *testing.T) {
	env := newTestEnv(t)
	svc := env.feed(FeedOptions{})
	ctx := context.Background()

	viewer := testutil.CreateUser(t, env.db, "viewer")
	fan := testutil.CreateUser(t, env.db, "fan")
	post := testutil.CreatePost(t, env.db, viewer, "hello", time.Now())
	post.Likes = models.IDList{fan.ID, viewer.ID, 4242}
	require.NoError(t, env.db.Model(post).Select("Likes").Updates(post).Error)

	page, err := svc.GetFeed(ctx, FeedQuery{ViewerID: viewer.ID})
	require.NoError(t, err)
	require.Len(t, page.Posts, 1)

	view := page.Posts[0]
	assert.Equal(t, viewer.Summary(), view.Author)
	assert.Equal(t, 3, view.LikesCount)
	assert.True(t, view.Liked)
	require.Len(t, view.Likes, 2, "unknown likers are dropped from summaries")
	assert.Equal(t, "fan", view.Likes[0].Username)
	assert.False(t, page.HasMore)
	assert.Nil(t, page.NextCursor)
}

func TestFeedService_GetFeed_Errors(t *testing.T) {
	env := newTestEnv(t)
	svc := env.feed(FeedOptions{})

	_, err := svc.GetFeed(context.Background(), FeedQuery{ViewerID: 12345})
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	_, err = svc.GetAuthorFeed(context.Background(), 0, 12345, "", 0)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestFeedService_GetAuthorFeed(t *testing.T) {
	env := newTestEnv(t)
	svc := env.feed(FeedOptions{})
	ctx := context.Background()

	author := testutil.CreateUser(t, env.db, "author")
	other := testutil.CreateUser(t, env.db, "other")
	base := time.Now().Add(-time.Hour)
	p1 := testutil.CreatePost(t, env.db, author, "one", base)
	testutil.CreatePost(t, env.db, other, "noise", base.Add(time.Minute))
	p2 := testutil.CreatePost(t, env.db, author, "two", base.Add(2*time.Minute))

	page, err := svc.GetAuthorFeed(ctx, other.ID, author.ID, "", 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{p2.ID, p1.ID}, postIDs(page.Posts))
	assert.False(t, page.Posts[0].Liked)
}
