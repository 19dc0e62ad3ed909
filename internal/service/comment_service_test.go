package service

import (
	"context"
	"testing"
	"time"

	"pulse/internal/idgen"
	"pulse/internal/models"
	"pulse/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentService_GetThread(t *testing.T) {
	env := newTestEnv(t)
	svc := env.commentService()
	ctx := context.Background()

	alice := testutil.CreateUser(t, env.db, "alice")
	bob := testutil.CreateUser(t, env.db, "bob")
	post := testutil.CreatePost(t, env.db, alice, "topic", time.Now().Add(-time.Hour))
	otherPost := testutil.CreatePost(t, env.db, bob, "elsewhere", time.Now().Add(-time.Hour))

	base := time.Now().Add(-30 * time.Minute)
	first := testutil.CreateComment(t, env.db, post, bob, "first", nil, base)
	second := testutil.CreateComment(t, env.db, post, alice, "second", nil, base.Add(time.Minute))
	r1 := testutil.CreateComment(t, env.db, post, alice, "reply one", first, base.Add(2*time.Minute))
	r2 := testutil.CreateComment(t, env.db, post, bob, "reply two", first, base.Add(3*time.Minute))
	nested := testutil.CreateComment(t, env.db, post, bob, "nested", r1, base.Add(4*time.Minute))
	testutil.CreateComment(t, env.db, otherPost, bob, "not here", nil, base)

	// Reply whose parent was removed.
	orphanParent := idgen.Next()
	orphan := &models.Comment{ID: idgen.Next(), PostID: post.ID, AuthorID: bob.ID, Content: "orphan", ParentCommentID: &orphanParent, CreatedAt: base.Add(5 * time.Minute)}
	require.NoError(t, env.db.Create(orphan).Error)

	thread, err := svc.GetThread(ctx, alice.ID, post.ID)
	require.NoError(t, err)
	require.Len(t, thread, 2)

	assert.Equal(t, second.ID, thread[0].ID, "top-level newest first")
	assert.Empty(t, thread[0].Replies)
	assert.NotNil(t, thread[0].Replies)

	assert.Equal(t, first.ID, thread[1].ID)
	assert.Equal(t, "bob", thread[1].Author.Username)
	require.Len(t, thread[1].Replies, 2)
	assert.Equal(t, r1.ID, thread[1].Replies[0].ID, "replies oldest first")
	assert.Equal(t, r2.ID, thread[1].Replies[1].ID)
	assert.Equal(t, first.ID, *thread[1].Replies[0].ParentCommentID)

	for _, root := range thread {
		for _, reply := range root.Replies {
			assert.NotEqual(t, nested.ID, reply.ID)
			assert.NotEqual(t, orphan.ID, reply.ID)
		}
	}
}

func TestCommentService_GetThread_Errors(t *testing.T) {
	env := newTestEnv(t)
	svc := env.commentService()
	ctx := context.Background()

	_, err := svc.GetThread(ctx, 0, 4242)
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	alice := testutil.CreateUser(t, env.db, "alice")
	post := testutil.CreatePost(t, env.db, alice, "quiet", time.Now())
	thread, err := svc.GetThread(ctx, alice.ID, post.ID)
	require.NoError(t, err)
	assert.NotNil(t, thread)
	assert.Empty(t, thread)
}

func TestBuildThread_TieBreakOnID(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	older := &models.Comment{ID: 10, PostID: 1, AuthorID: 1, CreatedAt: at}
	newer := &models.Comment{ID: 11, PostID: 1, AuthorID: 2, CreatedAt: at}

	thread := buildThread([]*models.Comment{older, newer}, map[int64]models.UserSummary{1: {ID: 1, Username: "one"}})
	require.Len(t, thread, 2)
	assert.Equal(t, int64(11), thread[0].ID)
	assert.Equal(t, "[deleted]", thread[0].Author.Username)
	assert.Equal(t, "one", thread[1].Author.Username)
}

func TestCommentService_AddComment(t *testing.T) {
	env := newTestEnv(t)
	svc := env.commentService()
	ctx := context.Background()

	alice := testutil.CreateUser(t, env.db, "alice")
	bob := testutil.CreateUser(t, env.db, "bob")
	post := testutil.CreatePost(t, env.db, alice, "topic", time.Now())
	otherPost := testutil.CreatePost(t, env.db, alice, "other", time.Now())

	root, err := svc.AddComment(ctx, AddCommentInput{PostID: post.ID, AuthorID: bob.ID, Content: " nice "})
	require.NoError(t, err)
	assert.Equal(t, "nice", root.Content)
	assert.Equal(t, "bob", root.Author.Username)
	assert.Nil(t, root.ParentCommentID)

	reply, err := svc.AddComment(ctx, AddCommentInput{PostID: post.ID, AuthorID: alice.ID, Content: "thanks", ParentCommentID: &root.ID})
	require.NoError(t, err)
	require.NotNil(t, reply.ParentCommentID)
	assert.Equal(t, root.ID, *reply.ParentCommentID)

	thread, err := svc.GetThread(ctx, alice.ID, post.ID)
	require.NoError(t, err)
	require.Len(t, thread, 1)
	require.Len(t, thread[0].Replies, 1)
	assert.Equal(t, reply.ID, thread[0].Replies[0].ID)

	missing := int64(98765)
	tests := []struct {
		name string
		in   AddCommentInput
		code string
	}{
		{"empty content", AddCommentInput{PostID: post.ID, AuthorID: bob.ID, Content: "  "}, models.CodeValidation},
		{"unknown post", AddCommentInput{PostID: 555, AuthorID: bob.ID, Content: "hi"}, models.CodeNotFound},
		{"unknown author", AddCommentInput{PostID: post.ID, AuthorID: 555, Content: "hi"}, models.CodeNotFound},
		{"unknown parent", AddCommentInput{PostID: post.ID, AuthorID: bob.ID, Content: "hi", ParentCommentID: &missing}, models.CodeNotFound},
		{"parent on another post", AddCommentInput{PostID: otherPost.ID, AuthorID: bob.ID, Content: "hi", ParentCommentID: &root.ID}, models.CodeValidation},
		{"reply to a reply", AddCommentInput{PostID: post.ID, AuthorID: bob.ID, Content: "hi", ParentCommentID: &reply.ID}, models.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddComment(ctx, tt.in)
			assert.True(t, models.HasCode(err, tt.code), "got %v", err)
		})
	}
}
