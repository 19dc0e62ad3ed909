package service

import (
	"context"
	"testing"
	"time"

	"pulse/internal/models"
	"pulse/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageService_ListConversations(t *testing.T) {
	env := newTestEnv(t)
	svc := env.messageService()
	ctx := context.Background()

	me := testutil.CreateUser(t, env.db, "me")
	ann := testutil.CreateUser(t, env.db, "ann")
	ben := testutil.CreateUser(t, env.db, "ben")
	cal := testutil.CreateUser(t, env.db, "cal")

	base := time.Now().Add(-time.Hour)
	testutil.CreateMessage(t, env.db, ann, me, "hi", true, base)
	testutil.CreateMessage(t, env.db, ann, me, "you there?", false, base.Add(1*time.Minute))
	testutil.CreateMessage(t, env.db, ann, me, "hello??", false, base.Add(2*time.Minute))
	testutil.CreateMessage(t, env.db, me, ben, "ping", false, base.Add(3*time.Minute))
	lastAnn := testutil.CreateMessage(t, env.db, me, ann, "sorry, here", false, base.Add(4*time.Minute))
	testutil.CreateMessage(t, env.db, ben, cal, "not mine", false, base.Add(5*time.Minute))

	convos, err := svc.ListConversations(ctx, me.ID)
	require.NoError(t, err)
	require.Len(t, convos, 2)

	assert.Equal(t, "ann", convos[0].User.Username)
	assert.Equal(t, lastAnn.ID, convos[0].LastMessage.ID)
	assert.Equal(t, me.ID, convos[0].LastMessage.SenderID)
	assert.Equal(t, "sorry, here", convos[0].LastMessage.Content)
	assert.Equal(t, 2, convos[0].UnreadCount)

	assert.Equal(t, "ben", convos[1].User.Username)
	assert.Equal(t, 0, convos[1].UnreadCount, "unread counts only received messages")

	calConvos, err := svc.ListConversations(ctx, cal.ID)
	require.NoError(t, err)
	require.Len(t, calConvos, 1)
	assert.Equal(t, 1, calConvos[0].UnreadCount)
}

func TestMessageService_SendMessage(t *testing.T) {
	env := newTestEnv(t)
	svc := env.messageService()
	ctx := context.Background()

	me := testutil.CreateUser(t, env.db, "me")
	ann := testutil.CreateUser(t, env.db, "ann")

	view, err := svc.SendMessage(ctx, me.ID, ann.ID, "  hey  ")
	require.NoError(t, err)
	assert.Equal(t, "hey", view.Content)
	assert.Equal(t, "me", view.Sender.Username)
	assert.Equal(t, "ann", view.Receiver.Username)
	assert.False(t, view.Read)

	unread, err := svc.UnreadCount(ctx, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	tests := []struct {
		name     string
		from, to int64
		content  string
		code     string
	}{
		{"self", me.ID, me.ID, "hi", models.CodeInvalidOperation},
		{"empty", me.ID, ann.ID, "", models.CodeValidation},
		{"unknown receiver", me.ID, 31337, "hi", models.CodeNotFound},
		{"unknown sender", 31337, ann.ID, "hi", models.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SendMessage(ctx, tt.from, tt.to, tt.content)
			assert.True(t, models.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestMessageService_MarkReadAndHistory(t *testing.T) {
	env := newTestEnv(t)
	svc := env.messageService()
	ctx := context.Background()

	me := testutil.CreateUser(t, env.db, "me")
	ann := testutil.CreateUser(t, env.db, "ann")

	base := time.Now().Add(-time.Hour)
	testutil.CreateMessage(t, env.db, ann, me, "one", false, base)
	testutil.CreateMessage(t, env.db, me, ann, "two", false, base.Add(time.Minute))
	testutil.CreateMessage(t, env.db, ann, me, "three", false, base.Add(2*time.Minute))

	changed, err := svc.MarkRead(ctx, me.ID, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), changed)

	changed, err = svc.MarkRead(ctx, me.ID, ann.ID)
	require.NoError(t, err)
	assert.Zero(t, changed, "marking read is idempotent")

	unread, err := svc.UnreadCount(ctx, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread, "ann's copy of my message stays unread")

	history, err := svc.GetMessages(ctx, me.ID, ann.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "one", history[0].Content)
	assert.Equal(t, "three", history[2].Content)
	assert.Equal(t, "ann", history[0].Sender.Username)
	assert.Equal(t, "me", history[0].Receiver.Username)
	assert.True(t, history[0].Read)
	assert.False(t, history[1].Read)
}
