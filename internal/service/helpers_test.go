package service

import (
	"testing"

	"pulse/internal/featureflags"
	"pulse/internal/repository"
	"pulse/internal/testutil"

	"gorm.io/gorm"
)

type testEnv struct {
	db       *gorm.DB
	flags    *featureflags.Manager
	users    repository.UserRepository
	posts    repository.PostRepository
	comments repository.CommentRepository
	messages repository.MessageRepository
	whys     repository.WhyRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)
	return &testEnv{
		db:       db,
		flags:    featureflags.NewManager("follow_verify=on,feed_summary_cache=off"),
		users:    repository.NewUserRepository(db),
		posts:    repository.NewPostRepository(db),
		comments: repository.NewCommentRepository(db),
		messages: repository.NewMessageRepository(db),
		whys:     repository.NewWhyRepository(db),
	}
}

func (e *testEnv) graph() *GraphService {
	return NewGraphService(e.users, e.flags)
}

func (e *testEnv) feed(opts FeedOptions) *FeedService {
	return NewFeedService(e.posts, e.users, e.flags, opts)
}

func (e *testEnv) postService() *PostService {
	return NewPostService(e.posts, e.users, e.flags)
}

func (e *testEnv) commentService() *CommentService {
	return NewCommentService(e.comments, e.posts, e.users, e.flags)
}

func (e *testEnv) messageService() *MessageService {
	return NewMessageService(e.messages, e.users, e.flags)
}

func (e *testEnv) whyService() *WhyService {
	return NewWhyService(e.whys, e.users, e.flags)
}
