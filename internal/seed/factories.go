// Package seed builds demo social graphs for development databases.
// Everything here is intended for development and testing only.
package seed

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"pulse/internal/idgen"
	"pulse/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

// Factory builds domain records in memory. The same seed always yields
// the same graph shape.
type Factory struct {
	faker *gofakeit.Faker
	rng   *rand.Rand
	now   time.Time
	days  int
	seq   int
}

// NewFactory creates a Factory. days bounds how far back timestamps reach.
func NewFactory(seed int64, days int, now time.Time) *Factory {
	if days <= 0 {
		days = 30
	}
	return &Factory{
		faker: gofakeit.New(seed),
		rng:   rand.New(rand.NewSource(seed)), //nolint:gosec // Weak random number generator is fine for seeding
		now:   now,
		days:  days,
	}
}

// BuildUser constructs a user; a nil spec yields a random one.
func (f *Factory) BuildUser(spec *UserSpec) *models.User {
	f.seq++
	user := &models.User{ID: idgen.Next()}
	if spec != nil {
		user.Username = spec.Username
		user.Name = spec.Name
		user.Bio = spec.Bio
	} else {
		user.Username = fmt.Sprintf("%s_%d", strings.ToLower(f.faker.Username()), f.seq)
		user.Name = f.faker.Name()
		user.Bio = f.faker.Sentence(10)
	}
	if user.Name == "" {
		user.Name = user.Username
	}
	if len(user.Username) > 64 {
		user.Username = user.Username[:64]
	}
	user.Avatar = fmt.Sprintf("https://i.pravatar.cc/150?u=%s", uuid.NewString())
	user.CreatedAt = f.pastTime(time.Time{})
	return user
}

// BuildPost constructs a post by author. Empty content is generated.
// IDs are assigned later, once posts are in creation order.
func (f *Factory) BuildPost(author *models.User, content string) *models.Post {
	if content == "" {
		content = f.faker.Sentence(f.rng.Intn(20) + 3)
	}
	return &models.Post{
		AuthorID:  author.ID,
		Content:   content,
		CreatedAt: f.pastTime(author.CreatedAt),
	}
}

// BuildComment constructs a comment on post, after after.
func (f *Factory) BuildComment(post *models.Post, author *models.User, parent *models.Comment, after time.Time) *models.Comment {
	c := &models.Comment{
		ID:        idgen.Next(),
		PostID:    post.ID,
		AuthorID:  author.ID,
		Content:   f.faker.Sentence(8),
		CreatedAt: f.futureTime(after),
	}
	if parent != nil {
		pid := parent.ID
		c.ParentCommentID = &pid
	}
	return c
}

// BuildMessage constructs a direct message. Older messages are more likely read.
func (f *Factory) BuildMessage(from, to *models.User) *models.Message {
	at := f.pastTime(later(from.CreatedAt, to.CreatedAt))
	return &models.Message{
		ID:         idgen.Next(),
		SenderID:   from.ID,
		ReceiverID: to.ID,
		Content:    f.faker.HackerPhrase(),
		Read:       f.now.Sub(at) > 24*time.Hour && f.rng.Intn(4) > 0,
		CreatedAt:  at,
	}
}

// Pick returns up to n distinct users from pool, never skip.
func (f *Factory) Pick(pool []*models.User, n int, skip int64) []*models.User {
	out := make([]*models.User, 0, n)
	for _, i := range f.rng.Perm(len(pool)) {
		if len(out) == n {
			break
		}
		if pool[i].ID != skip {
			out = append(out, pool[i])
		}
	}
	return out
}

// AssignPostIDs sorts posts oldest first and gives them increasing IDs, so
// that (created_at, id) ordering and id cursors agree.
func AssignPostIDs(posts []*models.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.Before(posts[j].CreatedAt)
	})
	for _, p := range posts {
		p.ID = idgen.Next()
	}
}

// pastTime returns a random instant between notBefore and now.
func (f *Factory) pastTime(notBefore time.Time) time.Time {
	floor := f.now.Add(-time.Duration(f.days) * 24 * time.Hour)
	if notBefore.After(floor) {
		floor = notBefore
	}
	span := f.now.Sub(floor)
	if span <= 0 {
		return f.now
	}
	return floor.Add(time.Duration(f.rng.Int63n(int64(span))))
}

// futureTime returns a random instant between after and now.
func (f *Factory) futureTime(after time.Time) time.Time {
	return f.pastTime(after.Add(time.Second))
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
