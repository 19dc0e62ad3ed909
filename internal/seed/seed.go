package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pulse/internal/middleware"
	"pulse/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	// Clean removes every existing row before seeding.
	Clean bool
	// DryRun builds the graph without writing it.
	DryRun    bool
	BatchSize int
}

// Report counts what a run produced.
type Report struct {
	RunID    string `json:"run_id"`
	Scenario string `json:"scenario"`
	Users    int    `json:"users"`
	Follows  int    `json:"follows"`
	Posts    int    `json:"posts"`
	Likes    int    `json:"likes"`
	Comments int    `json:"comments"`
	Messages int    `json:"messages"`
}

// Seeder writes scenarios to a database.
type Seeder struct {
	db   *gorm.DB
	opts Options
	now  func() time.Time
}

// NewSeeder creates a Seeder bound to db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 200
	}
	return &Seeder{db: db, opts: opts, now: time.Now}
}

type graph struct {
	users    []*models.User
	posts    []*models.Post
	comments []*models.Comment
	messages []*models.Message
}

// Run builds sc and persists it in one transaction.
func (s *Seeder) Run(ctx context.Context, sc *Scenario) (*Report, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	report := &Report{RunID: uuid.NewString(), Scenario: sc.Name}
	log := middleware.Logger.With(slog.String("run_id", report.RunID), slog.String("scenario", sc.Name))
	log.InfoContext(ctx, "seeding started", slog.Bool("dry_run", s.opts.DryRun))

	g := build(NewFactory(sc.Seed, sc.Days, s.now()), sc, report)

	if s.opts.DryRun {
		log.InfoContext(ctx, "dry run, nothing written", slog.Int("users", report.Users), slog.Int("posts", report.Posts))
		return report, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.opts.Clean {
			if err := Clean(tx); err != nil {
				return err
			}
		}
		if err := tx.CreateInBatches(g.users, s.opts.BatchSize).Error; err != nil {
			return fmt.Errorf("create users: %w", err)
		}
		if len(g.posts) > 0 {
			if err := tx.CreateInBatches(g.posts, s.opts.BatchSize).Error; err != nil {
				return fmt.Errorf("create posts: %w", err)
			}
		}
		if len(g.comments) > 0 {
			if err := tx.CreateInBatches(g.comments, s.opts.BatchSize).Error; err != nil {
				return fmt.Errorf("create comments: %w", err)
			}
		}
		if len(g.messages) > 0 {
			if err := tx.CreateInBatches(g.messages, s.opts.BatchSize).Error; err != nil {
				return fmt.Errorf("create messages: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.InfoContext(ctx, "seeding completed",
		slog.Int("users", report.Users),
		slog.Int("follows", report.Follows),
		slog.Int("posts", report.Posts),
		slog.Int("comments", report.Comments),
		slog.Int("messages", report.Messages),
	)
	return report, nil
}

func build(f *Factory, sc *Scenario, report *Report) *graph {
	g := &graph{}
	byName := make(map[string]*models.User, len(sc.Users))
	for i := range sc.Users {
		u := f.BuildUser(&sc.Users[i])
		byName[u.Username] = u
		g.users = append(g.users, u)
	}
	for i := 0; i < sc.Random.Users; i++ {
		g.users = append(g.users, f.BuildUser(nil))
	}
	report.Users = len(g.users)

	follow := func(a, b *models.User) {
		if a.Following.Contains(b.ID) {
			return
		}
		a.Following = a.Following.Add(b.ID)
		b.Followers = b.Followers.Add(a.ID)
		report.Follows++
	}
	for _, spec := range sc.Users {
		for _, target := range spec.Follows {
			follow(byName[spec.Username], byName[target])
		}
	}
	for _, u := range g.users[len(sc.Users):] {
		for _, target := range f.Pick(g.users, sc.Random.FollowsPerUser, u.ID) {
			follow(u, target)
		}
	}

	for _, spec := range sc.Users {
		for _, content := range spec.Posts {
			g.posts = append(g.posts, f.BuildPost(byName[spec.Username], content))
		}
	}
	for _, u := range g.users {
		for i := 0; i < sc.Random.PostsPerUser; i++ {
			g.posts = append(g.posts, f.BuildPost(u, ""))
		}
	}
	AssignPostIDs(g.posts)
	report.Posts = len(g.posts)

	for _, p := range g.posts {
		for _, liker := range f.Pick(g.users, sc.Random.LikesPerPost, 0) {
			p.Likes = p.Likes.Add(liker.ID)
			report.Likes++
		}
		for _, author := range f.Pick(g.users, sc.Random.CommentsPerPost, 0) {
			root := f.BuildComment(p, author, nil, p.CreatedAt)
			g.comments = append(g.comments, root)
			for _, replier := range f.Pick(g.users, sc.Random.RepliesPerComment, 0) {
				g.comments = append(g.comments, f.BuildComment(p, replier, root, root.CreatedAt))
			}
		}
	}
	report.Comments = len(g.comments)

	for _, u := range g.users {
		for _, to := range f.Pick(g.users, sc.Random.MessagesPerUser, u.ID) {
			g.messages = append(g.messages, f.BuildMessage(u, to))
		}
	}
	report.Messages = len(g.messages)

	return g
}

// Clean removes all social data, dependents first.
func Clean(db *gorm.DB) error {
	tx := db.Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []any{&models.Pulse{}, &models.Why{}, &models.Message{}, &models.Comment{}, &models.Post{}, &models.User{}} {
		if err := tx.Delete(model).Error; err != nil {
			return fmt.Errorf("clean %T: %w", model, err)
		}
	}
	return nil
}
