package service

import (
	"context"
	"log/slog"

	"pulse/internal/featureflags"
	"pulse/internal/idgen"
	"pulse/internal/middleware"
	"pulse/internal/models"
	"pulse/internal/observability"
	"pulse/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultWhyLimit = 20
	MaxWhyLimit     = 100
)

// WhyPage is one page of Whys, newest first.
type WhyPage struct {
	Whys       []*models.WhyView `json:"whys"`
	NextCursor *string           `json:"nextCursor"`
	HasMore    bool              `json:"hasMore"`
}

// WhyService runs the question board: signed questions, anonymous replies.
type WhyService struct {
	whyRepo  repository.WhyRepository
	userRepo repository.UserRepository
	loader   summaryLoader
}

// NewWhyService returns a new WhyService.
func NewWhyService(whyRepo repository.WhyRepository, userRepo repository.UserRepository, flags *featureflags.Manager) *WhyService {
	return &WhyService{
		whyRepo:  whyRepo,
		userRepo: userRepo,
		loader:   summaryLoader{userRepo: userRepo, flags: flags},
	}
}

// Ask stores a new Why by authorID.
func (s *WhyService) Ask(ctx context.Context, authorID int64, title, description string) (*models.WhyView, error) {
	span, ctx := observability.NewSpan(ctx, "WhyService.Ask", attribute.Int64("author.id", authorID))
	defer span.End()

	title, err := normalizeText(title, "Title", models.MaxWhyTitleLength)
	if err != nil {
		return nil, err
	}
	description, err = normalizeContent(description, "Description")
	if err != nil {
		return nil, err
	}
	if _, err := s.userRepo.GetByID(ctx, authorID); err != nil {
		span.SetError(err)
		return nil, err
	}

	why := &models.Why{AuthorID: authorID, Title: title, Description: description}
	if err := s.whyRepo.Create(ctx, why); err != nil {
		span.SetError(err)
		return nil, err
	}
	middleware.Logger.DebugContext(ctx, "why asked", slog.Int64("why_id", why.ID))

	views, err := s.views(ctx, authorID, []*models.Why{why})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// ListWhys pages through every Why newest first. A malformed or unknown
// cursor starts from the first page.
func (s *WhyService) ListWhys(ctx context.Context, viewerID int64, cursor string, limit int) (*WhyPage, error) {
	limit = clampLimit(limit, DefaultWhyLimit, MaxWhyLimit)

	var before int64
	if id, err := idgen.Parse(cursor); err == nil {
		if _, err := s.whyRepo.GetByID(ctx, id); err == nil {
			before = id
		} else if !models.HasCode(err, models.CodeNotFound) {
			return nil, err
		}
	}

	whys, err := s.whyRepo.List(ctx, before, limit+1)
	if err != nil {
		return nil, err
	}

	page := &WhyPage{}
	if len(whys) > limit {
		whys = whys[:limit]
		page.HasMore = true
		next := idgen.Format(whys[len(whys)-1].ID)
		page.NextCursor = &next
	}
	page.Whys, err = s.views(ctx, viewerID, whys)
	if err != nil {
		return nil, err
	}
	return page, nil
}

// AddPulse stores an anonymous reply to whyID.
func (s *WhyService) AddPulse(ctx context.Context, whyID int64, content string) (*models.Pulse, error) {
	content, err := normalizeContent(content, "Content")
	if err != nil {
		return nil, err
	}
	if _, err := s.whyRepo.GetByID(ctx, whyID); err != nil {
		return nil, err
	}

	pulse := &models.Pulse{WhyID: whyID, Content: content}
	if err := s.whyRepo.AddPulse(ctx, pulse); err != nil {
		return nil, err
	}
	return pulse, nil
}

// ListPulses returns the replies to whyID, newest first.
func (s *WhyService) ListPulses(ctx context.Context, whyID int64) ([]*models.Pulse, error) {
	if _, err := s.whyRepo.GetByID(ctx, whyID); err != nil {
		return nil, err
	}
	return s.whyRepo.ListPulses(ctx, whyID)
}

func (s *WhyService) views(ctx context.Context, viewerID int64, whys []*models.Why) ([]*models.WhyView, error) {
	ids := make([]int64, 0, len(whys))
	authors := make([]int64, 0, len(whys))
	for _, w := range whys {
		ids = append(ids, w.ID)
		authors = append(authors, w.AuthorID)
	}

	summaries, err := s.loader.load(ctx, viewerID, authors)
	if err != nil {
		return nil, err
	}
	counts, err := s.whyRepo.CountPulses(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]*models.WhyView, 0, len(whys))
	for _, w := range whys {
		views = append(views, &models.WhyView{
			ID:          w.ID,
			Author:      summaryOrPlaceholder(summaries, w.AuthorID),
			Title:       w.Title,
			Description: w.Description,
			PulseCount:  counts[w.ID],
			CreatedAt:   w.CreatedAt,
		})
	}
	return views, nil
}
