package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"pulse/internal/featureflags"
	"pulse/internal/middleware"
	"pulse/internal/models"
	"pulse/internal/observability"
	"pulse/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultSuggestionLimit = 5
	defaultSearchLimit     = 10
	maxUserListLimit       = 50
)

// GraphService maintains the symmetric follow graph and user discovery.
type GraphService struct {
	userRepo repository.UserRepository
	flags    *featureflags.Manager
}

// NewGraphService returns a new GraphService.
func NewGraphService(userRepo repository.UserRepository, flags *featureflags.Manager) *GraphService {
	return &GraphService{
		userRepo: userRepo,
		flags:    flags,
	}
}

// FollowResult is the outcome of a follow toggle.
type FollowResult struct {
	Following bool                  `json:"following"`
	Profile   *models.PublicProfile `json:"profile"`
	// Warning is set when the verification read found and repaired an asymmetry.
	Warning *models.AppError `json:"-"`
}

// Follow toggles actorID following targetID. Both sides of the edge are
// written in one transaction; when follow verification is enabled both users
// are re-read afterwards and any asymmetry is repaired and reported.
func (s *GraphService) Follow(ctx context.Context, actorID, targetID int64) (*FollowResult, error) {
	span, ctx := observability.NewSpan(ctx, "GraphService.Follow",
		attribute.Int64("actor.id", actorID),
		attribute.Int64("target.id", targetID),
	)
	defer span.End()

	if actorID == targetID {
		return nil, models.NewInvalidOperationError("Cannot follow yourself")
	}

	edge, err := s.userRepo.UpdateFollowEdge(ctx, actorID, targetID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	action := observability.ToggleAction(edge.Following, "follow", "unfollow")
	observability.FollowToggles.WithLabelValues(action).Inc()
	middleware.Logger.InfoContext(ctx, "follow toggled",
		slog.String("action", action),
		slog.Int64("actor_id", actorID),
		slog.Int64("target_id", targetID),
	)

	result := &FollowResult{Following: edge.Following}
	target := edge.Target

	if s.flags.Enabled(featureflags.FollowVerify, actorID) {
		warning, users, err := s.verifyPair(ctx, actorID, targetID)
		if err != nil {
			span.SetError(err)
			return nil, err
		}
		result.Warning = warning
		target = users[targetID]
		result.Following = users[actorID].Following.Contains(targetID)
	}

	result.Profile = target.Profile(actorID)
	return result, nil
}

// IsFollowing reports whether actorID follows targetID.
func (s *GraphService) IsFollowing(ctx context.Context, actorID, targetID int64) (bool, error) {
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return false, err
	}
	return actor.Following.Contains(targetID), nil
}

// VerifyPair checks both directed edges between a and b, repairing any
// asymmetry. It returns nil when the pair was already consistent.
func (s *GraphService) VerifyPair(ctx context.Context, a, b int64) (*models.AppError, error) {
	warning, _, err := s.verifyPair(ctx, a, b)
	return warning, err
}

func (s *GraphService) verifyPair(ctx context.Context, a, b int64) (*models.AppError, map[int64]*models.User, error) {
	users, err := s.userRepo.GetByIDs(ctx, []int64{a, b})
	if err != nil {
		return nil, nil, err
	}
	for _, id := range []int64{a, b} {
		if users[id] == nil {
			return nil, nil, models.NewNotFoundError("User", id)
		}
	}
	if !needsRepair(users[a], users[b]) {
		return nil, users, nil
	}

	// The read above is unlocked; the repair is recomputed on locked rows.
	var details []string
	fresh, err := s.userRepo.ReconcileFollows(ctx, []int64{a, b}, func(locked map[int64]*models.User) []int64 {
		details = nil
		if locked[a] == nil || locked[b] == nil {
			return nil
		}
		changed, d := repairPair(locked[a], locked[b])
		details = d
		return changed
	})
	if err != nil {
		return nil, nil, err
	}
	for _, id := range []int64{a, b} {
		if fresh[id] == nil {
			return nil, nil, models.NewNotFoundError("User", id)
		}
	}
	if len(details) == 0 {
		return nil, fresh, nil
	}
	return s.report(ctx, a, b, details), fresh, nil
}

// VerifyUser audits every edge touching userID. Counterparts that no longer
// exist are dropped from the user's lists. Repairs are computed and written
// on locked rows.
func (s *GraphService) VerifyUser(ctx context.Context, userID int64) ([]*models.AppError, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	var others []int64
	seen := map[int64]bool{userID: true}
	for _, id := range append(append([]int64{}, user.Following...), user.Followers...) {
		if !seen[id] {
			seen[id] = true
			others = append(others, id)
		}
	}
	if len(others) == 0 {
		return nil, nil
	}

	type finding struct {
		other   int64
		details []string
	}
	var findings []finding
	fresh, err := s.userRepo.ReconcileFollows(ctx, append([]int64{userID}, others...), func(locked map[int64]*models.User) []int64 {
		findings = nil
		me := locked[userID]
		if me == nil {
			return nil
		}

		var changed []int64
		for _, otherID := range others {
			other := locked[otherID]
			if other == nil {
				if me.Following.Contains(otherID) || me.Followers.Contains(otherID) {
					me.Following = me.Following.Remove(otherID)
					me.Followers = me.Followers.Remove(otherID)
					changed = append(changed, userID)
					findings = append(findings, finding{otherID, []string{fmt.Sprintf("user %d no longer exists", otherID)}})
				}
				continue
			}
			ids, details := repairPair(me, other)
			if len(details) > 0 {
				changed = append(changed, ids...)
				findings = append(findings, finding{otherID, details})
			}
		}
		return changed
	})
	if err != nil {
		return nil, err
	}
	if fresh[userID] == nil {
		return nil, models.NewNotFoundError("User", userID)
	}

	warnings := make([]*models.AppError, 0, len(findings))
	for _, f := range findings {
		warnings = append(warnings, s.report(ctx, userID, f.other, f.details))
	}
	return warnings, nil
}

// needsRepair reports whether either directed edge between x and y is one-sided.
func needsRepair(x, y *models.User) bool {
	return x.Following.Contains(y.ID) != y.Followers.Contains(x.ID) ||
		y.Following.Contains(x.ID) != x.Followers.Contains(y.ID)
}

// repairPair fixes both directed edges between x and y in place. It returns
// the IDs of the users it changed and a description of each fix.
func repairPair(x, y *models.User) ([]int64, []string) {
	var changed []int64
	var details []string
	for _, pair := range [2][2]*models.User{{x, y}, {y, x}} {
		if d := repairEdge(pair[0], pair[1]); d != "" {
			details = append(details, d)
			changed = append(changed, pair[1].ID)
		}
	}
	return changed, details
}

// repairEdge makes followee.Followers agree with follower.Following, the
// follower's side being authoritative. It describes the fix, or returns "".
func repairEdge(follower, followee *models.User) string {
	want := follower.Following.Contains(followee.ID)
	has := followee.Followers.Contains(follower.ID)
	switch {
	case want == has:
		return ""
	case want:
		followee.Followers = followee.Followers.Add(follower.ID)
		return fmt.Sprintf("%d follows %d but is missing from its followers", follower.ID, followee.ID)
	default:
		followee.Followers = followee.Followers.Remove(follower.ID)
		return fmt.Sprintf("%d listed as follower of %d without following it", follower.ID, followee.ID)
	}
}

func (s *GraphService) report(ctx context.Context, a, b int64, details []string) *models.AppError {
	warning := models.NewConsistencyWarning(a, b, strings.Join(details, "; "))
	observability.GraphConsistencyWarnings.Inc()
	middleware.Logger.WarnContext(ctx, "follow graph asymmetry repaired",
		slog.Int64("user_a", a),
		slog.Int64("user_b", b),
		slog.String("detail", warning.Message),
	)
	return warning
}

// GetProfile returns the public profile of username as seen by viewerID.
func (s *GraphService) GetProfile(ctx context.Context, viewerID int64, username string) (*models.PublicProfile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, models.NewValidationError("Username is required")
	}
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return user.Profile(viewerID), nil
}

// Suggestions returns users the viewer does not follow, most-followed first.
func (s *GraphService) Suggestions(ctx context.Context, viewerID int64, limit int) ([]*models.PublicProfile, error) {
	viewer, err := s.userRepo.GetByID(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	exclude := append([]int64{viewerID}, viewer.Following...)
	users, err := s.userRepo.Suggestions(ctx, exclude, clampLimit(limit, defaultSuggestionLimit, maxUserListLimit))
	if err != nil {
		return nil, err
	}
	return profiles(users, viewerID), nil
}

// SearchUsers matches query against usernames and display names. An empty
// query yields an empty result.
func (s *GraphService) SearchUsers(ctx context.Context, viewerID int64, query string, limit int) ([]*models.PublicProfile, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*models.PublicProfile{}, nil
	}
	users, err := s.userRepo.Search(ctx, query, viewerID, clampLimit(limit, defaultSearchLimit, maxUserListLimit))
	if err != nil {
		return nil, err
	}
	return profiles(users, viewerID), nil
}

func profiles(users []models.User, viewerID int64) []*models.PublicProfile {
	out := make([]*models.PublicProfile, 0, len(users))
	for i := range users {
		out = append(out, users[i].Profile(viewerID))
	}
	return out
}

func clampLimit(limit, fallback, ceiling int) int {
	if limit <= 0 {
		return fallback
	}
	return min(limit, ceiling)
}
