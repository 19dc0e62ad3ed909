package repository

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"pulse/internal/cache"
	"pulse/internal/idgen"
	"pulse/internal/middleware"
	"pulse/internal/models"
	"pulse/internal/observability"

	"gorm.io/gorm"
)

// suggestionScanLimit bounds how many candidates are ranked for suggestions.
const suggestionScanLimit = 500

// FollowEdge is the committed state of both users after a follow toggle.
type FollowEdge struct {
	Following bool
	Actor     *models.User
	Target    *models.User
}

// UserRepository defines persistence operations for users and the follow graph.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.User, error)
	GetSummaries(ctx context.Context, ids []int64, useCache bool) (map[int64]models.UserSummary, error)
	Create(ctx context.Context, user *models.User) error
	UpdateFollowEdge(ctx context.Context, actorID, targetID int64) (*FollowEdge, error)
	ReconcileFollows(ctx context.Context, ids []int64, fix func(users map[int64]*models.User) []int64) (map[int64]*models.User, error)
	Suggestions(ctx context.Context, exclude []int64, limit int) ([]models.User, error)
	Search(ctx context.Context, query string, excludeID int64, limit int) ([]models.User, error)
	List(ctx context.Context, afterID int64, limit int) ([]models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	defer observability.TrackQuery("get_by_id", "users")()

	var user models.User
	if err := readDB(r.db).WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, mapError(err, "User", id)
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := cache.Aside(ctx, cache.UserByUsernameKey(username), &user, cache.UserRecordTTL, func() error {
		defer observability.TrackQuery("get_by_username", "users")()
		return readDB(r.db).WithContext(ctx).Where("username = ?", username).First(&user).Error
	})
	if err != nil {
		return nil, mapError(err, "User", username)
	}
	return &user, nil
}

// GetByIDs reads from the primary so callers observe their own writes.
func (r *userRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.User, error) {
	defer observability.TrackQuery("get_by_ids", "users")()

	out := make(map[int64]*models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []*models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", dedupeIDs(ids)).Find(&users).Error; err != nil {
		return nil, mapError(err, "User", ids)
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// GetSummaries batch-loads summaries; unknown IDs are absent from the result.
func (r *userRepository) GetSummaries(ctx context.Context, ids []int64, useCache bool) (map[int64]models.UserSummary, error) {
	ids = dedupeIDs(ids)
	out := make(map[int64]models.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	missing := ids
	if useCache {
		keys := make([]string, len(ids))
		for i, id := range ids {
			keys[i] = cache.UserSummaryKey(id)
		}
		hits, err := cache.MGetJSON[models.UserSummary](ctx, keys)
		if err != nil {
			middleware.Logger.WarnContext(ctx, "summary cache read failed", slog.String("error", err.Error()))
		}
		missing = make([]int64, 0, len(ids)-len(hits))
		for i, id := range ids {
			if s, ok := hits[i]; ok && s.ID == id {
				out[id] = s
				continue
			}
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return out, nil
	}

	defer observability.TrackQuery("get_summaries", "users")()
	var users []models.User
	err := readDB(r.db).WithContext(ctx).
		Select("id", "username", "name", "avatar").
		Where("id IN ?", missing).
		Find(&users).Error
	if err != nil {
		return nil, mapError(err, "User", missing)
	}

	fresh := make(map[string]models.UserSummary, len(users))
	for i := range users {
		s := users[i].Summary()
		out[s.ID] = s
		fresh[cache.UserSummaryKey(s.ID)] = s
	}
	if useCache {
		if err := cache.SetManyJSON(ctx, fresh, cache.UserSummaryTTL); err != nil {
			middleware.Logger.WarnContext(ctx, "summary cache write failed", slog.String("error", err.Error()))
		}
	}
	return out, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	defer observability.TrackQuery("create", "users")()

	if user.ID == 0 {
		user.ID = idgen.Next()
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("Username already taken")
		}
		return models.NewStoreUnavailableError(err)
	}
	return nil
}

// UpdateFollowEdge toggles actor→target inside one transaction. Both rows are
// locked in ascending ID order and written together; the actor's Following
// list decides the direction.
func (r *userRepository) UpdateFollowEdge(ctx context.Context, actorID, targetID int64) (*FollowEdge, error) {
	defer observability.TrackQuery("update_follow_edge", "users")()

	var edge FollowEdge
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var users []*models.User
		if err := forUpdate(tx).Where("id IN ?", []int64{actorID, targetID}).Order("id ASC").Find(&users).Error; err != nil {
			return err
		}
		byID := make(map[int64]*models.User, 2)
		for _, u := range users {
			byID[u.ID] = u
		}
		actor, ok := byID[actorID]
		if !ok {
			return models.NewNotFoundError("User", actorID)
		}
		target, ok := byID[targetID]
		if !ok {
			return models.NewNotFoundError("User", targetID)
		}

		if actor.Following.Contains(targetID) {
			actor.Following = actor.Following.Remove(targetID)
			target.Followers = target.Followers.Remove(actorID)
		} else {
			actor.Following = actor.Following.Add(targetID)
			target.Followers = target.Followers.Add(actorID)
			edge.Following = true
		}

		if err := saveFollowLists(tx, actor); err != nil {
			return err
		}
		if err := saveFollowLists(tx, target); err != nil {
			return err
		}
		edge.Actor, edge.Target = actor, target
		return nil
	})
	if err != nil {
		return nil, mapError(err, "User", actorID)
	}

	cache.InvalidateUser(ctx, edge.Actor.ID, edge.Actor.Username)
	cache.InvalidateUser(ctx, edge.Target.ID, edge.Target.Username)
	return &edge, nil
}

// ReconcileFollows re-reads ids under row locks in ascending ID order and
// hands the fresh rows to fix, which corrects them in place and returns the
// IDs it changed. Those rows are written back in the same transaction, so a
// follow committed after the caller's own read is never overwritten. Users
// that do not exist are absent from the map.
func (r *userRepository) ReconcileFollows(
	ctx context.Context, ids []int64, fix func(users map[int64]*models.User) []int64,
) (map[int64]*models.User, error) {
	defer observability.TrackQuery("reconcile_follows", "users")()

	byID := make(map[int64]*models.User, len(ids))
	var changed []*models.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var users []*models.User
		if err := forUpdate(tx).Where("id IN ?", ids).Order("id ASC").Find(&users).Error; err != nil {
			return err
		}
		for _, u := range users {
			byID[u.ID] = u
		}

		written := map[int64]bool{}
		for _, id := range fix(byID) {
			u := byID[id]
			if u == nil || written[id] {
				continue
			}
			written[id] = true
			if err := saveFollowLists(tx, u); err != nil {
				return err
			}
			changed = append(changed, u)
		}
		return nil
	})
	if err != nil {
		return nil, mapError(err, "User", nil)
	}

	for _, u := range changed {
		cache.InvalidateUser(ctx, u.ID, u.Username)
	}
	return byID, nil
}

func saveFollowLists(tx *gorm.DB, u *models.User) error {
	return tx.Model(u).Select("Followers", "Following", "UpdatedAt").Updates(u).Error
}

// Suggestions returns users outside exclude, most-followed first.
func (r *userRepository) Suggestions(ctx context.Context, exclude []int64, limit int) ([]models.User, error) {
	defer observability.TrackQuery("suggestions", "users")()

	var users []models.User
	q := readDB(r.db).WithContext(ctx).Order("id ASC").Limit(suggestionScanLimit)
	if len(exclude) > 0 {
		q = q.Where("id NOT IN ?", exclude)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, mapError(err, "User", nil)
	}

	sort.SliceStable(users, func(i, j int) bool {
		return len(users[i].Followers) > len(users[j].Followers)
	})
	if len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

// Search matches query as a case-insensitive substring of username or name.
func (r *userRepository) Search(ctx context.Context, query string, excludeID int64, limit int) ([]models.User, error) {
	defer observability.TrackQuery("search", "users")()

	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	var users []models.User
	err := readDB(r.db).WithContext(ctx).
		Where("(LOWER(username) LIKE ? ESCAPE '\\' OR LOWER(name) LIKE ? ESCAPE '\\')", pattern, pattern).
		Where("id <> ?", excludeID).
		Order("username ASC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, mapError(err, "User", nil)
	}
	return users, nil
}

// List pages through every user in ID order.
func (r *userRepository) List(ctx context.Context, afterID int64, limit int) ([]models.User, error) {
	defer observability.TrackQuery("list", "users")()

	var users []models.User
	if err := r.db.WithContext(ctx).Where("id > ?", afterID).Order("id ASC").Limit(limit).Find(&users).Error; err != nil {
		return nil, mapError(err, "User", nil)
	}
	return users, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
